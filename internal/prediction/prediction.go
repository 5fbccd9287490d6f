package prediction

import (
	"context"
	"errors"
	"time"
)

// Prediction errors
var (
	ErrMissingAPIKey  = errors.New("prediction API key is not configured")
	ErrMalformedReply = errors.New("malformed model reply")
	ErrInvalidInput   = errors.New("invalid prediction input")
	ErrSuperseded     = errors.New("prediction superseded by a newer request")
)

// Input is one machine's readings at a point in time
type Input struct {
	Temperature float64   `json:"temperature"`
	Load        float64   `json:"load"`
	Speed       float64   `json:"speed"`
	Timestamp   time.Time `json:"timestamp"`
}

// Prediction is the structured result of a failure prediction
type Prediction struct {
	FailureType     string  `json:"failureType"`
	EstimatedTime   string  `json:"estimatedTime"`
	ConfidenceScore float64 `json:"confidenceScore"`
}

// Predictor turns readings into a failure prediction
type Predictor interface {
	Predict(ctx context.Context, in Input) (*Prediction, error)
}
