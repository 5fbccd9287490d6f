package services

import (
	"context"

	"github.com/twinvision/backend/internal/prediction"
	"github.com/twinvision/backend/internal/utils"
	"go.uber.org/zap"
)

// PredictionService answers stateless prediction requests. It does not touch the
// session's prediction state.
type PredictionService struct {
	predictor prediction.Predictor
	logger    *utils.Logger
}

// NewPredictionService creates a prediction service
func NewPredictionService(predictor prediction.Predictor, logger *utils.Logger) *PredictionService {
	return &PredictionService{
		predictor: predictor,
		logger:    logger.Named("prediction_service"),
	}
}

// Predict forwards one set of readings to the predictor
func (s *PredictionService) Predict(ctx context.Context, in prediction.Input) (*prediction.Prediction, error) {
	result, err := s.predictor.Predict(ctx, in)
	if err != nil {
		s.logger.Error("Prediction failed",
			zap.Float64("temperature", in.Temperature),
			zap.Float64("load", in.Load),
			zap.Float64("speed", in.Speed),
			zap.Error(err))
		return nil, err
	}
	return result, nil
}
