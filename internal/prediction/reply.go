package prediction

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/twinvision/backend/internal/utils"
	"google.golang.org/genai"
)

const replySchemaName = "prediction-reply"

// ReplyParser checks model replies against the prediction shape
type ReplyParser struct {
	validator *utils.JSONSchemaValidator
}

// NewReplyParser compiles the reply schema
func NewReplyParser() (*ReplyParser, error) {
	schema, err := utils.NewJSONSchemaBuilder("Prediction").
		AddStringProperty("failureType", true).
		AddStringProperty("estimatedTime", true).
		AddNumberProperty("confidenceScore", 0, 1, true).
		Build()
	if err != nil {
		return nil, err
	}

	validator := utils.NewJSONSchemaValidator()
	if err := validator.LoadSchema(replySchemaName, schema); err != nil {
		return nil, err
	}

	return &ReplyParser{validator: validator}, nil
}

// Parse validates and decodes a raw reply
func (p *ReplyParser) Parse(text string) (*Prediction, error) {
	body := []byte(stripCodeFence(text))
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty reply", ErrMalformedReply)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: reply is not JSON", ErrMalformedReply)
	}
	if err := p.validator.ValidateBytes(replySchemaName, body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}

	var out Prediction
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	return &out, nil
}

// stripCodeFence drops a markdown fence some models wrap JSON in
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// responseSchema is the structured output schema sent with every model call
func responseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"failureType": {
				Type:        genai.TypeString,
				Description: "The predicted type of failure.",
			},
			"estimatedTime": {
				Type:        genai.TypeString,
				Description: "The estimated time of failure occurrence.",
			},
			"confidenceScore": {
				Type:        genai.TypeNumber,
				Description: "The confidence score of the prediction (0-1).",
				Minimum:     genai.Ptr(0.0),
				Maximum:     genai.Ptr(1.0),
			},
		},
		Required:         []string{"failureType", "estimatedTime", "confidenceScore"},
		PropertyOrdering: []string{"failureType", "estimatedTime", "confidenceScore"},
	}
}
