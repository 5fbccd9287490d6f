package prediction

import (
	"context"
	"fmt"
	"sync"

	"github.com/twinvision/backend/internal/config"
	"github.com/twinvision/backend/internal/utils"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// DefaultModel is used when no model is configured
const DefaultModel = "gemini-1.5-flash"

// GeminiPredictor asks a hosted Gemini model for a structured prediction
type GeminiPredictor struct {
	cfg     config.PredictionConfig
	logger  *utils.Logger
	replies *ReplyParser

	mu     sync.Mutex
	client *genai.Client
}

// NewGeminiPredictor creates a predictor. A missing API key is not an error here;
// every Predict call fails with ErrMissingAPIKey instead.
func NewGeminiPredictor(cfg config.PredictionConfig, logger *utils.Logger) (*GeminiPredictor, error) {
	replies, err := NewReplyParser()
	if err != nil {
		return nil, fmt.Errorf("failed to build reply parser: %w", err)
	}

	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	return &GeminiPredictor{
		cfg:     cfg,
		logger:  logger.Named("gemini"),
		replies: replies,
	}, nil
}

// Predict renders the prompt, calls the model and validates its reply
func (p *GeminiPredictor) Predict(ctx context.Context, in Input) (*Prediction, error) {
	if p.cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	client, err := p.getClient(ctx)
	if err != nil {
		return nil, err
	}

	prompt, err := RenderPrompt(in)
	if err != nil {
		return nil, err
	}

	if timeout := p.cfg.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	resp, err := client.Models.GenerateContent(ctx, p.cfg.Model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(p.cfg.Temperature)),
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema(),
	})
	if err != nil {
		return nil, fmt.Errorf("model call failed: %w", err)
	}

	prediction, err := p.replies.Parse(resp.Text())
	if err != nil {
		p.logger.Warn("Rejected model reply", zap.String("model", p.cfg.Model), zap.Error(err))
		return nil, err
	}

	p.logger.Debug("Prediction received",
		zap.String("failure_type", prediction.FailureType),
		zap.Float64("confidence", prediction.ConfidenceScore),
	)
	return prediction, nil
}

func (p *GeminiPredictor) getClient(ctx context.Context) (*genai.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil {
		return p.client, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create model client: %w", err)
	}

	p.client = client
	return client, nil
}
