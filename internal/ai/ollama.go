package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"
)

// ollamaClient реализует TextModel с использованием ollama/api
type ollamaClient struct {
	client  *api.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewOllamaTextModel создает текстовую модель для локального Ollama.
func NewOllamaTextModel(baseURL, model string, timeout time.Duration, logger *zap.Logger) (TextModel, error) {
	// api.NewClient требует URL без суффикса /v1
	baseURL = strings.TrimSuffix(strings.TrimSuffix(baseURL, "/v1"), "/")
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Ollama base URL '%s': %w", baseURL, err)
	}
	logger.Info("Ollama client created", zap.String("baseURL", baseURL), zap.String("model", model))
	return &ollamaClient{
		client:  api.NewClient(parsedURL, &http.Client{Timeout: timeout}),
		model:   model,
		timeout: timeout,
		logger:  logger.Named("OllamaClient"),
	}, nil
}

func (c *ollamaClient) GenerateText(ctx context.Context, userID string, req TextRequest) (string, UsageInfo, error) {
	log := c.logger.With(zap.String("userID", userID), zap.String("model", c.model))
	usage := UsageInfo{}

	msg := api.Message{Role: "user", Content: req.Prompt}
	if req.Image != nil {
		msg.Images = []api.ImageData{req.Image.Data}
	}
	stream := false
	chatReq := &api.ChatRequest{
		Model:    c.model,
		Messages: []api.Message{msg},
		Stream:   &stream,
	}
	if req.Schema != nil {
		chatReq.Format = req.Schema.JSON()
	}

	requestCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	var resp api.ChatResponse
	err := c.client.Chat(requestCtx, chatReq, func(r api.ChatResponse) error {
		resp = r
		return nil
	})
	duration := time.Since(start)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.Error("Ollama request timed out", zap.Duration("timeout", c.timeout), zap.Error(err))
		} else {
			log.Error("Ollama request failed", zap.Duration("duration", duration), zap.Error(err))
		}
		observeRequest(c.model, "text", statusError, duration)
		return "", usage, fmt.Errorf("%w: %v", ErrAIGenerationFailed, err)
	}
	if resp.Message.Content == "" {
		log.Warn("Ollama returned empty response", zap.Duration("duration", duration))
		observeRequest(c.model, "text", statusEmpty, duration)
		return "", usage, fmt.Errorf("%w: empty response", ErrAIGenerationFailed)
	}

	usage.PromptTokens = resp.PromptEvalCount
	usage.CompletionTokens = resp.EvalCount
	usage.TotalTokens = resp.PromptEvalCount + resp.EvalCount
	observeRequest(c.model, "text", statusSuccess, duration)
	observeUsage(c.model, usage)
	return resp.Message.Content, usage, nil
}
