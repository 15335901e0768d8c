package ai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pkoukk/tiktoken-go"
	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// openAIClient реализует TextModel через OpenAI-совместимый API.
type openAIClient struct {
	client *openaigo.Client
	model  string
	logger *zap.Logger
}

// NewOpenAITextModel создает текстовую модель для OpenAI-совместимого API.
func NewOpenAITextModel(apiKey, baseURL, model string, timeout time.Duration, logger *zap.Logger) TextModel {
	cfg := openaigo.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	logger.Info("OpenAI client created", zap.String("baseURL", cfg.BaseURL), zap.String("model", model))
	return &openAIClient{
		client: openaigo.NewClientWithConfig(cfg),
		model:  model,
		logger: logger.Named("OpenAIClient"),
	}
}

func (c *openAIClient) GenerateText(ctx context.Context, userID string, req TextRequest) (string, UsageInfo, error) {
	log := c.logger.With(zap.String("userID", userID), zap.String("model", c.model))
	usage := UsageInfo{}

	msg := openaigo.ChatCompletionMessage{Role: openaigo.ChatMessageRoleUser}
	if req.Image != nil {
		msg.MultiContent = []openaigo.ChatMessagePart{
			{Type: openaigo.ChatMessagePartTypeImageURL, ImageURL: &openaigo.ChatMessageImageURL{URL: req.Image.DataURL()}},
			{Type: openaigo.ChatMessagePartTypeText, Text: req.Prompt},
		}
	} else {
		msg.Content = req.Prompt
	}

	request := openaigo.ChatCompletionRequest{
		Model:    c.model,
		Messages: []openaigo.ChatCompletionMessage{msg},
	}
	if req.Schema != nil {
		request.ResponseFormat = &openaigo.ChatCompletionResponseFormat{
			Type: openaigo.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openaigo.ChatCompletionResponseFormatJSONSchema{
				Name:   "response",
				Schema: req.Schema.JSON(),
			},
		}
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, request)
	duration := time.Since(start)
	if err != nil {
		log.Error("OpenAI request failed", zap.Duration("duration", duration), zap.Error(err))
		observeRequest(c.model, "text", statusError, duration)
		return "", usage, fmt.Errorf("%w: %v", ErrAIGenerationFailed, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		log.Warn("OpenAI returned empty response", zap.Duration("duration", duration))
		observeRequest(c.model, "text", statusEmpty, duration)
		return "", usage, fmt.Errorf("%w: empty response", ErrAIGenerationFailed)
	}

	text := resp.Choices[0].Message.Content
	if resp.Usage.TotalTokens > 0 {
		usage.PromptTokens = resp.Usage.PromptTokens
		usage.CompletionTokens = resp.Usage.CompletionTokens
		usage.TotalTokens = resp.Usage.TotalTokens
	} else {
		usage = c.estimateUsage(req.Prompt, text)
	}
	observeRequest(c.model, "text", statusSuccess, duration)
	observeUsage(c.model, usage)
	log.Debug("OpenAI response received", zap.Duration("duration", duration), zap.Int("totalTokens", usage.TotalTokens))
	return text, usage, nil
}

// estimateUsage оценивает токены через tiktoken, если сервер не вернул usage.
func (c *openAIClient) estimateUsage(prompt, completion string) UsageInfo {
	tke, err := tiktoken.EncodingForModel(c.model)
	if err != nil {
		tke, err = tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
		if err != nil {
			c.logger.Debug("Tokenizer unavailable, skipping usage estimate", zap.Error(err))
			return UsageInfo{}
		}
	}
	p := len(tke.Encode(prompt, nil, nil))
	comp := len(tke.Encode(completion, nil, nil))
	return UsageInfo{PromptTokens: p, CompletionTokens: comp, TotalTokens: p + comp}
}
