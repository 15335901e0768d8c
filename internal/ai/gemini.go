package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// relaxedSafetySettings пропускают фэнтезийные трансформации персонажа,
// но продолжают блокировать явно опасный контент.
var relaxedSafetySettings = []*genai.SafetySetting{
	{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockOnlyHigh},
	{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockOnlyHigh},
	{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockOnlyHigh},
	{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockOnlyHigh},
}

// GeminiClient реализует TextModel и ImageModel поверх google.golang.org/genai.
type GeminiClient struct {
	client     *genai.Client
	textModel  string
	imageModel string
	logger     *zap.Logger
}

var (
	_ TextModel  = (*GeminiClient)(nil)
	_ ImageModel = (*GeminiClient)(nil)
)

// NewGeminiClient создает клиент Gemini API.
func NewGeminiClient(ctx context.Context, apiKey, textModel, imageModel string, logger *zap.Logger) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	logger.Info("Gemini client created", zap.String("textModel", textModel), zap.String("imageModel", imageModel))
	return &GeminiClient{
		client:     client,
		textModel:  textModel,
		imageModel: imageModel,
		logger:     logger.Named("GeminiClient"),
	}, nil
}

// GenerateText выполняет текстовый (опционально мультимодальный) запрос.
func (c *GeminiClient) GenerateText(ctx context.Context, userID string, req TextRequest) (string, UsageInfo, error) {
	log := c.logger.With(zap.String("userID", userID), zap.String("model", c.textModel))
	usage := UsageInfo{}

	parts := make([]*genai.Part, 0, 2)
	if req.Image != nil {
		parts = append(parts, genai.NewPartFromBytes(req.Image.Data, req.Image.MIMEType))
	}
	parts = append(parts, genai.NewPartFromText(req.Prompt))
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	var cfg *genai.GenerateContentConfig
	if req.Schema != nil {
		cfg = &genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   req.Schema.toGenai(),
		}
	}

	start := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, c.textModel, contents, cfg)
	duration := time.Since(start)
	if err != nil {
		log.Error("Gemini text request failed", zap.Duration("duration", duration), zap.Error(err))
		observeRequest(c.textModel, "text", statusError, duration)
		return "", usage, fmt.Errorf("%w: %v", ErrAIGenerationFailed, err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		log.Warn("Gemini returned empty text", zap.Duration("duration", duration))
		observeRequest(c.textModel, "text", statusEmpty, duration)
		return "", usage, fmt.Errorf("%w: empty response", ErrAIGenerationFailed)
	}

	if resp.UsageMetadata != nil {
		usage.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		usage.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	observeRequest(c.textModel, "text", statusSuccess, duration)
	observeUsage(c.textModel, usage)
	log.Debug("Gemini text response received", zap.Duration("duration", duration), zap.Int("length", len(text)))
	return text, usage, nil
}

// GenerateImage генерирует изображение. Возвращает ErrNoImage, если в ответе нет inline-данных.
func (c *GeminiClient) GenerateImage(ctx context.Context, userID string, req ImageRequest) (*InlineImage, error) {
	log := c.logger.With(zap.String("userID", userID), zap.String("model", c.imageModel), zap.Int("references", len(req.References)))

	parts := make([]*genai.Part, 0, len(req.References)+1)
	for _, ref := range req.References {
		parts = append(parts, genai.NewPartFromBytes(ref.Data, ref.MIMEType))
	}
	parts = append(parts, genai.NewPartFromText(req.Prompt))
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	cfg := &genai.GenerateContentConfig{}
	if req.AspectRatio != "" {
		cfg.ImageConfig = &genai.ImageConfig{AspectRatio: req.AspectRatio}
	}
	if req.Relaxed {
		cfg.SafetySettings = relaxedSafetySettings
	}

	start := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, c.imageModel, contents, cfg)
	duration := time.Since(start)
	if err != nil {
		log.Error("Gemini image request failed", zap.Duration("duration", duration), zap.Error(err))
		observeRequest(c.imageModel, "image", statusError, duration)
		return nil, fmt.Errorf("%w: %v", ErrAIGenerationFailed, err)
	}

	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				observeRequest(c.imageModel, "image", statusSuccess, duration)
				log.Debug("Gemini image received", zap.Duration("duration", duration), zap.Int("bytes", len(part.InlineData.Data)))
				return &InlineImage{Data: part.InlineData.Data, MIMEType: part.InlineData.MIMEType}, nil
			}
		}
	}

	fields := []zap.Field{zap.Duration("duration", duration)}
	if resp.PromptFeedback != nil {
		fields = append(fields, zap.String("blockReason", string(resp.PromptFeedback.BlockReason)))
	}
	if len(resp.Candidates) > 0 {
		fields = append(fields, zap.String("finishReason", string(resp.Candidates[0].FinishReason)))
	}
	log.Warn("Gemini returned no image", fields...)
	observeRequest(c.imageModel, "image", statusNoImage, duration)
	return nil, ErrNoImage
}
