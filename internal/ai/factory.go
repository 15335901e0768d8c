package ai

import (
	"context"
	"fmt"
	"strings"

	"kidzy-server/internal/config"

	"go.uber.org/zap"
)

// Models - набор моделей, разделяющих один лимитер.
type Models struct {
	Text  TextModel
	Image ImageModel
}

// NewModels создает модели по конфигурации. Изображения всегда генерирует Gemini,
// текстовый провайдер выбирается через AI_TEXT_PROVIDER.
func NewModels(ctx context.Context, cfg config.AIConfig, logger *zap.Logger) (*Models, error) {
	gemini, err := NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.TextModel, cfg.ImageModel, logger)
	if err != nil {
		return nil, err
	}

	var text TextModel
	switch strings.ToLower(cfg.TextProvider) {
	case config.TextProviderGemini:
		text = gemini
	case config.TextProviderOpenAI:
		text = NewOpenAITextModel(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.TextModel, cfg.RequestTimeout, logger)
	case config.TextProviderOllama:
		text, err = NewOllamaTextModel(cfg.OllamaURL, cfg.TextModel, cfg.RequestTimeout, logger)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown AI text provider: %s", cfg.TextProvider)
	}
	logger.Info("AI text provider selected", zap.String("provider", cfg.TextProvider))

	limiter := NewLimiter(cfg.RequestsPerMinute)
	return &Models{
		Text:  LimitText(text, limiter),
		Image: LimitImage(gemini, limiter),
	}, nil
}
