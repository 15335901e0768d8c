package ai

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// NewLimiter создает общий лимитер запросов к моделям: requestsPerMinute равномерно по минуте.
func NewLimiter(requestsPerMinute int) *rate.Limiter {
	if requestsPerMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1)
}

func waitLimiter(ctx context.Context, limiter *rate.Limiter) error {
	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limiter: %v", ErrAIGenerationFailed, err)
	}
	aiRateLimitWait.Observe(time.Since(start).Seconds())
	return nil
}

type limitedTextModel struct {
	next    TextModel
	limiter *rate.Limiter
}

// LimitText оборачивает текстовую модель общим лимитером.
func LimitText(next TextModel, limiter *rate.Limiter) TextModel {
	return &limitedTextModel{next: next, limiter: limiter}
}

func (m *limitedTextModel) GenerateText(ctx context.Context, userID string, req TextRequest) (string, UsageInfo, error) {
	if err := waitLimiter(ctx, m.limiter); err != nil {
		return "", UsageInfo{}, err
	}
	return m.next.GenerateText(ctx, userID, req)
}

type limitedImageModel struct {
	next    ImageModel
	limiter *rate.Limiter
}

// LimitImage оборачивает модель изображений общим лимитером.
func LimitImage(next ImageModel, limiter *rate.Limiter) ImageModel {
	return &limitedImageModel{next: next, limiter: limiter}
}

func (m *limitedImageModel) GenerateImage(ctx context.Context, userID string, req ImageRequest) (*InlineImage, error) {
	if err := waitLimiter(ctx, m.limiter); err != nil {
		return nil, err
	}
	return m.next.GenerateImage(ctx, userID, req)
}
