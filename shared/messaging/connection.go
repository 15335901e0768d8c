package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Dial подключается к RabbitMQ, повторяя попытки с паузой delay.
// maxAttempts <= 0 означает бесконечные попытки до отмены ctx.
func Dial(ctx context.Context, url string, delay time.Duration, maxAttempts int, logger *zap.Logger) (*amqp091.Connection, error) {
	for attempt := 1; ; attempt++ {
		conn, err := amqp091.Dial(url)
		if err == nil {
			logger.Info("RabbitMQ connected successfully", zap.Int("attempt", attempt))
			return conn, nil
		}

		logger.Error("Failed to connect to RabbitMQ", zap.Int("attempt", attempt), zap.Error(err))
		if maxAttempts > 0 && attempt >= maxAttempts {
			return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", attempt, err)
		}

		select {
		case <-time.After(delay):
			logger.Info("Retrying RabbitMQ connection...")
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
