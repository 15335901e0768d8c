package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"kidzy-server/shared/models"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

var (
	_ TaskPublisher         = (*RabbitMQPublisher)(nil)
	_ ClientUpdatePublisher = (*RabbitMQPublisher)(nil)
)

// RabbitMQPublisher публикует задачи в durable-очередь и события клиентов в fanout exchange.
type RabbitMQPublisher struct {
	ch        *amqp091.Channel
	taskQueue string
	logger    *zap.Logger
	mu        sync.Mutex
}

// NewRabbitMQPublisher открывает канал и объявляет очередь задач и exchange событий.
func NewRabbitMQPublisher(conn *amqp091.Connection, taskQueue string, logger *zap.Logger) (*RabbitMQPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel for publisher: %w", err)
	}

	if _, err := DeclareTaskQueue(ch, taskQueue); err != nil {
		_ = ch.Close()
		return nil, err
	}
	if err := DeclareClientUpdateExchange(ch); err != nil {
		_ = ch.Close()
		return nil, err
	}

	return &RabbitMQPublisher{
		ch:        ch,
		taskQueue: taskQueue,
		logger:    logger.Named("RabbitMQPublisher"),
	}, nil
}

// DeclareTaskQueue объявляет durable-очередь задач генерации.
func DeclareTaskQueue(ch *amqp091.Channel, name string) (amqp091.Queue, error) {
	q, err := ch.QueueDeclare(
		name,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		return q, fmt.Errorf("failed to declare task queue %s: %w", name, err)
	}
	return q, nil
}

// DeclareClientUpdateExchange объявляет fanout exchange событий для клиентов.
func DeclareClientUpdateExchange(ch *amqp091.Channel) error {
	err := ch.ExchangeDeclare(
		ClientUpdateExchangeName,
		"fanout",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange '%s': %w", ClientUpdateExchangeName, err)
	}
	return nil
}

func (p *RabbitMQPublisher) publish(ctx context.Context, exchange, routingKey string, payload interface{}, correlationID string, persistent bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil {
		return errors.New("publisher channel is closed")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	msg := amqp091.Publishing{
		ContentType:   "application/json",
		CorrelationId: correlationID,
		Body:          body,
		Timestamp:     time.Now(),
	}
	if persistent {
		msg.DeliveryMode = amqp091.Persistent
	}
	if err := p.ch.PublishWithContext(ctx, exchange, routingKey, false, false, msg); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

func (p *RabbitMQPublisher) PublishGenerationTask(ctx context.Context, payload models.GenerationTaskPayload) error {
	if err := p.publish(ctx, "", p.taskQueue, payload, payload.TaskID, true); err != nil {
		p.logger.Error("Failed to publish generation task", zap.String("taskID", payload.TaskID), zap.String("type", string(payload.Type)), zap.Error(err))
		return err
	}
	p.logger.Debug("Generation task published", zap.String("taskID", payload.TaskID), zap.String("type", string(payload.Type)))
	return nil
}

func (p *RabbitMQPublisher) PublishClientUpdate(ctx context.Context, update models.ClientUpdate) error {
	if err := p.publish(ctx, ClientUpdateExchangeName, "", update, update.SessionID, false); err != nil {
		p.logger.Error("Failed to publish client update", zap.String("event", update.Event), zap.Error(err))
		return err
	}
	return nil
}

func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		return nil
	}
	err := p.ch.Close()
	p.ch = nil
	return err
}
