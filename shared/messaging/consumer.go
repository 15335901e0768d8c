package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"kidzy-server/shared/models"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ConsumeTasks читает очередь задач по одной (Qos 1) и вызывает handler.
// Блокируется до отмены ctx или закрытия канала брокером.
func ConsumeTasks(ctx context.Context, conn *amqp091.Connection, queue, consumerTag string, handler TaskHandler, logger *zap.Logger) error {
	logger = logger.Named("TaskConsumer")

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open RabbitMQ channel for consumer: %w", err)
	}
	defer ch.Close()

	q, err := DeclareTaskQueue(ch, queue)
	if err != nil {
		return err
	}
	logger.Info("Task queue declared", zap.String("queue", q.Name), zap.Int("messages", q.Messages), zap.Int("consumers", q.Consumers))

	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := ch.Consume(
		q.Name,
		consumerTag,
		false, // auto-ack (false, мы подтверждаем вручную)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	logger.Info("Consumer started, waiting for messages...")
	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				logger.Warn("Consumer channel closed by RabbitMQ")
				return fmt.Errorf("consumer channel closed")
			}
			handleTaskDelivery(ctx, msg, handler, logger)
		case <-ctx.Done():
			logger.Info("Context cancelled, stopping consumer...")
			return nil
		}
	}
}

func handleTaskDelivery(ctx context.Context, msg amqp091.Delivery, handler TaskHandler, logger *zap.Logger) {
	var payload models.GenerationTaskPayload
	if err := json.Unmarshal(msg.Body, &payload); err != nil {
		logger.Error("Failed to unmarshal task payload, dropping message", zap.Error(err), zap.ByteString("body", msg.Body))
		if nackErr := msg.Nack(false, false); nackErr != nil {
			logger.Error("Failed to nack message", zap.Uint64("delivery_tag", msg.DeliveryTag), zap.Error(nackErr))
		}
		return
	}

	log := logger.With(zap.String("taskID", payload.TaskID), zap.String("type", string(payload.Type)))
	if err := handler.Handle(ctx, payload); err != nil {
		// Итог задачи уже записан в сессию и отправлен клиенту; повтор привел бы к повторной оплате запросов к модели
		log.Error("Task failed", zap.Error(err))
		if nackErr := msg.Nack(false, false); nackErr != nil {
			log.Error("Failed to nack message", zap.Error(nackErr))
		}
		return
	}
	if ackErr := msg.Ack(false); ackErr != nil {
		log.Error("Failed to ack message", zap.Error(ackErr))
	}
}

// ConsumeClientUpdates подписывает экземпляр сервера на fanout exchange событий
// через временную эксклюзивную очередь и передает события в sink.
func ConsumeClientUpdates(ctx context.Context, conn *amqp091.Connection, sink ClientUpdatePublisher, logger *zap.Logger) error {
	logger = logger.Named("ClientUpdateConsumer")

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := DeclareClientUpdateExchange(ch); err != nil {
		return err
	}
	q, err := ch.QueueDeclare(
		"",    // name (empty for auto-generated)
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, "", ClientUpdateExchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	msgs, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}
	logger.Info("Client update consumer started", zap.String("queueName", q.Name))

	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("client update channel closed")
			}
			var update models.ClientUpdate
			if err := json.Unmarshal(msg.Body, &update); err != nil {
				logger.Error("Failed to unmarshal client update", zap.Error(err))
				continue
			}
			if err := sink.PublishClientUpdate(ctx, update); err != nil {
				logger.Warn("Failed to deliver client update", zap.String("userID", update.UserID), zap.Error(err))
			}
		case <-ctx.Done():
			return nil
		}
	}
}
