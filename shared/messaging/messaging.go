package messaging

import (
	"context"

	"kidzy-server/shared/models"
)

// ClientUpdateExchangeName - fanout exchange событий для клиентов. Каждый экземпляр
// API-сервера получает все события через собственную эксклюзивную очередь.
const ClientUpdateExchangeName = "kidzy_client_updates_exchange"

// TaskPublisher отправляет задачи генерации на выполнение.
type TaskPublisher interface {
	PublishGenerationTask(ctx context.Context, payload models.GenerationTaskPayload) error
}

// ClientUpdatePublisher доставляет события прогресса клиентам.
type ClientUpdatePublisher interface {
	PublishClientUpdate(ctx context.Context, update models.ClientUpdate) error
}

// TaskHandler выполняет задачу генерации.
type TaskHandler interface {
	Handle(ctx context.Context, payload models.GenerationTaskPayload) error
}

// ClientUpdateFunc позволяет использовать функцию как ClientUpdatePublisher.
type ClientUpdateFunc func(ctx context.Context, update models.ClientUpdate) error

func (f ClientUpdateFunc) PublishClientUpdate(ctx context.Context, update models.ClientUpdate) error {
	return f(ctx, update)
}

// TaskPublisherFunc позволяет использовать функцию как TaskPublisher.
type TaskPublisherFunc func(ctx context.Context, payload models.GenerationTaskPayload) error

func (f TaskPublisherFunc) PublishGenerationTask(ctx context.Context, payload models.GenerationTaskPayload) error {
	return f(ctx, payload)
}
