package messaging

import (
	"context"
	"sync"

	"kidzy-server/shared/models"

	"go.uber.org/zap"
)

var _ TaskPublisher = (*InlineDispatcher)(nil)

// InlineDispatcher выполняет задачи в горутинах текущего процесса. Используется,
// когда RabbitMQ не настроен. Одновременно выполняется не больше workers задач.
type InlineDispatcher struct {
	handler TaskHandler
	sem     chan struct{}
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	logger  *zap.Logger
}

func NewInlineDispatcher(handler TaskHandler, workers int, logger *zap.Logger) *InlineDispatcher {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &InlineDispatcher{
		handler: handler,
		sem:     make(chan struct{}, workers),
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger.Named("InlineDispatcher"),
	}
}

// PublishGenerationTask запускает задачу и сразу возвращается. Задача не привязана
// к контексту запроса: закрытие вкладки браузера ее не отменяет.
func (d *InlineDispatcher) PublishGenerationTask(_ context.Context, payload models.GenerationTaskPayload) error {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("Panic recovered in inline task", zap.String("taskID", payload.TaskID), zap.Any("panic", r))
			}
		}()

		select {
		case d.sem <- struct{}{}:
		case <-d.ctx.Done():
			return
		}
		defer func() { <-d.sem }()

		if err := d.handler.Handle(d.ctx, payload); err != nil {
			d.logger.Error("Inline task failed", zap.String("taskID", payload.TaskID), zap.String("type", string(payload.Type)), zap.Error(err))
		}
	}()
	return nil
}

// Shutdown отменяет выполняющиеся задачи и ждет их завершения или истечения ctx.
func (d *InlineDispatcher) Shutdown(ctx context.Context) {
	d.cancel()
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		d.logger.Info("Inline tasks finished")
	case <-ctx.Done():
		d.logger.Warn("Timeout waiting for inline tasks to finish")
	}
}
