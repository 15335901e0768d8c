package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kidzy-server/shared/messaging"
	"kidzy-server/shared/models"

	"go.uber.org/zap"
)

// StoryTasks - фоновые операции книги.
type StoryTasks interface {
	FillPages(ctx context.Context, sessionID string) error
	RegeneratePageTask(ctx context.Context, sessionID string, pageID int) error
	GenerateColorGuide(ctx context.Context, sessionID string) error
}

// GalleryTasks - фоновые операции фотосессии.
type GalleryTasks interface {
	Generate(ctx context.Context, sessionID string) error
	RetryItem(ctx context.Context, sessionID, itemID string) error
}

// Handler выполняет задачи генерации по их типу.
type Handler struct {
	stories StoryTasks
	gallery GalleryTasks
	metrics *Metrics
	logger  *zap.Logger
}

var _ messaging.TaskHandler = (*Handler)(nil)

func NewHandler(stories StoryTasks, gallery GalleryTasks, metrics *Metrics, logger *zap.Logger) *Handler {
	return &Handler{
		stories: stories,
		gallery: gallery,
		metrics: metrics,
		logger:  logger.Named("TaskHandler"),
	}
}

// Handle выполняет задачу. Занятая другой генерацией сессия и истекшая сессия
// не считаются ошибкой: повторять такую задачу бессмысленно.
func (h *Handler) Handle(ctx context.Context, task models.GenerationTaskPayload) error {
	log := h.logger.With(
		zap.String("taskID", task.TaskID),
		zap.String("type", string(task.Type)),
		zap.String("sessionID", task.SessionID),
	)
	log.Info("Task received")
	h.metrics.received(task.Type)
	start := time.Now()

	err := h.dispatch(ctx, task)
	h.metrics.observe(task.Type, time.Since(start))

	switch {
	case err == nil:
		h.metrics.succeeded(task.Type)
		log.Info("Task completed", zap.Duration("duration", time.Since(start)))
		return nil
	case errors.Is(err, models.ErrGenerationInProgress), errors.Is(err, models.ErrSessionNotFound):
		h.metrics.failed(task.Type, "skipped")
		log.Warn("Task skipped", zap.Error(err))
		return nil
	default:
		h.metrics.failed(task.Type, "error")
		log.Error("Task failed", zap.Error(err))
		return err
	}
}

func (h *Handler) dispatch(ctx context.Context, task models.GenerationTaskPayload) error {
	switch task.Type {
	case models.TaskTypeFillPages:
		return h.stories.FillPages(ctx, task.SessionID)
	case models.TaskTypeRegeneratePage:
		if task.PageID == nil {
			return fmt.Errorf("%w: regenerate task without page id", models.ErrBadRequest)
		}
		return h.stories.RegeneratePageTask(ctx, task.SessionID, *task.PageID)
	case models.TaskTypeColorGuide:
		return h.stories.GenerateColorGuide(ctx, task.SessionID)
	case models.TaskTypeGallery:
		return h.gallery.Generate(ctx, task.SessionID)
	case models.TaskTypeGalleryRetry:
		return h.gallery.RetryItem(ctx, task.SessionID, task.ItemID)
	}
	return fmt.Errorf("%w: unknown task type %q", models.ErrBadRequest, task.Type)
}
