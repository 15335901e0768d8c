package worker

import (
	"context"
	"errors"
	"testing"

	"kidzy-server/shared/models"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type storyTasksMock struct {
	mock.Mock
}

func (m *storyTasksMock) FillPages(ctx context.Context, sessionID string) error {
	return m.Called(ctx, sessionID).Error(0)
}

func (m *storyTasksMock) RegeneratePageTask(ctx context.Context, sessionID string, pageID int) error {
	return m.Called(ctx, sessionID, pageID).Error(0)
}

func (m *storyTasksMock) GenerateColorGuide(ctx context.Context, sessionID string) error {
	return m.Called(ctx, sessionID).Error(0)
}

type galleryTasksMock struct {
	mock.Mock
}

func (m *galleryTasksMock) Generate(ctx context.Context, sessionID string) error {
	return m.Called(ctx, sessionID).Error(0)
}

func (m *galleryTasksMock) RetryItem(ctx context.Context, sessionID, itemID string) error {
	return m.Called(ctx, sessionID, itemID).Error(0)
}

func newHandler(t *testing.T) (*Handler, *storyTasksMock, *galleryTasksMock, *Metrics) {
	stories := &storyTasksMock{}
	gallery := &galleryTasksMock{}
	stories.Test(t)
	gallery.Test(t)
	metrics := NewMetrics("", zap.NewNop())
	return NewHandler(stories, gallery, metrics, zap.NewNop()), stories, gallery, metrics
}

func TestHandle_Dispatch(t *testing.T) {
	ctx := context.Background()
	h, stories, gallery, metrics := newHandler(t)
	page := 3

	stories.On("FillPages", ctx, "s1").Return(nil).Once()
	stories.On("RegeneratePageTask", ctx, "s1", 3).Return(nil).Once()
	stories.On("GenerateColorGuide", ctx, "s1").Return(nil).Once()
	gallery.On("Generate", ctx, "g1").Return(nil).Once()
	gallery.On("RetryItem", ctx, "g1", "2").Return(nil).Once()

	assert.NoError(t, h.Handle(ctx, models.GenerationTaskPayload{Type: models.TaskTypeFillPages, SessionID: "s1"}))
	assert.NoError(t, h.Handle(ctx, models.GenerationTaskPayload{Type: models.TaskTypeRegeneratePage, SessionID: "s1", PageID: &page}))
	assert.NoError(t, h.Handle(ctx, models.GenerationTaskPayload{Type: models.TaskTypeColorGuide, SessionID: "s1"}))
	assert.NoError(t, h.Handle(ctx, models.GenerationTaskPayload{Type: models.TaskTypeGallery, SessionID: "g1"}))
	assert.NoError(t, h.Handle(ctx, models.GenerationTaskPayload{Type: models.TaskTypeGalleryRetry, SessionID: "g1", ItemID: "2"}))

	stories.AssertExpectations(t)
	gallery.AssertExpectations(t)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.tasksSucceeded.WithLabelValues(string(models.TaskTypeFillPages))))
}

func TestHandle_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("busy session is skipped", func(t *testing.T) {
		h, stories, _, metrics := newHandler(t)
		stories.On("FillPages", ctx, "s1").Return(models.ErrGenerationInProgress).Once()

		assert.NoError(t, h.Handle(ctx, models.GenerationTaskPayload{Type: models.TaskTypeFillPages, SessionID: "s1"}))
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.tasksFailed.WithLabelValues(string(models.TaskTypeFillPages), "skipped")))
	})

	t.Run("failure is returned", func(t *testing.T) {
		h, _, gallery, _ := newHandler(t)
		boom := errors.New("redis down")
		gallery.On("Generate", ctx, "g1").Return(boom).Once()

		assert.ErrorIs(t, h.Handle(ctx, models.GenerationTaskPayload{Type: models.TaskTypeGallery, SessionID: "g1"}), boom)
	})

	t.Run("regenerate without page", func(t *testing.T) {
		h, _, _, _ := newHandler(t)
		err := h.Handle(ctx, models.GenerationTaskPayload{Type: models.TaskTypeRegeneratePage, SessionID: "s1"})
		assert.ErrorIs(t, err, models.ErrBadRequest)
	})

	t.Run("unknown type", func(t *testing.T) {
		h, _, _, _ := newHandler(t)
		err := h.Handle(ctx, models.GenerationTaskPayload{Type: "teleport"})
		assert.ErrorIs(t, err, models.ErrBadRequest)
	})
}
