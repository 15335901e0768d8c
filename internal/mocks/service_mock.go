package mocks

import (
	"context"
	"sync"

	"kidzy-server/shared/messaging"
	"kidzy-server/shared/models"

	"github.com/stretchr/testify/mock"
)

// MockLibrary is a mock type for the library consumers (storybook.Library, gallery.PhotoSaver)
type MockLibrary struct {
	mock.Mock
}

func (_m *MockLibrary) SaveStory(ctx context.Context, userID string, story models.Story, cfg models.StoryConfig, purchased bool) (*models.SavedStory, error) {
	ret := _m.Called(ctx, userID, story, cfg, purchased)

	var r0 *models.SavedStory
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.SavedStory)
	}
	return r0, ret.Error(1)
}

func (_m *MockLibrary) GetStory(ctx context.Context, userID, storyID string) (*models.SavedStory, error) {
	ret := _m.Called(ctx, userID, storyID)

	var r0 *models.SavedStory
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.SavedStory)
	}
	return r0, ret.Error(1)
}

func (_m *MockLibrary) SavePhoto(ctx context.Context, userID, imageURL, prompt, theme string) (*models.SavedPhoto, error) {
	ret := _m.Called(ctx, userID, imageURL, prompt, theme)

	var r0 *models.SavedPhoto
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.SavedPhoto)
	}
	return r0, ret.Error(1)
}

// MockTaskPublisher is a mock type for the messaging.TaskPublisher type
type MockTaskPublisher struct {
	mock.Mock
}

func (_m *MockTaskPublisher) PublishGenerationTask(ctx context.Context, payload models.GenerationTaskPayload) error {
	ret := _m.Called(ctx, payload)
	return ret.Error(0)
}

// RecordingNotifier запоминает все отправленные клиенту события.
type RecordingNotifier struct {
	mu      sync.Mutex
	Updates []models.ClientUpdate
}

func (n *RecordingNotifier) PublishClientUpdate(_ context.Context, update models.ClientUpdate) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Updates = append(n.Updates, update)
	return nil
}

// Events возвращает имена событий в порядке отправки.
func (n *RecordingNotifier) Events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	events := make([]string, 0, len(n.Updates))
	for _, u := range n.Updates {
		events = append(events, u.Event)
	}
	return events
}

var (
	_ messaging.TaskPublisher         = (*MockTaskPublisher)(nil)
	_ messaging.ClientUpdatePublisher = (*RecordingNotifier)(nil)
)
