package mocks

import (
	"context"

	"kidzy-server/shared/interfaces"
	"kidzy-server/shared/models"

	"github.com/stretchr/testify/mock"
)

// MockStoryRepository is a mock type for the interfaces.StoryRepository type
type MockStoryRepository struct {
	mock.Mock
}

func (_m *MockStoryRepository) Create(ctx context.Context, story *models.SavedStory) (string, error) {
	ret := _m.Called(ctx, story)
	if rf, ok := ret.Get(0).(func(context.Context, *models.SavedStory) string); ok {
		return rf(ctx, story), ret.Error(1)
	}
	return ret.String(0), ret.Error(1)
}

func (_m *MockStoryRepository) GetByID(ctx context.Context, id string) (*models.SavedStory, error) {
	ret := _m.Called(ctx, id)

	var r0 *models.SavedStory
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.SavedStory)
	}
	return r0, ret.Error(1)
}

func (_m *MockStoryRepository) ListByUser(ctx context.Context, userID string) ([]models.SavedStory, error) {
	ret := _m.Called(ctx, userID)

	var r0 []models.SavedStory
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]models.SavedStory)
	}
	return r0, ret.Error(1)
}

// MockPhotoRepository is a mock type for the interfaces.PhotoRepository type
type MockPhotoRepository struct {
	mock.Mock
}

func (_m *MockPhotoRepository) Create(ctx context.Context, photo *models.SavedPhoto) (string, error) {
	ret := _m.Called(ctx, photo)
	return ret.String(0), ret.Error(1)
}

func (_m *MockPhotoRepository) ListByUser(ctx context.Context, userID string) ([]models.SavedPhoto, error) {
	ret := _m.Called(ctx, userID)

	var r0 []models.SavedPhoto
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]models.SavedPhoto)
	}
	return r0, ret.Error(1)
}

// MockTransactionRepository is a mock type for the interfaces.TransactionRepository type
type MockTransactionRepository struct {
	mock.Mock
}

func (_m *MockTransactionRepository) Create(ctx context.Context, tx *models.Transaction) (string, error) {
	ret := _m.Called(ctx, tx)
	return ret.String(0), ret.Error(1)
}

func (_m *MockTransactionRepository) GetByOrderID(ctx context.Context, orderID string) (*models.Transaction, error) {
	ret := _m.Called(ctx, orderID)

	var r0 *models.Transaction
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.Transaction)
	}
	return r0, ret.Error(1)
}

func (_m *MockTransactionRepository) CompleteOrder(ctx context.Context, orderID string, status models.TransactionStatus, paymentID string) (bool, error) {
	ret := _m.Called(ctx, orderID, status, paymentID)
	return ret.Bool(0), ret.Error(1)
}

func (_m *MockTransactionRepository) ListByUser(ctx context.Context, userID string) ([]models.Transaction, error) {
	ret := _m.Called(ctx, userID)

	var r0 []models.Transaction
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]models.Transaction)
	}
	return r0, ret.Error(1)
}

// MockBlobStore is a mock type for the interfaces.BlobStore type
type MockBlobStore struct {
	mock.Mock
}

func (_m *MockBlobStore) Upload(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	ret := _m.Called(ctx, path, data, contentType)
	if rf, ok := ret.Get(0).(func(context.Context, string, []byte, string) string); ok {
		return rf(ctx, path, data, contentType), ret.Error(1)
	}
	return ret.String(0), ret.Error(1)
}

var (
	_ interfaces.StoryRepository       = (*MockStoryRepository)(nil)
	_ interfaces.PhotoRepository       = (*MockPhotoRepository)(nil)
	_ interfaces.TransactionRepository = (*MockTransactionRepository)(nil)
	_ interfaces.BlobStore             = (*MockBlobStore)(nil)
)
