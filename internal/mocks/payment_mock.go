package mocks

import (
	"context"

	"kidzy-server/internal/payment"
	"kidzy-server/shared/models"

	"github.com/stretchr/testify/mock"
)

// MockGateway is a mock type for the payment.Gateway type
type MockGateway struct {
	mock.Mock
}

func (_m *MockGateway) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string, notes map[string]string) (string, error) {
	ret := _m.Called(ctx, amountMinor, currency, receipt, notes)
	return ret.String(0), ret.Error(1)
}

func (_m *MockGateway) VerifyPayment(orderID, paymentID, signature string) bool {
	ret := _m.Called(orderID, paymentID, signature)
	return ret.Bool(0)
}

func (_m *MockGateway) VerifyWebhook(body []byte, signature string) bool {
	ret := _m.Called(body, signature)
	return ret.Bool(0)
}

func (_m *MockGateway) KeyID() string {
	return "rzp_test_key"
}

// MockStorySessions is a mock type for the payment.StorySessions type
type MockStorySessions struct {
	mock.Mock
}

func (_m *MockStorySessions) Get(ctx context.Context, userID, sessionID string) (*models.StorySession, error) {
	ret := _m.Called(ctx, userID, sessionID)

	var r0 *models.StorySession
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.StorySession)
	}
	return r0, ret.Error(1)
}

func (_m *MockStorySessions) MarkPurchased(ctx context.Context, sessionID string) (*models.StorySession, error) {
	ret := _m.Called(ctx, sessionID)

	var r0 *models.StorySession
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.StorySession)
	}
	return r0, ret.Error(1)
}

// MockGallerySessions is a mock type for the payment.GallerySessions type
type MockGallerySessions struct {
	mock.Mock
}

func (_m *MockGallerySessions) Get(ctx context.Context, userID, sessionID string) (*models.GallerySession, error) {
	ret := _m.Called(ctx, userID, sessionID)

	var r0 *models.GallerySession
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.GallerySession)
	}
	return r0, ret.Error(1)
}

func (_m *MockGallerySessions) Unlock(ctx context.Context, sessionID string) (*models.GallerySession, error) {
	ret := _m.Called(ctx, sessionID)

	var r0 *models.GallerySession
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.GallerySession)
	}
	return r0, ret.Error(1)
}

var (
	_ payment.Gateway         = (*MockGateway)(nil)
	_ payment.StorySessions   = (*MockStorySessions)(nil)
	_ payment.GallerySessions = (*MockGallerySessions)(nil)
)
