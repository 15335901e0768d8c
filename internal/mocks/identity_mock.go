package mocks

import (
	"context"

	"kidzy-server/internal/auth"
	"kidzy-server/shared/models"

	"github.com/stretchr/testify/mock"
)

// MockIdentity is a mock type for the auth.Identity type
type MockIdentity struct {
	mock.Mock
}

func (_m *MockIdentity) VerifyIDToken(ctx context.Context, idToken string) (string, error) {
	ret := _m.Called(ctx, idToken)
	return ret.String(0), ret.Error(1)
}

func (_m *MockIdentity) GetUser(ctx context.Context, uid string) (models.User, error) {
	ret := _m.Called(ctx, uid)
	return ret.Get(0).(models.User), ret.Error(1)
}

func (_m *MockIdentity) CreateUser(ctx context.Context, email, password, displayName string) (models.User, error) {
	ret := _m.Called(ctx, email, password, displayName)
	return ret.Get(0).(models.User), ret.Error(1)
}

func (_m *MockIdentity) UpdateUser(ctx context.Context, uid string, update auth.ProfileUpdate) (models.User, error) {
	ret := _m.Called(ctx, uid, update)
	return ret.Get(0).(models.User), ret.Error(1)
}

func (_m *MockIdentity) RevokeSessions(ctx context.Context, uid string) error {
	ret := _m.Called(ctx, uid)
	return ret.Error(0)
}

var _ auth.Identity = (*MockIdentity)(nil)
