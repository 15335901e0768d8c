package mocks

import (
	"context"

	"kidzy-server/internal/ai"
	"kidzy-server/shared/models"

	"github.com/stretchr/testify/mock"
)

// MockTextModel is a mock type for the ai.TextModel type
type MockTextModel struct {
	mock.Mock
}

// GenerateText provides a mock function with given fields: ctx, userID, req
func (_m *MockTextModel) GenerateText(ctx context.Context, userID string, req ai.TextRequest) (string, ai.UsageInfo, error) {
	ret := _m.Called(ctx, userID, req)

	var r0 string
	if rf, ok := ret.Get(0).(func(context.Context, string, ai.TextRequest) string); ok {
		r0 = rf(ctx, userID, req)
	} else {
		r0 = ret.String(0)
	}

	var r1 ai.UsageInfo
	if ret.Get(1) != nil {
		r1 = ret.Get(1).(ai.UsageInfo)
	}

	return r0, r1, ret.Error(2)
}

// NewMockTextModel creates a new instance of MockTextModel.
func NewMockTextModel(t interface {
	mock.TestingT
	Helper()
}) *MockTextModel {
	m := &MockTextModel{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

// MockImageModel is a mock type for the ai.ImageModel type
type MockImageModel struct {
	mock.Mock
}

// GenerateImage provides a mock function with given fields: ctx, userID, req
func (_m *MockImageModel) GenerateImage(ctx context.Context, userID string, req ai.ImageRequest) (*ai.InlineImage, error) {
	ret := _m.Called(ctx, userID, req)

	var r0 *ai.InlineImage
	if rf, ok := ret.Get(0).(func(context.Context, string, ai.ImageRequest) *ai.InlineImage); ok {
		r0 = rf(ctx, userID, req)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*ai.InlineImage)
	}

	return r0, ret.Error(1)
}

// NewMockImageModel creates a new instance of MockImageModel.
func NewMockImageModel(t interface {
	mock.TestingT
	Helper()
}) *MockImageModel {
	m := &MockImageModel{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

// MockImageFetcher is a mock type for the ai.ImageFetcher type
type MockImageFetcher struct {
	mock.Mock
}

// Fetch provides a mock function with given fields: ctx, url
func (_m *MockImageFetcher) Fetch(ctx context.Context, url string) (*ai.InlineImage, error) {
	ret := _m.Called(ctx, url)

	var r0 *ai.InlineImage
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*ai.InlineImage)
	}
	return r0, ret.Error(1)
}

// MockAIService is a mock type for the ai.Service type
type MockAIService struct {
	mock.Mock
}

func (_m *MockAIService) AnalyzeFeatures(ctx context.Context, userID string, photo *ai.InlineImage) string {
	ret := _m.Called(ctx, userID, photo)
	return ret.String(0)
}

func (_m *MockAIService) GenerateAvatar(ctx context.Context, userID string, cfg models.StoryConfig) (*ai.AvatarResult, error) {
	ret := _m.Called(ctx, userID, cfg)

	var r0 *ai.AvatarResult
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*ai.AvatarResult)
	}
	return r0, ret.Error(1)
}

func (_m *MockAIService) GenerateStoryOutline(ctx context.Context, userID string, cfg models.StoryConfig) (*models.Story, error) {
	ret := _m.Called(ctx, userID, cfg)

	var r0 *models.Story
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.Story)
	}
	return r0, ret.Error(1)
}

func (_m *MockAIService) GeneratePageImage(ctx context.Context, userID string, req ai.PageImageRequest) (*ai.PageImages, error) {
	ret := _m.Called(ctx, userID, req)

	var r0 *ai.PageImages
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*ai.PageImages)
	}
	return r0, ret.Error(1)
}

func (_m *MockAIService) GenerateColorizedImage(ctx context.Context, userID, lineArtURL, avatarURL, description string) (string, error) {
	ret := _m.Called(ctx, userID, lineArtURL, avatarURL, description)
	return ret.String(0), ret.Error(1)
}

func (_m *MockAIService) GenerateImageVariation(ctx context.Context, userID string, cfg models.StoryConfig, promptSuffix string) (string, error) {
	ret := _m.Called(ctx, userID, cfg, promptSuffix)
	return ret.String(0), ret.Error(1)
}

var (
	_ ai.TextModel    = (*MockTextModel)(nil)
	_ ai.ImageModel   = (*MockImageModel)(nil)
	_ ai.ImageFetcher = (*MockImageFetcher)(nil)
	_ ai.Service      = (*MockAIService)(nil)
)
