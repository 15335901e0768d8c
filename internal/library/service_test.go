package library_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"kidzy-server/internal/library"
	"kidzy-server/internal/mocks"
	"kidzy-server/shared/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	userID    = "user-1"
	avatarURI = "data:image/png;base64,YXZhdGFy"
	pageURI   = "data:image/png;base64,cGFnZQ=="
	photoURI  = "data:image/jpeg;base64,cGhvdG8="
)

func newLibrary(t *testing.T) (*library.Service, *mocks.MockStoryRepository, *mocks.MockPhotoRepository, *mocks.MockBlobStore) {
	stories := &mocks.MockStoryRepository{}
	photos := &mocks.MockPhotoRepository{}
	blobs := &mocks.MockBlobStore{}
	stories.Test(t)
	photos.Test(t)
	blobs.Test(t)
	return library.NewService(stories, photos, blobs, zap.NewNop()), stories, photos, blobs
}

// fakeUpload возвращает ссылку, производную от пути объекта.
func fakeUpload(_ context.Context, path string, _ []byte, _ string) string {
	return "https://storage.test/" + path
}

func testStory() models.Story {
	return models.Story{
		Title: "Mia and the Moon",
		Pages: []models.StoryPage{
			{ID: 0, Text: "Mia and the Moon", ImageURL: avatarURI, IsCover: true},
			{ID: 1, Text: "One", ImageURL: pageURI},
			{ID: 2, Text: "Two", ImageURL: "https://storage.test/already.png"},
			{ID: 3, Text: "Three", IsLoadingImage: true},
		},
	}
}

func TestSaveStory_ReplacesInlineImagesWithURLs(t *testing.T) {
	svc, stories, _, blobs := newLibrary(t)
	cfg := models.StoryConfig{
		ChildName:   "Mia",
		PaperSize:   models.PaperSizeA4Portrait,
		PhotoBase64: photoURI,
		AvatarURL:   avatarURI,
	}

	blobs.On("Upload", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.HasPrefix(p, "users/"+userID+"/stories/")
	}), mock.Anything, mock.Anything).Return(fakeUpload, nil)

	var persisted *models.SavedStory
	stories.On("Create", mock.Anything, mock.AnythingOfType("*models.SavedStory")).
		Run(func(args mock.Arguments) { persisted = args.Get(1).(*models.SavedStory) }).
		Return("story-1", nil).Once()

	saved, err := svc.SaveStory(context.Background(), userID, testStory(), cfg, true)
	require.NoError(t, err)
	require.NotNil(t, persisted)

	// photo, avatar (shared by cover and config) and page 1
	blobs.AssertNumberOfCalls(t, "Upload", 3)

	assert.True(t, saved.IsPurchased)
	assert.Equal(t, models.PaperSizeA4Portrait, saved.PaperSize)
	assert.Equal(t, saved.StoryData.Pages[0].ImageURL, saved.CoverURL)
	assert.Equal(t, saved.Config.AvatarURL, saved.CoverURL)
	assert.True(t, strings.HasPrefix(saved.Config.PhotoBase64, "https://storage.test/"))
	assert.Equal(t, "https://storage.test/already.png", saved.StoryData.Pages[2].ImageURL)
	assert.Empty(t, saved.StoryData.Pages[3].ImageURL)

	for _, p := range persisted.StoryData.Pages {
		assert.False(t, strings.HasPrefix(p.ImageURL, "data:"), "page %d still inline", p.ID)
		assert.False(t, p.IsLoadingImage)
	}
}

func TestSaveStory_DocumentTooLarge(t *testing.T) {
	svc, stories, _, _ := newLibrary(t)
	story := testStory()
	for i := range story.Pages {
		story.Pages[i].ImageURL = ""
	}
	story.Pages[1].Text = strings.Repeat("a", library.MaxDocumentBytes)

	_, err := svc.SaveStory(context.Background(), userID, story, models.StoryConfig{}, false)

	require.ErrorIs(t, err, models.ErrDocumentTooLarge)
	stories.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSaveStory_UploadFailureAborts(t *testing.T) {
	svc, stories, _, blobs := newLibrary(t)
	blobs.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", errors.New("bucket unavailable")).Once()

	_, err := svc.SaveStory(context.Background(), userID, testStory(), models.StoryConfig{}, false)

	require.Error(t, err)
	stories.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSaveStory_InvalidInlineImage(t *testing.T) {
	svc, _, _, _ := newLibrary(t)
	story := models.Story{Title: "x", Pages: []models.StoryPage{{ID: 0, ImageURL: "data:image/png;base64,@@@"}}}

	_, err := svc.SaveStory(context.Background(), userID, story, models.StoryConfig{}, false)
	require.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestSavePhoto(t *testing.T) {
	svc, _, photos, blobs := newLibrary(t)
	blobs.On("Upload", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.HasPrefix(p, "users/"+userID+"/photos/") && strings.HasSuffix(p, ".jpg")
	}), []byte("photo"), "image/jpeg").Return(fakeUpload, nil).Once()
	photos.On("Create", mock.Anything, mock.MatchedBy(func(p *models.SavedPhoto) bool {
		return p.UserID == userID && p.Prompt == "Action Shot" && p.Theme == "Pirate" && !strings.HasPrefix(p.URL, "data:")
	})).Return("photo-1", nil).Once()

	photo, err := svc.SavePhoto(context.Background(), userID, photoURI, "Action Shot", "Pirate")

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(photo.URL, "https://storage.test/users/"+userID+"/photos/"))
	photos.AssertExpectations(t)
	blobs.AssertExpectations(t)
}

func TestGetStory_Ownership(t *testing.T) {
	svc, stories, _, _ := newLibrary(t)
	stories.On("GetByID", mock.Anything, "s1").Return(&models.SavedStory{ID: "s1", UserID: "someone-else"}, nil).Once()
	stories.On("GetByID", mock.Anything, "s2").Return(&models.SavedStory{ID: "s2", UserID: userID}, nil).Once()
	stories.On("GetByID", mock.Anything, "s3").Return(nil, models.ErrStoryNotFound).Once()

	_, err := svc.GetStory(context.Background(), userID, "s1")
	assert.ErrorIs(t, err, models.ErrForbidden)

	story, err := svc.GetStory(context.Background(), userID, "s2")
	require.NoError(t, err)
	assert.Equal(t, "s2", story.ID)

	_, err = svc.GetStory(context.Background(), userID, "s3")
	assert.ErrorIs(t, err, models.ErrStoryNotFound)
}
