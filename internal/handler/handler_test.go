package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"kidzy-server/internal/ai"
	"kidzy-server/internal/auth"
	"kidzy-server/internal/gallery"
	"kidzy-server/internal/handler"
	"kidzy-server/internal/library"
	"kidzy-server/internal/mocks"
	"kidzy-server/internal/session"
	"kidzy-server/internal/storybook"
	"kidzy-server/shared/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	ownerToken = "owner-token"
	otherToken = "other-token"
	ownerID    = "user-1"
	otherID    = "user-2"
	photoURI   = "data:image/jpeg;base64,cGhvdG8="
	avatarURI  = "data:image/png;base64,YXZhdGFy"
)

type apiFixture struct {
	router   *gin.Engine
	updates  *handler.ConnectionManager
	sessions *session.Sessions
	ai       *mocks.MockAIService
	identity *mocks.MockIdentity
	tasks    *mocks.MockTaskPublisher
	gallery  *gallery.Service
}

func verifyToken(_ context.Context, token string) (string, error) {
	switch token {
	case ownerToken:
		return ownerID, nil
	case otherToken:
		return otherID, nil
	}
	return "", &auth.ProviderError{Code: auth.CodeInvalidIDToken, Err: models.ErrTokenInvalid}
}

func newAPIFixture(t *testing.T) *apiFixture {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	f := &apiFixture{
		sessions: session.NewSessions(session.NewMemoryStore(), time.Hour),
		ai:       &mocks.MockAIService{},
		identity: &mocks.MockIdentity{},
		tasks:    &mocks.MockTaskPublisher{},
		updates:  handler.NewConnectionManager(nil, logger),
	}
	f.ai.Test(t)
	f.identity.Test(t)
	f.tasks.Test(t)

	lib := library.NewService(&mocks.MockStoryRepository{}, &mocks.MockPhotoRepository{}, &mocks.MockBlobStore{}, logger)
	stories := storybook.NewService(f.ai, f.sessions, lib, f.tasks, f.updates,
		storybook.Config{PageDelay: time.Millisecond, LockTTL: time.Minute}, logger)
	tickets, err := gallery.NewTickets("handler-test-secret", time.Minute, logger)
	require.NoError(t, err)
	f.gallery = gallery.NewService(f.ai, f.sessions, lib, f.tasks, f.updates, tickets, logger)

	h := handler.NewHandler(handler.Deps{
		Auth:    auth.NewService(f.identity, logger),
		Stories: stories,
		Gallery: f.gallery,
		Library: lib,
		Updates: f.updates,
		Verify:  verifyToken,
	}, logger)

	f.router = gin.New()
	h.RegisterRoutes(f.router, func(c *gin.Context) { c.Next() })
	return f
}

func (f *apiFixture) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func storyConfig() models.StoryConfig {
	return models.StoryConfig{
		ChildName:   "Mia",
		Age:         6,
		Gender:      "girl",
		Theme:       "Space Explorer",
		PaperSize:   models.PaperSizeSquare,
		PhotoBase64: photoURI,
	}
}

// createStory создает книгу через API и возвращает ID сессии.
func (f *apiFixture) createStory(t *testing.T) string {
	f.ai.On("GenerateAvatar", mock.Anything, ownerID, mock.Anything).
		Return(&ai.AvatarResult{ImageURL: avatarURI, Description: "curly hair"}, nil).Once()
	f.ai.On("GenerateStoryOutline", mock.Anything, ownerID, mock.Anything).
		Return(&models.Story{
			Title: "Mia in Space",
			Pages: []models.StoryPage{
				{ID: 0, Text: "Mia in Space", ImageURL: avatarURI, IsCover: true},
				{ID: 1, Text: "Liftoff", ImagePrompt: "rocket", IsLoadingImage: true},
			},
		}, nil).Once()
	f.tasks.On("PublishGenerationTask", mock.Anything, mock.MatchedBy(func(p models.GenerationTaskPayload) bool {
		return p.Type == models.TaskTypeFillPages
	})).Return(nil).Once()

	w := f.do(http.MethodPost, "/api/v1/stories", ownerToken, storyConfig())
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var sess models.StorySession
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sess))
	require.NotEmpty(t, sess.ID)
	assert.Equal(t, avatarURI, sess.Story.Pages[0].ImageURL)
	return sess.ID
}

func TestCatalog_Public(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(http.MethodGet, "/api/v1/catalog/paper-sizes", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []struct {
			Name        string `json:"name"`
			AspectRatio string `json:"aspectRatio"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, len(models.AllPaperSizes))
	assert.Equal(t, "9:16", resp.Data[3].AspectRatio)

	w = f.do(http.MethodGet, "/api/v1/catalog/themes", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Dragon Rider")
}

func TestSecuredRoutes_RequireToken(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(http.MethodGet, "/api/v1/stories", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(http.MethodGet, "/api/v1/stories", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Authentication failed")
}

func TestAvatar_PhotoRequired(t *testing.T) {
	f := newAPIFixture(t)
	cfg := storyConfig()
	cfg.PhotoBase64 = ""

	w := f.do(http.MethodPost, "/api/v1/avatars", ownerToken, cfg)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	f.ai.AssertNotCalled(t, "GenerateAvatar", mock.Anything, mock.Anything, mock.Anything)
}

func TestAvatar_FallbackFailureIsBadGateway(t *testing.T) {
	f := newAPIFixture(t)
	f.ai.On("GenerateAvatar", mock.Anything, ownerID, mock.Anything).Return(nil, models.ErrAvatarFailed).Once()

	w := f.do(http.MethodPost, "/api/v1/avatars", ownerToken, storyConfig())

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestStories_CreateAndAccess(t *testing.T) {
	f := newAPIFixture(t)
	id := f.createStory(t)

	w := f.do(http.MethodGet, "/api/v1/stories/sessions/"+id, ownerToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodGet, "/api/v1/stories/sessions/"+id, otherToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(http.MethodGet, "/api/v1/stories/sessions/missing", ownerToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	t.Run("invalid config", func(t *testing.T) {
		cfg := storyConfig()
		cfg.ChildName = ""
		w := f.do(http.MethodPost, "/api/v1/stories", ownerToken, cfg)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("cover cannot be regenerated", func(t *testing.T) {
		w := f.do(http.MethodPost, "/api/v1/stories/sessions/"+id+"/pages/0/regenerate", ownerToken, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("bad page id", func(t *testing.T) {
		w := f.do(http.MethodPatch, "/api/v1/stories/sessions/"+id+"/pages/abc", ownerToken, map[string]string{"text": "x"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("edit text", func(t *testing.T) {
		w := f.do(http.MethodPatch, "/api/v1/stories/sessions/"+id+"/pages/1", ownerToken, map[string]string{"text": "Blast off!"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Blast off!")
	})

	t.Run("navigate", func(t *testing.T) {
		w := f.do(http.MethodPost, "/api/v1/stories/sessions/"+id+"/navigate", ownerToken, map[string]string{"direction": "next"})
		require.Equal(t, http.StatusOK, w.Code)
		var view models.ViewState
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
		assert.Equal(t, 1, view.Page)
	})

	t.Run("print requires purchase", func(t *testing.T) {
		w := f.do(http.MethodGet, "/api/v1/stories/sessions/"+id+"/print", ownerToken, nil)
		assert.Equal(t, http.StatusPaymentRequired, w.Code)
	})
}

func TestGallery_DownloadLockedUntilPaid(t *testing.T) {
	f := newAPIFixture(t)
	f.tasks.On("PublishGenerationTask", mock.Anything, mock.Anything).Return(nil).Once()

	cfg := storyConfig()
	cfg.Description = "curly hair"
	w := f.do(http.MethodPost, "/api/v1/gallery", ownerToken, cfg)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var sess models.GallerySession
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sess))
	require.Len(t, sess.Items, 4)

	w = f.do(http.MethodGet, "/api/v1/gallery/"+sess.ID+"/items/0/download", ownerToken, nil)
	assert.Equal(t, http.StatusPaymentRequired, w.Code)

	// Готовый снимок и оплата
	_, err := f.sessions.UpdateGallery(context.Background(), sess.ID, func(g *models.GallerySession) error {
		item, _ := g.Item("0")
		item.URL = avatarURI
		item.IsLoading = false
		return nil
	})
	require.NoError(t, err)
	_, err = f.gallery.Unlock(context.Background(), sess.ID)
	require.NoError(t, err)

	w = f.do(http.MethodGet, "/api/v1/gallery/"+sess.ID+"/items/0/download", ownerToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var ticket struct {
		URL string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ticket))
	require.True(t, strings.HasPrefix(ticket.URL, "/api/v1/downloads/"))

	// Скачивание по тикету не требует заголовка авторизации
	w = f.do(http.MethodGet, ticket.URL, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "kidzy-gallery-wide-angle-scene.png")
	assert.Equal(t, []byte("avatar"), w.Body.Bytes())

	w = f.do(http.MethodGet, "/api/v1/downloads/not-a-ticket", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPayments_NotConfigured(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(http.MethodPost, "/api/v1/payments/orders", ownerToken, map[string]string{"type": "STORY", "itemId": "x"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = f.do(http.MethodPost, "/api/v1/payments/webhook", "", map[string]string{"event": "payment.captured"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestNavigation(t *testing.T) {
	f := newAPIFixture(t)

	tests := []struct {
		name  string
		token string
		body  map[string]string
		code  int
		want  models.AppState
	}{
		{"start story anonymous", "", map[string]string{"state": "LANDING", "event": "START_STORY"}, http.StatusOK, models.AppStateLogin},
		{"start story signed in", ownerToken, map[string]string{"state": "DASHBOARD", "event": "START_STORY"}, http.StatusOK, models.AppStateConfig},
		{"invalid token counts as anonymous", "garbage", map[string]string{"state": "STORY_VIEW", "event": "BACK_TO_DASHBOARD"}, http.StatusOK, models.AppStateLanding},
		{"unknown event", "", map[string]string{"state": "LANDING", "event": "JUMP"}, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(http.MethodPost, "/api/v1/navigation", tt.token, tt.body)
			require.Equal(t, tt.code, w.Code, w.Body.String())
			if tt.code != http.StatusOK {
				return
			}
			var resp struct {
				State models.AppState `json:"state"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.want, resp.State)
		})
	}
}

func TestAuthErrorMessages(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(http.MethodGet, "/api/v1/auth/errors/auth/popup-closed-by-user", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"","ignore":true}`, w.Body.String())

	w = f.do(http.MethodGet, "/api/v1/auth/errors/auth/unauthorized-domain", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "authorized domains")
}

func TestSignup(t *testing.T) {
	f := newAPIFixture(t)

	t.Run("invalid email", func(t *testing.T) {
		w := f.do(http.MethodPost, "/api/v1/auth/signup", "", map[string]string{"email": "nope", "password": "secret1"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "valid email")
	})

	t.Run("email taken", func(t *testing.T) {
		f.identity.On("CreateUser", mock.Anything, "mia@example.com", "secret1", "Mia").
			Return(models.User{}, &auth.ProviderError{Code: auth.CodeEmailAlreadyExists, Err: models.ErrEmailAlreadyExists}).Once()
		w := f.do(http.MethodPost, "/api/v1/auth/signup", "", map[string]string{"name": "Mia", "email": "mia@example.com", "password": "secret1"})
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestWebSocket_DeliversUpdates(t *testing.T) {
	f := newAPIFixture(t)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws?token=" + ownerToken
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	require.Eventually(t, func() bool { return f.updates.Connections(ownerID) == 1 }, time.Second, 10*time.Millisecond)

	pageID := 2
	require.NoError(t, f.updates.PublishClientUpdate(context.Background(), models.ClientUpdate{
		UserID: ownerID, SessionID: "s1", Event: "page_generated", PageID: &pageID,
	}))
	// Чужие события не доставляются
	require.NoError(t, f.updates.PublishClientUpdate(context.Background(), models.ClientUpdate{UserID: otherID, Event: "page_generated"}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got models.ClientUpdate
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "page_generated", got.Event)
	require.NotNil(t, got.PageID)
	assert.Equal(t, 2, *got.PageID)

	_, _, err = websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/v1/ws?token=bad", nil)
	assert.Error(t, err)
}
