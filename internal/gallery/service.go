package gallery

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"kidzy-server/internal/ai"
	"kidzy-server/shared/constants"
	"kidzy-server/shared/messaging"
	"kidzy-server/shared/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PhotoSaver сохраняет готовые снимки в библиотеку пользователя.
type PhotoSaver interface {
	SavePhoto(ctx context.Context, userID, imageURL, prompt, theme string) (*models.SavedPhoto, error)
}

// Sessions - хранилище фотосессий.
type Sessions interface {
	CreateGallery(ctx context.Context, sess *models.GallerySession) error
	GetGallery(ctx context.Context, id string) (*models.GallerySession, error)
	UpdateGallery(ctx context.Context, id string, fn func(*models.GallerySession) error) (*models.GallerySession, error)
}

// Service - фотосессия по фиксированным сценариям и доступ к скачиванию после оплаты.
type Service struct {
	ai       ai.Service
	sessions Sessions
	photos   PhotoSaver
	tasks    messaging.TaskPublisher
	notifier messaging.ClientUpdatePublisher
	tickets  *Tickets
	logger   *zap.Logger
}

func NewService(
	aiService ai.Service,
	sessions Sessions,
	photos PhotoSaver,
	tasks messaging.TaskPublisher,
	notifier messaging.ClientUpdatePublisher,
	tickets *Tickets,
	logger *zap.Logger,
) *Service {
	return &Service{
		ai:       aiService,
		sessions: sessions,
		photos:   photos,
		tasks:    tasks,
		notifier: notifier,
		tickets:  tickets,
		logger:   logger.Named("GalleryService"),
	}
}

func (s *Service) notify(ctx context.Context, update models.ClientUpdate) {
	if err := s.notifier.PublishClientUpdate(ctx, update); err != nil {
		s.logger.Warn("Failed to publish client update", zap.String("event", update.Event), zap.Error(err))
	}
}

func (s *Service) dispatch(ctx context.Context, payload models.GenerationTaskPayload) error {
	payload.TaskID = uuid.NewString()
	if err := s.tasks.PublishGenerationTask(ctx, payload); err != nil {
		return fmt.Errorf("failed to dispatch %s task: %w", payload.Type, err)
	}
	return nil
}

// Start создает фотосессию из четырех сценариев и ставит ее генерацию в очередь.
func (s *Service) Start(ctx context.Context, userID string, cfg models.StoryConfig) (*models.GallerySession, error) {
	if cfg.PhotoBase64 == "" {
		return nil, models.ErrPhotoRequired
	}
	if cfg.Theme == "" {
		return nil, fmt.Errorf("%w: theme is required", models.ErrInvalidInput)
	}
	if cfg.Description == "" {
		cfg.Description = ai.FallbackDescription
	}

	sess := &models.GallerySession{
		ID:         uuid.NewString(),
		UserID:     userID,
		Config:     cfg,
		Items:      make([]models.GalleryItem, 0, len(models.GalleryScenarios)),
		Generating: true,
		CreatedAt:  time.Now().UTC(),
	}
	for i, sc := range models.GalleryScenarios {
		sess.Items = append(sess.Items, models.GalleryItem{
			ID:        strconv.Itoa(i),
			Prompt:    sc.Prompt,
			Label:     sc.Label,
			IsLoading: true,
		})
	}
	if err := s.sessions.CreateGallery(ctx, sess); err != nil {
		return nil, err
	}
	if err := s.dispatch(ctx, models.GenerationTaskPayload{Type: models.TaskTypeGallery, UserID: userID, SessionID: sess.ID}); err != nil {
		return nil, err
	}
	s.logger.Info("Photoshoot started", zap.String("userID", userID), zap.String("sessionID", sess.ID), zap.String("theme", cfg.Theme))
	return sess, nil
}

// Get возвращает фотосессию владельца.
func (s *Service) Get(ctx context.Context, userID, sessionID string) (*models.GallerySession, error) {
	sess, err := s.sessions.GetGallery(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.UserID != userID {
		return nil, models.ErrForbidden
	}
	return sess, nil
}

// Retry повторяет генерацию одного снимка.
func (s *Service) Retry(ctx context.Context, userID, sessionID, itemID string) (*models.GallerySession, error) {
	sess, err := s.sessions.UpdateGallery(ctx, sessionID, func(sess *models.GallerySession) error {
		if sess.UserID != userID {
			return models.ErrForbidden
		}
		item, ok := sess.Item(itemID)
		if !ok {
			return fmt.Errorf("%w: gallery item %s", models.ErrNotFound, itemID)
		}
		if item.IsLoading {
			return models.ErrGenerationInProgress
		}
		item.IsLoading = true
		item.Error = ""
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := s.dispatch(ctx, models.GenerationTaskPayload{Type: models.TaskTypeGalleryRetry, UserID: userID, SessionID: sessionID, ItemID: itemID}); err != nil {
		return nil, err
	}
	return sess, nil
}

// Unlock открывает скачивание снимков после оплаты. Повторный вызов ничего не меняет.
func (s *Service) Unlock(ctx context.Context, sessionID string) (*models.GallerySession, error) {
	changed := false
	sess, err := s.sessions.UpdateGallery(ctx, sessionID, func(sess *models.GallerySession) error {
		changed = !sess.Unlocked
		sess.Unlocked = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.logger.Info("Gallery unlocked", zap.String("sessionID", sessionID))
		s.notify(ctx, models.ClientUpdate{UserID: sess.UserID, SessionID: sessionID, Event: constants.WSEventGalleryUnlocked})
	}
	return sess, nil
}

// DownloadTicket выдает подписанную ссылку на скачивание снимка. Требует оплаты.
func (s *Service) DownloadTicket(ctx context.Context, userID, sessionID, itemID string) (string, time.Time, error) {
	sess, err := s.Get(ctx, userID, sessionID)
	if err != nil {
		return "", time.Time{}, err
	}
	if !sess.Unlocked {
		return "", time.Time{}, models.ErrLocked
	}
	item, ok := sess.Item(itemID)
	if !ok {
		return "", time.Time{}, fmt.Errorf("%w: gallery item %s", models.ErrNotFound, itemID)
	}
	if item.URL == "" {
		return "", time.Time{}, fmt.Errorf("%w: gallery item %s has no image", models.ErrBadRequest, itemID)
	}
	return s.tickets.Issue(userID, sessionID, itemID)
}

// Download - содержимое для скачивания: либо встроенное изображение, либо ссылка в хранилище.
type Download struct {
	FileName    string
	Image       *ai.InlineImage
	RedirectURL string
}

// Download проверяет тикет и возвращает снимок.
func (s *Service) Download(ctx context.Context, ticket string) (*Download, error) {
	claims, err := s.tickets.Verify(ticket)
	if err != nil {
		return nil, err
	}
	sess, err := s.sessions.GetGallery(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}
	if sess.UserID != claims.UserID {
		return nil, models.ErrForbidden
	}
	if !sess.Unlocked {
		return nil, models.ErrLocked
	}
	item, ok := sess.Item(claims.ItemID)
	if !ok || item.URL == "" {
		return nil, fmt.Errorf("%w: gallery item %s", models.ErrNotFound, claims.ItemID)
	}

	name := downloadName(item.Label)
	if !ai.IsDataURL(item.URL) {
		return &Download{FileName: name, RedirectURL: item.URL}, nil
	}
	img, err := ai.ParseDataURL(item.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInternalServer, err)
	}
	return &Download{FileName: name, Image: img}, nil
}

// downloadName - имя файла снимка: kidzy-gallery-<метка-через-дефис>.png.
func downloadName(label string) string {
	return "kidzy-gallery-" + strings.ToLower(strings.Join(strings.Fields(label), "-")) + ".png"
}
