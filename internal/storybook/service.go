package storybook

import (
	"context"
	"fmt"
	"time"

	"kidzy-server/internal/ai"
	"kidzy-server/internal/session"
	"kidzy-server/shared/constants"
	"kidzy-server/shared/messaging"
	"kidzy-server/shared/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Library - часть библиотеки, нужная книгам.
type Library interface {
	SaveStory(ctx context.Context, userID string, story models.Story, cfg models.StoryConfig, purchased bool) (*models.SavedStory, error)
	GetStory(ctx context.Context, userID, storyID string) (*models.SavedStory, error)
}

// Config - параметры рабочего процесса.
type Config struct {
	// PageDelay - пауза после каждой успешно сгенерированной страницы.
	PageDelay time.Duration
	// LockTTL - сколько живет блокировка генерации, если процесс упал.
	LockTTL time.Duration
}

// Service управляет книгами в работе: создание, фоновая генерация страниц,
// правка, навигация, цветовой гид, печать и сохранение.
type Service struct {
	ai       ai.Service
	sessions *session.Sessions
	library  Library
	tasks    messaging.TaskPublisher
	notifier messaging.ClientUpdatePublisher
	cfg      Config
	logger   *zap.Logger

	// sleep ждет между страницами; подменяется в тестах.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewService(
	aiService ai.Service,
	sessions *session.Sessions,
	library Library,
	tasks messaging.TaskPublisher,
	notifier messaging.ClientUpdatePublisher,
	cfg Config,
	logger *zap.Logger,
) *Service {
	return &Service{
		ai:       aiService,
		sessions: sessions,
		library:  library,
		tasks:    tasks,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger.Named("StorybookService"),
		sleep:    sleepContext,
	}
}

// SetSleep подменяет ожидание между страницами.
func (s *Service) SetSleep(fn func(ctx context.Context, d time.Duration) error) {
	s.sleep = fn
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) notify(ctx context.Context, update models.ClientUpdate) {
	if err := s.notifier.PublishClientUpdate(ctx, update); err != nil {
		s.logger.Warn("Failed to publish client update", zap.String("event", update.Event), zap.String("sessionID", update.SessionID), zap.Error(err))
	}
}

func (s *Service) dispatch(ctx context.Context, taskType models.TaskType, userID, sessionID string, pageID *int) error {
	payload := models.GenerationTaskPayload{
		TaskID:    uuid.NewString(),
		Type:      taskType,
		UserID:    userID,
		SessionID: sessionID,
		PageID:    pageID,
	}
	if err := s.tasks.PublishGenerationTask(ctx, payload); err != nil {
		return fmt.Errorf("failed to dispatch %s task: %w", taskType, err)
	}
	s.logger.Debug("Task dispatched", zap.String("taskID", payload.TaskID), zap.String("type", string(taskType)), zap.String("sessionID", sessionID))
	return nil
}

// GenerateAvatar создает портрет героя по фото из мастера настройки.
func (s *Service) GenerateAvatar(ctx context.Context, userID string, cfg models.StoryConfig) (*ai.AvatarResult, error) {
	if cfg.PhotoBase64 == "" {
		return nil, models.ErrPhotoRequired
	}
	return s.ai.GenerateAvatar(ctx, userID, cfg)
}

// CreateSession создает сюжет и запускает фоновую генерацию страниц.
// Если аватара еще нет, он генерируется первым: обложка всегда равна аватару.
func (s *Service) CreateSession(ctx context.Context, userID string, cfg models.StoryConfig) (*models.StorySession, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := s.logger.With(zap.String("userID", userID), zap.String("child", cfg.ChildName))

	if cfg.AvatarURL == "" {
		avatar, err := s.GenerateAvatar(ctx, userID, cfg)
		if err != nil {
			return nil, err
		}
		cfg.AvatarURL = avatar.ImageURL
		cfg.Description = avatar.Description
	}
	if cfg.Description == "" {
		cfg.Description = ai.FallbackDescription
	}

	story, err := s.ai.GenerateStoryOutline(ctx, userID, cfg)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	sess := &models.StorySession{
		ID:        uuid.NewString(),
		UserID:    userID,
		Config:    cfg,
		Story:     *story,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.sessions.CreateStory(ctx, sess); err != nil {
		return nil, err
	}
	log.Info("Story session created", zap.String("sessionID", sess.ID), zap.String("title", story.Title))

	if err := s.dispatch(ctx, models.TaskTypeFillPages, userID, sess.ID, nil); err != nil {
		log.Error("Failed to start page generation", zap.Error(err))
		return nil, err
	}
	return sess, nil
}

// Get возвращает сессию владельца.
func (s *Service) Get(ctx context.Context, userID, sessionID string) (*models.StorySession, error) {
	sess, err := s.sessions.GetStory(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.UserID != userID {
		return nil, models.ErrForbidden
	}
	return sess, nil
}

// update применяет fn к сессии владельца.
func (s *Service) update(ctx context.Context, userID, sessionID string, fn func(*models.StorySession) error) (*models.StorySession, error) {
	return s.sessions.UpdateStory(ctx, sessionID, func(sess *models.StorySession) error {
		if sess.UserID != userID {
			return models.ErrForbidden
		}
		return fn(sess)
	})
}

// StartFill повторно запускает генерацию недостающих страниц.
func (s *Service) StartFill(ctx context.Context, userID, sessionID string) (*models.StorySession, error) {
	sess, err := s.Get(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Filling {
		return nil, models.ErrGenerationInProgress
	}
	if len(sess.PendingPages()) == 0 {
		return sess, nil
	}
	if err := s.dispatch(ctx, models.TaskTypeFillPages, userID, sessionID, nil); err != nil {
		return nil, err
	}
	return sess, nil
}

// RegeneratePage сбрасывает картинку страницы и ставит ее перегенерацию.
// Обложку перегенерировать нельзя.
func (s *Service) RegeneratePage(ctx context.Context, userID, sessionID string, pageID int) (*models.StorySession, error) {
	sess, err := s.update(ctx, userID, sessionID, func(sess *models.StorySession) error {
		if sess.Filling {
			return models.ErrGenerationInProgress
		}
		page, ok := sess.Story.Page(pageID)
		if !ok {
			return fmt.Errorf("%w: page %d", models.ErrPageNotFound, pageID)
		}
		if page.IsCover {
			return models.ErrCoverNotEditable
		}
		page.ImageURL = ""
		page.ReferenceImageURL = ""
		page.ImageError = ""
		page.IsLoadingImage = true
		// Гид собран по старой картинке
		sess.ColorGuide = nil
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := s.dispatch(ctx, models.TaskTypeRegeneratePage, userID, sessionID, &pageID); err != nil {
		return nil, err
	}
	return sess, nil
}

// EditPageText меняет текст страницы.
func (s *Service) EditPageText(ctx context.Context, userID, sessionID string, pageID int, text string) (*models.StorySession, error) {
	return s.update(ctx, userID, sessionID, func(sess *models.StorySession) error {
		page, ok := sess.Story.Page(pageID)
		if !ok {
			return fmt.Errorf("%w: page %d", models.ErrPageNotFound, pageID)
		}
		page.Text = text
		return nil
	})
}

// Navigate листает книгу и сохраняет позицию в сессии.
func (s *Service) Navigate(ctx context.Context, userID, sessionID string, dir Direction) (*models.StorySession, error) {
	return s.update(ctx, userID, sessionID, func(sess *models.StorySession) error {
		next, err := Navigate(sess.View, lastPageID(&sess.Story), dir)
		if err != nil {
			return err
		}
		sess.View = next
		return nil
	})
}

// ColorGuide возвращает готовый цветовой гид или запускает его генерацию.
// pending=true означает, что результат придет событием color_guide_ready.
func (s *Service) ColorGuide(ctx context.Context, userID, sessionID string) (guide []string, pending bool, err error) {
	sess, err := s.Get(ctx, userID, sessionID)
	if err != nil {
		return nil, false, err
	}
	if len(sess.ColorGuide) > 0 {
		return sess.ColorGuide, false, nil
	}
	if err := s.dispatch(ctx, models.TaskTypeColorGuide, userID, sessionID, nil); err != nil {
		return nil, false, err
	}
	return nil, true, nil
}

// PrintLayout - данные для печати: обложка, страницы и цветовой гид.
type PrintLayout struct {
	Title             string             `json:"title"`
	PaperSize         models.PaperSize   `json:"paperSize"`
	Cover             models.StoryPage   `json:"cover"`
	Pages             []models.StoryPage `json:"pages"`
	ColorGuide        []string           `json:"colorGuide"`
	ColorGuidePending bool               `json:"colorGuidePending"`
}

// PrintLayout доступен только после покупки книги.
func (s *Service) PrintLayout(ctx context.Context, userID, sessionID string) (*PrintLayout, error) {
	sess, err := s.Get(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.IsPurchased {
		return nil, models.ErrPurchaseRequired
	}

	layout := &PrintLayout{
		Title:      sess.Story.Title,
		PaperSize:  sess.Config.PaperSize,
		ColorGuide: sess.ColorGuide,
	}
	if cover, ok := sess.Story.Cover(); ok {
		layout.Cover = *cover
	}
	for _, p := range sess.Story.NarrativePages() {
		layout.Pages = append(layout.Pages, *p)
	}

	if len(sess.ColorGuide) == 0 {
		if err := s.dispatch(ctx, models.TaskTypeColorGuide, userID, sessionID, nil); err != nil {
			return nil, err
		}
		layout.ColorGuidePending = true
	}
	return layout, nil
}

// SaveToLibrary сохраняет текущее состояние книги в библиотеку.
func (s *Service) SaveToLibrary(ctx context.Context, userID, sessionID string) (*models.SavedStory, error) {
	sess, err := s.Get(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	return s.save(ctx, sess)
}

func (s *Service) save(ctx context.Context, sess *models.StorySession) (*models.SavedStory, error) {
	saved, err := s.library.SaveStory(ctx, sess.UserID, sess.Story, sess.Config, sess.IsPurchased)
	if err != nil {
		return nil, err
	}
	if _, err := s.sessions.UpdateStory(ctx, sess.ID, func(cur *models.StorySession) error {
		cur.SavedStoryID = saved.ID
		return nil
	}); err != nil {
		s.logger.Warn("Failed to link session to saved story", zap.String("sessionID", sess.ID), zap.Error(err))
	}
	return saved, nil
}

// OpenSaved открывает книгу из библиотеки в новой сессии. Страницы без картинок
// догенерируются; готовые страницы повторно не запрашиваются.
func (s *Service) OpenSaved(ctx context.Context, userID, storyID string) (*models.StorySession, error) {
	saved, err := s.library.GetStory(ctx, userID, storyID)
	if err != nil {
		return nil, err
	}

	story := saved.StoryData
	pending := 0
	for i := range story.Pages {
		p := &story.Pages[i]
		p.IsLoadingImage = !p.IsCover && !p.HasImage()
		if p.IsLoadingImage {
			pending++
		}
	}
	cfg := saved.Config
	if cfg.PaperSize == "" {
		cfg.PaperSize = saved.PaperSize
	}

	now := time.Now().UTC()
	sess := &models.StorySession{
		ID:           uuid.NewString(),
		UserID:       userID,
		Config:       cfg,
		Story:        story,
		IsPurchased:  saved.IsPurchased,
		SavedStoryID: saved.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.sessions.CreateStory(ctx, sess); err != nil {
		return nil, err
	}
	if pending > 0 {
		if err := s.dispatch(ctx, models.TaskTypeFillPages, userID, sess.ID, nil); err != nil {
			return nil, err
		}
	}
	s.logger.Info("Saved story opened", zap.String("storyID", storyID), zap.String("sessionID", sess.ID), zap.Int("pendingPages", pending))
	return sess, nil
}

// MarkPurchased отмечает книгу купленной и сохраняет ее в библиотеку с флагом покупки.
// Повторный вызов для уже купленной книги ничего не делает.
func (s *Service) MarkPurchased(ctx context.Context, sessionID string) (*models.StorySession, error) {
	changed := false
	sess, err := s.sessions.UpdateStory(ctx, sessionID, func(sess *models.StorySession) error {
		changed = !sess.IsPurchased
		sess.IsPurchased = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return sess, nil
	}

	if _, err := s.save(ctx, sess); err != nil {
		// Покупка уже зафиксирована; сохранить можно вручную
		s.logger.Error("Auto-save after purchase failed", zap.String("sessionID", sessionID), zap.Error(err))
	}
	s.notify(ctx, models.ClientUpdate{UserID: sess.UserID, SessionID: sess.ID, Event: constants.WSEventPurchaseCompleted})
	return sess, nil
}
