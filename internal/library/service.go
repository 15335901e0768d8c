package library

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"kidzy-server/internal/ai"
	"kidzy-server/internal/blob"
	"kidzy-server/shared/interfaces"
	"kidzy-server/shared/models"

	"go.uber.org/zap"
)

// MaxDocumentBytes - предел размера записи книги: 1 MiB документа Firestore минус запас на служебные поля.
const MaxDocumentBytes = 1<<20 - 16<<10

// Service сохраняет книги и фотографии пользователя. Перед записью все встроенные
// изображения выгружаются в хранилище и заменяются ссылками.
type Service struct {
	stories interfaces.StoryRepository
	photos  interfaces.PhotoRepository
	blobs   interfaces.BlobStore
	logger  *zap.Logger
	now     func() time.Time
}

func NewService(stories interfaces.StoryRepository, photos interfaces.PhotoRepository, blobs interfaces.BlobStore, logger *zap.Logger) *Service {
	return &Service{
		stories: stories,
		photos:  photos,
		blobs:   blobs,
		logger:  logger.Named("LibraryService"),
		now:     time.Now,
	}
}

// uploader выгружает data URL и запоминает результат, чтобы одинаковые
// изображения (аватар на обложке и в конфиге) не грузились дважды.
type uploader struct {
	s      *Service
	userID string
	kind   blob.Kind
	cache  map[string]string
}

func (u *uploader) resolve(ctx context.Context, value string) (string, error) {
	if !ai.IsDataURL(value) {
		return value, nil
	}
	if url, ok := u.cache[value]; ok {
		return url, nil
	}
	img, err := ai.ParseDataURL(value)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}
	path, err := blob.ObjectPath(u.userID, u.kind, img.Extension(), u.s.now())
	if err != nil {
		return "", err
	}
	url, err := u.s.blobs.Upload(ctx, path, img.Data, img.MIMEType)
	if err != nil {
		return "", err
	}
	u.cache[value] = url
	return url, nil
}

// SaveStory сохраняет книгу в библиотеку. Фото, аватар и картинки страниц выгружаются в хранилище;
// обложкой записи становится картинка первой страницы.
func (s *Service) SaveStory(ctx context.Context, userID string, story models.Story, cfg models.StoryConfig, purchased bool) (*models.SavedStory, error) {
	log := s.logger.With(zap.String("userID", userID), zap.String("title", story.Title))
	up := &uploader{s: s, userID: userID, kind: blob.KindStories, cache: map[string]string{}}

	var err error
	if cfg.PhotoBase64, err = up.resolve(ctx, cfg.PhotoBase64); err != nil {
		log.Error("Failed to upload source photo", zap.Error(err))
		return nil, err
	}
	if cfg.AvatarURL, err = up.resolve(ctx, cfg.AvatarURL); err != nil {
		log.Error("Failed to upload avatar", zap.Error(err))
		return nil, err
	}

	pages := make([]models.StoryPage, len(story.Pages))
	for i, page := range story.Pages {
		if page.ImageURL, err = up.resolve(ctx, page.ImageURL); err != nil {
			log.Error("Failed to upload page image", zap.Int("pageID", page.ID), zap.Error(err))
			return nil, err
		}
		if page.ReferenceImageURL, err = up.resolve(ctx, page.ReferenceImageURL); err != nil {
			return nil, err
		}
		// Состояние загрузки к сохраненной книге не относится
		page.IsLoadingImage = false
		pages[i] = page
	}
	story.Pages = pages

	coverURL := ""
	if len(pages) > 0 {
		coverURL = pages[0].ImageURL
	}

	saved := &models.SavedStory{
		UserID:      userID,
		Title:       story.Title,
		CoverURL:    coverURL,
		CreatedAt:   s.now().UTC(),
		StoryData:   story,
		PaperSize:   cfg.PaperSize,
		Config:      cfg,
		IsPurchased: purchased,
	}

	if size, err := documentSize(saved); err != nil {
		return nil, err
	} else if size > MaxDocumentBytes {
		log.Warn("Story document exceeds size limit", zap.Int("bytes", size))
		return nil, fmt.Errorf("%w: %d bytes", models.ErrDocumentTooLarge, size)
	}

	if _, err := s.stories.Create(ctx, saved); err != nil {
		return nil, err
	}
	log.Info("Story saved to library", zap.String("storyID", saved.ID), zap.Bool("purchased", purchased), zap.Int("uploads", len(up.cache)))
	return saved, nil
}

func documentSize(story *models.SavedStory) (int, error) {
	b, err := json.Marshal(story)
	if err != nil {
		return 0, fmt.Errorf("failed to encode story: %w", err)
	}
	return len(b), nil
}

// GetStory возвращает книгу пользователя. Чужая книга - ErrForbidden.
func (s *Service) GetStory(ctx context.Context, userID, storyID string) (*models.SavedStory, error) {
	story, err := s.stories.GetByID(ctx, storyID)
	if err != nil {
		return nil, err
	}
	if story.UserID != userID {
		s.logger.Warn("Attempt to open another user's story", zap.String("userID", userID), zap.String("storyID", storyID))
		return nil, models.ErrForbidden
	}
	return story, nil
}

func (s *Service) ListStories(ctx context.Context, userID string) ([]models.SavedStory, error) {
	return s.stories.ListByUser(ctx, userID)
}

// SavePhoto выгружает снимок фотосессии и записывает его в библиотеку.
func (s *Service) SavePhoto(ctx context.Context, userID, imageURL, prompt, theme string) (*models.SavedPhoto, error) {
	up := &uploader{s: s, userID: userID, kind: blob.KindPhotos, cache: map[string]string{}}
	url, err := up.resolve(ctx, imageURL)
	if err != nil {
		s.logger.Error("Failed to upload photo", zap.String("userID", userID), zap.Error(err))
		return nil, err
	}

	photo := &models.SavedPhoto{
		UserID:    userID,
		URL:       url,
		Prompt:    prompt,
		Theme:     theme,
		CreatedAt: s.now().UTC(),
	}
	if _, err := s.photos.Create(ctx, photo); err != nil {
		return nil, err
	}
	return photo, nil
}

func (s *Service) ListPhotos(ctx context.Context, userID string) ([]models.SavedPhoto, error) {
	return s.photos.ListByUser(ctx, userID)
}
