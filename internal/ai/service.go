package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"kidzy-server/shared/models"
	"kidzy-server/shared/utils"

	"go.uber.org/zap"
)

// StoryPageCount - число повествовательных страниц в сюжете.
const StoryPageCount = 5

// AvatarResult - портрет персонажа и описание внешности, полученное при анализе фото.
type AvatarResult struct {
	ImageURL    string `json:"imageUrl"`
	Description string `json:"description"`
}

// PageImageRequest - параметры генерации раскраски для страницы.
type PageImageRequest struct {
	Scene        string
	PaperSize    models.PaperSize
	Character    string
	ReferenceURL string
}

// PageImages - результат генерации страницы. ColoredReference сейчас всегда пустой.
type PageImages struct {
	LineArt          string
	ColoredReference string
}

// Service определяет операции генерации для книги и фотосессии.
// Все изображения возвращаются как data URL.
type Service interface {
	// AnalyzeFeatures описывает внешность ребенка на фото. Не возвращает ошибок:
	// при неудаче отдает FallbackDescription.
	AnalyzeFeatures(ctx context.Context, userID string, photo *InlineImage) string
	GenerateAvatar(ctx context.Context, userID string, cfg models.StoryConfig) (*AvatarResult, error)
	GenerateStoryOutline(ctx context.Context, userID string, cfg models.StoryConfig) (*models.Story, error)
	GeneratePageImage(ctx context.Context, userID string, req PageImageRequest) (*PageImages, error)
	GenerateColorizedImage(ctx context.Context, userID, lineArtURL, avatarURL, description string) (string, error)
	GenerateImageVariation(ctx context.Context, userID string, cfg models.StoryConfig, promptSuffix string) (string, error)
}

type aiService struct {
	text    TextModel
	image   ImageModel
	fetcher ImageFetcher
	logger  *zap.Logger
}

// NewService создает сервис генерации.
func NewService(text TextModel, image ImageModel, fetcher ImageFetcher, logger *zap.Logger) Service {
	return &aiService{
		text:    text,
		image:   image,
		fetcher: fetcher,
		logger:  logger.Named("AIService"),
	}
}

func (s *aiService) AnalyzeFeatures(ctx context.Context, userID string, photo *InlineImage) string {
	text, _, err := s.text.GenerateText(ctx, userID, TextRequest{Prompt: analyzePrompt, Image: photo})
	if err != nil {
		s.logger.Warn("Photo analysis failed, using fallback description", zap.String("userID", userID), zap.Error(err))
		return FallbackDescription
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return FallbackDescription
	}
	return text
}

// loadPhoto разбирает фото из конфигурации: data URL или URL в хранилище (для сохраненных историй).
func (s *aiService) loadPhoto(ctx context.Context, cfg models.StoryConfig) (*InlineImage, error) {
	if cfg.PhotoBase64 == "" {
		return nil, models.ErrPhotoRequired
	}
	photo, err := s.fetcher.Fetch(ctx, cfg.PhotoBase64)
	if err != nil {
		if errors.Is(err, ErrInvalidImageData) {
			return nil, fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
		}
		return nil, err
	}
	return photo, nil
}

func (s *aiService) GenerateAvatar(ctx context.Context, userID string, cfg models.StoryConfig) (*AvatarResult, error) {
	log := s.logger.With(zap.String("userID", userID), zap.String("theme", cfg.Theme))

	photo, err := s.loadPhoto(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// Описание нужно и для основного запроса, и для запасного
	description := s.AnalyzeFeatures(ctx, userID, photo)

	img, err := s.image.GenerateImage(ctx, userID, ImageRequest{
		Prompt:      avatarPrompt(cfg, description),
		References:  []*InlineImage{photo},
		AspectRatio: "1:1",
		Relaxed:     true,
	})
	if err == nil {
		log.Info("Avatar generated from photo")
		return &AvatarResult{ImageURL: img.DataURL(), Description: description}, nil
	}

	log.Warn("Image-conditioned avatar failed, switching to text-only fallback", zap.Error(err))
	aiFallbacksTotal.WithLabelValues("avatar").Inc()

	img, err = s.image.GenerateImage(ctx, userID, ImageRequest{
		Prompt:      avatarFallbackPrompt(cfg, description),
		AspectRatio: "1:1",
		Relaxed:     true,
	})
	if err != nil {
		log.Error("Avatar fallback failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", models.ErrAvatarFailed, err)
	}
	log.Info("Avatar generated by fallback")
	return &AvatarResult{ImageURL: img.DataURL(), Description: description}, nil
}

type outlineResponse struct {
	Title string `json:"title"`
	Pages []struct {
		ID               int    `json:"id"`
		Text             string `json:"text"`
		SceneDescription string `json:"sceneDescription"`
	} `json:"pages"`
}

func (s *aiService) GenerateStoryOutline(ctx context.Context, userID string, cfg models.StoryConfig) (*models.Story, error) {
	log := s.logger.With(zap.String("userID", userID), zap.String("child", cfg.ChildName))

	raw, _, err := s.text.GenerateText(ctx, userID, TextRequest{Prompt: outlinePrompt(cfg), Schema: outlineSchema})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrOutlineFailed, err)
	}

	jsonText := utils.ExtractJSONContent(raw)
	if jsonText == "" {
		log.Error("Outline response contains no JSON", zap.String("response", utils.StringShort(raw, 200)))
		return nil, fmt.Errorf("%w: response is not JSON", models.ErrOutlineFailed)
	}
	var outline outlineResponse
	if err := json.Unmarshal([]byte(jsonText), &outline); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrOutlineFailed, err)
	}
	if outline.Title == "" || len(outline.Pages) == 0 {
		return nil, fmt.Errorf("%w: empty title or pages", models.ErrOutlineFailed)
	}

	story := &models.Story{
		Title: outline.Title,
		Pages: make([]models.StoryPage, 0, len(outline.Pages)+1),
	}
	// Обложка - готовый аватар, новая картинка для нее не генерируется
	story.Pages = append(story.Pages, models.StoryPage{
		ID:             0,
		Text:           outline.Title,
		ImagePrompt:    coverPrompt(outline.Title, cfg),
		ImageURL:       cfg.AvatarURL,
		IsLoadingImage: false,
		IsCover:        true,
	})
	for i, p := range outline.Pages {
		story.Pages = append(story.Pages, models.StoryPage{
			ID:             i + 1,
			Text:           p.Text,
			ImagePrompt:    p.SceneDescription,
			IsLoadingImage: true,
		})
	}

	log.Info("Story outline generated", zap.String("title", outline.Title), zap.Int("pages", len(outline.Pages)))
	return story, nil
}

func (s *aiService) GeneratePageImage(ctx context.Context, userID string, req PageImageRequest) (*PageImages, error) {
	var refs []*InlineImage
	if req.ReferenceURL != "" {
		ref, err := s.fetcher.Fetch(ctx, req.ReferenceURL)
		if err != nil {
			return nil, fmt.Errorf("%w: reference image: %v", models.ErrPageGenerationFailed, err)
		}
		refs = append(refs, ref)
	}

	img, err := s.image.GenerateImage(ctx, userID, ImageRequest{
		Prompt:      lineArtPrompt(req.Scene, req.Character),
		References:  refs,
		AspectRatio: req.PaperSize.AspectRatio(),
		Relaxed:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrPageGenerationFailed, err)
	}
	return &PageImages{LineArt: img.DataURL()}, nil
}

func (s *aiService) GenerateColorizedImage(ctx context.Context, userID, lineArtURL, avatarURL, description string) (string, error) {
	lineArt, err := s.fetcher.Fetch(ctx, lineArtURL)
	if err != nil {
		return "", fmt.Errorf("%w: line art: %v", models.ErrColorGuideFailed, err)
	}
	refs := []*InlineImage{lineArt}
	if avatarURL != "" {
		avatar, err := s.fetcher.Fetch(ctx, avatarURL)
		if err != nil {
			return "", fmt.Errorf("%w: avatar: %v", models.ErrColorGuideFailed, err)
		}
		refs = append(refs, avatar)
	}

	img, err := s.image.GenerateImage(ctx, userID, ImageRequest{
		Prompt:      colorizePrompt + "\nScene context: " + description,
		References:  refs,
		AspectRatio: "1:1",
		Relaxed:     true,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrColorGuideFailed, err)
	}
	return img.DataURL(), nil
}

func (s *aiService) GenerateImageVariation(ctx context.Context, userID string, cfg models.StoryConfig, promptSuffix string) (string, error) {
	log := s.logger.With(zap.String("userID", userID), zap.String("shot", promptSuffix))

	photo, err := s.loadPhoto(ctx, cfg)
	if err != nil {
		return "", err
	}
	prompt := variationPrompt(cfg, promptSuffix)

	img, err := s.image.GenerateImage(ctx, userID, ImageRequest{
		Prompt:      prompt,
		References:  []*InlineImage{photo},
		AspectRatio: "1:1",
	})
	if err == nil {
		return img.DataURL(), nil
	}

	log.Warn("Variation with photo failed, trying text-only fallback", zap.Error(err))
	aiFallbacksTotal.WithLabelValues("variation").Inc()

	img, err = s.image.GenerateImage(ctx, userID, ImageRequest{Prompt: prompt, AspectRatio: "1:1"})
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrVariationFailed, err)
	}
	return img.DataURL(), nil
}
