package storybook

import (
	"context"
	"errors"
	"fmt"

	"kidzy-server/internal/ai"
	"kidzy-server/shared/constants"
	"kidzy-server/shared/models"

	"go.uber.org/zap"
)

// FillPages последовательно генерирует картинки для страниц без изображения.
// Ошибка одной страницы не останавливает остальные: страница получает imageError.
// После каждой успешной страницы выдерживается PageDelay.
func (s *Service) FillPages(ctx context.Context, sessionID string) error {
	log := s.logger.With(zap.String("sessionID", sessionID))

	unlock, err := s.sessions.LockGeneration(ctx, sessionID, s.cfg.LockTTL)
	if err != nil {
		return err
	}
	defer s.release(unlock, sessionID)

	sess, err := s.sessions.UpdateStory(ctx, sessionID, func(sess *models.StorySession) error {
		sess.Filling = true
		for _, p := range sess.Story.NarrativePages() {
			if !p.HasImage() {
				p.IsLoadingImage = true
				p.ImageError = ""
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	defer s.finishFilling(sessionID)

	pending := sess.PendingPages()
	log.Info("Filling story pages", zap.Ints("pages", pending))

	generated, failed := 0, 0
	for _, pageID := range pending {
		if err := ctx.Err(); err != nil {
			log.Warn("Page fill interrupted", zap.Error(err))
			return err
		}
		ok, err := s.generatePage(ctx, sess, pageID)
		if err != nil {
			return err
		}
		if !ok {
			failed++
			continue
		}
		generated++
		if err := s.sleep(ctx, s.cfg.PageDelay); err != nil {
			return err
		}
	}

	s.notify(ctx, models.ClientUpdate{
		UserID:    sess.UserID,
		SessionID: sessionID,
		Event:     constants.WSEventFillCompleted,
		Payload:   map[string]int{"generated": generated, "failed": failed},
	})
	log.Info("Story pages filled", zap.Int("generated", generated), zap.Int("failed", failed))
	return nil
}

// RegeneratePageTask генерирует одну страницу заново.
func (s *Service) RegeneratePageTask(ctx context.Context, sessionID string, pageID int) error {
	unlock, err := s.sessions.LockGeneration(ctx, sessionID, s.cfg.LockTTL)
	if err != nil {
		return err
	}
	defer s.release(unlock, sessionID)

	sess, err := s.sessions.GetStory(ctx, sessionID)
	if err != nil {
		return err
	}
	if _, err := s.generatePage(ctx, sess, pageID); err != nil {
		s.abortPage(sessionID, pageID, err)
		return err
	}
	return nil
}

// generatePage генерирует картинку страницы и записывает результат в сессию.
// false без ошибки означает, что генерация не удалась и это отражено на странице.
func (s *Service) generatePage(ctx context.Context, sess *models.StorySession, pageID int) (bool, error) {
	log := s.logger.With(zap.String("sessionID", sess.ID), zap.Int("pageID", pageID))

	page, ok := sess.Story.Page(pageID)
	if !ok {
		return false, fmt.Errorf("%w: page %d", models.ErrPageNotFound, pageID)
	}
	id := pageID
	s.notify(ctx, models.ClientUpdate{UserID: sess.UserID, SessionID: sess.ID, Event: constants.WSEventPageLoading, PageID: &id})

	reference := sess.Config.AvatarURL
	if cover, ok := sess.Story.Cover(); ok && cover.HasImage() {
		reference = cover.ImageURL
	}
	character := sess.Config.Description
	if character == "" {
		character = ai.FallbackDescription
	}

	images, genErr := s.ai.GeneratePageImage(ctx, sess.UserID, ai.PageImageRequest{
		Scene:        page.ImagePrompt,
		PaperSize:    sess.Config.PaperSize,
		Character:    character,
		ReferenceURL: reference,
	})
	if genErr != nil && ctx.Err() != nil {
		return false, ctx.Err()
	}

	_, err := s.sessions.UpdateStory(ctx, sess.ID, func(cur *models.StorySession) error {
		p, ok := cur.Story.Page(pageID)
		if !ok {
			return fmt.Errorf("%w: page %d", models.ErrPageNotFound, pageID)
		}
		p.IsLoadingImage = false
		if genErr != nil {
			p.ImageError = genErr.Error()
			return nil
		}
		p.ImageURL = images.LineArt
		p.ReferenceImageURL = images.ColoredReference
		p.ImageError = ""
		cur.ColorGuide = nil
		return nil
	})
	if err != nil {
		return false, err
	}

	if genErr != nil {
		log.Error("Page generation failed", zap.Error(genErr))
		pagesGeneratedTotal.WithLabelValues(statusFailed).Inc()
		s.notify(ctx, models.ClientUpdate{UserID: sess.UserID, SessionID: sess.ID, Event: constants.WSEventPageError, PageID: &id, Error: genErr.Error()})
		return false, nil
	}

	log.Info("Page generated")
	pagesGeneratedTotal.WithLabelValues(statusSuccess).Inc()
	s.notify(ctx, models.ClientUpdate{UserID: sess.UserID, SessionID: sess.ID, Event: constants.WSEventPageGenerated, PageID: &id, ImageURL: images.LineArt})
	return true, nil
}

// GenerateColorGuide раскрашивает аватар и все готовые страницы.
// Любая ошибка отменяет гид целиком: частичный результат не кэшируется.
func (s *Service) GenerateColorGuide(ctx context.Context, sessionID string) error {
	sess, err := s.sessions.GetStory(ctx, sessionID)
	if err != nil {
		return err
	}
	if len(sess.ColorGuide) > 0 {
		s.notify(ctx, models.ClientUpdate{UserID: sess.UserID, SessionID: sessionID, Event: constants.WSEventColorGuideReady, Payload: sess.ColorGuide})
		return nil
	}
	log := s.logger.With(zap.String("sessionID", sessionID))

	guide, err := s.colorize(ctx, sess)
	if err != nil {
		log.Error("Color guide generation failed", zap.Error(err))
		s.notify(ctx, models.ClientUpdate{UserID: sess.UserID, SessionID: sessionID, Event: constants.WSEventColorGuideError, Error: err.Error()})
		if errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}

	if _, err := s.sessions.UpdateStory(ctx, sessionID, func(cur *models.StorySession) error {
		cur.ColorGuide = guide
		return nil
	}); err != nil {
		return err
	}
	log.Info("Color guide generated", zap.Int("images", len(guide)))
	s.notify(ctx, models.ClientUpdate{UserID: sess.UserID, SessionID: sessionID, Event: constants.WSEventColorGuideReady, Payload: guide})
	return nil
}

func (s *Service) colorize(ctx context.Context, sess *models.StorySession) ([]string, error) {
	var guide []string
	if sess.Config.AvatarURL != "" {
		guide = append(guide, sess.Config.AvatarURL)
	}
	for _, p := range sess.Story.NarrativePages() {
		if !p.HasImage() {
			continue
		}
		colored, err := s.ai.GenerateColorizedImage(ctx, sess.UserID, p.ImageURL, sess.Config.AvatarURL, p.ImagePrompt)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", p.ID, err)
		}
		guide = append(guide, colored)
	}
	if len(guide) == 0 {
		return nil, fmt.Errorf("%w: no images to colorize", models.ErrColorGuideFailed)
	}
	return guide, nil
}

func (s *Service) finishFilling(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	if _, err := s.sessions.UpdateStory(ctx, sessionID, func(sess *models.StorySession) error {
		sess.Filling = false
		for _, p := range sess.Story.NarrativePages() {
			p.IsLoadingImage = false
		}
		return nil
	}); err != nil {
		s.logger.Warn("Failed to reset filling flag", zap.String("sessionID", sessionID), zap.Error(err))
	}
}

// abortPage снимает загрузку со страницы, генерация которой не дошла до записи результата.
func (s *Service) abortPage(sessionID string, pageID int, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	if _, err := s.sessions.UpdateStory(ctx, sessionID, func(sess *models.StorySession) error {
		p, ok := sess.Story.Page(pageID)
		if !ok || p.HasImage() {
			return nil
		}
		p.IsLoadingImage = false
		if p.ImageError == "" {
			p.ImageError = cause.Error()
		}
		return nil
	}); err != nil {
		s.logger.Warn("Failed to reset page loading flag", zap.String("sessionID", sessionID), zap.Int("pageID", pageID), zap.Error(err))
	}
}

func (s *Service) release(unlock func(context.Context) error, sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	if err := unlock(ctx); err != nil {
		s.logger.Warn("Failed to release generation lock", zap.String("sessionID", sessionID), zap.Error(err))
	}
}
