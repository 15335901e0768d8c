package gallery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kidzy-server/shared/constants"
	"kidzy-server/shared/models"

	"go.uber.org/zap"
)

const cleanupTimeout = 5 * time.Second

// errInterrupted - текст ошибки снимка, генерация которого была прервана.
var errInterrupted = errors.New("generation was interrupted")

// Generate последовательно создает все снимки фотосессии, которые еще не готовы.
// Каждый удачный снимок сразу сохраняется в библиотеку.
func (s *Service) Generate(ctx context.Context, sessionID string) error {
	sess, err := s.sessions.GetGallery(ctx, sessionID)
	if err != nil {
		return err
	}
	log := s.logger.With(zap.String("sessionID", sessionID), zap.String("userID", sess.UserID))

	unfinished := make(map[string]struct{})
	for _, item := range sess.Items {
		if item.URL == "" {
			unfinished[item.ID] = struct{}{}
		}
	}
	completed := false
	defer func() {
		if !completed {
			s.resetUnfinished(sessionID, unfinished, true)
		}
	}()

	ready, failed := 0, 0
	for _, item := range sess.Items {
		if item.URL != "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			log.Warn("Photoshoot interrupted", zap.Error(err))
			return err
		}
		ok, err := s.generateItem(ctx, sess, item.ID)
		if err != nil {
			return err
		}
		delete(unfinished, item.ID)
		if ok {
			ready++
		} else {
			failed++
		}
	}

	if _, err := s.sessions.UpdateGallery(ctx, sessionID, func(cur *models.GallerySession) error {
		cur.Generating = false
		return nil
	}); err != nil {
		return err
	}
	completed = true
	log.Info("Photoshoot completed", zap.Int("ready", ready), zap.Int("failed", failed))
	s.notify(ctx, models.ClientUpdate{
		UserID:    sess.UserID,
		SessionID: sessionID,
		Event:     constants.WSEventGalleryCompleted,
		Payload:   map[string]int{"ready": ready, "failed": failed},
	})
	return nil
}

// RetryItem генерирует один снимок заново.
func (s *Service) RetryItem(ctx context.Context, sessionID, itemID string) error {
	sess, err := s.sessions.GetGallery(ctx, sessionID)
	if err != nil {
		return err
	}
	if _, err := s.generateItem(ctx, sess, itemID); err != nil {
		s.resetUnfinished(sessionID, map[string]struct{}{itemID: {}}, false)
		return err
	}
	return nil
}

// resetUnfinished снимает флаги загрузки с прерванных снимков, чтобы их можно было повторить.
// Контекст задачи к этому моменту может быть отменен, поэтому используется фоновый.
func (s *Service) resetUnfinished(sessionID string, itemIDs map[string]struct{}, stopGenerating bool) {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	if _, err := s.sessions.UpdateGallery(ctx, sessionID, func(cur *models.GallerySession) error {
		if stopGenerating {
			cur.Generating = false
		}
		for id := range itemIDs {
			it, ok := cur.Item(id)
			if !ok || it.URL != "" {
				continue
			}
			it.IsLoading = false
			if it.Error == "" {
				it.Error = errInterrupted.Error()
			}
		}
		return nil
	}); err != nil {
		s.logger.Warn("Failed to reset interrupted gallery items", zap.String("sessionID", sessionID), zap.Error(err))
	}
}

func (s *Service) generateItem(ctx context.Context, sess *models.GallerySession, itemID string) (bool, error) {
	item, ok := sess.Item(itemID)
	if !ok {
		return false, fmt.Errorf("%w: gallery item %s", models.ErrNotFound, itemID)
	}
	log := s.logger.With(zap.String("sessionID", sess.ID), zap.String("item", item.Label))

	dataURL, genErr := s.ai.GenerateImageVariation(ctx, sess.UserID, sess.Config, item.Prompt)
	if genErr != nil && ctx.Err() != nil {
		return false, ctx.Err()
	}

	url := dataURL
	if genErr == nil {
		// Автосохранение не должно ломать фотосессию
		saved, err := s.photos.SavePhoto(ctx, sess.UserID, dataURL, item.Prompt, sess.Config.Theme)
		if err != nil {
			log.Error("Failed to auto-save photo", zap.Error(err))
		} else {
			url = saved.URL
		}
	}

	if _, err := s.sessions.UpdateGallery(ctx, sess.ID, func(cur *models.GallerySession) error {
		it, ok := cur.Item(itemID)
		if !ok {
			return fmt.Errorf("%w: gallery item %s", models.ErrNotFound, itemID)
		}
		it.IsLoading = false
		if genErr != nil {
			it.Error = genErr.Error()
			return nil
		}
		it.URL = url
		it.Error = ""
		return nil
	}); err != nil {
		return false, err
	}

	if genErr != nil {
		log.Error("Gallery item generation failed", zap.Error(genErr))
		galleryItemsTotal.WithLabelValues(statusFailed).Inc()
		s.notify(ctx, models.ClientUpdate{UserID: sess.UserID, SessionID: sess.ID, Event: constants.WSEventGalleryItemError, ItemID: itemID, Error: genErr.Error()})
		return false, nil
	}
	galleryItemsTotal.WithLabelValues(statusSuccess).Inc()
	s.notify(ctx, models.ClientUpdate{UserID: sess.UserID, SessionID: sess.ID, Event: constants.WSEventGalleryItemReady, ItemID: itemID, ImageURL: url})
	return true, nil
}
