package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"kidzy-server/shared/models"
)

const (
	storyKeyPrefix   = "story:"
	galleryKeyPrefix = "gallery:"
)

// Sessions - типизированный доступ к сессиям книг и фотосессий.
type Sessions struct {
	store Store
	ttl   time.Duration
}

func NewSessions(store Store, ttl time.Duration) *Sessions {
	return &Sessions{store: store, ttl: ttl}
}

func put[T any](ctx context.Context, s *Sessions, key string, value *T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	return s.store.Put(ctx, key, data, s.ttl)
}

func get[T any](ctx context.Context, s *Sessions, key string) (*T, error) {
	data, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, models.ErrSessionNotFound
		}
		return nil, err
	}
	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", key, err)
	}
	return &value, nil
}

func update[T any](ctx context.Context, s *Sessions, key string, fn func(*T) error) (*T, error) {
	var result *T
	err := s.store.Update(ctx, key, s.ttl, func(current []byte) ([]byte, error) {
		var value T
		if err := json.Unmarshal(current, &value); err != nil {
			return nil, fmt.Errorf("failed to decode session %s: %w", key, err)
		}
		if err := fn(&value); err != nil {
			return nil, err
		}
		result = &value
		return json.Marshal(&value)
	})
	if errors.Is(err, ErrKeyNotFound) {
		return nil, models.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Sessions) CreateStory(ctx context.Context, sess *models.StorySession) error {
	return put(ctx, s, storyKeyPrefix+sess.ID, sess)
}

func (s *Sessions) GetStory(ctx context.Context, id string) (*models.StorySession, error) {
	return get[models.StorySession](ctx, s, storyKeyPrefix+id)
}

// UpdateStory применяет fn к актуальной версии сессии и сохраняет результат.
func (s *Sessions) UpdateStory(ctx context.Context, id string, fn func(*models.StorySession) error) (*models.StorySession, error) {
	return update(ctx, s, storyKeyPrefix+id, func(sess *models.StorySession) error {
		if err := fn(sess); err != nil {
			return err
		}
		sess.UpdatedAt = time.Now().UTC()
		return nil
	})
}

func (s *Sessions) CreateGallery(ctx context.Context, sess *models.GallerySession) error {
	return put(ctx, s, galleryKeyPrefix+sess.ID, sess)
}

func (s *Sessions) GetGallery(ctx context.Context, id string) (*models.GallerySession, error) {
	return get[models.GallerySession](ctx, s, galleryKeyPrefix+id)
}

func (s *Sessions) UpdateGallery(ctx context.Context, id string, fn func(*models.GallerySession) error) (*models.GallerySession, error) {
	return update(ctx, s, galleryKeyPrefix+id, fn)
}

// LockGeneration не дает запустить две генерации для одной сессии.
func (s *Sessions) LockGeneration(ctx context.Context, sessionID string, ttl time.Duration) (Unlock, error) {
	unlock, err := s.store.Lock(ctx, "generation:"+sessionID, ttl)
	if errors.Is(err, ErrLockHeld) {
		return nil, models.ErrGenerationInProgress
	}
	return unlock, err
}
