package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"kidzy-server/internal/session"
	"kidzy-server/shared/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessions_StoryLifecycle(t *testing.T) {
	ctx := context.Background()
	sessions := session.NewSessions(session.NewMemoryStore(), time.Hour)

	_, err := sessions.GetStory(ctx, "missing")
	require.ErrorIs(t, err, models.ErrSessionNotFound)

	sess := &models.StorySession{
		ID:     "s1",
		UserID: "u1",
		Story: models.Story{Title: "T", Pages: []models.StoryPage{
			{ID: 0, IsCover: true, ImageURL: "cover"},
			{ID: 1, IsLoadingImage: true},
			{ID: 2, ImageURL: "done"},
		}},
	}
	require.NoError(t, sessions.CreateStory(ctx, sess))

	updated, err := sessions.UpdateStory(ctx, "s1", func(s *models.StorySession) error {
		s.Story.Pages[1].ImageURL = "generated"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "generated", updated.Story.Pages[1].ImageURL)
	assert.False(t, updated.UpdatedAt.IsZero())

	got, err := sessions.GetStory(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "generated", got.Story.Pages[1].ImageURL)
	assert.Empty(t, got.PendingPages())
}

func TestSessions_UpdateErrorDoesNotWrite(t *testing.T) {
	ctx := context.Background()
	sessions := session.NewSessions(session.NewMemoryStore(), time.Hour)
	require.NoError(t, sessions.CreateGallery(ctx, &models.GallerySession{ID: "g1"}))

	boom := errors.New("boom")
	_, err := sessions.UpdateGallery(ctx, "g1", func(g *models.GallerySession) error {
		g.Unlocked = true
		return boom
	})
	require.ErrorIs(t, err, boom)

	g, err := sessions.GetGallery(ctx, "g1")
	require.NoError(t, err)
	assert.False(t, g.Unlocked)

	_, err = sessions.UpdateGallery(ctx, "nope", func(*models.GallerySession) error { return nil })
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
}

func TestSessions_ConcurrentUpdatesAreSerialized(t *testing.T) {
	ctx := context.Background()
	sessions := session.NewSessions(session.NewMemoryStore(), time.Hour)
	require.NoError(t, sessions.CreateGallery(ctx, &models.GallerySession{ID: "g1"}))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := sessions.UpdateGallery(ctx, "g1", func(g *models.GallerySession) error {
				g.Items = append(g.Items, models.GalleryItem{ID: "x"})
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	g, err := sessions.GetGallery(ctx, "g1")
	require.NoError(t, err)
	assert.Len(t, g.Items, 20)
}

func TestSessions_LockGeneration(t *testing.T) {
	ctx := context.Background()
	sessions := session.NewSessions(session.NewMemoryStore(), time.Hour)

	unlock, err := sessions.LockGeneration(ctx, "s1", time.Minute)
	require.NoError(t, err)

	_, err = sessions.LockGeneration(ctx, "s1", time.Minute)
	require.ErrorIs(t, err, models.ErrGenerationInProgress)

	_, err = sessions.LockGeneration(ctx, "s2", time.Minute)
	require.NoError(t, err, "locks are per session")

	require.NoError(t, unlock(ctx))
	_, err = sessions.LockGeneration(ctx, "s1", time.Minute)
	require.NoError(t, err)
}

func TestMemoryStore_TTL(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()

	require.NoError(t, store.Put(ctx, "k", []byte("v"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, session.ErrKeyNotFound)

	_, err = store.Lock(ctx, "l", time.Millisecond)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	_, err = store.Lock(ctx, "l", time.Minute)
	assert.NoError(t, err, "expired lock can be taken again")
}
