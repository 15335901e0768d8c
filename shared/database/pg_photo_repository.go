package database

import (
	"context"
	"fmt"
	"time"

	"kidzy-server/shared/interfaces"
	"kidzy-server/shared/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	insertPhotoQuery      = `INSERT INTO photos (id, user_id, url, prompt, theme, created_at) VALUES ($1, $2, $3, $4, $5, $6)`
	listPhotosByUserQuery = `SELECT id, user_id, url, prompt, theme, created_at FROM photos WHERE user_id = $1 ORDER BY created_at DESC`
)

var _ interfaces.PhotoRepository = (*pgPhotoRepository)(nil)

type pgPhotoRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

// NewPgPhotoRepository создает репозиторий фотографий в PostgreSQL.
func NewPgPhotoRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.PhotoRepository {
	return &pgPhotoRepository{
		db:     db,
		logger: logger.Named("PgPhotoRepo"),
	}
}

func (r *pgPhotoRepository) Create(ctx context.Context, photo *models.SavedPhoto) (string, error) {
	if photo.CreatedAt.IsZero() {
		photo.CreatedAt = time.Now().UTC()
	}
	id := uuid.NewString()
	if _, err := r.db.Exec(ctx, insertPhotoQuery, id, photo.UserID, photo.URL, photo.Prompt, photo.Theme, photo.CreatedAt); err != nil {
		r.logger.Error("Failed to insert photo", zap.String("userID", photo.UserID), zap.Error(err))
		return "", fmt.Errorf("failed to insert photo: %w", err)
	}
	photo.ID = id
	return id, nil
}

func (r *pgPhotoRepository) ListByUser(ctx context.Context, userID string) ([]models.SavedPhoto, error) {
	photos := []models.SavedPhoto{}
	if err := pgxscan.Select(ctx, r.db, &photos, listPhotosByUserQuery, userID); err != nil {
		r.logger.Error("Failed to list photos", zap.String("userID", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}
	return photos, nil
}
