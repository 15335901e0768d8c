package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"kidzy-server/shared/interfaces"
	"kidzy-server/shared/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const (
	storyColumns = `id, user_id, title, cover_url, created_at, story_data, paper_size, config, is_purchased`

	insertStoryQuery = `
        INSERT INTO stories (id, user_id, title, cover_url, created_at, story_data, paper_size, config, is_purchased)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `
	getStoryByIDQuery      = `SELECT ` + storyColumns + ` FROM stories WHERE id = $1`
	listStoriesByUserQuery = `SELECT ` + storyColumns + ` FROM stories WHERE user_id = $1 ORDER BY created_at DESC`
)

var _ interfaces.StoryRepository = (*pgStoryRepository)(nil)

// storyRow - строка таблицы stories; JSONB-колонки декодируются вручную.
type storyRow struct {
	ID          string    `db:"id"`
	UserID      string    `db:"user_id"`
	Title       string    `db:"title"`
	CoverURL    string    `db:"cover_url"`
	CreatedAt   time.Time `db:"created_at"`
	StoryData   []byte    `db:"story_data"`
	PaperSize   string    `db:"paper_size"`
	Config      []byte    `db:"config"`
	IsPurchased bool      `db:"is_purchased"`
}

func (r storyRow) toModel() (*models.SavedStory, error) {
	s := &models.SavedStory{
		ID:          r.ID,
		UserID:      r.UserID,
		Title:       r.Title,
		CoverURL:    r.CoverURL,
		CreatedAt:   r.CreatedAt,
		PaperSize:   models.PaperSize(r.PaperSize),
		IsPurchased: r.IsPurchased,
	}
	if err := json.Unmarshal(r.StoryData, &s.StoryData); err != nil {
		return nil, fmt.Errorf("failed to decode story_data of %s: %w", r.ID, err)
	}
	if err := json.Unmarshal(r.Config, &s.Config); err != nil {
		return nil, fmt.Errorf("failed to decode config of %s: %w", r.ID, err)
	}
	return s, nil
}

type pgStoryRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

// NewPgStoryRepository создает репозиторий книг в PostgreSQL.
func NewPgStoryRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.StoryRepository {
	return &pgStoryRepository{
		db:     db,
		logger: logger.Named("PgStoryRepo"),
	}
}

func (r *pgStoryRepository) Create(ctx context.Context, story *models.SavedStory) (string, error) {
	log := r.logger.With(zap.String("userID", story.UserID), zap.String("title", story.Title))

	storyData, err := json.Marshal(story.StoryData)
	if err != nil {
		return "", fmt.Errorf("failed to encode story data: %w", err)
	}
	cfg, err := json.Marshal(story.Config)
	if err != nil {
		return "", fmt.Errorf("failed to encode story config: %w", err)
	}
	if story.CreatedAt.IsZero() {
		story.CreatedAt = time.Now().UTC()
	}
	id := uuid.NewString()

	_, err = r.db.Exec(ctx, insertStoryQuery,
		id, story.UserID, story.Title, story.CoverURL, story.CreatedAt,
		storyData, string(story.PaperSize), cfg, story.IsPurchased,
	)
	if err != nil {
		log.Error("Failed to insert story", zap.Error(err))
		return "", fmt.Errorf("failed to insert story: %w", err)
	}
	story.ID = id
	log.Info("Story saved", zap.String("storyID", id))
	return id, nil
}

func (r *pgStoryRepository) GetByID(ctx context.Context, id string) (*models.SavedStory, error) {
	var row storyRow
	if err := pgxscan.Get(ctx, r.db, &row, getStoryByIDQuery, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: story %s", models.ErrStoryNotFound, id)
		}
		r.logger.Error("Failed to get story", zap.String("storyID", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get story %s: %w", id, err)
	}
	return row.toModel()
}

func (r *pgStoryRepository) ListByUser(ctx context.Context, userID string) ([]models.SavedStory, error) {
	var rows []storyRow
	if err := pgxscan.Select(ctx, r.db, &rows, listStoriesByUserQuery, userID); err != nil {
		r.logger.Error("Failed to list stories", zap.String("userID", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}

	stories := make([]models.SavedStory, 0, len(rows))
	for _, row := range rows {
		s, err := row.toModel()
		if err != nil {
			r.logger.Warn("Skipping undecodable story", zap.String("storyID", row.ID), zap.Error(err))
			continue
		}
		stories = append(stories, *s)
	}
	return stories, nil
}
