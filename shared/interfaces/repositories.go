package interfaces

import (
	"context"

	"kidzy-server/shared/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX - общий интерфейс для *pgxpool.Pool и pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// StoryRepository хранит сохраненные книги пользователей.
//
// Записи не содержат встроенных изображений: к моменту Create все data URL уже заменены ссылками.
type StoryRepository interface {
	// Create сохраняет книгу и возвращает ее ID.
	Create(ctx context.Context, story *models.SavedStory) (string, error)
	// GetByID возвращает models.ErrNotFound, если книги нет.
	GetByID(ctx context.Context, id string) (*models.SavedStory, error)
	// ListByUser возвращает книги пользователя, новые первыми.
	ListByUser(ctx context.Context, userID string) ([]models.SavedStory, error)
}

// PhotoRepository хранит фотографии из фотосессий.
type PhotoRepository interface {
	Create(ctx context.Context, photo *models.SavedPhoto) (string, error)
	ListByUser(ctx context.Context, userID string) ([]models.SavedPhoto, error)
}

// TransactionRepository хранит платежи.
type TransactionRepository interface {
	Create(ctx context.Context, tx *models.Transaction) (string, error)
	// GetByOrderID возвращает models.ErrNotFound, если заказа нет.
	GetByOrderID(ctx context.Context, orderID string) (*models.Transaction, error)
	// CompleteOrder переводит транзакцию заказа в status, если это допускает
	// TransactionStatus.CanTransitionTo. Возвращает false, если переход не выполнен.
	CompleteOrder(ctx context.Context, orderID string, status models.TransactionStatus, paymentID string) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]models.Transaction, error)
}

// BlobStore хранит бинарные изображения и отдает постоянные ссылки на них.
type BlobStore interface {
	// Upload записывает объект по пути path и возвращает URL для скачивания.
	Upload(ctx context.Context, path string, data []byte, contentType string) (string, error)
}
