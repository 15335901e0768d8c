package database

import (
	"context"
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
	transactionColumns = `id, user_id, amount, item_id, type, status, order_id, payment_id, created_at`

	insertTransactionQuery = `
        INSERT INTO transactions (id, user_id, amount, item_id, type, status, order_id, payment_id, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `
	getTransactionByOrderQuery  = `SELECT ` + transactionColumns + ` FROM transactions WHERE order_id = $1`
	listTransactionsByUserQuery = `SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = $1 ORDER BY created_at DESC`
	// Переходы статуса совпадают с TransactionStatus.CanTransitionTo.
	completeOrderQuery = `
        UPDATE transactions SET status = $2, payment_id = $3
        WHERE order_id = $1
          AND (status = 'PENDING' OR (status = 'FAILED' AND $2::text = 'SUCCESS'))
    `
)

var _ interfaces.TransactionRepository = (*pgTransactionRepository)(nil)

type pgTransactionRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

// NewPgTransactionRepository создает репозиторий платежей в PostgreSQL.
func NewPgTransactionRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.TransactionRepository {
	return &pgTransactionRepository{
		db:     db,
		logger: logger.Named("PgTransactionRepo"),
	}
}

func (r *pgTransactionRepository) Create(ctx context.Context, tx *models.Transaction) (string, error) {
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	id := uuid.NewString()
	_, err := r.db.Exec(ctx, insertTransactionQuery,
		id, tx.UserID, tx.Amount, tx.ItemID, string(tx.Type), string(tx.Status), tx.OrderID, tx.PaymentID, tx.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to insert transaction", zap.String("orderID", tx.OrderID), zap.Error(err))
		return "", fmt.Errorf("failed to insert transaction: %w", err)
	}
	tx.ID = id
	return id, nil
}

func (r *pgTransactionRepository) GetByOrderID(ctx context.Context, orderID string) (*models.Transaction, error) {
	var tx models.Transaction
	if err := pgxscan.Get(ctx, r.db, &tx, getTransactionByOrderQuery, orderID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: order %s", models.ErrNotFound, orderID)
		}
		return nil, fmt.Errorf("failed to get transaction for order %s: %w", orderID, err)
	}
	return &tx, nil
}

func (r *pgTransactionRepository) CompleteOrder(ctx context.Context, orderID string, status models.TransactionStatus, paymentID string) (bool, error) {
	tag, err := r.db.Exec(ctx, completeOrderQuery, orderID, string(status), paymentID)
	if err != nil {
		r.logger.Error("Failed to complete order", zap.String("orderID", orderID), zap.Error(err))
		return false, fmt.Errorf("failed to complete order %s: %w", orderID, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *pgTransactionRepository) ListByUser(ctx context.Context, userID string) ([]models.Transaction, error) {
	txs := []models.Transaction{}
	if err := pgxscan.Select(ctx, r.db, &txs, listTransactionsByUserQuery, userID); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txs, nil
}
