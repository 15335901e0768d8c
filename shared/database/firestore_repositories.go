package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kidzy-server/shared/interfaces"
	"kidzy-server/shared/models"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Имена коллекций Firestore.
const (
	CollectionStories      = "stories"
	CollectionPhotos       = "photos"
	CollectionTransactions = "transactions"
)

var (
	_ interfaces.StoryRepository       = (*firestoreStoryRepository)(nil)
	_ interfaces.PhotoRepository       = (*firestorePhotoRepository)(nil)
	_ interfaces.TransactionRepository = (*firestoreTransactionRepository)(nil)

	errAlreadyCompleted = errors.New("order already completed")
)

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// byUserNewestFirst - основной запрос библиотеки.
func byUserNewestFirst(client *firestore.Client, collection, userID string) firestore.Query {
	return client.Collection(collection).
		Where("userId", "==", userID).
		OrderBy("createdAt", firestore.Desc)
}

type firestoreStoryRepository struct {
	client *firestore.Client
	logger *zap.Logger
}

// NewFirestoreStoryRepository создает репозиторий книг в Firestore.
func NewFirestoreStoryRepository(client *firestore.Client, logger *zap.Logger) interfaces.StoryRepository {
	return &firestoreStoryRepository{client: client, logger: logger.Named("FirestoreStoryRepo")}
}

func (r *firestoreStoryRepository) Create(ctx context.Context, story *models.SavedStory) (string, error) {
	if story.CreatedAt.IsZero() {
		story.CreatedAt = time.Now().UTC()
	}
	ref, _, err := r.client.Collection(CollectionStories).Add(ctx, story)
	if err != nil {
		r.logger.Error("Failed to add story document", zap.String("userID", story.UserID), zap.Error(err))
		return "", fmt.Errorf("failed to save story: %w", err)
	}
	story.ID = ref.ID
	r.logger.Info("Story saved", zap.String("storyID", ref.ID), zap.String("userID", story.UserID))
	return ref.ID, nil
}

func (r *firestoreStoryRepository) GetByID(ctx context.Context, id string) (*models.SavedStory, error) {
	snap, err := r.client.Collection(CollectionStories).Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: story %s", models.ErrStoryNotFound, id)
		}
		return nil, fmt.Errorf("failed to get story %s: %w", id, err)
	}
	var story models.SavedStory
	if err := snap.DataTo(&story); err != nil {
		return nil, fmt.Errorf("failed to decode story %s: %w", id, err)
	}
	story.ID = snap.Ref.ID
	return &story, nil
}

func (r *firestoreStoryRepository) ListByUser(ctx context.Context, userID string) ([]models.SavedStory, error) {
	docs, err := byUserNewestFirst(r.client, CollectionStories, userID).Documents(ctx).GetAll()
	if err != nil {
		r.logger.Error("Failed to query stories", zap.String("userID", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}
	stories := make([]models.SavedStory, 0, len(docs))
	for _, doc := range docs {
		var s models.SavedStory
		if err := doc.DataTo(&s); err != nil {
			r.logger.Warn("Skipping undecodable story", zap.String("storyID", doc.Ref.ID), zap.Error(err))
			continue
		}
		s.ID = doc.Ref.ID
		stories = append(stories, s)
	}
	return stories, nil
}

type firestorePhotoRepository struct {
	client *firestore.Client
	logger *zap.Logger
}

// NewFirestorePhotoRepository создает репозиторий фотографий в Firestore.
func NewFirestorePhotoRepository(client *firestore.Client, logger *zap.Logger) interfaces.PhotoRepository {
	return &firestorePhotoRepository{client: client, logger: logger.Named("FirestorePhotoRepo")}
}

func (r *firestorePhotoRepository) Create(ctx context.Context, photo *models.SavedPhoto) (string, error) {
	if photo.CreatedAt.IsZero() {
		photo.CreatedAt = time.Now().UTC()
	}
	ref, _, err := r.client.Collection(CollectionPhotos).Add(ctx, photo)
	if err != nil {
		r.logger.Error("Failed to add photo document", zap.String("userID", photo.UserID), zap.Error(err))
		return "", fmt.Errorf("failed to save photo: %w", err)
	}
	photo.ID = ref.ID
	return ref.ID, nil
}

func (r *firestorePhotoRepository) ListByUser(ctx context.Context, userID string) ([]models.SavedPhoto, error) {
	iter := byUserNewestFirst(r.client, CollectionPhotos, userID).Documents(ctx)
	defer iter.Stop()

	photos := []models.SavedPhoto{}
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list photos: %w", err)
		}
		var p models.SavedPhoto
		if err := doc.DataTo(&p); err != nil {
			r.logger.Warn("Skipping undecodable photo", zap.String("photoID", doc.Ref.ID), zap.Error(err))
			continue
		}
		p.ID = doc.Ref.ID
		photos = append(photos, p)
	}
	return photos, nil
}

type firestoreTransactionRepository struct {
	client *firestore.Client
	logger *zap.Logger
}

// NewFirestoreTransactionRepository создает репозиторий платежей в Firestore.
func NewFirestoreTransactionRepository(client *firestore.Client, logger *zap.Logger) interfaces.TransactionRepository {
	return &firestoreTransactionRepository{client: client, logger: logger.Named("FirestoreTransactionRepo")}
}

func (r *firestoreTransactionRepository) Create(ctx context.Context, tx *models.Transaction) (string, error) {
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	ref, _, err := r.client.Collection(CollectionTransactions).Add(ctx, tx)
	if err != nil {
		r.logger.Error("Failed to add transaction document", zap.String("orderID", tx.OrderID), zap.Error(err))
		return "", fmt.Errorf("failed to record transaction: %w", err)
	}
	tx.ID = ref.ID
	return ref.ID, nil
}

func (r *firestoreTransactionRepository) byOrder(orderID string) firestore.Query {
	return r.client.Collection(CollectionTransactions).Where("orderId", "==", orderID).Limit(1)
}

func (r *firestoreTransactionRepository) GetByOrderID(ctx context.Context, orderID string) (*models.Transaction, error) {
	docs, err := r.byOrder(orderID).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction for order %s: %w", orderID, err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: order %s", models.ErrNotFound, orderID)
	}
	var tx models.Transaction
	if err := docs[0].DataTo(&tx); err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}
	tx.ID = docs[0].Ref.ID
	return &tx, nil
}

func (r *firestoreTransactionRepository) CompleteOrder(ctx context.Context, orderID string, newStatus models.TransactionStatus, paymentID string) (bool, error) {
	err := r.client.RunTransaction(ctx, func(ctx context.Context, t *firestore.Transaction) error {
		docs, err := t.Documents(r.byOrder(orderID)).GetAll()
		if err != nil {
			return err
		}
		if len(docs) == 0 {
			return fmt.Errorf("%w: order %s", models.ErrNotFound, orderID)
		}
		var tx models.Transaction
		if err := docs[0].DataTo(&tx); err != nil {
			return err
		}
		if !tx.Status.CanTransitionTo(newStatus) {
			return errAlreadyCompleted
		}
		return t.Update(docs[0].Ref, []firestore.Update{
			{Path: "status", Value: string(newStatus)},
			{Path: "paymentId", Value: paymentID},
		})
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errAlreadyCompleted), errors.Is(err, models.ErrNotFound):
		return false, nil
	default:
		r.logger.Error("Failed to complete order", zap.String("orderID", orderID), zap.Error(err))
		return false, fmt.Errorf("failed to complete order %s: %w", orderID, err)
	}
}

func (r *firestoreTransactionRepository) ListByUser(ctx context.Context, userID string) ([]models.Transaction, error) {
	docs, err := byUserNewestFirst(r.client, CollectionTransactions, userID).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	txs := make([]models.Transaction, 0, len(docs))
	for _, doc := range docs {
		var tx models.Transaction
		if err := doc.DataTo(&tx); err != nil {
			continue
		}
		tx.ID = doc.Ref.ID
		txs = append(txs, tx)
	}
	return txs, nil
}
