package blob

import (
	"context"
	"fmt"
	"net/url"

	"kidzy-server/shared/interfaces"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var _ interfaces.BlobStore = (*FirebaseStore)(nil)

// FirebaseStore пишет объекты в бакет Firebase Storage и отдает ссылки с download-токеном,
// такие же, как выдает клиентский SDK.
type FirebaseStore struct {
	bucket     *storage.BucketHandle
	bucketName string
	logger     *zap.Logger
}

// NewFirebaseStore создает хранилище поверх бакета. bucketName нужен для построения URL.
func NewFirebaseStore(bucket *storage.BucketHandle, bucketName string, logger *zap.Logger) *FirebaseStore {
	return &FirebaseStore{
		bucket:     bucket,
		bucketName: bucketName,
		logger:     logger.Named("FirebaseBlobStore"),
	}
}

func (s *FirebaseStore) Upload(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	token := uuid.NewString()

	w := s.bucket.Object(path).NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = map[string]string{"firebaseStorageDownloadTokens": token}

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		s.logger.Error("Failed to write object", zap.String("path", path), zap.Error(err))
		return "", fmt.Errorf("failed to upload %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		s.logger.Error("Failed to finalize object", zap.String("path", path), zap.Error(err))
		return "", fmt.Errorf("failed to upload %s: %w", path, err)
	}

	s.logger.Debug("Object uploaded", zap.String("path", path), zap.Int("bytes", len(data)))
	return DownloadURL(s.bucketName, path, token), nil
}

// DownloadURL - публичная ссылка Firebase Storage для объекта с токеном.
func DownloadURL(bucketName, path, token string) string {
	return fmt.Sprintf("%s%s?alt=media&token=%s", DownloadURLPrefix(bucketName), url.PathEscape(path), token)
}

// DownloadURLPrefix - общий префикс ссылок на объекты бакета.
func DownloadURLPrefix(bucketName string) string {
	return fmt.Sprintf("https://firebasestorage.googleapis.com/v0/b/%s/o/", bucketName)
}
