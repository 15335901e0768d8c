package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"kidzy-server/shared/interfaces"

	"go.uber.org/zap"
)

var _ interfaces.BlobStore = (*LocalStore)(nil)

// LocalStore хранит объекты на диске; сервер раздает каталог по PublicBaseURL.
// Используется для локальной разработки без Firebase.
type LocalStore struct {
	root          string
	publicBaseURL string
	logger        *zap.Logger
}

func NewLocalStore(root, publicBaseURL string, logger *zap.Logger) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory %s: %w", root, err)
	}
	return &LocalStore{
		root:          root,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
		logger:        logger.Named("LocalBlobStore"),
	}, nil
}

// Root - каталог, который нужно раздавать статикой.
func (s *LocalStore) Root() string {
	return s.root
}

func (s *LocalStore) Upload(_ context.Context, path string, data []byte, _ string) (string, error) {
	clean := filepath.Clean("/" + path)
	full := filepath.Join(s.root, clean)

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		s.logger.Error("Failed to write blob", zap.String("path", full), zap.Error(err))
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return s.publicBaseURL + filepath.ToSlash(clean), nil
}
