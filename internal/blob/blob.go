package blob

import (
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Kind - раздел пользовательского хранилища.
type Kind string

const (
	KindStories Kind = "stories"
	KindPhotos  Kind = "photos"
)

const nameAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// ObjectPath строит путь вида users/{uid}/{kind}/{millis}-{suffix}.{ext}.
func ObjectPath(userID string, kind Kind, ext string, now time.Time) (string, error) {
	suffix, err := gonanoid.Generate(nameAlphabet, 7)
	if err != nil {
		return "", fmt.Errorf("failed to generate object name: %w", err)
	}
	if ext == "" {
		ext = "png"
	}
	return fmt.Sprintf("users/%s/%s/%d-%s.%s", userID, kind, now.UnixMilli(), suffix, ext), nil
}
