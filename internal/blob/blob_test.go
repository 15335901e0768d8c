package blob_test

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"kidzy-server/internal/blob"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestObjectPath(t *testing.T) {
	now := time.UnixMilli(1700000000123)

	path, err := blob.ObjectPath("uid-1", blob.KindStories, "", now)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^users/uid-1/stories/1700000000123-[0-9a-z]{7}\.png$`), path)

	other, err := blob.ObjectPath("uid-1", blob.KindPhotos, "jpg", now)
	require.NoError(t, err)
	assert.Regexp(t, `^users/uid-1/photos/1700000000123-[0-9a-z]{7}\.jpg$`, other)
}

func TestDownloadURL(t *testing.T) {
	url := blob.DownloadURL("kidzy.appspot.com", "users/u/photos/1-abc.png", "tok")
	assert.Equal(t, "https://firebasestorage.googleapis.com/v0/b/kidzy.appspot.com/o/users%2Fu%2Fphotos%2F1-abc.png?alt=media&token=tok", url)
}

func TestLocalStore_Upload(t *testing.T) {
	root := t.TempDir()
	store, err := blob.NewLocalStore(root, "http://localhost:8080/blobs/", zap.NewNop())
	require.NoError(t, err)

	url, err := store.Upload(context.Background(), "users/u1/stories/1-abc.png", []byte("img"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/blobs/users/u1/stories/1-abc.png", url)

	data, err := os.ReadFile(filepath.Join(root, "users", "u1", "stories", "1-abc.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte("img"), data)
}

func TestLocalStore_PathTraversalStaysInRoot(t *testing.T) {
	root := t.TempDir()
	store, err := blob.NewLocalStore(root, "http://x", zap.NewNop())
	require.NoError(t, err)

	url, err := store.Upload(context.Background(), "../../escape.png", []byte("x"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "http://x/escape.png", url)
	assert.FileExists(t, filepath.Join(root, "escape.png"))
}
