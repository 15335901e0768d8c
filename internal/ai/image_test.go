package ai_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"kidzy-server/internal/ai"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseDataURL(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		wantMIME string
		wantData string
		wantErr  bool
	}{
		{name: "png", input: "data:image/png;base64,aGVsbG8=", wantMIME: "image/png", wantData: "hello"},
		{name: "bare base64 defaults to jpeg", input: "aGVsbG8=", wantMIME: ai.DefaultMIMEType, wantData: "hello"},
		{name: "garbage", input: "data:image/png;base64,!!!", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			img, err := ai.ParseDataURL(tc.input)
			if tc.wantErr {
				require.ErrorIs(t, err, ai.ErrInvalidImageData)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantMIME, img.MIMEType)
			assert.Equal(t, tc.wantData, string(img.Data))
		})
	}
}

func TestInlineImage_RoundTripAndExtension(t *testing.T) {
	img := &ai.InlineImage{Data: []byte("hello"), MIMEType: "image/webp"}
	assert.Equal(t, "data:image/webp;base64,aGVsbG8=", img.DataURL())
	assert.Equal(t, "webp", img.Extension())

	assert.Equal(t, "png", (&ai.InlineImage{MIMEType: "image/png"}).Extension())
	assert.Equal(t, "jpg", (&ai.InlineImage{MIMEType: "image/jpeg"}).Extension())
	assert.True(t, ai.IsDataURL(img.DataURL()))
	assert.False(t, ai.IsDataURL("https://example.com/a.png"))
}

func TestHTTPImageFetcher(t *testing.T) {
	pngHeader := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0}

	var internalHits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/blobs/ok.png":
			w.Header().Set("Content-Type", "application/octet-stream")
			_, _ = w.Write(pngHeader)
		case "/blobs/big":
			w.Header().Set("Content-Type", "image/jpeg")
			_, _ = w.Write(make([]byte, 64))
		case "/blobs/moved":
			http.Redirect(w, r, "/latest/meta-data/iam", http.StatusFound)
		case "/latest/meta-data/iam":
			internalHits.Add(1)
			_, _ = w.Write(pngHeader)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	fetcher := ai.NewHTTPImageFetcher(5*time.Second, 32, []string{srv.URL + "/blobs"}, zap.NewNop())
	ctx := context.Background()

	t.Run("detects content type", func(t *testing.T) {
		img, err := fetcher.Fetch(ctx, srv.URL+"/blobs/ok.png")
		require.NoError(t, err)
		assert.Equal(t, "image/png", img.MIMEType)
		assert.Equal(t, pngHeader, img.Data)
	})

	t.Run("size limit", func(t *testing.T) {
		_, err := fetcher.Fetch(ctx, srv.URL+"/blobs/big")
		require.ErrorIs(t, err, ai.ErrFetchFailed)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := fetcher.Fetch(ctx, srv.URL+"/blobs/missing")
		require.ErrorIs(t, err, ai.ErrFetchFailed)
	})

	t.Run("data url parsed locally", func(t *testing.T) {
		img, err := fetcher.Fetch(ctx, "data:image/gif;base64,aGVsbG8=")
		require.NoError(t, err)
		assert.Equal(t, "image/gif", img.MIMEType)
	})

	t.Run("bare base64 parsed as jpeg", func(t *testing.T) {
		img, err := fetcher.Fetch(ctx, "/9j/AAA=")
		require.NoError(t, err)
		assert.Equal(t, ai.DefaultMIMEType, img.MIMEType)
		assert.Equal(t, []byte{0xff, 0xd8, 0xff, 0x00, 0x00}, img.Data)
	})

	t.Run("urls outside storage are never requested", func(t *testing.T) {
		for _, target := range []string{
			srv.URL + "/latest/meta-data/iam",
			srv.URL + "/blobs/../latest/meta-data/iam",
			srv.URL + "/blobsx/ok.png",
			"ftp://example.com/blobs/ok.png",
		} {
			_, err := fetcher.Fetch(ctx, target)
			require.ErrorIs(t, err, ai.ErrInvalidImageData, target)
		}
		assert.Zero(t, internalHits.Load())
	})

	t.Run("redirect outside storage is refused", func(t *testing.T) {
		_, err := fetcher.Fetch(ctx, srv.URL+"/blobs/moved")
		require.ErrorIs(t, err, ai.ErrFetchFailed)
		assert.Zero(t, internalHits.Load())
	})
}

func TestNewLimiter(t *testing.T) {
	unlimited := ai.NewLimiter(0)
	for i := 0; i < 100; i++ {
		assert.True(t, unlimited.Allow())
	}

	limited := ai.NewLimiter(60)
	assert.True(t, limited.Allow())
	assert.False(t, limited.Allow(), "burst is a single request")
}
