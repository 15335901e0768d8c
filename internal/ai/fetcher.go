package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrFetchFailed - не удалось получить удаленное изображение.
var ErrFetchFailed = errors.New("failed to fetch image")

// ImageFetcher загружает изображение по data URL или удаленному URL.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) (*InlineImage, error)
}

type httpImageFetcher struct {
	client   *http.Client
	maxBytes int64
	allowed  []string
	logger   *zap.Logger
}

// NewHTTPImageFetcher создает загрузчик изображений поверх net/http.
// По сети загружаются только URL с одним из префиксов allowedPrefixes (адреса хранилища);
// любая другая строка без схемы разбирается как встроенный base64.
func NewHTTPImageFetcher(timeout time.Duration, maxBytes int64, allowedPrefixes []string, logger *zap.Logger) ImageFetcher {
	f := &httpImageFetcher{
		maxBytes: maxBytes,
		logger:   logger.Named("ImageFetcher"),
	}
	for _, prefix := range allowedPrefixes {
		if prefix = strings.TrimSpace(prefix); prefix != "" {
			f.allowed = append(f.allowed, strings.ToLower(strings.TrimSuffix(prefix, "/"))+"/")
		}
	}
	f.client = &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return errors.New("too many redirects")
			}
			if !f.isAllowed(req.URL) {
				return fmt.Errorf("redirect to %s is not allowed", req.URL.Host)
			}
			return nil
		},
	}
	return f
}

// isAllowed проверяет, что URL указывает внутрь хранилища изображений.
func (f *httpImageFetcher) isAllowed(u *url.URL) bool {
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if u.User != nil || strings.Contains(u.Path, "..") {
		return false
	}
	target := strings.ToLower(u.Scheme + "://" + u.Host + u.EscapedPath())
	for _, prefix := range f.allowed {
		if strings.HasPrefix(target, prefix) {
			return true
		}
	}
	return false
}

func (f *httpImageFetcher) Fetch(ctx context.Context, raw string) (*InlineImage, error) {
	if IsDataURL(raw) || !strings.Contains(raw, "://") {
		return ParseDataURL(raw)
	}

	u, err := url.Parse(raw)
	if err != nil || !f.isAllowed(u) {
		f.logger.Warn("Rejected image URL outside of blob storage", zap.String("url", shortURL(raw)))
		return nil, fmt.Errorf("%w: url is not a storage address", ErrInvalidImageData)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Warn("Remote image request failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		f.logger.Warn("Remote image returned non-200 status", zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: status %s", ErrFetchFailed, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w: image exceeds %d bytes", ErrFetchFailed, f.maxBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrFetchFailed)
	}

	mimeType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	return &InlineImage{Data: data, MIMEType: mimeType}, nil
}

// shortURL - URL для логов без query.
func shortURL(raw string) string {
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		raw = raw[:i]
	}
	if len(raw) > 120 {
		return raw[:120]
	}
	return raw
}
