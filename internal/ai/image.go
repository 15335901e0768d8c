package ai

import (
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// DefaultMIMEType используется, когда data URL не содержит заголовка.
const DefaultMIMEType = "image/jpeg"

var (
	dataURLRegex     = regexp.MustCompile(`^data:([a-zA-Z0-9]+/[a-zA-Z0-9\-.+]+);base64,(.+)$`)
	loosePrefixRegex = regexp.MustCompile(`^data:image/\w+;base64,`)

	// ErrInvalidImageData - данные изображения не декодируются.
	ErrInvalidImageData = errors.New("invalid image data")
)

// InlineImage - изображение, переданное байтами внутри запроса или ответа модели.
type InlineImage struct {
	Data     []byte
	MIMEType string
}

// IsDataURL сообщает, является ли строка встроенным изображением.
func IsDataURL(s string) bool {
	return strings.HasPrefix(s, "data:")
}

// ParseDataURL разбирает data URL. Строка без распознанного заголовка считается
// голым base64 с типом image/jpeg.
func ParseDataURL(s string) (*InlineImage, error) {
	mimeType := DefaultMIMEType
	payload := s
	if m := dataURLRegex.FindStringSubmatch(s); len(m) == 3 {
		mimeType = m[1]
		payload = m[2]
	} else {
		payload = loosePrefixRegex.ReplaceAllString(s, "")
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImageData, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidImageData)
	}
	return &InlineImage{Data: data, MIMEType: mimeType}, nil
}

// DataURL кодирует изображение обратно в data URL.
func (i *InlineImage) DataURL() string {
	mimeType := i.MIMEType
	if mimeType == "" {
		mimeType = DefaultMIMEType
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// Extension возвращает расширение файла для MIME-типа.
func (i *InlineImage) Extension() string {
	switch i.MIMEType {
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	default:
		return "png"
	}
}
