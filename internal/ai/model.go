package ai

import (
	"context"
	"encoding/json"
	"errors"

	"google.golang.org/genai"
)

var (
	// ErrAIGenerationFailed - ошибка вызова модели.
	ErrAIGenerationFailed = errors.New("ai generation failed")
	// ErrNoImage - модель ответила без изображения (блок безопасности или текстовый ответ).
	ErrNoImage = errors.New("model returned no image")
)

// UsageInfo содержит информацию об использовании токенов.
type UsageInfo struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// TextRequest - запрос к текстовой (мультимодальной) модели.
type TextRequest struct {
	Prompt string
	Image  *InlineImage
	// Schema ограничивает ответ JSON-объектом указанной формы.
	Schema *Schema
}

// ImageRequest - запрос на генерацию изображения.
type ImageRequest struct {
	Prompt      string
	References  []*InlineImage
	AspectRatio string
	// Relaxed включает пороги безопасности "блокировать только высокий риск".
	Relaxed bool
}

// TextModel генерирует текст.
type TextModel interface {
	GenerateText(ctx context.Context, userID string, req TextRequest) (string, UsageInfo, error)
}

// ImageModel генерирует изображения.
type ImageModel interface {
	GenerateImage(ctx context.Context, userID string, req ImageRequest) (*InlineImage, error)
}

// Schema - переносимое описание JSON-ответа для разных провайдеров.
type Schema struct {
	Type       string             `json:"type"`
	Properties map[string]*Schema `json:"properties,omitempty"`
	Items      *Schema            `json:"items,omitempty"`
	Required   []string           `json:"required,omitempty"`
}

// Типы полей схемы.
const (
	SchemaObject  = "object"
	SchemaArray   = "array"
	SchemaString  = "string"
	SchemaInteger = "integer"
)

// JSON возвращает схему в формате JSON Schema.
func (s *Schema) JSON() json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}

func (s *Schema) toGenai() *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{Required: s.Required}
	switch s.Type {
	case SchemaObject:
		out.Type = genai.TypeObject
	case SchemaArray:
		out.Type = genai.TypeArray
	case SchemaInteger:
		out.Type = genai.TypeInteger
	default:
		out.Type = genai.TypeString
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = prop.toGenai()
		}
	}
	out.Items = s.Items.toGenai()
	return out
}
