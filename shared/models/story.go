package models

import (
	"time"
)

// PaperSize - формат страниц раскраски. Значения совпадают с теми, что видит пользователь.
type PaperSize string

const (
	PaperSizeSquare      PaperSize = "Square (1:1)"
	PaperSizeA4Portrait  PaperSize = "A4 Portrait"
	PaperSizeA4Landscape PaperSize = "A4 Landscape"
	PaperSizeMobileStory PaperSize = "Mobile Story (9:16)"
)

// AllPaperSizes в порядке отображения.
var AllPaperSizes = []PaperSize{PaperSizeSquare, PaperSizeA4Portrait, PaperSizeA4Landscape, PaperSizeMobileStory}

// AspectRatio возвращает соотношение сторон для генерации изображения.
// Неизвестные значения трактуются как квадрат.
func (p PaperSize) AspectRatio() string {
	switch p {
	case PaperSizeA4Portrait:
		return "3:4"
	case PaperSizeA4Landscape:
		return "4:3"
	case PaperSizeMobileStory:
		return "9:16"
	default:
		return "1:1"
	}
}

// Valid сообщает, является ли значение одним из известных форматов.
func (p PaperSize) Valid() bool {
	for _, s := range AllPaperSizes {
		if s == p {
			return true
		}
	}
	return false
}

// StoryConfig - параметры персонализации, собранные мастером настройки.
type StoryConfig struct {
	ChildName   string    `json:"childName" firestore:"childName" validate:"required,max=40"`
	Age         int       `json:"age" firestore:"age" validate:"min=1,max=14"`
	Gender      string    `json:"gender" firestore:"gender" validate:"required"`
	Theme       string    `json:"theme" firestore:"theme" validate:"required"`
	PaperSize   PaperSize `json:"paperSize" firestore:"paperSize" validate:"required,papersize"`
	BuddyName   string    `json:"buddyName,omitempty" firestore:"buddyName,omitempty" validate:"max=40"`
	BuddyType   string    `json:"buddyType,omitempty" firestore:"buddyType,omitempty" validate:"max=40"`
	Description string    `json:"description" firestore:"description" validate:"max=500"`
	// PhotoBase64 - data URL загруженного фото либо URL в хранилище после сохранения.
	PhotoBase64 string `json:"photoBase64,omitempty" firestore:"photoBase64,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty" firestore:"avatarUrl,omitempty"`
}

// HasBuddy - указан ли компаньон в истории.
func (c StoryConfig) HasBuddy() bool {
	return c.BuddyName != "" && c.BuddyType != ""
}

// StoryPage - одна страница книги. Страница с ID 0 и IsCover=true - обложка.
type StoryPage struct {
	ID                int    `json:"id" firestore:"id"`
	Text              string `json:"text" firestore:"text"`
	ImagePrompt       string `json:"imagePrompt" firestore:"imagePrompt"`
	ImageURL          string `json:"imageUrl,omitempty" firestore:"imageUrl,omitempty"`
	ReferenceImageURL string `json:"referenceImageUrl,omitempty" firestore:"referenceImageUrl,omitempty"`
	IsLoadingImage    bool   `json:"isLoadingImage" firestore:"isLoadingImage"`
	IsCover           bool   `json:"isCover,omitempty" firestore:"isCover,omitempty"`
	// ImageError заполняется, если генерация страницы не удалась; страница остается видимой без картинки.
	ImageError string `json:"imageError,omitempty" firestore:"imageError,omitempty"`
}

// HasImage - есть ли у страницы готовое изображение.
func (p StoryPage) HasImage() bool {
	return p.ImageURL != ""
}

// Story - заголовок и страницы (обложка + повествовательные).
type Story struct {
	Title string      `json:"title" firestore:"title"`
	Pages []StoryPage `json:"pages" firestore:"pages"`
}

// Cover возвращает обложку, если она есть.
func (s *Story) Cover() (*StoryPage, bool) {
	for i := range s.Pages {
		if s.Pages[i].IsCover {
			return &s.Pages[i], true
		}
	}
	return nil, false
}

// Page возвращает страницу по ID.
func (s *Story) Page(id int) (*StoryPage, bool) {
	for i := range s.Pages {
		if s.Pages[i].ID == id {
			return &s.Pages[i], true
		}
	}
	return nil, false
}

// NarrativePages - все страницы, кроме обложки, в порядке следования.
func (s *Story) NarrativePages() []*StoryPage {
	pages := make([]*StoryPage, 0, len(s.Pages))
	for i := range s.Pages {
		if !s.Pages[i].IsCover {
			pages = append(pages, &s.Pages[i])
		}
	}
	return pages
}

// SavedStory - история в библиотеке пользователя.
type SavedStory struct {
	ID          string      `json:"id" firestore:"-" db:"id"`
	UserID      string      `json:"userId" firestore:"userId" db:"user_id"`
	Title       string      `json:"title" firestore:"title" db:"title"`
	CoverURL    string      `json:"coverUrl" firestore:"coverUrl" db:"cover_url"`
	CreatedAt   time.Time   `json:"createdAt" firestore:"createdAt" db:"created_at"`
	StoryData   Story       `json:"storyData" firestore:"storyData" db:"story_data"`
	PaperSize   PaperSize   `json:"paperSize,omitempty" firestore:"paperSize,omitempty" db:"paper_size"`
	Config      StoryConfig `json:"config" firestore:"config" db:"config"`
	IsPurchased bool        `json:"isPurchased" firestore:"isPurchased" db:"is_purchased"`
}

// SavedPhoto - снимок из фотосессии в библиотеке пользователя.
type SavedPhoto struct {
	ID        string    `json:"id" firestore:"-" db:"id"`
	UserID    string    `json:"userId" firestore:"userId" db:"user_id"`
	URL       string    `json:"url" firestore:"url" db:"url"`
	Prompt    string    `json:"prompt" firestore:"prompt" db:"prompt"`
	Theme     string    `json:"theme" firestore:"theme" db:"theme"`
	CreatedAt time.Time `json:"createdAt" firestore:"createdAt" db:"created_at"`
}

// GalleryItem - элемент галереи в рамках сессии. В библиотеку не пишется.
type GalleryItem struct {
	ID        string `json:"id"`
	URL       string `json:"url,omitempty"`
	Prompt    string `json:"prompt"`
	IsLoading bool   `json:"isLoading"`
	Label     string `json:"label"`
	Error     string `json:"error,omitempty"`
}
