package models

import "time"

// ViewState - текущая позиция просмотра книги: страница (0 - обложка) или цветовой гид.
type ViewState struct {
	Page       int  `json:"page"`
	ColorGuide bool `json:"colorGuide"`
}

// StorySession - книга в работе. Изображения хранятся как data URL до сохранения в библиотеку.
type StorySession struct {
	ID          string      `json:"id"`
	UserID      string      `json:"userId"`
	Config      StoryConfig `json:"config"`
	Story       Story       `json:"story"`
	View        ViewState   `json:"view"`
	ColorGuide  []string    `json:"colorGuide,omitempty"`
	IsPurchased bool        `json:"isPurchased"`
	// SavedStoryID - запись библиотеки, из которой открыта или в которую сохранена книга.
	SavedStoryID string    `json:"savedStoryId,omitempty"`
	Filling      bool      `json:"filling"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// PendingPages - страницы без картинки, которые еще нужно сгенерировать.
func (s *StorySession) PendingPages() []int {
	var ids []int
	for _, p := range s.Story.NarrativePages() {
		if !p.HasImage() {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// GallerySession - фотосессия по четырем сценариям.
type GallerySession struct {
	ID         string        `json:"id"`
	UserID     string        `json:"userId"`
	Config     StoryConfig   `json:"config"`
	Items      []GalleryItem `json:"items"`
	Unlocked   bool          `json:"unlocked"`
	Generating bool          `json:"generating"`
	CreatedAt  time.Time     `json:"createdAt"`
}

// Item возвращает элемент галереи по ID.
func (s *GallerySession) Item(id string) (*GalleryItem, bool) {
	for i := range s.Items {
		if s.Items[i].ID == id {
			return &s.Items[i], true
		}
	}
	return nil, false
}
