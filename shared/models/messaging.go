package models

// TaskType - тип фоновой задачи генерации.
type TaskType string

const (
	TaskTypeFillPages      TaskType = "fill_pages"
	TaskTypeColorGuide     TaskType = "color_guide"
	TaskTypeRegeneratePage TaskType = "regenerate_page"
	TaskTypeGallery        TaskType = "gallery"
	TaskTypeGalleryRetry   TaskType = "gallery_retry"
)

// GenerationTaskPayload - сообщение в очереди задач генерации.
type GenerationTaskPayload struct {
	TaskID    string   `json:"task_id"`
	Type      TaskType `json:"type"`
	UserID    string   `json:"user_id"`
	SessionID string   `json:"session_id"`
	PageID    *int     `json:"page_id,omitempty"`
	ItemID    string   `json:"item_id,omitempty"`
}

// ClientUpdate - событие прогресса для клиента через WebSocket.
type ClientUpdate struct {
	UserID    string      `json:"user_id"`
	SessionID string      `json:"session_id"`
	Event     string      `json:"event"`
	PageID    *int        `json:"page_id,omitempty"`
	ItemID    string      `json:"item_id,omitempty"`
	ImageURL  string      `json:"image_url,omitempty"`
	Error     string      `json:"error,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
}
