package models

import "time"

// Style - жанр истории. Набор фиксирован.
type Style string

const (
	StyleFantasy    Style = "Fantasy"
	StyleSciFi      Style = "Sci-Fi"
	StyleMystery    Style = "Mystery"
	StyleRomance    Style = "Romance"
	StyleAdventure  Style = "Adventure"
	StyleHorror     Style = "Horror"
	StyleHistorical Style = "Historical Fiction"
	StyleComedy     Style = "Comedy"
)

// Styles возвращает все жанры в порядке отображения.
func Styles() []Style {
	return []Style{
		StyleFantasy, StyleSciFi, StyleMystery, StyleRomance,
		StyleAdventure, StyleHorror, StyleHistorical, StyleComedy,
	}
}

// IsValidStyle проверяет, входит ли жанр в допустимый набор.
func IsValidStyle(s Style) bool {
	for _, known := range Styles() {
		if known == s {
			return true
		}
	}
	return false
}

// StoryStatus - статус истории.
type StoryStatus string

const (
	StatusInProgress StoryStatus = "in-progress"
	StatusCompleted  StoryStatus = "completed"
)

// IsValidStatus проверяет статус истории.
func IsValidStatus(s StoryStatus) bool {
	return s == StatusInProgress || s == StatusCompleted
}

// --- Генерация текста ---

// GenerateStoryRequest - запрос на генерацию истории.
type GenerateStoryRequest struct {
	Title string `json:"title" binding:"required"`
	Style Style  `json:"style" binding:"required"`
}

// GenerateStoryResponse - успешный ответ генерации.
type GenerateStoryResponse struct {
	Story    string      `json:"story"`
	Title    string      `json:"title"`
	Style    Style       `json:"style"`
	Chapters int         `json:"chapters"`
	Status   StoryStatus `json:"status"`
}

// --- Озвучка ---

// SpeechRequest - запрос на синтез речи.
type SpeechRequest struct {
	Text string `json:"text" binding:"required"`
}

// SpeechResponse содержит data URI с аудио (data:audio/wav;base64,...).
type SpeechResponse struct {
	Success   bool   `json:"success"`
	AudioData string `json:"audioData"`
}

// --- Чат ---

type ChatRequest struct {
	Message string `json:"message" binding:"required"`
}

type ChatResponse struct {
	Response string `json:"response"`
}

// --- Хранилище историй (CRUD) ---

// StoryRecord - история в том виде, в каком ее хранит и отдает бэкенд.
type StoryRecord struct {
	ID           int64           `json:"id" db:"id"`
	Title        string          `json:"title" db:"title"`
	Style        Style           `json:"style" db:"style"`
	Content      string          `json:"content" db:"content"`
	Status       StoryStatus     `json:"status" db:"status"`
	DateCreated  time.Time       `json:"dateCreated" db:"date_created"`
	LastModified time.Time       `json:"lastModified" db:"last_modified"`
	Comments     []CommentRecord `json:"comments" db:"-"`
}

// CommentRecord - комментарий к истории.
type CommentRecord struct {
	ID        int64     `json:"id" db:"id"`
	StoryID   int64     `json:"storyId" db:"story_id"`
	Text      string    `json:"text" db:"text"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
}

// CreateStoryRequest - создание истории с генерацией на стороне бэкенда.
type CreateStoryRequest struct {
	Title string `json:"title" binding:"required"`
	Style Style  `json:"style" binding:"required"`
}

// UpdateStoryRequest - частичное обновление. nil = поле не меняется.
type UpdateStoryRequest struct {
	Title   *string      `json:"title,omitempty"`
	Style   *Style       `json:"style,omitempty"`
	Content *string      `json:"content,omitempty"`
	Status  *StoryStatus `json:"status,omitempty"`
}

// IsEmpty сообщает, что в запросе нет ни одного поля.
func (r UpdateStoryRequest) IsEmpty() bool {
	return r.Title == nil && r.Style == nil && r.Content == nil && r.Status == nil
}

// AddCommentRequest - добавление комментария.
type AddCommentRequest struct {
	Text string `json:"text" binding:"required"`
}
