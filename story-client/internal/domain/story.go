package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"story-studio/shared/models"
)

// MaxTitleLength - максимальная длина заголовка в символах.
const MaxTitleLength = 200

// Style и Status совпадают с типами протокола, чтобы клиент и сервис не расходились.
type (
	Style  = models.Style
	Status = models.StoryStatus
)

const (
	StatusInProgress = models.StatusInProgress
	StatusCompleted  = models.StatusCompleted
)

// Story - сгенерированная история.
type Story struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Style        Style     `json:"style"`
	Content      string    `json:"content"`
	Status       Status    `json:"status"`
	Chapters     int       `json:"chapters,omitempty"`
	DateCreated  time.Time `json:"dateCreated"`
	LastModified time.Time `json:"lastModified"`
	Comments     []Comment `json:"comments"`
}

// Comment - комментарий пользователя. Комментарии только добавляются.
type Comment struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Clone возвращает глубокую копию истории.
func (s Story) Clone() Story {
	out := s
	if s.Comments != nil {
		out.Comments = make([]Comment, len(s.Comments))
		copy(out.Comments, s.Comments)
	} else {
		out.Comments = []Comment{}
	}
	return out
}

// MarkCompleted - мутатор для действия "сохранить".
func MarkCompleted(now time.Time) func(Story) Story {
	return func(s Story) Story {
		s.Status = StatusCompleted
		s.LastModified = now
		return s
	}
}

// ValidateTitle проверяет заголовок и возвращает его без крайних пробелов.
func ValidateTitle(title string) (string, error) {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return "", Errorf(ErrValidation, "title must not be empty")
	}
	if utf8.RuneCountInString(trimmed) > MaxTitleLength {
		return "", Errorf(ErrValidation, "title is longer than %d characters", MaxTitleLength)
	}
	return trimmed, nil
}

// ValidateStyle проверяет, что жанр из допустимого набора.
func ValidateStyle(style Style) error {
	if !models.IsValidStyle(style) {
		return Errorf(ErrValidation, "unknown style %q", style)
	}
	return nil
}

// ParseStyle находит жанр без учета регистра ("sci-fi" -> Sci-Fi).
func ParseStyle(raw string) (Style, error) {
	raw = strings.TrimSpace(raw)
	for _, s := range models.Styles() {
		if strings.EqualFold(string(s), raw) {
			return s, nil
		}
	}
	return "", Errorf(ErrValidation, "unknown style %q", raw)
}

// Audio - озвучка истории, готовая к воспроизведению.
type Audio struct {
	MIMEType string
	Data     []byte
}

// Extension возвращает расширение файла для MIME-типа (для внешнего плеера).
func (a Audio) Extension() string {
	switch strings.ToLower(a.MIMEType) {
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/ogg":
		return ".ogg"
	case "audio/flac":
		return ".flac"
	default:
		return ".wav"
	}
}
