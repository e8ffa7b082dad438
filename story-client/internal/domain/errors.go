package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation - некорректный ввод, отклоняется до сетевого запроса.
	ErrValidation = errors.New("validation error")
	// ErrGenerationFailed - бэкенд генерации недоступен или вернул ошибку.
	ErrGenerationFailed = errors.New("story generation failed")
	// ErrNarrationFailed - бэкенд озвучки недоступен или вернул ошибку.
	ErrNarrationFailed = errors.New("narration failed")
	// ErrNotFound - история отсутствует в коллекции.
	ErrNotFound = errors.New("story not found")
	// ErrDuplicateID - история с таким id уже есть. Не должно происходить.
	ErrDuplicateID = errors.New("duplicate story id")
	// ErrStoreCorrupted - сохраненный снимок не читается. Только логируется.
	ErrStoreCorrupted = errors.New("stored snapshot is corrupted")
	// ErrGenerationPending - генерация уже выполняется.
	ErrGenerationPending = errors.New("generation already in progress")
)

// Errorf оборачивает sentinel-ошибку сообщением.
func Errorf(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

// UserMessage превращает ошибку в строку для показа пользователю.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrValidation):
		return "Invalid input: " + trimKind(err.Error(), ErrValidation)
	case errors.Is(err, ErrGenerationPending):
		return "A story is already being generated. Please wait."
	case errors.Is(err, ErrGenerationFailed):
		return "Could not generate the story. Please try again."
	case errors.Is(err, ErrNarrationFailed):
		return "Could not load narration audio. Press play to retry."
	case errors.Is(err, ErrNotFound):
		return "Story not found."
	case errors.Is(err, ErrDuplicateID):
		return "Could not add the story. Please try again."
	default:
		return "Something went wrong: " + err.Error()
	}
}

func trimKind(detail string, kind error) string {
	prefix := kind.Error() + ": "
	if rest, ok := strings.CutPrefix(detail, prefix); ok && rest != "" {
		return rest
	}
	return detail
}
