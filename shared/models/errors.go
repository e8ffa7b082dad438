package models

import "errors"

// Ошибки сервиса историй
var (
	ErrNotFound       = errors.New("resource not found")
	ErrInternalServer = errors.New("internal server error")
	ErrBadRequest     = errors.New("bad request")
	ErrInvalidInput   = errors.New("invalid input data")

	// Внешние AI-бэкенды
	ErrAIGenerationFailed = errors.New("ai text generation failed")
	ErrSpeechFailed       = errors.New("speech synthesis failed")
)
