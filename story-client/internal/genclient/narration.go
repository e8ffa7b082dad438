package genclient

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"story-studio/shared/models"
	"story-studio/story-client/internal/domain"
)

var errBadDataURI = errors.New("malformed audio data URI")

// Narrate запрашивает озвучку текста и декодирует data URI из ответа.
// Любая ошибка оборачивает domain.ErrNarrationFailed.
func (c *Client) Narrate(ctx context.Context, text string) (*domain.Audio, error) {
	var resp models.SpeechResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/text-to-speech", models.SpeechRequest{Text: text}, &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrNarrationFailed, err)
	}
	audio, err := ParseDataURI(resp.AudioData)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrNarrationFailed, err)
	}
	return audio, nil
}

// ParseDataURI разбирает "data:<mime>;base64,<payload>".
func ParseDataURI(uri string) (*domain.Audio, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, fmt.Errorf("%w: missing data: prefix", errBadDataURI)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, fmt.Errorf("%w: missing payload", errBadDataURI)
	}
	mime, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return nil, fmt.Errorf("%w: only base64 payloads are supported", errBadDataURI)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errBadDataURI, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty audio", errBadDataURI)
	}
	if mime == "" {
		mime = "audio/wav"
	}
	return &domain.Audio{MIMEType: mime, Data: data}, nil
}
