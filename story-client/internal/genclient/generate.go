package genclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"story-studio/shared/models"
	"story-studio/story-client/internal/domain"
)

// GenerateStory запрашивает генерацию истории.
// Любая ошибка (сеть, статус, формат ответа, пустой текст) оборачивает domain.ErrGenerationFailed.
func (c *Client) GenerateStory(ctx context.Context, title string, style domain.Style) (*models.GenerateStoryResponse, error) {
	var resp models.GenerateStoryResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/generate-story", models.GenerateStoryRequest{
		Title: title,
		Style: style,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err)
	}
	if strings.TrimSpace(resp.Story) == "" {
		return nil, fmt.Errorf("%w: empty story in response", domain.ErrGenerationFailed)
	}
	return &resp, nil
}

// Chat отправляет сообщение ассистенту.
func (c *Client) Chat(ctx context.Context, message string) (string, error) {
	var resp models.ChatResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/chat", models.ChatRequest{Message: message}, &resp); err != nil {
		return "", fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	return resp.Response, nil
}
