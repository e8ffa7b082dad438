package genclient

import (
	"context"
	"fmt"
	"net/http"

	"story-studio/shared/models"
	"story-studio/story-client/internal/domain"

	"go.uber.org/zap"
)

// ListStories возвращает истории бэкенда (от новых к старым, с комментариями).
func (c *Client) ListStories(ctx context.Context) ([]models.StoryRecord, error) {
	var out []models.StoryRecord
	if err := c.doJSON(ctx, http.MethodGet, "/api/stories", nil, &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	return out, nil
}

// CreateRemoteStory генерирует и сохраняет историю на бэкенде.
func (c *Client) CreateRemoteStory(ctx context.Context, title string, style domain.Style) (*models.StoryRecord, error) {
	var out models.StoryRecord
	err := c.doJSON(ctx, http.MethodPost, "/api/stories", models.CreateStoryRequest{Title: title, Style: style}, &out)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err)
	}
	return &out, nil
}

// UpdateRemoteStory частично обновляет историю на бэкенде.
func (c *Client) UpdateRemoteStory(ctx context.Context, id int64, req models.UpdateStoryRequest) (*models.StoryRecord, error) {
	var out models.StoryRecord
	if err := c.doJSON(ctx, http.MethodPut, fmt.Sprintf("/api/stories/%d", id), req, &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	return &out, nil
}

// DeleteRemoteStory удаляет историю на бэкенде.
func (c *Client) DeleteRemoteStory(ctx context.Context, id int64) error {
	var out models.MessageResponse
	if err := c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/api/stories/%d", id), nil, &out); err != nil {
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	c.logger.Debug("Remote story deleted", zap.Int64("id", id), zap.String("message", out.Message))
	return nil
}
