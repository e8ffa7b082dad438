// Package genclient - HTTP клиент к story-service: генерация, озвучка и хранилище историй.
package genclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"story-studio/shared/models"

	"go.uber.org/zap"
)

// ErrRequestFailed - общий класс ошибок запроса к бэкенду (для CRUD и чата).
var ErrRequestFailed = errors.New("backend request failed")

// APIError - бэкенд ответил статусом не 2xx.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Message)
}

// Client выполняет запросы к story-service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// New создает клиент. timeout ограничивает один запрос целиком.
func New(baseURL string, timeout time.Duration, logger *zap.Logger) (*Client, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL for story service: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("GenerationClient"),
	}, nil
}

// doJSON отправляет body (если не nil) и декодирует ответ в out (если не nil).
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log := c.logger.With(zap.String("method", method), zap.String("path", path))
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn("Request failed", zap.Error(err))
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Warn("Failed to read response body", zap.Int("status", resp.StatusCode), zap.Error(err))
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp models.ErrorResponse
		_ = json.Unmarshal(respBody, &errResp)
		log.Warn("Backend returned non-success status",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", truncate(respBody, 512)),
		)
		return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
	}

	log.Debug("Request completed", zap.Int("status", resp.StatusCode), zap.Duration("latency", time.Since(start)))

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		log.Warn("Malformed response body", zap.Error(err), zap.ByteString("body", truncate(respBody, 512)))
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
