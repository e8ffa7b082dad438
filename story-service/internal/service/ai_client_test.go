package service_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"story-studio/shared/models"
	"story-studio/story-service/internal/config"
	"story-studio/story-service/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func aiConfig(clientType, baseURL string) *config.Config {
	return &config.Config{
		AIClientType: clientType,
		AIBaseURL:    baseURL,
		AIModel:      "test-model",
		AITimeout:    5 * time.Second,
		AIAPIKey:     "sk-test",
	}
}

func TestOpenAIClient_GenerateText(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"c1","object":"chat.completion","created":1,"model":"test-model",
			"choices":[{"index":0,"message":{"role":"assistant","content":"A tale."},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":12,"completion_tokens":3,"total_tokens":15}}`)
	}))
	defer srv.Close()

	client, err := service.NewAIClient(aiConfig("openai", srv.URL), nil)
	require.NoError(t, err)

	text, usage, err := client.GenerateText(context.Background(), "system", "user", service.GenerationParams{
		Temperature: ptr(0.8),
		MaxTokens:   ptr(1000),
	})
	require.NoError(t, err)
	assert.Equal(t, "A tale.", text)
	assert.Equal(t, service.UsageInfo{PromptTokens: 12, CompletionTokens: 3, TotalTokens: 15}, usage)

	assert.Equal(t, "test-model", got["model"])
	assert.InDelta(t, 0.8, got["temperature"], 1e-6)
	assert.EqualValues(t, 1000, got["max_tokens"])
	messages := got["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "user", messages[1].(map[string]any)["content"])
}

func TestOpenAIClient_Failures(t *testing.T) {
	t.Run("http error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			io.WriteString(w, `{"error":{"message":"boom","type":"server_error"}}`)
		}))
		defer srv.Close()

		client, err := service.NewAIClient(aiConfig("openai", srv.URL), nil)
		require.NoError(t, err)
		_, _, err = client.GenerateText(context.Background(), "system", "user", service.GenerationParams{})
		assert.ErrorIs(t, err, models.ErrAIGenerationFailed)
	})

	t.Run("empty content", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `{"choices":[{"index":0,"message":{"role":"assistant","content":"  "}}],"usage":{"total_tokens":1}}`)
		}))
		defer srv.Close()

		client, err := service.NewAIClient(aiConfig("openai", srv.URL), nil)
		require.NoError(t, err)
		_, _, err = client.GenerateText(context.Background(), "system", "user", service.GenerationParams{})
		assert.ErrorIs(t, err, models.ErrAIGenerationFailed)
	})

	t.Run("blank system prompt", func(t *testing.T) {
		client, err := service.NewAIClient(aiConfig("openai", "http://127.0.0.1:1"), nil)
		require.NoError(t, err)
		_, _, err = client.GenerateText(context.Background(), " ", "user", service.GenerationParams{})
		assert.ErrorIs(t, err, models.ErrAIGenerationFailed)
	})
}

func TestOllamaClient_GenerateText(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/x-ndjson")
		io.WriteString(w, `{"model":"test-model","message":{"role":"assistant","content":"Short "},"done":false}`+"\n")
		io.WriteString(w, `{"model":"test-model","message":{"role":"assistant","content":"story."},"done":true,"prompt_eval_count":9,"eval_count":4}`+"\n")
	}))
	defer srv.Close()

	// суффикс /v1 отрезается
	client, err := service.NewAIClient(aiConfig("ollama", srv.URL+"/v1"), nil)
	require.NoError(t, err)

	text, usage, err := client.GenerateText(context.Background(), "system", "user", service.GenerationParams{MaxTokens: ptr(200)})
	require.NoError(t, err)
	assert.Equal(t, "Short story.", text)
	assert.Equal(t, 13, usage.TotalTokens)

	assert.Equal(t, false, got["stream"])
	options := got["options"].(map[string]any)
	assert.EqualValues(t, 200, options["num_predict"])
	assert.NotContains(t, options, "temperature")
}

func TestNewAIClient_UnknownType(t *testing.T) {
	_, err := service.NewAIClient(aiConfig("gemini", "http://localhost"), nil)
	assert.Error(t, err)
}
