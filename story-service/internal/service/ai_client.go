package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"story-studio/shared/models"
	"story-studio/story-service/internal/config"

	"github.com/ollama/ollama/api"
	"github.com/pkoukk/tiktoken-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// GenerationParams - параметры генерации. nil = значение бэкенда по умолчанию.
type GenerationParams struct {
	Temperature *float64
	MaxTokens   *int
	TopP        *float64
}

// --- Prometheus Metrics ---
var (
	aiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "story_service_ai_requests_total",
			Help: "Total number of requests to the AI API.",
		},
		[]string{"model", "status"},
	)
	aiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "story_service_ai_request_duration_seconds",
			Help:    "Histogram of AI API request durations.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 9), // 0.5s .. 128s
		},
		[]string{"model"},
	)
	aiPromptTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "story_service_ai_prompt_tokens",
			Help:    "Histogram of prompt token counts.",
			Buckets: prometheus.LinearBuckets(50, 50, 20),
		},
		[]string{"model"},
	)
	aiCompletionTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "story_service_ai_completion_tokens",
			Help:    "Histogram of completion token counts.",
			Buckets: prometheus.LinearBuckets(100, 100, 20),
		},
		[]string{"model"},
	)
	aiTotalTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "story_service_ai_total_tokens",
			Help:    "Histogram of total token counts (prompt + completion).",
			Buckets: prometheus.LinearBuckets(150, 150, 20),
		},
		[]string{"model"},
	)
)

// UsageInfo содержит информацию об использовании токенов
type UsageInfo struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Estimated        bool // посчитано tiktoken'ом, бэкенд usage не вернул
}

// AIClient интерфейс для взаимодействия с AI API
type AIClient interface {
	// GenerateText генерирует текст на основе системного промта и ввода пользователя.
	GenerateText(ctx context.Context, systemPrompt string, userInput string, params GenerationParams) (string, UsageInfo, error)
}

// fallbackEncoding используется для моделей, которых tiktoken не знает (deepseek, llama и т.п.).
const fallbackEncoding = "cl100k_base"

var (
	encodingsMu sync.Mutex
	encodings   = map[string]*tiktoken.Tiktoken{}
)

func encodingFor(model string) (*tiktoken.Tiktoken, error) {
	encodingsMu.Lock()
	defer encodingsMu.Unlock()
	if tke, ok := encodings[model]; ok {
		return tke, nil
	}
	tke, err := tiktoken.EncodingForModel(model)
	if err != nil {
		tke, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return nil, err
		}
	}
	encodings[model] = tke
	return tke, nil
}

// EstimateTokens - приблизительное число токенов текста для модели.
func EstimateTokens(model string, texts ...string) (int, error) {
	tke, err := encodingFor(model)
	if err != nil {
		return 0, fmt.Errorf("tokenizer for model %s: %w", model, err)
	}
	n := 0
	for _, t := range texts {
		n += len(tke.Encode(t, nil, nil))
	}
	return n, nil
}

func observeUsage(model string, usage UsageInfo) {
	if usage.TotalTokens <= 0 {
		return
	}
	labels := prometheus.Labels{"model": model}
	aiPromptTokens.With(labels).Observe(float64(usage.PromptTokens))
	aiCompletionTokens.With(labels).Observe(float64(usage.CompletionTokens))
	aiTotalTokens.With(labels).Observe(float64(usage.TotalTokens))
}

// estimateUsage заполняет usage tiktoken'ом, если бэкенд его не прислал.
func estimateUsage(model, systemPrompt, userInput, completion string, logger *zap.Logger) UsageInfo {
	prompt, err := EstimateTokens(model, systemPrompt, userInput)
	if err != nil {
		logger.Warn("Could not estimate token usage", zap.String("model", model), zap.Error(err))
		return UsageInfo{}
	}
	out, _ := EstimateTokens(model, completion)
	return UsageInfo{PromptTokens: prompt, CompletionTokens: out, TotalTokens: prompt + out, Estimated: true}
}

func buildMessages(systemPrompt, userInput string) []openaigo.ChatCompletionMessage {
	messages := []openaigo.ChatCompletionMessage{
		{Role: openaigo.ChatMessageRoleSystem, Content: systemPrompt},
	}
	if userInput != "" {
		messages = append(messages, openaigo.ChatCompletionMessage{Role: openaigo.ChatMessageRoleUser, Content: userInput})
	}
	return messages
}

// --- OpenAI Client Implementation ---

// openAIClient реализует AIClient с использованием go-openai (любой OpenAI-совместимый API, в т.ч. aimlapi)
type openAIClient struct {
	client *openaigo.Client
	model  string
	logger *zap.Logger
}

func (c *openAIClient) GenerateText(ctx context.Context, systemPrompt string, userInput string, params GenerationParams) (string, UsageInfo, error) {
	if strings.TrimSpace(systemPrompt) == "" {
		aiRequestsTotal.With(prometheus.Labels{"model": c.model, "status": "error"}).Inc()
		return "", UsageInfo{}, fmt.Errorf("%w: системный промт пуст", models.ErrAIGenerationFailed)
	}

	startTime := time.Now()
	c.logger.Debug("Sending AI request",
		zap.String("model", c.model),
		zap.Int("systemPromptBytes", len(systemPrompt)),
		zap.Int("userInputBytes", len(userInput)),
	)

	resp, err := c.client.CreateChatCompletion(ctx, openaigo.ChatCompletionRequest{
		Model:       c.model,
		Messages:    buildMessages(systemPrompt, userInput),
		Temperature: float32Val(params.Temperature),
		MaxTokens:   intVal(params.MaxTokens),
		TopP:        float32Val(params.TopP),
	})
	duration := time.Since(startTime)

	if err != nil {
		c.logger.Error("AI API error", zap.Duration("duration", duration), zap.Error(err))
		aiRequestsTotal.With(prometheus.Labels{"model": c.model, "status": "error"}).Inc()
		return "", UsageInfo{}, fmt.Errorf("%w: %w", models.ErrAIGenerationFailed, err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		c.logger.Warn("AI API returned an empty response", zap.Duration("duration", duration))
		aiRequestsTotal.With(prometheus.Labels{"model": c.model, "status": "error_empty_response"}).Inc()
		return "", UsageInfo{}, fmt.Errorf("%w: получен пустой ответ", models.ErrAIGenerationFailed)
	}

	aiRequestsTotal.With(prometheus.Labels{"model": c.model, "status": "success"}).Inc()
	aiRequestDuration.With(prometheus.Labels{"model": c.model}).Observe(duration.Seconds())

	text := resp.Choices[0].Message.Content
	usage := UsageInfo{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}
	if usage.TotalTokens == 0 {
		usage = estimateUsage(c.model, systemPrompt, userInput, text, c.logger)
	}
	observeUsage(c.model, usage)

	c.logger.Info("AI response received",
		zap.Duration("duration", duration),
		zap.Int("chars", len(text)),
		zap.Int("totalTokens", usage.TotalTokens),
		zap.Bool("estimated", usage.Estimated),
	)
	return text, usage, nil
}

// float32Val: nil превращается в 0, go-openai тогда не отправляет поле (omitempty).
func float32Val(f64 *float64) float32 {
	if f64 == nil {
		return 0
	}
	return float32(*f64)
}

func intVal(i *int) int {
	if i == nil {
		return 0
	}
	return *i
}

// --- Ollama Client Implementation ---

// ollamaClient реализует AIClient с использованием ollama/api
type ollamaClient struct {
	client  *api.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// newOllamaClient создает новый клиент для взаимодействия с Ollama
func newOllamaClient(cfg *config.Config, logger *zap.Logger) (AIClient, error) {
	// api.NewClient требует URL без суффикса /v1
	ollamaBaseURL := strings.TrimSuffix(strings.TrimSuffix(cfg.AIBaseURL, "/"), "/v1")

	parsedURL, err := url.Parse(ollamaBaseURL)
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга Ollama Base URL '%s': %w", ollamaBaseURL, err)
	}

	client := api.NewClient(parsedURL, &http.Client{Timeout: cfg.AITimeout})
	logger.Info("Ollama client created",
		zap.String("baseURL", ollamaBaseURL),
		zap.String("model", cfg.AIModel),
		zap.Duration("timeout", cfg.AITimeout),
	)

	return &ollamaClient{
		client:  client,
		model:   cfg.AIModel,
		timeout: cfg.AITimeout,
		logger:  logger,
	}, nil
}

func (c *ollamaClient) GenerateText(ctx context.Context, systemPrompt string, userInput string, params GenerationParams) (string, UsageInfo, error) {
	if strings.TrimSpace(systemPrompt) == "" {
		aiRequestsTotal.With(prometheus.Labels{"model": c.model, "status": "error"}).Inc()
		return "", UsageInfo{}, fmt.Errorf("%w: системный промт пуст", models.ErrAIGenerationFailed)
	}

	messages := []api.Message{{Role: "system", Content: systemPrompt}}
	if userInput != "" {
		messages = append(messages, api.Message{Role: "user", Content: userInput})
	}

	options := map[string]interface{}{}
	if params.Temperature != nil {
		options["temperature"] = *params.Temperature
	}
	if params.TopP != nil {
		options["top_p"] = *params.TopP
	}
	if params.MaxTokens != nil {
		options["num_predict"] = *params.MaxTokens
	}

	stream := false
	req := &api.ChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   &stream,
		Options:  options,
	}

	requestCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	startTime := time.Now()
	c.logger.Debug("Sending Ollama request",
		zap.String("model", c.model),
		zap.Int("systemPromptBytes", len(systemPrompt)),
		zap.Int("userInputBytes", len(userInput)),
	)

	var resp api.ChatResponse
	var content strings.Builder
	err := c.client.Chat(requestCtx, req, func(r api.ChatResponse) error {
		content.WriteString(r.Message.Content)
		resp = r
		return nil
	})
	duration := time.Since(startTime)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			c.logger.Error("Ollama request timed out", zap.Duration("timeout", c.timeout), zap.Error(err))
		} else {
			c.logger.Error("Ollama API error", zap.Duration("duration", duration), zap.Error(err))
		}
		aiRequestsTotal.With(prometheus.Labels{"model": c.model, "status": "error"}).Inc()
		return "", UsageInfo{}, fmt.Errorf("%w: %w", models.ErrAIGenerationFailed, err)
	}

	text := content.String()
	if strings.TrimSpace(text) == "" {
		c.logger.Warn("Ollama API returned an empty response", zap.Duration("duration", duration))
		aiRequestsTotal.With(prometheus.Labels{"model": c.model, "status": "error_empty_response"}).Inc()
		return "", UsageInfo{}, fmt.Errorf("%w: получен пустой ответ", models.ErrAIGenerationFailed)
	}

	aiRequestsTotal.With(prometheus.Labels{"model": c.model, "status": "success"}).Inc()
	aiRequestDuration.With(prometheus.Labels{"model": c.model}).Observe(duration.Seconds())

	usage := UsageInfo{
		PromptTokens:     resp.PromptEvalCount,
		CompletionTokens: resp.EvalCount,
		TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
	}
	if usage.TotalTokens == 0 {
		usage = estimateUsage(c.model, systemPrompt, userInput, text, c.logger)
	}
	observeUsage(c.model, usage)

	c.logger.Info("Ollama response received",
		zap.Duration("duration", duration),
		zap.Int("chars", len(text)),
		zap.Int("totalTokens", usage.TotalTokens),
	)
	return text, usage, nil
}

// --- Factory Function ---

// NewAIClient создает клиент AI в зависимости от конфигурации
func NewAIClient(cfg *config.Config, logger *zap.Logger) (AIClient, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("AIClient")

	switch strings.ToLower(cfg.AIClientType) {
	case config.AIClientOpenAI:
		openaiConfig := openaigo.DefaultConfig(cfg.AIAPIKey)
		openaiConfig.BaseURL = cfg.AIBaseURL
		openaiConfig.HTTPClient = &http.Client{Timeout: cfg.AITimeout}
		logger.Info("OpenAI client created",
			zap.String("baseURL", cfg.AIBaseURL),
			zap.String("model", cfg.AIModel),
			zap.Duration("timeout", cfg.AITimeout),
		)
		return &openAIClient{
			client: openaigo.NewClientWithConfig(openaiConfig),
			model:  cfg.AIModel,
			logger: logger,
		}, nil
	case config.AIClientOllama:
		return newOllamaClient(cfg, logger)
	default:
		return nil, fmt.Errorf("неизвестный тип AI клиента: '%s'", cfg.AIClientType)
	}
}
