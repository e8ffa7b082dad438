package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"story-studio/shared/models"
	"story-studio/story-service/internal/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// DefaultAudioMIME - тип аудио, если бэкенд его не сообщил. linear16 приходит как wav.
const DefaultAudioMIME = "audio/wav"

// maxAudioBytes ограничивает размер ответа TTS.
const maxAudioBytes = 64 << 20

var (
	speechRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "story_service_speech_requests_total",
			Help: "Total number of requests to the speech synthesis API.",
		},
		[]string{"status"},
	)
	speechRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "story_service_speech_request_duration_seconds",
			Help:    "Histogram of speech synthesis request durations.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 9),
		},
	)
)

// Audio - синтезированная речь.
type Audio struct {
	MIMEType string
	Data     []byte
}

// DataURI кодирует аудио в data URI (data:audio/wav;base64,...).
func (a Audio) DataURI() string {
	mimeType := a.MIMEType
	if mimeType == "" {
		mimeType = DefaultAudioMIME
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(a.Data)
}

// SpeechClient синтезирует речь из текста.
type SpeechClient interface {
	Synthesize(ctx context.Context, text string) (Audio, error)
}

// --- aimlapi /tts ---

type aimlSpeechClient struct {
	httpClient *http.Client
	url        string
	apiKey     string
	model      string
	encoding   string
	logger     *zap.Logger
}

type aimlSpeechRequest struct {
	Text     string `json:"text"`
	Model    string `json:"model"`
	Encoding string `json:"encoding"`
}

func (c *aimlSpeechClient) Synthesize(ctx context.Context, text string) (Audio, error) {
	body, err := json.Marshal(aimlSpeechRequest{Text: text, Model: c.model, Encoding: c.encoding})
	if err != nil {
		return Audio{}, fmt.Errorf("%w: marshal request: %v", models.ErrSpeechFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Audio{}, fmt.Errorf("%w: build request: %v", models.ErrSpeechFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		speechRequestsTotal.With(prometheus.Labels{"status": "error"}).Inc()
		c.logger.Error("TTS request failed", zap.Error(err))
		return Audio{}, fmt.Errorf("%w: %w", models.ErrSpeechFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		speechRequestsTotal.With(prometheus.Labels{"status": "error_status"}).Inc()
		c.logger.Error("TTS API error", zap.Int("status", resp.StatusCode), zap.ByteString("body", snippet))
		return Audio{}, fmt.Errorf("%w: API error: %d", models.ErrSpeechFailed, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		speechRequestsTotal.With(prometheus.Labels{"status": "error_read"}).Inc()
		return Audio{}, fmt.Errorf("%w: read body: %v", models.ErrSpeechFailed, err)
	}
	return c.finish(start, audioMIME(resp.Header.Get("Content-Type")), data)
}

func (c *aimlSpeechClient) finish(start time.Time, mimeType string, data []byte) (Audio, error) {
	if len(data) == 0 {
		speechRequestsTotal.With(prometheus.Labels{"status": "error_empty_response"}).Inc()
		return Audio{}, fmt.Errorf("%w: empty audio", models.ErrSpeechFailed)
	}
	speechRequestsTotal.With(prometheus.Labels{"status": "success"}).Inc()
	speechRequestDuration.Observe(time.Since(start).Seconds())
	c.logger.Info("Speech synthesized", zap.Int("bytes", len(data)), zap.String("mime", mimeType), zap.Duration("duration", time.Since(start)))
	return Audio{MIMEType: mimeType, Data: data}, nil
}

// audioMIME берет тип из Content-Type, если это аудио.
func audioMIME(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "audio/") {
		return DefaultAudioMIME
	}
	return mediaType
}

// --- OpenAI /audio/speech ---

type openAISpeechClient struct {
	client *openaigo.Client
	model  string
	voice  string
	logger *zap.Logger
}

func (c *openAISpeechClient) Synthesize(ctx context.Context, text string) (Audio, error) {
	start := time.Now()
	resp, err := c.client.CreateSpeech(ctx, openaigo.CreateSpeechRequest{
		Model:          openaigo.SpeechModel(c.model),
		Input:          text,
		Voice:          openaigo.SpeechVoice(c.voice),
		ResponseFormat: openaigo.SpeechResponseFormatWav,
	})
	if err != nil {
		speechRequestsTotal.With(prometheus.Labels{"status": "error"}).Inc()
		c.logger.Error("OpenAI speech request failed", zap.Error(err))
		return Audio{}, fmt.Errorf("%w: %w", models.ErrSpeechFailed, err)
	}
	defer resp.Close()

	data, err := io.ReadAll(io.LimitReader(resp, maxAudioBytes))
	if err != nil {
		speechRequestsTotal.With(prometheus.Labels{"status": "error_read"}).Inc()
		return Audio{}, fmt.Errorf("%w: read body: %v", models.ErrSpeechFailed, err)
	}
	if len(data) == 0 {
		speechRequestsTotal.With(prometheus.Labels{"status": "error_empty_response"}).Inc()
		return Audio{}, fmt.Errorf("%w: empty audio", models.ErrSpeechFailed)
	}
	speechRequestsTotal.With(prometheus.Labels{"status": "success"}).Inc()
	speechRequestDuration.Observe(time.Since(start).Seconds())
	return Audio{MIMEType: DefaultAudioMIME, Data: data}, nil
}

// NewSpeechClient создает клиент синтеза речи в зависимости от конфигурации
func NewSpeechClient(cfg *config.Config, logger *zap.Logger) (SpeechClient, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("SpeechClient")

	switch strings.ToLower(cfg.SpeechClientType) {
	case config.SpeechClientAIML:
		logger.Info("aimlapi speech client created", zap.String("url", cfg.SpeechURL), zap.String("model", cfg.SpeechModel))
		return &aimlSpeechClient{
			httpClient: &http.Client{Timeout: cfg.SpeechTimeout},
			url:        cfg.SpeechURL,
			apiKey:     cfg.AIAPIKey,
			model:      cfg.SpeechModel,
			encoding:   cfg.SpeechEncoding,
			logger:     logger,
		}, nil
	case config.SpeechClientOpenAI:
		openaiConfig := openaigo.DefaultConfig(cfg.AIAPIKey)
		openaiConfig.BaseURL = cfg.AIBaseURL
		openaiConfig.HTTPClient = &http.Client{Timeout: cfg.SpeechTimeout}
		logger.Info("OpenAI speech client created", zap.String("baseURL", cfg.AIBaseURL), zap.String("model", cfg.SpeechModel))
		return &openAISpeechClient{
			client: openaigo.NewClientWithConfig(openaiConfig),
			model:  cfg.SpeechModel,
			voice:  cfg.SpeechVoice,
			logger: logger,
		}, nil
	default:
		return nil, fmt.Errorf("неизвестный тип клиента синтеза речи: '%s'", cfg.SpeechClientType)
	}
}
