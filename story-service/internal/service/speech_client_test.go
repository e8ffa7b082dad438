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

func speechConfig(clientType, url string) *config.Config {
	return &config.Config{
		SpeechClientType: clientType,
		SpeechURL:        url,
		AIBaseURL:        url,
		SpeechModel:      "#g1_aura-asteria-en",
		SpeechEncoding:   "linear16",
		SpeechVoice:      "alloy",
		SpeechTimeout:    5 * time.Second,
		AIAPIKey:         "sk-test",
	}
}

func TestAIMLSpeechClient(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		var got map[string]string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
			body, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(body, &got))
			w.Header().Set("Content-Type", "application/octet-stream")
			w.Write([]byte("RIFFdata"))
		}))
		defer srv.Close()

		client, err := service.NewSpeechClient(speechConfig("aimlapi", srv.URL), nil)
		require.NoError(t, err)

		audio, err := client.Synthesize(context.Background(), "Hello there")
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"text": "Hello there", "model": "#g1_aura-asteria-en", "encoding": "linear16"}, got)
		assert.Equal(t, "audio/wav", audio.MIMEType, "non-audio content type falls back to wav")
		assert.Equal(t, []byte("RIFFdata"), audio.Data)
		assert.Equal(t, "data:audio/wav;base64,UklGRmRhdGE=", audio.DataURI())
	})

	t.Run("audio content type is kept", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "audio/mpeg; charset=binary")
			w.Write([]byte{0xff, 0xfb})
		}))
		defer srv.Close()

		client, err := service.NewSpeechClient(speechConfig("aimlapi", srv.URL), nil)
		require.NoError(t, err)
		audio, err := client.Synthesize(context.Background(), "x")
		require.NoError(t, err)
		assert.Equal(t, "audio/mpeg", audio.MIMEType)
	})

	t.Run("api error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "quota exceeded", http.StatusPaymentRequired)
		}))
		defer srv.Close()

		client, err := service.NewSpeechClient(speechConfig("aimlapi", srv.URL), nil)
		require.NoError(t, err)
		_, err = client.Synthesize(context.Background(), "x")
		assert.ErrorIs(t, err, models.ErrSpeechFailed)
		assert.ErrorContains(t, err, "402")
	})

	t.Run("empty body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		client, err := service.NewSpeechClient(speechConfig("aimlapi", srv.URL), nil)
		require.NoError(t, err)
		_, err = client.Synthesize(context.Background(), "x")
		assert.ErrorIs(t, err, models.ErrSpeechFailed)
	})
}

func TestOpenAISpeechClient(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/speech", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.Header().Set("Content-Type", "audio/wav")
		w.Write([]byte("RIFF"))
	}))
	defer srv.Close()

	cfg := speechConfig("openai", srv.URL)
	cfg.SpeechModel = "tts-1"
	client, err := service.NewSpeechClient(cfg, nil)
	require.NoError(t, err)

	audio, err := client.Synthesize(context.Background(), "Hello")
	require.NoError(t, err)
	assert.Equal(t, []byte("RIFF"), audio.Data)
	assert.Equal(t, "tts-1", got["model"])
	assert.Equal(t, "Hello", got["input"])
	assert.Equal(t, "wav", got["response_format"])
}

func TestAudioDataURIDefaultsMIME(t *testing.T) {
	assert.Equal(t, "data:audio/wav;base64,AQI=", service.Audio{Data: []byte{1, 2}}.DataURI())
}
