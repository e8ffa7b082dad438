package genclient_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"story-studio/shared/models"
	"story-studio/story-client/internal/domain"
	"story-studio/story-client/internal/genclient"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *genclient.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := genclient.New(srv.URL+"/", 2*time.Second, nil)
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := genclient.New("not a url", time.Second, nil)
	assert.Error(t, err)
}

func TestGenerateStory(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/api/generate-story", r.URL.Path)
			var req models.GenerateStoryRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "The Lighthouse", req.Title)
			assert.Equal(t, models.StyleMystery, req.Style)

			writeJSON(w, http.StatusOK, models.GenerateStoryResponse{
				Story: "The lamp went dark.", Title: req.Title, Style: req.Style, Chapters: 1, Status: models.StatusInProgress,
			})
		})

		resp, err := c.GenerateStory(ctx, "The Lighthouse", models.StyleMystery)
		require.NoError(t, err)
		assert.Equal(t, "The lamp went dark.", resp.Story)
		assert.Equal(t, 1, resp.Chapters)
	})

	failures := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: models.MsgGenerateStoryFailed})
		},
		"malformed payload": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("<html>"))
		},
		"empty story": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, models.GenerateStoryResponse{Story: "  "})
		},
	}
	for name, h := range failures {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, h)
			_, err := c.GenerateStory(ctx, "T", models.StyleFantasy)
			assert.ErrorIs(t, err, domain.ErrGenerationFailed)
		})
	}

	t.Run("network error", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()
		c, err := genclient.New(srv.URL, time.Second, nil)
		require.NoError(t, err)
		_, err = c.GenerateStory(ctx, "T", models.StyleFantasy)
		assert.ErrorIs(t, err, domain.ErrGenerationFailed)
	})

	t.Run("api error carries backend message", func(t *testing.T) {
		c := newTestClient(t, failures["server error"])
		_, err := c.GenerateStory(ctx, "T", models.StyleFantasy)
		assert.Contains(t, err.Error(), models.MsgGenerateStoryFailed)
	})
}

func TestNarrate(t *testing.T) {
	ctx := context.Background()
	wav := []byte("RIFF....WAVEfmt ")

	t.Run("success decodes data uri", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/text-to-speech", r.URL.Path)
			var req models.SpeechRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "Once upon a time", req.Text)
			writeJSON(w, http.StatusOK, models.SpeechResponse{
				Success:   true,
				AudioData: "data:audio/wav;base64," + base64.StdEncoding.EncodeToString(wav),
			})
		})

		audio, err := c.Narrate(ctx, "Once upon a time")
		require.NoError(t, err)
		assert.Equal(t, "audio/wav", audio.MIMEType)
		assert.Equal(t, wav, audio.Data)
	})

	t.Run("backend failure", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: models.MsgGenerateAudioFailed})
		})
		_, err := c.Narrate(ctx, "x")
		assert.ErrorIs(t, err, domain.ErrNarrationFailed)
	})

	t.Run("no audio reference", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"success": true})
		})
		_, err := c.Narrate(ctx, "x")
		assert.ErrorIs(t, err, domain.ErrNarrationFailed)
	})
}

func TestParseDataURI(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte{1, 2, 3})

	audio, err := genclient.ParseDataURI("data:audio/mpeg;base64," + payload)
	require.NoError(t, err)
	assert.Equal(t, "audio/mpeg", audio.MIMEType)
	assert.Equal(t, ".mp3", audio.Extension())

	audio, err = genclient.ParseDataURI("data:;base64," + payload)
	require.NoError(t, err)
	assert.Equal(t, "audio/wav", audio.MIMEType)

	for _, bad := range []string{
		"",
		"audio/wav;base64," + payload,
		"data:audio/wav;base64",
		"data:audio/wav," + payload,
		"data:audio/wav;base64,!!!",
		"data:audio/wav;base64,",
	} {
		_, err := genclient.ParseDataURI(bad)
		assert.Error(t, err, bad)
	}
}

func TestRemoteStories(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/stories", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []models.StoryRecord{{ID: 7, Title: "Remote", Style: models.StyleHorror, Content: "Boo", Status: models.StatusCompleted, DateCreated: created,
			Comments: []models.CommentRecord{{ID: 1, StoryID: 7, Text: "nice", Timestamp: created}}}})
	})
	mux.HandleFunc("POST /api/stories", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, models.StoryRecord{ID: 8, Title: "New", Status: models.StatusInProgress})
	})
	mux.HandleFunc("PUT /api/stories/{id}", func(w http.ResponseWriter, r *http.Request) {
		var req models.UpdateStoryRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotNil(t, req.Status)
		assert.Nil(t, req.Title)
		writeJSON(w, http.StatusOK, models.StoryRecord{ID: 7, Status: *req.Status})
	})
	mux.HandleFunc("DELETE /api/stories/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "7" {
			writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: models.MsgDeleteStoryFailed})
			return
		}
		writeJSON(w, http.StatusOK, models.MessageResponse{Message: models.MsgStoryDeleted})
	})
	mux.HandleFunc("POST /api/chat", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, models.ChatResponse{Response: "42"})
	})
	c := newTestClient(t, mux.ServeHTTP)

	list, err := c.ListStories(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "nice", list[0].Comments[0].Text)
	assert.True(t, created.Equal(list[0].DateCreated))

	rec, err := c.CreateRemoteStory(ctx, "New", models.StyleComedy)
	require.NoError(t, err)
	assert.Equal(t, int64(8), rec.ID)

	status := models.StatusCompleted
	rec, err = c.UpdateRemoteStory(ctx, 7, models.UpdateStoryRequest{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, rec.Status)

	require.NoError(t, c.DeleteRemoteStory(ctx, 7))
	err = c.DeleteRemoteStory(ctx, 9)
	assert.ErrorIs(t, err, genclient.ErrRequestFailed)

	answer, err := c.Chat(ctx, "meaning of life?")
	require.NoError(t, err)
	assert.Equal(t, "42", answer)
}

func TestErrorsKeepTheirCause(t *testing.T) {
	ctx := context.Background()
	notFound := func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: models.MsgStoryNotFound})
	}

	t.Run("api error on delete", func(t *testing.T) {
		c := newTestClient(t, notFound)
		err := c.DeleteRemoteStory(ctx, 7)
		require.ErrorIs(t, err, genclient.ErrRequestFailed)

		var apiErr *genclient.APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
		assert.Equal(t, models.MsgStoryNotFound, apiErr.Message)
	})

	t.Run("api error on generate", func(t *testing.T) {
		c := newTestClient(t, notFound)
		_, err := c.GenerateStory(ctx, "T", models.StyleFantasy)
		require.ErrorIs(t, err, domain.ErrGenerationFailed)

		var apiErr *genclient.APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	})

	t.Run("cancelled narration", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, models.SpeechResponse{Success: true, AudioData: "data:audio/wav;base64,AAAA"})
		})
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := c.Narrate(cancelled, "Hello")
		assert.ErrorIs(t, err, domain.ErrNarrationFailed)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
