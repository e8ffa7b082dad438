package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"story-studio/shared/models"
	"story-studio/story-service/internal/mocks"
	"story-studio/story-service/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type deps struct {
	ai     *mocks.MockAIClient
	speech *mocks.MockSpeechClient
	cache  *mocks.MockNarrationCache
	repo   *mocks.MockStoryRepository
}

func newService(t *testing.T, withCache bool) (service.StoryService, deps) {
	t.Helper()
	d := deps{
		ai:     mocks.NewMockAIClient(t),
		speech: mocks.NewMockSpeechClient(t),
		repo:   mocks.NewMockStoryRepository(t),
	}
	var cache service.NarrationCache
	if withCache {
		d.cache = mocks.NewMockNarrationCache(t)
		cache = d.cache
	}
	temp, maxTokens := 0.8, 1000
	params := service.GenerationParams{Temperature: &temp, MaxTokens: &maxTokens}
	return service.NewStoryService(d.ai, d.speech, cache, d.repo, params, nil), d
}

func TestGenerateStory(t *testing.T) {
	ctx := context.Background()

	t.Run("success uses storyteller prompts", func(t *testing.T) {
		svc, d := newService(t, false)
		d.ai.On("GenerateText", ctx,
			mock.MatchedBy(func(s string) bool { return strings.Contains(s, "creative storyteller") }),
			mock.MatchedBy(func(s string) bool {
				return strings.Contains(s, `title "The Lighthouse"`) && strings.Contains(s, "in the Mystery genre")
			}),
			mock.MatchedBy(func(p service.GenerationParams) bool {
				return p.Temperature != nil && *p.Temperature == 0.8 && p.MaxTokens != nil && *p.MaxTokens == 1000
			}),
		).Return("Once upon a time.", service.UsageInfo{TotalTokens: 10}, nil).Once()

		resp, err := svc.GenerateStory(ctx, "  The Lighthouse ", models.StyleMystery)
		require.NoError(t, err)
		assert.Equal(t, &models.GenerateStoryResponse{
			Story:    "Once upon a time.",
			Title:    "The Lighthouse",
			Style:    models.StyleMystery,
			Chapters: 1,
			Status:   models.StatusInProgress,
		}, resp)
	})

	t.Run("validation fails before the AI call", func(t *testing.T) {
		svc, _ := newService(t, false)

		_, err := svc.GenerateStory(ctx, "   ", models.StyleFantasy)
		assert.ErrorIs(t, err, models.ErrInvalidInput)

		_, err = svc.GenerateStory(ctx, "Title", models.Style("Western"))
		assert.ErrorIs(t, err, models.ErrInvalidInput)

		_, err = svc.GenerateStory(ctx, strings.Repeat("x", service.MaxTitleRunes+1), models.StyleFantasy)
		assert.ErrorIs(t, err, models.ErrInvalidInput)
	})

	t.Run("ai failure is propagated", func(t *testing.T) {
		svc, d := newService(t, false)
		d.ai.On("GenerateText", ctx, mock.Anything, mock.Anything, mock.Anything).
			Return("", service.UsageInfo{}, models.ErrAIGenerationFailed).Once()

		_, err := svc.GenerateStory(ctx, "Title", models.StyleFantasy)
		assert.ErrorIs(t, err, models.ErrAIGenerationFailed)
	})
}

func TestNarrate(t *testing.T) {
	ctx := context.Background()
	audio := service.Audio{MIMEType: "audio/wav", Data: []byte("RIFF")}
	const uri = "data:audio/wav;base64,UklGRg=="

	t.Run("blank text", func(t *testing.T) {
		svc, _ := newService(t, true)
		_, err := svc.Narrate(ctx, " \n ")
		assert.ErrorIs(t, err, models.ErrBadRequest)
	})

	t.Run("without cache", func(t *testing.T) {
		svc, d := newService(t, false)
		d.speech.On("Synthesize", ctx, "hello").Return(audio, nil).Once()

		got, err := svc.Narrate(ctx, "hello")
		require.NoError(t, err)
		assert.Equal(t, uri, got)
	})

	t.Run("cache miss stores the result", func(t *testing.T) {
		svc, d := newService(t, true)
		d.cache.On("Get", ctx, "hello").Return(service.Audio{}, false, nil).Once()
		d.speech.On("Synthesize", ctx, "hello").Return(audio, nil).Once()
		d.cache.On("Set", ctx, "hello", audio).Return(nil).Once()

		got, err := svc.Narrate(ctx, "hello")
		require.NoError(t, err)
		assert.Equal(t, uri, got)
	})

	t.Run("cache hit skips synthesis", func(t *testing.T) {
		svc, d := newService(t, true)
		d.cache.On("Get", ctx, "hello").Return(audio, true, nil).Once()

		got, err := svc.Narrate(ctx, "hello")
		require.NoError(t, err)
		assert.Equal(t, uri, got)
	})

	t.Run("cache errors do not fail narration", func(t *testing.T) {
		svc, d := newService(t, true)
		d.cache.On("Get", ctx, "hello").Return(service.Audio{}, false, errors.New("redis down")).Once()
		d.speech.On("Synthesize", ctx, "hello").Return(audio, nil).Once()
		d.cache.On("Set", ctx, "hello", audio).Return(errors.New("redis down")).Once()

		got, err := svc.Narrate(ctx, "hello")
		require.NoError(t, err)
		assert.Equal(t, uri, got)
	})

	t.Run("speech failure", func(t *testing.T) {
		svc, d := newService(t, true)
		d.cache.On("Get", ctx, "hello").Return(service.Audio{}, false, nil).Once()
		d.speech.On("Synthesize", ctx, "hello").Return(service.Audio{}, models.ErrSpeechFailed).Once()

		_, err := svc.Narrate(ctx, "hello")
		assert.ErrorIs(t, err, models.ErrSpeechFailed)
	})
}

func TestChat(t *testing.T) {
	ctx := context.Background()
	svc, d := newService(t, false)

	d.ai.On("GenerateText", ctx, "You are an AI assistant who knows everything.", "what is a fable?", service.GenerationParams{}).
		Return("A short moral story.", service.UsageInfo{}, nil).Once()

	reply, err := svc.Chat(ctx, "what is a fable?")
	require.NoError(t, err)
	assert.Equal(t, "A short moral story.", reply)

	_, err = svc.Chat(ctx, "  ")
	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestCreateStory(t *testing.T) {
	ctx := context.Background()

	t.Run("generates then persists in progress", func(t *testing.T) {
		svc, d := newService(t, false)
		d.ai.On("GenerateText", ctx, mock.Anything, mock.Anything, mock.Anything).
			Return("Prose.", service.UsageInfo{}, nil).Once()
		d.repo.On("Create", ctx, mock.MatchedBy(func(s *models.StoryRecord) bool {
			return s.Title == "Fresh" && s.Style == models.StyleSciFi && s.Content == "Prose." && s.Status == models.StatusInProgress
		})).Return(func(_ context.Context, s *models.StoryRecord) error {
			s.ID = 7
			return nil
		}).Once()

		story, err := svc.CreateStory(ctx, "Fresh", models.StyleSciFi)
		require.NoError(t, err)
		assert.Equal(t, int64(7), story.ID)
	})

	t.Run("generation failure persists nothing", func(t *testing.T) {
		svc, d := newService(t, false)
		d.ai.On("GenerateText", ctx, mock.Anything, mock.Anything, mock.Anything).
			Return("", service.UsageInfo{}, models.ErrAIGenerationFailed).Once()

		_, err := svc.CreateStory(ctx, "Fresh", models.StyleSciFi)
		assert.ErrorIs(t, err, models.ErrAIGenerationFailed)
		d.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestUpdateStory(t *testing.T) {
	ctx := context.Background()
	completed := models.StatusCompleted
	bogusStatus := models.StoryStatus("archived")
	bogusStyle := models.Style("Western")
	blank := "  "
	title := "  New title "

	t.Run("validation", func(t *testing.T) {
		svc, _ := newService(t, false)

		_, err := svc.UpdateStory(ctx, 1, models.UpdateStoryRequest{})
		assert.ErrorIs(t, err, models.ErrBadRequest)

		_, err = svc.UpdateStory(ctx, 1, models.UpdateStoryRequest{Status: &bogusStatus})
		assert.ErrorIs(t, err, models.ErrInvalidInput)

		_, err = svc.UpdateStory(ctx, 1, models.UpdateStoryRequest{Style: &bogusStyle})
		assert.ErrorIs(t, err, models.ErrInvalidInput)

		_, err = svc.UpdateStory(ctx, 1, models.UpdateStoryRequest{Title: &blank})
		assert.ErrorIs(t, err, models.ErrInvalidInput)
	})

	t.Run("trims title and passes through", func(t *testing.T) {
		svc, d := newService(t, false)
		d.repo.On("Update", ctx, int64(3), mock.MatchedBy(func(r models.UpdateStoryRequest) bool {
			return *r.Title == "New title" && *r.Status == models.StatusCompleted
		})).Return(&models.StoryRecord{ID: 3, Title: "New title", Status: completed}, nil).Once()

		story, err := svc.UpdateStory(ctx, 3, models.UpdateStoryRequest{Title: &title, Status: &completed})
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, story.Status)
	})
}

func TestDeleteAndComment(t *testing.T) {
	ctx := context.Background()
	svc, d := newService(t, false)

	d.repo.On("Delete", ctx, int64(5)).Return(models.ErrNotFound).Once()
	assert.ErrorIs(t, svc.DeleteStory(ctx, 5), models.ErrNotFound)

	_, err := svc.AddComment(ctx, 5, "   ")
	assert.ErrorIs(t, err, models.ErrBadRequest)

	d.repo.On("AddComment", ctx, int64(5), "Nice").Return(&models.CommentRecord{ID: 1, StoryID: 5, Text: "Nice"}, nil).Once()
	c, err := svc.AddComment(ctx, 5, " Nice ")
	require.NoError(t, err)
	assert.Equal(t, "Nice", c.Text)
}
