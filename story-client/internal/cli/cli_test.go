package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"story-studio/shared/models"
	"story-studio/story-client/internal/cli"
	"story-studio/story-client/internal/config"
	"story-studio/story-client/internal/domain"
	"story-studio/story-client/internal/playback"
	"story-studio/story-client/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAPI struct {
	mu        sync.Mutex
	prose     string
	genErr    error
	audio     *domain.Audio
	narrErr   error
	records   []models.StoryRecord
	updated   map[int64]models.UpdateStoryRequest
	deleted   []int64
	genCalls  int
	narrCalls int
}

func (f *fakeAPI) GenerateStory(_ context.Context, title string, style domain.Style) (*models.GenerateStoryResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.genCalls++
	if f.genErr != nil {
		return nil, f.genErr
	}
	return &models.GenerateStoryResponse{Story: f.prose, Title: title, Style: style, Chapters: 1, Status: models.StatusInProgress}, nil
}

func (f *fakeAPI) Narrate(context.Context, string) (*domain.Audio, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.narrCalls++
	return f.audio, f.narrErr
}

func (f *fakeAPI) Chat(_ context.Context, message string) (string, error) {
	return "You asked: " + message, nil
}

func (f *fakeAPI) ListStories(context.Context) ([]models.StoryRecord, error) {
	return f.records, nil
}

func (f *fakeAPI) CreateRemoteStory(_ context.Context, title string, style domain.Style) (*models.StoryRecord, error) {
	return &models.StoryRecord{ID: 99, Title: title, Style: style, Content: f.prose, Status: models.StatusInProgress}, nil
}

func (f *fakeAPI) UpdateRemoteStory(_ context.Context, id int64, req models.UpdateStoryRequest) (*models.StoryRecord, error) {
	if f.updated == nil {
		f.updated = make(map[int64]models.UpdateStoryRequest)
	}
	f.updated[id] = req
	return &models.StoryRecord{ID: id, Title: "Remote", Status: *req.Status}, nil
}

func (f *fakeAPI) DeleteRemoteStory(_ context.Context, id int64) error {
	f.deleted = append(f.deleted, id)
	return nil
}

var _ cli.API = (*fakeAPI)(nil)

type harness struct {
	api   *fakeAPI
	store *store.MemoryStore
}

func newHarness() *harness {
	return &harness{
		api:   &fakeAPI{prose: "The lamp went dark.", audio: &domain.Audio{MIMEType: "audio/wav", Data: make([]byte, 4800)}},
		store: store.NewMemoryStore(),
	}
}

// run выполняет одну команду storyctl над общим хранилищем.
func (h *harness) run(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := &cli.App{
		Config: &config.Config{
			API:   config.APIConfig{BaseURL: "http://unused", Timeout: time.Second},
			Store: config.StoreConfig{Driver: config.StoreMemory, SaveTimeout: time.Second},
			Tasks: config.TasksConfig{Max: 4},
		},
		Logger: zap.NewNop(),
		API:    h.api,
		Store:  h.store,
		Player: playback.NewDiscardPlayer(0),
		In:     strings.NewReader(stdin),
		Out:    &out,
		ErrOut: &errOut,
	}
	code := cli.Execute(context.Background(), app, args)
	return code, out.String(), errOut.String()
}

func (h *harness) stories(t *testing.T) []domain.Story {
	t.Helper()
	raw, err := h.store.Load(context.Background())
	require.NoError(t, err)
	if len(raw) == 0 {
		return nil
	}
	var out []domain.Story
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestGenerateListShowSave(t *testing.T) {
	h := newHarness()

	code, out, _ := h.run(t, "", "generate", "The", "Lighthouse", "--style", "mystery")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Generating…")
	assert.Contains(t, out, "The Lighthouse")
	assert.Contains(t, out, "The lamp went dark.")

	stories := h.stories(t)
	require.Len(t, stories, 1)
	id := fmt.Sprint(stories[0].ID)
	assert.Equal(t, models.StyleMystery, stories[0].Style)

	code, out, _ = h.run(t, "", "list")
	require.Equal(t, 0, code)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "in-progress")

	code, out, _ = h.run(t, "", "save", id)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "completed")

	code, _, _ = h.run(t, "", "comment", id, "Great", "ending")
	require.Equal(t, 0, code)

	code, out, _ = h.run(t, "", "show", id)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Great ending")
	assert.Contains(t, out, "completed")
}

func TestGenerateErrors(t *testing.T) {
	h := newHarness()

	code, _, errOut := h.run(t, "", "generate", "Title", "--style", "Western")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Invalid input")
	assert.Equal(t, 0, h.api.genCalls)

	h.api.genErr = errors.New("backend down")
	code, _, errOut = h.run(t, "", "generate", "Title")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Could not generate the story. Please try again.")
	assert.Empty(t, h.stories(t))
}

func TestDeleteAndCommentEdgeCases(t *testing.T) {
	h := newHarness()

	code, out, _ := h.run(t, "", "delete", "12345")
	assert.Equal(t, 0, code, "deleting a missing story still succeeds")
	assert.Contains(t, out, "Deleted story 12345")

	code, out, errOut := h.run(t, "", "comment", "12345", "   ")
	assert.Equal(t, 0, code, "blank comment is ignored")
	assert.Empty(t, out)
	assert.Empty(t, errOut)

	code, _, errOut = h.run(t, "", "comment", "12345", "hello")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Story not found.")

	code, _, errOut = h.run(t, "", "show", "abc")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Invalid input")
}

func TestPlay(t *testing.T) {
	h := newHarness()
	require.Equal(t, 0, first(h.run(t, "", "generate", "Title")))
	id := fmt.Sprint(h.stories(t)[0].ID)

	code, out, _ := h.run(t, "", "play", id)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Loading audio…")
	assert.Contains(t, out, `Playing "Title"`)
	assert.Contains(t, out, "Finished after")

	h.api.narrErr = errors.New("tts down")
	code, _, errOut := h.run(t, "", "play", id)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Could not load narration audio. Press play to retry.")

	code, _, errOut = h.run(t, "", "play", "1")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Story not found.")
}

func TestRemote(t *testing.T) {
	h := newHarness()
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	h.api.records = []models.StoryRecord{
		{ID: 1, Title: "Remote One", Style: models.StyleHorror, Content: "Boo.", Status: models.StatusCompleted, DateCreated: created,
			Comments: []models.CommentRecord{{ID: 5, StoryID: 1, Text: "scary", Timestamp: created}}},
		{ID: 2, Title: "Remote Two", Style: models.StyleComedy, Content: "Ha.", Status: models.StatusInProgress, DateCreated: created.Add(time.Hour)},
		{ID: 3, Title: "Empty", Style: models.StyleComedy, DateCreated: created},
	}

	code, out, _ := h.run(t, "", "remote", "list")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Remote One")
	assert.Contains(t, out, "Remote Two")

	code, out, _ = h.run(t, "", "remote", "import")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Imported 2 of 3 stories")

	code, out, _ = h.run(t, "", "remote", "import")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Imported 0 of 3 stories")

	stories := h.stories(t)
	require.Len(t, stories, 2)
	assert.Equal(t, "Remote Two", stories[0].Title)
	require.Len(t, stories[1].Comments, 1)
	assert.Equal(t, "scary", stories[1].Comments[0].Text)

	code, out, _ = h.run(t, "", "remote", "complete", "1")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "completed")
	assert.Equal(t, models.StatusCompleted, *h.api.updated[1].Status)

	code, _, _ = h.run(t, "", "remote", "delete", "2")
	require.Equal(t, 0, code)
	assert.Equal(t, []int64{2}, h.api.deleted)

	code, out, _ = h.run(t, "", "remote", "create", "Fresh", "--style", "sci-fi")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Fresh")
}

func TestStylesAndChat(t *testing.T) {
	h := newHarness()

	code, out, _ := h.run(t, "", "styles")
	require.Equal(t, 0, code)
	for _, s := range models.Styles() {
		assert.Contains(t, out, string(s))
	}

	code, out, _ = h.run(t, "", "chat", "what", "is", "a", "story?")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "You asked: what is a story?")
}

func TestShell(t *testing.T) {
	h := newHarness()
	script := strings.Join([]string{
		"generate The Lighthouse / mystery",
		"wait",
		"status",
		"comment   ",
		"comment Spooky",
		"save",
		"bogus",
		"quit",
	}, "\n")

	code, out, _ := h.run(t, script, "shell")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Generating…")
	assert.Contains(t, out, "Generated story")
	assert.Contains(t, out, "Narration: Stopped")
	assert.Contains(t, out, "Comment added (1 total)")
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, `unknown command "bogus"`)

	stories := h.stories(t)
	require.Len(t, stories, 1)
	assert.Equal(t, "The Lighthouse", stories[0].Title)
	assert.Equal(t, domain.StatusCompleted, stories[0].Status)
	assert.Len(t, stories[0].Comments, 1)
}

func first(code int, _, _ string) int { return code }
