package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"story-studio/shared/models"
	"story-studio/story-service/internal/repository"

	"go.uber.org/zap"
)

const (
	storytellerSystemPrompt = "You are a creative storyteller who specializes in writing engaging and imaginative stories across various genres."
	storyUserPromptTemplate = `Create an engaging and creative story with the title "%s" in the %s genre. The story should be captivating, well-structured, and approximately 500 words long. Include vivid descriptions, interesting characters, and an engaging plot.`

	chatSystemPrompt = "You are an AI assistant who knows everything."

	// MaxTitleRunes - верхняя граница длины заголовка.
	MaxTitleRunes = 200
)

// StoryService - операции сервиса историй.
type StoryService interface {
	GenerateStory(ctx context.Context, title string, style models.Style) (*models.GenerateStoryResponse, error)
	// Narrate возвращает data URI с озвучкой текста.
	Narrate(ctx context.Context, text string) (string, error)
	Chat(ctx context.Context, message string) (string, error)

	ListStories(ctx context.Context) ([]models.StoryRecord, error)
	CreateStory(ctx context.Context, title string, style models.Style) (*models.StoryRecord, error)
	UpdateStory(ctx context.Context, id int64, req models.UpdateStoryRequest) (*models.StoryRecord, error)
	DeleteStory(ctx context.Context, id int64) error
	AddComment(ctx context.Context, storyID int64, text string) (*models.CommentRecord, error)
}

type storyService struct {
	ai     AIClient
	speech SpeechClient
	cache  NarrationCache // может быть nil
	repo   repository.StoryRepository
	params GenerationParams
	logger *zap.Logger
}

// NewStoryService создает сервис. cache может быть nil, тогда озвучка не кэшируется.
func NewStoryService(
	ai AIClient,
	speech SpeechClient,
	cache NarrationCache,
	repo repository.StoryRepository,
	params GenerationParams,
	logger *zap.Logger,
) StoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &storyService{
		ai:     ai,
		speech: speech,
		cache:  cache,
		repo:   repo,
		params: params,
		logger: logger.Named("StoryService"),
	}
}

// validateStory нормализует заголовок и проверяет жанр.
func validateStory(title string, style models.Style) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", fmt.Errorf("%w: title is required", models.ErrInvalidInput)
	}
	if utf8.RuneCountInString(title) > MaxTitleRunes {
		return "", fmt.Errorf("%w: title is longer than %d characters", models.ErrInvalidInput, MaxTitleRunes)
	}
	if !models.IsValidStyle(style) {
		return "", fmt.Errorf("%w: unknown style %q", models.ErrInvalidInput, style)
	}
	return title, nil
}

func (s *storyService) GenerateStory(ctx context.Context, title string, style models.Style) (*models.GenerateStoryResponse, error) {
	title, err := validateStory(title, style)
	if err != nil {
		return nil, err
	}

	log := s.logger.With(zap.String("title", title), zap.String("style", string(style)))
	log.Info("Generating story")

	prose, _, err := s.ai.GenerateText(ctx, storytellerSystemPrompt, fmt.Sprintf(storyUserPromptTemplate, title, style), s.params)
	if err != nil {
		log.Error("Story generation failed", zap.Error(err))
		return nil, err
	}

	return &models.GenerateStoryResponse{
		Story:    prose,
		Title:    title,
		Style:    style,
		Chapters: 1,
		Status:   models.StatusInProgress,
	}, nil
}

func (s *storyService) Narrate(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: text is required", models.ErrBadRequest)
	}

	if s.cache != nil {
		audio, ok, err := s.cache.Get(ctx, text)
		if err != nil {
			// кэш не обязателен, идем в TTS
			s.logger.Warn("Narration cache lookup failed", zap.Error(err))
		} else if ok {
			s.logger.Debug("Narration served from cache", zap.Int("bytes", len(audio.Data)))
			return audio.DataURI(), nil
		}
	}

	audio, err := s.speech.Synthesize(ctx, text)
	if err != nil {
		return "", err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, text, audio); err != nil {
			s.logger.Warn("Failed to cache narration", zap.Error(err))
		}
	}
	return audio.DataURI(), nil
}

func (s *storyService) Chat(ctx context.Context, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", fmt.Errorf("%w: message is required", models.ErrBadRequest)
	}
	// Параметры генерации не передаем, как и прежний чат
	reply, _, err := s.ai.GenerateText(ctx, chatSystemPrompt, message, GenerationParams{})
	if err != nil {
		s.logger.Error("Chat request failed", zap.Error(err))
		return "", err
	}
	return reply, nil
}

func (s *storyService) ListStories(ctx context.Context) ([]models.StoryRecord, error) {
	return s.repo.List(ctx)
}

func (s *storyService) CreateStory(ctx context.Context, title string, style models.Style) (*models.StoryRecord, error) {
	generated, err := s.GenerateStory(ctx, title, style)
	if err != nil {
		return nil, err
	}

	story := &models.StoryRecord{
		Title:   generated.Title,
		Style:   generated.Style,
		Content: generated.Story,
		Status:  models.StatusInProgress,
	}
	if err := s.repo.Create(ctx, story); err != nil {
		return nil, err
	}
	return story, nil
}

func (s *storyService) UpdateStory(ctx context.Context, id int64, req models.UpdateStoryRequest) (*models.StoryRecord, error) {
	if req.IsEmpty() {
		return nil, fmt.Errorf("%w: nothing to update", models.ErrBadRequest)
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" || utf8.RuneCountInString(title) > MaxTitleRunes {
			return nil, fmt.Errorf("%w: invalid title", models.ErrInvalidInput)
		}
		req.Title = &title
	}
	if req.Style != nil && !models.IsValidStyle(*req.Style) {
		return nil, fmt.Errorf("%w: unknown style %q", models.ErrInvalidInput, *req.Style)
	}
	if req.Status != nil && !models.IsValidStatus(*req.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", models.ErrInvalidInput, *req.Status)
	}
	return s.repo.Update(ctx, id, req)
}

func (s *storyService) DeleteStory(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func (s *storyService) AddComment(ctx context.Context, storyID int64, text string) (*models.CommentRecord, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: comment text is required", models.ErrBadRequest)
	}
	return s.repo.AddComment(ctx, storyID, text)
}
