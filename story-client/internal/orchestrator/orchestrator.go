// Package orchestrator превращает один запрос "создать историю" в мутацию коллекции.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"story-studio/shared/models"
	"story-studio/story-client/internal/domain"

	"go.uber.org/zap"
)

// StoryGenerator - бэкенд генерации (genclient.Client).
type StoryGenerator interface {
	GenerateStory(ctx context.Context, title string, style domain.Style) (*models.GenerateStoryResponse, error)
}

// Inserter - коллекция, куда попадает готовая история.
type Inserter interface {
	Create(story domain.Story) error
}

// Orchestrator проверяет ввод, вызывает генерацию и добавляет историю в коллекцию.
// Не защищает от параллельных вызовов: "одна генерация за раз" обеспечивает вызывающая сторона.
type Orchestrator struct {
	generator StoryGenerator
	stories   Inserter
	ids       *domain.IDGenerator
	now       func() time.Time
	logger    *zap.Logger

	pending         atomic.Int32
	pendingObserver func(bool)
}

// Option настраивает Orchestrator.
type Option func(*Orchestrator)

// WithPendingObserver вызывается при включении и выключении индикатора "генерация идет".
func WithPendingObserver(fn func(bool)) Option {
	return func(o *Orchestrator) { o.pendingObserver = fn }
}

// WithClock подменяет часы.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func New(generator StoryGenerator, stories Inserter, ids *domain.IDGenerator, logger *zap.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ids == nil {
		ids = domain.NewIDGenerator(nil)
	}
	o := &Orchestrator{
		generator: generator,
		stories:   stories,
		ids:       ids,
		now:       time.Now,
		logger:    logger.Named("GenerationOrchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Pending сообщает, что генерация выполняется.
func (o *Orchestrator) Pending() bool {
	return o.pending.Load() > 0
}

// Generate создает историю. Ошибки:
//   - ErrValidation: пустой или слишком длинный заголовок, неизвестный жанр (сеть не трогаем);
//   - ErrGenerationFailed: бэкенд недоступен, ответил ошибкой или запрос отменен;
//   - ошибка коллекции (ErrDuplicateID), если вставка не удалась.
//
// При любой ошибке коллекция не меняется.
func (o *Orchestrator) Generate(ctx context.Context, title string, style domain.Style) (domain.Story, error) {
	title, err := domain.ValidateTitle(title)
	if err != nil {
		return domain.Story{}, err
	}
	if err := domain.ValidateStyle(style); err != nil {
		return domain.Story{}, err
	}

	o.setPending(true)
	defer o.setPending(false)

	log := o.logger.With(zap.String("title", title), zap.String("style", string(style)))
	log.Info("Generating story")
	start := o.now()

	resp, err := o.generator.GenerateStory(ctx, title, style)
	if ctxErr := ctx.Err(); ctxErr != nil {
		// Ответ пришел после отмены (сессия закрыта) - отбрасываем
		log.Info("Discarding generation result: request was cancelled", zap.Error(ctxErr))
		return domain.Story{}, fmt.Errorf("%w: %w", domain.ErrGenerationFailed, ctxErr)
	}
	if err != nil {
		log.Warn("Story generation failed", zap.Error(err))
		if !errors.Is(err, domain.ErrGenerationFailed) {
			err = fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err)
		}
		return domain.Story{}, err
	}
	if resp == nil || strings.TrimSpace(resp.Story) == "" {
		log.Warn("Story generation returned no content")
		return domain.Story{}, fmt.Errorf("%w: empty story", domain.ErrGenerationFailed)
	}

	now := o.now()
	story := domain.Story{
		ID:           o.ids.Next(),
		Title:        title,
		Style:        style,
		Content:      resp.Story,
		Status:       domain.StatusInProgress,
		Chapters:     resp.Chapters,
		DateCreated:  now,
		LastModified: now,
		Comments:     []domain.Comment{},
	}
	if err := o.stories.Create(story); err != nil {
		log.Error("Failed to insert generated story", zap.Int64("id", story.ID), zap.Error(err))
		return domain.Story{}, err
	}

	log.Info("Story generated", zap.Int64("id", story.ID), zap.Int("chars", len(story.Content)), zap.Duration("took", now.Sub(start)))
	return story, nil
}

func (o *Orchestrator) setPending(on bool) {
	if on {
		o.pending.Add(1)
	} else {
		o.pending.Add(-1)
	}
	if o.pendingObserver != nil {
		o.pendingObserver(on)
	}
}
