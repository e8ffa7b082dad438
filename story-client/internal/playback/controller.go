// Package playback - конечный автомат озвучки одной истории.
package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"story-studio/pkg/taskmanager"
	"story-studio/story-client/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// State - состояние контроллера.
type State int

const (
	Idle State = iota
	Loading
	ReadyPaused
	ReadyPlaying
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case ReadyPaused:
		return "paused"
	case ReadyPlaying:
		return "playing"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Narrator получает озвучку текста (genclient.Client).
type Narrator interface {
	Narrate(ctx context.Context, text string) (*domain.Audio, error)
}

// Runner запускает фоновые задачи (taskmanager.TaskManager).
type Runner interface {
	Submit(ctx context.Context, kind string, fn taskmanager.TaskFunc, callbacks ...taskmanager.TaskCallback) (uuid.UUID, error)
	CancelTask(taskID uuid.UUID) error
}

const narrationTaskKind = "narration"

// Controller управляет озвучкой одной истории.
// Загруженное аудио живет до Teardown; epoch отсекает ответы, пришедшие после Teardown.
type Controller struct {
	storyID  int64
	content  string
	narrator Narrator
	player   Player
	runner   Runner
	logger   *zap.Logger
	observer func(State)

	mu      sync.Mutex
	state   State
	err     error
	audio   *domain.Audio
	track   Track
	epoch   uint64
	fetchID uuid.UUID
	events  []State
}

// Option настраивает Controller.
type Option func(*Controller)

// WithStateObserver вызывается после каждой смены состояния, вне блокировки контроллера.
func WithStateObserver(fn func(State)) Option {
	return func(c *Controller) { c.observer = fn }
}

func NewController(story domain.Story, narrator Narrator, player Player, runner Runner, logger *zap.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Controller{
		storyID:  story.ID,
		content:  story.Content,
		narrator: narrator,
		player:   player,
		runner:   runner,
		logger:   logger.Named("PlaybackController").With(zap.Int64("storyID", story.ID)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) StoryID() int64 { return c.storyID }

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err возвращает причину перехода в Failed.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Play:
//   - Idle, Failed: Loading и загрузка озвучки;
//   - ReadyPaused: продолжить дорожку или начать заново из кэша, без нового запроса;
//   - Loading, ReadyPlaying: ничего.
//
// Ошибка возвращается только если не удалось запустить загрузку или дорожку;
// контроллер при этом уже в Failed.
func (c *Controller) Play(ctx context.Context) error {
	c.mu.Lock()
	defer c.unlockAndNotify()

	switch c.state {
	case Loading, ReadyPlaying:
		return nil
	case ReadyPaused:
		if c.track != nil {
			err := c.track.Resume()
			if err == nil {
				c.setStateLocked(ReadyPlaying)
				return nil
			}
			if !errors.Is(err, ErrTrackEnded) {
				c.logger.Warn("Failed to resume track", zap.Error(err))
				return err
			}
			// Дорожка доиграла, пока стояла на паузе: начинаем заново из кэша
			c.track = nil
		}
		if c.audio != nil {
			return c.startLocked(ctx)
		}
	}
	return c.fetchLocked(ctx)
}

// Pause: ReadyPlaying -> ReadyPaused, в остальных состояниях ничего не делает.
func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.unlockAndNotify()

	if c.state != ReadyPlaying || c.track == nil {
		return nil
	}
	if err := c.track.Pause(); err != nil && !errors.Is(err, ErrTrackEnded) {
		c.logger.Warn("Failed to pause track", zap.Error(err))
		return err
	}
	// Если дорожка уже закончилась, watch переведет в ReadyPaused сам; результат тот же
	c.setStateLocked(ReadyPaused)
	return nil
}

// Teardown возвращает контроллер в Idle из любого состояния: останавливает дорожку,
// сбрасывает кэш и отменяет загрузку. Поздний ответ загрузки будет отброшен.
func (c *Controller) Teardown() {
	c.mu.Lock()
	defer c.unlockAndNotify()

	c.epoch++
	if c.track != nil {
		if err := c.track.Stop(); err != nil {
			c.logger.Warn("Failed to stop track", zap.Error(err))
		}
		c.track = nil
	}
	if c.fetchID != uuid.Nil {
		if err := c.runner.CancelTask(c.fetchID); err != nil && !errors.Is(err, taskmanager.ErrTaskNotFound) {
			c.logger.Warn("Failed to cancel narration task", zap.Error(err))
		}
		c.fetchID = uuid.Nil
	}
	c.audio = nil
	c.err = nil
	c.setStateLocked(Idle)
}

func (c *Controller) fetchLocked(ctx context.Context) error {
	epoch := c.epoch
	c.err = nil
	c.setStateLocked(Loading)

	id, err := c.runner.Submit(ctx, narrationTaskKind, func(taskCtx context.Context) error {
		audio, err := c.narrator.Narrate(taskCtx, c.content)
		c.finishFetch(taskCtx, epoch, audio, err)
		return err
	})
	if err != nil {
		c.logger.Error("Failed to submit narration task", zap.Error(err))
		c.failLocked(fmt.Errorf("%w: %w", domain.ErrNarrationFailed, err))
		return c.err
	}
	c.fetchID = id
	c.logger.Info("Loading narration", zap.Stringer("taskID", id))
	return nil
}

func (c *Controller) finishFetch(ctx context.Context, epoch uint64, audio *domain.Audio, err error) {
	c.mu.Lock()
	defer c.unlockAndNotify()

	if epoch != c.epoch {
		c.logger.Info("Discarding stale narration result", zap.Uint64("epoch", epoch), zap.Uint64("current", c.epoch))
		return
	}
	c.fetchID = uuid.Nil

	if err == nil && (audio == nil || len(audio.Data) == 0) {
		err = errors.New("empty audio")
	}
	if err != nil {
		if !errors.Is(err, domain.ErrNarrationFailed) {
			err = fmt.Errorf("%w: %w", domain.ErrNarrationFailed, err)
		}
		c.logger.Warn("Narration failed", zap.Error(err))
		c.failLocked(err)
		return
	}

	c.audio = audio
	_ = c.startLocked(ctx)
}

// startLocked запускает дорожку из кэша и следит за ее окончанием.
func (c *Controller) startLocked(ctx context.Context) error {
	track, err := c.player.Start(ctx, *c.audio)
	if err != nil {
		c.logger.Error("Failed to start playback", zap.Error(err))
		c.audio = nil
		c.failLocked(fmt.Errorf("%w: %w", domain.ErrNarrationFailed, err))
		return c.err
	}
	c.track = track
	c.setStateLocked(ReadyPlaying)
	c.logger.Info("Playback started", zap.String("mime", c.audio.MIMEType), zap.Int("bytes", len(c.audio.Data)))

	go c.watch(c.epoch, track)
	return nil
}

func (c *Controller) watch(epoch uint64, track Track) {
	err := <-track.Done()

	c.mu.Lock()
	defer c.unlockAndNotify()

	if epoch != c.epoch || c.track != track {
		return
	}
	c.track = nil
	if err != nil {
		c.logger.Warn("Playback error", zap.Error(err))
		c.audio = nil
		c.failLocked(fmt.Errorf("%w: %w", domain.ErrNarrationFailed, err))
		return
	}
	// Конец дорожки - пауза, аудио остается для повтора
	c.logger.Debug("Playback ended")
	c.setStateLocked(ReadyPaused)
}

func (c *Controller) failLocked(err error) {
	c.err = err
	c.setStateLocked(Failed)
}

func (c *Controller) setStateLocked(s State) {
	if c.state == s {
		return
	}
	c.state = s
	if c.observer != nil {
		c.events = append(c.events, s)
	}
}

func (c *Controller) unlockAndNotify() {
	events := c.events
	c.events = nil
	c.mu.Unlock()
	for _, s := range events {
		c.observer(s)
	}
}
