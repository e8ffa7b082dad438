// Package session собирает коллекцию, генерацию и озвучку в одну пользовательскую сессию.
// Все состояние принадлежит Session; глобальных синглтонов нет.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"story-studio/pkg/taskmanager"
	"story-studio/story-client/internal/collection"
	"story-studio/story-client/internal/domain"
	"story-studio/story-client/internal/orchestrator"
	"story-studio/story-client/internal/playback"
	"story-studio/story-client/internal/store"

	"go.uber.org/zap"
)

const generationTaskKind = "generation"

// Config - параметры сессии.
type Config struct {
	MaxTasks    int
	SaveTimeout time.Duration
}

// Deps - внешние возможности сессии.
type Deps struct {
	Generator orchestrator.StoryGenerator
	Narrator  playback.Narrator
	Player    playback.Player
	Store     store.Adapter
}

// Option настраивает Session.
type Option func(*options)

type options struct {
	now              func() time.Time
	pendingObserver  func(bool)
	playbackObserver func(id int64, state playback.State)
}

// WithClock подменяет часы.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithPendingObserver получает включение и выключение индикатора "Generating…".
func WithPendingObserver(fn func(bool)) Option {
	return func(o *options) { o.pendingObserver = fn }
}

// WithPlaybackObserver получает смену состояния любого контроллера озвучки.
func WithPlaybackObserver(fn func(id int64, state playback.State)) Option {
	return func(o *options) { o.playbackObserver = fn }
}

// Session - владелец состояния одной пользовательской сессии.
type Session struct {
	stories   *collection.Collection
	orch      *orchestrator.Orchestrator
	persister *store.Persister
	tasks     *taskmanager.TaskManager
	narrator  playback.Narrator
	player    playback.Player
	opts      options
	logger    *zap.Logger

	lifetime context.Context
	stop     context.CancelFunc

	generating atomic.Bool

	mu          sync.Mutex
	controllers map[int64]*playback.Controller
	active      int64
	hasActive   bool
	closeOnce   sync.Once
	closeErr    error
}

// Open загружает коллекцию из хранилища и возвращает готовую сессию.
// Нечитаемый снимок не ошибка: сессия начинается с пустой коллекции.
func Open(ctx context.Context, cfg Config, deps Deps, logger *zap.Logger, opts ...Option) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	adapter := deps.Store
	if adapter == nil {
		adapter = store.NewMemoryStore()
	}
	persister := store.NewPersister(adapter, cfg.SaveTimeout, logger)
	ids := domain.NewIDGenerator(o.now)
	stories := collection.Load(ctx, adapter, persister, ids, logger, collection.WithClock(o.now))

	lifetime, stop := context.WithCancel(context.Background())
	s := &Session{
		stories:     stories,
		persister:   persister,
		tasks:       taskmanager.New(taskmanager.Config{MaxTasks: cfg.MaxTasks}, logger),
		narrator:    deps.Narrator,
		player:      deps.Player,
		opts:        o,
		logger:      logger.Named("Session"),
		lifetime:    lifetime,
		stop:        stop,
		controllers: make(map[int64]*playback.Controller),
	}
	s.orch = orchestrator.New(deps.Generator, stories, ids, logger,
		orchestrator.WithClock(o.now),
		orchestrator.WithPendingObserver(o.pendingObserver),
	)
	s.logger.Info("Session opened", zap.Int("stories", stories.Len()))
	return s
}

// Pending сообщает, что генерация выполняется (кнопка "создать" должна быть неактивна).
func (s *Session) Pending() bool {
	return s.generating.Load() || s.orch.Pending()
}

// Generate создает историю и делает ее активной. Блокирует до ответа бэкенда.
// Пока идет другая генерация, возвращает ErrGenerationPending.
func (s *Session) Generate(ctx context.Context, title string, style domain.Style) (domain.Story, error) {
	if !s.generating.CompareAndSwap(false, true) {
		return domain.Story{}, domain.ErrGenerationPending
	}
	defer s.generating.Store(false)

	// Close отменяет генерацию: поздний ответ будет отброшен
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer context.AfterFunc(s.lifetime, cancel)()

	return s.generate(ctx, title, style)
}

// GenerateAsync запускает генерацию в фоне; done вызывается с результатом.
func (s *Session) GenerateAsync(ctx context.Context, title string, style domain.Style, done func(domain.Story, error)) error {
	if !s.generating.CompareAndSwap(false, true) {
		return domain.ErrGenerationPending
	}
	_, err := s.tasks.Submit(ctx, generationTaskKind, func(taskCtx context.Context) error {
		defer s.generating.Store(false)
		story, err := s.generate(taskCtx, title, style)
		if done != nil {
			done(story, err)
		}
		return err
	})
	if err != nil {
		s.generating.Store(false)
		return fmt.Errorf("submit generation: %w", err)
	}
	return nil
}

func (s *Session) generate(ctx context.Context, title string, style domain.Style) (domain.Story, error) {
	story, err := s.orch.Generate(ctx, title, style)
	if err != nil {
		return domain.Story{}, err
	}
	if err := s.Select(story.ID); err != nil {
		// история могла быть удалена сразу после вставки
		s.logger.Warn("Failed to select generated story", zap.Int64("id", story.ID), zap.Error(err))
	}
	return story, nil
}

// Stories возвращает истории от новых к старым.
func (s *Session) Stories() []domain.Story {
	return s.stories.Stories()
}

// Get возвращает историю по id.
func (s *Session) Get(id int64) (domain.Story, bool) {
	return s.stories.Get(id)
}

// Select делает историю активной. Озвучка предыдущей активной истории сбрасывается.
func (s *Session) Select(id int64) error {
	if _, ok := s.stories.Get(id); !ok {
		return fmt.Errorf("%w: %d", domain.ErrNotFound, id)
	}

	s.mu.Lock()
	var previous *playback.Controller
	if s.hasActive && s.active != id {
		previous = s.controllers[s.active]
	}
	s.active, s.hasActive = id, true
	s.mu.Unlock()

	if previous != nil {
		previous.Teardown()
	}
	return nil
}

// ClearSelection снимает выбор и сбрасывает озвучку активной истории.
func (s *Session) ClearSelection() {
	s.mu.Lock()
	var previous *playback.Controller
	if s.hasActive {
		previous = s.controllers[s.active]
	}
	s.active, s.hasActive = 0, false
	s.mu.Unlock()

	if previous != nil {
		previous.Teardown()
	}
}

// Active возвращает активную историю.
func (s *Session) Active() (domain.Story, bool) {
	s.mu.Lock()
	id, ok := s.active, s.hasActive
	s.mu.Unlock()
	if !ok {
		return domain.Story{}, false
	}
	return s.stories.Get(id)
}

// Save помечает историю завершенной.
func (s *Session) Save(id int64) (domain.Story, error) {
	return s.stories.Update(id, domain.MarkCompleted(s.opts.now()))
}

// Delete удаляет историю вместе с ее озвучкой. Отсутствующая история - не ошибка.
func (s *Session) Delete(id int64) bool {
	s.mu.Lock()
	ctrl := s.controllers[id]
	delete(s.controllers, id)
	if s.hasActive && s.active == id {
		s.active, s.hasActive = 0, false
	}
	s.mu.Unlock()

	if ctrl != nil {
		ctrl.Teardown()
	}
	return s.stories.Delete(id)
}

// Import добавляет готовую историю (например, с бэкенда) под новым локальным id.
// Комментарии тоже получают новые id.
func (s *Session) Import(story domain.Story) (domain.Story, error) {
	ids := s.stories.IDs()
	story = story.Clone()
	story.ID = ids.Next()
	for i := range story.Comments {
		story.Comments[i].ID = ids.Next()
	}
	if story.Status == "" {
		story.Status = domain.StatusInProgress
	}
	if story.LastModified.IsZero() {
		story.LastModified = story.DateCreated
	}
	if err := s.stories.Create(story); err != nil {
		return domain.Story{}, err
	}
	return story, nil
}

// Comment добавляет комментарий; пустой текст молча игнорируется.
func (s *Session) Comment(id int64, text string) (domain.Story, error) {
	return s.stories.AppendComment(id, text)
}

// Play запускает или продолжает озвучку активной истории.
func (s *Session) Play(ctx context.Context) error {
	ctrl, err := s.activeController()
	if err != nil {
		return err
	}
	return ctrl.Play(ctx)
}

// Pause ставит озвучку активной истории на паузу.
func (s *Session) Pause() error {
	ctrl, err := s.activeController()
	if err != nil {
		return err
	}
	return ctrl.Pause()
}

// PlaybackState возвращает состояние озвучки истории; без контроллера - Idle.
func (s *Session) PlaybackState(id int64) playback.State {
	s.mu.Lock()
	ctrl := s.controllers[id]
	s.mu.Unlock()
	if ctrl == nil {
		return playback.Idle
	}
	return ctrl.State()
}

// PlaybackErr возвращает причину последнего сбоя озвучки истории.
func (s *Session) PlaybackErr(id int64) error {
	s.mu.Lock()
	ctrl := s.controllers[id]
	s.mu.Unlock()
	if ctrl == nil {
		return nil
	}
	return ctrl.Err()
}

func (s *Session) activeController() (*playback.Controller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasActive {
		return nil, fmt.Errorf("%w: no story selected", domain.ErrNotFound)
	}
	story, ok := s.stories.Get(s.active)
	if !ok {
		return nil, fmt.Errorf("%w: %d", domain.ErrNotFound, s.active)
	}
	ctrl, ok := s.controllers[story.ID]
	if !ok {
		var opts []playback.Option
		if fn := s.opts.playbackObserver; fn != nil {
			id := story.ID
			opts = append(opts, playback.WithStateObserver(func(st playback.State) { fn(id, st) }))
		}
		ctrl = playback.NewController(story, s.narrator, s.player, s.tasks, s.logger, opts...)
		s.controllers[story.ID] = ctrl
	}
	return ctrl, nil
}

// Close останавливает озвучку, отменяет фоновые задачи и дожидается записи коллекции.
func (s *Session) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.stop()

		s.mu.Lock()
		controllers := make([]*playback.Controller, 0, len(s.controllers))
		for _, c := range s.controllers {
			controllers = append(controllers, c)
		}
		s.controllers = make(map[int64]*playback.Controller)
		s.active, s.hasActive = 0, false
		s.mu.Unlock()

		for _, c := range controllers {
			c.Teardown()
		}

		var errs []error
		if err := s.tasks.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tasks: %w", err))
		}
		if err := s.persister.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush store: %w", err))
		}
		s.closeErr = errors.Join(errs...)
		s.logger.Info("Session closed", zap.Error(s.closeErr))
	})
	return s.closeErr
}
