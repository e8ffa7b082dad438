package taskmanager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrTooManyTasks - превышено количество активных задач.
	ErrTooManyTasks = errors.New("too many active tasks")
	// ErrTaskNotFound - задача с таким ID неизвестна менеджеру.
	ErrTaskNotFound = errors.New("task not found")
	// ErrClosed - менеджер остановлен и новые задачи не принимает.
	ErrClosed = errors.New("task manager is closed")
)

// TaskStatus представляет статус задачи
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// IsTerminal сообщает, что задача завершена (успешно или нет).
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed || s == TaskStatusCancelled
}

// TaskFunc - функция, выполняемая в задаче.
type TaskFunc func(ctx context.Context) error

// TaskCallback вызывается ровно один раз, когда задача переходит в терминальный статус.
// Получает копию задачи.
type TaskCallback func(task Task)

// Task - снимок состояния асинхронной задачи.
type Task struct {
	ID        uuid.UUID
	Kind      string
	Status    TaskStatus
	Err       error
	CreatedAt time.Time
	UpdatedAt time.Time
}

type taskEntry struct {
	task      Task
	cancel    context.CancelFunc
	callbacks []TaskCallback
}

// Config содержит конфигурацию для TaskManager
type Config struct {
	MaxTasks int
	// Retention - сколько хранить завершенные задачи; 0 = минута, отрицательное = не хранить.
	Retention time.Duration
}

const defaultRetention = time.Minute

// TaskManager запускает задачи в отдельных горутинах и следит за их статусом.
type TaskManager struct {
	mu        sync.Mutex
	tasks     map[uuid.UUID]*taskEntry
	maxTasks  int
	retention time.Duration
	closed    bool
	wg        sync.WaitGroup
	logger    *zap.Logger
	now       func() time.Time
}

// New создает новый экземпляр TaskManager
func New(cfg Config, logger *zap.Logger) *TaskManager {
	maxTasks := cfg.MaxTasks
	if maxTasks <= 0 {
		maxTasks = 10
	}
	retention := cfg.Retention
	if retention == 0 {
		retention = defaultRetention
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskManager{
		tasks:     make(map[uuid.UUID]*taskEntry),
		maxTasks:  maxTasks,
		retention: retention,
		logger:    logger.Named("TaskManager"),
		now:       time.Now,
	}
}

// Submit создает и запускает новую задачу. Заодно удаляет завершенные задачи старше Retention.
// Контекст задачи не отменяется вместе с ctx вызывающего (но наследует его значения):
// отменить задачу можно только через CancelTask или Shutdown.
func (tm *TaskManager) Submit(ctx context.Context, kind string, fn TaskFunc, callbacks ...TaskCallback) (uuid.UUID, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.closed {
		return uuid.Nil, ErrClosed
	}

	now := tm.now()
	active := 0
	for id, e := range tm.tasks {
		if !e.task.Status.IsTerminal() {
			active++
		} else if now.Sub(e.task.UpdatedAt) > tm.retention {
			delete(tm.tasks, id)
		}
	}
	if active >= tm.maxTasks {
		return uuid.Nil, fmt.Errorf("%w: limit %d", ErrTooManyTasks, tm.maxTasks)
	}

	taskCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	entry := &taskEntry{
		task: Task{
			ID:        uuid.New(),
			Kind:      kind,
			Status:    TaskStatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		},
		cancel:    cancel,
		callbacks: callbacks,
	}
	tm.tasks[entry.task.ID] = entry

	tm.wg.Add(1)
	go func() {
		defer tm.wg.Done()
		defer cancel()
		tm.run(taskCtx, entry, fn)
	}()

	return entry.task.ID, nil
}

func (tm *TaskManager) run(ctx context.Context, entry *taskEntry, fn TaskFunc) {
	id := entry.task.ID
	if !tm.transition(entry, TaskStatusRunning, nil) {
		// отменили до старта
		return
	}

	err := fn(ctx)

	switch {
	case ctx.Err() != nil && errors.Is(ctx.Err(), context.Canceled):
		tm.logger.Debug("Task cancelled", zap.Stringer("taskID", id), zap.String("kind", entry.task.Kind))
		tm.transition(entry, TaskStatusCancelled, context.Canceled)
	case err != nil:
		tm.logger.Warn("Task failed", zap.Stringer("taskID", id), zap.String("kind", entry.task.Kind), zap.Error(err))
		tm.transition(entry, TaskStatusFailed, err)
	default:
		tm.logger.Debug("Task completed", zap.Stringer("taskID", id), zap.String("kind", entry.task.Kind))
		tm.transition(entry, TaskStatusCompleted, nil)
	}
}

// transition меняет статус задачи. Терминальный статус не перезаписывается;
// при переходе в терминальный статус вызываются коллбэки.
func (tm *TaskManager) transition(entry *taskEntry, status TaskStatus, err error) bool {
	tm.mu.Lock()
	if entry.task.Status.IsTerminal() {
		tm.mu.Unlock()
		return false
	}
	entry.task.Status = status
	entry.task.Err = err
	entry.task.UpdatedAt = tm.now()

	var callbacks []TaskCallback
	if status.IsTerminal() {
		callbacks = entry.callbacks
		entry.callbacks = nil
	}
	snapshot := entry.task
	tm.mu.Unlock()

	for _, cb := range callbacks {
		cb(snapshot)
	}
	return true
}

// GetTask возвращает снимок задачи по ID
func (tm *TaskManager) GetTask(taskID uuid.UUID) (Task, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	entry, ok := tm.tasks[taskID]
	if !ok {
		return Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	return entry.task, nil
}

// CancelTask отменяет задачу. Для уже завершенной задачи ничего не делает.
func (tm *TaskManager) CancelTask(taskID uuid.UUID) error {
	tm.mu.Lock()
	entry, ok := tm.tasks[taskID]
	tm.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}

	entry.cancel()
	tm.transition(entry, TaskStatusCancelled, context.Canceled)
	return nil
}

// Len возвращает количество задач, которые менеджер сейчас хранит.
func (tm *TaskManager) Len() int {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return len(tm.tasks)
}

// ActiveTasks возвращает количество незавершенных задач.
func (tm *TaskManager) ActiveTasks() int {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	n := 0
	for _, e := range tm.tasks {
		if !e.task.Status.IsTerminal() {
			n++
		}
	}
	return n
}

// CleanupTasks удаляет завершенные задачи, которые старше указанного времени
func (tm *TaskManager) CleanupTasks(age time.Duration) int {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	now := tm.now()
	removed := 0
	for id, e := range tm.tasks {
		if e.task.Status.IsTerminal() && now.Sub(e.task.UpdatedAt) > age {
			delete(tm.tasks, id)
			removed++
		}
	}
	return removed
}

// Shutdown отменяет все незавершенные задачи и ждет завершения горутин (или ctx).
func (tm *TaskManager) Shutdown(ctx context.Context) error {
	tm.mu.Lock()
	if tm.closed {
		tm.mu.Unlock()
		return nil
	}
	tm.closed = true
	entries := make([]*taskEntry, 0, len(tm.tasks))
	for _, e := range tm.tasks {
		entries = append(entries, e)
	}
	tm.mu.Unlock()

	for _, e := range entries {
		e.cancel()
	}

	done := make(chan struct{})
	go func() {
		tm.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timeout waiting for tasks to finish: %w", ctx.Err())
	}
}
