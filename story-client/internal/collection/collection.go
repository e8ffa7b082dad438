// Package collection - единственный владелец историй сессии и единственный, кто пишет в хранилище.
package collection

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"story-studio/story-client/internal/domain"
	"story-studio/story-client/internal/store"

	"go.uber.org/zap"
)

// Saver принимает полный снимок после каждого изменения (store.Persister).
type Saver interface {
	Save(snapshot []byte)
}

// Collection хранит истории и сохраняет снимок после каждой успешной мутации.
// Снимок сериализуется под той же блокировкой, что и мутация, поэтому порядок снимков
// совпадает с порядком мутаций.
type Collection struct {
	mu      sync.RWMutex
	stories map[int64]domain.Story
	saver   Saver
	ids     *domain.IDGenerator
	now     func() time.Time
	logger  *zap.Logger
}

// Option настраивает коллекцию.
type Option func(*Collection)

// WithClock подменяет часы (для тестов).
func WithClock(now func() time.Time) Option {
	return func(c *Collection) { c.now = now }
}

// New создает пустую коллекцию.
func New(saver Saver, ids *domain.IDGenerator, logger *zap.Logger, opts ...Option) *Collection {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ids == nil {
		ids = domain.NewIDGenerator(nil)
	}
	c := &Collection{
		stories: make(map[int64]domain.Story),
		saver:   saver,
		ids:     ids,
		now:     time.Now,
		logger:  logger.Named("StoryCollection"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load восстанавливает коллекцию из хранилища.
// Нет снимка - пустая коллекция. Снимок не читается - пустая коллекция и запись в лог (ErrStoreCorrupted).
func Load(ctx context.Context, adapter store.Adapter, saver Saver, ids *domain.IDGenerator, logger *zap.Logger, opts ...Option) *Collection {
	c := New(saver, ids, logger, opts...)

	data, err := adapter.Load(ctx)
	if err != nil {
		c.logger.Warn("Failed to read stored snapshot, starting empty", zap.Error(err))
		return c
	}
	if len(data) == 0 {
		return c
	}

	var stories []domain.Story
	if err := json.Unmarshal(data, &stories); err != nil {
		c.logger.Warn("Stored snapshot is unreadable, starting empty",
			zap.Error(fmt.Errorf("%w: %w", domain.ErrStoreCorrupted, err)))
		return c
	}

	for _, s := range stories {
		if _, dup := c.stories[s.ID]; dup {
			c.logger.Warn("Duplicate story id in snapshot, keeping first", zap.Int64("id", s.ID))
			continue
		}
		s = s.Clone()
		c.stories[s.ID] = s
		c.ids.Observe(s.ID)
		for _, cm := range s.Comments {
			c.ids.Observe(cm.ID)
		}
	}
	c.logger.Info("Collection loaded", zap.Int("stories", len(c.stories)))
	return c
}

// IDs возвращает генератор id коллекции.
func (c *Collection) IDs() *domain.IDGenerator {
	return c.ids
}

// Create добавляет полностью сформированную историю.
func (c *Collection) Create(story domain.Story) error {
	if strings.TrimSpace(story.Content) == "" {
		return domain.Errorf(domain.ErrValidation, "story %d has no content", story.ID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.stories[story.ID]; exists {
		return fmt.Errorf("%w: %d", domain.ErrDuplicateID, story.ID)
	}
	c.stories[story.ID] = story.Clone()
	c.ids.Observe(story.ID)
	c.persistLocked("create")
	return nil
}

// Update применяет чистое преобразование к истории.
// id, dateCreated и комментарии мутатор изменить не может: комментарии добавляются только
// через AppendComment. Пустой content отклоняется. При ошибке коллекция не меняется.
func (c *Collection) Update(id int64, mutator func(domain.Story) domain.Story) (domain.Story, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, ok := c.stories[id]
	if !ok {
		return domain.Story{}, fmt.Errorf("%w: %d", domain.ErrNotFound, id)
	}

	updated := mutator(current.Clone())
	if strings.TrimSpace(updated.Content) == "" {
		return domain.Story{}, domain.Errorf(domain.ErrValidation, "story %d would lose its content", id)
	}
	updated.ID = current.ID
	updated.DateCreated = current.DateCreated
	updated.Comments = current.Comments
	updated = updated.Clone()

	c.stories[id] = updated
	c.persistLocked("update")
	return updated.Clone(), nil
}

// Delete удаляет историю. Удаление отсутствующей истории - не ошибка.
func (c *Collection) Delete(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.stories[id]; !ok {
		return false
	}
	delete(c.stories, id)
	c.persistLocked("delete")
	return true
}

// AppendComment добавляет комментарий. Пустой (после trim) текст молча игнорируется.
func (c *Collection) AppendComment(id int64, text string) (domain.Story, error) {
	text = strings.TrimSpace(text)

	c.mu.Lock()
	defer c.mu.Unlock()

	current, ok := c.stories[id]
	if text == "" {
		if !ok {
			return domain.Story{}, nil
		}
		return current.Clone(), nil
	}
	if !ok {
		return domain.Story{}, fmt.Errorf("%w: %d", domain.ErrNotFound, id)
	}

	updated := current.Clone()
	updated.Comments = append(updated.Comments, domain.Comment{
		ID:        c.ids.Next(),
		Text:      text,
		Timestamp: c.now(),
	})
	c.stories[id] = updated
	c.persistLocked("comment")
	return updated.Clone(), nil
}

// Get возвращает копию истории.
func (c *Collection) Get(id int64) (domain.Story, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.stories[id]
	if !ok {
		return domain.Story{}, false
	}
	return s.Clone(), true
}

// Len возвращает количество историй.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.stories)
}

// Stories возвращает истории от новых к старым; при равном dateCreated первым идет больший id.
func (c *Collection) Stories() []domain.Story {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sortedLocked()
}

// Snapshot сериализует коллекцию в том же порядке, что и Stories.
func (c *Collection) Snapshot() ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return json.Marshal(c.sortedLocked())
}

func (c *Collection) sortedLocked() []domain.Story {
	out := make([]domain.Story, 0, len(c.stories))
	for _, s := range c.stories {
		out = append(out, s.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DateCreated.Equal(out[j].DateCreated) {
			return out[i].DateCreated.After(out[j].DateCreated)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (c *Collection) persistLocked(op string) {
	if c.saver == nil {
		return
	}
	data, err := json.Marshal(c.sortedLocked())
	if err != nil {
		c.logger.Error("Failed to serialize collection", zap.String("op", op), zap.Error(err))
		return
	}
	c.saver.Save(data)
}
