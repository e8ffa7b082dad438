package domain

import (
	"sync"
	"time"
)

// IDGenerator выдает монотонно растущие id, производные от времени создания:
// max(now в миллисекундах, предыдущий + 1). Два вызова в одну миллисекунду получают разные id.
type IDGenerator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewIDGenerator создает генератор. now == nil означает time.Now.
func NewIDGenerator(now func() time.Time) *IDGenerator {
	if now == nil {
		now = time.Now
	}
	return &IDGenerator{now: now}
}

// Next возвращает следующий id.
func (g *IDGenerator) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := g.now().UnixMilli()
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return id
}

// Observe сдвигает генератор так, чтобы он не выдал уже занятый id (после загрузки снимка).
func (g *IDGenerator) Observe(id int64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if id > g.last {
		g.last = id
	}
}
