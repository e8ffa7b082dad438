// Package store сохраняет и читает снимок коллекции историй целиком.
// Адаптеры ничего не знают о содержимом снимка: это просто байты.
package store

import (
	"context"
	"sync"
)

// DefaultNamespace - ключ, под которым хранится снимок коллекции.
const DefaultNamespace = "stories"

// Adapter - долговременное хранилище одного снимка.
// Save заменяет предыдущее значение целиком. Load возвращает (nil, nil), если данных нет.
type Adapter interface {
	Save(ctx context.Context, snapshot []byte) error
	Load(ctx context.Context) ([]byte, error)
}

// MemoryStore хранит снимок в памяти. Используется в тестах и в режиме --ephemeral.
type MemoryStore struct {
	mu    sync.Mutex
	data  []byte
	saves int
}

var _ Adapter = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Save(_ context.Context, snapshot []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), snapshot...)
	m.saves++
	return nil
}

func (m *MemoryStore) Load(_ context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, nil
	}
	return append([]byte(nil), m.data...), nil
}

// Saves возвращает количество физических записей.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
