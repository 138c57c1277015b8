package store

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is a map-backed Store. Values are copied in and out so callers
// never share buffers with the store.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemory returns an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func clone(b []byte) []byte { return append([]byte(nil), b...) }

func (m *MemoryStore) Create(ctx context.Context, key, val []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[string(key)]; ok {
		return fmt.Errorf("create %s: %w", key, ErrExists)
	}
	m.data[string(key)] = clone(val)
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, key []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[string(key)]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", key, ErrNotFound)
	}
	return clone(v), nil
}

func (m *MemoryStore) Update(ctx context.Context, key []byte, fn UpdateFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[string(key)]
	if !ok {
		return fmt.Errorf("update %s: %w", key, ErrNotFound)
	}
	next, err := fn(clone(v))
	if err != nil {
		return err
	}
	m.data[string(key)] = clone(next)
	return nil
}

func (m *MemoryStore) Close() error { return nil }
