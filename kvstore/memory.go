package kvstore

import (
	"context"
	"slices"
	"sync"
)

// Memory is an in-process Store. The zero value is ready to use.
type Memory struct {
	mut  sync.RWMutex
	data map[string][]byte
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mut.RLock()
	defer m.mut.RUnlock()

	value, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}

	return slices.Clone(value), nil
}

func (m *Memory) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mut.Lock()
	defer m.mut.Unlock()

	if m.data == nil {
		m.data = make(map[string][]byte)
	}

	m.data[key] = slices.Clone(value)

	return nil
}

func (m *Memory) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mut.Lock()
	defer m.mut.Unlock()

	delete(m.data, key)

	return nil
}

// Len returns the number of stored keys.
func (m *Memory) Len() int {
	m.mut.RLock()
	defer m.mut.RUnlock()

	return len(m.data)
}
