package store

import (
	"context"
	"sync"
)

// Memory is a Backing that lives only as long as the process. It is used
// for dry runs and tests.
type Memory struct {
	mu  sync.Mutex
	ids []int64
}

func NewMemory(ids ...int64) *Memory {
	return &Memory{ids: append([]int64(nil), ids...)}
}

func (m *Memory) Load(context.Context) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.ids...), nil
}

func (m *Memory) Append(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids = append(m.ids, id)
	return nil
}

// IDs returns every id appended so far in order.
func (m *Memory) IDs() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.ids...)
}

func (m *Memory) Close() error { return nil }
