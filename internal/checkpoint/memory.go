package checkpoint

import (
	"context"
	"sync"
)

// Memory is an in-process Store for tests and dry runs.
type Memory struct {
	mu   sync.Mutex
	seen map[string]bool
}

// NewMemory returns an empty in-memory seen-set.
func NewMemory() *Memory {
	return &Memory{seen: make(map[string]bool)}
}

func (m *Memory) HasSeen(_ context.Context, externalID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seen[externalID], nil
}

func (m *Memory) MarkSeen(_ context.Context, externalID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen[externalID] = true
	return nil
}

func (m *Memory) Count(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.seen)), nil
}

func (m *Memory) Close() error { return nil }
