package audit

import (
	"context"
	"sync"
)

// Store is the append-only persistence port for audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	List(ctx context.Context, limit int) ([]Event, error)
}

// MemoryStore keeps events in memory, newest last. Used by tests and by
// deployments without a database.
type MemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Append(_ context.Context, event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// List returns the newest limit events, newest first. limit <= 0 returns all.
func (m *MemoryStore) List(_ context.Context, limit int) ([]Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := len(m.events)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Event, 0, n)
	for i := len(m.events) - 1; i >= len(m.events)-n; i-- {
		out = append(out, m.events[i])
	}
	return out, nil
}
