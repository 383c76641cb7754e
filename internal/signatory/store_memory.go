package signatory

import (
	"context"
	"sync"
)

// MemoryStore keeps the roster in process memory. Used by tests and by
// deployments that do not need durability.
type MemoryStore struct {
	mu   sync.RWMutex
	snap Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snap: Snapshot{}}
}

func (m *MemoryStore) Load(_ context.Context) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap.Clone(), nil
}

func (m *MemoryStore) Save(_ context.Context, snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = snap.Clone()
	return nil
}
