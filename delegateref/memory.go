// Package delegateref provides reference Delegate implementations: an
// in-memory key-value store for tests, and a redis-backed store for
// real persistence.
package delegateref

import (
	"context"
	"sync"

	"github.com/AtRiskMedia/keystone/collab"
)

// Memory is an in-process Delegate. StatusChanged notifications are
// forwarded to an optional callback, otherwise dropped.
type Memory struct {
	mu       sync.RWMutex
	values   map[string][]byte
	OnStatus func(collab.Status)
}

// NewMemory builds an empty Memory delegate.
func NewMemory() *Memory {
	return &Memory{values: map[string][]byte{}}
}

func (m *Memory) Persist(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if value == nil {
		delete(m.values, key)
		return nil
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	m.values[key] = stored
	return nil
}

func (m *Memory) Load(ctx context.Context, kind collab.ArtifactKind, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (m *Memory) StatusChanged(status collab.Status) {
	if m.OnStatus != nil {
		m.OnStatus(status)
	}
}
