// Package backendref provides reference Backend implementations: an
// in-memory store for tests, and SQL-backed stores for local and
// cloud durability.
package backendref

import (
	"context"
	"sort"
	"sync"

	"github.com/AtRiskMedia/keystone/calendar"
	"github.com/AtRiskMedia/keystone/collab"
	"github.com/AtRiskMedia/keystone/event"
)

// Memory is an in-process Backend, useful for tests and embedded
// single-process deployments with no durability requirement.
type Memory struct {
	mu     sync.RWMutex
	events map[string]event.Event
}

// NewMemory builds an empty Memory backend.
func NewMemory() *Memory {
	return &Memory{events: map[string]event.Event{}}
}

func (m *Memory) Persist(ctx context.Context, e event.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[e.ID] = e
	return nil
}

func (m *Memory) PersistBatch(ctx context.Context, events []event.Event) error {
	return collab.PersistBatchDefault(ctx, m, events)
}

func (m *Memory) LoadEvents(ctx context.Context, interval calendar.Interval, updateStatus func(collab.LoadStatus)) ([]event.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]event.Event, 0, len(m.events))
	for _, e := range m.events {
		if interval.Contains(e.Timestamp) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	if updateStatus != nil {
		updateStatus(collab.LoadStatus{FetchedRecords: len(out)})
		updateStatus(collab.LoadStatus{Ready: true})
	}
	return out, nil
}

func (m *Memory) LoadAllEvents(ctx context.Context, updateStatus func(collab.LoadStatus)) ([]event.Event, error) {
	return collab.LoadAllEventsDefault(ctx, m, updateStatus)
}
