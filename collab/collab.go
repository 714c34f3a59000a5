// Package collab defines the analyzer's collaborator surface: the
// Backend (durable event store), the Delegate (key-value persistence
// and status sink), and the Client (event submission).
package collab

import (
	"context"

	"github.com/AtRiskMedia/keystone/calendar"
	"github.com/AtRiskMedia/keystone/event"
)

// LoadStatus is reported to a Backend's update_status callback while a
// load is in flight.
type LoadStatus struct {
	Ready              bool
	FetchedRecords     int
	ProcessingProgress float64
}

// Backend is the durable event store. Persist calls are best-effort
// durable writes; loads return events sorted by timestamp within the
// requested interval, inclusive of both bounds.
type Backend interface {
	Persist(ctx context.Context, e event.Event) error
	PersistBatch(ctx context.Context, events []event.Event) error
	LoadEvents(ctx context.Context, interval calendar.Interval, updateStatus func(LoadStatus)) ([]event.Event, error)
	LoadAllEvents(ctx context.Context, updateStatus func(LoadStatus)) ([]event.Event, error)
}

// PersistBatchDefault is the default batch implementation ("loops on
// persist(event)") for Backend authors who don't have a native batch
// write path.
func PersistBatchDefault(ctx context.Context, b Backend, events []event.Event) error {
	for _, e := range events {
		if err := b.Persist(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// LoadAllEventsDefault is the default all-time load ("defaults to
// load_events(-inf, +inf)").
func LoadAllEventsDefault(ctx context.Context, b Backend, updateStatus func(LoadStatus)) ([]event.Event, error) {
	return b.LoadEvents(ctx, calendar.AllTime(), updateStatus)
}

// ArtifactKind discriminates the delegate's persisted value types for
// Load's type-directed lookup.
type ArtifactKind int

const (
	ArtifactState ArtifactKind = iota
	ArtifactEvents
	ArtifactSearchIndex
)

// Delegate is key-value persistence plus the status notification sink.
// Persist with a nil value clears the key.
type Delegate interface {
	Persist(ctx context.Context, key string, value []byte) error
	Load(ctx context.Context, kind ArtifactKind, key string) ([]byte, bool, error)
	StatusChanged(status Status)
}

// Client creates and submits events on behalf of the embedding
// application.
type Client interface {
	CreateEvent(category string, data map[string]event.Value) event.Event
	SubmitEvent(ctx context.Context, e event.Event) error
	SubmitEvents(ctx context.Context, events []event.Event) error
}
