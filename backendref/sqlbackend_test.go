package backendref

import (
	"context"
	"testing"
	"time"

	"github.com/AtRiskMedia/keystone/calendar"
	"github.com/AtRiskMedia/keystone/collab"
	"github.com/AtRiskMedia/keystone/event"
	"github.com/stretchr/testify/require"
)

func newTestSQLBackend(t *testing.T) *SQLBackend {
	t.Helper()
	b, err := NewSQLite(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, b.Close()) })
	return b
}

func TestSQLBackendPersistAndLoadEventsRoundTrip(t *testing.T) {
	b := newTestSQLBackend(t)
	now := time.Date(2026, 8, 6, 12, 0, 0, 0, time.UTC)
	e := event.New("u1", "purchase", now, map[string]event.Value{"amount": event.Number(42)})

	require.NoError(t, b.Persist(context.Background(), e))

	got, err := b.LoadEvents(context.Background(), calendar.Day(now), nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, e.ID, got[0].ID)
	require.Equal(t, event.Number(42), got[0].Data["amount"])
}

func TestSQLBackendPersistReplacesOnDuplicateID(t *testing.T) {
	b := newTestSQLBackend(t)
	now := time.Date(2026, 8, 6, 12, 0, 0, 0, time.UTC)
	e := event.New("u1", "purchase", now, map[string]event.Value{"amount": event.Number(1)})
	require.NoError(t, b.Persist(context.Background(), e))

	e.Data = map[string]event.Value{"amount": event.Number(2)}
	require.NoError(t, b.Persist(context.Background(), e))

	got, err := b.LoadEvents(context.Background(), calendar.Day(now), nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, event.Number(2), got[0].Data["amount"])
}

func TestSQLBackendPersistBatchInsertsAllInOneTransaction(t *testing.T) {
	b := newTestSQLBackend(t)
	now := time.Date(2026, 8, 6, 12, 0, 0, 0, time.UTC)
	events := []event.Event{
		event.New("u1", "purchase", now, map[string]event.Value{"amount": event.Number(1)}),
		event.New("u2", "purchase", now.Add(time.Hour), map[string]event.Value{"amount": event.Number(2)}),
	}
	require.NoError(t, b.PersistBatch(context.Background(), events))

	got, err := b.LoadAllEvents(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestSQLBackendLoadEventsFiltersByInterval(t *testing.T) {
	b := newTestSQLBackend(t)
	now := time.Date(2026, 8, 6, 12, 0, 0, 0, time.UTC)
	inRange := event.New("u1", "purchase", now, nil)
	outOfRange := event.New("u2", "purchase", now.AddDate(0, -1, 0), nil)
	require.NoError(t, b.PersistBatch(context.Background(), []event.Event{inRange, outOfRange}))

	got, err := b.LoadEvents(context.Background(), calendar.Month(now), nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, inRange.ID, got[0].ID)
}

func TestSQLBackendLoadEventsReportsStatusCallbacks(t *testing.T) {
	b := newTestSQLBackend(t)
	now := time.Date(2026, 8, 6, 12, 0, 0, 0, time.UTC)
	e := event.New("u1", "purchase", now, nil)
	require.NoError(t, b.Persist(context.Background(), e))

	var seen []collab.LoadStatus
	_, err := b.LoadEvents(context.Background(), calendar.Day(now), func(s collab.LoadStatus) {
		seen = append(seen, s)
	})
	require.NoError(t, err)
	require.NotEmpty(t, seen)
	require.True(t, seen[len(seen)-1].Ready)
}
