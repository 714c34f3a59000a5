package collab_test

import (
	"context"
	"testing"
	"time"

	"github.com/AtRiskMedia/keystone/backendref"
	"github.com/AtRiskMedia/keystone/calendar"
	"github.com/AtRiskMedia/keystone/clock"
	"github.com/AtRiskMedia/keystone/collab"
	"github.com/AtRiskMedia/keystone/event"
	"github.com/stretchr/testify/require"
)

func TestDefaultClientStampsUserAndClockTime(t *testing.T) {
	at := time.Date(2026, 8, 6, 9, 0, 0, 0, time.UTC)
	backend := backendref.NewMemory()
	c := collab.NewDefaultClient("alice", backend, clock.NewFixed(at))

	e := c.CreateEvent("purchase", map[string]event.Value{"amount": event.Number(1)})
	require.Equal(t, "alice", e.UserID)
	require.True(t, e.Timestamp.Equal(at))
}

func TestDefaultClientSubmitPersistsThroughBackend(t *testing.T) {
	backend := backendref.NewMemory()
	c := collab.NewDefaultClient("alice", backend, nil)

	e := c.CreateEvent("purchase", nil)
	require.NoError(t, c.SubmitEvent(context.Background(), e))

	got, err := backend.LoadAllEvents(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, e.ID, got[0].ID)
}

func TestDefaultClientSubmitEventsBatches(t *testing.T) {
	backend := backendref.NewMemory()
	c := collab.NewDefaultClient("alice", backend, nil)

	events := []event.Event{c.CreateEvent("a", nil), c.CreateEvent("b", nil)}
	require.NoError(t, c.SubmitEvents(context.Background(), events))

	got, err := backend.LoadAllEvents(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestLoadAllEventsDefaultDelegatesToAllTimeInterval(t *testing.T) {
	backend := backendref.NewMemory()
	e := event.New("u", "cat", time.Now(), nil)
	require.NoError(t, backend.Persist(context.Background(), e))

	got, err := collab.LoadAllEventsDefault(context.Background(), backend, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)

	all := calendar.AllTime()
	require.True(t, all.Contains(e.Timestamp))
}
