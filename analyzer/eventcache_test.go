package analyzer

import (
	"context"
	"testing"
	"time"

	"github.com/AtRiskMedia/keystone/calendar"
	"github.com/AtRiskMedia/keystone/delegateref"
	"github.com/AtRiskMedia/keystone/event"
	"github.com/stretchr/testify/require"
)

func newTestAnalyzerForCache(t *testing.T, delegate *delegateref.Memory, now time.Time) *Analyzer {
	t.Helper()
	config := newTestConfig(now).withDefaults()
	return &Analyzer{
		config:   config,
		delegate: delegate,
		logger:   config.Logger,
		clock:    config.Clock,
	}
}

func TestSortEventsIsStableByTimestamp(t *testing.T) {
	base := time.Date(2026, 8, 6, 0, 0, 0, 0, time.UTC)
	e1 := event.New("u1", "purchase", base, nil)
	e2 := event.New("u2", "purchase", base, nil)
	e3 := event.New("u3", "purchase", base.Add(-time.Minute), nil)

	events := []event.Event{e1, e2, e3}
	sortEvents(events)

	require.Equal(t, e3.ID, events[0].ID)
	require.Equal(t, e1.ID, events[1].ID)
	require.Equal(t, e2.ID, events[2].ID)
}

func TestMergeSortedInterleavesTwoSortedSlices(t *testing.T) {
	base := time.Date(2026, 8, 6, 0, 0, 0, 0, time.UTC)
	a := []event.Event{
		event.New("u1", "purchase", base.Add(0*time.Minute), nil),
		event.New("u1", "purchase", base.Add(2*time.Minute), nil),
	}
	b := []event.Event{
		event.New("u1", "purchase", base.Add(1*time.Minute), nil),
		event.New("u1", "purchase", base.Add(3*time.Minute), nil),
	}

	merged := mergeSorted(a, b)
	require.Len(t, merged, 4)
	for i := 0; i < len(merged)-1; i++ {
		require.True(t, !merged[i+1].Timestamp.Before(merged[i].Timestamp))
	}
}

func TestMergeSortedHandlesEmptyInputs(t *testing.T) {
	base := time.Date(2026, 8, 6, 0, 0, 0, 0, time.UTC)
	a := []event.Event{event.New("u1", "purchase", base, nil)}

	require.Equal(t, a, mergeSorted(a, nil))
	require.Equal(t, a, mergeSorted(nil, a))
	require.Empty(t, mergeSorted(nil, nil))
}

func TestDedupeByIDKeepsFirstOccurrence(t *testing.T) {
	base := time.Date(2026, 8, 6, 0, 0, 0, 0, time.UTC)
	e := event.New("u1", "purchase", base, map[string]event.Value{"amount": event.Number(1)})
	dup := e
	dup.Data = map[string]event.Value{"amount": event.Number(999)}

	out := dedupeByID([]event.Event{e, dup})
	require.Len(t, out, 1)
	require.Equal(t, event.Number(1), out[0].Data["amount"])
}

func TestCacheEventsAndLoadEventBucketRoundTrip(t *testing.T) {
	now := time.Date(2026, 8, 6, 12, 0, 0, 0, time.UTC)
	delegate := delegateref.NewMemory()
	az := newTestAnalyzerForCache(t, delegate, now)

	e1 := event.New("u1", "purchase", now, map[string]event.Value{"amount": event.Number(1)})
	e2 := event.New("u2", "purchase", now.Add(time.Hour), map[string]event.Value{"amount": event.Number(2)})

	require.NoError(t, az.cacheEvents(context.Background(), []event.Event{e1, e2}))

	bucket, err := az.loadEventBucket(context.Background(), calendar.Month(now))
	require.NoError(t, err)
	require.Len(t, bucket, 2)
}

func TestCacheEventsMergesAndDedupesWithinSameMonth(t *testing.T) {
	now := time.Date(2026, 8, 6, 12, 0, 0, 0, time.UTC)
	delegate := delegateref.NewMemory()
	az := newTestAnalyzerForCache(t, delegate, now)

	e1 := event.New("u1", "purchase", now, map[string]event.Value{"amount": event.Number(1)})
	require.NoError(t, az.cacheEvents(context.Background(), []event.Event{e1}))

	e1Again := e1
	e1Again.Data = map[string]event.Value{"amount": event.Number(1)}
	e2 := event.New("u2", "purchase", now.Add(time.Minute), map[string]event.Value{"amount": event.Number(2)})
	require.NoError(t, az.cacheEvents(context.Background(), []event.Event{e1Again, e2}))

	bucket, err := az.loadEventBucket(context.Background(), calendar.Month(now))
	require.NoError(t, err)
	require.Len(t, bucket, 2)
}

func TestLoadEventBucketMissingKeyReturnsNilNoError(t *testing.T) {
	now := time.Date(2026, 8, 6, 12, 0, 0, 0, time.UTC)
	delegate := delegateref.NewMemory()
	az := newTestAnalyzerForCache(t, delegate, now)

	bucket, err := az.loadEventBucket(context.Background(), calendar.Month(now))
	require.NoError(t, err)
	require.Nil(t, bucket)
}

func TestLoadEventBucketCorruptDataTreatedAsAbsent(t *testing.T) {
	now := time.Date(2026, 8, 6, 12, 0, 0, 0, time.UTC)
	delegate := delegateref.NewMemory()
	az := newTestAnalyzerForCache(t, delegate, now)

	key := eventsKey(calendar.Month(now))
	require.NoError(t, delegate.Persist(context.Background(), key, []byte("not a valid codec payload")))

	bucket, err := az.loadEventBucket(context.Background(), calendar.Month(now))
	require.NoError(t, err)
	require.Nil(t, bucket)
}

func TestGetProcessedEventsWalksBackwardAcrossMonthsAndFilters(t *testing.T) {
	now := time.Date(2026, 8, 6, 12, 0, 0, 0, time.UTC)
	delegate := delegateref.NewMemory()
	az := newTestAnalyzerForCache(t, delegate, now)

	inWindow := event.New("u1", "purchase", now.AddDate(0, -1, 0), map[string]event.Value{"amount": event.Number(1)})
	outOfWindow := event.New("u2", "purchase", now.AddDate(0, -3, 0), map[string]event.Value{"amount": event.Number(2)})
	current := event.New("u3", "purchase", now, map[string]event.Value{"amount": event.Number(3)})

	require.NoError(t, az.cacheEvents(context.Background(), []event.Event{inWindow, outOfWindow, current}))

	interval := calendar.New(now.AddDate(0, -2, 0), now)
	got, err := az.getProcessedEvents(context.Background(), interval)
	require.NoError(t, err)

	ids := make(map[string]bool)
	for _, e := range got {
		ids[e.ID] = true
	}
	require.True(t, ids[inWindow.ID])
	require.True(t, ids[current.ID])
	require.False(t, ids[outOfWindow.ID])

	for i := 0; i < len(got)-1; i++ {
		require.True(t, !got[i+1].Timestamp.Before(got[i].Timestamp))
	}
}
