package analyzer

import (
	"context"
	"testing"
	"time"

	"github.com/AtRiskMedia/keystone/aggregator"
	"github.com/AtRiskMedia/keystone/backendref"
	"github.com/AtRiskMedia/keystone/calendar"
	"github.com/AtRiskMedia/keystone/clock"
	"github.com/AtRiskMedia/keystone/delegateref"
	"github.com/AtRiskMedia/keystone/event"
	"github.com/AtRiskMedia/keystone/internal/obslog"
	"github.com/stretchr/testify/require"
)

func newTestConfig(now time.Time) Config {
	return Config{
		Clock:  clock.NewFixed(now),
		Logger: obslog.Discard(),
	}
}

func buildTestAnalyzer(t *testing.T, backend *backendref.Memory, delegate *delegateref.Memory, now time.Time) *Analyzer {
	t.Helper()
	b := NewBuilder(newTestConfig(now))
	b.Category("purchase").
		Column("amount").
		Aggregator("amount-stats", func() aggregator.Aggregator { return aggregator.NewNumericStats("amount-stats") }).
		Column("amount").
		Aggregator("amount-count", func() aggregator.Aggregator { return aggregator.NewCounting("amount-count") })
	az, err := b.Build(context.Background(), backend, delegate)
	require.NoError(t, err)
	return az
}

func TestAnalyzerInitProcessesExistingHistoryOnFirstBuild(t *testing.T) {
	now := time.Date(2026, 8, 6, 12, 0, 0, 0, time.UTC)
	backend := backendref.NewMemory()
	for _, amount := range []float64{10, 20, 30} {
		e := event.New("u1", "purchase", now.Add(-time.Hour), map[string]event.Value{"amount": event.Number(amount)})
		require.NoError(t, backend.Persist(context.Background(), e))
	}

	az := buildTestAnalyzer(t, backend, delegateref.NewMemory(), now)

	agg, err := az.FindAggregator(context.Background(), "amount-count", calendar.AllTime())
	require.NoError(t, err)
	require.Equal(t, uint64(3), agg.(*aggregator.Counting).ValueCount)
}

func TestAnalyzerLoadNewEventsIsIdempotent(t *testing.T) {
	now := time.Date(2026, 8, 6, 12, 0, 0, 0, time.UTC)
	backend := backendref.NewMemory()
	delegate := delegateref.NewMemory()
	az := buildTestAnalyzer(t, backend, delegate, now)

	e := event.New("u1", "purchase", now.Add(-time.Minute), map[string]event.Value{"amount": event.Number(5)})
	require.NoError(t, backend.Persist(context.Background(), e))

	require.NoError(t, az.LoadNewEvents(context.Background()))
	require.NoError(t, az.LoadNewEvents(context.Background()))

	agg, err := az.FindAggregator(context.Background(), "amount-count", calendar.AllTime())
	require.NoError(t, err)
	require.Equal(t, uint64(1), agg.(*aggregator.Counting).ValueCount)
}

func TestAnalyzerBackfillsNewlyRegisteredAggregatorOnReopen(t *testing.T) {
	now := time.Date(2026, 8, 6, 12, 0, 0, 0, time.UTC)
	backend := backendref.NewMemory()
	delegate := delegateref.NewMemory()

	e := event.New("u1", "purchase", now.Add(-time.Hour), map[string]event.Value{"amount": event.Number(7)})
	require.NoError(t, backend.Persist(context.Background(), e))

	az1 := buildTestAnalyzer(t, backend, delegate, now)
	_, err := az1.FindAggregator(context.Background(), "amount-count", calendar.AllTime())
	require.NoError(t, err)

	b2 := NewBuilder(newTestConfig(now))
	b2.Category("purchase").
		Column("amount").
		Aggregator("amount-stats", func() aggregator.Aggregator { return aggregator.NewNumericStats("amount-stats") }).
		Column("amount").
		Aggregator("amount-count", func() aggregator.Aggregator { return aggregator.NewCounting("amount-count") }).
		Column("amount").
		Aggregator("amount-sum", func() aggregator.Aggregator { return aggregator.NewNumericStats("amount-sum") })
	az2, err := b2.Build(context.Background(), backend, delegate)
	require.NoError(t, err)

	agg, err := az2.FindAggregator(context.Background(), "amount-sum", calendar.AllTime())
	require.NoError(t, err)
	require.Equal(t, uint64(1), agg.(*aggregator.NumericStats).Count)
}

func TestAnalyzerEventsReturnsSortedByTimestamp(t *testing.T) {
	now := time.Date(2026, 8, 6, 12, 0, 0, 0, time.UTC)
	backend := backendref.NewMemory()
	e1 := event.New("u1", "purchase", now.Add(-2*time.Hour), map[string]event.Value{"amount": event.Number(1)})
	e2 := event.New("u1", "purchase", now.Add(-1*time.Hour), map[string]event.Value{"amount": event.Number(2)})
	require.NoError(t, backend.PersistBatch(context.Background(), []event.Event{e2, e1}))

	az := buildTestAnalyzer(t, backend, delegateref.NewMemory(), now)
	window := calendar.New(now.Add(-3*time.Hour), now)
	events, err := az.Events(context.Background(), window)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.True(t, events[0].Timestamp.Before(events[1].Timestamp))
}

func TestAnalyzerSearchFindsMatchingEvents(t *testing.T) {
	now := time.Date(2026, 8, 6, 12, 0, 0, 0, time.UTC)
	backend := backendref.NewMemory()
	e := event.New("u1", "purchase", now.Add(-time.Hour), map[string]event.Value{
		"amount": event.Number(1),
		"note":   event.Text("urgent refund request"),
	})
	require.NoError(t, backend.Persist(context.Background(), e))

	config := newTestConfig(now)
	config.CreateSearchIndex = true
	b := NewBuilder(config)
	b.Category("purchase").Column("amount").Aggregator("amount-count", func() aggregator.Aggregator { return aggregator.NewCounting("amount-count") })
	az, err := b.Build(context.Background(), backend, delegateref.NewMemory())
	require.NoError(t, err)

	ids, err := az.Search(context.Background(), "refund", calendar.AllTime())
	require.NoError(t, err)
	require.Contains(t, ids, e.ID)
}
