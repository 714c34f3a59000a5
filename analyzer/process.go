package analyzer

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AtRiskMedia/keystone/calendar"
	"github.com/AtRiskMedia/keystone/collab"
	"github.com/AtRiskMedia/keystone/event"
	"github.com/AtRiskMedia/keystone/internal/obslog"
	"github.com/AtRiskMedia/keystone/search"
	"github.com/AtRiskMedia/keystone/state"
)

// processEvents applies every event in input order to the monthly,
// all-time, and any containing ad-hoc state, skipping events already
// covered by the accumulated state's processed event interval as it
// stood before the batch. An id repeated within the batch is applied
// once.
func (a *Analyzer) processEvents(ctx context.Context, batch []event.Event, corr string) error {
	if len(batch) == 0 {
		return nil
	}
	now := a.clock.Now()
	log := a.logger.WithCorrelation(obslog.ChannelAnalyzer, corr)

	dirtyStates := map[string]*state.IntervalState{}
	dirtySearch := map[string]calendar.Interval{}
	processed := a.state.Accumulated.ProcessedEventInterval
	applied := make(map[string]struct{}, len(batch))

	for i, e := range batch {
		if err := nowGuard(now, e.Timestamp); err != nil {
			return err
		}
		a.notify(collab.ProcessingEvents(float64(i+1)/float64(len(batch)), ""))

		if processed.Contains(e.Timestamp) {
			continue
		}
		if _, dup := applied[e.ID]; dup {
			continue
		}
		applied[e.ID] = struct{}{}

		monthly := calendar.Month(e.Timestamp)
		target, err := a.resolveNormalizedState(ctx, monthly)
		if err != nil {
			return err
		}
		if err := target.ApplyEvent(e, a.registrations, nil, true); err != nil {
			return err
		}
		dirtyStates[intervalMapKey(target.Interval)] = target

		if err := a.state.Accumulated.ApplyEvent(e, a.registrations, nil, true); err != nil {
			return err
		}
		dirtyStates[intervalMapKey(a.state.Accumulated.Interval)] = a.state.Accumulated

		for key, s := range a.nonNormalStates {
			if s.Interval.Contains(e.Timestamp) {
				if err := s.ApplyEvent(e, a.registrations, nil, true); err != nil {
					return err
				}
				dirtyStates[key] = s
			}
		}

		if a.config.CreateSearchIndex {
			a.indexEvent(monthly, e)
			dirtySearch[intervalMapKey(monthly)] = monthly
		}
	}

	a.state.ProcessedEventInterval = a.state.Accumulated.ProcessedEventInterval

	for _, s := range dirtyStates {
		if err := a.persistState(ctx, s); err != nil {
			return err
		}
	}
	for key, month := range dirtySearch {
		if err := a.persistSearchIndex(ctx, key, month); err != nil {
			return err
		}
	}
	log.Info("processed batch", "count", len(batch))
	return nil
}

// resolveNormalizedState returns the live IntervalState for a
// normalized monthly interval, loading or creating it via the
// historical cache as needed, and ensures every currently registered
// aggregator is present on it.
func (a *Analyzer) resolveNormalizedState(ctx context.Context, monthly calendar.Interval) (*state.IntervalState, error) {
	if monthly.Equal(a.state.Current.Interval) {
		return a.state.Current, nil
	}
	s, err := a.state.Historical.GetOrLoad(monthly, func() (*state.IntervalState, error) {
		return a.loadOrCreateState(ctx, monthly)
	})
	if err != nil {
		return nil, err
	}
	a.installAggregators(s)
	return s, nil
}

// loadAndProcessEvents reconciles the local event cache with the
// backend for interval, then feeds the merged sequence to
// processEvents.
func (a *Analyzer) loadAndProcessEvents(ctx context.Context, interval calendar.Interval, corr string) error {
	cached, err := a.getProcessedEvents(ctx, interval)
	if err != nil {
		return err
	}

	var toFetch []calendar.Interval
	if len(cached) == 0 {
		toFetch = []calendar.Interval{interval}
	} else {
		c0, c1 := cached[0].Timestamp, cached[len(cached)-1].Timestamp
		if c0.After(interval.Start) {
			toFetch = append(toFetch, calendar.New(interval.Start, c0))
		}
		if c1.Before(interval.End) {
			toFetch = append(toFetch, calendar.New(c1, interval.End))
		}
	}

	fetched, err := a.fetchDisjoint(ctx, toFetch, corr)
	if err != nil {
		return err
	}
	if len(fetched) > 0 {
		if err := a.cacheEvents(ctx, fetched); err != nil {
			return err
		}
	}

	merged := mergeSorted(cached, fetched)
	return a.processEvents(ctx, merged, corr)
}

// fetchDisjoint fetches each range from the backend. Two disjoint
// ranges (the common case: a gap on either side of a cached middle
// section) are fetched concurrently, since neither touches shared
// aggregator state.
func (a *Analyzer) fetchDisjoint(ctx context.Context, ranges []calendar.Interval, corr string) ([]event.Event, error) {
	switch len(ranges) {
	case 0:
		return nil, nil
	case 1:
		return a.backend.LoadEvents(ctx, ranges[0], a.statusCallback(corr))
	}

	results := make([][]event.Event, len(ranges))
	g, gctx := errgroup.WithContext(ctx)
	for i, r := range ranges {
		i, r := i, r
		g.Go(func() error {
			events, err := a.backend.LoadEvents(gctx, r, a.statusCallback(corr))
			if err != nil {
				return fmt.Errorf("analyzer: fetch range %s: %w", intervalMapKey(r), err)
			}
			results[i] = events
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var out []event.Event
	for _, r := range results {
		out = append(out, r...)
	}
	sortEvents(out)
	return out, nil
}

func (a *Analyzer) statusCallback(corr string) func(collab.LoadStatus) {
	return func(ls collab.LoadStatus) {
		switch {
		case ls.Ready:
			return
		case ls.FetchedRecords > 0:
			a.notify(collab.FetchingEvents(ls.FetchedRecords, "backend"))
		default:
			a.notify(collab.DecodingEvents(ls.ProcessingProgress, "backend"))
		}
	}
}

// loadAllHistory fetches every event from the backend and processes
// it, used on first init and after reset.
func (a *Analyzer) loadAllHistory(ctx context.Context, corr string) error {
	events, err := a.backend.LoadAllEvents(ctx, a.statusCallback(corr))
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}
	sortEvents(events)
	if err := a.cacheEvents(ctx, events); err != nil {
		return err
	}
	return a.processEvents(ctx, events, corr)
}

// loadNewEventsLocked computes the range from the accumulated state's
// processed event interval end up to now, and reconciles it.
func (a *Analyzer) loadNewEventsLocked(ctx context.Context, corr string) error {
	now := a.clock.Now()
	end := a.state.Accumulated.ProcessedEventInterval.End
	if !end.Before(now) {
		return nil
	}
	return a.loadAndProcessEvents(ctx, calendar.New(end, now), corr)
}

// LoadNewEvents fetches and processes any events ingested since the
// last reconciliation.
func (a *Analyzer) LoadNewEvents(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loadNewEventsLocked(ctx, obslog.NewCorrelationID())
}

// checkForNewAggregators back-fills any aggregator id present on the
// accumulated state but absent from its known-aggregators set: every
// event ever ingested is re-applied to only those ids, bypassing the
// already-processed guard by never consulting ProcessedEventInterval
// here.
func (a *Analyzer) checkForNewAggregators(ctx context.Context, corr string) error {
	uninitialized := a.state.Accumulated.UninitializedAggregators()
	if len(uninitialized) == 0 {
		return nil
	}
	a.logger.WithCorrelation(obslog.ChannelAnalyzer, corr).Info("back-filling aggregators", "count", len(uninitialized))

	events, err := a.backend.LoadAllEvents(ctx, a.statusCallback(corr))
	if err != nil {
		return err
	}
	sortEvents(events)

	dirty := map[string]*state.IntervalState{intervalMapKey(a.state.Accumulated.Interval): a.state.Accumulated}
	for _, e := range events {
		monthly := calendar.Month(e.Timestamp)
		target, err := a.resolveNormalizedState(ctx, monthly)
		if err != nil {
			return err
		}
		if err := target.ApplyEvent(e, a.registrations, uninitialized, false); err != nil {
			return err
		}
		dirty[intervalMapKey(target.Interval)] = target

		if err := a.state.Accumulated.ApplyEvent(e, a.registrations, uninitialized, false); err != nil {
			return err
		}

		for key, s := range a.nonNormalStates {
			if s.Interval.Contains(e.Timestamp) {
				if err := s.ApplyEvent(e, a.registrations, uninitialized, false); err != nil {
					return err
				}
				dirty[key] = s
			}
		}
	}
	for _, s := range dirty {
		if err := a.persistState(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// Reset deletes all persisted interval states, clears in-memory state,
// then reloads all history.
func (a *Analyzer) Reset(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	corr := obslog.NewCorrelationID()
	if err := a.delegate.Persist(ctx, stateKey(a.state.Current.Interval), nil); err != nil {
		return err
	}
	if err := a.delegate.Persist(ctx, stateKey(a.state.Accumulated.Interval), nil); err != nil {
		return err
	}
	var deleteErr error
	a.state.Historical.WalkDescending(a.clock.Now(), func(start time.Time) bool {
		month := calendar.Month(start)
		if err := a.delegate.Persist(ctx, stateKey(month), nil); err != nil {
			deleteErr = err
			return false
		}
		return true
	})
	if deleteErr != nil {
		return deleteErr
	}
	events, err := a.backend.LoadAllEvents(ctx, a.statusCallback(corr))
	if err != nil {
		return err
	}
	deleted := map[string]struct{}{}
	for _, e := range events {
		month := calendar.Month(e.Timestamp)
		if _, done := deleted[intervalMapKey(month)]; done {
			continue
		}
		deleted[intervalMapKey(month)] = struct{}{}
		if err := a.delegate.Persist(ctx, stateKey(month), nil); err != nil {
			return err
		}
	}

	a.state.Historical.Clear()
	a.nonNormalStates = map[string]*state.IntervalState{}
	a.searchIndices = map[string]*search.Index{}

	now := a.clock.Now()
	a.state.Current = state.New(calendar.Month(now))
	a.state.Accumulated = state.New(calendar.AllTime())
	a.installAggregators(a.state.Current)
	a.installAggregators(a.state.Accumulated)

	return a.loadAllHistory(ctx, corr)
}
