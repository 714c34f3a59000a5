package analyzer

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/AtRiskMedia/keystone/aggregator"
	"github.com/AtRiskMedia/keystone/calendar"
	"github.com/AtRiskMedia/keystone/codec"
	"github.com/AtRiskMedia/keystone/collab"
	"github.com/AtRiskMedia/keystone/event"
	"github.com/AtRiskMedia/keystone/keystoneerr"
	"github.com/AtRiskMedia/keystone/search"
	"github.com/AtRiskMedia/keystone/state"
)

// FindAggregator resolves the state for interval and returns the
// aggregator registered under id on it.
func (a *Analyzer) FindAggregator(ctx context.Context, id string, interval calendar.Interval) (aggregator.Aggregator, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, err := a.resolveStateForQuery(ctx, interval)
	if err != nil {
		return nil, err
	}
	agg, ok := s.Aggregators[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", keystoneerr.ErrUnknownAggregator, id)
	}
	return agg, nil
}

// FindAggregatorsForCategory resolves the state for interval and
// returns every aggregator registered on a column of category.
func (a *Analyzer) FindAggregatorsForCategory(ctx context.Context, category string, interval calendar.Interval) (map[string]aggregator.Aggregator, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, err := a.resolveStateForQuery(ctx, interval)
	if err != nil {
		return nil, err
	}
	out := map[string]aggregator.Aggregator{}
	for id, agg := range s.Aggregators {
		reg, ok := a.registrations[id]
		if !ok {
			continue
		}
		for _, col := range reg.Columns {
			if col.CategoryName == category {
				out[id] = agg
				break
			}
		}
	}
	return out, nil
}

// Events returns every processed event whose timestamp falls within
// interval, sorted by timestamp. It is the read path backing the demo
// HTTP surface's GET /events.
func (a *Analyzer) Events(ctx context.Context, interval calendar.Interval) ([]event.Event, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.getProcessedEvents(ctx, interval)
}

// resolveStateForQuery resolves a normalized interval to current,
// accumulated, or a historical bucket, or materializes an ad-hoc state
// for a non-normalized interval, memoizing it for the analyzer's
// lifetime.
func (a *Analyzer) resolveStateForQuery(ctx context.Context, interval calendar.Interval) (*state.IntervalState, error) {
	if calendar.IsNormalized(interval) {
		if interval.Equal(calendar.AllTime()) {
			return a.state.Accumulated, nil
		}
		return a.resolveNormalizedState(ctx, calendar.Month(interval.Start))
	}

	key := intervalMapKey(interval)
	if s, ok := a.nonNormalStates[key]; ok {
		return s, nil
	}

	s := state.New(interval)
	a.installAggregators(s)
	events, err := a.getProcessedEvents(ctx, interval)
	if err != nil {
		return nil, err
	}
	for _, e := range events {
		if err := s.ApplyEvent(e, a.registrations, nil, true); err != nil {
			return nil, err
		}
	}
	a.nonNormalStates[key] = s
	return s, nil
}

// indexEvent keywords e into the in-memory search index for its
// containing month, creating the index on first use.
func (a *Analyzer) indexEvent(monthly calendar.Interval, e event.Event) {
	key := intervalMapKey(monthly)
	idx, ok := a.searchIndices[key]
	if !ok {
		idx = search.New(monthly)
		a.searchIndices[key] = idx
	}
	idx.Add(e, a.config.KeywordExtractor)
}

func (a *Analyzer) persistSearchIndex(ctx context.Context, key string, month calendar.Interval) error {
	idx, ok := a.searchIndices[key]
	if !ok {
		return nil
	}
	data, err := codec.Encode(idx)
	if err != nil {
		return fmt.Errorf("analyzer: encode search index %s: %w", searchIndexKey(month), err)
	}
	if err := a.delegate.Persist(ctx, searchIndexKey(month), data); err != nil {
		return fmt.Errorf("analyzer: persist search index %s: %w", searchIndexKey(month), err)
	}
	return nil
}

func (a *Analyzer) loadSearchIndex(ctx context.Context, month calendar.Interval) (*search.Index, error) {
	if idx, ok := a.searchIndices[intervalMapKey(month)]; ok {
		return idx, nil
	}
	data, ok, err := a.delegate.Load(ctx, collab.ArtifactSearchIndex, searchIndexKey(month))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	idx := search.New(month)
	if err := codec.Decode(data, idx); err != nil {
		a.logger.Search().Debug("search index decode failed, treating as absent", "bucket", searchIndexKey(month), "error", err)
		return nil, nil
	}
	return idx, nil
}

// Search matches query against the keyword index, reconstructing an
// index over interval from per-month buckets before matching.
func (a *Analyzer) Search(ctx context.Context, query string, interval calendar.Interval) ([]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.config.CreateSearchIndex {
		return nil, fmt.Errorf("keystone: search index is not enabled")
	}

	events, err := a.getProcessedEvents(ctx, interval)
	if err != nil {
		return nil, err
	}
	memberIDs := make(map[string]struct{}, len(events))
	for _, e := range events {
		memberIDs[e.ID] = struct{}{}
	}

	var buckets []*search.Index
	for m := calendar.Month(interval.Start); !m.Start.After(interval.End); m = calendar.Month(m.End.Add(time.Second)) {
		idx, err := a.loadSearchIndex(ctx, m)
		if err != nil {
			return nil, err
		}
		if idx != nil {
			buckets = append(buckets, idx)
		}
	}

	combined := search.Union(interval, buckets, memberIDs)
	matches := combined.MatchingIDs(query)
	ids := make([]string, 0, len(matches))
	for id := range matches {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
