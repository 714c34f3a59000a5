// Package analyzer implements the orchestrator that ties event
// ingestion to the aggregator forest.
package analyzer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AtRiskMedia/keystone/aggregator"
	"github.com/AtRiskMedia/keystone/calendar"
	"github.com/AtRiskMedia/keystone/clock"
	"github.com/AtRiskMedia/keystone/collab"
	"github.com/AtRiskMedia/keystone/internal/obslog"
	"github.com/AtRiskMedia/keystone/keystoneerr"
	"github.com/AtRiskMedia/keystone/schema"
	"github.com/AtRiskMedia/keystone/search"
	"github.com/AtRiskMedia/keystone/state"
)

// Analyzer is the running orchestrator: it owns the current, all-time,
// and historical interval states and applies incoming events to the
// aggregators registered on them.
//
// The analyzer is designed for single-threaded cooperative scheduling;
// mu exists only so a caller that does drive it from multiple
// goroutines gets a correct (if serialized) result.
type Analyzer struct {
	config   Config
	backend  collab.Backend
	delegate collab.Delegate
	clock    clock.Clock
	logger   *obslog.Logger

	categories    map[string]schema.EventCategory
	registrations map[string]schema.Registration

	state           *state.AnalyzerState
	nonNormalStates map[string]*state.IntervalState
	searchIndices   map[string]*search.Index

	statusFilter collab.SignificanceFilter

	mu sync.Mutex
}

func newAnalyzer(config Config, backend collab.Backend, delegate collab.Delegate, categories []schema.EventCategory, registrations map[string]schema.Registration) *Analyzer {
	byName := make(map[string]schema.EventCategory, len(categories))
	for _, c := range categories {
		byName[c.Name] = c
	}
	return &Analyzer{
		config:          config,
		backend:         backend,
		delegate:        delegate,
		clock:           config.Clock,
		logger:          config.Logger,
		categories:      byName,
		registrations:   registrations,
		nonNormalStates: map[string]*state.IntervalState{},
		searchIndices:   map[string]*search.Index{},
	}
}

func (a *Analyzer) factories() map[string]aggregator.Factory {
	out := make(map[string]aggregator.Factory, len(a.registrations))
	for id, reg := range a.registrations {
		out[id] = reg.Factory
	}
	return out
}

// appliesTo reports whether registration reg is installed on state
// bucket with interval i: unpinned registrations apply to every
// normalized state; pinned registrations apply only to the bucket
// whose interval equals the pin exactly.
func appliesTo(reg schema.Registration, i calendar.Interval) bool {
	if reg.Interval == nil {
		return true
	}
	return reg.Interval.Equal(i)
}

func (a *Analyzer) installAggregators(s *state.IntervalState) {
	for id, reg := range a.registrations {
		if !appliesTo(reg, s.Interval) {
			continue
		}
		if _, ok := s.Aggregators[id]; ok {
			continue
		}
		s.Register(id, reg.Factory())
	}
}

func (a *Analyzer) notify(status collab.Status) {
	if !a.statusFilter.Significant(status) {
		return
	}
	a.delegate.StatusChanged(status)
}

// init loads the current and accumulated states, installs the
// registered aggregators on them, and either loads all history or
// back-fills and catches up on new events, depending on whether the
// accumulated state has ever processed anything before.
func (a *Analyzer) init(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	corr := obslog.NewCorrelationID()
	log := a.logger.WithCorrelation(obslog.ChannelAnalyzer, corr)
	log.Info("analyzer init starting")
	a.notify(collab.Initializing())

	now := a.clock.Now()
	currentInterval := calendar.Month(now)

	cur, err := a.loadOrCreateState(ctx, currentInterval)
	if err != nil {
		return fmt.Errorf("analyzer: init: load current state: %w", err)
	}
	acc, err := a.loadOrCreateState(ctx, calendar.AllTime())
	if err != nil {
		return fmt.Errorf("analyzer: init: load accumulated state: %w", err)
	}
	a.state = state.NewAnalyzerState(currentInterval)
	a.state.Current = cur
	a.state.Accumulated = acc

	if err := a.ensureCurrentStateValidity(ctx, currentInterval); err != nil {
		return fmt.Errorf("analyzer: init: ensure current state validity: %w", err)
	}

	a.installAggregators(a.state.Current)
	a.installAggregators(a.state.Accumulated)

	if a.state.Accumulated.ProcessedEventInterval.Duration() == 0 {
		if err := a.loadAllHistory(ctx, corr); err != nil {
			return fmt.Errorf("analyzer: init: load all history: %w", err)
		}
	} else {
		if err := a.checkForNewAggregators(ctx, corr); err != nil {
			return fmt.Errorf("analyzer: init: back-fill: %w", err)
		}
		if err := a.loadNewEventsLocked(ctx, corr); err != nil {
			return fmt.Errorf("analyzer: init: load new events: %w", err)
		}
	}

	a.notify(collab.Ready())
	log.Info("analyzer init complete")
	return nil
}

// ensureCurrentStateValidity demotes a stale current bucket to
// historical and installs a fresh one for currentInterval.
func (a *Analyzer) ensureCurrentStateValidity(ctx context.Context, currentInterval calendar.Interval) error {
	if a.state.Current.Interval.Equal(currentInterval) {
		return nil
	}
	old := a.state.Current
	if old.Dirty() {
		if err := a.persistState(ctx, old); err != nil {
			return err
		}
	}
	a.state.Historical.Put(old)
	fresh, err := a.loadOrCreateState(ctx, currentInterval)
	if err != nil {
		return err
	}
	a.state.Current = fresh
	a.installAggregators(a.state.Current)
	return nil
}

func (a *Analyzer) loadOrCreateState(ctx context.Context, interval calendar.Interval) (*state.IntervalState, error) {
	data, ok, err := a.delegate.Load(ctx, collab.ArtifactState, stateKey(interval))
	if err != nil {
		return nil, err
	}
	if !ok {
		return state.New(interval), nil
	}
	s, err := state.Decode(data, interval, a.factories())
	if err != nil {
		a.logger.Delegate().Debug("state decode failed, treating as absent", "interval", intervalMapKey(interval), "error", err)
		return state.New(interval), nil
	}
	return s, nil
}

func (a *Analyzer) persistState(ctx context.Context, s *state.IntervalState) error {
	data, err := s.Encode()
	if err != nil {
		return fmt.Errorf("analyzer: encode state %s: %w", intervalMapKey(s.Interval), err)
	}
	if err := a.delegate.Persist(ctx, stateKey(s.Interval), data); err != nil {
		return fmt.Errorf("analyzer: persist state %s: %w", intervalMapKey(s.Interval), err)
	}
	s.ClearDirty()
	return nil
}

func nowGuard(now, ts time.Time) error {
	if !ts.Before(now) {
		return fmt.Errorf("%w: event timestamp %s not before now %s", keystoneerr.ErrFutureEvent, ts, now)
	}
	return nil
}
