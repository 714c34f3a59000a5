// Package state holds the interval-bucketed aggregator state that the
// analyzer builds up as it applies events.
package state

import (
	"fmt"
	"time"

	"github.com/AtRiskMedia/keystone/aggregator"
	"github.com/AtRiskMedia/keystone/calendar"
	"github.com/AtRiskMedia/keystone/codec"
	"github.com/AtRiskMedia/keystone/event"
	"github.com/AtRiskMedia/keystone/schema"
)

func unixUTC(sec int64) time.Time { return time.Unix(sec, 0).UTC() }

// IntervalState is the mapping from aggregator id to instance for one
// interval, plus the bookkeeping needed for idempotent ingest and
// back-fill detection.
type IntervalState struct {
	Interval               calendar.Interval
	ProcessedEventInterval calendar.Interval
	EventCount             uint64
	Aggregators            map[string]aggregator.Aggregator
	KnownAggregators       map[string]struct{}

	dirty bool
}

// New builds an empty IntervalState for interval, with an initially
// empty processed event interval pinned to [interval.Start, interval.Start].
func New(interval calendar.Interval) *IntervalState {
	return &IntervalState{
		Interval:               interval,
		ProcessedEventInterval: calendar.New(interval.Start, interval.Start),
		Aggregators:            map[string]aggregator.Aggregator{},
		KnownAggregators:       map[string]struct{}{},
	}
}

// Register installs agg under id if not already present. Duplicate
// registration is a no-op (first factory wins).
func (s *IntervalState) Register(id string, agg aggregator.Aggregator) {
	if _, ok := s.Aggregators[id]; ok {
		return
	}
	s.Aggregators[id] = agg
}

// Dirty reports whether the state has been modified since the last
// call to ClearDirty.
func (s *IntervalState) Dirty() bool { return s.dirty }

// ClearDirty resets the dirty flag after a successful persist.
func (s *IntervalState) ClearDirty() { s.dirty = false }

// ApplyEvent feeds e to every registered aggregator whose registration
// column set matches e's category. registrations maps aggregator id to
// its registration site (columns, optional pinned interval). isNew
// distinguishes ordinary ingest (advances ProcessedEventInterval and
// EventCount) from a back-fill application, which bypasses those side
// effects.
//
// ApplyEvent never consults ProcessedEventInterval, so a back-fill can
// re-apply an event whose timestamp already lies inside it; onlyIDs,
// when non-nil, restricts the application to those aggregator ids.
func (s *IntervalState) ApplyEvent(e event.Event, registrations map[string]schema.Registration, onlyIDs map[string]struct{}, isNew bool) error {
	for id, agg := range s.Aggregators {
		if onlyIDs != nil {
			if _, ok := onlyIDs[id]; !ok {
				continue
			}
		}
		reg, ok := registrations[id]
		if !ok {
			continue
		}
		if reg.Interval != nil && !reg.Interval.Equal(s.Interval) {
			continue
		}
		for _, col := range reg.Columns {
			if col.CategoryName != "" && col.CategoryName != e.Category {
				continue
			}
			if _, err := agg.AddEvent(e, col.Name); err != nil {
				return fmt.Errorf("state: aggregator %q: %w", id, err)
			}
		}
		s.KnownAggregators[id] = struct{}{}
	}
	if isNew {
		s.EventCount++
		s.ProcessedEventInterval = expand(s.ProcessedEventInterval, e.Timestamp)
	}
	s.dirty = true
	return nil
}

func expand(i calendar.Interval, t time.Time) calendar.Interval {
	start, end := i.Start, i.End
	if t.Before(start) {
		start = t
	}
	if t.After(end) {
		end = t
	}
	return calendar.New(start, end)
}

// UninitializedAggregators returns the ids present in Aggregators but
// absent from KnownAggregators, the set a back-fill pass needs to
// catch up.
func (s *IntervalState) UninitializedAggregators() map[string]struct{} {
	out := map[string]struct{}{}
	for id := range s.Aggregators {
		if _, ok := s.KnownAggregators[id]; !ok {
			out[id] = struct{}{}
		}
	}
	return out
}

// wireIntervalState is the encoded form: { interval,
// processed_event_interval, event_count, known_aggregators,
// aggregators: [ {id, bytes?} ] }.
type wireIntervalState struct {
	IntervalStart    int64            `json:"intervalStart"`
	IntervalEnd      int64            `json:"intervalEnd"`
	ProcessedStart   int64            `json:"processedStart"`
	ProcessedEnd     int64            `json:"processedEnd"`
	EventCount       uint64           `json:"eventCount"`
	KnownAggregators []string         `json:"knownAggregators"`
	Aggregators      []wireAggregator `json:"aggregators"`
}

type wireAggregator struct {
	ID      string `json:"id"`
	Bytes   []byte `json:"bytes,omitempty"`
	Present bool   `json:"present"`
}

// Encode serializes s into the checksum+zstd envelope. Aggregators
// whose Encode reports ok=false are recorded with Present=false and no
// bytes.
func (s *IntervalState) Encode() ([]byte, error) {
	w := wireIntervalState{
		IntervalStart:  s.Interval.Start.Unix(),
		IntervalEnd:    s.Interval.End.Unix(),
		ProcessedStart: s.ProcessedEventInterval.Start.Unix(),
		ProcessedEnd:   s.ProcessedEventInterval.End.Unix(),
		EventCount:     s.EventCount,
	}
	for id := range s.KnownAggregators {
		w.KnownAggregators = append(w.KnownAggregators, id)
	}
	for id, agg := range s.Aggregators {
		data, ok, err := agg.Encode()
		if err != nil {
			return nil, fmt.Errorf("state: encode aggregator %q: %w", id, err)
		}
		w.Aggregators = append(w.Aggregators, wireAggregator{ID: id, Bytes: data, Present: ok})
	}
	return codec.Encode(w)
}

// Decode instantiates fresh aggregator instances from factories (so
// unknown ids are silently ignored, tolerating schema shrinkage) and
// restores state from data.
func Decode(data []byte, interval calendar.Interval, factories map[string]aggregator.Factory) (*IntervalState, error) {
	var w wireIntervalState
	if err := codec.Decode(data, &w); err != nil {
		return nil, err
	}
	s := New(interval)
	s.Interval = calendar.New(unixUTC(w.IntervalStart), unixUTC(w.IntervalEnd))
	s.ProcessedEventInterval = calendar.New(unixUTC(w.ProcessedStart), unixUTC(w.ProcessedEnd))
	s.EventCount = w.EventCount
	for _, id := range w.KnownAggregators {
		s.KnownAggregators[id] = struct{}{}
	}
	for _, wa := range w.Aggregators {
		factory, ok := factories[wa.ID]
		if !ok {
			continue
		}
		agg := factory()
		if wa.Present {
			if err := agg.Decode(wa.Bytes); err != nil {
				return nil, fmt.Errorf("state: decode aggregator %q: %w", wa.ID, err)
			}
		}
		s.Aggregators[wa.ID] = agg
	}
	return s, nil
}
