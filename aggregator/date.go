package aggregator

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/AtRiskMedia/keystone/calendar"
	"github.com/AtRiskMedia/keystone/event"
)

// DateAggregator buckets events by the start-of-scope timestamp of
// event.Timestamp (hour/day/week/month/year), collecting the full
// event list per bucket.
type DateAggregator struct {
	id      string
	scope   calendar.Scope
	buckets map[int64][]event.Event
}

// NewDateAggregator builds a DateAggregator bucketing at the given
// scope, registered under id.
func NewDateAggregator(id string, scope calendar.Scope) *DateAggregator {
	return &DateAggregator{id: id, scope: scope, buckets: map[int64][]event.Event{}}
}

func (a *DateAggregator) ID() string { return a.id }

func (a *DateAggregator) AddEvent(e event.Event, columnName string) (Outcome, error) {
	key := calendar.StartOfScope(e.Timestamp, a.scope).Unix()
	a.buckets[key] = append(a.buckets[key], e)
	return Keep(), nil
}

// Keys returns the start-of-scope bucket keys observed so far, sorted
// chronologically.
func (a *DateAggregator) Keys() []time.Time {
	raw := make([]int64, 0, len(a.buckets))
	for k := range a.buckets {
		raw = append(raw, k)
	}
	sort.Slice(raw, func(i, j int) bool { return raw[i] < raw[j] })
	out := make([]time.Time, len(raw))
	for i, r := range raw {
		out[i] = time.Unix(r, 0).UTC()
	}
	return out
}

// Bucket returns the events collected for a given start-of-scope key.
func (a *DateAggregator) Bucket(start time.Time) []event.Event {
	return a.buckets[calendar.StartOfScope(start, a.scope).Unix()]
}

type dateAggregatorState struct {
	Scope   calendar.Scope          `json:"scope"`
	Buckets map[int64][]event.Event `json:"buckets"`
}

func (a *DateAggregator) Encode() ([]byte, bool, error) {
	b, err := json.Marshal(dateAggregatorState{Scope: a.scope, Buckets: a.buckets})
	return b, true, err
}

func (a *DateAggregator) Decode(data []byte) error {
	var s dateAggregatorState
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s.Buckets == nil {
		s.Buckets = map[int64][]event.Event{}
	}
	a.scope = s.Scope
	a.buckets = s.Buckets
	return nil
}

func (a *DateAggregator) Reset() { a.buckets = map[int64][]event.Event{} }

func (a *DateAggregator) Next() Aggregator  { return nil }
func (a *DateAggregator) Final() Aggregator { return a }

// CountingByDate is DateAggregator's counting counterpart: it buckets
// by start-of-scope timestamp but keeps only counts.
type CountingByDate struct {
	id     string
	scope  calendar.Scope
	counts map[int64]uint64
}

// NewCountingByDate builds a CountingByDate aggregator bucketing at
// the given scope, registered under id.
func NewCountingByDate(id string, scope calendar.Scope) *CountingByDate {
	return &CountingByDate{id: id, scope: scope, counts: map[int64]uint64{}}
}

func (a *CountingByDate) ID() string { return a.id }

func (a *CountingByDate) AddEvent(e event.Event, columnName string) (Outcome, error) {
	key := calendar.StartOfScope(e.Timestamp, a.scope).Unix()
	a.counts[key]++
	return Keep(), nil
}

// Keys returns the start-of-scope bucket keys observed so far, sorted
// chronologically.
func (a *CountingByDate) Keys() []time.Time {
	raw := make([]int64, 0, len(a.counts))
	for k := range a.counts {
		raw = append(raw, k)
	}
	sort.Slice(raw, func(i, j int) bool { return raw[i] < raw[j] })
	out := make([]time.Time, len(raw))
	for i, r := range raw {
		out[i] = time.Unix(r, 0).UTC()
	}
	return out
}

// Count returns the count for a given start-of-scope bucket.
func (a *CountingByDate) Count(start time.Time) uint64 {
	return a.counts[calendar.StartOfScope(start, a.scope).Unix()]
}

type countingByDateState struct {
	Scope  calendar.Scope   `json:"scope"`
	Counts map[int64]uint64 `json:"counts"`
}

func (a *CountingByDate) Encode() ([]byte, bool, error) {
	b, err := json.Marshal(countingByDateState{Scope: a.scope, Counts: a.counts})
	return b, true, err
}

func (a *CountingByDate) Decode(data []byte) error {
	var s countingByDateState
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s.Counts == nil {
		s.Counts = map[int64]uint64{}
	}
	a.scope = s.Scope
	a.counts = s.Counts
	return nil
}

func (a *CountingByDate) Reset() { a.counts = map[int64]uint64{} }

func (a *CountingByDate) Next() Aggregator  { return nil }
func (a *CountingByDate) Final() Aggregator { return a }
