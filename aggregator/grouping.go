package aggregator

import (
	"encoding/json"
	"sort"

	"github.com/AtRiskMedia/keystone/event"
)

// Grouping buckets events by event.Data[columnName], collecting the
// full event list per bucket.
type Grouping struct {
	id      string
	buckets map[string][]event.Event
	labels  map[string]event.Value
}

// NewGrouping builds a Grouping aggregator registered under id.
func NewGrouping(id string) *Grouping {
	return &Grouping{id: id, buckets: map[string][]event.Event{}, labels: map[string]event.Value{}}
}

func (a *Grouping) ID() string { return a.id }

func (a *Grouping) AddEvent(e event.Event, columnName string) (Outcome, error) {
	v := e.Value(columnName)
	key := v.Key()
	a.buckets[key] = append(a.buckets[key], e)
	a.labels[key] = v
	return Keep(), nil
}

// Keys returns the group keys observed so far, sorted for determinism.
func (a *Grouping) Keys() []string {
	keys := make([]string, 0, len(a.buckets))
	for k := range a.buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Group returns the events collected for a given value.
func (a *Grouping) Group(v event.Value) []event.Event {
	return a.buckets[v.Key()]
}

type groupingState struct {
	Labels  map[string]event.Value   `json:"labels"`
	Buckets map[string][]event.Event `json:"buckets"`
}

func (a *Grouping) Encode() ([]byte, bool, error) {
	b, err := json.Marshal(groupingState{Labels: a.labels, Buckets: a.buckets})
	return b, true, err
}

func (a *Grouping) Decode(data []byte) error {
	var s groupingState
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s.Buckets == nil {
		s.Buckets = map[string][]event.Event{}
	}
	if s.Labels == nil {
		s.Labels = map[string]event.Value{}
	}
	a.buckets = s.Buckets
	a.labels = s.Labels
	return nil
}

func (a *Grouping) Reset() {
	a.buckets = map[string][]event.Event{}
	a.labels = map[string]event.Value{}
}

func (a *Grouping) Next() Aggregator  { return nil }
func (a *Grouping) Final() Aggregator { return a }

// CountingByGroup buckets by event.Data[columnName], collecting counts
// rather than full event lists.
type CountingByGroup struct {
	id     string
	counts map[string]uint64
	labels map[string]event.Value
}

// NewCountingByGroup builds a CountingByGroup aggregator registered
// under id.
func NewCountingByGroup(id string) *CountingByGroup {
	return &CountingByGroup{id: id, counts: map[string]uint64{}, labels: map[string]event.Value{}}
}

func (a *CountingByGroup) ID() string { return a.id }

func (a *CountingByGroup) AddEvent(e event.Event, columnName string) (Outcome, error) {
	v := e.Value(columnName)
	key := v.Key()
	a.counts[key]++
	a.labels[key] = v
	return Keep(), nil
}

// Count returns the count observed for a given value.
func (a *CountingByGroup) Count(v event.Value) uint64 {
	return a.counts[v.Key()]
}

// Keys returns the group keys observed so far, sorted for determinism.
func (a *CountingByGroup) Keys() []string {
	keys := make([]string, 0, len(a.counts))
	for k := range a.counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type countingByGroupState struct {
	Labels map[string]event.Value `json:"labels"`
	Counts map[string]uint64      `json:"counts"`
}

func (a *CountingByGroup) Encode() ([]byte, bool, error) {
	b, err := json.Marshal(countingByGroupState{Labels: a.labels, Counts: a.counts})
	return b, true, err
}

func (a *CountingByGroup) Decode(data []byte) error {
	var s countingByGroupState
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s.Counts == nil {
		s.Counts = map[string]uint64{}
	}
	if s.Labels == nil {
		s.Labels = map[string]event.Value{}
	}
	a.counts = s.Counts
	a.labels = s.Labels
	return nil
}

func (a *CountingByGroup) Reset() {
	a.counts = map[string]uint64{}
	a.labels = map[string]event.Value{}
}

func (a *CountingByGroup) Next() Aggregator  { return nil }
func (a *CountingByGroup) Final() Aggregator { return a }
