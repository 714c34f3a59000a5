package aggregator

import "github.com/AtRiskMedia/keystone/event"

// Predicate decides whether a column's value should keep the event
// flowing through a Filtering aggregator.
type Predicate func(v event.Value) bool

// Filtering forwards an event iff the predicate on the column's value
// returns true; otherwise it discards the event. Filtering carries no
// state of its own, so it is never persisted.
type Filtering struct {
	id   string
	pred Predicate
}

// NewFiltering builds a Filtering aggregator registered under id.
func NewFiltering(id string, pred Predicate) *Filtering {
	return &Filtering{id: id, pred: pred}
}

func (a *Filtering) ID() string { return a.id }

func (a *Filtering) AddEvent(e event.Event, columnName string) (Outcome, error) {
	if a.pred(e.Value(columnName)) {
		return Keep(), nil
	}
	return Discard(), nil
}

func (a *Filtering) Encode() ([]byte, bool, error) { return nil, false, nil }
func (a *Filtering) Decode(data []byte) error      { return nil }
func (a *Filtering) Reset()                        {}
func (a *Filtering) Next() Aggregator              { return nil }
func (a *Filtering) Final() Aggregator             { return a }

// MetaPredicate decides whether to keep an event based on the whole
// event, not a single column's value.
type MetaPredicate func(e event.Event) bool

// MetaFiltering is Filtering's whole-event counterpart.
type MetaFiltering struct {
	id   string
	pred MetaPredicate
}

// NewMetaFiltering builds a MetaFiltering aggregator registered under id.
func NewMetaFiltering(id string, pred MetaPredicate) *MetaFiltering {
	return &MetaFiltering{id: id, pred: pred}
}

func (a *MetaFiltering) ID() string { return a.id }

func (a *MetaFiltering) AddEvent(e event.Event, columnName string) (Outcome, error) {
	if a.pred(e) {
		return Keep(), nil
	}
	return Discard(), nil
}

func (a *MetaFiltering) Encode() ([]byte, bool, error) { return nil, false, nil }
func (a *MetaFiltering) Decode(data []byte) error      { return nil }
func (a *MetaFiltering) Reset()                        {}
func (a *MetaFiltering) Next() Aggregator              { return nil }
func (a *MetaFiltering) Final() Aggregator             { return a }

// PredicateAggregator is syntactic sugar for Filter(p).then(Count): it
// counts only the events that satisfy p.
func PredicateAggregator(id string, pred Predicate) Aggregator {
	return Then(NewFiltering(id+"-filter", pred), NewCounting(id))
}
