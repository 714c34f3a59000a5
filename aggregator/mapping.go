package aggregator

import "github.com/AtRiskMedia/keystone/event"

// MapFunc computes a replacement value for a column; ok=false
// discards the event instead of forwarding a replacement.
type MapFunc func(v event.Value) (mapped event.Value, ok bool)

// Mapping replaces the event's value at columnName with the result of
// fn, or discards the event if fn reports no mapping. Mapping carries
// no state of its own.
type Mapping struct {
	id string
	fn MapFunc
}

// NewMapping builds a Mapping aggregator registered under id.
func NewMapping(id string, fn MapFunc) *Mapping {
	return &Mapping{id: id, fn: fn}
}

func (a *Mapping) ID() string { return a.id }

func (a *Mapping) AddEvent(e event.Event, columnName string) (Outcome, error) {
	mapped, ok := a.fn(e.Value(columnName))
	if !ok {
		return Discard(), nil
	}
	replaced := e
	replaced.Data = cloneData(e.Data)
	replaced.Data[columnName] = mapped
	return Replace(replaced), nil
}

func cloneData(data map[string]event.Value) map[string]event.Value {
	out := make(map[string]event.Value, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}

func (a *Mapping) Encode() ([]byte, bool, error) { return nil, false, nil }
func (a *Mapping) Decode(data []byte) error      { return nil }
func (a *Mapping) Reset()                        {}
func (a *Mapping) Next() Aggregator              { return nil }
func (a *Mapping) Final() Aggregator             { return a }
