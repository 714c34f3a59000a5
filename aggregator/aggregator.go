// Package aggregator defines the aggregator capability and the
// built-in aggregator library. An aggregator is a stateful object that
// folds events into a summary; chains compose two aggregators so the
// first's output feeds the second.
package aggregator

import "github.com/AtRiskMedia/keystone/event"

// Action is the chaining verdict returned by AddEvent.
type Action int

const (
	// ActionKeep forwards the original event unchanged to the next
	// link in a chain.
	ActionKeep Action = iota
	// ActionDiscard stops the chain; no downstream aggregator sees
	// this event.
	ActionDiscard
	// ActionReplace rewrites the event as seen by the downstream
	// aggregator.
	ActionReplace
)

// Outcome is the result of a single AddEvent call.
type Outcome struct {
	Action Action
	Event  event.Event // only meaningful when Action == ActionReplace
}

// Keep is the outcome most aggregators return: continue the chain with
// the original event.
func Keep() Outcome { return Outcome{Action: ActionKeep} }

// Discard stops the chain for this event.
func Discard() Outcome { return Outcome{Action: ActionDiscard} }

// Replace forwards e (in place of the original event) to the next
// link in the chain.
func Replace(e event.Event) Outcome { return Outcome{Action: ActionReplace, Event: e} }

// Aggregator is the capability every built-in and user-defined
// aggregator implements. columnName is empty (or the reserved "id"
// column name) for category-level registrations.
type Aggregator interface {
	// ID identifies the aggregator within a state bucket.
	ID() string

	// AddEvent is called once per matching (event, column) pair.
	AddEvent(e event.Event, columnName string) (Outcome, error)

	// Encode serializes state; ok is false when the aggregator is
	// stateless or otherwise non-persistable.
	Encode() (data []byte, ok bool, err error)

	// Decode restores state from bytes previously returned by Encode.
	// It must be the inverse of Encode.
	Decode(data []byte) error

	// Reset restores the aggregator to its empty/zero state.
	Reset()

	// Next returns the chain successor, or nil for a leaf aggregator.
	Next() Aggregator

	// Final follows Next to the terminal aggregator in the chain.
	Final() Aggregator
}

// Factory produces a fresh, zero-valued aggregator instance. It is
// invoked once per interval state bucket that needs the aggregator.
type Factory func() Aggregator

// chainNode composes two aggregators: first's output feeds second.
// Chain nodes are stateless with respect to encoding; persistence
// delegates entirely to the terminal aggregator.
type chainNode struct {
	first  Aggregator
	second Aggregator
}

// Then composes a into b: a runs first, and its outcome determines
// what (if anything) b sees. The composite's ID, Encode, Decode, and
// Reset all delegate to the terminal aggregator (b.Final()).
func Then(a, b Aggregator) Aggregator {
	return &chainNode{first: a, second: b}
}

func (c *chainNode) ID() string { return c.Final().ID() }

func (c *chainNode) AddEvent(e event.Event, columnName string) (Outcome, error) {
	out, err := c.first.AddEvent(e, columnName)
	if err != nil {
		return Outcome{}, err
	}
	switch out.Action {
	case ActionDiscard:
		return out, nil
	case ActionReplace:
		return c.second.AddEvent(out.Event, columnName)
	default:
		return c.second.AddEvent(e, columnName)
	}
}

func (c *chainNode) Encode() ([]byte, bool, error) { return c.Final().Encode() }
func (c *chainNode) Decode(data []byte) error      { return c.Final().Decode(data) }
func (c *chainNode) Reset()                        { c.Final().Reset() }
func (c *chainNode) Next() Aggregator              { return c.second }

func (c *chainNode) Final() Aggregator {
	if inner, ok := c.second.(*chainNode); ok {
		return inner.Final()
	}
	if next := c.second.Next(); next != nil {
		return c.second.Final()
	}
	return c.second
}
