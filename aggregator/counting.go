package aggregator

import (
	"encoding/json"

	"github.com/AtRiskMedia/keystone/event"
)

// Counting increments on every event it sees.
type Counting struct {
	id         string
	ValueCount uint64
}

// NewCounting builds a Counting aggregator registered under id.
func NewCounting(id string) *Counting { return &Counting{id: id} }

func (c *Counting) ID() string { return c.id }

func (c *Counting) AddEvent(e event.Event, columnName string) (Outcome, error) {
	c.ValueCount++
	return Keep(), nil
}

type countingState struct {
	ValueCount uint64 `json:"valueCount"`
}

func (c *Counting) Encode() ([]byte, bool, error) {
	b, err := json.Marshal(countingState{ValueCount: c.ValueCount})
	return b, true, err
}

func (c *Counting) Decode(data []byte) error {
	var s countingState
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	c.ValueCount = s.ValueCount
	return nil
}

func (c *Counting) Reset()            { c.ValueCount = 0 }
func (c *Counting) Next() Aggregator  { return nil }
func (c *Counting) Final() Aggregator { return c }
