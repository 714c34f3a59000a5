package aggregator

import (
	"encoding/json"

	"github.com/AtRiskMedia/keystone/event"
)

// LatestEvent keeps, per user id, the most recently seen event (by
// arrival order, not timestamp — a later-arriving event always wins
// even if its timestamp is earlier, matching back-fill replays).
type LatestEvent struct {
	id      string
	byUser  map[string]event.Event
	arrival map[string]uint64
	seq     uint64
}

// NewLatestEvent builds a LatestEvent aggregator registered under id.
func NewLatestEvent(id string) *LatestEvent {
	return &LatestEvent{id: id, byUser: map[string]event.Event{}, arrival: map[string]uint64{}}
}

func (a *LatestEvent) ID() string { return a.id }

func (a *LatestEvent) AddEvent(e event.Event, columnName string) (Outcome, error) {
	a.seq++
	a.byUser[e.UserID] = e
	a.arrival[e.UserID] = a.seq
	return Keep(), nil
}

// Latest returns the most recently seen event for a user, if any.
func (a *LatestEvent) Latest(userID string) (event.Event, bool) {
	e, ok := a.byUser[userID]
	return e, ok
}

type latestEventState struct {
	ByUser map[string]event.Event `json:"byUser"`
}

func (a *LatestEvent) Encode() ([]byte, bool, error) {
	b, err := json.Marshal(latestEventState{ByUser: a.byUser})
	return b, true, err
}

func (a *LatestEvent) Decode(data []byte) error {
	var s latestEventState
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s.ByUser == nil {
		s.ByUser = map[string]event.Event{}
	}
	a.byUser = s.ByUser
	a.arrival = map[string]uint64{}
	a.seq = 0
	return nil
}

func (a *LatestEvent) Reset() {
	a.byUser = map[string]event.Event{}
	a.arrival = map[string]uint64{}
	a.seq = 0
}

func (a *LatestEvent) Next() Aggregator  { return nil }
func (a *LatestEvent) Final() Aggregator { return a }
