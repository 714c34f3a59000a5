package aggregator

import (
	"encoding/json"
	"sort"

	"github.com/AtRiskMedia/keystone/event"
)

// DuplicateEventChecker tracks the set of event ids it has seen and
// counts repeats. It always returns Keep — it is an observer, not a
// filter.
type DuplicateEventChecker struct {
	id             string
	seen           map[string]struct{}
	DuplicateCount uint64
}

// NewDuplicateEventChecker builds a DuplicateEventChecker registered
// under id.
func NewDuplicateEventChecker(id string) *DuplicateEventChecker {
	return &DuplicateEventChecker{id: id, seen: map[string]struct{}{}}
}

func (a *DuplicateEventChecker) ID() string { return a.id }

func (a *DuplicateEventChecker) AddEvent(e event.Event, columnName string) (Outcome, error) {
	if _, ok := a.seen[e.ID]; ok {
		a.DuplicateCount++
	} else {
		a.seen[e.ID] = struct{}{}
	}
	return Keep(), nil
}

type duplicateCheckerState struct {
	Seen           []string `json:"seen"`
	DuplicateCount uint64   `json:"duplicateCount"`
}

func (a *DuplicateEventChecker) Encode() ([]byte, bool, error) {
	ids := make([]string, 0, len(a.seen))
	for id := range a.seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	b, err := json.Marshal(duplicateCheckerState{Seen: ids, DuplicateCount: a.DuplicateCount})
	return b, true, err
}

func (a *DuplicateEventChecker) Decode(data []byte) error {
	var s duplicateCheckerState
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(s.Seen))
	for _, id := range s.Seen {
		seen[id] = struct{}{}
	}
	a.seen = seen
	a.DuplicateCount = s.DuplicateCount
	return nil
}

func (a *DuplicateEventChecker) Reset() {
	a.seen = map[string]struct{}{}
	a.DuplicateCount = 0
}

func (a *DuplicateEventChecker) Next() Aggregator  { return nil }
func (a *DuplicateEventChecker) Final() Aggregator { return a }
