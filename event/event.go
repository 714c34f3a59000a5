package event

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is an immutable record: id, originating user, category, an
// absolute timestamp, and a heterogeneous key->value payload. Once
// constructed, an Event is never mutated; identity is by ID.
type Event struct {
	ID        string
	UserID    string
	Category  string
	Timestamp time.Time
	Data      map[string]Value
}

// New constructs an Event with a fresh UUIDv4 id. It is the primitive
// the reference Client (see collab.Client) stamps on submission; the
// analyzer itself never constructs events.
func New(userID, category string, timestamp time.Time, data map[string]Value) Event {
	return Event{
		ID:        uuid.NewString(),
		UserID:    userID,
		Category:  category,
		Timestamp: timestamp.UTC(),
		Data:      data,
	}
}

// Value returns the payload value for a column, or Absent if the
// column is not present in this event's data.
func (e Event) Value(column string) Value {
	if v, ok := e.Data[column]; ok {
		return v
	}
	return Absent
}

// jsonEvent mirrors Event for JSON purposes; timestamps are absolute
// time encoded as seconds since the Unix epoch (a double), and UUIDs
// are lowercase RFC-4122 strings, per the encoded-formats rule.
type jsonEvent struct {
	ID        string           `json:"id"`
	UserID    string           `json:"userId"`
	Category  string           `json:"category"`
	Timestamp float64          `json:"timestamp"`
	Data      map[string]Value `json:"data"`
}

// MarshalJSON implements json.Marshaler.
func (e Event) MarshalJSON() ([]byte, error) {
	je := jsonEvent{
		ID:        e.ID,
		UserID:    e.UserID,
		Category:  e.Category,
		Timestamp: float64(e.Timestamp.UnixNano()) / 1e9,
		Data:      e.Data,
	}
	return json.Marshal(je)
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Event) UnmarshalJSON(data []byte) error {
	var je jsonEvent
	if err := json.Unmarshal(data, &je); err != nil {
		return err
	}
	e.ID = je.ID
	e.UserID = je.UserID
	e.Category = je.Category
	e.Timestamp = time.Unix(0, int64(je.Timestamp*1e9)).UTC()
	e.Data = je.Data
	return nil
}
