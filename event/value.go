// Package event defines the immutable event record and the tagged-union
// value type that populates its payload.
package event

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/crypto/blake2b"
)

// Kind discriminates the variant carried by a Value.
type Kind int

const (
	KindAbsent Kind = iota
	KindNumber
	KindText
	KindDate
	KindBool
	KindOpaque
)

func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "Absent"
	case KindNumber:
		return "Number"
	case KindText:
		return "Text"
	case KindDate:
		return "Date"
	case KindBool:
		return "Bool"
	case KindOpaque:
		return "Opaque"
	default:
		return "Unknown"
	}
}

// Value is the tagged union carried by an event's payload: numeric,
// text, date, boolean, opaque-bytes, or absent. The Opaque variant's
// byte slice makes Value unusable with Go's == operator; compare values
// with Equal or Compare.
type Value struct {
	kind   Kind
	num    float64
	text   string
	date   time.Time
	flag   bool
	opaque []byte
}

// Absent is the distinct "no value" variant; it is its own key for
// equality and hashing purposes, never conflated with a missing map
// entry.
var Absent = Value{kind: KindAbsent}

func Number(v float64) Value { return Value{kind: KindNumber, num: v} }
func Text(v string) Value    { return Value{kind: KindText, text: v} }
func Date(v time.Time) Value { return Value{kind: KindDate, date: v.UTC()} }
func Bool(v bool) Value      { return Value{kind: KindBool, flag: v} }

func Opaque(v []byte) Value {
	cp := append([]byte(nil), v...)
	return Value{kind: KindOpaque, opaque: cp}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) AsNumber() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.num, true
}

func (v Value) AsText() (string, bool) {
	if v.kind != KindText {
		return "", false
	}
	return v.text, true
}

func (v Value) AsDate() (time.Time, bool) {
	if v.kind != KindDate {
		return time.Time{}, false
	}
	return v.date, true
}

func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.flag, true
}

func (v Value) AsOpaque() ([]byte, bool) {
	if v.kind != KindOpaque {
		return nil, false
	}
	return v.opaque, true
}

// Equal reports whether two values share a variant tag and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindAbsent:
		return true
	case KindNumber:
		return v.num == o.num
	case KindText:
		return v.text == o.text
	case KindDate:
		return v.date.Equal(o.date)
	case KindBool:
		return v.flag == o.flag
	case KindOpaque:
		return bytes.Equal(v.opaque, o.opaque)
	default:
		return false
	}
}

// Compare imposes a total order across variants: first by kind, then
// by payload. It exists so Values can be used as sort/map keys in the
// grouping aggregators without relying on interface{} comparison.
func (v Value) Compare(o Value) int {
	if v.kind != o.kind {
		if v.kind < o.kind {
			return -1
		}
		return 1
	}
	switch v.kind {
	case KindAbsent:
		return 0
	case KindNumber:
		switch {
		case v.num < o.num:
			return -1
		case v.num > o.num:
			return 1
		default:
			return 0
		}
	case KindText:
		switch {
		case v.text < o.text:
			return -1
		case v.text > o.text:
			return 1
		default:
			return 0
		}
	case KindDate:
		switch {
		case v.date.Before(o.date):
			return -1
		case v.date.After(o.date):
			return 1
		default:
			return 0
		}
	case KindBool:
		if v.flag == o.flag {
			return 0
		}
		if !v.flag {
			return -1
		}
		return 1
	case KindOpaque:
		return bytes.Compare(v.opaque, o.opaque)
	default:
		return 0
	}
}

// Hash returns a deterministic digest of the value's tag and payload,
// usable as a map key when a plain Go comparable type won't do (the
// grouping aggregators key by Key instead). Built on
// blake2b rather than a hand-rolled FNV mix, matching the ecosystem's
// preferred hashing primitive for this kind of fixed-size digest.
func (v Value) Hash() uint64 {
	h, _ := blake2b.New(8, nil)
	h.Write([]byte{byte(v.kind)})
	switch v.kind {
	case KindNumber:
		fmt.Fprintf(h, "%x", v.num)
	case KindText:
		h.Write([]byte(v.text))
	case KindDate:
		fmt.Fprintf(h, "%d", v.date.UnixNano())
	case KindBool:
		if v.flag {
			h.Write([]byte{1})
		} else {
			h.Write([]byte{0})
		}
	case KindOpaque:
		h.Write(v.opaque)
	}
	sum := h.Sum(nil)
	var out uint64
	for _, b := range sum {
		out = out<<8 | uint64(b)
	}
	return out
}

// Key returns a canonical string form of the value, stable across
// process restarts, suitable as a map key or JSON object key for the
// grouping aggregators (Grouping, CountingByGroup).
func (v Value) Key() string {
	switch v.kind {
	case KindAbsent:
		return "Absent:"
	case KindNumber:
		return fmt.Sprintf("Number:%x", v.num)
	case KindText:
		return "Text:" + v.text
	case KindDate:
		return fmt.Sprintf("Date:%d", v.date.UnixNano())
	case KindBool:
		return fmt.Sprintf("Bool:%v", v.flag)
	case KindOpaque:
		return fmt.Sprintf("Opaque:%x", v.opaque)
	default:
		return "Unknown:"
	}
}

// jsonValue is the wire shape: a single-key object naming the variant.
type jsonValue struct {
	Number *float64  `json:"Number,omitempty"`
	Text   *string   `json:"Text,omitempty"`
	Date   *float64  `json:"Date,omitempty"`
	Bool   *bool     `json:"Bool,omitempty"`
	Opaque []byte    `json:"Opaque,omitempty"`
	Absent *struct{} `json:"Absent,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	var jv jsonValue
	switch v.kind {
	case KindNumber:
		n := v.num
		jv.Number = &n
	case KindText:
		t := v.text
		jv.Text = &t
	case KindDate:
		secs := float64(v.date.UnixNano()) / 1e9
		jv.Date = &secs
	case KindBool:
		b := v.flag
		jv.Bool = &b
	case KindOpaque:
		jv.Opaque = v.opaque
	case KindAbsent:
		jv.Absent = &struct{}{}
	default:
		return nil, fmt.Errorf("event: cannot marshal value of unknown kind %d", v.kind)
	}
	return json.Marshal(jv)
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	var jv jsonValue
	if err := json.Unmarshal(data, &jv); err != nil {
		return err
	}
	switch {
	case jv.Number != nil:
		*v = Number(*jv.Number)
	case jv.Text != nil:
		*v = Text(*jv.Text)
	case jv.Date != nil:
		secs := *jv.Date
		*v = Date(time.Unix(0, int64(secs*1e9)).UTC())
	case jv.Bool != nil:
		*v = Bool(*jv.Bool)
	case jv.Opaque != nil:
		*v = Opaque(jv.Opaque)
	default:
		*v = Absent
	}
	return nil
}

func (v Value) String() string {
	switch v.kind {
	case KindAbsent:
		return "Absent"
	case KindNumber:
		return fmt.Sprintf("Number(%v)", v.num)
	case KindText:
		return fmt.Sprintf("Text(%q)", v.text)
	case KindDate:
		return fmt.Sprintf("Date(%s)", v.date.Format(time.RFC3339))
	case KindBool:
		return fmt.Sprintf("Bool(%v)", v.flag)
	case KindOpaque:
		return fmt.Sprintf("Opaque(%d bytes)", len(v.opaque))
	default:
		return "Unknown"
	}
}
