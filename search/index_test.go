package search

import (
	"testing"
	"time"

	"github.com/AtRiskMedia/keystone/calendar"
	"github.com/AtRiskMedia/keystone/codec"
	"github.com/AtRiskMedia/keystone/event"
	"github.com/stretchr/testify/require"
)

func evt(id, text string, ts time.Time) event.Event {
	return event.Event{ID: id, Timestamp: ts, Data: map[string]event.Value{"note": event.Text(text)}}
}

func TestIndexMatchIsPrefixAndConjunctive(t *testing.T) {
	month := calendar.Month(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	idx := New(month)
	idx.Add(evt("e1", "urgent billing question", month.Start), nil)
	idx.Add(evt("e2", "general question", month.Start), nil)

	require.True(t, idx.Match("bill", "e1"))
	require.False(t, idx.Match("bill", "e2"))
	require.True(t, idx.Match("urgent question", "e1"))
	require.False(t, idx.Match("urgent question", "e2"))
}

func TestIndexMatchingIDsIntersectsAcrossWords(t *testing.T) {
	month := calendar.Month(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	idx := New(month)
	idx.Add(evt("e1", "urgent billing", month.Start), nil)
	idx.Add(evt("e2", "urgent shipping", month.Start), nil)

	ids := idx.MatchingIDs("urgent bill")
	require.Contains(t, ids, "e1")
	require.NotContains(t, ids, "e2")
}

func TestIndexEmptyQueryMatchesEverything(t *testing.T) {
	month := calendar.Month(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	idx := New(month)
	idx.Add(evt("e1", "anything", month.Start), nil)
	require.True(t, idx.Match("", "e1"))
	require.Contains(t, idx.MatchingIDs(""), "e1")
}

func TestIndexExtendOnlyReindexesNewEvents(t *testing.T) {
	month := calendar.Month(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	idx := New(month)
	e1 := evt("e1", "first", month.Start)
	idx.Add(e1, nil)

	idx.Extend([]event.Event{e1, evt("e2", "second", month.Start)}, nil)
	require.Contains(t, idx.MatchingIDs("second"), "e2")
	require.Len(t, idx.MatchingIDs(""), 2)
}

func TestUnionFiltersToMemberIDs(t *testing.T) {
	month := calendar.Month(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	a := New(month)
	a.Add(evt("e1", "keep", month.Start), nil)
	a.Add(evt("e2", "drop", month.Start), nil)

	members := map[string]struct{}{"e1": {}}
	combined := Union(month, []*Index{a}, members)
	require.Contains(t, combined.MatchingIDs("keep"), "e1")
	require.NotContains(t, combined.MatchingIDs(""), "e2")
}

func TestIndexCodecRoundTrip(t *testing.T) {
	month := calendar.Month(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	idx := New(month)
	idx.Add(evt("e1", "hello world", month.Start), nil)

	data, err := codec.Encode(idx)
	require.NoError(t, err)

	restored := New(calendar.Interval{})
	require.NoError(t, codec.Decode(data, restored))
	require.True(t, restored.Interval.Equal(month))
	require.Contains(t, restored.MatchingIDs("hello"), "e1")
}
