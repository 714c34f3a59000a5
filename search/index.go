// Package search implements the keyword index: per-token posting
// lists over event ids, prefix-matched against query words.
package search

import (
	"strings"

	"github.com/AtRiskMedia/keystone/calendar"
	"github.com/AtRiskMedia/keystone/event"
)

// Extractor populates raw (pre-tokenization) keywords for an event. The
// default extractor walks every Text value in the payload.
type Extractor func(e event.Event) []string

// DefaultExtractor collects every Text(value) in the event's payload.
func DefaultExtractor(e event.Event) []string {
	var raw []string
	for _, v := range e.Data {
		if s, ok := v.AsText(); ok {
			raw = append(raw, s)
		}
	}
	return raw
}

// Index is the keyword_map for one interval: token -> set of event ids.
type Index struct {
	Interval calendar.Interval
	tokens   map[string]map[string]struct{}
}

// New builds an empty index over interval.
func New(interval calendar.Interval) *Index {
	return &Index{Interval: interval, tokens: map[string]map[string]struct{}{}}
}

// Add keywords one event into the index using extractor (DefaultExtractor
// if nil).
func (idx *Index) Add(e event.Event, extractor Extractor) {
	if extractor == nil {
		extractor = DefaultExtractor
	}
	for _, raw := range extractor(e) {
		for _, tok := range Tokenize(raw) {
			set, ok := idx.tokens[tok]
			if !ok {
				set = map[string]struct{}{}
				idx.tokens[tok] = set
			}
			set[e.ID] = struct{}{}
		}
	}
}

// AddAll keywords every event in events, in order.
func (idx *Index) AddAll(events []event.Event, extractor Extractor) {
	for _, e := range events {
		idx.Add(e, extractor)
	}
}

// Match reports whether eventID matches query per the prefix-matching
// predicate: every lowercased query word must prefix some token whose
// posting set contains eventID. An empty query matches everything.
func (idx *Index) Match(query, eventID string) bool {
	words := Tokenize(query)
	if len(words) == 0 {
		return true
	}
	for _, w := range words {
		if !idx.anyTokenMatches(w, eventID) {
			return false
		}
	}
	return true
}

func (idx *Index) anyTokenMatches(word, eventID string) bool {
	for tok, ids := range idx.tokens {
		if !strings.HasPrefix(tok, word) {
			continue
		}
		if _, ok := ids[eventID]; ok {
			return true
		}
	}
	return false
}

// MatchingIDs returns the set of event ids in the index matching query.
// It tokenizes the query once and scans the token map once per query
// word, intersecting the per-word matches.
func (idx *Index) MatchingIDs(query string) map[string]struct{} {
	words := Tokenize(query)
	if len(words) == 0 {
		return idx.allIDs()
	}
	var acc map[string]struct{}
	for i, w := range words {
		matches := idx.idsForWord(w)
		if i == 0 {
			acc = matches
			continue
		}
		acc = intersect(acc, matches)
		if len(acc) == 0 {
			return acc
		}
	}
	return acc
}

func (idx *Index) idsForWord(word string) map[string]struct{} {
	out := map[string]struct{}{}
	for tok, ids := range idx.tokens {
		if !strings.HasPrefix(tok, word) {
			continue
		}
		for id := range ids {
			out[id] = struct{}{}
		}
	}
	return out
}

func (idx *Index) allIDs() map[string]struct{} {
	out := map[string]struct{}{}
	for _, ids := range idx.tokens {
		for id := range ids {
			out[id] = struct{}{}
		}
	}
	return out
}

func intersect(a, b map[string]struct{}) map[string]struct{} {
	out := map[string]struct{}{}
	for id := range a {
		if _, ok := b[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out
}

// Union merges the per-bucket indices into a single index over
// interval I, filtering each source's postings to event ids present in
// memberIDs (the reconstructed EventList's membership). This implements
// the "reconstructed over interval I from pre-existing per-bucket
// indices" rule.
func Union(interval calendar.Interval, buckets []*Index, memberIDs map[string]struct{}) *Index {
	out := New(interval)
	for _, b := range buckets {
		if b == nil {
			continue
		}
		for tok, ids := range b.tokens {
			for id := range ids {
				if _, ok := memberIDs[id]; !ok {
					continue
				}
				dst, ok := out.tokens[tok]
				if !ok {
					dst = map[string]struct{}{}
					out.tokens[tok] = dst
				}
				dst[id] = struct{}{}
			}
		}
	}
	return out
}

// Extend merges newEvents into idx in place, keywording only events not
// already present in the index (per the "only the truly new events are
// re-keyworded" rule). It also widens idx.Interval to cover newEvents.
func (idx *Index) Extend(newEvents []event.Event, extractor Extractor) {
	for _, e := range newEvents {
		if idx.hasEvent(e.ID) {
			continue
		}
		idx.Add(e, extractor)
		if e.Timestamp.Before(idx.Interval.Start) {
			idx.Interval = calendar.New(e.Timestamp, idx.Interval.End)
		}
		if e.Timestamp.After(idx.Interval.End) {
			idx.Interval = calendar.New(idx.Interval.Start, e.Timestamp)
		}
	}
}

func (idx *Index) hasEvent(id string) bool {
	for _, ids := range idx.tokens {
		if _, ok := ids[id]; ok {
			return true
		}
	}
	return false
}

// Tokens exposes the token set for encoding.
func (idx *Index) Tokens() map[string]map[string]struct{} { return idx.tokens }

// SetTokens replaces the token set, used by the codec on decode.
func (idx *Index) SetTokens(t map[string]map[string]struct{}) {
	if t == nil {
		t = map[string]map[string]struct{}{}
	}
	idx.tokens = t
}
