package state

import (
	"time"

	"github.com/google/btree"

	"github.com/AtRiskMedia/keystone/calendar"
)

// HistoricalIndex is a lazily-loaded, evictable cache of past monthly
// IntervalStates. A google/btree.BTree orders known bucket starts so
// callers can walk backwards from a point in time without touching the
// delegate for buckets they never resident-load; a simple
// least-recently-used list bounds memory.
type HistoricalIndex struct {
	known    *btree.BTree
	resident map[int64]*IntervalState
	lru      []int64
	capacity int
}

type bucketKey int64

func (k bucketKey) Less(than btree.Item) bool { return k < than.(bucketKey) }

// defaultCapacity bounds the number of monthly buckets kept resident
// at once; buckets beyond this are evicted LRU-first and reloaded from
// the delegate on next access.
const defaultCapacity = 24

// NewHistoricalIndex builds an empty index with the default resident
// capacity.
func NewHistoricalIndex() *HistoricalIndex {
	return &HistoricalIndex{
		known:    btree.New(32),
		resident: map[int64]*IntervalState{},
		capacity: defaultCapacity,
	}
}

func startKey(i calendar.Interval) int64 { return i.Start.Unix() }

// Put installs s as the resident state for its interval, marking it
// known and most-recently-used, evicting the least-recently-used
// resident bucket if over capacity.
func (h *HistoricalIndex) Put(s *IntervalState) {
	key := startKey(s.Interval)
	h.known.ReplaceOrInsert(bucketKey(key))
	h.resident[key] = s
	h.touch(key)
	h.evictIfNeeded()
}

// Get returns the resident state for interval, if loaded.
func (h *HistoricalIndex) Get(interval calendar.Interval) (*IntervalState, bool) {
	key := startKey(interval)
	s, ok := h.resident[key]
	if ok {
		h.touch(key)
	}
	return s, ok
}

// Has reports whether interval is known to the index, resident or not.
func (h *HistoricalIndex) Has(interval calendar.Interval) bool {
	return h.known.Has(bucketKey(startKey(interval)))
}

// GetOrLoad returns the resident state for interval, calling load and
// caching its result on a miss (whether the miss is "never seen" or
// "evicted"). Reloading is expected to reproduce identical state,
// which is what makes eviction safe.
func (h *HistoricalIndex) GetOrLoad(interval calendar.Interval, load func() (*IntervalState, error)) (*IntervalState, error) {
	if s, ok := h.Get(interval); ok {
		return s, nil
	}
	s, err := load()
	if err != nil {
		return nil, err
	}
	h.Put(s)
	return s, nil
}

// Evict drops interval from residency without forgetting that it is
// known; the next GetOrLoad reloads it from source.
func (h *HistoricalIndex) Evict(interval calendar.Interval) {
	key := startKey(interval)
	delete(h.resident, key)
	h.removeFromLRU(key)
}

// Clear forgets every known and resident bucket, used by reset.
func (h *HistoricalIndex) Clear() {
	h.known = btree.New(32)
	h.resident = map[int64]*IntervalState{}
	h.lru = nil
}

// WalkDescending visits every known bucket start at or before t, most
// recent first, until visit returns false.
func (h *HistoricalIndex) WalkDescending(t time.Time, visit func(start time.Time) bool) {
	pivot := bucketKey(t.Unix())
	h.known.DescendLessOrEqual(pivot, func(item btree.Item) bool {
		return visit(time.Unix(int64(item.(bucketKey)), 0).UTC())
	})
}

func (h *HistoricalIndex) touch(key int64) {
	h.removeFromLRU(key)
	h.lru = append(h.lru, key)
}

func (h *HistoricalIndex) removeFromLRU(key int64) {
	for i, k := range h.lru {
		if k == key {
			h.lru = append(h.lru[:i], h.lru[i+1:]...)
			return
		}
	}
}

func (h *HistoricalIndex) evictIfNeeded() {
	for len(h.resident) > h.capacity && len(h.lru) > 0 {
		oldest := h.lru[0]
		h.lru = h.lru[1:]
		delete(h.resident, oldest)
	}
}
