package analyzer

import (
	"context"
	"fmt"
	"sort"

	"github.com/AtRiskMedia/keystone/calendar"
	"github.com/AtRiskMedia/keystone/codec"
	"github.com/AtRiskMedia/keystone/collab"
	"github.com/AtRiskMedia/keystone/event"
)

func sortEvents(events []event.Event) {
	sort.SliceStable(events, func(i, j int) bool { return events[i].Timestamp.Before(events[j].Timestamp) })
}

// mergeSorted merges two already timestamp-sorted event slices into
// one sorted-by-timestamp sequence.
func mergeSorted(a, b []event.Event) []event.Event {
	out := make([]event.Event, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i].Timestamp.After(b[j].Timestamp) {
			out = append(out, b[j])
			j++
		} else {
			out = append(out, a[i])
			i++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

// getProcessedEvents walks monthly buckets backwards from the month
// containing interval.End until a bucket ends before interval.Start,
// unions what's found, filters to interval, and sorts by timestamp.
func (a *Analyzer) getProcessedEvents(ctx context.Context, interval calendar.Interval) ([]event.Event, error) {
	var all []event.Event
	m := calendar.Month(interval.End)
	for {
		bucket, err := a.loadEventBucket(ctx, m)
		if err != nil {
			return nil, err
		}
		all = append(all, bucket...)
		if m.End.Before(interval.Start) {
			break
		}
		m = calendar.Month(m.Start.AddDate(0, 0, -1))
	}
	filtered := all[:0]
	for _, e := range all {
		if interval.Contains(e.Timestamp) {
			filtered = append(filtered, e)
		}
	}
	sortEvents(filtered)
	return filtered, nil
}

func (a *Analyzer) loadEventBucket(ctx context.Context, month calendar.Interval) ([]event.Event, error) {
	data, ok, err := a.delegate.Load(ctx, collab.ArtifactEvents, eventsKey(month))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	var bucket []event.Event
	if err := codec.Decode(data, &bucket); err != nil {
		a.logger.Cache().Debug("event bucket decode failed, treating as absent", "bucket", eventsKey(month), "error", err)
		return nil, nil
	}
	return bucket, nil
}

// cacheEvents groups events by their monthly bucket, merges with
// whatever is already cached for that month, de-duplicates by id, and
// persists each touched bucket.
func (a *Analyzer) cacheEvents(ctx context.Context, events []event.Event) error {
	byMonth := map[string][]event.Event{}
	monthOf := map[string]calendar.Interval{}
	for _, e := range events {
		m := calendar.Month(e.Timestamp)
		key := intervalMapKey(m)
		byMonth[key] = append(byMonth[key], e)
		monthOf[key] = m
	}
	for key, newEvents := range byMonth {
		month := monthOf[key]
		existing, err := a.loadEventBucket(ctx, month)
		if err != nil {
			return err
		}
		merged := dedupeByID(append(existing, newEvents...))
		sortEvents(merged)
		data, err := codec.Encode(merged)
		if err != nil {
			return fmt.Errorf("analyzer: encode event bucket %s: %w", eventsKey(month), err)
		}
		if err := a.delegate.Persist(ctx, eventsKey(month), data); err != nil {
			return fmt.Errorf("analyzer: persist event bucket %s: %w", eventsKey(month), err)
		}
	}
	return nil
}

func dedupeByID(events []event.Event) []event.Event {
	seen := make(map[string]struct{}, len(events))
	out := make([]event.Event, 0, len(events))
	for _, e := range events {
		if _, ok := seen[e.ID]; ok {
			continue
		}
		seen[e.ID] = struct{}{}
		out = append(out, e)
	}
	return out
}
