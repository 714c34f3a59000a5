// Package calendar implements the interval algebra: deterministic
// start-of/end-of {day, week, month, year} bucketing in a fixed
// reference time zone (UTC), plus the normalized-month and all-time
// sentinel intervals the analyzer buckets state by.
package calendar

import "time"

// Weekday selects the anchor day a week interval starts on.
type Weekday int

const (
	Sunday Weekday = iota
	Monday
)

// Interval is a closed time range [Start, End]. All helpers here
// produce and consume UTC times; callers that need a different
// display zone convert at the edge.
type Interval struct {
	Start time.Time
	End   time.Time
}

// allTimeStart and allTimeEnd fix the all-time sentinel: 300 years
// spanning from the reference epoch (the Unix epoch, in this port).
var (
	allTimeStart = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)
	allTimeEnd   = allTimeStart.AddDate(300, 0, 0).Add(-time.Second)
)

// AllTime returns the fixed sentinel interval spanning 300 years from
// the reference epoch.
func AllTime() Interval {
	return Interval{Start: allTimeStart, End: allTimeEnd}
}

// New builds an interval from two times, normalizing both to UTC.
func New(start, end time.Time) Interval {
	return Interval{Start: start.UTC(), End: end.UTC()}
}

// Contains reports whether t falls within the closed interval.
func (i Interval) Contains(t time.Time) bool {
	t = t.UTC()
	return !t.Before(i.Start) && !t.After(i.End)
}

// Overlaps reports whether the two intervals share any instant.
func (i Interval) Overlaps(o Interval) bool {
	return !i.End.Before(o.Start) && !o.End.Before(i.Start)
}

// Duration returns the interval's length.
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// Equal reports whether two intervals share the same bounds.
func (i Interval) Equal(o Interval) bool {
	return i.Start.Equal(o.Start) && i.End.Equal(o.End)
}

// Month returns the calendar month containing t: [start-of-month,
// end-of-month]. Month end is start-of-next-month minus one second.
func Month(t time.Time) Interval {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).Add(-time.Second)
	return Interval{Start: start, End: end}
}

// Day returns the calendar day containing t.
func Day(t time.Time) Interval {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1).Add(-time.Second)
	return Interval{Start: start, End: end}
}

// Week returns the week containing t, anchored on the given weekday.
// Week end is start-of-week plus seven days minus one second.
func Week(t time.Time, anchor Weekday) Interval {
	t = t.UTC()
	dayStart := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)

	anchorGoWeekday := time.Sunday
	if anchor == Monday {
		anchorGoWeekday = time.Monday
	}

	delta := int(dayStart.Weekday()) - int(anchorGoWeekday)
	if delta < 0 {
		delta += 7
	}
	start := dayStart.AddDate(0, 0, -delta)
	end := start.AddDate(0, 0, 7).Add(-time.Second)
	return Interval{Start: start, End: end}
}

// Year returns the calendar year containing t.
func Year(t time.Time) Interval {
	t = t.UTC()
	start := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0).Add(-time.Second)
	return Interval{Start: start, End: end}
}

// IsNormalized reports whether i is a normalized interval: it equals
// the month-interval of its own start, or it equals the all-time
// sentinel.
func IsNormalized(i Interval) bool {
	if i.Equal(AllTime()) {
		return true
	}
	return i.Equal(Month(i.Start))
}

// Scope identifies which bucketing function to step by.
type Scope int

const (
	ScopeHour Scope = iota
	ScopeDay
	ScopeWeek
	ScopeMonth
	ScopeYear
)

// StartOfScope returns the start-of-scope timestamp for t, used as the
// bucketing key for DateAggregator / CountingByDate.
func StartOfScope(t time.Time, scope Scope) time.Time {
	t = t.UTC()
	switch scope {
	case ScopeHour:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, time.UTC)
	case ScopeDay:
		return Day(t).Start
	case ScopeWeek:
		return Week(t, Sunday).Start
	case ScopeMonth:
		return Month(t).Start
	case ScopeYear:
		return Year(t).Start
	default:
		return t
	}
}

// Before returns the interval immediately before i, given the scope i
// was constructed with.
func Before(i Interval, scope Scope) Interval {
	step := i.Start.Add(-time.Second)
	return bucketFor(step, scope, i)
}

// After returns the interval immediately after i, given the scope i
// was constructed with.
func After(i Interval, scope Scope) Interval {
	step := i.End.Add(time.Second)
	return bucketFor(step, scope, i)
}

func bucketFor(t time.Time, scope Scope, anchor Interval) Interval {
	switch scope {
	case ScopeDay:
		return Day(t)
	case ScopeWeek:
		// Recover the anchor weekday from the anchor interval's start.
		anchorWeekday := Sunday
		if anchor.Start.Weekday() == time.Monday {
			anchorWeekday = Monday
		}
		return Week(t, anchorWeekday)
	case ScopeMonth:
		return Month(t)
	case ScopeYear:
		return Year(t)
	default:
		return Interval{Start: t, End: t}
	}
}

// Containing returns the smallest normalized month interval containing
// t; a convenience alias for Month.
func Containing(t time.Time) Interval {
	return Month(t)
}
