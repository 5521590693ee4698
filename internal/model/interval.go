package model

import "time"

// Interval is a recurrence rule selected by a reminder's interval index.
type Interval struct {
	Index  int
	Name   string
	Period time.Duration
	Months int
}

// intervals is the fixed recurrence enumeration. Indexes are persisted, so
// entries are only ever appended.
var intervals = []Interval{
	{Index: 0, Name: "daily", Period: 24 * time.Hour},
	{Index: 1, Name: "every 12 hours", Period: 12 * time.Hour},
	{Index: 2, Name: "every 8 hours", Period: 8 * time.Hour},
	{Index: 3, Name: "every 6 hours", Period: 6 * time.Hour},
	{Index: 4, Name: "every 4 hours", Period: 4 * time.Hour},
	{Index: 5, Name: "every other day", Period: 48 * time.Hour},
	{Index: 6, Name: "weekly", Period: 7 * 24 * time.Hour},
	{Index: 7, Name: "every two weeks", Period: 14 * 24 * time.Hour},
	{Index: 8, Name: "monthly", Months: 1},
	{Index: 9, Name: "once"},
}

// DefaultIntervalIndex is the recurrence given to reminders derived from a
// medication's first date.
const DefaultIntervalIndex = 0

// Intervals returns the recurrence enumeration in index order.
func Intervals() []Interval {
	out := make([]Interval, len(intervals))
	copy(out, intervals)
	return out
}

// IntervalAt returns the interval for an index.
func IntervalAt(index int) (Interval, bool) {
	if index < 0 || index >= len(intervals) {
		return Interval{}, false
	}
	return intervals[index], true
}

// IsValidIntervalIndex checks if an index selects a known interval.
func IsValidIntervalIndex(index int) bool {
	_, ok := IntervalAt(index)
	return ok
}

// Recurs returns true if the interval has a non-zero period.
func (i Interval) Recurs() bool {
	return i.Period > 0 || i.Months > 0
}

// Advance returns the occurrence one period after t.
// Day-based periods use calendar days so wall-clock times survive DST changes.
func (i Interval) Advance(t time.Time) time.Time {
	switch {
	case i.Months > 0:
		return t.AddDate(0, i.Months, 0)
	case i.Period > 0 && i.Period%(24*time.Hour) == 0:
		return t.AddDate(0, 0, int(i.Period/(24*time.Hour)))
	default:
		return t.Add(i.Period)
	}
}

// String returns the interval name.
func (i Interval) String() string {
	return i.Name
}
