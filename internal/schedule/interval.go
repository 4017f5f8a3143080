// Package schedule provides the temporal core of the roster: wall-clock
// intervals, the overlap predicate, business-hours bounds, and drag
// rescheduling. Everything here is pure; dates and times are assumed to be
// already normalized to the single scheduling timezone.
package schedule

import (
	"time"

	"github.com/careroster/careroster/pkg/timegrid"
)

// TimeOfDay is a wall-clock time expressed as minutes since midnight (0-1439).
type TimeOfDay int

// ParseTimeOfDay parses a "HH:MM" string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	m, err := timegrid.ParseHHMM(s)
	if err != nil {
		return 0, err
	}
	return TimeOfDay(m), nil
}

// String renders the time as "HH:MM".
func (t TimeOfDay) String() string {
	return timegrid.FormatHHMM(int(t))
}

// Valid reports whether the value is a representable wall-clock time.
func (t TimeOfDay) Valid() bool {
	return t >= 0 && t < timegrid.MinutesPerDay
}

// Interval is a time range on a specific date for a specific carer. The range
// is half-open [Start, End); End < Start means the interval spans midnight.
type Interval struct {
	CarerID string
	Date    time.Time
	Start   TimeOfDay
	End     TimeOfDay
}

// Duration returns the effective length of the interval in minutes,
// accounting for overnight wrap.
func (iv Interval) Duration() int {
	return timegrid.SpanMinutes(int(iv.Start), int(iv.End))
}

// SameDay reports whether two dates fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Overlaps reports whether two intervals intersect. Intervals on different
// days or for different carers never overlap. The test is strict: intervals
// that only touch at a boundary are not overlapping, so back-to-back
// bookings are legal.
func Overlaps(a, b Interval) bool {
	if a.CarerID != b.CarerID || !SameDay(a.Date, b.Date) {
		return false
	}

	aStart, aEnd := wrapAdjusted(a)
	bStart, bEnd := wrapAdjusted(b)

	return aStart < bEnd && aEnd > bStart
}

// wrapAdjusted returns start and end offsets with an overnight end folded
// into minutes-since-midnight-of-next-day.
func wrapAdjusted(iv Interval) (int, int) {
	start, end := int(iv.Start), int(iv.End)
	if end < start {
		end += timegrid.MinutesPerDay
	}
	return start, end
}
