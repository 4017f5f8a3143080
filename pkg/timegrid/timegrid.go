// Package timegrid provides minute-grid arithmetic for wall-clock times.
// Times are expressed as minutes since midnight (0-1439), which keeps all
// grid math in plain integer arithmetic with no timezone involvement.
package timegrid

import (
	"fmt"
)

// MinutesPerDay is the number of minutes in one calendar day.
const MinutesPerDay = 24 * 60

// Snap rounds a minutes-since-midnight value to the nearest multiple of the
// given grid interval. Values exactly halfway round up. The result is folded
// back into [0, MinutesPerDay) so snapping 23:50 on a 30-minute grid yields
// midnight, not 24:00.
func Snap(minutes, interval int) int {
	if interval <= 0 {
		return normalize(minutes)
	}
	snapped := ((minutes + interval/2) / interval) * interval
	return normalize(snapped)
}

// normalize folds a minute value into [0, MinutesPerDay).
func normalize(minutes int) int {
	m := minutes % MinutesPerDay
	if m < 0 {
		m += MinutesPerDay
	}
	return m
}

// ParseHHMM parses a "HH:MM" string into minutes since midnight.
func ParseHHMM(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("timegrid: invalid time %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("timegrid: time %q out of range", s)
	}
	return h*60 + m, nil
}

// FormatHHMM renders minutes since midnight as "HH:MM".
// Out-of-range values are folded into [0, MinutesPerDay) first.
func FormatHHMM(minutes int) string {
	m := normalize(minutes)
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// SpanMinutes returns the effective length in minutes of the half-open range
// [start, end) where end < start means the range wraps past midnight.
// A zero-length range (start == end) is treated as a full-day wrap by callers
// that allow it; this function reports it as zero.
func SpanMinutes(start, end int) int {
	if start == end {
		return 0
	}
	return normalize(end - start + MinutesPerDay)
}
