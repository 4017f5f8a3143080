package booking

import (
	"github.com/careroster/careroster/internal/schedule"
)

// ConflictingBooking identifies one existing booking that overlaps a
// proposed interval. ClientName and the time range are carried so callers
// can tell the user exactly what is in the way.
type ConflictingBooking struct {
	BookingID  string
	ClientName string
	Start      schedule.TimeOfDay
	End        schedule.TimeOfDay
}

// ConflictReport is the result of scanning a proposed booking against
// existing bookings. Reports are transient; they are never persisted.
type ConflictReport struct {
	HasConflict bool

	// Unknown is set when the scan could not be completed (repository or
	// breaker failure). An unknown report blocks the save; uncertainty is
	// never treated as availability.
	Unknown bool

	// Conflicts lists every overlapping booking, in candidate order. A
	// proposed interval can overlap several bookings at once, for example
	// when merging adjacent shifts.
	Conflicts []ConflictingBooking
}

// Scan checks a proposed booking against a candidate set of existing
// bookings. Candidates for other carers or other days are skipped, as are
// cancelled bookings and the booking identified by excludeID, so an edited
// booking never conflicts with its own prior state. An unassigned proposal
// cannot conflict with anything.
func Scan(proposed *Booking, candidates []*Booking, excludeID string) ConflictReport {
	if !proposed.Assigned() {
		return ConflictReport{}
	}

	ivl := proposed.Interval()

	var conflicts []ConflictingBooking
	for _, candidate := range candidates {
		if excludeID != "" && candidate.ID == excludeID {
			continue
		}
		if candidate.Status == StatusCancelled {
			continue
		}
		if schedule.Overlaps(ivl, candidate.Interval()) {
			conflicts = append(conflicts, ConflictingBooking{
				BookingID:  candidate.ID,
				ClientName: candidate.ClientName,
				Start:      candidate.Start,
				End:        candidate.End,
			})
		}
	}

	return ConflictReport{
		HasConflict: len(conflicts) > 0,
		Conflicts:   conflicts,
	}
}

// AvailableCarers returns the subset of carers that have no conflict with
// the given interval, preserving input order. There is no ranking; the
// caller decides how to present alternatives.
func AvailableCarers(carers []string, ivl schedule.Interval, existing []*Booking, excludeID string) []string {
	available := make([]string, 0, len(carers))
	for _, carerID := range carers {
		probe := &Booking{
			ID:      excludeID,
			CarerID: carerID,
			Date:    ivl.Date,
			Start:   ivl.Start,
			End:     ivl.End,
			Status:  StatusAssigned,
		}
		if report := Scan(probe, existing, excludeID); !report.HasConflict {
			available = append(available, carerID)
		}
	}
	return available
}
