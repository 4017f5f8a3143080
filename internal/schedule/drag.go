package schedule

import (
	"github.com/careroster/careroster/pkg/timegrid"
)

// DefaultSnapInterval is the grid used for drag-and-drop rescheduling when
// the caller does not specify one.
const DefaultSnapInterval = 30

// ResolveDrag converts a drop position into a concrete rescheduled interval.
// The drop time is snapped to the nearest multiple of snapInterval, the
// original duration is preserved (wrap-aware), and the date is never changed
// by a drag. Returns a BusinessHoursError when the snapped start falls
// outside operating hours or the preserved duration would run past closing;
// the check runs before any conflict scan.
func ResolveDrag(iv Interval, drop TimeOfDay, snapInterval int) (Interval, error) {
	if snapInterval <= 0 {
		snapInterval = DefaultSnapInterval
	}

	start := TimeOfDay(timegrid.Snap(int(drop), snapInterval))
	duration := iv.Duration()

	if err := CheckBusinessHours(start, duration); err != nil {
		return Interval{}, err
	}

	end := TimeOfDay((int(start) + duration) % timegrid.MinutesPerDay)

	return Interval{
		CarerID: iv.CarerID,
		Date:    iv.Date,
		Start:   start,
		End:     end,
	}, nil
}
