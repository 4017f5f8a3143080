package schedule

import (
	"errors"
	"fmt"
)

// Operating hours for the roster. All bookings must start within
// [OpeningTime, ClosingTime) and end no later than ClosingTime.
const (
	// OpeningTime is 06:00.
	OpeningTime TimeOfDay = 6 * 60

	// ClosingTime is 22:00.
	ClosingTime TimeOfDay = 22 * 60
)

// ErrOutsideBusinessHours indicates a time landed outside operating hours.
var ErrOutsideBusinessHours = errors.New("schedule: outside business hours")

// BusinessHoursError reports which time violated the operating window.
type BusinessHoursError struct {
	// Time is the offending wall-clock time. For an end that ran past
	// closing this is the computed end, which may exceed 24:00 in minutes.
	Time TimeOfDay

	// Reason is a human-readable explanation.
	Reason string
}

func (e *BusinessHoursError) Error() string {
	return fmt.Sprintf("schedule: %s", e.Reason)
}

// Is makes BusinessHoursError match ErrOutsideBusinessHours via errors.Is.
func (e *BusinessHoursError) Is(target error) bool {
	return target == ErrOutsideBusinessHours
}

// CheckBusinessHours validates that a start time falls within operating
// hours and that the end, derived from the duration in minutes, does not run
// past closing.
func CheckBusinessHours(start TimeOfDay, durationMinutes int) error {
	if start < OpeningTime || start >= ClosingTime {
		return &BusinessHoursError{
			Time:   start,
			Reason: fmt.Sprintf("start %s is outside operating hours %s-%s", start, OpeningTime, ClosingTime),
		}
	}

	end := int(start) + durationMinutes
	if end > int(ClosingTime) {
		return &BusinessHoursError{
			Time:   TimeOfDay(end),
			Reason: fmt.Sprintf("booking would end after closing time %s", ClosingTime),
		}
	}

	return nil
}
