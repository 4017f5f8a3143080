package session

import (
	"errors"
	"time"

	"github.com/careroster/careroster/internal/booking"
	"github.com/careroster/careroster/internal/schedule"
)

// applyPatch merges a field patch into the draft. Parse failures are
// reported per field; when any field fails to parse, the draft is left
// untouched.
func applyPatch(draft *booking.Booking, patch Patch) []booking.FieldError {
	var errs []booking.FieldError
	next := *draft

	if patch.CarerID != nil {
		next.CarerID = *patch.CarerID
	}
	if patch.Date != nil {
		day, err := time.ParseInLocation("2006-01-02", *patch.Date, time.UTC)
		if err != nil {
			errs = append(errs, booking.FieldError{Field: "date", Message: "must be a date in YYYY-MM-DD format"})
		} else {
			next.Date = day
		}
	}
	if patch.Start != nil {
		t, err := schedule.ParseTimeOfDay(*patch.Start)
		if err != nil {
			errs = append(errs, booking.FieldError{Field: "start", Message: "must be a time in HH:MM format"})
		} else {
			next.Start = t
		}
	}
	if patch.End != nil {
		t, err := schedule.ParseTimeOfDay(*patch.End)
		if err != nil {
			errs = append(errs, booking.FieldError{Field: "end", Message: "must be a time in HH:MM format"})
		} else {
			next.End = t
		}
	}
	if patch.Status != nil {
		status := booking.Status(*patch.Status)
		if !status.Valid() {
			errs = append(errs, booking.FieldError{Field: "status", Message: "is not a known status"})
		} else {
			next.Status = status
		}
	}
	if patch.Notes != nil {
		next.Notes = *patch.Notes
	}

	if len(errs) > 0 {
		return errs
	}
	*draft = next
	return nil
}

// localValidate is the synchronous validation pass run before any scan. It
// mirrors the service-side validation so the session blocks bad input
// locally instead of burning a repository round trip.
func localValidate(b *booking.Booking) []booking.FieldError {
	var errs []booking.FieldError

	if b.ClientID == "" {
		errs = append(errs, booking.FieldError{Field: "clientId", Message: "is required"})
	}
	if b.ClientName == "" {
		errs = append(errs, booking.FieldError{Field: "clientName", Message: "is required"})
	}
	if b.Date.IsZero() {
		errs = append(errs, booking.FieldError{Field: "date", Message: "is required"})
	}
	if !b.Start.Valid() {
		errs = append(errs, booking.FieldError{Field: "start", Message: "must be a valid time of day"})
	}
	if !b.End.Valid() {
		errs = append(errs, booking.FieldError{Field: "end", Message: "must be a valid time of day"})
	}

	if b.Start.Valid() && b.End.Valid() {
		duration := b.Interval().Duration()
		if duration == 0 {
			errs = append(errs, booking.FieldError{Field: "end", Message: "must differ from start"})
		} else if err := schedule.CheckBusinessHours(b.Start, duration); err != nil {
			var bhErr *schedule.BusinessHoursError
			if errors.As(err, &bhErr) {
				errs = append(errs, booking.FieldError{Field: "start", Message: bhErr.Reason})
			} else {
				errs = append(errs, booking.FieldError{Field: "start", Message: "outside business hours"})
			}
		}
	}

	return errs
}
