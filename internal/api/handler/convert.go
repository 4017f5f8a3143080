package handler

import (
	"github.com/careroster/careroster/internal/api/models"
	"github.com/careroster/careroster/internal/booking"
	"github.com/careroster/careroster/internal/schedule"
)

// bookingView converts a domain booking to its API representation.
func bookingView(b *booking.Booking) models.Booking {
	return models.Booking{
		ID:             b.ID,
		ClientID:       b.ClientID,
		ClientName:     b.ClientName,
		CarerID:        b.CarerID,
		Date:           models.DateOnly(b.Date),
		Start:          b.Start.String(),
		End:            b.End.String(),
		Overnight:      b.End < b.Start,
		Status:         string(b.Status),
		ServiceRef:     b.ServiceRef,
		Notes:          b.Notes,
		ForceCommitted: b.ForceCommitted,
		CreatedAt:      models.Timestamp(b.CreatedAt),
		UpdatedAt:      models.Timestamp(b.UpdatedAt),
	}
}

// draftFromRequest builds a domain booking from create-request fields. Time
// parse failures come back as field errors; the identity fields are passed
// through untouched so the domain validation can report on them.
func draftFromRequest(in models.BookingCreateRequest) (booking.Booking, []models.FieldError) {
	var fieldErrors []models.FieldError

	start, err := schedule.ParseTimeOfDay(in.Start)
	if err != nil {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "start", Message: "must be HH:MM"})
	}
	end, err := schedule.ParseTimeOfDay(in.End)
	if err != nil {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "end", Message: "must be HH:MM"})
	}
	if len(fieldErrors) > 0 {
		return booking.Booking{}, fieldErrors
	}

	return booking.Booking{
		ClientID:   in.ClientID,
		ClientName: in.ClientName,
		CarerID:    in.CarerID,
		Date:       in.Date.Time(),
		Start:      start,
		End:        end,
		Status:     booking.Status(in.Status),
		ServiceRef: in.ServiceRef,
		Notes:      in.Notes,
	}, nil
}

// conflictViews converts scan conflicts to their API representation.
func conflictViews(conflicts []booking.ConflictingBooking) []models.ConflictingBookingView {
	views := make([]models.ConflictingBookingView, 0, len(conflicts))
	for _, c := range conflicts {
		views = append(views, models.ConflictingBookingView{
			BookingID:  c.BookingID,
			ClientName: c.ClientName,
			Start:      c.Start.String(),
			End:        c.End.String(),
		})
	}
	return views
}

// fieldErrorViews converts domain field errors to their API representation.
func fieldErrorViews(errs []booking.FieldError) []models.FieldError {
	views := make([]models.FieldError, 0, len(errs))
	for _, e := range errs {
		views = append(views, models.FieldError{Field: e.Field, Message: e.Message})
	}
	return views
}
