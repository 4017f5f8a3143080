package booking

import (
	"context"
	"time"
)

// Repository defines the interface for booking persistence. The engine only
// ever sees bookings through this interface; the backing store owns the
// carer-overlap exclusion constraint that is the second line of defense
// against concurrent double-booking.
type Repository interface {
	// Get retrieves a booking by ID.
	// Returns ErrBookingNotFound if it does not exist.
	Get(ctx context.Context, id string) (*Booking, error)

	// QueryByCarerAndDate retrieves all bookings for a carer on a calendar
	// day, ordered by start time.
	QueryByCarerAndDate(ctx context.Context, carerID string, date time.Time) ([]*Booking, error)

	// QueryByDate retrieves all bookings on a calendar day regardless of
	// carer, ordered by carer then start time.
	QueryByDate(ctx context.Context, date time.Time) ([]*Booking, error)

	// Create persists a new booking.
	// Returns ErrScheduleTaken if the store's overlap constraint rejects it.
	Create(ctx context.Context, b *Booking) error

	// Update replaces an existing booking.
	// Returns ErrBookingNotFound if it does not exist and ErrScheduleTaken
	// if the store's overlap constraint rejects the new interval.
	Update(ctx context.Context, b *Booking) error

	// Delete removes a booking by ID.
	Delete(ctx context.Context, id string) error
}
