// Package booking provides booking management: the booking model, its
// repository, conflict scanning, and the conflict-checked create/update
// service used by the edit-session layer.
package booking

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/careroster/careroster/internal/schedule"
)

// Repository errors.
var (
	// ErrBookingNotFound indicates the booking does not exist.
	ErrBookingNotFound = errors.New("booking not found")

	// ErrScheduleTaken indicates the repository rejected a commit because a
	// concurrent writer booked an overlapping slot first. The local scan can
	// pass and the commit still fail; callers must re-check, never retry
	// silently.
	ErrScheduleTaken = errors.New("carer schedule slot already taken")
)

// Status is the lifecycle status of a booking.
type Status string

// Booking lifecycle statuses.
const (
	StatusAssigned   Status = "assigned"
	StatusUnassigned Status = "unassigned"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
	StatusCancelled  Status = "cancelled"
	StatusDeparted   Status = "departed"
	StatusSuspended  Status = "suspended"
)

// Valid reports whether the status is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusAssigned, StatusUnassigned, StatusInProgress, StatusDone,
		StatusCancelled, StatusDeparted, StatusSuspended:
		return true
	}
	return false
}

// Booking is one appointment between a client and a carer. The engine treats
// a booking as an immutable value during a single validation pass.
type Booking struct {
	ID         string
	ClientID   string
	ClientName string

	// CarerID is empty while the booking is unassigned.
	CarerID string

	// Date is the calendar day of the appointment, normalized to midnight
	// in the scheduling timezone.
	Date time.Time

	// Start and End bound the appointment as wall-clock times. End < Start
	// means the appointment runs past midnight.
	Start schedule.TimeOfDay
	End   schedule.TimeOfDay

	Status     Status
	ServiceRef string
	Notes      string

	// ForceCommitted marks a booking committed by operator override despite
	// a detected conflict. The store's overlap constraint is partial and
	// skips these rows, so the override survives the second line of defense
	// while staying auditable.
	ForceCommitted bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Interval returns the booking's schedulable interval.
func (b *Booking) Interval() schedule.Interval {
	return schedule.Interval{
		CarerID: b.CarerID,
		Date:    b.Date,
		Start:   b.Start,
		End:     b.End,
	}
}

// Assigned reports whether the booking has a carer.
func (b *Booking) Assigned() bool {
	return b.CarerID != ""
}

// NewBookingID generates a booking identifier.
func NewBookingID() string {
	return "bkg_" + uuid.New().String()[:22]
}
