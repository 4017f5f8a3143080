package booking

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/careroster/careroster/internal/schedule"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use PostgresRepository.
//
// Like the production store, Create and Update enforce the carer-overlap
// constraint so tests can exercise the commit-time race path.
type InMemoryRepository struct {
	mu       sync.RWMutex
	bookings map[string]*Booking
}

// NewInMemoryRepository creates a new in-memory booking repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		bookings: make(map[string]*Booking),
	}
}

// Get retrieves a booking by ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, ErrBookingNotFound
	}

	cpy := *b
	return &cpy, nil
}

// QueryByCarerAndDate retrieves all bookings for a carer on a calendar day.
func (r *InMemoryRepository) QueryByCarerAndDate(_ context.Context, carerID string, date time.Time) ([]*Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*Booking
	for _, b := range r.bookings {
		if b.CarerID == carerID && schedule.SameDay(b.Date, date) {
			cpy := *b
			result = append(result, &cpy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Start < result[j].Start
	})
	return result, nil
}

// QueryByDate retrieves all bookings on a calendar day.
func (r *InMemoryRepository) QueryByDate(_ context.Context, date time.Time) ([]*Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*Booking
	for _, b := range r.bookings {
		if schedule.SameDay(b.Date, date) {
			cpy := *b
			result = append(result, &cpy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CarerID != result[j].CarerID {
			return result[i].CarerID < result[j].CarerID
		}
		return result[i].Start < result[j].Start
	})
	return result, nil
}

// Create persists a new booking, rejecting carer overlaps.
func (r *InMemoryRepository) Create(_ context.Context, b *Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkOverlapLocked(b); err != nil {
		return err
	}

	cpy := *b
	r.bookings[b.ID] = &cpy
	return nil
}

// Update replaces an existing booking, rejecting carer overlaps.
func (r *InMemoryRepository) Update(_ context.Context, b *Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bookings[b.ID]; !ok {
		return ErrBookingNotFound
	}

	if err := r.checkOverlapLocked(b); err != nil {
		return err
	}

	cpy := *b
	r.bookings[b.ID] = &cpy
	return nil
}

// Delete removes a booking by ID.
func (r *InMemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bookings[id]; !ok {
		return ErrBookingNotFound
	}

	delete(r.bookings, id)
	return nil
}

// checkOverlapLocked mirrors the store-level exclusion constraint: an
// assigned, non-cancelled booking may not overlap another for the same
// carer. The constraint is partial; force-committed rows are exempt on both
// sides, matching the Postgres definition. Callers must hold the write lock.
func (r *InMemoryRepository) checkOverlapLocked(b *Booking) error {
	if !b.Assigned() || b.Status == StatusCancelled || b.ForceCommitted {
		return nil
	}

	for _, existing := range r.bookings {
		if existing.ID == b.ID || existing.Status == StatusCancelled || existing.ForceCommitted {
			continue
		}
		if schedule.Overlaps(b.Interval(), existing.Interval()) {
			return ErrScheduleTaken
		}
	}
	return nil
}
