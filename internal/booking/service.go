package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/careroster/careroster/internal/resilience"
	"github.com/careroster/careroster/internal/schedule"
)

// FieldError describes a validation failure on a specific field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError carries the field-level failures of a local validation
// pass. It is recovered locally with field messages, never propagated as a
// server fault.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

// ConflictError reports that a proposed booking overlaps existing bookings.
// Stale marks the variant where the local scan passed but the store rejected
// the commit because a concurrent writer got there first.
type ConflictError struct {
	Report ConflictReport
	Stale  bool
}

func (e *ConflictError) Error() string {
	if len(e.Report.Conflicts) == 0 {
		if e.Report.Unknown {
			return "conflict check could not be completed"
		}
		return "booking conflicts with an existing booking"
	}

	parts := make([]string, 0, len(e.Report.Conflicts))
	for _, c := range e.Report.Conflicts {
		parts = append(parts, fmt.Sprintf("%s (%s-%s)", c.ClientName, c.Start, c.End))
	}
	return "booking overlaps: " + strings.Join(parts, ", ")
}

// ServiceConfig holds configuration for creating a Service.
type ServiceConfig struct {
	Repository Repository
	Logger     zerolog.Logger

	// Queries guards repository reads issued by conflict scans. If nil, a
	// default executor is created.
	Queries *resilience.Executor[[]*Booking]
}

// Service provides conflict-checked booking operations. All repository reads
// for conflict scanning run through a guarded executor; when the store is
// failing, scans resolve to an unknown (blocking) report rather than a false
// all-clear.
type Service struct {
	repo    Repository
	queries *resilience.Executor[[]*Booking]
	logger  zerolog.Logger
}

// NewService creates a new booking service.
func NewService(cfg ServiceConfig) *Service {
	queries := cfg.Queries
	if queries == nil {
		queries = resilience.NewExecutor[[]*Booking](resilience.DefaultConfig("booking-queries"))
	}
	return &Service{
		repo:    cfg.Repository,
		queries: queries,
		logger:  cfg.Logger.With().Str("component", "booking").Logger(),
	}
}

// Get retrieves a booking by ID.
func (s *Service) Get(ctx context.Context, id string) (*Booking, error) {
	return s.repo.Get(ctx, id)
}

// ListByDate retrieves all bookings on a calendar day.
func (s *Service) ListByDate(ctx context.Context, date time.Time) ([]*Booking, error) {
	return s.repo.QueryByDate(ctx, date)
}

// CheckConflict scans a proposed booking against the carer's existing
// bookings on the same day. When excludeID is set, that booking is excluded
// so an edit never conflicts with its own prior state.
//
// On repository failure the returned report is Unknown and the error is
// non-nil; callers must treat that as "blocked", never as "no conflict".
func (s *Service) CheckConflict(ctx context.Context, proposed *Booking, excludeID string) (ConflictReport, error) {
	if !proposed.Assigned() {
		return ConflictReport{}, nil
	}

	candidates, err := s.queries.Execute(ctx, func(ctx context.Context) ([]*Booking, error) {
		return s.repo.QueryByCarerAndDate(ctx, proposed.CarerID, proposed.Date)
	})
	if err != nil {
		s.logger.Error().Err(err).
			Str("carer_id", proposed.CarerID).
			Msg("conflict scan query failed, blocking save")
		return ConflictReport{Unknown: true}, fmt.Errorf("conflict scan: %w", err)
	}

	return Scan(proposed, candidates, excludeID), nil
}

// AvailableCarers returns the carers from the candidate list that are free
// for the given interval, preserving input order.
func (s *Service) AvailableCarers(ctx context.Context, carers []string, ivl schedule.Interval, excludeID string) ([]string, error) {
	existing, err := s.queries.Execute(ctx, func(ctx context.Context) ([]*Booking, error) {
		return s.repo.QueryByDate(ctx, ivl.Date)
	})
	if err != nil {
		return nil, fmt.Errorf("availability query: %w", err)
	}

	return AvailableCarers(carers, ivl, existing, excludeID), nil
}

// Create validates a booking, scans it for conflicts, and commits it.
// Returns ValidationError, ConflictError, or the repository error.
func (s *Service) Create(ctx context.Context, b *Booking) (*Booking, error) {
	if errs := s.validate(b); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	report, err := s.CheckConflict(ctx, b, "")
	if err != nil {
		return nil, &ConflictError{Report: report}
	}
	if report.HasConflict {
		return nil, &ConflictError{Report: report}
	}

	return s.commit(ctx, b, false, s.repo.Create)
}

// Update validates an edited booking, scans it for conflicts excluding its
// own prior state, and commits it.
func (s *Service) Update(ctx context.Context, b *Booking) (*Booking, error) {
	if errs := s.validate(b); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	report, err := s.CheckConflict(ctx, b, b.ID)
	if err != nil {
		return nil, &ConflictError{Report: report}
	}
	if report.HasConflict {
		return nil, &ConflictError{Report: report}
	}

	return s.commit(ctx, b, false, s.repo.Update)
}

// ForceCreate commits a booking without a conflict scan. This is a narrow
// operator override for intentional double-booking; it is logged distinctly
// from normal commits and the booking is flagged so the audit trail shows
// validation was bypassed. Local field validation still applies.
func (s *Service) ForceCreate(ctx context.Context, b *Booking) (*Booking, error) {
	if errs := s.validate(b); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}
	return s.commit(ctx, b, true, s.repo.Create)
}

// ForceUpdate commits an edit without a conflict scan. See ForceCreate.
func (s *Service) ForceUpdate(ctx context.Context, b *Booking) (*Booking, error) {
	if errs := s.validate(b); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}
	return s.commit(ctx, b, true, s.repo.Update)
}

// Delete removes a booking.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// ResolveDrag computes the rescheduled interval for a drag-and-drop move of
// an existing booking. The result is not persisted; committing it goes back
// through the normal validated update path.
func (s *Service) ResolveDrag(ctx context.Context, bookingID string, drop schedule.TimeOfDay, snapInterval int) (*Booking, error) {
	b, err := s.repo.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	resolved, err := schedule.ResolveDrag(b.Interval(), drop, snapInterval)
	if err != nil {
		return nil, err
	}

	moved := *b
	moved.Start = resolved.Start
	moved.End = resolved.End
	return &moved, nil
}

// commit persists a booking, stamping identity and timestamps, and maps a
// store-level overlap rejection to a stale ConflictError built from a fresh
// scan so the caller can show what got there first.
func (s *Service) commit(ctx context.Context, b *Booking, forced bool, persist func(context.Context, *Booking) error) (*Booking, error) {
	now := time.Now()
	if b.ID == "" {
		b.ID = NewBookingID()
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	b.ForceCommitted = forced
	if b.Status == "" {
		if b.Assigned() {
			b.Status = StatusAssigned
		} else {
			b.Status = StatusUnassigned
		}
	}

	if forced {
		s.logger.Warn().
			Str("event", "force_commit").
			Str("booking_id", b.ID).
			Str("carer_id", b.CarerID).
			Str("date", b.Date.Format("2006-01-02")).
			Str("window", fmt.Sprintf("%s-%s", b.Start, b.End)).
			Msg("booking committed with conflict check bypassed")
	}

	if err := persist(ctx, b); err != nil {
		if errors.Is(err, ErrScheduleTaken) {
			return nil, s.staleConflict(ctx, b)
		}
		return nil, err
	}

	s.logger.Info().
		Str("booking_id", b.ID).
		Str("carer_id", b.CarerID).
		Str("date", b.Date.Format("2006-01-02")).
		Bool("forced", forced).
		Msg("booking committed")
	return b, nil
}

// staleConflict re-queries the carer's day to build the report for a commit
// that lost a race with a concurrent writer. If even the re-query fails the
// report is unknown; either way the save stays blocked.
func (s *Service) staleConflict(ctx context.Context, b *Booking) error {
	report, err := s.CheckConflict(ctx, b, b.ID)
	if err != nil {
		return &ConflictError{Report: ConflictReport{Unknown: true}, Stale: true}
	}
	// The constraint fired, so the slot is taken even if the scan sees
	// nothing yet.
	report.HasConflict = true
	return &ConflictError{Report: report, Stale: true}
}

// validate performs the local field validation pass: identity, time
// ordering, and business hours. It runs before any conflict scan so
// obviously invalid input never costs a repository round trip.
func (s *Service) validate(b *Booking) []FieldError {
	var errs []FieldError

	if b.ClientID == "" {
		errs = append(errs, FieldError{Field: "clientId", Message: "is required"})
	}
	if b.ClientName == "" {
		errs = append(errs, FieldError{Field: "clientName", Message: "is required"})
	}
	if b.Date.IsZero() {
		errs = append(errs, FieldError{Field: "date", Message: "is required"})
	}
	if !b.Start.Valid() {
		errs = append(errs, FieldError{Field: "start", Message: "must be a valid time of day"})
	}
	if !b.End.Valid() {
		errs = append(errs, FieldError{Field: "end", Message: "must be a valid time of day"})
	}
	if b.Status != "" && !b.Status.Valid() {
		errs = append(errs, FieldError{Field: "status", Message: "is not a known status"})
	}

	if b.Start.Valid() && b.End.Valid() {
		duration := b.Interval().Duration()
		if duration == 0 {
			errs = append(errs, FieldError{Field: "end", Message: "must differ from start"})
		} else if err := schedule.CheckBusinessHours(b.Start, duration); err != nil {
			var bhErr *schedule.BusinessHoursError
			if errors.As(err, &bhErr) {
				errs = append(errs, FieldError{Field: "start", Message: bhErr.Reason})
			} else {
				errs = append(errs, FieldError{Field: "start", Message: "outside business hours"})
			}
		}
	}

	return errs
}
