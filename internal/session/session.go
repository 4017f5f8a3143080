// Package session implements the validation state machine that gates
// booking creation and editing on a conflict check.
//
// Each edit/create interaction owns one Session, driven by discrete events:
// field changes, submit, force-commit, cancel. The machine never runs two
// scans concurrently for the same session, and no commit can be issued while
// a scan is outstanding. The original form logic expressed this as a cluster
// of blocking flags; the explicit state enum makes inconsistent combinations
// (blocked and saving at once) unrepresentable.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/careroster/careroster/internal/booking"
)

// State is the lifecycle state of a validation session.
type State string

// Session states.
const (
	// StateIdle accepts field changes and a submit.
	StateIdle State = "idle"

	// StateValidating has a conflict scan outstanding. All mutating
	// controls and the submit action are disabled.
	StateValidating State = "validating"

	// StateBlocked surfaces a conflict report. The session offers three
	// ways out: pick a different carer, modify the time (both return to
	// idle via a field change), or force-commit.
	StateBlocked State = "blocked"

	// StateClear means the scan found no conflicts; the commit proceeds.
	StateClear State = "clear"

	// StateCommitting has a repository commit outstanding.
	StateCommitting State = "committing"

	// StateClosed is terminal: committed, cancelled, or dismissed.
	StateClosed State = "closed"
)

// BookingService is the slice of the booking service the session drives.
type BookingService interface {
	CheckConflict(ctx context.Context, proposed *booking.Booking, excludeID string) (booking.ConflictReport, error)
	Create(ctx context.Context, b *booking.Booking) (*booking.Booking, error)
	Update(ctx context.Context, b *booking.Booking) (*booking.Booking, error)
	ForceCreate(ctx context.Context, b *booking.Booking) (*booking.Booking, error)
	ForceUpdate(ctx context.Context, b *booking.Booking) (*booking.Booking, error)
}

// Patch is a partial update to the session's draft booking. Nil fields are
// left unchanged.
type Patch struct {
	CarerID *string
	Date    *string // "2006-01-02", scheduling timezone
	Start   *string // "HH:MM"
	End     *string // "HH:MM"
	Status  *string
	Notes   *string
}

// Snapshot is an observable view of the session after an event.
type Snapshot struct {
	ID    string
	State State

	// Reason is a human-readable explanation for blocked states. For
	// conflicts it names the overlapping client and time range; it is never
	// a generic failure message when the underlying data is known.
	Reason string

	// Report is the conflict report for blocked states.
	Report booking.ConflictReport

	// FieldErrors are local validation failures from the last event.
	FieldErrors []booking.FieldError

	// Committed is the persisted booking once the session closes
	// successfully.
	Committed *booking.Booking
}

// Session is one edit/create validation session. Events are serialized by an
// internal mutex; the conflict scan and the commit are the only suspension
// points, and results arriving after the session was superseded or closed
// are discarded via a generation counter.
type Session struct {
	mu sync.Mutex

	id     string
	state  State
	draft  booking.Booking
	editID string // booking being edited; empty for a create

	report      booking.ConflictReport
	reason      string
	fieldErrors []booking.FieldError
	committed   *booking.Booking

	// generation invalidates in-flight scan results. It is bumped on
	// cancel; a scan compares its captured generation before mutating.
	generation uint64

	svc    BookingService
	logger zerolog.Logger
}

// Config holds the inputs for opening a session.
type Config struct {
	ID string

	// Draft is the initial booking state of the form.
	Draft booking.Booking

	// EditID is the id of the booking being edited, or empty for a create.
	// It is excluded from conflict scans so an edit never conflicts with
	// its own prior state.
	EditID string

	Service BookingService
	Logger  zerolog.Logger
}

// New opens a session in the idle state.
func New(cfg Config) *Session {
	return &Session{
		id:     cfg.ID,
		state:  StateIdle,
		draft:  cfg.Draft,
		editID: cfg.EditID,
		svc:    cfg.Service,
		logger: cfg.Logger.With().Str("component", "session").Str("session_id", cfg.ID).Logger(),
	}
}

// Snapshot returns the current observable state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		ID:          s.id,
		State:       s.state,
		Reason:      s.reason,
		Report:      s.report,
		FieldErrors: s.fieldErrors,
		Committed:   s.committed,
	}
}

// FieldChange applies a partial edit to the draft and re-runs the local
// synchronous validation. It is ignored while a scan or commit is
// outstanding (the controls are disabled) and after the session closed.
// A change from the blocked state returns the session to idle: both
// "pick a different carer" and "modify time" arrive here.
func (s *Session) FieldChange(patch Patch) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateValidating, StateCommitting, StateClosed:
		return s.snapshotLocked()
	}

	if errs := applyPatch(&s.draft, patch); len(errs) > 0 {
		s.fieldErrors = errs
		return s.snapshotLocked()
	}

	s.state = StateIdle
	s.report = booking.ConflictReport{}
	s.reason = ""
	s.fieldErrors = localValidate(&s.draft)
	return s.snapshotLocked()
}

// Submit attempts to validate and commit the draft. The full path is
// idle -> validating -> clear -> committing -> closed; conflicts stop at
// blocked. A submit while a scan is already outstanding is a no-op, not
// queued: the commit control is disabled and a stale result must never race
// a newer one.
func (s *Session) Submit(ctx context.Context) Snapshot {
	s.mu.Lock()

	if s.state != StateIdle && s.state != StateBlocked {
		defer s.mu.Unlock()
		return s.snapshotLocked()
	}

	// Local field validation gates the scan; obviously invalid input never
	// costs a repository round trip.
	if errs := localValidate(&s.draft); len(errs) > 0 {
		s.fieldErrors = errs
		s.state = StateIdle
		defer s.mu.Unlock()
		return s.snapshotLocked()
	}

	s.fieldErrors = nil
	s.state = StateValidating
	generation := s.generation
	proposed := s.draft
	s.mu.Unlock()

	// Suspension point: the scan runs without the lock so other events can
	// observe (and be refused by) the validating state.
	report, scanErr := s.svc.CheckConflict(ctx, &proposed, s.editID)

	s.mu.Lock()
	if s.generation != generation || s.state != StateValidating {
		// Session was cancelled while the scan was in flight; discard.
		defer s.mu.Unlock()
		return s.snapshotLocked()
	}

	if scanErr != nil {
		// Fail closed: uncertainty blocks the save.
		s.block(report, "could not verify carer availability; the booking was not saved")
		defer s.mu.Unlock()
		return s.snapshotLocked()
	}

	if report.HasConflict {
		s.block(report, conflictReason(report))
		defer s.mu.Unlock()
		return s.snapshotLocked()
	}

	s.state = StateClear
	return s.commitLocked(ctx, generation, false)
}

// ForceCommit commits the draft despite a detected conflict. It is only
// legal from the blocked state; this is the explicit, separately audited
// escape hatch, not a flag that disables validation elsewhere.
func (s *Session) ForceCommit(ctx context.Context) Snapshot {
	s.mu.Lock()

	if s.state != StateBlocked {
		defer s.mu.Unlock()
		return s.snapshotLocked()
	}

	s.logger.Warn().
		Str("event", "force_commit").
		Int("conflicts", len(s.report.Conflicts)).
		Msg("operator forced commit past a conflict")

	return s.commitLocked(ctx, s.generation, true)
}

// Cancel closes the session. An in-flight scan result arriving afterwards
// is discarded; nothing mutates a disposed session.
func (s *Session) Cancel() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	s.state = StateClosed
	s.reason = ""
	return s.snapshotLocked()
}

// commitLocked runs the commit suspension point. The caller must hold the
// lock; it is released during the repository call and the session sits in
// the committing state, refusing all other events.
func (s *Session) commitLocked(ctx context.Context, generation uint64, forced bool) Snapshot {
	s.state = StateCommitting
	draft := s.draft
	editID := s.editID
	s.mu.Unlock()

	committed, err := s.runCommit(ctx, &draft, editID, forced)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generation != generation || s.state != StateCommitting {
		return s.snapshotLocked()
	}

	if err != nil {
		var conflictErr *booking.ConflictError
		if errors.As(err, &conflictErr) {
			// A concurrent writer won the slot after our scan passed. The
			// session re-blocks with the fresh report; the user resolves
			// again instead of the engine silently retrying.
			s.block(conflictErr.Report, staleReason(conflictErr))
			return s.snapshotLocked()
		}

		var validationErr *booking.ValidationError
		if errors.As(err, &validationErr) {
			s.state = StateIdle
			s.fieldErrors = validationErr.Errors
			return s.snapshotLocked()
		}

		s.block(booking.ConflictReport{Unknown: true}, "saving failed; the booking was not committed")
		s.logger.Error().Err(err).Msg("commit failed")
		return s.snapshotLocked()
	}

	s.committed = committed
	s.state = StateClosed
	s.report = booking.ConflictReport{}
	s.reason = ""
	return s.snapshotLocked()
}

// runCommit dispatches to the right service call for the session mode.
func (s *Session) runCommit(ctx context.Context, draft *booking.Booking, editID string, forced bool) (*booking.Booking, error) {
	switch {
	case editID == "" && !forced:
		return s.svc.Create(ctx, draft)
	case editID == "" && forced:
		return s.svc.ForceCreate(ctx, draft)
	case forced:
		return s.svc.ForceUpdate(ctx, draft)
	default:
		return s.svc.Update(ctx, draft)
	}
}

// block moves the session to blocked with a report and reason.
func (s *Session) block(report booking.ConflictReport, reason string) {
	s.state = StateBlocked
	s.report = report
	s.reason = reason
}

// conflictReason renders a human-readable reason naming each overlapping
// booking's client and time range.
func conflictReason(report booking.ConflictReport) string {
	if len(report.Conflicts) == 0 {
		return "the proposed time conflicts with an existing booking"
	}
	parts := make([]string, 0, len(report.Conflicts))
	for _, c := range report.Conflicts {
		parts = append(parts, fmt.Sprintf("%s %s-%s", c.ClientName, c.Start, c.End))
	}
	return "this carer is already booked: " + strings.Join(parts, ", ")
}

// staleReason renders the reason for a commit that lost a race.
func staleReason(err *booking.ConflictError) string {
	if len(err.Report.Conflicts) > 0 {
		return "another coordinator booked this slot first: " + conflictReason(err.Report)
	}
	return "another coordinator booked this slot first; please re-check the schedule"
}
