package booking_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/careroster/careroster/internal/booking"
	"github.com/careroster/careroster/internal/resilience"
	"github.com/careroster/careroster/internal/schedule"
)

func newTestService(repo booking.Repository) *booking.Service {
	cfg := resilience.DefaultConfig("booking-test")
	cfg.MaxRetries = 1
	cfg.InitialInterval = time.Millisecond
	return booking.NewService(booking.ServiceConfig{
		Repository: repo,
		Logger:     zerolog.Nop(),
		Queries:    resilience.NewExecutor[[]*booking.Booking](cfg),
	})
}

func TestService_Create(t *testing.T) {
	repo := booking.NewInMemoryRepository()
	service := newTestService(repo)
	ctx := context.Background()

	created, err := service.Create(ctx, mkBooking("", "car_c", "Ada Lovelace", june10, 540, 600))
	if err != nil {
		t.Fatalf("failed to create booking: %v", err)
	}

	if created.ID == "" {
		t.Error("expected booking ID to be set")
	}
	if created.Status != booking.StatusAssigned {
		t.Errorf("expected status assigned, got %s", created.Status)
	}

	stored, err := repo.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("booking not persisted: %v", err)
	}
	if stored.CarerID != "car_c" {
		t.Errorf("stored carer %q, want car_c", stored.CarerID)
	}
}

func TestService_Create_ConflictBlocks(t *testing.T) {
	repo := booking.NewInMemoryRepository()
	service := newTestService(repo)
	ctx := context.Background()

	if _, err := service.Create(ctx, mkBooking("", "car_c", "Ada Lovelace", june10, 540, 600)); err != nil {
		t.Fatalf("seed booking failed: %v", err)
	}

	_, err := service.Create(ctx, mkBooking("", "car_c", "Grace Hopper", june10, 570, 630))

	var conflictErr *booking.ConflictError
	if !errors.As(err, &conflictErr) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if conflictErr.Stale {
		t.Error("a scan-detected conflict is not stale")
	}
	if len(conflictErr.Report.Conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(conflictErr.Report.Conflicts))
	}
	if conflictErr.Report.Conflicts[0].ClientName != "Ada Lovelace" {
		t.Error("conflict report must name the client in the way")
	}
}

func TestService_Create_ValidationErrors(t *testing.T) {
	repo := booking.NewInMemoryRepository()
	service := newTestService(repo)
	ctx := context.Background()

	tests := []struct {
		name      string
		mutate    func(b *booking.Booking)
		wantField string
	}{
		{
			name:      "missing client",
			mutate:    func(b *booking.Booking) { b.ClientID = ""; b.ClientName = "" },
			wantField: "clientId",
		},
		{
			name:      "zero duration",
			mutate:    func(b *booking.Booking) { b.End = b.Start },
			wantField: "end",
		},
		{
			name:      "before opening",
			mutate:    func(b *booking.Booking) { b.Start = 300; b.End = 360 },
			wantField: "start",
		},
		{
			name:      "past closing",
			mutate:    func(b *booking.Booking) { b.Start = 1290; b.End = 1350 },
			wantField: "start",
		},
		{
			name:      "missing date",
			mutate:    func(b *booking.Booking) { b.Date = time.Time{} },
			wantField: "date",
		},
		{
			name:      "unknown status",
			mutate:    func(b *booking.Booking) { b.Status = "archived" },
			wantField: "status",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := mkBooking("", "car_c", "Ada Lovelace", june10, 540, 600)
			tt.mutate(b)

			_, err := service.Create(ctx, b)

			var validationErr *booking.ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			found := false
			for _, fe := range validationErr.Errors {
				if fe.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error on field %q, got %+v", tt.wantField, validationErr.Errors)
			}
		})
	}
}

func TestService_Create_UnassignedSkipsScan(t *testing.T) {
	repo := booking.NewInMemoryRepository()
	service := newTestService(repo)
	ctx := context.Background()

	if _, err := service.Create(ctx, mkBooking("", "car_c", "Ada Lovelace", june10, 540, 600)); err != nil {
		t.Fatalf("seed booking failed: %v", err)
	}

	// Unassigned bookings cannot conflict, even over an occupied slot.
	unassigned := mkBooking("", "", "Grace Hopper", june10, 540, 600)
	unassigned.Status = ""

	created, err := service.Create(ctx, unassigned)
	if err != nil {
		t.Fatalf("unassigned create failed: %v", err)
	}
	if created.Status != booking.StatusUnassigned {
		t.Errorf("expected status unassigned, got %s", created.Status)
	}
}

func TestService_Update_ExcludesOwnPriorState(t *testing.T) {
	repo := booking.NewInMemoryRepository()
	service := newTestService(repo)
	ctx := context.Background()

	created, err := service.Create(ctx, mkBooking("", "car_c", "Ada Lovelace", june10, 540, 600))
	if err != nil {
		t.Fatalf("seed booking failed: %v", err)
	}

	// Shift by 15 minutes; still overlaps the prior state but that is fine.
	created.Start, created.End = 555, 615
	if _, err := service.Update(ctx, created); err != nil {
		t.Fatalf("editing a booking over its own slot must succeed: %v", err)
	}
}

// failingRepository fails every read to exercise the fail-closed branch.
type failingRepository struct {
	booking.Repository
}

func (r *failingRepository) QueryByCarerAndDate(context.Context, string, time.Time) ([]*booking.Booking, error) {
	return nil, errors.New("store unavailable")
}

func TestService_CheckConflict_FailsClosed(t *testing.T) {
	service := newTestService(&failingRepository{booking.NewInMemoryRepository()})
	ctx := context.Background()

	report, err := service.CheckConflict(ctx, mkBooking("", "car_c", "Ada Lovelace", june10, 540, 600), "")

	if err == nil {
		t.Fatal("expected an error from a failing store")
	}
	if !report.Unknown {
		t.Error("a failed scan must produce an unknown report, never a clean one")
	}

	// And a create against the failing store must be blocked, not committed.
	_, err = service.Create(ctx, mkBooking("", "car_c", "Ada Lovelace", june10, 540, 600))
	var conflictErr *booking.ConflictError
	if !errors.As(err, &conflictErr) {
		t.Fatalf("expected blocking ConflictError, got %v", err)
	}
	if !conflictErr.Report.Unknown {
		t.Error("blocking report must be marked unknown")
	}
}

// racingRepository passes reads but rejects the first create, simulating a
// concurrent writer winning the slot between scan and commit.
type racingRepository struct {
	*booking.InMemoryRepository
	mu       sync.Mutex
	rejected bool
}

func (r *racingRepository) Create(ctx context.Context, b *booking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.rejected {
		r.rejected = true
		return booking.ErrScheduleTaken
	}
	return r.InMemoryRepository.Create(ctx, b)
}

func TestService_Create_StaleConflictOnCommitRace(t *testing.T) {
	repo := &racingRepository{InMemoryRepository: booking.NewInMemoryRepository()}
	service := newTestService(repo)
	ctx := context.Background()

	_, err := service.Create(ctx, mkBooking("", "car_c", "Ada Lovelace", june10, 540, 600))

	var conflictErr *booking.ConflictError
	if !errors.As(err, &conflictErr) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if !conflictErr.Stale {
		t.Error("a commit-time rejection must be reported as stale")
	}
	if !conflictErr.Report.HasConflict {
		t.Error("stale conflict must still block")
	}
}

func TestService_ForceCreate_BypassesScanButIsFlagged(t *testing.T) {
	repo := booking.NewInMemoryRepository()
	service := newTestService(repo)
	ctx := context.Background()

	if _, err := service.Create(ctx, mkBooking("", "car_c", "Ada Lovelace", june10, 540, 600)); err != nil {
		t.Fatalf("seed booking failed: %v", err)
	}

	forced, err := service.ForceCreate(ctx, mkBooking("", "car_c", "Grace Hopper", june10, 570, 630))
	if err != nil {
		t.Fatalf("force create must bypass the scan: %v", err)
	}
	if !forced.ForceCommitted {
		t.Error("forced bookings must be flagged for audit")
	}
}

func TestService_ForceCreate_StillValidatesFields(t *testing.T) {
	repo := booking.NewInMemoryRepository()
	service := newTestService(repo)
	ctx := context.Background()

	b := mkBooking("", "car_c", "Ada Lovelace", june10, 300, 360) // before opening
	_, err := service.ForceCreate(ctx, b)

	var validationErr *booking.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("force commit bypasses the scan, not field validation; got %v", err)
	}
}

func TestService_ResolveDrag(t *testing.T) {
	repo := booking.NewInMemoryRepository()
	service := newTestService(repo)
	ctx := context.Background()

	created, err := service.Create(ctx, mkBooking("", "car_c", "Ada Lovelace", june10, 540, 570))
	if err != nil {
		t.Fatalf("seed booking failed: %v", err)
	}

	moved, err := service.ResolveDrag(ctx, created.ID, 650, 30) // 10:50 -> 11:00
	if err != nil {
		t.Fatalf("resolve drag failed: %v", err)
	}
	if moved.Start != 660 || moved.End != 690 {
		t.Errorf("moved to %s-%s, want 11:00-11:30", moved.Start, moved.End)
	}

	// The move is not persisted until committed through Update.
	stored, _ := repo.Get(ctx, created.ID)
	if stored.Start != 540 {
		t.Error("ResolveDrag must not persist the move")
	}

	// Dropping at 21:50 snaps to closing time and is rejected outright.
	if _, err := service.ResolveDrag(ctx, created.ID, 1310, 30); !errors.Is(err, schedule.ErrOutsideBusinessHours) {
		t.Errorf("expected ErrOutsideBusinessHours, got %v", err)
	}
}

func TestService_AvailableCarers(t *testing.T) {
	repo := booking.NewInMemoryRepository()
	service := newTestService(repo)
	ctx := context.Background()

	if _, err := service.Create(ctx, mkBooking("", "car_a", "Ada Lovelace", june10, 540, 600)); err != nil {
		t.Fatalf("seed booking failed: %v", err)
	}

	ivl := schedule.Interval{Date: june10, Start: 540, End: 600}
	available, err := service.AvailableCarers(ctx, []string{"car_a", "car_b"}, ivl, "")
	if err != nil {
		t.Fatalf("available carers failed: %v", err)
	}
	if len(available) != 1 || available[0] != "car_b" {
		t.Errorf("expected [car_b], got %v", available)
	}
}
