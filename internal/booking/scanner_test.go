package booking_test

import (
	"testing"
	"time"

	"github.com/careroster/careroster/internal/booking"
	"github.com/careroster/careroster/internal/schedule"
)

var june10 = time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

func mkBooking(id, carerID, clientName string, date time.Time, start, end schedule.TimeOfDay) *booking.Booking {
	return &booking.Booking{
		ID:         id,
		ClientID:   "cli_" + clientName,
		ClientName: clientName,
		CarerID:    carerID,
		Date:       date,
		Start:      start,
		End:        end,
		Status:     booking.StatusAssigned,
	}
}

func TestScan_ReportsOverlap(t *testing.T) {
	// Carer C has 09:00-10:00; proposing 09:30-10:30 must conflict.
	existing := []*booking.Booking{
		mkBooking("bkg_1", "car_c", "Ada Lovelace", june10, 540, 600),
	}
	proposed := mkBooking("", "car_c", "Grace Hopper", june10, 570, 630)

	report := booking.Scan(proposed, existing, "")

	if !report.HasConflict {
		t.Fatal("expected a conflict")
	}
	if len(report.Conflicts) != 1 {
		t.Fatalf("expected 1 conflicting booking, got %d", len(report.Conflicts))
	}
	c := report.Conflicts[0]
	if c.BookingID != "bkg_1" {
		t.Errorf("conflicting booking id = %q, want bkg_1", c.BookingID)
	}
	if c.ClientName != "Ada Lovelace" {
		t.Errorf("conflict must carry the client name, got %q", c.ClientName)
	}
	if c.Start != 540 || c.End != 600 {
		t.Errorf("conflict must carry the time range, got %s-%s", c.Start, c.End)
	}
}

func TestScan_BackToBackIsClean(t *testing.T) {
	// 10:00-11:00 directly after an existing 09:00-10:00 is legal.
	existing := []*booking.Booking{
		mkBooking("bkg_1", "car_c", "Ada Lovelace", june10, 540, 600),
	}
	proposed := mkBooking("", "car_c", "Grace Hopper", june10, 600, 660)

	report := booking.Scan(proposed, existing, "")

	if report.HasConflict {
		t.Errorf("back-to-back bookings must not conflict, got %+v", report.Conflicts)
	}
}

func TestScan_CollectsAllConflicts(t *testing.T) {
	// A long proposed shift can overlap several existing bookings at once.
	existing := []*booking.Booking{
		mkBooking("bkg_1", "car_c", "Ada Lovelace", june10, 540, 600),  // 09:00-10:00
		mkBooking("bkg_2", "car_c", "Mary Jackson", june10, 630, 690),  // 10:30-11:30
		mkBooking("bkg_3", "car_c", "Katherine J.", june10, 780, 840),  // 13:00-14:00
	}
	proposed := mkBooking("", "car_c", "Grace Hopper", june10, 570, 720) // 09:30-12:00

	report := booking.Scan(proposed, existing, "")

	if len(report.Conflicts) != 2 {
		t.Fatalf("expected 2 conflicts, got %d", len(report.Conflicts))
	}
	if report.Conflicts[0].BookingID != "bkg_1" || report.Conflicts[1].BookingID != "bkg_2" {
		t.Error("conflicts must preserve candidate order")
	}
}

func TestScan_ExcludesEditedBooking(t *testing.T) {
	// An edit must never conflict with the booking's own prior state, even
	// when the candidate set contains it.
	prior := mkBooking("bkg_1", "car_c", "Ada Lovelace", june10, 540, 600)
	proposed := mkBooking("bkg_1", "car_c", "Ada Lovelace", june10, 555, 615)

	report := booking.Scan(proposed, []*booking.Booking{prior}, "bkg_1")

	if report.HasConflict {
		t.Errorf("booking conflicted with its own prior state: %+v", report.Conflicts)
	}
}

func TestScan_UnassignedNeverConflicts(t *testing.T) {
	existing := []*booking.Booking{
		mkBooking("bkg_1", "", "Ada Lovelace", june10, 540, 600),
	}
	proposed := mkBooking("", "", "Grace Hopper", june10, 540, 600)

	report := booking.Scan(proposed, existing, "")

	if report.HasConflict {
		t.Error("unassigned bookings cannot conflict")
	}
}

func TestScan_SkipsCancelledBookings(t *testing.T) {
	cancelled := mkBooking("bkg_1", "car_c", "Ada Lovelace", june10, 540, 600)
	cancelled.Status = booking.StatusCancelled
	proposed := mkBooking("", "car_c", "Grace Hopper", june10, 540, 600)

	report := booking.Scan(proposed, []*booking.Booking{cancelled}, "")

	if report.HasConflict {
		t.Error("cancelled bookings must not block the slot")
	}
}

func TestScan_OtherCarerAndOtherDayIgnored(t *testing.T) {
	existing := []*booking.Booking{
		mkBooking("bkg_1", "car_other", "Ada Lovelace", june10, 540, 600),
		mkBooking("bkg_2", "car_c", "Mary Jackson", june10.AddDate(0, 0, 1), 540, 600),
	}
	proposed := mkBooking("", "car_c", "Grace Hopper", june10, 540, 600)

	report := booking.Scan(proposed, existing, "")

	if report.HasConflict {
		t.Error("different carer or day can never conflict")
	}
}

func TestAvailableCarers(t *testing.T) {
	existing := []*booking.Booking{
		mkBooking("bkg_1", "car_a", "Ada Lovelace", june10, 540, 600),
		mkBooking("bkg_2", "car_b", "Mary Jackson", june10, 700, 760),
	}
	ivl := schedule.Interval{Date: june10, Start: 540, End: 600}

	available := booking.AvailableCarers([]string{"car_a", "car_b", "car_c"}, ivl, existing, "")

	if len(available) != 2 {
		t.Fatalf("expected 2 available carers, got %v", available)
	}
	// Input order is preserved; there is no ranking.
	if available[0] != "car_b" || available[1] != "car_c" {
		t.Errorf("expected [car_b car_c], got %v", available)
	}
}

func TestAvailableCarers_ExcludeEditedBooking(t *testing.T) {
	existing := []*booking.Booking{
		mkBooking("bkg_1", "car_a", "Ada Lovelace", june10, 540, 600),
	}
	ivl := schedule.Interval{Date: june10, Start: 540, End: 600}

	// When editing bkg_1 itself, car_a is still available for its own slot.
	available := booking.AvailableCarers([]string{"car_a"}, ivl, existing, "bkg_1")

	if len(available) != 1 || available[0] != "car_a" {
		t.Errorf("expected [car_a], got %v", available)
	}
}
