package schedule

import (
	"errors"
	"testing"
)

func TestResolveDrag(t *testing.T) {
	tests := []struct {
		name      string
		interval  Interval
		drop      TimeOfDay
		snap      int
		wantStart TimeOfDay
		wantEnd   TimeOfDay
		wantErr   bool
	}{
		{
			name:      "snap down to grid",
			interval:  iv("car_1", monday, 540, 570), // 09:00-09:30
			drop:      640,                           // 10:40
			snap:      30,
			wantStart: 630, // 10:30
			wantEnd:   660, // 11:00
		},
		{
			name:      "snap up to grid",
			interval:  iv("car_1", monday, 540, 570),
			drop:      650, // 10:50
			snap:      30,
			wantStart: 660, // 11:00
			wantEnd:   690,
		},
		{
			name:      "default snap interval",
			interval:  iv("car_1", monday, 540, 570),
			drop:      650,
			snap:      0,
			wantStart: 660,
			wantEnd:   690,
		},
		{
			name:      "duration preserved for long shift",
			interval:  iv("car_1", monday, 480, 720), // 08:00-12:00
			drop:      601,                           // 10:01
			snap:      30,
			wantStart: 600,  // 10:00
			wantEnd:   840,  // 14:00
		},
		{
			name:     "drop at 21:50 snaps to closing and is rejected",
			interval: iv("car_1", monday, 540, 570), // 30 minute booking
			drop:     1310,                          // 21:50 -> snaps to 22:00
			snap:     30,
			wantErr:  true,
		},
		{
			name:     "end past closing is rejected",
			interval: iv("car_1", monday, 480, 720), // 4 hours
			drop:     1200,                          // 20:00 -> would end 24:00
			snap:     30,
			wantErr:  true,
		},
		{
			name:     "start before opening is rejected",
			interval: iv("car_1", monday, 540, 570),
			drop:     300, // 05:00
			snap:     30,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveDrag(tt.interval, tt.drop, tt.snap)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected BusinessHoursError, got interval %v", got)
				}
				if !errors.Is(err, ErrOutsideBusinessHours) {
					t.Errorf("expected ErrOutsideBusinessHours, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Start != tt.wantStart || got.End != tt.wantEnd {
				t.Errorf("resolved %s-%s, want %s-%s", got.Start, got.End, tt.wantStart, tt.wantEnd)
			}
			if !SameDay(got.Date, tt.interval.Date) {
				t.Error("drag must not move the booking to another date")
			}
			if got.CarerID != tt.interval.CarerID {
				t.Error("drag must not reassign the carer")
			}
		})
	}
}

func TestCheckBusinessHours(t *testing.T) {
	if err := CheckBusinessHours(360, 60); err != nil {
		t.Errorf("06:00 start should be allowed: %v", err)
	}
	if err := CheckBusinessHours(1260, 60); err != nil {
		t.Errorf("21:00-22:00 should be allowed: %v", err)
	}
	if err := CheckBusinessHours(1320, 30); err == nil {
		t.Error("22:00 start should be rejected")
	}
	if err := CheckBusinessHours(359, 30); err == nil {
		t.Error("05:59 start should be rejected")
	}
	if err := CheckBusinessHours(1290, 60); err == nil {
		t.Error("end past 22:00 should be rejected")
	}
}
