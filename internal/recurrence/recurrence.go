// Package recurrence expands a recurring booking plan into the concrete set
// of booking instances to create. Expansion is all-or-nothing: a malformed
// plan yields an error and zero instances, never a partial series.
//
// Expansion does not check conflicts. Callers pre-validate the first
// generated instance interactively; the remainder are committed
// optimistically and conflicts surfaced post-hoc by the persistence layer.
package recurrence

import (
	"errors"
	"time"

	"github.com/careroster/careroster/internal/schedule"
)

// Expansion errors.
var (
	// ErrInvalidRange indicates the plan's from date is after its until date.
	ErrInvalidRange = errors.New("recurrence: from date is after until date")

	// ErrInvalidWindow indicates a time window ends before it starts within
	// a single-day range.
	ErrInvalidWindow = errors.New("recurrence: window start must be before end")
)

// Window is a daily time-of-day range, optionally tagged with the care
// service it delivers.
type Window struct {
	Start      schedule.TimeOfDay
	End        schedule.TimeOfDay
	ServiceRef string
}

// Plan describes a recurring booking series.
type Plan struct {
	ClientID   string
	ClientName string
	CarerID    string
	Notes      string

	// From and Until bound the series. Both dates are inclusive.
	From  time.Time
	Until time.Time

	// Weekdays selects which days of the week generate instances. An empty
	// selection means every day in range, not no days.
	Weekdays []time.Weekday

	// Windows are the daily time ranges; each included day produces one
	// instance per window.
	Windows []Window
}

// CreateRequest is one concrete booking to create from an expanded plan.
type CreateRequest struct {
	ClientID   string
	ClientName string
	CarerID    string
	Notes      string
	ServiceRef string

	Date  time.Time
	Start schedule.TimeOfDay
	End   schedule.TimeOfDay
}

// Expand produces the concrete booking create requests for a plan, one per
// selected day per window, ordered by date then window.
func Expand(plan Plan) ([]CreateRequest, error) {
	from := truncateToDay(plan.From)
	until := truncateToDay(plan.Until)

	if from.After(until) {
		return nil, ErrInvalidRange
	}

	sameDay := from.Equal(until)
	for _, w := range plan.Windows {
		if sameDay && w.Start >= w.End {
			return nil, ErrInvalidWindow
		}
	}

	weekdaySet := make(map[time.Weekday]struct{}, len(plan.Weekdays))
	for _, day := range plan.Weekdays {
		weekdaySet[day] = struct{}{}
	}

	var requests []CreateRequest
	for day := from; !day.After(until); day = day.AddDate(0, 0, 1) {
		if !includeDay(weekdaySet, day.Weekday()) {
			continue
		}
		for _, w := range plan.Windows {
			requests = append(requests, CreateRequest{
				ClientID:   plan.ClientID,
				ClientName: plan.ClientName,
				CarerID:    plan.CarerID,
				Notes:      plan.Notes,
				ServiceRef: w.ServiceRef,
				Date:       day,
				Start:      w.Start,
				End:        w.End,
			})
		}
	}

	return requests, nil
}

// truncateToDay drops the time-of-day component, keeping the location.
func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// includeDay applies the default-to-all policy: an empty selection includes
// every day.
func includeDay(selected map[time.Weekday]struct{}, day time.Weekday) bool {
	if len(selected) == 0 {
		return true
	}
	_, ok := selected[day]
	return ok
}
