package models

// BookingCreateRequest is the payload for creating a booking directly,
// outside an edit session. Times are wall-clock "HH:MM" strings.
type BookingCreateRequest struct {
	ClientID   string   `json:"clientId"`
	ClientName string   `json:"clientName"`
	CarerID    string   `json:"carerId,omitempty"`
	Date       DateOnly `json:"date"`
	Start      string   `json:"start"`
	End        string   `json:"end"`
	Status     string   `json:"status,omitempty"`
	ServiceRef string   `json:"serviceRef,omitempty"`
	Notes      string   `json:"notes,omitempty"`
}

// BookingUpdateRequest is the payload for replacing a booking's fields.
type BookingUpdateRequest struct {
	ClientID   string   `json:"clientId"`
	ClientName string   `json:"clientName"`
	CarerID    string   `json:"carerId,omitempty"`
	Date       DateOnly `json:"date"`
	Start      string   `json:"start"`
	End        string   `json:"end"`
	Status     string   `json:"status,omitempty"`
	ServiceRef string   `json:"serviceRef,omitempty"`
	Notes      string   `json:"notes,omitempty"`
}

// Booking is the API representation of a booking.
type Booking struct {
	ID         string   `json:"id"`
	ClientID   string   `json:"clientId"`
	ClientName string   `json:"clientName"`
	CarerID    string   `json:"carerId,omitempty"`
	Date       DateOnly `json:"date"`
	Start      string   `json:"start"`
	End        string   `json:"end"`

	// Overnight marks a booking that runs past midnight (end before start
	// on the clock). The date stays the start day.
	Overnight bool `json:"overnight,omitempty"`

	Status         string    `json:"status"`
	ServiceRef     string    `json:"serviceRef,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	ForceCommitted bool      `json:"forceCommitted,omitempty"`
	CreatedAt      Timestamp `json:"createdAt"`
	UpdatedAt      Timestamp `json:"updatedAt"`
}

// PagedBookings is a page of bookings.
type PagedBookings struct {
	Items []Booking         `json:"items"`
	Meta  PagedResponseMeta `json:"meta"`
}

// ConflictCheckRequest is the payload for a standalone conflict check.
type ConflictCheckRequest struct {
	CarerID string   `json:"carerId"`
	Date    DateOnly `json:"date"`
	Start   string   `json:"start"`
	End     string   `json:"end"`

	// ExcludeBookingID leaves one booking out of the scan, so an edit does
	// not conflict with its own saved state.
	ExcludeBookingID string `json:"excludeBookingId,omitempty"`
}

// ConflictingBookingView identifies one booking that overlaps a proposal.
type ConflictingBookingView struct {
	BookingID  string `json:"bookingId"`
	ClientName string `json:"clientName"`
	Start      string `json:"start"`
	End        string `json:"end"`
}

// ConflictCheckResponse is the result of a conflict scan.
type ConflictCheckResponse struct {
	HasConflict bool                     `json:"hasConflict"`
	Conflicts   []ConflictingBookingView `json:"conflicts,omitempty"`
}

// DragResolveRequest is the payload for resolving a drag-drop reschedule.
// DropTime is the raw pointer-position time before snapping.
type DragResolveRequest struct {
	DropTime string `json:"dropTime"`

	// SnapInterval is the grid granularity in minutes; zero means the
	// default grid.
	SnapInterval int `json:"snapIntervalMinutes,omitempty"`
}

// DragResolveResponse is the snapped, validated placement for a drag. The
// booking itself is not modified; committing the move is a separate update.
type DragResolveResponse struct {
	BookingID string   `json:"bookingId"`
	Date      DateOnly `json:"date"`
	Start     string   `json:"start"`
	End       string   `json:"end"`
	Overnight bool     `json:"overnight,omitempty"`
}

// AvailableCarersResponse lists the carers free for a given slot.
type AvailableCarersResponse struct {
	CarerIDs []string `json:"carerIds"`
}
