package models

// SessionOpenRequest opens an edit/create validation session. EditBookingID
// is set when editing an existing booking and empty for a create; the draft
// fields seed the session.
type SessionOpenRequest struct {
	EditBookingID string `json:"editBookingId,omitempty"`

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

// SessionFieldChange is a partial edit to the session draft. Absent fields
// are left unchanged.
type SessionFieldChange struct {
	CarerID *string `json:"carerId,omitempty"`
	Date    *string `json:"date,omitempty"`
	Start   *string `json:"start,omitempty"`
	End     *string `json:"end,omitempty"`
	Status  *string `json:"status,omitempty"`
	Notes   *string `json:"notes,omitempty"`
}

// SessionView is the observable state of a validation session.
type SessionView struct {
	ID    string `json:"id"`
	State string `json:"state"`

	// Reason explains a blocked state in operator-readable terms, naming
	// the conflicting client and time range when known.
	Reason string `json:"reason,omitempty"`

	Conflicts []ConflictingBookingView `json:"conflicts,omitempty"`

	// ConflictUnknown is set when the last scan could not be completed;
	// the save stays blocked until a scan succeeds or the operator forces.
	ConflictUnknown bool `json:"conflictUnknown,omitempty"`

	FieldErrors []FieldError `json:"fieldErrors,omitempty"`

	// Committed is the persisted booking once the session closed
	// successfully.
	Committed *Booking `json:"committed,omitempty"`
}
