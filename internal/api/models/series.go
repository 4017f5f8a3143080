package models

// SeriesWindow is one daily time window of a recurring plan.
type SeriesWindow struct {
	Start      string `json:"start"`
	End        string `json:"end"`
	ServiceRef string `json:"serviceRef,omitempty"`
}

// SeriesRequest describes a recurring booking plan. Weekdays uses 0=Sunday
// through 6=Saturday; an empty list means every day in the range.
type SeriesRequest struct {
	ClientID   string         `json:"clientId"`
	ClientName string         `json:"clientName"`
	CarerID    string         `json:"carerId,omitempty"`
	From       DateOnly       `json:"from"`
	Until      DateOnly       `json:"until"`
	Weekdays   []int          `json:"weekdays,omitempty"`
	Windows    []SeriesWindow `json:"windows"`
	Notes      string         `json:"notes,omitempty"`
}

// SeriesInstance is one concrete booking an expansion would produce.
type SeriesInstance struct {
	Date       DateOnly `json:"date"`
	Start      string   `json:"start"`
	End        string   `json:"end"`
	ServiceRef string   `json:"serviceRef,omitempty"`
}

// SeriesPreviewResponse is the dry-run expansion of a plan. Nothing is
// persisted by a preview.
type SeriesPreviewResponse struct {
	Count     int              `json:"count"`
	Instances []SeriesInstance `json:"instances"`
}

// SeriesAccepted acknowledges a series submission handed to the
// materialization worker.
type SeriesAccepted struct {
	SeriesID  string    `json:"seriesId"`
	Count     int       `json:"count"`
	Submitted Timestamp `json:"submittedAt"`
}
