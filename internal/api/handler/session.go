package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/careroster/careroster/internal/api/middleware"
	"github.com/careroster/careroster/internal/api/models"
	"github.com/careroster/careroster/internal/api/response"
	"github.com/careroster/careroster/internal/session"
)

// SessionHandler handles edit-session endpoints. A session wraps one
// create/edit form: field changes update the draft, submit runs the conflict
// scan and commit, and force-commit is the operator override for a blocked
// session.
type SessionHandler struct {
	sessions *session.Manager
	metrics  *middleware.SchedulingMetrics
	logger   zerolog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(mgr *session.Manager, metrics *middleware.SchedulingMetrics, logger zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: mgr,
		metrics:  metrics,
		logger:   logger.With().Str("handler", "session").Logger(),
	}
}

// Open handles POST /v1/sessions - open an edit/create session.
func (h *SessionHandler) Open(w http.ResponseWriter, r *http.Request) {
	var input models.SessionOpenRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	draft, fieldErrors := draftFromRequest(models.BookingCreateRequest{
		ClientID:   input.ClientID,
		ClientName: input.ClientName,
		CarerID:    input.CarerID,
		Date:       input.Date,
		Start:      input.Start,
		End:        input.End,
		Status:     input.Status,
		ServiceRef: input.ServiceRef,
		Notes:      input.Notes,
	})
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "validation error", fieldErrors)
		return
	}
	draft.ID = input.EditBookingID

	sess := h.sessions.Open(draft, input.EditBookingID)
	snap := sess.Snapshot()

	location := fmt.Sprintf("/v1/sessions/%s", snap.ID)
	response.Created(w, r, location, sessionView(snap))
}

// Get handles GET /v1/sessions/{sessionId}.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessions.Get(chi.URLParam(r, "sessionId"))
	if !ok {
		response.NotFound(w, r, "session not found")
		return
	}

	response.JSON(w, r, http.StatusOK, sessionView(sess.Snapshot()))
}

// FieldChange handles PATCH /v1/sessions/{sessionId} - apply a partial edit
// to the session draft. Changes while a scan or commit is in flight are
// ignored; the returned state tells the client what actually happened.
func (h *SessionHandler) FieldChange(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessions.Get(chi.URLParam(r, "sessionId"))
	if !ok {
		response.NotFound(w, r, "session not found")
		return
	}

	var input models.SessionFieldChange
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	snap := sess.FieldChange(session.Patch{
		CarerID: input.CarerID,
		Date:    input.Date,
		Start:   input.Start,
		End:     input.End,
		Status:  input.Status,
		Notes:   input.Notes,
	})

	response.JSON(w, r, http.StatusOK, sessionView(snap))
}

// Submit handles POST /v1/sessions/{sessionId}/submit - validate, scan, and
// commit the draft. The response carries the resulting session state; a
// blocked session stays open for correction or force-commit.
func (h *SessionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessions.Get(chi.URLParam(r, "sessionId"))
	if !ok {
		response.NotFound(w, r, "session not found")
		return
	}

	snap := sess.Submit(r.Context())
	h.recordSubmit(r, snap)

	response.JSON(w, r, http.StatusOK, sessionView(snap))
}

// ForceCommit handles POST /v1/sessions/{sessionId}/force-commit - commit a
// blocked session despite the detected conflict. Coordinator only.
func (h *SessionHandler) ForceCommit(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessions.Get(chi.URLParam(r, "sessionId"))
	if !ok {
		response.NotFound(w, r, "session not found")
		return
	}

	snap := sess.ForceCommit(r.Context())
	if snap.State == session.StateClosed {
		h.metrics.RecordForceCommit(r.Context())
		h.logger.Warn().
			Str("session_id", snap.ID).
			Str("staff_id", GetStaffID(r.Context())).
			Msg("session force-committed")
	}

	response.JSON(w, r, http.StatusOK, sessionView(snap))
}

// Cancel handles DELETE /v1/sessions/{sessionId} - discard the session. Any
// in-flight scan result is dropped.
func (h *SessionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")
	if _, ok := h.sessions.Get(sessionID); !ok {
		response.NotFound(w, r, "session not found")
		return
	}

	h.sessions.Remove(sessionID)
	response.NoContent(w, r)
}

// recordSubmit emits the scan outcome for a submit.
func (h *SessionHandler) recordSubmit(r *http.Request, snap session.Snapshot) {
	switch {
	case snap.State == session.StateClosed:
		h.metrics.RecordScan(r.Context(), middleware.ScanOutcomeClear)
	case snap.Report.Unknown:
		h.metrics.RecordScan(r.Context(), middleware.ScanOutcomeUnknown)
	case snap.Report.HasConflict:
		h.metrics.RecordScan(r.Context(), middleware.ScanOutcomeConflict)
	}
}

// sessionView converts a session snapshot to its API representation.
func sessionView(snap session.Snapshot) models.SessionView {
	view := models.SessionView{
		ID:              snap.ID,
		State:           string(snap.State),
		Reason:          snap.Reason,
		Conflicts:       conflictViews(snap.Report.Conflicts),
		ConflictUnknown: snap.Report.Unknown,
		FieldErrors:     fieldErrorViews(snap.FieldErrors),
	}
	if snap.Committed != nil {
		committed := bookingView(snap.Committed)
		view.Committed = &committed
	}
	return view
}
