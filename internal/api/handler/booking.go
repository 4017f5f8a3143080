package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/careroster/careroster/internal/api/middleware"
	"github.com/careroster/careroster/internal/api/models"
	"github.com/careroster/careroster/internal/api/response"
	"github.com/careroster/careroster/internal/booking"
	"github.com/careroster/careroster/internal/schedule"
)

// BookingHandler handles booking endpoints.
type BookingHandler struct {
	bookings *booking.Service
	metrics  *middleware.SchedulingMetrics
	logger   zerolog.Logger
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(svc *booking.Service, metrics *middleware.SchedulingMetrics, logger zerolog.Logger) *BookingHandler {
	return &BookingHandler{
		bookings: svc,
		metrics:  metrics,
		logger:   logger.With().Str("handler", "booking").Logger(),
	}
}

// List handles GET /v1/bookings?date=2006-01-02[&carerId=] - the day roster.
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	dateParam := r.URL.Query().Get("date")
	if dateParam == "" {
		response.BadRequest(w, r, "date query parameter is required", nil)
		return
	}
	date, err := time.ParseInLocation("2006-01-02", dateParam, time.UTC)
	if err != nil {
		response.BadRequest(w, r, "date must be YYYY-MM-DD", nil)
		return
	}

	all, err := h.bookings.ListByDate(r.Context(), date)
	if err != nil {
		h.logger.Error().Err(err).Str("date", dateParam).Msg("listing bookings failed")
		response.InternalError(w, r, "could not list bookings")
		return
	}

	carerID := r.URL.Query().Get("carerId")
	items := make([]models.Booking, 0, len(all))
	for _, b := range all {
		if carerID != "" && b.CarerID != carerID {
			continue
		}
		items = append(items, bookingView(b))
	}

	response.JSON(w, r, http.StatusOK, models.PagedBookings{
		Items: items,
		Meta:  models.PagedResponseMeta{Limit: len(items)},
	})
}

// Get handles GET /v1/bookings/{bookingId}.
func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "bookingId")

	b, err := h.bookings.Get(r.Context(), bookingID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, bookingView(b))
}

// Create handles POST /v1/bookings. With ?force=true the conflict scan is
// bypassed; the router restricts that to coordinators.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input models.BookingCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	draft, fieldErrors := draftFromRequest(input)
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "validation error", fieldErrors)
		return
	}

	forced := r.URL.Query().Get("force") == "true"

	var saved *booking.Booking
	var err error
	if forced {
		saved, err = h.bookings.ForceCreate(r.Context(), &draft)
	} else {
		saved, err = h.bookings.Create(r.Context(), &draft)
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.recordCommit(r, forced)
	location := fmt.Sprintf("/v1/bookings/%s", saved.ID)
	response.Created(w, r, location, bookingView(saved))
}

// Update handles PUT /v1/bookings/{bookingId}. With ?force=true the conflict
// scan is bypassed.
func (h *BookingHandler) Update(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "bookingId")

	var input models.BookingUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	existing, err := h.bookings.Get(r.Context(), bookingID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	draft, fieldErrors := draftFromRequest(models.BookingCreateRequest(input))
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "validation error", fieldErrors)
		return
	}
	draft.ID = existing.ID
	draft.CreatedAt = existing.CreatedAt

	forced := r.URL.Query().Get("force") == "true"

	var saved *booking.Booking
	if forced {
		saved, err = h.bookings.ForceUpdate(r.Context(), &draft)
	} else {
		saved, err = h.bookings.Update(r.Context(), &draft)
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.recordCommit(r, forced)
	response.JSON(w, r, http.StatusOK, bookingView(saved))
}

// Delete handles DELETE /v1/bookings/{bookingId}.
func (h *BookingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "bookingId")

	if err := h.bookings.Delete(r.Context(), bookingID); err != nil {
		h.writeError(w, r, err)
		return
	}

	response.NoContent(w, r)
}

// CheckConflict handles POST /v1/bookings/check-conflict - a standalone
// conflict scan for a proposed slot. Nothing is persisted.
func (h *BookingHandler) CheckConflict(w http.ResponseWriter, r *http.Request) {
	var input models.ConflictCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	start, err := schedule.ParseTimeOfDay(input.Start)
	if err != nil {
		response.BadRequest(w, r, "start must be HH:MM", nil)
		return
	}
	end, err := schedule.ParseTimeOfDay(input.End)
	if err != nil {
		response.BadRequest(w, r, "end must be HH:MM", nil)
		return
	}

	proposed := &booking.Booking{
		CarerID: input.CarerID,
		Date:    input.Date.Time(),
		Start:   start,
		End:     end,
		Status:  booking.StatusAssigned,
	}

	report, err := h.bookings.CheckConflict(r.Context(), proposed, input.ExcludeBookingID)
	if err != nil {
		h.metrics.RecordScan(r.Context(), middleware.ScanOutcomeUnknown)
		response.ScanUnavailable(w, r, "the conflict check could not be completed; treat the slot as unavailable")
		return
	}

	outcome := middleware.ScanOutcomeClear
	if report.HasConflict {
		outcome = middleware.ScanOutcomeConflict
	}
	h.metrics.RecordScan(r.Context(), outcome)

	response.JSON(w, r, http.StatusOK, models.ConflictCheckResponse{
		HasConflict: report.HasConflict,
		Conflicts:   conflictViews(report.Conflicts),
	})
}

// ResolveDrag handles POST /v1/bookings/{bookingId}/resolve-drag - compute
// the snapped placement for a drag-and-drop move without persisting it.
func (h *BookingHandler) ResolveDrag(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "bookingId")

	var input models.DragResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	drop, err := schedule.ParseTimeOfDay(input.DropTime)
	if err != nil {
		response.BadRequest(w, r, "dropTime must be HH:MM", nil)
		return
	}

	moved, err := h.bookings.ResolveDrag(r.Context(), bookingID, drop, input.SnapInterval)
	if err != nil {
		var bhErr *schedule.BusinessHoursError
		if errors.As(err, &bhErr) {
			response.BadRequest(w, r, bhErr.Reason, nil)
			return
		}
		h.writeError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.DragResolveResponse{
		BookingID: moved.ID,
		Date:      models.DateOnly(moved.Date),
		Start:     moved.Start.String(),
		End:       moved.End.String(),
		Overnight: moved.End < moved.Start,
	})
}

// AvailableCarers handles GET /v1/carers/available - which of the given
// carers are free for a slot.
func (h *BookingHandler) AvailableCarers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	date, err := time.ParseInLocation("2006-01-02", q.Get("date"), time.UTC)
	if err != nil {
		response.BadRequest(w, r, "date must be YYYY-MM-DD", nil)
		return
	}
	start, err := schedule.ParseTimeOfDay(q.Get("start"))
	if err != nil {
		response.BadRequest(w, r, "start must be HH:MM", nil)
		return
	}
	end, err := schedule.ParseTimeOfDay(q.Get("end"))
	if err != nil {
		response.BadRequest(w, r, "end must be HH:MM", nil)
		return
	}
	carersParam := q.Get("carerIds")
	if carersParam == "" {
		response.BadRequest(w, r, "carerIds query parameter is required", nil)
		return
	}
	carers := strings.Split(carersParam, ",")

	ivl := schedule.Interval{Date: date, Start: start, End: end}
	available, err := h.bookings.AvailableCarers(r.Context(), carers, ivl, q.Get("excludeBookingId"))
	if err != nil {
		response.ScanUnavailable(w, r, "carer availability could not be determined")
		return
	}

	response.JSON(w, r, http.StatusOK, models.AvailableCarersResponse{CarerIDs: available})
}

// recordCommit emits metrics for a successful save.
func (h *BookingHandler) recordCommit(r *http.Request, forced bool) {
	if forced {
		h.metrics.RecordForceCommit(r.Context())
		h.logger.Warn().
			Str("staff_id", GetStaffID(r.Context())).
			Msg("booking saved with conflict check bypassed")
		return
	}
	h.metrics.RecordScan(r.Context(), middleware.ScanOutcomeClear)
}

// writeError maps domain errors to problem responses. Unknown scan results
// and commit races never degrade into a success or a generic 500.
func (h *BookingHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *booking.ValidationError
	if errors.As(err, &vErr) {
		response.BadRequest(w, r, "validation error", fieldErrorViews(vErr.Errors))
		return
	}

	var cErr *booking.ConflictError
	if errors.As(err, &cErr) {
		if cErr.Stale {
			h.metrics.RecordStaleConflict(r.Context())
		}
		if cErr.Report.Unknown && !cErr.Report.HasConflict {
			h.metrics.RecordScan(r.Context(), middleware.ScanOutcomeUnknown)
			response.ScanUnavailable(w, r, "carer availability could not be verified; the booking was not saved")
			return
		}
		h.metrics.RecordScan(r.Context(), middleware.ScanOutcomeConflict)
		detail := "the carer is already booked in this time range"
		if cErr.Stale {
			detail = "another coordinator booked this slot first"
		}
		response.ScheduleConflict(w, r, detail, conflictViews(cErr.Report.Conflicts))
		return
	}

	if errors.Is(err, booking.ErrBookingNotFound) {
		response.NotFound(w, r, "booking not found")
		return
	}

	h.logger.Error().Err(err).Msg("booking operation failed")
	response.InternalError(w, r, "booking operation failed")
}
