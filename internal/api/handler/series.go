package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careroster/careroster/internal/api/middleware"
	"github.com/careroster/careroster/internal/api/models"
	"github.com/careroster/careroster/internal/api/response"
	"github.com/careroster/careroster/internal/recurrence"
	"github.com/careroster/careroster/internal/worker"
)

// SeriesHandler handles recurring booking series endpoints. Preview expands
// a plan without persisting anything; submitting a series hands the expanded
// plan to the materialization worker.
type SeriesHandler struct {
	enqueuer worker.SeriesEnqueuer
	metrics  *middleware.SchedulingMetrics
	logger   zerolog.Logger

	// maxInstances caps expansion size, matching the worker's own cap so a
	// series cannot be accepted here and rejected there.
	maxInstances int
}

// NewSeriesHandler creates a new SeriesHandler.
func NewSeriesHandler(enqueuer worker.SeriesEnqueuer, metrics *middleware.SchedulingMetrics, logger zerolog.Logger) *SeriesHandler {
	return &SeriesHandler{
		enqueuer:     enqueuer,
		metrics:      metrics,
		logger:       logger.With().Str("handler", "series").Logger(),
		maxInstances: worker.DefaultMaterializeConfig().MaxInstances,
	}
}

// NewSeriesID generates a series identifier.
func NewSeriesID() string {
	return "srs_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:22]
}

// Preview handles POST /v1/series/preview - dry-run expansion of a plan.
func (h *SeriesHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var input models.SeriesRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	instances, ok := h.expand(w, r, input)
	if !ok {
		return
	}

	views := make([]models.SeriesInstance, 0, len(instances))
	for _, inst := range instances {
		views = append(views, models.SeriesInstance{
			Date:       models.DateOnly(inst.Date),
			Start:      inst.Start.String(),
			End:        inst.End.String(),
			ServiceRef: inst.ServiceRef,
		})
	}

	response.JSON(w, r, http.StatusOK, models.SeriesPreviewResponse{
		Count:     len(views),
		Instances: views,
	})
}

// Create handles POST /v1/series - validate a plan and enqueue it for
// materialization. The response acknowledges acceptance; individual
// instances appear on the roster as the worker commits them.
func (h *SeriesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input models.SeriesRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	instances, ok := h.expand(w, r, input)
	if !ok {
		return
	}

	seriesID := NewSeriesID()
	if err := h.enqueuer.EnqueueSeries(r.Context(), seriesMessage(seriesID, input)); err != nil {
		h.logger.Error().Err(err).Str("series_id", seriesID).Msg("enqueueing series failed")
		response.ServiceUnavailable(w, r, "the series could not be queued; no bookings were created")
		return
	}

	h.metrics.RecordSeriesExpansion(r.Context(), len(instances))
	h.logger.Info().
		Str("series_id", seriesID).
		Str("staff_id", GetStaffID(r.Context())).
		Int("instances", len(instances)).
		Msg("series accepted")

	response.Accepted(w, r, "", models.SeriesAccepted{
		SeriesID:  seriesID,
		Count:     len(instances),
		Submitted: models.Timestamp(time.Now()),
	})
}

// expand runs the all-or-nothing expansion and writes the problem response
// on failure.
func (h *SeriesHandler) expand(w http.ResponseWriter, r *http.Request, input models.SeriesRequest) ([]recurrence.CreateRequest, bool) {
	if len(input.Windows) == 0 {
		response.BadRequest(w, r, "validation error", []models.FieldError{
			{Field: "windows", Message: "at least one window is required"},
		})
		return nil, false
	}

	plan, err := worker.PlanFromMessage(seriesMessage("", input))
	if err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return nil, false
	}

	instances, err := recurrence.Expand(plan)
	if err != nil {
		switch {
		case errors.Is(err, recurrence.ErrInvalidRange):
			response.BadRequest(w, r, "validation error", []models.FieldError{
				{Field: "until", Message: "must not be before from"},
			})
		case errors.Is(err, recurrence.ErrInvalidWindow):
			response.BadRequest(w, r, "validation error", []models.FieldError{
				{Field: "windows", Message: "window start must be before end"},
			})
		default:
			response.BadRequest(w, r, err.Error(), nil)
		}
		return nil, false
	}

	if len(instances) == 0 {
		response.BadRequest(w, r, "validation error", []models.FieldError{
			{Field: "weekdays", Message: "selection produces no bookings in the date range"},
		})
		return nil, false
	}
	if len(instances) > h.maxInstances {
		response.BadRequest(w, r, "validation error", []models.FieldError{
			{Field: "until", Message: "series expands to too many bookings"},
		})
		return nil, false
	}

	return instances, true
}

// seriesMessage converts an API series request to the worker payload.
func seriesMessage(seriesID string, in models.SeriesRequest) worker.SeriesMessage {
	windows := make([]worker.SeriesWindowMessage, 0, len(in.Windows))
	for _, w := range in.Windows {
		windows = append(windows, worker.SeriesWindowMessage{
			Start:      w.Start,
			End:        w.End,
			ServiceRef: w.ServiceRef,
		})
	}
	return worker.SeriesMessage{
		SeriesID:   seriesID,
		ClientID:   in.ClientID,
		ClientName: in.ClientName,
		CarerID:    in.CarerID,
		Notes:      in.Notes,
		From:       in.From.Time().Format("2006-01-02"),
		Until:      in.Until.Time().Format("2006-01-02"),
		Weekdays:   in.Weekdays,
		Windows:    windows,
	}
}
