package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/careroster/careroster/internal/recurrence"
	"github.com/careroster/careroster/internal/schedule"
)

// Job types carried in the message payload.
const (
	JobTypeSeriesMaterialize = "series_materialize"
	JobTypeRosterAudit       = "roster_audit"
)

// PubSubHandler handles Pub/Sub messages for the worker.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	materializeJob   *MaterializeJob
	auditJob         *AuditJob
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	MaterializeJob   *MaterializeJob
	AuditJob         *AuditJob
	Logger           zerolog.Logger
}

// SeriesWindowMessage is one daily time window of a series message.
type SeriesWindowMessage struct {
	Start      string `json:"start"`
	End        string `json:"end"`
	ServiceRef string `json:"service_ref,omitempty"`
}

// SeriesMessage is the payload for a series materialization job. Dates are
// "2006-01-02", times are "HH:MM", weekdays are 0=Sunday..6=Saturday and an
// empty list means every day in range.
type SeriesMessage struct {
	JobType    string                `json:"job_type"`
	SeriesID   string                `json:"series_id,omitempty"`
	ClientID   string                `json:"client_id,omitempty"`
	ClientName string                `json:"client_name,omitempty"`
	CarerID    string                `json:"carer_id,omitempty"`
	Notes      string                `json:"notes,omitempty"`
	From       string                `json:"from,omitempty"`
	Until      string                `json:"until,omitempty"`
	Weekdays   []int                 `json:"weekdays,omitempty"`
	Windows    []SeriesWindowMessage `json:"windows,omitempty"`
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	// Configure receive settings.
	subscriber.ReceiveSettings.MaxOutstandingMessages = 10
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		materializeJob:   cfg.MaterializeJob,
		auditJob:         cfg.AuditJob,
		logger:           cfg.Logger,
	}, nil
}

// Start begins processing Pub/Sub messages.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		h.handleMessage(ctx, msg)
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

func (h *PubSubHandler) handleMessage(ctx context.Context, msg *pubsub.Message) {
	startTime := time.Now()

	logger := h.logger.With().
		Str("message_id", msg.ID).
		Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
		Logger()

	logger.Debug().Msg("received pubsub message")

	// Parse message.
	var seriesMsg SeriesMessage
	if err := json.Unmarshal(msg.Data, &seriesMsg); err != nil {
		logger.Error().Err(err).Msg("failed to parse message")
		msg.Nack()
		return
	}

	// Handle based on job type.
	var err error
	switch seriesMsg.JobType {
	case JobTypeSeriesMaterialize:
		err = h.handleSeriesMaterialize(ctx, seriesMsg)
	case JobTypeRosterAudit:
		err = h.handleRosterAudit(ctx)
	default:
		logger.Warn().Str("job_type", seriesMsg.JobType).Msg("unknown job type")
		msg.Ack() // Ack unknown messages to prevent redelivery
		return
	}

	if err != nil {
		logger.Error().Err(err).Msg("job failed")
		msg.Nack()
		return
	}

	duration := time.Since(startTime)
	logger.Info().
		Str("job_type", seriesMsg.JobType).
		Dur("duration", duration).
		Msg("job completed successfully")

	msg.Ack()
}

func (h *PubSubHandler) handleSeriesMaterialize(ctx context.Context, msg SeriesMessage) error {
	plan, err := PlanFromMessage(msg)
	if err != nil {
		// An unparseable plan will never succeed on redelivery; treat it as
		// handled after logging so the subscription does not loop.
		h.logger.Error().Err(err).
			Str("series_id", msg.SeriesID).
			Msg("discarding malformed series message")
		return nil
	}

	h.logger.Info().
		Str("series_id", msg.SeriesID).
		Str("carer_id", plan.CarerID).
		Msg("starting series materialization")

	result, err := h.materializeJob.Run(ctx, msg.SeriesID, plan)
	if err != nil {
		return err
	}

	// Conflicted days are expected; only infrastructure-level failures make
	// the run retryable.
	if result.Failed > result.Created {
		return fmt.Errorf("too many instance failures: %d of %d", result.Failed, result.TotalInstances)
	}

	return nil
}

func (h *PubSubHandler) handleRosterAudit(ctx context.Context) error {
	result := h.auditJob.Run(ctx)

	if result.DaysFailed > result.DaysScanned {
		return fmt.Errorf("audit failed on %d of %d days", result.DaysFailed, result.DaysFailed+result.DaysScanned)
	}

	return nil
}

// PlanFromMessage converts a wire-level series message into a recurrence
// plan. Dates are interpreted in UTC, matching how booking dates are stored.
func PlanFromMessage(msg SeriesMessage) (recurrence.Plan, error) {
	from, err := time.ParseInLocation("2006-01-02", msg.From, time.UTC)
	if err != nil {
		return recurrence.Plan{}, fmt.Errorf("parsing from date: %w", err)
	}
	until, err := time.ParseInLocation("2006-01-02", msg.Until, time.UTC)
	if err != nil {
		return recurrence.Plan{}, fmt.Errorf("parsing until date: %w", err)
	}

	weekdays := make([]time.Weekday, 0, len(msg.Weekdays))
	for _, d := range msg.Weekdays {
		if d < 0 || d > 6 {
			return recurrence.Plan{}, fmt.Errorf("invalid weekday %d", d)
		}
		weekdays = append(weekdays, time.Weekday(d))
	}

	windows := make([]recurrence.Window, 0, len(msg.Windows))
	for _, w := range msg.Windows {
		start, err := schedule.ParseTimeOfDay(w.Start)
		if err != nil {
			return recurrence.Plan{}, fmt.Errorf("parsing window start: %w", err)
		}
		end, err := schedule.ParseTimeOfDay(w.End)
		if err != nil {
			return recurrence.Plan{}, fmt.Errorf("parsing window end: %w", err)
		}
		windows = append(windows, recurrence.Window{
			Start:      start,
			End:        end,
			ServiceRef: w.ServiceRef,
		})
	}

	return recurrence.Plan{
		ClientID:   msg.ClientID,
		ClientName: msg.ClientName,
		CarerID:    msg.CarerID,
		Notes:      msg.Notes,
		From:       from,
		Until:      until,
		Weekdays:   weekdays,
		Windows:    windows,
	}, nil
}
