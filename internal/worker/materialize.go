package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/careroster/careroster/internal/booking"
	"github.com/careroster/careroster/internal/recurrence"
)

// ErrTooManyInstances indicates a series expands beyond the configured cap.
var ErrTooManyInstances = errors.New("series expands to too many instances")

// MaterializeJob turns an expanded booking series into persisted bookings.
// The first instance of a series is validated interactively before the series
// is ever submitted, so the remainder are committed optimistically here and
// any conflicts are counted and logged rather than aborting the run.
type MaterializeJob struct {
	config   MaterializeConfig
	logger   zerolog.Logger
	bookings *booking.Service

	// Metrics
	metrics *MaterializeMetrics
}

// MaterializeMetrics tracks materialization job statistics.
type MaterializeMetrics struct {
	mu sync.RWMutex

	// Counters
	TotalRuns           int64
	RejectedSeries      int64
	InstancesCreated    int64
	InstancesConflicted int64
	InstancesFailed     int64

	// Timings
	LastRunAt       time.Time
	LastRunDuration time.Duration
	TotalDuration   time.Duration
}

// MaterializeJobConfig holds configuration for creating a MaterializeJob.
type MaterializeJobConfig struct {
	Config         MaterializeConfig
	Logger         zerolog.Logger
	BookingService *booking.Service
}

// NewMaterializeJob creates a new materialization job processor.
func NewMaterializeJob(cfg MaterializeJobConfig) *MaterializeJob {
	config := cfg.Config
	if config.Concurrency <= 0 {
		config = DefaultMaterializeConfig()
	}

	return &MaterializeJob{
		config:   config,
		logger:   cfg.Logger,
		bookings: cfg.BookingService,
		metrics:  &MaterializeMetrics{},
	}
}

// MaterializeResult contains the result of materializing one series.
type MaterializeResult struct {
	SeriesID       string
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
	TotalInstances int
	Created        int
	Conflicted     int
	Failed         int
	Errors         []InstanceError
}

// InstanceError records why one instance of a series could not be committed.
type InstanceError struct {
	Date     string
	Window   string
	Conflict bool
	Error    string
}

// Run expands a series plan and commits the resulting bookings. Returns an
// error only when the plan itself is unusable; per-instance failures are
// reported in the result.
func (j *MaterializeJob) Run(ctx context.Context, seriesID string, plan recurrence.Plan) (*MaterializeResult, error) {
	startTime := time.Now()

	instances, err := recurrence.Expand(plan)
	if err != nil {
		j.recordRejected()
		return nil, fmt.Errorf("expanding series %s: %w", seriesID, err)
	}
	if len(instances) > j.config.MaxInstances {
		j.recordRejected()
		return nil, fmt.Errorf("series %s: %w: %d > %d",
			seriesID, ErrTooManyInstances, len(instances), j.config.MaxInstances)
	}

	result := &MaterializeResult{
		SeriesID:       seriesID,
		StartTime:      startTime,
		TotalInstances: len(instances),
	}

	j.logger.Info().
		Str("series_id", seriesID).
		Str("carer_id", plan.CarerID).
		Int("total_instances", result.TotalInstances).
		Int("concurrency", j.config.Concurrency).
		Msg("starting series materialization")

	// Create work channels
	instancesChan := make(chan recurrence.CreateRequest, len(instances))
	resultsChan := make(chan instanceResult, len(instances))

	// Start workers
	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.commitWorker(ctx, instancesChan, resultsChan)
		}()
	}

	// Send instances to workers
	for _, inst := range instances {
		instancesChan <- inst
	}
	close(instancesChan)

	// Wait for workers to complete
	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	// Collect results
	for ir := range resultsChan {
		switch {
		case ir.err == nil:
			result.Created++
		case ir.conflict:
			result.Conflicted++
			result.Errors = append(result.Errors, ir.instanceError())
		default:
			result.Failed++
			result.Errors = append(result.Errors, ir.instanceError())
		}
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	j.updateMetrics(result)

	j.logger.Info().
		Str("series_id", seriesID).
		Dur("duration", result.Duration).
		Int("created", result.Created).
		Int("conflicted", result.Conflicted).
		Int("failed", result.Failed).
		Msg("series materialization completed")

	return result, nil
}

type instanceResult struct {
	instance recurrence.CreateRequest
	conflict bool
	err      error
}

func (ir instanceResult) instanceError() InstanceError {
	return InstanceError{
		Date:     ir.instance.Date.Format("2006-01-02"),
		Window:   fmt.Sprintf("%s-%s", ir.instance.Start, ir.instance.End),
		Conflict: ir.conflict,
		Error:    ir.err.Error(),
	}
}

func (j *MaterializeJob) commitWorker(ctx context.Context, instances <-chan recurrence.CreateRequest, results chan<- instanceResult) {
	for inst := range instances {
		select {
		case <-ctx.Done():
			return
		default:
			results <- j.commitInstance(ctx, inst)
		}
	}
}

// commitInstance persists one instance through the conflict-checked create
// path. A conflict on an individual day is expected (the client may already
// have one-off bookings in the range) and is classified, not retried.
func (j *MaterializeJob) commitInstance(ctx context.Context, inst recurrence.CreateRequest) instanceResult {
	instCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	b := &booking.Booking{
		ClientID:   inst.ClientID,
		ClientName: inst.ClientName,
		CarerID:    inst.CarerID,
		Notes:      inst.Notes,
		ServiceRef: inst.ServiceRef,
		Date:       inst.Date,
		Start:      inst.Start,
		End:        inst.End,
	}

	_, err := j.bookings.Create(instCtx, b)
	if err == nil {
		return instanceResult{instance: inst}
	}

	var conflictErr *booking.ConflictError
	if errors.As(err, &conflictErr) {
		j.logger.Warn().
			Str("carer_id", inst.CarerID).
			Str("date", inst.Date.Format("2006-01-02")).
			Str("window", fmt.Sprintf("%s-%s", inst.Start, inst.End)).
			Bool("unknown", conflictErr.Report.Unknown).
			Msg("series instance conflicts with existing booking, skipped")
		return instanceResult{instance: inst, conflict: true, err: err}
	}

	j.logger.Error().Err(err).
		Str("carer_id", inst.CarerID).
		Str("date", inst.Date.Format("2006-01-02")).
		Msg("series instance commit failed")
	return instanceResult{instance: inst, err: err}
}

func (j *MaterializeJob) recordRejected() {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()
	j.metrics.TotalRuns++
	j.metrics.RejectedSeries++
}

func (j *MaterializeJob) updateMetrics(result *MaterializeResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRuns++
	j.metrics.InstancesCreated += int64(result.Created)
	j.metrics.InstancesConflicted += int64(result.Conflicted)
	j.metrics.InstancesFailed += int64(result.Failed)
	j.metrics.LastRunAt = result.EndTime
	j.metrics.LastRunDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *MaterializeJob) GetMetrics() MaterializeMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return MaterializeMetrics{
		TotalRuns:           j.metrics.TotalRuns,
		RejectedSeries:      j.metrics.RejectedSeries,
		InstancesCreated:    j.metrics.InstancesCreated,
		InstancesConflicted: j.metrics.InstancesConflicted,
		InstancesFailed:     j.metrics.InstancesFailed,
		LastRunAt:           j.metrics.LastRunAt,
		LastRunDuration:     j.metrics.LastRunDuration,
		TotalDuration:       j.metrics.TotalDuration,
	}
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *MaterializeJob) MetricsSnapshot() map[string]interface{} {
	m := j.GetMetrics()
	return map[string]interface{}{
		"total_runs":           m.TotalRuns,
		"rejected_series":      m.RejectedSeries,
		"instances_created":    m.InstancesCreated,
		"instances_conflicted": m.InstancesConflicted,
		"instances_failed":     m.InstancesFailed,
		"last_run_at":          m.LastRunAt,
		"last_run_duration":    m.LastRunDuration.String(),
		"total_duration":       m.TotalDuration.String(),
	}
}
