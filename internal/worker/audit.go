package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/careroster/careroster/internal/booking"
)

// AuditJob scans upcoming roster days for overlaps left behind by forced
// commits. Force-committed bookings bypass both the interactive scan and the
// store's overlap constraint, so this is the only place they are surfaced
// after the fact for a coordinator to resolve.
type AuditJob struct {
	config   AuditConfig
	logger   zerolog.Logger
	bookings *booking.Service

	// now is swappable for tests.
	now func() time.Time
}

// AuditJobConfig holds configuration for creating an AuditJob.
type AuditJobConfig struct {
	Config         AuditConfig
	Logger         zerolog.Logger
	BookingService *booking.Service
}

// NewAuditJob creates a new roster audit processor.
func NewAuditJob(cfg AuditJobConfig) *AuditJob {
	config := cfg.Config
	if config.WindowDays <= 0 {
		config = DefaultAuditConfig()
	}

	return &AuditJob{
		config:   config,
		logger:   cfg.Logger,
		bookings: cfg.BookingService,
		now:      time.Now,
	}
}

// AuditFinding is one unresolved overlap involving a force-committed booking.
type AuditFinding struct {
	Date       string
	CarerID    string
	BookingID  string
	ClientName string
	Window     string
	Overlaps   []string
}

// AuditResult contains the result of one audit run.
type AuditResult struct {
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
	DaysScanned int
	DaysFailed  int
	Findings    []AuditFinding
}

// Run audits the configured window of days starting from today.
func (j *AuditJob) Run(ctx context.Context) *AuditResult {
	startTime := j.now()
	result := &AuditResult{StartTime: startTime}

	now := startTime.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	days := make([]time.Time, 0, j.config.WindowDays)
	for i := 0; i < j.config.WindowDays; i++ {
		days = append(days, today.AddDate(0, 0, i))
	}

	j.logger.Info().
		Int("window_days", len(days)).
		Int("concurrency", j.config.Concurrency).
		Msg("starting roster audit")

	// Create work channels
	daysChan := make(chan time.Time, len(days))
	resultsChan := make(chan dayResult, len(days))

	// Start workers
	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.auditWorker(ctx, daysChan, resultsChan)
		}()
	}

	// Send days to workers
	for _, day := range days {
		daysChan <- day
	}
	close(daysChan)

	// Wait for workers to complete
	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	// Collect results
	for dr := range resultsChan {
		if dr.err != nil {
			result.DaysFailed++
			continue
		}
		result.DaysScanned++
		result.Findings = append(result.Findings, dr.findings...)
	}

	result.EndTime = j.now()
	result.Duration = result.EndTime.Sub(startTime)

	for _, f := range result.Findings {
		j.logger.Warn().
			Str("date", f.Date).
			Str("carer_id", f.CarerID).
			Str("booking_id", f.BookingID).
			Str("window", f.Window).
			Strs("overlapping_booking_ids", f.Overlaps).
			Msg("force-committed booking still overlaps")
	}

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("days_scanned", result.DaysScanned).
		Int("days_failed", result.DaysFailed).
		Int("findings", len(result.Findings)).
		Msg("roster audit completed")

	return result
}

type dayResult struct {
	day      time.Time
	findings []AuditFinding
	err      error
}

func (j *AuditJob) auditWorker(ctx context.Context, days <-chan time.Time, results chan<- dayResult) {
	for day := range days {
		select {
		case <-ctx.Done():
			return
		default:
			results <- j.auditDay(ctx, day)
		}
	}
}

// auditDay re-scans every force-committed booking on one day against the rest
// of that day's roster. Only current overlaps are reported; an override whose
// rival has since been moved or cancelled is considered resolved.
func (j *AuditJob) auditDay(ctx context.Context, day time.Time) dayResult {
	dayCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	all, err := j.bookings.ListByDate(dayCtx, day)
	if err != nil {
		j.logger.Error().Err(err).
			Str("date", day.Format("2006-01-02")).
			Msg("audit day query failed")
		return dayResult{day: day, err: err}
	}

	var findings []AuditFinding
	for _, b := range all {
		if !b.ForceCommitted || b.Status == booking.StatusCancelled {
			continue
		}
		report := booking.Scan(b, all, b.ID)
		if !report.HasConflict {
			continue
		}
		overlaps := make([]string, 0, len(report.Conflicts))
		for _, c := range report.Conflicts {
			overlaps = append(overlaps, c.BookingID)
		}
		findings = append(findings, AuditFinding{
			Date:       day.Format("2006-01-02"),
			CarerID:    b.CarerID,
			BookingID:  b.ID,
			ClientName: b.ClientName,
			Window:     fmt.Sprintf("%s-%s", b.Start, b.End),
			Overlaps:   overlaps,
		})
	}

	return dayResult{day: day, findings: findings}
}
