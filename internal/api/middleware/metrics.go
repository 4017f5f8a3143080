package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/careroster/careroster/internal/api/middleware"

// Metrics holds the OpenTelemetry metrics instruments.
type Metrics struct {
	requestDuration  metric.Float64Histogram
	requestTotal     metric.Int64Counter
	requestsInFlight metric.Int64UpDownCounter
	responseSize     metric.Int64Histogram
}

// NewMetrics creates a new Metrics instance with initialized instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)

	requestDuration, err := meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("Duration of HTTP server requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	requestTotal, err := meter.Int64Counter(
		"http.server.request.total",
		metric.WithDescription("Total number of HTTP server requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	requestsInFlight, err := meter.Int64UpDownCounter(
		"http.server.requests_in_flight",
		metric.WithDescription("Number of HTTP requests currently being processed"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	responseSize, err := meter.Int64Histogram(
		"http.server.response.size",
		metric.WithDescription("Size of HTTP server responses in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		requestsInFlight: requestsInFlight,
		responseSize:     responseSize,
	}, nil
}

// Middleware returns an HTTP middleware that records metrics for each request.
func (m *Metrics) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Track request in flight
			attrs := []attribute.KeyValue{
				attribute.String("http.method", r.Method),
				attribute.String("http.route", r.URL.Path),
			}
			m.requestsInFlight.Add(r.Context(), 1, metric.WithAttributes(attrs...))
			defer m.requestsInFlight.Add(r.Context(), -1, metric.WithAttributes(attrs...))

			// Wrap response writer
			wrapped := newMetricsResponseWriter(w)

			// Process request
			next.ServeHTTP(wrapped, r)

			// Calculate duration
			duration := time.Since(start).Seconds()

			// Build attributes with status code
			attrs = append(attrs, attribute.String("http.status_code", strconv.Itoa(wrapped.statusCode)))

			// Add error attribute for 4xx/5xx responses
			if wrapped.statusCode >= 400 {
				attrs = append(attrs, attribute.Bool("error", true))
			}

			// Record metrics
			m.requestDuration.Record(r.Context(), duration, metric.WithAttributes(attrs...))
			m.requestTotal.Add(r.Context(), 1, metric.WithAttributes(attrs...))
			m.responseSize.Record(r.Context(), wrapped.written, metric.WithAttributes(attrs...))
		})
	}
}

// metricsResponseWriter wraps http.ResponseWriter to capture response metadata.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *metricsResponseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// SchedulingMetrics holds metrics for the conflict engine: scan outcomes,
// force commits, and commit races. These are the numbers the on-call
// dashboard watches when coordinators report blocked saves.
type SchedulingMetrics struct {
	scanTotal      metric.Int64Counter
	forceCommits   metric.Int64Counter
	staleConflicts metric.Int64Counter
	seriesExpanded metric.Int64Counter
}

// NewSchedulingMetrics creates metrics for monitoring scheduling operations.
func NewSchedulingMetrics() (*SchedulingMetrics, error) {
	meter := otel.Meter(meterName)

	scanTotal, err := meter.Int64Counter(
		"scheduling.scan.total",
		metric.WithDescription("Total number of conflict scans by outcome"),
		metric.WithUnit("{scan}"),
	)
	if err != nil {
		return nil, err
	}

	forceCommits, err := meter.Int64Counter(
		"scheduling.force_commit.total",
		metric.WithDescription("Total number of commits forced past a conflict"),
		metric.WithUnit("{commit}"),
	)
	if err != nil {
		return nil, err
	}

	staleConflicts, err := meter.Int64Counter(
		"scheduling.stale_conflict.total",
		metric.WithDescription("Total number of commits rejected by a concurrent writer"),
		metric.WithUnit("{commit}"),
	)
	if err != nil {
		return nil, err
	}

	seriesExpanded, err := meter.Int64Counter(
		"scheduling.series.instances.total",
		metric.WithDescription("Total number of booking instances produced by series expansion"),
		metric.WithUnit("{booking}"),
	)
	if err != nil {
		return nil, err
	}

	return &SchedulingMetrics{
		scanTotal:      scanTotal,
		forceCommits:   forceCommits,
		staleConflicts: staleConflicts,
		seriesExpanded: seriesExpanded,
	}, nil
}

// Scan outcome labels.
const (
	ScanOutcomeClear    = "clear"
	ScanOutcomeConflict = "conflict"
	ScanOutcomeUnknown  = "unknown"
)

// RecordScan records one conflict scan with its outcome. A nil receiver is
// a no-op so callers never have to guard.
func (m *SchedulingMetrics) RecordScan(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.scanTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("scan.outcome", outcome),
	))
}

// RecordForceCommit records a commit forced past a conflict.
func (m *SchedulingMetrics) RecordForceCommit(ctx context.Context) {
	if m == nil {
		return
	}
	m.forceCommits.Add(ctx, 1)
}

// RecordStaleConflict records a commit that lost a race to a concurrent
// writer.
func (m *SchedulingMetrics) RecordStaleConflict(ctx context.Context) {
	if m == nil {
		return
	}
	m.staleConflicts.Add(ctx, 1)
}

// RecordSeriesExpansion records the number of instances a series expansion
// produced.
func (m *SchedulingMetrics) RecordSeriesExpansion(ctx context.Context, instances int) {
	if m == nil {
		return
	}
	m.seriesExpanded.Add(ctx, int64(instances))
}
