// Package api provides the HTTP API for careroster.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/careroster/careroster/internal/api/handler"
	"github.com/careroster/careroster/internal/api/middleware"
	"github.com/careroster/careroster/internal/auth"
	"github.com/careroster/careroster/internal/booking"
	"github.com/careroster/careroster/internal/session"
	"github.com/careroster/careroster/internal/worker"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string

	Metrics           *middleware.Metrics
	SchedulingMetrics *middleware.SchedulingMetrics

	JWTService *auth.JWTService

	// ProvisioningSecret gates the token endpoint.
	ProvisioningSecret string

	BookingService *booking.Service
	SessionManager *session.Manager
	SeriesEnqueuer worker.SeriesEnqueuer

	// DB is the readiness pinger; nil when running on the in-memory store.
	DB handler.Pinger
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Set default service name if not provided
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "careroster-api"
	}

	// A nil SchedulingMetrics is a no-op recorder, so construction failure
	// only loses the counters, never the service.
	schedulingMetrics := cfg.SchedulingMetrics
	if schedulingMetrics == nil {
		schedulingMetrics, _ = middleware.NewSchedulingMetrics()
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.SecurityHeaders)      // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS)           // TLS enforcement (enabled via REQUIRE_TLS=true)
	r.Use(middleware.ContentTypeJSON)      // JSON content type

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.DB)
	authHandler := handler.NewAuthHandler(cfg.JWTService, cfg.ProvisioningSecret, cfg.Logger)
	bookingHandler := handler.NewBookingHandler(cfg.BookingService, schedulingMetrics, cfg.Logger)
	sessionHandler := handler.NewSessionHandler(cfg.SessionManager, schedulingMetrics, cfg.Logger)
	seriesHandler := handler.NewSeriesHandler(cfg.SeriesEnqueuer, schedulingMetrics, cfg.Logger)

	// Create auth middleware
	authMiddleware := middleware.Auth(cfg.JWTService)
	coordinatorOnly := middleware.RequireRole(auth.RoleCoordinator)

	// Create rate limit middleware for different endpoint categories
	authRateLimit := middleware.RateLimitByIP(middleware.AuthRateLimit)         // 10 req/min
	scanRateLimit := middleware.RateLimitByStaff(middleware.ScanRateLimit)      // 30 req/min
	standardRateLimit := middleware.RateLimitByStaff(middleware.StandardRateLimit) // 100 req/min

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Auth endpoints (public) - strict rate limiting
		r.Route("/auth", func(r chi.Router) {
			r.Use(authRateLimit) // 10 requests per minute per IP
			r.Post("/token", authHandler.Token)
		})

		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			// Status endpoint requires authentication
			r.With(authMiddleware).Get("/status", opsHandler.SystemStatus)
		})

		// Booking endpoints (authenticated)
		r.Route("/bookings", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(standardRateLimit)

			r.Get("/", bookingHandler.List)
			r.With(coordinatorOnly).Post("/", bookingHandler.Create)

			// Conflict scans hit the store harder than reads
			r.With(scanRateLimit).Post("/check-conflict", bookingHandler.CheckConflict)

			r.Route("/{bookingId}", func(r chi.Router) {
				r.Get("/", bookingHandler.Get)
				r.With(coordinatorOnly).Put("/", bookingHandler.Update)
				r.With(coordinatorOnly).Delete("/", bookingHandler.Delete)
				r.Post("/resolve-drag", bookingHandler.ResolveDrag)
			})
		})

		// Carer availability (authenticated)
		r.With(authMiddleware, scanRateLimit).Get("/carers/available", bookingHandler.AvailableCarers)

		// Recurring series (coordinator only)
		r.Route("/series", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(coordinatorOnly)
			r.Use(scanRateLimit)

			r.Post("/", seriesHandler.Create)
			r.Post("/preview", seriesHandler.Preview)
		})

		// Edit sessions (coordinator only) - the validated save path
		r.Route("/sessions", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(coordinatorOnly)
			r.Use(standardRateLimit)

			r.Post("/", sessionHandler.Open)
			r.Route("/{sessionId}", func(r chi.Router) {
				r.Get("/", sessionHandler.Get)
				r.Patch("/", sessionHandler.FieldChange)
				r.Delete("/", sessionHandler.Cancel)
				r.With(scanRateLimit).Post("/submit", sessionHandler.Submit)
				r.Post("/force-commit", sessionHandler.ForceCommit)
			})
		})
	})

	return r
}
