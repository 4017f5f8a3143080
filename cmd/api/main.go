// Package main provides the entrypoint for the careroster API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/careroster/careroster/internal/api"
	"github.com/careroster/careroster/internal/api/middleware"
	"github.com/careroster/careroster/internal/auth"
	"github.com/careroster/careroster/internal/booking"
	"github.com/careroster/careroster/internal/database"
	"github.com/careroster/careroster/internal/session"
	"github.com/careroster/careroster/internal/telemetry"
	"github.com/careroster/careroster/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// sessionMaxAge is how long an untouched edit session survives before the
// pruner drops it.
const sessionMaxAge = 30 * time.Minute

func main() {
	const serviceName = "careroster-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting careroster API")

	// Get configuration from environment
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	otlpEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	// Initialize OpenTelemetry
	ctx := context.Background()
	telemetryEnabled := os.Getenv("OTEL_ENABLED") == "true"

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    env,
		OTLPEndpoint:   otlpEndpoint,
		Enabled:        telemetryEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if telemetryEnabled {
		log.Info().
			Str("otlp_endpoint", otlpEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		return
	}
	schedulingMetrics, err := middleware.NewSchedulingMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize scheduling metrics")
		return
	}

	// Connect to database
	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	log.Info().
		Str("host", dbConfig.Host).
		Int("port", dbConfig.Port).
		Str("database", dbConfig.Database).
		Msg("database connected")

	// Initialize JWT service (get signing key from environment)
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		jwtSigningKey = "local-dev-signing-key-change-in-production"
		log.Warn().Msg("using default JWT signing key - not secure for production")
	}

	jwtService := auth.NewJWTService(auth.JWTConfig{
		SigningKey: jwtSigningKey,
		Issuer:     "https://api.careroster.example",
		Audience:   "careroster-api",
	})

	provisioningSecret := os.Getenv("PROVISIONING_SECRET")
	if provisioningSecret == "" {
		provisioningSecret = "local-dev-provisioning-secret"
		log.Warn().Msg("using default provisioning secret - not secure for production")
	}

	// Initialize booking service backed by Postgres
	bookingService := booking.NewService(booking.ServiceConfig{
		Repository: booking.NewPostgresRepository(pool),
		Logger:     log,
	})
	log.Info().Msg("booking service initialized")

	// Initialize the edit session manager and its pruner
	sessionManager := session.NewManager(session.ManagerConfig{
		Service: bookingService,
		Logger:  log,
	})

	pruneCtx, stopPruning := context.WithCancel(ctx)
	defer stopPruning()
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-pruneCtx.Done():
				return
			case <-ticker.C:
				if pruned := sessionManager.Prune(sessionMaxAge); pruned > 0 {
					log.Info().Int("pruned", pruned).Msg("stale edit sessions pruned")
				}
			}
		}
	}()

	// Initialize the series publisher
	projectID := os.Getenv("PUBSUB_PROJECT_ID")
	topicName := os.Getenv("PUBSUB_TOPIC")
	if topicName == "" {
		topicName = "careroster-jobs"
	}

	publisher, err := worker.NewPublisher(ctx, worker.PublisherConfig{
		ProjectID: projectID,
		TopicName: topicName,
		Logger:    log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create series publisher")
	}
	defer publisher.Close() //nolint:errcheck // best effort cleanup
	log.Info().Str("topic", topicName).Msg("series publisher initialized")

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:            Version,
		BuildTime:          BuildTime,
		Logger:             log,
		ServiceName:        serviceName,
		Metrics:            metrics,
		SchedulingMetrics:  schedulingMetrics,
		JWTService:         jwtService,
		ProvisioningSecret: provisioningSecret,
		BookingService:     bookingService,
		SessionManager:     sessionManager,
		SeriesEnqueuer:     publisher,
		DB:                 pool,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		return
	}

	log.Info().Msg("server stopped")
}
