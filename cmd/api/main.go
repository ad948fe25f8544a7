// Package main provides the entrypoint for the sendroom API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/sendroom/sendroom/internal/api"
	"github.com/sendroom/sendroom/internal/api/middleware"
	"github.com/sendroom/sendroom/internal/archive"
	"github.com/sendroom/sendroom/internal/auth"
	"github.com/sendroom/sendroom/internal/database"
	"github.com/sendroom/sendroom/internal/dataroom"
	"github.com/sendroom/sendroom/internal/export"
	"github.com/sendroom/sendroom/internal/job"
	"github.com/sendroom/sendroom/internal/notify"
	"github.com/sendroom/sendroom/internal/telemetry"
	"github.com/sendroom/sendroom/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "sendroom-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting sendroom API")

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

	appBaseURL := os.Getenv("APP_BASE_URL")
	if appBaseURL == "" {
		appBaseURL = "https://app.sendroom.io"
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
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
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

	// Initialize session validation (signing key shared with the app)
	sessionSigningKey := os.Getenv("SESSION_SIGNING_KEY")
	if sessionSigningKey == "" {
		sessionSigningKey = "local-dev-signing-key-change-in-production"
		log.Warn().Msg("using default session signing key - not secure for production")
	}

	sessions := auth.NewSessionService(auth.SessionConfig{
		SigningKey: sessionSigningKey,
		Issuer:     os.Getenv("SESSION_ISSUER"),
		Audience:   os.Getenv("SESSION_AUDIENCE"),
	})
	log.Info().Msg("session service initialized")

	// Initialize repositories
	rooms := dataroom.NewPostgresRepository(pool)
	jobs := job.NewPostgresRepository(pool)

	// Dispatcher: Pub/Sub when configured, in-process otherwise
	var dispatcher export.Dispatcher
	var localDispatcher *worker.LocalDispatcher

	if projectID := os.Getenv("PUBSUB_PROJECT_ID"); projectID != "" {
		topicName := os.Getenv("PUBSUB_EXPORT_TOPIC")
		if topicName == "" {
			topicName = "export-jobs"
		}

		publisher, pubErr := worker.NewPublisher(ctx, worker.PublisherConfig{
			ProjectID: projectID,
			TopicName: topicName,
			Logger:    log,
		})
		if pubErr != nil {
			log.Fatal().Err(pubErr).Msg("failed to create pubsub publisher")
		}
		defer func() {
			if closeErr := publisher.Close(); closeErr != nil {
				log.Error().Err(closeErr).Msg("failed to close pubsub publisher")
			}
		}()

		dispatcher = publisher
		log.Info().Str("topic", topicName).Msg("pubsub dispatcher initialized")
	} else {
		// Single-binary mode: run the orchestrator in this process.
		archiveClient := archive.NewHTTPClient(archive.ClientConfig{
			Endpoint: os.Getenv("ARCHIVE_WORKER_URL"),
			APIKey:   os.Getenv("ARCHIVE_WORKER_API_KEY"),
		})

		var mailer notify.Mailer = notify.NoopMailer{}
		if mailEndpoint := os.Getenv("MAIL_API_URL"); mailEndpoint != "" {
			mailer = notify.NewHTTPMailer(notify.HTTPMailerConfig{
				Endpoint: mailEndpoint,
				APIKey:   os.Getenv("MAIL_API_KEY"),
				From:     os.Getenv("MAIL_FROM"),
			})
		}

		orchestrator := export.NewOrchestrator(export.OrchestratorConfig{
			Rooms:        rooms,
			Jobs:         jobs,
			Archive:      archiveClient,
			Mailer:       mailer,
			Logger:       log,
			SourceBucket: os.Getenv("SOURCE_BUCKET"),
			AppBaseURL:   appBaseURL,
		})

		localDispatcher = worker.NewLocalDispatcher(orchestrator, log)
		dispatcher = localDispatcher
		log.Warn().Msg("no pubsub project configured - running exports in-process")
	}

	// Initialize export service
	exportService := export.NewService(rooms, jobs, dispatcher, log)
	log.Info().Msg("export service initialized")

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:       Version,
		BuildTime:     BuildTime,
		Logger:        log,
		ServiceName:   serviceName,
		Metrics:       metrics,
		Sessions:      sessions,
		ExportService: exportService,
		Rooms:         rooms,
		DB:            pool,
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
		os.Exit(1)
	}

	// Let in-process exports finish before the pool closes.
	if localDispatcher != nil {
		localDispatcher.Wait()
	}

	log.Info().Msg("server stopped")
}
