// Package main provides the entrypoint for the sendroom export worker.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/sendroom/sendroom/internal/archive"
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
	const serviceName = "sendroom-worker"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting sendroom export worker")

	// Get configuration from environment
	// Worker also exposes a health endpoint for Cloud Run.
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	projectID := os.Getenv("PUBSUB_PROJECT_ID")
	if projectID == "" {
		log.Fatal().Msg("PUBSUB_PROJECT_ID is required")
	}

	subscription := os.Getenv("PUBSUB_EXPORT_SUBSCRIPTION")
	if subscription == "" {
		subscription = "export-jobs-worker"
	}

	appBaseURL := os.Getenv("APP_BASE_URL")
	if appBaseURL == "" {
		appBaseURL = "https://app.sendroom.io"
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	// Initialize OpenTelemetry
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryEnabled := os.Getenv("OTEL_ENABLED") == "true"
	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    env,
		OTLPEndpoint:   os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		Enabled:        telemetryEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	// Connect to database
	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	log.Info().
		Str("host", dbConfig.Host).
		Str("database", dbConfig.Database).
		Msg("database connected")

	// Archive worker client
	archiveClient := archive.NewHTTPClient(archive.ClientConfig{
		Endpoint: os.Getenv("ARCHIVE_WORKER_URL"),
		APIKey:   os.Getenv("ARCHIVE_WORKER_API_KEY"),
	})

	// Mailer for completion notifications
	var mailer notify.Mailer = notify.NoopMailer{}
	if mailEndpoint := os.Getenv("MAIL_API_URL"); mailEndpoint != "" {
		mailer = notify.NewHTTPMailer(notify.HTTPMailerConfig{
			Endpoint: mailEndpoint,
			APIKey:   os.Getenv("MAIL_API_KEY"),
			From:     os.Getenv("MAIL_FROM"),
		})
		log.Info().Msg("mail provider initialized")
	} else {
		log.Warn().Msg("no mail provider configured - export notifications disabled")
	}

	orchestrator := export.NewOrchestrator(export.OrchestratorConfig{
		Rooms:        dataroom.NewPostgresRepository(pool),
		Jobs:         job.NewPostgresRepository(pool),
		Archive:      archiveClient,
		Mailer:       mailer,
		Logger:       log,
		SourceBucket: os.Getenv("SOURCE_BUCKET"),
		AppBaseURL:   appBaseURL,
	})

	handler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
		ProjectID:        projectID,
		SubscriptionName: subscription,
		Runner:           orchestrator,
		Logger:           log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create pubsub handler")
	}
	defer func() {
		if closeErr := handler.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("failed to close pubsub handler")
		}
	}()

	// Create HTTP server for health checks
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy","version":"%s"}`, Version)
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	// Start health check server
	go func() {
		log.Info().Str("addr", server.Addr).Msg("health check server listening")
		if serveErr := server.ListenAndServe(); serveErr != nil && serveErr != http.ErrServerClosed {
			log.Fatal().Err(serveErr).Msg("health server error")
		}
	}()

	// Start receiving export messages
	receiveErr := make(chan error, 1)
	go func() {
		receiveErr <- handler.Start(ctx)
	}()

	// Wait for interrupt signal or receive failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info().Msg("shutting down worker")
	case err := <-receiveErr:
		if err != nil {
			log.Error().Err(err).Msg("pubsub receive stopped")
		}
	}

	// Stop receiving; in-flight handlers finish before Receive returns.
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}
