// Package api provides the HTTP API for sendroom.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/sendroom/sendroom/internal/api/handler"
	"github.com/sendroom/sendroom/internal/api/middleware"
	"github.com/sendroom/sendroom/internal/auth"
	"github.com/sendroom/sendroom/internal/dataroom"
	"github.com/sendroom/sendroom/internal/export"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version       string
	BuildTime     string
	Logger        zerolog.Logger
	ServiceName   string
	Metrics       *middleware.Metrics
	Sessions      *auth.SessionService
	ExportService *export.Service
	Rooms         dataroom.Repository
	DB            handler.Pinger
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Set default service name if not provided
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "sendroom-api"
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
	exportHandler := handler.NewExportHandler(cfg.ExportService, cfg.Rooms, cfg.Logger)

	// Create auth middleware
	authMiddleware := middleware.Auth(cfg.Sessions)

	// Create rate limit middleware for different endpoint categories.
	// Export routes sit behind auth, so the limiter keys by the session's link.
	expensiveRateLimit := middleware.RateLimitBySession(middleware.ExpensiveRateLimit) // 30 req/min
	standardRateLimit := middleware.RateLimitBySession(middleware.StandardRateLimit)   // 100 req/min

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			// Status endpoint requires authentication
			r.With(authMiddleware).Get("/status", opsHandler.SystemStatus)
		})

		// Export endpoints (authenticated viewer session)
		r.Route("/datarooms/{dataroomID}/exports", func(r chi.Router) {
			r.Use(authMiddleware)
			// Starting an export fans out archive work; keep it strict.
			r.With(expensiveRateLimit).Post("/", exportHandler.StartExport)
			// Polling is cheap and frequent.
			r.With(standardRateLimit).Get("/", exportHandler.ListExports)
		})
	})

	return r
}
