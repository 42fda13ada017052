// Package api provides the HTTP API for CoolRoute.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/coolroute/coolroute/internal/api/handler"
	"github.com/coolroute/coolroute/internal/api/middleware"
	"github.com/coolroute/coolroute/internal/auth"
	"github.com/coolroute/coolroute/internal/matching"
	"github.com/coolroute/coolroute/internal/nearby"
	"github.com/coolroute/coolroute/internal/optimize"
	"github.com/coolroute/coolroute/internal/place"
	"github.com/coolroute/coolroute/internal/routing"
	"github.com/coolroute/coolroute/internal/segment"
	"github.com/coolroute/coolroute/internal/upstream"
	"github.com/coolroute/coolroute/internal/weather"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics

	JWTService *auth.JWTService

	Routes   *routing.Service
	Weather  *weather.Snapshot
	Segments *segment.Store
	Matcher  *matching.Matcher
	Places   place.Index
	Finder   *optimize.Finder
	Nearby   *nearby.Search

	SourceHealth   *upstream.HealthTracker
	RefreshMetrics handler.RefreshMetricsSource
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Set default service name if not provided
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "coolroute-api"
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
	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Weather, cfg.SourceHealth, cfg.RefreshMetrics)
	routeHandler := handler.NewRouteHandler(cfg.Routes, cfg.Weather, cfg.Segments, cfg.Matcher, cfg.Logger)
	optimalTimeHandler := handler.NewOptimalTimeHandler(cfg.Finder, cfg.Places, cfg.Logger)
	nearbyHandler := handler.NewNearbyHandler(cfg.Nearby, cfg.Logger)

	// Create auth middleware
	authMiddleware := middleware.Auth(cfg.JWTService)

	// Create rate limit middleware for different endpoint categories
	expensiveRateLimit := middleware.RateLimitByClient(middleware.ExpensiveRateLimit) // 30 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)       // 100 req/min

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			// Status endpoint requires authentication
			r.With(authMiddleware).With(standardRateLimit).Get("/status", opsHandler.SystemStatus)
		})

		// Compute endpoints (authenticated) - per-client rate limiting
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(expensiveRateLimit)
			r.Post("/routes", routeHandler.ComputeRoutes)
			r.Post("/optimal-time", optimalTimeHandler.FindOptimalTime)
			r.Post("/nearby", nearbyHandler.FindNearby)
		})
	})

	// Kubernetes-style probes outside the versioned tree
	r.Get("/healthz", opsHandler.HealthCheck)
	r.Get("/readyz", opsHandler.ReadinessCheck)

	return r
}
