// Package main provides the entrypoint for the CoolRoute API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/coolroute/coolroute/internal/api"
	"github.com/coolroute/coolroute/internal/api/handler"
	"github.com/coolroute/coolroute/internal/api/middleware"
	"github.com/coolroute/coolroute/internal/auth"
	"github.com/coolroute/coolroute/internal/database"
	"github.com/coolroute/coolroute/internal/matching"
	"github.com/coolroute/coolroute/internal/nearby"
	"github.com/coolroute/coolroute/internal/optimize"
	"github.com/coolroute/coolroute/internal/place"
	"github.com/coolroute/coolroute/internal/routing"
	"github.com/coolroute/coolroute/internal/routing/pathengine"
	"github.com/coolroute/coolroute/internal/segment"
	"github.com/coolroute/coolroute/internal/telemetry"
	"github.com/coolroute/coolroute/internal/upstream"
	"github.com/coolroute/coolroute/internal/weather"
	"github.com/coolroute/coolroute/internal/weather/stations"
	"github.com/coolroute/coolroute/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "coolroute-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting CoolRoute API")

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

	// Initialize place index and load the walkway topology the segment
	// matcher operates on
	places := place.NewPostgresRepository(pool)
	if err := places.LoadTopology(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to load walkway topology")
	}
	matcher := matching.NewMatcher(places, log)
	log.Info().Msg("place index initialized")

	// Load segment weather assignments. A malformed file is a deployment
	// error, not something to route around.
	segmentPath := os.Getenv("SEGMENT_WEATHER_PATH")
	if segmentPath == "" {
		log.Fatal().Msg("SEGMENT_WEATHER_PATH is required")
	}
	segments, err := segment.LoadFile(segmentPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", segmentPath).Msg("failed to load segment weather data")
	}
	log.Info().Str("path", segmentPath).Msg("segment weather data loaded")

	// Bootstrap the weather snapshot. Without a seed file the snapshot
	// starts empty and readiness stays red until the first refresh lands.
	var initialSeries *weather.Series
	if csvPath := os.Getenv("WEATHER_CSV_PATH"); csvPath != "" {
		initialSeries, err = weather.LoadFile(csvPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", csvPath).Msg("failed to load weather series")
		}
		log.Info().Str("path", csvPath).Msg("weather series loaded")
	}
	snapshot := weather.NewSnapshot(initialSeries)

	// Initialize JWT service (get signing key from environment)
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		jwtSigningKey = "local-dev-signing-key-change-in-production"
		log.Warn().Msg("using default JWT signing key - not secure for production")
	}

	jwtService := auth.NewJWTService(auth.JWTConfig{
		SigningKey: jwtSigningKey,
		Issuer:     "https://api.coolroute.de",
		Audience:   "coolroute-api",
	})

	// Initialize the path-engine client behind a resilient HTTP client so
	// sidecar outages show up in the health tracker
	health := upstream.NewHealthTracker()

	sourceMetrics, err := upstream.NewSourceMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize source metrics")
	}

	engineHTTP := upstream.NewClient(upstream.ClientConfig{
		Name:    pathengine.EngineName,
		Metrics: sourceMetrics,
		Logger:  log,
	})
	health.Register(pathengine.EngineName, engineHTTP)

	engine := pathengine.NewClient(pathengine.ClientConfig{
		BaseURL:    os.Getenv("PATH_ENGINE_URL"),
		HTTPClient: engineHTTP,
		Logger:     log,
	})

	routes := routing.NewService(routing.ServiceConfig{
		Engine: engine,
		Logger: log,
	})
	log.Info().Msg("routing service initialized")

	// Initialize the departure-time finder and nearby search on the shared
	// snapshot; refreshes swap the series under them without a restart
	finder := optimize.NewFinder(optimize.Config{
		Objective: optimize.NewThermalComfortObjective(snapshot),
		Routes:    routes,
		Places:    places,
		Logger:    log,
	})

	search := nearby.NewSearch(nearby.Config{
		Places: places,
		Finder: finder,
		Logger: log,
	})
	log.Info().Msg("optimal-time search initialized")

	// When station IDs are configured the API keeps its own snapshot fresh
	// with an in-process ticker. Deployments with the dedicated worker
	// leave STATION_IDS unset here.
	var refreshMetrics handler.RefreshMetricsSource
	refreshCtx, stopRefresh := context.WithCancel(ctx)
	defer stopRefresh()

	if stationIDs := os.Getenv("STATION_IDS"); stationIDs != "" {
		job := newRefreshJob(stationIDs, snapshot, health, sourceMetrics, log)
		refreshMetrics = job

		interval := 30 * time.Minute
		if v := os.Getenv("REFRESH_INTERVAL"); v != "" {
			interval, err = time.ParseDuration(v)
			if err != nil {
				log.Fatal().Err(err).Str("value", v).Msg("invalid REFRESH_INTERVAL")
			}
		}

		go runRefreshLoop(refreshCtx, job, interval, log)
		log.Info().
			Str("station_ids", stationIDs).
			Dur("interval", interval).
			Msg("in-process weather refresh enabled")
	}

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:        Version,
		BuildTime:      BuildTime,
		Logger:         log,
		ServiceName:    serviceName,
		Metrics:        metrics,
		JWTService:     jwtService,
		Routes:         routes,
		Weather:        snapshot,
		Segments:       segments,
		Matcher:        matcher,
		Places:         places,
		Finder:         finder,
		Nearby:         search,
		SourceHealth:   health,
		RefreshMetrics: refreshMetrics,
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
	stopRefresh()

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}

// newRefreshJob builds a refresh job reading the given comma-separated
// station IDs in priority order.
func newRefreshJob(stationIDs string, snapshot *weather.Snapshot, health *upstream.HealthTracker, metrics *upstream.SourceMetrics, log zerolog.Logger) *worker.RefreshJob {
	var sources []worker.ObservationSource
	for _, stationID := range strings.Split(stationIDs, ",") {
		stationID = strings.TrimSpace(stationID)
		if stationID == "" {
			continue
		}

		httpClient := upstream.NewClient(upstream.ClientConfig{
			Name:    stations.SourceName + ":" + stationID,
			Metrics: metrics,
			Logger:  log,
		})
		health.Register(stations.SourceName+":"+stationID, httpClient)

		sources = append(sources, stations.NewClient(stations.ClientConfig{
			BaseURL:    os.Getenv("STATIONS_BASE_URL"),
			StationID:  stationID,
			HTTPClient: httpClient,
			Logger:     log,
		}))
	}

	return worker.NewRefreshJob(worker.RefreshJobConfig{
		Sources:  sources,
		Snapshot: snapshot,
		Health:   health,
		Logger:   log,
	})
}

// runRefreshLoop runs the job once immediately and then on every tick until
// the context is canceled. Failed runs keep the previous series live, so a
// flaky upstream degrades freshness rather than availability.
func runRefreshLoop(ctx context.Context, job *worker.RefreshJob, interval time.Duration, log zerolog.Logger) {
	if _, err := job.Run(ctx); err != nil {
		log.Error().Err(err).Msg("initial weather refresh failed")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := job.Run(ctx); err != nil {
				log.Error().Err(err).Msg("weather refresh failed")
			}
		}
	}
}
