// Package main provides the entrypoint for the CoolRoute refresh worker.
// The worker listens for Pub/Sub refresh messages, rebuilds the weather
// series from the configured stations, and reports the outcome on its
// health endpoint.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/coolroute/coolroute/internal/upstream"
	"github.com/coolroute/coolroute/internal/weather"
	"github.com/coolroute/coolroute/internal/weather/stations"
	"github.com/coolroute/coolroute/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "coolroute-worker"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting CoolRoute worker")

	// Worker also exposes a health endpoint for Cloud Run
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	stationIDs := os.Getenv("STATION_IDS")
	if stationIDs == "" {
		log.Fatal().Msg("STATION_IDS is required")
	}

	projectID := os.Getenv("PUBSUB_PROJECT_ID")
	if projectID == "" {
		log.Fatal().Msg("PUBSUB_PROJECT_ID is required")
	}

	subscription := os.Getenv("PUBSUB_SUBSCRIPTION")
	if subscription == "" {
		subscription = "weather-refresh"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// One source per station, each behind its own resilient client so a
	// single flaky station trips only its own breaker
	health := upstream.NewHealthTracker()

	sourceMetrics, err := upstream.NewSourceMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize source metrics")
	}

	var sources []worker.ObservationSource
	for _, stationID := range strings.Split(stationIDs, ",") {
		stationID = strings.TrimSpace(stationID)
		if stationID == "" {
			continue
		}

		httpClient := upstream.NewClient(upstream.ClientConfig{
			Name:    stations.SourceName + ":" + stationID,
			Metrics: sourceMetrics,
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
	if len(sources) == 0 {
		log.Fatal().Str("station_ids", stationIDs).Msg("no usable station IDs")
	}

	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Sources:  sources,
		Snapshot: weather.NewSnapshot(nil),
		Health:   health,
		Logger:   log,
	})

	pubsubHandler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
		ProjectID:        projectID,
		SubscriptionName: subscription,
		RefreshJob:       job,
		Logger:           log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create pubsub handler")
	}
	defer func() {
		if closeErr := pubsubHandler.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("failed to close pubsub client")
		}
	}()

	// Create HTTP server for health checks
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		metrics := job.Metrics()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":      "healthy",
			"version":     Version,
			"total_runs":  metrics.TotalRuns,
			"failed_runs": metrics.FailedRuns,
			"last_run_at": metrics.LastRunAt,
			"last_source": metrics.LastSource,
		})
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("health server error")
		}
	}()

	// Receive blocks until the context is canceled
	go func() {
		if err := pubsubHandler.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Fatal().Err(err).Msg("pubsub handler stopped")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}
