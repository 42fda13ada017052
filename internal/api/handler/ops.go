package handler

import (
	"net/http"
	"sort"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/coolroute/coolroute/internal/api/models"
	"github.com/coolroute/coolroute/internal/api/response"
	"github.com/coolroute/coolroute/internal/upstream"
	"github.com/coolroute/coolroute/internal/weather"
	"github.com/coolroute/coolroute/internal/worker"
)

// RefreshMetricsSource exposes the weather refresh job's counters. Nil when
// the process does not host the job.
type RefreshMetricsSource interface {
	Metrics() worker.RefreshMetrics
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	snapshot  *weather.Snapshot
	health    *upstream.HealthTracker
	refresh   RefreshMetricsSource
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(version, buildTime string, snapshot *weather.Snapshot, health *upstream.HealthTracker, refresh RefreshMetricsSource) *OpsHandler {
	return &OpsHandler{
		version:   version,
		buildTime: buildTime,
		snapshot:  snapshot,
		health:    health,
		refresh:   refresh,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check. The service
// is ready once a weather series is loaded; without one every cost query
// falls back to plain distance.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	status := models.HealthStatusOK
	code := http.StatusOK
	details := map[string]interface{}{}

	if h.snapshot == nil || h.snapshot.Current() == nil {
		status = models.HealthStatusFail
		code = http.StatusServiceUnavailable
		details["weather"] = "no series loaded"
	}

	health := models.Health{
		Status: status,
		Time:   models.Timestamp(time.Now()),
	}
	if len(details) > 0 {
		health.Details = details
	}
	response.JSON(w, r, code, health)
}

// SystemStatus handles GET /v1/ops/status - source and subsystem status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	now := models.Timestamp(time.Now())

	status := models.SystemStatus{
		Status:     models.HealthStatusOK,
		Time:       now,
		Subsystems: h.subsystems(),
		Sources:    h.sources(),
	}

	for _, s := range status.Subsystems {
		if s.Status != models.HealthStatusOK {
			status.Status = models.HealthStatusDegraded
		}
	}
	for _, s := range status.Sources {
		if s.Status != models.HealthStatusOK {
			status.Status = models.HealthStatusDegraded
		}
	}

	if h.refresh != nil {
		m := h.refresh.Metrics()
		refresh := models.RefreshStatus{
			TotalRuns:      m.TotalRuns,
			FailedRuns:     m.FailedRuns,
			LastDurationMs: m.LastDuration.Milliseconds(),
			LastSource:     m.LastSource,
			LastSamples:    m.LastSamples,
		}
		if !m.LastRunAt.IsZero() {
			at := models.Timestamp(m.LastRunAt)
			refresh.LastRunAt = &at
		}
		status.Refresh = &refresh
	}

	response.JSON(w, r, http.StatusOK, status)
}

func (h *OpsHandler) subsystems() []models.SubsystemStatus {
	weatherStatus := models.HealthStatusOK
	if h.snapshot == nil || h.snapshot.Current() == nil {
		weatherStatus = models.HealthStatusFail
	}
	return []models.SubsystemStatus{
		{Name: "weather-series", Status: weatherStatus},
	}
}

func (h *OpsHandler) sources() []models.SourceStatus {
	if h.health == nil {
		return []models.SourceStatus{}
	}

	all := h.health.AllHealth()
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })

	sources := make([]models.SourceStatus, len(all))
	for i, s := range all {
		sources[i] = models.SourceStatus{
			Source:       s.Name,
			Status:       circuitStatus(s.CircuitState),
			CircuitState: s.CircuitState.String(),
		}
		if s.LastSuccessAt != nil {
			at := models.Timestamp(*s.LastSuccessAt)
			sources[i].LastSuccessAt = &at
		}
		if s.LastFailureAt != nil {
			at := models.Timestamp(*s.LastFailureAt)
			sources[i].LastFailureAt = &at
		}
		if s.LastError != "" {
			msg := s.LastError
			sources[i].Message = &msg
		}
	}
	return sources
}

func circuitStatus(state gobreaker.State) models.HealthStatus {
	switch state {
	case gobreaker.StateClosed:
		return models.HealthStatusOK
	case gobreaker.StateHalfOpen:
		return models.HealthStatusDegraded
	default:
		return models.HealthStatusFail
	}
}
