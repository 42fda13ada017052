package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coolroute/coolroute/internal/api"
	"github.com/coolroute/coolroute/internal/api/models"
	"github.com/coolroute/coolroute/internal/auth"
	"github.com/coolroute/coolroute/internal/matching"
	"github.com/coolroute/coolroute/internal/nearby"
	"github.com/coolroute/coolroute/internal/optimize"
	"github.com/coolroute/coolroute/internal/place"
	"github.com/coolroute/coolroute/internal/routing"
	"github.com/coolroute/coolroute/internal/segment"
	"github.com/coolroute/coolroute/internal/upstream"
	"github.com/coolroute/coolroute/internal/weather"
	"github.com/coolroute/coolroute/pkg/geo"
)

// straightLineEngine routes every query as the direct line between the
// endpoints at walking pace.
type straightLineEngine struct{}

func (straightLineEngine) Route(_ context.Context, start, end geo.Point, _ time.Time, _ routing.CostFunc) (*routing.Route, error) {
	distance := geo.Distance(start, end)
	return &routing.Route{
		Distance: distance,
		Duration: time.Duration(distance/1.4) * time.Second,
		Cost:     distance,
		Path:     []geo.Point{start, end},
	}, nil
}

// testDay is tomorrow's midnight, so opening windows lie ahead of the
// finder's wall clock.
var testDay = func() time.Time {
	d := time.Now().AddDate(0, 0, 1)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.Local)
}()

func testSeries(t *testing.T) *weather.Series {
	t.Helper()
	var samples []weather.Sample
	for h := 0; h <= 24; h++ {
		samples = append(samples, weather.Sample{
			Time:        testDay.Add(time.Duration(h) * time.Hour),
			Temperature: 26,
			Humidity:    55,
		})
	}
	series, err := weather.NewSeries(samples)
	require.NoError(t, err)
	return series
}

func testJWTService() *auth.JWTService {
	return auth.NewJWTService(auth.JWTConfig{
		SigningKey: "test-secret-key-for-testing-only",
		Issuer:     "https://api.coolroute.de",
		Audience:   "coolroute-api",
	})
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := zerolog.New(io.Discard)

	snapshot := weather.NewSnapshot(testSeries(t))
	index := place.NewMemoryIndex()
	allDay := place.OpeningRule{Open: 8 * time.Hour, Close: 22 * time.Hour}
	index.AddPlace(place.Place{
		ID:       "plc_cafe_1",
		Name:     "Eiscafe am Markt",
		Category: "cafe",
		Location: geo.Point{Lat: 48.7761, Lon: 9.1775},
	}, []place.OpeningRule{allDay})

	routes := routing.NewService(routing.ServiceConfig{
		Engine: straightLineEngine{},
		Logger: logger,
	})
	finder := optimize.NewFinder(optimize.Config{
		Objective: optimize.NewThermalComfortObjective(snapshot),
		Routes:    routes,
		Places:    index,
		Logger:    logger,
	})
	search := nearby.NewSearch(nearby.Config{
		Places: index,
		Finder: finder,
		Logger: logger,
	})

	return api.NewRouter(api.RouterConfig{
		Version:      "test",
		BuildTime:    "2026-01-01T00:00:00Z",
		Logger:       logger,
		JWTService:   testJWTService(),
		Routes:       routes,
		Weather:      snapshot,
		Segments:     segment.NewStore(),
		Matcher:      matching.NewMatcher(index, logger),
		Places:       index,
		Finder:       finder,
		Nearby:       search,
		SourceHealth: upstream.NewHealthTracker(),
	})
}

// addAuthHeader adds a valid Bearer token to the request.
func addAuthHeader(t *testing.T, req *http.Request) {
	t.Helper()
	token, _, err := testJWTService().GenerateAccessToken("svc_test_client")
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
}

func postJSON(t *testing.T, router http.Handler, path string, input any, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(input)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if authed {
		addAuthHeader(t, req)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRouter_HealthCheck(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	var health models.Health
	err := json.Unmarshal(w.Body.Bytes(), &health)
	require.NoError(t, err)

	assert.Equal(t, models.HealthStatusOK, health.Status)
}

func TestRouter_ReadinessCheck(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/readyz", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var health models.Health
	err := json.Unmarshal(w.Body.Bytes(), &health)
	require.NoError(t, err)

	assert.Equal(t, models.HealthStatusOK, health.Status)
}

func TestRouter_SystemStatus(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/status", http.NoBody)
	addAuthHeader(t, req)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var status models.SystemStatus
	err := json.Unmarshal(w.Body.Bytes(), &status)
	require.NoError(t, err)

	assert.Equal(t, models.HealthStatusOK, status.Status)
	assert.NotEmpty(t, status.Subsystems)
}

func TestRouter_SystemStatus_RequiresAuth(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/status", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
}

func TestRouter_ComputeRoutes(t *testing.T) {
	router := newTestRouter(t)

	input := models.RouteComputeRequest{
		Origin:          models.Point{Lat: 48.7758, Lon: 9.1829},
		Destination:     models.Point{Lat: 48.7761, Lon: 9.1775},
		DepartureTime:   testDay.Add(10 * time.Hour).Format(time.RFC3339),
		CostVariant:     models.CostVariantHeatIndex,
		IncludeShortest: true,
	}
	w := postJSON(t, router, "/v1/routes", input, true)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.RouteComputeResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)

	assert.Greater(t, resp.Route.DistanceMeters, 0.0)
	assert.NotEmpty(t, resp.Route.Path)
	require.NotNil(t, resp.Shortest)
	assert.Greater(t, resp.Shortest.DistanceMeters, 0.0)
}

func TestRouter_ComputeRoutes_RequiresAuth(t *testing.T) {
	router := newTestRouter(t)

	input := models.RouteComputeRequest{
		Origin:        models.Point{Lat: 48.7758, Lon: 9.1829},
		Destination:   models.Point{Lat: 48.7761, Lon: 9.1775},
		DepartureTime: testDay.Add(10 * time.Hour).Format(time.RFC3339),
	}
	w := postJSON(t, router, "/v1/routes", input, false)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_ComputeRoutes_ValidationError(t *testing.T) {
	router := newTestRouter(t)

	input := models.RouteComputeRequest{
		Origin:        models.Point{Lat: 91, Lon: 9.18},
		Destination:   models.Point{Lat: 48.7761, Lon: 9.1775},
		DepartureTime: "not-a-timestamp",
	}
	w := postJSON(t, router, "/v1/routes", input, true)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))

	var problem models.Problem
	err := json.Unmarshal(w.Body.Bytes(), &problem)
	require.NoError(t, err)

	assert.Equal(t, models.ProblemTypeValidation, problem.Type)
	assert.NotEmpty(t, problem.TraceID)
	assert.Len(t, problem.Errors, 2)
}

func TestRouter_OptimalTime(t *testing.T) {
	router := newTestRouter(t)

	input := models.OptimalTimeRequest{
		Start:   models.Point{Lat: 48.7758, Lon: 9.1829},
		PlaceID: "plc_cafe_1",
		Date:    testDay.Format("2006-01-02"),
	}
	w := postJSON(t, router, "/v1/optimal-time", input, true)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.OptimalTimeResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)

	assert.Equal(t, "plc_cafe_1", resp.Result.Place.ID)
	assert.False(t, resp.Result.Degraded)
	assert.Greater(t, resp.Result.DistanceMeters, 0.0)
}

func TestRouter_OptimalTime_UnknownPlace(t *testing.T) {
	router := newTestRouter(t)

	input := models.OptimalTimeRequest{
		Start:   models.Point{Lat: 48.7758, Lon: 9.1829},
		PlaceID: "plc_missing",
		Date:    testDay.Format("2006-01-02"),
	}
	w := postJSON(t, router, "/v1/optimal-time", input, true)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var problem models.Problem
	err := json.Unmarshal(w.Body.Bytes(), &problem)
	require.NoError(t, err)
	assert.Equal(t, models.ProblemTypeNotFound, problem.Type)
}

func TestRouter_Nearby(t *testing.T) {
	router := newTestRouter(t)

	input := models.NearbyRequest{
		Start:    models.Point{Lat: 48.7758, Lon: 9.1829},
		Category: "cafe",
		Date:     testDay.Format("2006-01-02"),
	}
	w := postJSON(t, router, "/v1/nearby", input, true)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.NearbyResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)

	require.Len(t, resp.Results, 1)
	assert.Equal(t, 1, resp.Results[0].Rank)
	assert.Equal(t, "plc_cafe_1", resp.Results[0].Place.ID)
}

func TestRouter_Nearby_ValidationError(t *testing.T) {
	router := newTestRouter(t)

	input := models.NearbyRequest{
		Start: models.Point{Lat: 48.7758, Lon: 9.1829},
		Date:  "14.07.2026",
	}
	w := postJSON(t, router, "/v1/nearby", input, true)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var problem models.Problem
	err := json.Unmarshal(w.Body.Bytes(), &problem)
	require.NoError(t, err)
	assert.Len(t, problem.Errors, 2)
}

func TestRouter_UnknownRoute(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/does-not-exist", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
