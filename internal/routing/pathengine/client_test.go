package pathengine_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coolroute/coolroute/internal/routing"
	"github.com/coolroute/coolroute/internal/routing/pathengine"
	"github.com/coolroute/coolroute/pkg/geo"
)

var (
	start = geo.Point{Lat: 48.7758, Lon: 9.1829}
	end   = geo.Point{Lat: 48.7761, Lon: 9.1775}
)

// twoPathPayload is an engine answer with a short path on way 100 and a
// longer detour on way 200.
func twoPathPayload(t *testing.T) []byte {
	t.Helper()
	payload := map[string]any{
		"paths": []map[string]any{
			{
				"distance_m": 400.0,
				"time_ms":    290_000,
				"points":     geo.EncodePolyline([]geo.Point{start, end}),
				"edges": []map[string]any{
					{
						"way_id": 100, "base_node": 1, "adjacent_node": 2,
						"points":     geo.EncodePolyline([]geo.Point{start, end}),
						"distance_m": 400.0,
					},
				},
			},
			{
				"distance_m": 650.0,
				"time_ms":    465_000,
				"points":     geo.EncodePolyline([]geo.Point{start, {Lat: 48.7770, Lon: 9.1800}, end}),
				"edges": []map[string]any{
					{
						"way_id": 200, "base_node": 1, "adjacent_node": 7,
						"points":     geo.EncodePolyline([]geo.Point{start, {Lat: 48.7770, Lon: 9.1800}}),
						"distance_m": 350.0,
					},
					{
						"way_id": 201, "base_node": 7, "adjacent_node": 2,
						"points":     geo.EncodePolyline([]geo.Point{{Lat: 48.7770, Lon: 9.1800}, end}),
						"distance_m": 300.0,
					},
				},
			},
		},
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return body
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *pathengine.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return pathengine.NewClient(pathengine.ClientConfig{
		BaseURL: server.URL,
		Logger:  zerolog.Nop(),
	})
}

func TestRoute_PicksCheapestAlternative(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/route", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		_, _ = w.Write(twoPathPayload(t))
	})

	// Way 100 is priced as if scorching; the detour wins despite being
	// longer.
	costFn := func(edge routing.Edge, _ time.Time) (float64, error) {
		if edge.WayID == 100 {
			return edge.Distance * 40, nil
		}
		return edge.Distance, nil
	}

	route, err := client.Route(context.Background(), start, end, time.Now(), costFn)
	require.NoError(t, err)

	assert.InDelta(t, 650.0, route.Distance, 0.001)
	assert.InDelta(t, 650.0, route.Cost, 0.001)
	assert.Len(t, route.Path, 3)
}

func TestRoute_DistanceCostKeepsShortPath(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(twoPathPayload(t))
	})

	route, err := client.Route(context.Background(), start, end, time.Now(), routing.DistanceCost)
	require.NoError(t, err)

	assert.InDelta(t, 400.0, route.Distance, 0.001)
	assert.Equal(t, 290*time.Second, route.Duration)
}

func TestRoute_CostErrorAborts(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(twoPathPayload(t))
	})

	sentinel := errors.New("negative edge cost")
	costFn := func(routing.Edge, time.Time) (float64, error) {
		return 0, sentinel
	}

	_, err := client.Route(context.Background(), start, end, time.Now(), costFn)
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
}

func TestRoute_NoRoute(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"no path between points"}`))
	})

	_, err := client.Route(context.Background(), start, end, time.Now(), routing.DistanceCost)
	require.Error(t, err)
	assert.ErrorIs(t, err, routing.ErrNoRouteFound)

	var engineErr *routing.Error
	require.ErrorAs(t, err, &engineErr)
	assert.Equal(t, "no path between points", engineErr.Message)
}

func TestRoute_EmptyPaths(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"paths":[]}`))
	})

	_, err := client.Route(context.Background(), start, end, time.Now(), routing.DistanceCost)
	assert.ErrorIs(t, err, routing.ErrNoRouteFound)
}

func TestRoute_WarningsPropagated(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		payload := twoPathPayload(t)
		var decoded map[string]any
		require.NoError(t, json.Unmarshal(payload, &decoded))
		decoded["warnings"] = []map[string]string{
			{"code": "SNAPPED", "message": "origin snapped 12m onto the network"},
		}
		body, err := json.Marshal(decoded)
		require.NoError(t, err)
		_, _ = w.Write(body)
	})

	route, err := client.Route(context.Background(), start, end, time.Now(), routing.DistanceCost)
	require.NoError(t, err)
	require.Len(t, route.Errors, 1)
	assert.Equal(t, "SNAPPED", route.Errors[0].Code)
}
