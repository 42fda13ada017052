// Package pathengine provides the HTTP client for the external
// weighted-shortest-path engine. The engine runs as a sidecar; it answers a
// route query with a handful of alternative paths broken down into edges,
// and this client picks the alternative whose accumulated edge cost under
// the caller's cost function is lowest.
package pathengine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/coolroute/coolroute/internal/routing"
	"github.com/coolroute/coolroute/internal/upstream"
	"github.com/coolroute/coolroute/pkg/geo"
)

const (
	// EngineName identifies this engine in error reports.
	EngineName = "pathengine"

	// DefaultBaseURL is the sidecar's default address.
	DefaultBaseURL = "http://localhost:8989"

	// DefaultAlternatives is how many alternative paths to request.
	DefaultAlternatives = 3

	// defaultWalkingSpeed in meters per second, used to advance the clock
	// along a path when estimating per-edge entry times.
	defaultWalkingSpeed = 1.4
)

// ClientConfig holds configuration for the path-engine client.
type ClientConfig struct {
	// BaseURL is the sidecar base URL (optional).
	BaseURL string

	// Alternatives is how many paths to request per query (optional).
	Alternatives int

	// WalkingSpeed in meters per second (optional).
	WalkingSpeed float64

	// HTTPClient is the resilient client to use (optional).
	HTTPClient *upstream.Client

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client queries the path-engine sidecar. It implements routing.Engine.
type Client struct {
	baseURL      string
	alternatives int
	walkingSpeed float64
	httpClient   *upstream.Client
	logger       zerolog.Logger
}

// NewClient creates a new path-engine client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	alternatives := cfg.Alternatives
	if alternatives <= 0 {
		alternatives = DefaultAlternatives
	}
	walkingSpeed := cfg.WalkingSpeed
	if walkingSpeed <= 0 {
		walkingSpeed = defaultWalkingSpeed
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = upstream.NewClient(upstream.ClientConfig{
			Name:   EngineName,
			Logger: cfg.Logger,
		})
	}

	return &Client{
		baseURL:      baseURL,
		alternatives: alternatives,
		walkingSpeed: walkingSpeed,
		httpClient:   httpClient,
		logger:       cfg.Logger,
	}
}

// engineRequest is the sidecar's route query body.
type engineRequest struct {
	// Coordinates in [lon, lat] order (GeoJSON convention).
	Coordinates  [][]float64 `json:"coordinates"`
	Alternatives int         `json:"alternatives"`
	Profile      string      `json:"profile"`
	EdgeDetail   bool        `json:"edge_detail"`
}

// engineResponse is the sidecar's answer.
type engineResponse struct {
	Paths    []enginePath    `json:"paths"`
	Warnings []engineWarning `json:"warnings"`
}

type enginePath struct {
	DistanceMeters float64      `json:"distance_m"`
	TimeMillis     int64        `json:"time_ms"`
	Points         string       `json:"points"`
	Edges          []engineEdge `json:"edges"`
}

type engineEdge struct {
	WayID          int64   `json:"way_id"`
	BaseNode       int64   `json:"base_node"`
	AdjacentNode   int64   `json:"adjacent_node"`
	Points         string  `json:"points"`
	DistanceMeters float64 `json:"distance_m"`
	Synthetic      bool    `json:"synthetic"`
}

type engineWarning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type engineErrorResponse struct {
	Message string `json:"message"`
}

// Route queries the sidecar and picks the alternative with the lowest
// accumulated edge cost. A cost-function error aborts the whole query.
func (c *Client) Route(ctx context.Context, start, end geo.Point, at time.Time, cost routing.CostFunc) (*routing.Route, error) {
	resp, err := c.query(ctx, start, end)
	if err != nil {
		return nil, err
	}
	if len(resp.Paths) == 0 {
		return nil, &routing.Error{
			Engine:  EngineName,
			Code:    "NO_ROUTE",
			Message: "engine returned no paths",
			Err:     routing.ErrNoRouteFound,
		}
	}

	var best *routing.Route
	for i := range resp.Paths {
		route, err := c.evaluatePath(&resp.Paths[i], at, cost)
		if err != nil {
			return nil, err
		}
		if best == nil || route.Cost < best.Cost {
			best = route
		}
	}

	for _, w := range resp.Warnings {
		best.Errors = append(best.Errors, routing.Error{
			Engine:  EngineName,
			Code:    w.Code,
			Message: w.Message,
		})
	}

	c.logger.Debug().
		Int("alternatives", len(resp.Paths)).
		Float64("distance_m", best.Distance).
		Float64("cost", best.Cost).
		Msg("path engine route selected")

	return best, nil
}

func (c *Client) query(ctx context.Context, start, end geo.Point) (*engineResponse, error) {
	body, err := json.Marshal(engineRequest{
		Coordinates: [][]float64{
			{start.Lon, start.Lat},
			{end.Lon, end.Lat},
		},
		Alternatives: c.alternatives,
		Profile:      "foot",
		EdgeDetail:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling route request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/route", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating route request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		return nil, &routing.Error{
			Engine:  EngineName,
			Code:    "REQUEST_FAILED",
			Message: "failed to reach path engine",
			Err:     routing.ErrEngineUnavailable,
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading route response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.handleErrorResponse(resp.StatusCode, respBody)
	}

	var decoded engineResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, fmt.Errorf("decoding route response: %w", err)
	}
	return &decoded, nil
}

// evaluatePath prices one alternative. The clock advances edge by edge at
// walking pace, so a later edge is costed at the time it would be entered.
func (c *Client) evaluatePath(path *enginePath, at time.Time, cost routing.CostFunc) (*routing.Route, error) {
	entry := at
	total := 0.0
	for _, e := range path.Edges {
		edge := routing.Edge{
			WayID:        e.WayID,
			BaseNode:     e.BaseNode,
			AdjacentNode: e.AdjacentNode,
			Geometry:     geo.DecodePolyline(e.Points),
			Distance:     e.DistanceMeters,
			Synthetic:    e.Synthetic,
		}
		edgeCost, err := cost(edge, entry)
		if err != nil {
			return nil, fmt.Errorf("costing edge on way %d: %w", e.WayID, err)
		}
		total += edgeCost
		entry = entry.Add(time.Duration(e.DistanceMeters / c.walkingSpeed * float64(time.Second)))
	}

	duration := time.Duration(path.TimeMillis) * time.Millisecond
	if duration <= 0 {
		duration = time.Duration(path.DistanceMeters / c.walkingSpeed * float64(time.Second))
	}

	return &routing.Route{
		Distance: path.DistanceMeters,
		Duration: duration,
		Cost:     total,
		Path:     geo.DecodePolyline(path.Points),
	}, nil
}

// handleErrorResponse maps sidecar error responses to typed engine errors.
func (c *Client) handleErrorResponse(statusCode int, body []byte) error {
	var engineErr engineErrorResponse
	_ = json.Unmarshal(body, &engineErr)
	message := engineErr.Message
	if message == "" {
		message = fmt.Sprintf("path engine returned status %d", statusCode)
	}

	switch statusCode {
	case http.StatusNotFound, http.StatusBadRequest:
		return &routing.Error{
			Engine:  EngineName,
			Code:    "NO_ROUTE",
			Message: message,
			Err:     routing.ErrNoRouteFound,
		}
	default:
		return &routing.Error{
			Engine:  EngineName,
			Code:    fmt.Sprintf("HTTP_%d", statusCode),
			Message: message,
			Err:     routing.ErrEngineUnavailable,
		}
	}
}
