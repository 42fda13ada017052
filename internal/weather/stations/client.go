// Package stations fetches hourly temperature and humidity observations
// from an external station-network API. The refresh worker turns the fetched
// observations into the weather series the routing core reads.
package stations

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/coolroute/coolroute/internal/upstream"
	"github.com/coolroute/coolroute/internal/weather"
)

const (
	// SourceName identifies this observation source.
	SourceName = "stations"

	// DefaultBaseURL is the station network's observation API.
	DefaultBaseURL = "https://api.brightsky.dev"
)

// ClientConfig holds configuration for the station client.
type ClientConfig struct {
	// BaseURL is the API base URL (optional).
	BaseURL string

	// StationID selects the station to read (required).
	StationID string

	// HTTPClient is the resilient client to use (optional).
	HTTPClient *upstream.Client

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client reads hourly observations from one weather station.
type Client struct {
	baseURL    string
	stationID  string
	httpClient *upstream.Client
	logger     zerolog.Logger
}

// NewClient creates a station client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = upstream.NewClient(upstream.ClientConfig{
			Name:   SourceName + ":" + cfg.StationID,
			Logger: cfg.Logger,
		})
	}

	return &Client{
		baseURL:    baseURL,
		stationID:  cfg.StationID,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the source name, qualified by station so each station in a
// failover list tracks health separately.
func (c *Client) Name() string {
	return SourceName + ":" + c.stationID
}

type observationsResponse struct {
	Weather []observation `json:"weather"`
}

type observation struct {
	Timestamp        time.Time `json:"timestamp"`
	Temperature      *float64  `json:"temperature"`
	RelativeHumidity *float64  `json:"relative_humidity"`
}

// Observations fetches the station's hourly observations for [from, to] and
// returns them as time-ordered samples. Hours missing either temperature or
// humidity are skipped; the series loses an interpolation anchor but stays
// consistent.
func (c *Client) Observations(ctx context.Context, from, to time.Time) ([]weather.Sample, error) {
	query := url.Values{}
	query.Set("dwd_station_id", c.stationID)
	query.Set("date", from.UTC().Format(time.RFC3339))
	query.Set("last_date", to.UTC().Format(time.RFC3339))

	endpoint := fmt.Sprintf("%s/weather?%s", c.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var payload observationsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	samples := make([]weather.Sample, 0, len(payload.Weather))
	skipped := 0
	for _, obs := range payload.Weather {
		if obs.Temperature == nil || obs.RelativeHumidity == nil {
			skipped++
			continue
		}
		samples = append(samples, weather.Sample{
			Time:        obs.Timestamp.UTC(),
			Temperature: *obs.Temperature,
			Humidity:    *obs.RelativeHumidity,
		})
	}
	sort.Slice(samples, func(i, j int) bool {
		return samples[i].Time.Before(samples[j].Time)
	})

	c.logger.Debug().
		Str("station_id", c.stationID).
		Int("samples", len(samples)).
		Int("skipped", skipped).
		Msg("fetched station observations")

	return samples, nil
}
