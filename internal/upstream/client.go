// Package upstream wraps HTTP access to external weather-station networks
// with timeouts, retries, and a circuit breaker, and tracks per-source
// health for the ops surface.
package upstream

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// Predefined errors for upstream calls.
var (
	// ErrSourceUnavailable is returned while the circuit breaker is open.
	ErrSourceUnavailable = errors.New("upstream source unavailable")
)

// ClientConfig holds configuration for a resilient upstream client.
type ClientConfig struct {
	// Name identifies the source for circuit breaker naming and logs.
	Name string

	// Timeout is the per-request timeout.
	// Default: 10 seconds
	Timeout time.Duration

	// MaxRetries is the maximum number of retry attempts.
	// Default: 3
	MaxRetries uint64

	// InitialInterval is the initial retry backoff interval.
	// Default: 100ms
	InitialInterval time.Duration

	// MaxInterval is the maximum retry backoff interval.
	// Default: 5 seconds
	MaxInterval time.Duration

	// BreakerTimeout is how long the circuit stays open before a probe.
	// Default: 60 seconds
	BreakerTimeout time.Duration

	// Metrics optionally records call durations and breaker transitions.
	Metrics *SourceMetrics

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is an HTTP client with retry and circuit breaker protection.
// Station networks rate-limit and fall over routinely; the breaker keeps a
// flapping source from stalling every refresh cycle.
type Client struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*http.Response]
	config     ClientConfig
	logger     zerolog.Logger
}

// NewClient creates a resilient upstream client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 100 * time.Millisecond
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = 5 * time.Second
	}
	if cfg.BreakerTimeout == 0 {
		cfg.BreakerTimeout = 60 * time.Second
	}

	logger := cfg.Logger.With().Str("source", cfg.Name).Logger()

	breaker := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: readyToTrip,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
			if to == gobreaker.StateOpen {
				cfg.Metrics.RecordBreakerOpen(name)
			}
		},
	})

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    breaker,
		config:     cfg,
		logger:     logger,
	}
}

// readyToTrip opens the circuit after at least 5 requests with a failure
// rate of 50% or higher.
func readyToTrip(counts gobreaker.Counts) bool {
	failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
	return counts.Requests >= 5 && failureRatio >= 0.5
}

// Do executes the request, retrying transient failures (network errors,
// 5xx responses) with exponential backoff. While the circuit is open it
// fails fast with ErrSourceUnavailable.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	start := time.Now()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.config.InitialInterval
	bo.MaxInterval = c.config.MaxInterval
	bo.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, c.config.MaxRetries), ctx)

	var lastResp *http.Response

	operation := func() error {
		// 5xx responses come back as errors so they count against the
		// breaker; the caller still receives the final response when
		// retries run out.
		resp, err := c.breaker.Execute(func() (*http.Response, error) {
			r, doErr := c.httpClient.Do(req.Clone(ctx))
			if doErr != nil {
				return nil, doErr
			}
			if r.StatusCode >= 500 {
				return r, &ServerError{StatusCode: r.StatusCode}
			}
			return r, nil
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(ErrSourceUnavailable)
			}
			if resp != nil {
				lastResp = resp
			}
			c.logger.Debug().Err(err).Msg("upstream request failed, retrying")
			return err
		}

		lastResp = resp
		return nil
	}

	err := backoff.Retry(operation, policy)
	c.config.Metrics.RecordRequest(c.config.Name, time.Since(start), err)
	if err != nil {
		if lastResp != nil {
			return lastResp, nil
		}
		return nil, err
	}
	return lastResp, nil
}

// ServerError represents an HTTP 5xx response from the source.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return "server error: " + http.StatusText(e.StatusCode)
}

// BreakerState returns the circuit breaker's current state.
func (c *Client) BreakerState() gobreaker.State {
	return c.breaker.State()
}

// BreakerCounts returns the circuit breaker's current counts.
func (c *Client) BreakerCounts() gobreaker.Counts {
	return c.breaker.Counts()
}
