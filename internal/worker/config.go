// Package worker provides the background weather refresh for CoolRoute.
package worker

import (
	"time"
)

// RefreshConfig holds configuration for the weather refresh job.
type RefreshConfig struct {
	// Lookback is how far into the past observations are fetched.
	// Interpolation needs anchors before "now". Default: 6 hours.
	Lookback time.Duration

	// Horizon is how far into the future forecast hours are fetched.
	// Departure-time search needs coverage ahead of "now". Default: 18 hours.
	Horizon time.Duration

	// Concurrency is the number of sources fetched in parallel.
	// Default: 3
	Concurrency int

	// Timeout bounds each source fetch. Default: 30 seconds.
	Timeout time.Duration
}

// DefaultRefreshConfig returns the standard refresh configuration.
func DefaultRefreshConfig() RefreshConfig {
	return RefreshConfig{
		Lookback:    6 * time.Hour,
		Horizon:     18 * time.Hour,
		Concurrency: 3,
		Timeout:     30 * time.Second,
	}
}

func (c RefreshConfig) withDefaults() RefreshConfig {
	d := DefaultRefreshConfig()
	if c.Lookback == 0 {
		c.Lookback = d.Lookback
	}
	if c.Horizon == 0 {
		c.Horizon = d.Horizon
	}
	if c.Concurrency == 0 {
		c.Concurrency = d.Concurrency
	}
	if c.Timeout == 0 {
		c.Timeout = d.Timeout
	}
	return c
}
