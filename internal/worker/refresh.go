package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/coolroute/coolroute/internal/upstream"
	"github.com/coolroute/coolroute/internal/weather"
)

// ErrNoUsableSource indicates every configured source failed or returned an
// empty series; the previous snapshot stays live.
var ErrNoUsableSource = errors.New("no usable observation source")

// ObservationSource supplies hourly weather samples for a time range.
type ObservationSource interface {
	Name() string
	Observations(ctx context.Context, from, to time.Time) ([]weather.Sample, error)
}

// RefreshJob rebuilds the weather series from the configured sources and
// swaps it into the shared snapshot. Searches running during a refresh keep
// reading the old series; the swap is atomic and happens once per run.
type RefreshJob struct {
	config   RefreshConfig
	sources  []ObservationSource
	snapshot *weather.Snapshot
	health   *upstream.HealthTracker
	logger   zerolog.Logger

	mu      sync.RWMutex
	metrics RefreshMetrics
}

// RefreshMetrics tracks refresh job statistics.
type RefreshMetrics struct {
	TotalRuns    int64
	FailedRuns   int64
	LastRunAt    time.Time
	LastDuration time.Duration
	LastSource   string
	LastSamples  int
}

// Metrics returns a copy of the current metrics.
func (j *RefreshJob) Metrics() RefreshMetrics {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.metrics
}

// RefreshJobConfig holds configuration for creating a RefreshJob.
type RefreshJobConfig struct {
	Config RefreshConfig

	// Sources in priority order; on equal coverage the earlier one wins.
	Sources []ObservationSource

	// Snapshot receives the rebuilt series.
	Snapshot *weather.Snapshot

	// Health optionally records per-source outcomes.
	Health *upstream.HealthTracker

	Logger zerolog.Logger
}

// NewRefreshJob creates a refresh job.
func NewRefreshJob(cfg RefreshJobConfig) *RefreshJob {
	return &RefreshJob{
		config:   cfg.Config.withDefaults(),
		sources:  cfg.Sources,
		snapshot: cfg.Snapshot,
		health:   cfg.Health,
		logger:   cfg.Logger,
	}
}

// RefreshResult describes the outcome of one refresh run.
type RefreshResult struct {
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	// Source is the source whose series was installed.
	Source string

	// Samples is the size of the installed series.
	Samples int

	// Errors collects per-source failures; non-empty does not imply the
	// run failed as long as one source delivered.
	Errors []SourceError
}

// SourceError is one failed source fetch.
type SourceError struct {
	Source string
	Err    error
}

// Run fetches all sources, installs the best resulting series, and returns
// the run's outcome. On total failure the snapshot is left untouched.
func (j *RefreshJob) Run(ctx context.Context) (*RefreshResult, error) {
	startTime := time.Now()
	from := startTime.Add(-j.config.Lookback)
	to := startTime.Add(j.config.Horizon)

	result := &RefreshResult{StartTime: startTime}

	j.logger.Info().
		Int("sources", len(j.sources)).
		Time("from", from).
		Time("to", to).
		Msg("starting weather refresh")

	fetched := j.fetchAll(ctx, from, to)

	// Pick the source with the widest coverage; configuration order
	// breaks ties.
	var best *sourceResult
	for i := range fetched {
		f := &fetched[i]
		if f.err != nil {
			result.Errors = append(result.Errors, SourceError{Source: f.name, Err: f.err})
			continue
		}
		if best == nil || len(f.samples) > len(best.samples) {
			best = f
		}
	}

	if best == nil || len(best.samples) == 0 {
		j.recordRun(result, startTime, true)
		return result, fmt.Errorf("%w: %d sources failed", ErrNoUsableSource, len(result.Errors))
	}

	series, err := weather.NewSeries(best.samples)
	if err != nil {
		j.recordRun(result, startTime, true)
		return result, fmt.Errorf("building series from %s: %w", best.name, err)
	}

	j.snapshot.Swap(series)
	result.Source = best.name
	result.Samples = series.Len()
	j.recordRun(result, startTime, false)

	j.logger.Info().
		Str("source", result.Source).
		Int("samples", result.Samples).
		Dur("duration", result.Duration).
		Int("failed_sources", len(result.Errors)).
		Msg("weather refresh completed")

	return result, nil
}

type sourceResult struct {
	name    string
	samples []weather.Sample
	err     error
}

// fetchAll queries every source over a bounded worker pool, preserving
// configuration order in the returned slice.
func (j *RefreshJob) fetchAll(ctx context.Context, from, to time.Time) []sourceResult {
	results := make([]sourceResult, len(j.sources))

	jobs := make(chan int, len(j.sources))
	workers := j.config.Concurrency
	if workers > len(j.sources) {
		workers = len(j.sources)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = j.fetchOne(ctx, j.sources[i], from, to)
			}
		}()
	}
	for i := range j.sources {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

func (j *RefreshJob) fetchOne(ctx context.Context, source ObservationSource, from, to time.Time) sourceResult {
	fetchCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	samples, err := source.Observations(fetchCtx, from, to)
	if err != nil {
		j.logger.Warn().Err(err).Str("source", source.Name()).Msg("source fetch failed")
		if j.health != nil {
			j.health.RecordFailure(source.Name(), err)
		}
		return sourceResult{name: source.Name(), err: err}
	}

	if j.health != nil {
		j.health.RecordSuccess(source.Name())
	}
	return sourceResult{name: source.Name(), samples: samples}
}

func (j *RefreshJob) recordRun(result *RefreshResult, startTime time.Time, failed bool) {
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	j.mu.Lock()
	defer j.mu.Unlock()
	j.metrics.TotalRuns++
	if failed {
		j.metrics.FailedRuns++
	}
	j.metrics.LastRunAt = result.EndTime
	j.metrics.LastDuration = result.Duration
	j.metrics.LastSource = result.Source
	j.metrics.LastSamples = result.Samples
}
