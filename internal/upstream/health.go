package upstream

import (
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// SourceHealth is a snapshot of one source's availability, reported by the
// ops endpoints.
type SourceHealth struct {
	// Name is the source identifier.
	Name string

	// CircuitState is the current circuit breaker state.
	CircuitState gobreaker.State

	// Counts contains circuit breaker statistics.
	Counts gobreaker.Counts

	// LastSuccessAt is when the source last answered successfully.
	LastSuccessAt *time.Time

	// LastFailureAt is when the source last failed.
	LastFailureAt *time.Time

	// LastError is the most recent error message, if any.
	LastError string
}

// IsHealthy reports whether requests flow normally.
func (h *SourceHealth) IsHealthy() bool {
	return h.CircuitState == gobreaker.StateClosed
}

// HealthTracker tracks registered sources and their observed health.
type HealthTracker struct {
	mu      sync.RWMutex
	sources map[string]*trackedSource
}

type trackedSource struct {
	client        *Client
	lastSuccessAt *time.Time
	lastFailureAt *time.Time
	lastError     string
}

// NewHealthTracker creates an empty tracker.
func NewHealthTracker() *HealthTracker {
	return &HealthTracker{sources: make(map[string]*trackedSource)}
}

// Register adds a source's client to the tracker.
func (t *HealthTracker) Register(name string, client *Client) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sources[name] = &trackedSource{client: client}
}

// RecordSuccess records a successful fetch for a source.
func (t *HealthTracker) RecordSuccess(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.sources[name]; ok {
		now := time.Now()
		s.lastSuccessAt = &now
	}
}

// RecordFailure records a failed fetch for a source.
func (t *HealthTracker) RecordFailure(name string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.sources[name]; ok {
		now := time.Now()
		s.lastFailureAt = &now
		if err != nil {
			s.lastError = err.Error()
		}
	}
}

// Health returns the health of one source, nil if unknown.
func (t *HealthTracker) Health(name string) *SourceHealth {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s, ok := t.sources[name]
	if !ok {
		return nil
	}
	return s.health(name)
}

// AllHealth returns the health of every registered source.
func (t *HealthTracker) AllHealth() []*SourceHealth {
	t.mu.RLock()
	defer t.mu.RUnlock()

	health := make([]*SourceHealth, 0, len(t.sources))
	for name, s := range t.sources {
		health = append(health, s.health(name))
	}
	return health
}

func (s *trackedSource) health(name string) *SourceHealth {
	return &SourceHealth{
		Name:          name,
		CircuitState:  s.client.BreakerState(),
		Counts:        s.client.BreakerCounts(),
		LastSuccessAt: s.lastSuccessAt,
		LastFailureAt: s.lastFailureAt,
		LastError:     s.lastError,
	}
}
