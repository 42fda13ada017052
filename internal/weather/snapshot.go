package weather

import "sync/atomic"

// Snapshot holds the currently active weather series. Refreshes install a
// freshly built series via an atomic pointer swap between search invocations;
// in-flight searches keep reading the series they started with. The series
// itself is never mutated in place.
type Snapshot struct {
	current atomic.Pointer[Series]
}

// NewSnapshot creates a snapshot holding the given initial series.
func NewSnapshot(initial *Series) *Snapshot {
	s := &Snapshot{}
	s.current.Store(initial)
	return s
}

// Current returns the active series. May be nil before the first Swap.
func (s *Snapshot) Current() *Series {
	return s.current.Load()
}

// Swap replaces the active series and returns the previous one.
func (s *Snapshot) Swap(next *Series) *Series {
	return s.current.Swap(next)
}
