package weather

import (
	"sort"
	"time"
)

// Series is an immutable, time-ordered collection of weather samples.
// Lookups inside [first, last) return the exact sample when one matches the
// queried time, and a linear interpolation between the two bracketing samples
// otherwise. A Series is safe for concurrent readers; it is never mutated
// after construction.
type Series struct {
	samples []Sample
}

// NewSeries builds a series from the given samples. Samples are sorted by
// time; duplicate or unordered timestamps after sorting are rejected.
func NewSeries(samples []Sample) (*Series, error) {
	if len(samples) == 0 {
		return nil, ErrEmptySeries
	}

	owned := make([]Sample, len(samples))
	copy(owned, samples)
	sort.Slice(owned, func(i, j int) bool {
		return owned[i].Time.Before(owned[j].Time)
	})

	for i := 1; i < len(owned); i++ {
		if !owned[i-1].Time.Before(owned[i].Time) {
			return nil, ErrUnorderedSamples
		}
	}

	return &Series{samples: owned}, nil
}

// First returns the earliest sample time.
func (s *Series) First() time.Time {
	return s.samples[0].Time
}

// Last returns the latest sample time. The covered range is [First, Last):
// Last itself is outside the range because no later sample exists to
// interpolate against.
func (s *Series) Last() time.Time {
	return s.samples[len(s.samples)-1].Time
}

// InRange reports whether t lies within the covered range [first, last).
func (s *Series) InRange(t time.Time) bool {
	return !t.Before(s.First()) && t.Before(s.Last())
}

// Temperature returns the temperature in °C at t.
func (s *Series) Temperature(t time.Time) (float64, error) {
	return s.interpolate(t, func(smp Sample) float64 { return smp.Temperature })
}

// RelativeHumidity returns the relative humidity percentage at t.
func (s *Series) RelativeHumidity(t time.Time) (float64, error) {
	return s.interpolate(t, func(smp Sample) float64 { return smp.Humidity })
}

// HeatIndexAt returns the heat index at t. The boolean is false when the
// interpolated temperature or humidity falls outside the heat-index validity
// domain; that is not an error, callers use the raw temperature instead.
func (s *Series) HeatIndexAt(t time.Time) (float64, bool, error) {
	temp, err := s.Temperature(t)
	if err != nil {
		return 0, false, err
	}
	humidity, err := s.RelativeHumidity(t)
	if err != nil {
		return 0, false, err
	}

	hi, ok := HeatIndex(temp, humidity)
	return hi, ok, nil
}

// interpolate returns the exact sample value at t, or the linear
// interpolation between the two samples bracketing t.
func (s *Series) interpolate(t time.Time, value func(Sample) float64) (float64, error) {
	if !s.InRange(t) {
		return 0, ErrOutOfRange
	}

	// Index of the first sample at or after t.
	idx := sort.Search(len(s.samples), func(i int) bool {
		return !s.samples[i].Time.Before(t)
	})

	if s.samples[idx].Time.Equal(t) {
		return value(s.samples[idx]), nil
	}

	lower := s.samples[idx-1]
	upper := s.samples[idx]

	span := upper.Time.Sub(lower.Time).Seconds()
	frac := t.Sub(lower.Time).Seconds() / span

	lo := value(lower)
	hi := value(upper)
	return lo + (hi-lo)*frac, nil
}

// Len returns the number of samples in the series.
func (s *Series) Len() int {
	return len(s.samples)
}
