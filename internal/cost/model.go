// Package cost implements the heat-exposure edge cost model. A model blends
// an edge's physical distance with measured per-segment temperature deltas
// and the weather at departure time, and plugs into the path engine as its
// edge cost callback.
package cost

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/coolroute/coolroute/internal/matching"
	"github.com/coolroute/coolroute/internal/routing"
	"github.com/coolroute/coolroute/internal/segment"
	"github.com/coolroute/coolroute/internal/weather"
)

// ErrNegativeCost indicates an internal-consistency fault: a computed edge
// cost came out negative, which means corrupted segment data or a matcher
// bug, never missing coverage. It aborts the request rather than being
// clamped away.
var ErrNegativeCost = errors.New("negative edge cost")

// ComfortFloor is the temperature in °C below which walking is considered
// thermally free of stress. Costs never drop below distance × ComfortFloor,
// so cool segments cannot undercut shorter routes.
const ComfortFloor = 20.0

// Variant selects how thermal discomfort enters the edge cost.
type Variant int

const (
	// VariantTemperature weights each slice by air temperature plus the
	// measured delta.
	VariantTemperature Variant = iota

	// VariantHeatIndex weights each slice by perceived heat, falling back
	// to raw temperature outside the heat-index validity domain.
	VariantHeatIndex

	// VariantWeightedHeatIndex blends distance and perceived heat as a
	// weighted product per slice, trading length against comfort
	// continuously.
	VariantWeightedHeatIndex
)

// Config holds the collaborators and tuning of a cost model.
type Config struct {
	// Weather is the active weather series, shared read-only.
	Weather *weather.Series

	// Segments is the segment-weather store, shared read-only.
	Segments *segment.Store

	// Matcher reconciles engine edges with way segments.
	Matcher *matching.Matcher

	// Variant selects the cost formula.
	Variant Variant

	// DistanceWeight and ThermalWeight are the exponents of the weighted
	// product variant, each in [0,1] (default: 0.5/0.5). Ignored by the
	// other variants.
	DistanceWeight float64
	ThermalWeight  float64

	// Logger for model operations.
	Logger zerolog.Logger
}

// Model computes heat-exposure edge costs. Safe for concurrent use; all
// state is read-only.
type Model struct {
	weather        *weather.Series
	segments       *segment.Store
	matcher        *matching.Matcher
	variant        Variant
	distanceWeight float64
	thermalWeight  float64
	logger         zerolog.Logger
}

// New creates a cost model.
func New(cfg Config) *Model {
	distanceWeight := cfg.DistanceWeight
	thermalWeight := cfg.ThermalWeight
	if distanceWeight == 0 && thermalWeight == 0 {
		distanceWeight = 0.5
		thermalWeight = 0.5
	}

	return &Model{
		weather:        cfg.Weather,
		segments:       cfg.Segments,
		matcher:        cfg.Matcher,
		variant:        cfg.Variant,
		distanceWeight: distanceWeight,
		thermalWeight:  thermalWeight,
		logger:         cfg.Logger,
	}
}

// EdgeCost computes the cost of entering an edge at the given time. It is a
// routing.CostFunc. Data-coverage gaps (synthetic edges, unmatched geometry,
// missing segment records, weather outside the covered range) fall back to
// the edge's physical distance and never fail the query.
func (m *Model) EdgeCost(edge routing.Edge, at time.Time) (float64, error) {
	if edge.Synthetic {
		return edge.Distance, nil
	}

	// No series loaded yet (snapshot awaiting its first refresh) is a
	// coverage gap like any other.
	if m.weather == nil {
		return edge.Distance, nil
	}

	ids, ok := m.matcher.Match(edge.WayID, edge.Geometry, edge.BaseNode, edge.AdjacentNode)
	if !ok || len(ids) == 0 {
		return edge.Distance, nil
	}

	meanTemp, err := m.weather.Temperature(at)
	if err != nil {
		// No weather coverage for this time; the edge still routes.
		return edge.Distance, nil
	}
	humidity, err := m.weather.RelativeHumidity(at)
	if err != nil {
		return edge.Distance, nil
	}

	timeOfDay := segment.TimeOfDay(at)

	var total float64
	matched := 0
	for _, id := range ids {
		record, ok := m.segments.Lookup(id, timeOfDay)
		if !ok {
			continue
		}
		matched++
		total += m.recordCost(record, meanTemp, humidity)
	}

	if matched == 0 {
		return edge.Distance, nil
	}

	if total < 0 || math.IsNaN(total) {
		m.logger.Error().
			Int64("way_id", edge.WayID).
			Float64("cost", total).
			Time("at", at).
			Msg("computed negative edge cost")
		return 0, fmt.Errorf("way %d at %s: cost %f: %w", edge.WayID, at, total, ErrNegativeCost)
	}

	return total, nil
}

// recordCost accumulates the cost contribution of one segment record's
// raster slices.
func (m *Model) recordCost(record *segment.Record, meanTemp, humidity float64) float64 {
	var sum float64
	for i, distance := range record.Distances {
		sliceTemp := meanTemp + record.TempDeltas[i]

		switch m.variant {
		case VariantTemperature:
			sum += distance * math.Max(sliceTemp, ComfortFloor)
		case VariantHeatIndex:
			perceived := weather.HeatIndexOrTemperature(sliceTemp, humidity)
			sum += distance * math.Max(perceived, ComfortFloor)
		case VariantWeightedHeatIndex:
			perceived := weather.HeatIndexOrTemperature(sliceTemp, humidity)
			clamped := math.Max(perceived, ComfortFloor)
			sum += math.Pow(distance, m.distanceWeight) * math.Pow(clamped, m.thermalWeight)
		}
	}
	return sum
}
