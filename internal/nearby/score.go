// Package nearby turns a radius query for a destination category into a
// scored, ranked list of candidates, each with its own least heat-exposing
// departure time.
package nearby

// Bounds holds the min/max of distance and objective value across the
// surviving candidates of one search, used for score normalization.
type Bounds struct {
	MinDistance, MaxDistance float64
	MinValue, MaxValue       float64
}

// ScoreFunc maps a candidate's distance and objective value to a score.
// Lower is better.
type ScoreFunc func(distance, value float64, b Bounds) float64

// WeightedSum normalizes distance and value to [0,1] against the search's
// bounds and combines them with the given weights (default 0.5/0.5 when
// both are zero). When all candidates share the same distance or value,
// that term contributes nothing.
func WeightedSum(distanceWeight, valueWeight float64) ScoreFunc {
	if distanceWeight == 0 && valueWeight == 0 {
		distanceWeight = 0.5
		valueWeight = 0.5
	}
	return func(distance, value float64, b Bounds) float64 {
		return distanceWeight*normalize(distance, b.MinDistance, b.MaxDistance) +
			valueWeight*normalize(value, b.MinValue, b.MaxValue)
	}
}

// ComfortOnly scores by the raw objective value, no normalization. Used
// when the value already reflects a concrete route cost.
func ComfortOnly() ScoreFunc {
	return func(_, value float64, _ Bounds) float64 {
		return value
	}
}

func normalize(v, min, max float64) float64 {
	if max <= min {
		return 0
	}
	return (v - min) / (max - min)
}
