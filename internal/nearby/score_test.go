package nearby_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coolroute/coolroute/internal/nearby"
)

func TestWeightedSum_DegenerateBounds(t *testing.T) {
	// A single survivor has min == max on both axes; its score is zero
	// rather than NaN.
	score := nearby.WeightedSum(0.5, 0.5)
	b := nearby.Bounds{MinDistance: 100, MaxDistance: 100, MinValue: 5, MaxValue: 5}
	assert.Equal(t, 0.0, score(100, 5, b))
}

func TestWeightedSum_CustomWeights(t *testing.T) {
	score := nearby.WeightedSum(1, 0)
	b := nearby.Bounds{MinDistance: 0, MaxDistance: 1000, MinValue: 0, MaxValue: 10}

	// Distance-only weighting ignores the value axis entirely.
	assert.InDelta(t, 0.25, score(250, 10, b), 1e-9)
	assert.InDelta(t, 0.25, score(250, 0, b), 1e-9)
}

func TestComfortOnly_IgnoresBounds(t *testing.T) {
	score := nearby.ComfortOnly()
	assert.Equal(t, 7.5, score(9999, 7.5, nearby.Bounds{MinValue: 0, MaxValue: 1}))
}
