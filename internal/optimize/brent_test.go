package optimize

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMinimizeBrent_Parabola(t *testing.T) {
	f := func(x float64) float64 { return (x - 3) * (x - 3) }

	for _, x0 := range []float64{0.5, 3.0, 7.0, 9.9} {
		x, fx := minimizeBrent(f, 0, 10, x0, relTolerance, 0.1, 100)
		assert.InDelta(t, 3.0, x, 0.25, "start %f", x0)
		assert.InDelta(t, 0.0, fx, 0.1, "start %f", x0)
	}
}

func TestMinimizeBrent_MinimumAtBoundary(t *testing.T) {
	// Monotonically increasing: the minimum sits at the lower bracket edge.
	f := func(x float64) float64 { return x }

	x, _ := minimizeBrent(f, 2, 10, 6, relTolerance, 0.1, 100)
	assert.InDelta(t, 2.0, x, 0.5)
}

func TestMinimizeBrent_InfeasibleRegion(t *testing.T) {
	// The right half is infeasible; the search must settle in the left.
	f := func(x float64) float64 {
		if x > 5 {
			return math.Inf(1)
		}
		return (x - 4) * (x - 4)
	}

	x, fx := minimizeBrent(f, 0, 10, 2, relTolerance, 0.1, 100)
	assert.InDelta(t, 4.0, x, 0.25)
	assert.False(t, math.IsInf(fx, 1))
}

func TestMinimizeBrent_OutOfBracketStartIsClamped(t *testing.T) {
	f := func(x float64) float64 { return (x - 3) * (x - 3) }

	x, _ := minimizeBrent(f, 0, 10, -5, relTolerance, 0.1, 100)
	assert.InDelta(t, 3.0, x, 0.25)
}

func TestMinimizeBrent_RespectsEvaluationBudget(t *testing.T) {
	evals := 0
	f := func(x float64) float64 {
		evals++
		return math.Sin(x*50) + x*x
	}

	minimizeBrent(f, -10, 10, 1, relTolerance, 1e-12, 100)
	assert.LessOrEqual(t, evals, 100)
}
