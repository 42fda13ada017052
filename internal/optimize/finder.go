package optimize

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/coolroute/coolroute/internal/place"
	"github.com/coolroute/coolroute/internal/routing"
	"github.com/coolroute/coolroute/pkg/geo"
)

// relTolerance is twice the double-precision machine epsilon, the tightest
// relative tolerance Brent's method can resolve.
var relTolerance = 2 * (math.Nextafter(1, 2) - 1)

// Config holds the collaborators and tuning of a finder.
type Config struct {
	// Objective values candidate departure times.
	Objective Objective

	// Routes supplies the plain-shortest route used as the walk-time
	// estimate when bounding feasible windows.
	Routes *routing.Service

	// Places resolves opening hours.
	Places place.Index

	// Buffer is the margin kept between arrival and closing time
	// (default: 15 minutes).
	Buffer time.Duration

	// Restarts is the number of independent optimizer starts per window
	// (default: 10).
	Restarts int

	// Seed drives restart point selection. Fixed per finder, so repeated
	// calls with identical inputs return identical results.
	Seed int64

	// MaxEvaluations bounds objective evaluations per restart
	// (default: 100).
	MaxEvaluations int

	// Tolerance is the absolute convergence tolerance on the departure
	// time (default: 100ms).
	Tolerance time.Duration

	// Logger for finder operations.
	Logger zerolog.Logger
}

// Finder searches for the least heat-exposing departure time. Stateless
// between calls; safe for concurrent use.
type Finder struct {
	objective Objective
	routes    *routing.Service
	places    place.Index
	buffer    time.Duration
	restarts  int
	seed      int64
	maxEvals  int
	tolerance time.Duration
	logger    zerolog.Logger
}

// NewFinder creates a finder.
func NewFinder(cfg Config) *Finder {
	buffer := cfg.Buffer
	if buffer == 0 {
		buffer = 15 * time.Minute
	}
	restarts := cfg.Restarts
	if restarts == 0 {
		restarts = 10
	}
	maxEvals := cfg.MaxEvaluations
	if maxEvals == 0 {
		maxEvals = 100
	}
	tolerance := cfg.Tolerance
	if tolerance == 0 {
		tolerance = 100 * time.Millisecond
	}

	return &Finder{
		objective: cfg.Objective,
		routes:    cfg.Routes,
		places:    cfg.Places,
		buffer:    buffer,
		restarts:  restarts,
		seed:      cfg.Seed,
		maxEvals:  maxEvals,
		tolerance: tolerance,
		logger:    cfg.Logger,
	}
}

// Request describes one optimal-time query.
type Request struct {
	// Start is the walk's origin.
	Start geo.Point

	// Place is the destination; its opening hours bound the search.
	Place place.Place

	// Date is the day whose opening hours apply.
	Date time.Time

	// Now is the earliest realistic departure; windows already past are
	// skipped.
	Now time.Time

	// NotBefore and NotAfter optionally tighten the searched time range.
	// Zero values mean unbounded.
	NotBefore time.Time
	NotAfter  time.Time
}

// Result is the outcome of one optimal-time query.
type Result struct {
	// Place is the destination the result refers to.
	Place place.Place

	// OptimalTime is the best departure time found.
	OptimalTime time.Time

	// OptimalValue is the objective value at OptimalTime. Comparable only
	// across results of the same objective.
	OptimalValue float64

	// Distance and WalkDuration describe the route behind the result.
	Distance     float64
	WalkDuration time.Duration

	// OptimalPath is the geometry of the route behind the result.
	OptimalPath []geo.Point

	// ShortestPath is the plain-shortest reference route's geometry.
	ShortestPath []geo.Point

	// Degraded marks a result whose time was shifted for feasibility but
	// whose route still reflects the pre-shift departure. The pairing is
	// inconsistent; callers should present it with care.
	Degraded bool
}

// Find returns the least heat-exposing feasible departure for walking from
// start to the place on the given date. A nil result with a nil error means
// no opening-hours window leaves room for the walk; that is an answer, not
// a failure.
func (f *Finder) Find(ctx context.Context, req Request) (*Result, error) {
	windows, err := f.places.OpeningHours(ctx, req.Place.ID, req.Date)
	if err != nil {
		return nil, err
	}
	if len(windows) == 0 {
		return nil, nil
	}

	// The plain-shortest route's duration is the walk-time estimate that
	// bounds how late a departure can still beat closing time.
	shortest, err := f.routes.ShortestRoute(ctx, req.Start, req.Place.Location, req.Now)
	if err != nil {
		return nil, err
	}

	var best *Result
	for _, window := range windows {
		result, err := f.searchWindow(ctx, req, window, shortest)
		if err != nil {
			return nil, err
		}
		if result == nil {
			continue
		}
		if best == nil || result.OptimalValue < best.OptimalValue {
			best = result
		}
	}
	return best, nil
}

func (f *Finder) searchWindow(ctx context.Context, req Request, window place.OpeningWindow, shortest *routing.Route) (*Result, error) {
	lower := window.Open
	if req.Now.After(lower) {
		lower = req.Now
	}
	if !req.NotBefore.IsZero() && req.NotBefore.After(lower) {
		lower = req.NotBefore
	}

	upper := window.Close.Add(-f.buffer - shortest.Duration)
	if !req.NotAfter.IsZero() && req.NotAfter.Before(upper) {
		upper = req.NotAfter
	}

	if !upper.After(lower) {
		f.logger.Debug().
			Str("place_id", req.Place.ID).
			Time("open", window.Open).
			Time("close", window.Close).
			Msg("opening window leaves no feasible departure")
		return nil, nil
	}

	span := upper.Sub(lower).Seconds()
	objective := func(s float64) float64 {
		return f.objective.Evaluate(ctx, req.Start, req.Place.Location, lower.Add(time.Duration(s*float64(time.Second))))
	}

	// Multi-start: thermal cost over a day is typically bimodal, so a
	// single local search can settle on the wrong valley.
	rng := rand.New(rand.NewSource(f.seed))
	bestX := 0.0
	bestVal := math.Inf(1)
	for i := 0; i < f.restarts; i++ {
		x0 := rng.Float64() * span
		x, fx := minimizeBrent(objective, 0, span, x0, relTolerance, f.tolerance.Seconds(), f.maxEvals)
		if fx < bestVal {
			bestX, bestVal = x, fx
		}
	}
	if math.IsInf(bestVal, 1) {
		return nil, nil
	}

	optimalTime := lower.Add(time.Duration(bestX * float64(time.Second)))
	result := &Result{
		Place:        req.Place,
		OptimalTime:  optimalTime,
		OptimalValue: bestVal,
		Distance:     shortest.Distance,
		WalkDuration: shortest.Duration,
		OptimalPath:  shortest.Path,
		ShortestPath: shortest.Path,
	}

	routeObjective, ok := f.objective.(RouteObjective)
	if !ok {
		return result, nil
	}
	return f.verifyFeasibility(ctx, req, window, routeObjective, result)
}

// verifyFeasibility re-checks a route-based result against the actual
// route's walk duration instead of the estimate, shifting the departure
// earlier exactly once if arrival would miss the window.
func (f *Finder) verifyFeasibility(ctx context.Context, req Request, window place.OpeningWindow, objective RouteObjective, result *Result) (*Result, error) {
	route, err := objective.Route(ctx, req.Start, req.Place.Location, result.OptimalTime)
	if err != nil {
		return nil, err
	}
	result.Distance = route.Distance
	result.WalkDuration = route.Duration
	result.OptimalPath = route.Path

	arrival := result.OptimalTime.Add(route.Duration + f.buffer)
	if !arrival.After(window.Close) {
		return result, nil
	}

	overshoot := arrival.Sub(window.Close)
	shifted := result.OptimalTime.Add(-overshoot)
	reRouted, err := objective.Route(ctx, req.Start, req.Place.Location, shifted)
	if err != nil {
		return nil, err
	}

	result.OptimalTime = shifted
	if !shifted.Add(reRouted.Duration + f.buffer).After(window.Close) {
		result.Distance = reRouted.Distance
		result.WalkDuration = reRouted.Duration
		result.OptimalPath = reRouted.Path
		return result, nil
	}

	// Still infeasible after the shift: keep the shifted time paired with
	// the pre-shift route rather than iterating further.
	f.logger.Warn().
		Str("place_id", req.Place.ID).
		Time("shifted", shifted).
		Dur("overshoot", overshoot).
		Msg("departure still infeasible after shift, returning degraded result")
	result.Degraded = true
	return result, nil
}
