// Package optimize finds the least heat-exposing departure time for a walk
// to a place, subject to the place's opening hours, a walking-time buffer,
// and caller-supplied bounds. The search is a multi-start run of Brent's
// method over each feasible window; thermal cost over a day is typically
// bimodal, so a single local search is not enough.
package optimize

import (
	"context"
	"math"
	"time"

	"github.com/coolroute/coolroute/internal/routing"
	"github.com/coolroute/coolroute/internal/weather"
	"github.com/coolroute/coolroute/pkg/geo"
)

// Objective maps a candidate departure time to a scalar discomfort value.
// Lower is better. Implementations return +Inf for times they cannot
// evaluate (no weather coverage, route failure); the optimizer treats those
// points as infeasible rather than failing.
type Objective interface {
	Evaluate(ctx context.Context, start, end geo.Point, at time.Time) float64
}

// RouteObjective is an Objective whose value is derived from an actual
// route query. The finder uses the route behind the optimal time to verify
// feasibility against the real walk duration instead of the estimate.
type RouteObjective interface {
	Objective

	// Route computes the route the objective value at the given time is
	// based on.
	Route(ctx context.Context, start, end geo.Point, at time.Time) (*routing.Route, error)
}

// ThermalComfortObjective values a departure time by the perceived heat at
// that moment, independent of any route. Cheap to evaluate; suited to
// ranking many candidates.
type ThermalComfortObjective struct {
	weather *weather.Snapshot
}

// NewThermalComfortObjective creates an objective over the given snapshot.
func NewThermalComfortObjective(snapshot *weather.Snapshot) *ThermalComfortObjective {
	return &ThermalComfortObjective{weather: snapshot}
}

// Evaluate returns the heat index at the candidate time, falling back to
// raw temperature outside the heat-index domain, and +Inf outside the
// series' covered range.
func (o *ThermalComfortObjective) Evaluate(_ context.Context, _, _ geo.Point, at time.Time) float64 {
	series := o.weather.Current()
	if series == nil {
		return math.Inf(1)
	}
	temp, err := series.Temperature(at)
	if err != nil {
		return math.Inf(1)
	}
	humidity, err := series.RelativeHumidity(at)
	if err != nil {
		return math.Inf(1)
	}
	return weather.HeatIndexOrTemperature(temp, humidity)
}

// RouteCostObjective values a departure time by the cost of the optimal
// heat-aware route departing then. Each evaluation is a full route query,
// so restarts are expensive; the value reflects the concrete route a walker
// would take.
type RouteCostObjective struct {
	routes *routing.Service
	cost   routing.CostFunc
}

// NewRouteCostObjective creates an objective that routes with the given
// cost function, typically a cost model's EdgeCost.
func NewRouteCostObjective(routes *routing.Service, cost routing.CostFunc) *RouteCostObjective {
	return &RouteCostObjective{routes: routes, cost: cost}
}

// Evaluate returns the cost of the optimal route departing at the candidate
// time, or +Inf when no route can be computed.
func (o *RouteCostObjective) Evaluate(ctx context.Context, start, end geo.Point, at time.Time) float64 {
	route, err := o.routes.Route(ctx, start, end, at, o.cost)
	if err != nil {
		return math.Inf(1)
	}
	return route.Cost
}

// Route computes the heat-aware route departing at the given time.
func (o *RouteCostObjective) Route(ctx context.Context, start, end geo.Point, at time.Time) (*routing.Route, error) {
	return o.routes.Route(ctx, start, end, at, o.cost)
}
