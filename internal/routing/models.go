// Package routing defines the weighted-shortest-path oracle the heat-aware
// core plugs into: the edge representation handed to cost callbacks, the
// route result shape, and typed engine errors.
package routing

import (
	"context"
	"errors"
	"time"

	"github.com/coolroute/coolroute/pkg/geo"
)

// Sentinel errors for routing operations.
var (
	// ErrNoRouteFound indicates no valid route exists between the given points.
	ErrNoRouteFound = errors.New("no route found between the given points")
	// ErrEngineUnavailable indicates the path engine rejected the query.
	ErrEngineUnavailable = errors.New("path engine unavailable")
	// ErrInvalidCoordinates indicates the provided coordinates are out of range.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
)

// Edge is one path-engine edge as presented to a cost callback. The way and
// node identifiers are the engine's external (OSM-style) ids; the anchor
// assignment is known to be occasionally wrong upstream, which the segment
// matcher compensates for.
type Edge struct {
	// WayID is the external way identifier, 0 for synthetic edges.
	WayID int64

	// BaseNode is the authoritative anchor node id of the edge.
	BaseNode int64

	// AdjacentNode is the opposite anchor node id; 0 when the engine does
	// not report one. May be incorrect even when present.
	AdjacentNode int64

	// Geometry holds the ordered approximate points describing the edge's
	// path, endpoints included.
	Geometry []geo.Point

	// Distance is the physical edge length in meters.
	Distance float64

	// Synthetic marks routing-time snap edges with no underlying way.
	Synthetic bool
}

// CostFunc computes the weight of an edge when entered at the given time.
// A returned error aborts the route query; engines must not swallow it.
type CostFunc func(edge Edge, at time.Time) (float64, error)

// DistanceCost weights every edge by its physical length. It is the
// reference cost for plain shortest routes and walk-time estimates.
func DistanceCost(edge Edge, _ time.Time) (float64, error) {
	return edge.Distance, nil
}

// Route is the result of one oracle query.
type Route struct {
	// Distance is the total route length in meters.
	Distance float64

	// Duration is the estimated walking time.
	Duration time.Duration

	// Cost is the accumulated edge cost under the query's cost function.
	Cost float64

	// Path is the route geometry.
	Path []geo.Point

	// Errors collects non-fatal engine warnings encountered during search.
	Errors []Error
}

// Engine is the weighted-shortest-path oracle. Implementations must support
// concurrent read-only queries and must invoke the cost function for every
// real edge considered, flagging synthetic snap edges as such.
type Engine interface {
	// Route computes the minimal-cost route between two points for a
	// departure at the given time.
	Route(ctx context.Context, start, end geo.Point, at time.Time, cost CostFunc) (*Route, error)
}

// Error provides detailed error information from the path engine.
type Error struct {
	Engine  string // Engine that generated the error
	Code    string // Error code from the engine
	Message string // Human-readable error message
	Err     error  // Underlying error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}
