// Package place provides the point-of-interest index the nearby search and
// the optimal-time finder consume: k-nearest-neighbor queries, opening
// hours, and the road-network way topology the segment matcher reads.
package place

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/coolroute/coolroute/pkg/geo"
)

// Place errors.
var (
	// ErrPlaceNotFound indicates the place id is unknown to the index.
	ErrPlaceNotFound = errors.New("place not found")
)

// Place is one point of interest.
type Place struct {
	ID       string
	Name     string
	Category string
	Location geo.Point

	// WayID is the way the place snaps to, 0 if unknown.
	WayID int64

	// HasOpeningHours reports whether the place declares opening hours.
	// Candidates without declared hours cannot be time-optimized.
	HasOpeningHours bool
}

// Predicate filters candidate places during a nearest-neighbor query.
type Predicate func(Place) bool

// CategoryWithHours returns a predicate matching places of the given
// category that declare opening hours, the standard nearby-search filter.
func CategoryWithHours(category string) Predicate {
	return func(p Place) bool {
		return p.Category == category && p.HasOpeningHours
	}
}

// OpeningWindow is one absolute opening interval on a concrete date.
// Windows for a single place and date are disjoint.
type OpeningWindow struct {
	Open  time.Time
	Close time.Time
}

// OpeningRule is a recurring opening interval: a time-of-day range,
// optionally restricted to one weekday.
type OpeningRule struct {
	// Weekday restricts the rule to a single day; nil means every day.
	Weekday *time.Weekday

	// Open and Close are offsets from midnight, Open < Close.
	Open  time.Duration
	Close time.Duration
}

// AppliesOn reports whether the rule is active on the given date.
func (r OpeningRule) AppliesOn(date time.Time) bool {
	return r.Weekday == nil || *r.Weekday == date.Weekday()
}

// Materialize turns the rule into an absolute window on the given date.
func (r OpeningRule) Materialize(date time.Time) OpeningWindow {
	midnight := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	return OpeningWindow{
		Open:  midnight.Add(r.Open),
		Close: midnight.Add(r.Close),
	}
}

// sortByDistance orders places by ascending haversine distance from origin,
// breaking ties on id for determinism.
func sortByDistance(places []Place, origin geo.Point) {
	sort.Slice(places, func(i, j int) bool {
		di := geo.Distance(origin, places[i].Location)
		dj := geo.Distance(origin, places[j].Location)
		if di != dj {
			return di < dj
		}
		return places[i].ID < places[j].ID
	})
}

func cosDeg(deg float64) float64 {
	c := math.Cos(deg * math.Pi / 180)
	if c < 0.01 {
		return 0.01
	}
	return c
}

// Index is the point-of-interest query surface. Implementations must be safe
// for concurrent read access; the nearby search fans out over candidates.
type Index interface {
	// NearestNeighbors returns up to k places within maxDistance meters of
	// origin that satisfy the predicate, ordered by ascending distance.
	NearestNeighbors(ctx context.Context, origin geo.Point, k int, maxDistance float64, pred Predicate) ([]Place, error)

	// OpeningHours returns the place's disjoint opening windows on the
	// given date. An empty slice means closed all day.
	OpeningHours(ctx context.Context, placeID string, date time.Time) ([]OpeningWindow, error)

	// Place resolves a place by id, ErrPlaceNotFound when unknown.
	Place(ctx context.Context, placeID string) (Place, error)
}
