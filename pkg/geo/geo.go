// Package geo provides geographic primitives shared across the routing core:
// points, haversine distances, and polyline encoding.
package geo

import "math"

// Point represents a geographic point with latitude and longitude.
type Point struct {
	Lat float64
	Lon float64
}

// Valid reports whether the point is within valid coordinate ranges.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// Distance calculates the distance between two points in meters
// using the Haversine formula.
func Distance(a, b Point) float64 {
	const earthRadius = 6371000 // meters

	lat1Rad := a.Lat * math.Pi / 180
	lat2Rad := b.Lat * math.Pi / 180
	deltaLat := (b.Lat - a.Lat) * math.Pi / 180
	deltaLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadius * c
}

// PathDistance sums the haversine distances along an ordered sequence of points.
func PathDistance(points []Point) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		total += Distance(points[i-1], points[i])
	}
	return total
}
