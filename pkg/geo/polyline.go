package geo

// Polyline encoding and decoding for Google's polyline algorithm at the
// standard precision of 5 decimal places. Route geometry crosses the API
// boundary in this format.

// DecodePolyline decodes a polyline-encoded string into a slice of points.
func DecodePolyline(encoded string) []Point {
	if encoded == "" {
		return nil
	}

	var points []Point
	index := 0
	lat := 0
	lon := 0

	for index < len(encoded) {
		latDelta, newIndex := decodePolylineValue(encoded, index)
		index = newIndex
		lat += latDelta

		lonDelta, newIndex := decodePolylineValue(encoded, index)
		index = newIndex
		lon += lonDelta

		points = append(points, Point{
			Lat: float64(lat) / 1e5,
			Lon: float64(lon) / 1e5,
		})
	}

	return points
}

// decodePolylineValue decodes a single value from the polyline at the given
// index. Returns the decoded delta value and the new index position.
func decodePolylineValue(encoded string, index int) (int, int) {
	shift := 0
	result := 0

	for index < len(encoded) {
		b := int(encoded[index]) - 63
		index++
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
	}

	// Two's complement for negative values
	if result&1 != 0 {
		return ^(result >> 1), index
	}
	return result >> 1, index
}

// EncodePolyline encodes a slice of points into a polyline-encoded string.
func EncodePolyline(points []Point) string {
	if len(points) == 0 {
		return ""
	}

	encoded := make([]byte, 0, len(points)*4)
	prevLat := 0
	prevLon := 0

	for _, p := range points {
		lat := int(roundHalfAway(p.Lat * 1e5))
		lon := int(roundHalfAway(p.Lon * 1e5))

		encoded = appendPolylineValue(encoded, lat-prevLat)
		encoded = appendPolylineValue(encoded, lon-prevLon)

		prevLat = lat
		prevLon = lon
	}

	return string(encoded)
}

// appendPolylineValue encodes a single delta value and appends it.
func appendPolylineValue(dst []byte, value int) []byte {
	v := value << 1
	if value < 0 {
		v = ^v
	}

	for v >= 0x20 {
		dst = append(dst, byte((0x20|(v&0x1f))+63))
		v >>= 5
	}
	dst = append(dst, byte(v+63))

	return dst
}

// roundHalfAway rounds half away from zero, matching the reference
// polyline implementations.
func roundHalfAway(v float64) float64 {
	if v < 0 {
		return -float64(int(-v + 0.5))
	}
	return float64(int(v + 0.5))
}
