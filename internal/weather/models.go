// Package weather provides the time-indexed temperature and humidity series
// that the heat-exposure cost model reads, including the derived heat index.
package weather

import (
	"errors"
	"time"
)

// Weather errors.
var (
	// ErrOutOfRange indicates the queried time lies outside [first, last).
	ErrOutOfRange = errors.New("time outside covered weather range")
	// ErrEmptySeries indicates a series was constructed without samples.
	ErrEmptySeries = errors.New("weather series has no samples")
	// ErrUnorderedSamples indicates sample times are not strictly increasing.
	ErrUnorderedSamples = errors.New("weather samples not strictly increasing in time")
)

// Sample is one weather-station measurement. Immutable.
type Sample struct {
	// Time of the measurement.
	Time time.Time

	// Temperature in degrees Celsius.
	Temperature float64

	// Humidity is the relative humidity percentage (0-100).
	Humidity float64
}

// Heat-index validity domain. Outside this domain the regression has no
// empirical support and the index is reported as undefined.
const (
	HeatIndexMinTemperature = 20.0
	HeatIndexMaxTemperature = 50.0
	HeatIndexMinHumidity    = 0.0
	HeatIndexMaxHumidity    = 100.0
)

// HeatIndex computes the perceived heat for the given temperature (°C) and
// relative humidity (%) using the Rothfusz regression with Celsius
// coefficients. The second return value is false when the inputs fall outside
// the empirical validity domain; callers fall back to the raw temperature.
func HeatIndex(temperature, humidity float64) (float64, bool) {
	if temperature < HeatIndexMinTemperature || temperature > HeatIndexMaxTemperature {
		return 0, false
	}
	if humidity < HeatIndexMinHumidity || humidity > HeatIndexMaxHumidity {
		return 0, false
	}

	const (
		c1 = -8.78469475556
		c2 = 1.61139411
		c3 = 2.33854883889
		c4 = -0.14611605
		c5 = -0.012308094
		c6 = -0.0164248277778
		c7 = 2.211732e-3
		c8 = 7.2546e-4
		c9 = -3.582e-6
	)

	t := temperature
	r := humidity

	hi := c1 + c2*t + c3*r + c4*t*r +
		c5*t*t + c6*r*r +
		c7*t*t*r + c8*t*r*r +
		c9*t*t*r*r

	return hi, true
}

// HeatIndexOrTemperature returns the heat index when defined, otherwise the
// raw temperature. This is the standard fallback for cost computations.
func HeatIndexOrTemperature(temperature, humidity float64) float64 {
	if hi, ok := HeatIndex(temperature, humidity); ok {
		return hi
	}
	return temperature
}
