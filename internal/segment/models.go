// Package segment provides the fine-grained road-segment records carrying
// measured temperature deltas, and the store the cost model reads them from.
package segment

import (
	"errors"
	"fmt"
	"time"
)

// Segment errors.
var (
	// ErrMalformedRecord indicates an unparsable segment-weather input row.
	ErrMalformedRecord = errors.New("malformed segment-weather record")
	// ErrUnknownTimeRange indicates an unsupported time-range label.
	ErrUnknownTimeRange = errors.New("unknown time-range label")
)

// ID identifies one directed way segment: a way plus an ordered node pair.
// Two IDs with swapped endpoints denote the same physical segment; lookups
// treat them as equivalent while insertions keep them distinct.
type ID struct {
	WayID    int64
	FromNode int64
	ToNode   int64
}

// Reversed returns the ID for the opposite traversal direction.
func (id ID) Reversed() ID {
	return ID{WayID: id.WayID, FromNode: id.ToNode, ToNode: id.FromNode}
}

func (id ID) String() string {
	return fmt.Sprintf("way %d: %d->%d", id.WayID, id.FromNode, id.ToNode)
}

// Window restricts a record to a half-open time-of-day interval
// [Start, End), expressed as offsets from midnight.
type Window struct {
	Start time.Duration
	End   time.Duration
}

// Contains reports whether the time-of-day offset falls inside the window.
func (w Window) Contains(timeOfDay time.Duration) bool {
	return timeOfDay >= w.Start && timeOfDay < w.End
}

// The two half-day validity windows carried by the precomputed
// segment-weather file.
var (
	WindowMorning = Window{Start: 0, End: 12 * time.Hour}
	WindowEvening = Window{Start: 12 * time.Hour, End: 24 * time.Hour}
)

// Record holds the raster-intersection slices of one physical segment:
// parallel arrays of slice lengths and measured temperature deltas. Multiple
// records may share an ID, distinguished by their validity window. Records
// are built once at startup and read-only afterwards.
type Record struct {
	ID ID

	// Window restricts when the record applies; nil means always.
	Window *Window

	// Distances holds the length in meters of each raster slice.
	Distances []float64

	// TempDeltas holds the measured temperature offset in °C of each slice,
	// parallel to Distances.
	TempDeltas []float64
}

// ValidAt reports whether the record applies at the given time-of-day offset.
func (r *Record) ValidAt(timeOfDay time.Duration) bool {
	return r.Window == nil || r.Window.Contains(timeOfDay)
}

// TotalDistance returns the aggregate distance across all slices.
func (r *Record) TotalDistance() float64 {
	var total float64
	for _, d := range r.Distances {
		total += d
	}
	return total
}

// TimeOfDay returns t's offset from midnight in t's location.
func TimeOfDay(t time.Time) time.Duration {
	hour, minute, sec := t.Clock()
	return time.Duration(hour)*time.Hour +
		time.Duration(minute)*time.Minute +
		time.Duration(sec)*time.Second
}
