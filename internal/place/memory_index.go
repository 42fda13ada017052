package place

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/coolroute/coolroute/pkg/geo"
)

// MemoryIndex is an in-memory implementation of Index plus the way-topology
// queries the segment matcher needs. Construction happens at startup; the
// index is read-only afterwards and safe for concurrent readers.
type MemoryIndex struct {
	mu     sync.RWMutex
	places map[string]Place
	hours  map[string][]OpeningRule

	wayNodes   map[int64][]int64
	nodeCoords map[int64]geo.Point
}

// NewMemoryIndex creates an empty in-memory place index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		places:     make(map[string]Place),
		hours:      make(map[string][]OpeningRule),
		wayNodes:   make(map[int64][]int64),
		nodeCoords: make(map[int64]geo.Point),
	}
}

// AddPlace registers a place with its opening rules.
func (idx *MemoryIndex) AddPlace(p Place, rules []OpeningRule) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	p.HasOpeningHours = len(rules) > 0
	idx.places[p.ID] = p
	if len(rules) > 0 {
		idx.hours[p.ID] = append([]OpeningRule(nil), rules...)
	}
}

// AddWay registers a way's authoritative ordered node list.
func (idx *MemoryIndex) AddWay(wayID int64, nodes []int64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.wayNodes[wayID] = append([]int64(nil), nodes...)
}

// AddNode registers a node's coordinates.
func (idx *MemoryIndex) AddNode(nodeID int64, location geo.Point) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.nodeCoords[nodeID] = location
}

// NearestNeighbors returns up to k matching places within maxDistance meters,
// ordered by ascending distance from origin.
func (idx *MemoryIndex) NearestNeighbors(_ context.Context, origin geo.Point, k int, maxDistance float64, pred Predicate) ([]Place, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	type scored struct {
		place    Place
		distance float64
	}

	var candidates []scored
	for _, p := range idx.places {
		if pred != nil && !pred(p) {
			continue
		}
		d := geo.Distance(origin, p.Location)
		if d <= maxDistance {
			candidates = append(candidates, scored{place: p, distance: d})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].distance != candidates[j].distance {
			return candidates[i].distance < candidates[j].distance
		}
		return candidates[i].place.ID < candidates[j].place.ID
	})

	if k > 0 && len(candidates) > k {
		candidates = candidates[:k]
	}

	result := make([]Place, len(candidates))
	for i, c := range candidates {
		result[i] = c.place
	}
	return result, nil
}

// OpeningHours materializes the place's opening rules on the given date.
func (idx *MemoryIndex) OpeningHours(_ context.Context, placeID string, date time.Time) ([]OpeningWindow, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if _, ok := idx.places[placeID]; !ok {
		return nil, ErrPlaceNotFound
	}

	var windows []OpeningWindow
	for _, rule := range idx.hours[placeID] {
		if rule.AppliesOn(date) {
			windows = append(windows, rule.Materialize(date))
		}
	}

	sort.Slice(windows, func(i, j int) bool {
		return windows[i].Open.Before(windows[j].Open)
	})
	return windows, nil
}

// Place resolves a place by id.
func (idx *MemoryIndex) Place(_ context.Context, placeID string) (Place, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	p, ok := idx.places[placeID]
	if !ok {
		return Place{}, ErrPlaceNotFound
	}
	return p, nil
}

// WayNodes returns the authoritative ordered node list for a way.
func (idx *MemoryIndex) WayNodes(wayID int64) ([]int64, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	nodes, ok := idx.wayNodes[wayID]
	return nodes, ok
}

// IsCyclicWay reports whether the way's node list closes on itself.
func (idx *MemoryIndex) IsCyclicWay(wayID int64) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	nodes := idx.wayNodes[wayID]
	return len(nodes) > 2 && nodes[0] == nodes[len(nodes)-1]
}

// NodeLocation returns a node's coordinates.
func (idx *MemoryIndex) NodeLocation(nodeID int64) (geo.Point, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	p, ok := idx.nodeCoords[nodeID]
	return p, ok
}
