// Package matching reconciles path-engine edges with the authoritative way
// topology. The engine reports an edge as two anchor nodes plus approximate
// geometry; the anchor assignment is occasionally wrong and ways may be
// cyclic, so the matcher searches both directions along the way and scores
// candidates by geometric deviation before slicing the winning node sequence
// into segment identifiers.
package matching

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/coolroute/coolroute/internal/segment"
	"github.com/coolroute/coolroute/pkg/geo"
)

// WayIndex provides the authoritative road topology the matcher walks.
// Implementations must be safe for concurrent readers.
type WayIndex interface {
	// WayNodes returns the ordered node list for a way. Cyclic ways repeat
	// their first node at the end.
	WayNodes(wayID int64) ([]int64, bool)

	// IsCyclicWay reports whether the way closes on itself.
	IsCyclicWay(wayID int64) bool

	// NodeLocation returns a node's coordinates.
	NodeLocation(nodeID int64) (geo.Point, bool)
}

// Matcher resolves edges against the way topology.
type Matcher struct {
	index  WayIndex
	logger zerolog.Logger
}

// NewMatcher creates a matcher over the given topology.
func NewMatcher(index WayIndex, logger zerolog.Logger) *Matcher {
	return &Matcher{index: index, logger: logger}
}

// candidate is the outcome of one directional walk along the way.
type candidate struct {
	nodes         []int64
	exact         bool
	meanDeviation float64
}

// complete reports whether the walk matched one node per geometry point.
func (c candidate) complete(n int) bool {
	return len(c.nodes) == n
}

// Match reconciles an edge with the way's node sequence. baseNode is the
// authoritative anchor; adjacentNode is the opposite anchor and may be 0
// (unknown) or wrong. The returned segment ids cover the edge in traversal
// order; ok is false when no acceptable node sequence exists, in which case
// the edge falls back to pure physical distance for cost purposes.
func (m *Matcher) Match(wayID int64, points []geo.Point, baseNode, adjacentNode int64) ([]segment.ID, bool) {
	if len(points) == 0 {
		return nil, false
	}

	wayNodes, ok := m.index.WayNodes(wayID)
	if !ok || len(wayNodes) == 0 {
		return nil, false
	}

	// The engine occasionally assigns the anchors to the wrong ends. When
	// the base anchor is absent from the way but the adjacent one is
	// present, their roles are swapped; when neither is present the edge
	// cannot be matched.
	if !containsNode(wayNodes, baseNode) {
		if adjacentNode != 0 && containsNode(wayNodes, adjacentNode) {
			baseNode, adjacentNode = adjacentNode, baseNode
		} else {
			m.logger.Debug().
				Int64("way_id", wayID).
				Int64("base_node", baseNode).
				Int64("adjacent_node", adjacentNode).
				Msg("edge anchors not on way")
			return nil, false
		}
	}

	cyclic := m.index.IsCyclicWay(wayID)

	forward := m.walk(searchOrder(wayNodes, cyclic, false), points, baseNode, adjacentNode)
	backward := m.walk(searchOrder(wayNodes, cyclic, true), points, baseNode, adjacentNode)

	resolved, ok := resolve(forward, backward, len(points), baseNode, adjacentNode)
	if !ok {
		m.logger.Debug().
			Int64("way_id", wayID).
			Int64("base_node", baseNode).
			Int("points", len(points)).
			Msg("no acceptable node sequence for edge")
		return nil, false
	}

	return sliceSegments(wayID, resolved.nodes), true
}

// searchOrder returns the node order for one search direction. Cyclic ways
// are logically doubled so a wraparound crossing the seam node still yields
// a contiguous run.
func searchOrder(wayNodes []int64, cyclic, reversed bool) []int64 {
	nodes := wayNodes
	if reversed {
		nodes = make([]int64, len(wayNodes))
		for i, n := range wayNodes {
			nodes[len(wayNodes)-1-i] = n
		}
	}

	if !cyclic {
		return nodes
	}

	// The first node repeats at the end, so the second copy skips it.
	doubled := make([]int64, 0, 2*len(nodes)-1)
	doubled = append(doubled, nodes...)
	doubled = append(doubled, nodes[1:]...)
	return doubled
}

// walk matches geometry points against nodes starting at the base anchor's
// occurrence, accumulating the geodesic deviation between each point and its
// matched node. The walk takes exactly one node per geometry point, fewer if
// the way ends first.
func (m *Matcher) walk(nodes []int64, points []geo.Point, baseNode, adjacentNode int64) candidate {
	start := indexOfNode(nodes, baseNode)
	if start < 0 {
		return candidate{}
	}

	var matched []int64
	var totalDeviation float64

	for i := 0; i < len(points) && start+i < len(nodes); i++ {
		node := nodes[start+i]
		matched = append(matched, node)

		if loc, ok := m.index.NodeLocation(node); ok {
			totalDeviation += geo.Distance(points[i], loc)
		} else {
			totalDeviation = math.Inf(1)
		}
	}

	c := candidate{
		nodes:         matched,
		meanDeviation: totalDeviation / float64(len(matched)),
	}

	// Exact means the full point count was matched and, when the adjacent
	// anchor is known, the walk ends on it.
	if c.complete(len(points)) {
		c.exact = adjacentNode == 0 || matched[len(matched)-1] == adjacentNode
	}

	return c
}

// resolve picks the winning direction. The priority order of these cases is
// load-bearing: upstream anchor data is known to be unreliable, and the
// deviation tie-break only applies when neither direction matched exactly.
func resolve(forward, backward candidate, n int, baseNode, adjacentNode int64) (candidate, bool) {
	switch {
	case forward.exact && backward.exact && baseNode == adjacentNode:
		// Degenerate loop edge; both directions describe the same segment.
		return forward, true
	case forward.exact && !backward.exact:
		return forward, true
	case backward.exact && !forward.exact:
		return backward, true
	case !forward.exact && !backward.exact && forward.complete(n) && !backward.complete(n):
		return forward, true
	case !forward.exact && !backward.exact && !forward.complete(n) && backward.complete(n):
		return backward, true
	case !forward.exact && !backward.exact && forward.complete(n) && backward.complete(n):
		if forward.meanDeviation <= backward.meanDeviation {
			return forward, true
		}
		return backward, true
	default:
		return candidate{}, false
	}
}

// sliceSegments turns a resolved node sequence into consecutive-pair
// segment ids.
func sliceSegments(wayID int64, nodes []int64) []segment.ID {
	if len(nodes) < 2 {
		return nil
	}

	ids := make([]segment.ID, 0, len(nodes)-1)
	for i := 1; i < len(nodes); i++ {
		ids = append(ids, segment.ID{
			WayID:    wayID,
			FromNode: nodes[i-1],
			ToNode:   nodes[i],
		})
	}
	return ids
}

func containsNode(nodes []int64, node int64) bool {
	return indexOfNode(nodes, node) >= 0
}

func indexOfNode(nodes []int64, node int64) int {
	for i, n := range nodes {
		if n == node {
			return i
		}
	}
	return -1
}
