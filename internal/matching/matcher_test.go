package matching_test

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coolroute/coolroute/internal/matching"
	"github.com/coolroute/coolroute/internal/place"
	"github.com/coolroute/coolroute/internal/segment"
	"github.com/coolroute/coolroute/pkg/geo"
)

// nodeGrid places node ids 1..n on a line, 0.001 degrees of latitude apart.
func nodeGrid(idx *place.MemoryIndex, n int64) {
	for id := int64(1); id <= n; id++ {
		idx.AddNode(id, nodeLocation(id))
	}
}

func nodeLocation(id int64) geo.Point {
	return geo.Point{Lat: 48.0 + float64(id)*0.001, Lon: 9.18}
}

func pointsAt(ids ...int64) []geo.Point {
	points := make([]geo.Point, len(ids))
	for i, id := range ids {
		points[i] = nodeLocation(id)
	}
	return points
}

func newMatcher(t *testing.T, build func(idx *place.MemoryIndex)) *matching.Matcher {
	t.Helper()
	idx := place.NewMemoryIndex()
	build(idx)
	return matching.NewMatcher(idx, zerolog.Nop())
}

func TestMatcher_StraightWay(t *testing.T) {
	m := newMatcher(t, func(idx *place.MemoryIndex) {
		idx.AddWay(100, []int64{1, 2, 3, 4})
		nodeGrid(idx, 4)
	})

	ids, ok := m.Match(100, pointsAt(1, 2, 3, 4), 1, 4)
	require.True(t, ok)
	assert.Equal(t, []segment.ID{
		{WayID: 100, FromNode: 1, ToNode: 2},
		{WayID: 100, FromNode: 2, ToNode: 3},
		{WayID: 100, FromNode: 3, ToNode: 4},
	}, ids)
}

func TestMatcher_StraightWay_ReverseTraversal(t *testing.T) {
	m := newMatcher(t, func(idx *place.MemoryIndex) {
		idx.AddWay(100, []int64{1, 2, 3, 4})
		nodeGrid(idx, 4)
	})

	// The edge traverses the way against its node order; only the backward
	// search matches exactly.
	ids, ok := m.Match(100, pointsAt(4, 3, 2, 1), 4, 1)
	require.True(t, ok)
	assert.Equal(t, []segment.ID{
		{WayID: 100, FromNode: 4, ToNode: 3},
		{WayID: 100, FromNode: 3, ToNode: 2},
		{WayID: 100, FromNode: 2, ToNode: 1},
	}, ids)
}

func TestMatcher_PartialWay(t *testing.T) {
	m := newMatcher(t, func(idx *place.MemoryIndex) {
		idx.AddWay(100, []int64{1, 2, 3, 4, 5})
		nodeGrid(idx, 5)
	})

	// The edge covers only the middle of the way.
	ids, ok := m.Match(100, pointsAt(2, 3, 4), 2, 4)
	require.True(t, ok)
	assert.Equal(t, []segment.ID{
		{WayID: 100, FromNode: 2, ToNode: 3},
		{WayID: 100, FromNode: 3, ToNode: 4},
	}, ids)
}

func TestMatcher_CyclicWay_SeamWraparound(t *testing.T) {
	m := newMatcher(t, func(idx *place.MemoryIndex) {
		idx.AddWay(200, []int64{1, 2, 3, 1})
		nodeGrid(idx, 3)
	})

	// The edge crosses the seam: from node 3 back to the closing node 1.
	ids, ok := m.Match(200, pointsAt(3, 1), 3, 1)
	require.True(t, ok)
	assert.Equal(t, []segment.ID{
		{WayID: 200, FromNode: 3, ToNode: 1},
	}, ids)
}

func TestMatcher_CyclicWay_DegenerateLoop(t *testing.T) {
	m := newMatcher(t, func(idx *place.MemoryIndex) {
		idx.AddWay(200, []int64{1, 2, 1})
		nodeGrid(idx, 2)
	})

	// Base and adjacent anchor coincide; both directions match exactly and
	// either is acceptable.
	ids, ok := m.Match(200, pointsAt(1, 2, 1), 1, 1)
	require.True(t, ok)
	require.Len(t, ids, 2)
	assert.Equal(t, int64(1), ids[0].FromNode)
	assert.Equal(t, int64(1), ids[1].ToNode)
}

func TestMatcher_AnchorSwapRepair(t *testing.T) {
	m := newMatcher(t, func(idx *place.MemoryIndex) {
		idx.AddWay(100, []int64{1, 2, 3, 4})
		nodeGrid(idx, 4)
	})

	// The engine assigned a base anchor that is not on the way; the
	// adjacent anchor is, so their roles are swapped.
	ids, ok := m.Match(100, pointsAt(1, 2), 99, 1)
	require.True(t, ok)
	assert.Equal(t, []segment.ID{
		{WayID: 100, FromNode: 1, ToNode: 2},
	}, ids)
}

func TestMatcher_NoAnchorOnWay(t *testing.T) {
	m := newMatcher(t, func(idx *place.MemoryIndex) {
		idx.AddWay(100, []int64{1, 2, 3, 4})
		nodeGrid(idx, 4)
	})

	_, ok := m.Match(100, pointsAt(1, 2), 98, 99)
	assert.False(t, ok)
}

func TestMatcher_DeviationTieBreak(t *testing.T) {
	m := newMatcher(t, func(idx *place.MemoryIndex) {
		idx.AddWay(100, []int64{1, 2, 3, 4, 5})
		nodeGrid(idx, 5)
	})

	// Base sits mid-way and the reported adjacent anchor is wrong but
	// present... it is not, so it stays as-is and neither direction can be
	// exact. Both walks find full-length sequences; the geometry lies along
	// nodes 3,4, so the forward direction wins on average deviation.
	ids, ok := m.Match(100, pointsAt(3, 4), 3, 0)
	// With an unknown adjacent anchor both complete walks count as exact
	// and the direction is genuinely ambiguous: no match.
	assert.False(t, ok)
	assert.Empty(t, ids)

	// With a known-but-wrong adjacent anchor the deviation tie-break
	// applies instead.
	m2 := newMatcher(t, func(idx *place.MemoryIndex) {
		idx.AddWay(100, []int64{1, 2, 3, 4, 5})
		nodeGrid(idx, 5)
		idx.AddNode(99, geo.Point{Lat: 50, Lon: 10})
	})

	ids, ok = m2.Match(100, pointsAt(3, 4), 3, 99)
	require.True(t, ok)
	assert.Equal(t, []segment.ID{
		{WayID: 100, FromNode: 3, ToNode: 4},
	}, ids, "forward direction has the smaller average deviation")
}

func TestMatcher_EdgeShorterThanGeometry(t *testing.T) {
	m := newMatcher(t, func(idx *place.MemoryIndex) {
		idx.AddWay(100, []int64{1, 2})
		nodeGrid(idx, 2)
	})

	// Three geometry points but the way only has two nodes from the base:
	// no direction can produce a full-length sequence.
	_, ok := m.Match(100, pointsAt(1, 2, 2), 1, 0)
	assert.False(t, ok)
}

func TestMatcher_UnknownWay(t *testing.T) {
	m := newMatcher(t, func(idx *place.MemoryIndex) {})

	_, ok := m.Match(123, pointsAt(1), 1, 0)
	assert.False(t, ok)
}

func TestMatcher_EmptyGeometry(t *testing.T) {
	m := newMatcher(t, func(idx *place.MemoryIndex) {
		idx.AddWay(100, []int64{1, 2})
		nodeGrid(idx, 2)
	})

	_, ok := m.Match(100, nil, 1, 2)
	assert.False(t, ok)
}

func TestMatcher_SinglePointYieldsNoSegments(t *testing.T) {
	m := newMatcher(t, func(idx *place.MemoryIndex) {
		idx.AddWay(100, []int64{1, 2, 3})
		nodeGrid(idx, 3)
	})

	// A one-point edge resolves (base is on the way, walk of one node,
	// matching end anchor) but slices into zero segment pairs.
	ids, ok := m.Match(100, pointsAt(1), 1, 1)
	require.True(t, ok)
	assert.Empty(t, ids)
}
