package segment_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coolroute/coolroute/internal/segment"
)

func TestID_Reversed(t *testing.T) {
	id := segment.ID{WayID: 42, FromNode: 1, ToNode: 2}
	assert.Equal(t, segment.ID{WayID: 42, FromNode: 2, ToNode: 1}, id.Reversed())
	assert.Equal(t, id, id.Reversed().Reversed())
}

func TestWindow_Contains(t *testing.T) {
	assert.True(t, segment.WindowMorning.Contains(0))
	assert.True(t, segment.WindowMorning.Contains(11*time.Hour+59*time.Minute))
	assert.False(t, segment.WindowMorning.Contains(12*time.Hour))

	assert.True(t, segment.WindowEvening.Contains(12*time.Hour))
	assert.True(t, segment.WindowEvening.Contains(23*time.Hour))
	assert.False(t, segment.WindowEvening.Contains(11*time.Hour))
}

func TestTimeOfDay(t *testing.T) {
	at := time.Date(2023, 7, 14, 13, 45, 30, 0, time.UTC)
	assert.Equal(t, 13*time.Hour+45*time.Minute+30*time.Second, segment.TimeOfDay(at))
}

func TestRecord_TotalDistance(t *testing.T) {
	r := &segment.Record{
		ID:         segment.ID{WayID: 1, FromNode: 1, ToNode: 2},
		Distances:  []float64{10.5, 4.5, 5.0},
		TempDeltas: []float64{1.0, -0.5, 2.0},
	}
	assert.InDelta(t, 20.0, r.TotalDistance(), 1e-9)
}

func TestStore_DirectionInsensitiveLookup(t *testing.T) {
	store := segment.NewStore()
	store.Add(&segment.Record{
		ID:         segment.ID{WayID: 7, FromNode: 1, ToNode: 2},
		Distances:  []float64{12},
		TempDeltas: []float64{1.5},
	})

	forward, ok := store.Lookup(segment.ID{WayID: 7, FromNode: 1, ToNode: 2}, 9*time.Hour)
	require.True(t, ok)

	backward, ok := store.Lookup(segment.ID{WayID: 7, FromNode: 2, ToNode: 1}, 9*time.Hour)
	require.True(t, ok)

	assert.Same(t, forward, backward)
}

func TestStore_WindowedLookup(t *testing.T) {
	id := segment.ID{WayID: 7, FromNode: 1, ToNode: 2}
	morning := segment.WindowMorning
	evening := segment.WindowEvening

	store := segment.NewStore()
	morningRecord := &segment.Record{ID: id, Window: &morning, Distances: []float64{12}, TempDeltas: []float64{0.5}}
	eveningRecord := &segment.Record{ID: id, Window: &evening, Distances: []float64{12}, TempDeltas: []float64{3.0}}
	store.Add(morningRecord)
	store.Add(eveningRecord)

	got, ok := store.Lookup(id, 8*time.Hour)
	require.True(t, ok)
	assert.Same(t, morningRecord, got)

	got, ok = store.Lookup(id, 18*time.Hour)
	require.True(t, ok)
	assert.Same(t, eveningRecord, got)
}

func TestStore_FirstMatchWins(t *testing.T) {
	id := segment.ID{WayID: 7, FromNode: 1, ToNode: 2}

	store := segment.NewStore()
	first := &segment.Record{ID: id, Distances: []float64{10}, TempDeltas: []float64{1}}
	second := &segment.Record{ID: id, Distances: []float64{10}, TempDeltas: []float64{2}}
	store.Add(first)
	store.Add(second)

	got, ok := store.Lookup(id, time.Hour)
	require.True(t, ok)
	assert.Same(t, first, got, "insertion order decides between ambiguous records")
}

func TestStore_ForwardDirectionPreferred(t *testing.T) {
	forward := segment.ID{WayID: 7, FromNode: 1, ToNode: 2}

	store := segment.NewStore()
	forwardRecord := &segment.Record{ID: forward, Distances: []float64{10}, TempDeltas: []float64{1}}
	reverseRecord := &segment.Record{ID: forward.Reversed(), Distances: []float64{10}, TempDeltas: []float64{2}}
	store.Add(reverseRecord)
	store.Add(forwardRecord)

	got, ok := store.Lookup(forward, time.Hour)
	require.True(t, ok)
	assert.Same(t, forwardRecord, got, "exact direction is tried before the reversed one")
}

func TestStore_LookupMiss(t *testing.T) {
	store := segment.NewStore()
	_, ok := store.Lookup(segment.ID{WayID: 1, FromNode: 1, ToNode: 2}, time.Hour)
	assert.False(t, ok)

	morning := segment.WindowMorning
	store.Add(&segment.Record{
		ID:         segment.ID{WayID: 1, FromNode: 1, ToNode: 2},
		Window:     &morning,
		Distances:  []float64{5},
		TempDeltas: []float64{1},
	})
	_, ok = store.Lookup(segment.ID{WayID: 1, FromNode: 1, ToNode: 2}, 15*time.Hour)
	assert.False(t, ok, "record outside its validity window is skipped")
}

func TestLoad_GroupsRowsIntoRecords(t *testing.T) {
	input := strings.Join([]string{
		"100|1|2|12.5|1.5|morning",
		"100|1|2|7.5|0.5|morning",
		"100|1|2|12.5|4.0|evening",
		"100|2|3|20.0|-1.0|morning",
		"",
	}, "\n")

	store, err := segment.Load(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 3, store.Len())

	record, ok := store.Lookup(segment.ID{WayID: 100, FromNode: 1, ToNode: 2}, 9*time.Hour)
	require.True(t, ok)
	assert.Equal(t, []float64{12.5, 7.5}, record.Distances)
	assert.Equal(t, []float64{1.5, 0.5}, record.TempDeltas)
	assert.InDelta(t, 20.0, record.TotalDistance(), 1e-9)

	evening, ok := store.Lookup(segment.ID{WayID: 100, FromNode: 1, ToNode: 2}, 19*time.Hour)
	require.True(t, ok)
	assert.Equal(t, []float64{4.0}, evening.TempDeltas)
}

func TestLoad_MalformedRows(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"missing column", "100|1|2|12.5|1.5", segment.ErrMalformedRecord},
		{"bad way id", "abc|1|2|12.5|1.5|morning", segment.ErrMalformedRecord},
		{"bad distance", "100|1|2|x|1.5|morning", segment.ErrMalformedRecord},
		{"bad delta", "100|1|2|12.5|x|morning", segment.ErrMalformedRecord},
		{"unknown time range", "100|1|2|12.5|1.5|midnight", segment.ErrUnknownTimeRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := segment.Load(strings.NewReader(tt.input))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
