package segment

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// The precomputed segment-weather file is pipe-delimited with the columns
// way_id|from_node_id|to_node_id|distance|temperature_delta|time_range.
// Rows sharing (way_id, from_node_id, to_node_id, time_range) are grouped
// into one record's parallel arrays, in file order.
const loaderColumns = 6

// groupKey identifies the record a row belongs to.
type groupKey struct {
	id        ID
	timeRange string
}

// LoadFile reads a segment-weather file into a store. Any malformed row is
// fatal: the error aborts startup rather than producing a partial store.
func LoadFile(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening segment-weather file: %w", err)
	}
	defer f.Close()

	store, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return store, nil
}

// Load parses pipe-delimited segment-weather rows into a store.
func Load(r io.Reader) (*Store, error) {
	store := NewStore()
	groups := make(map[groupKey]*Record)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		fields := strings.Split(text, "|")
		if len(fields) != loaderColumns {
			return nil, fmt.Errorf("line %d: expected %d columns, got %d: %w",
				line, loaderColumns, len(fields), ErrMalformedRecord)
		}

		wayID, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: way_id: %w", line, ErrMalformedRecord)
		}
		fromNode, err := strconv.ParseInt(strings.TrimSpace(fields[1]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: from_node_id: %w", line, ErrMalformedRecord)
		}
		toNode, err := strconv.ParseInt(strings.TrimSpace(fields[2]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: to_node_id: %w", line, ErrMalformedRecord)
		}
		distance, err := strconv.ParseFloat(strings.TrimSpace(fields[3]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: distance: %w", line, ErrMalformedRecord)
		}
		tempDelta, err := strconv.ParseFloat(strings.TrimSpace(fields[4]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: temperature_delta: %w", line, ErrMalformedRecord)
		}

		window, err := parseTimeRange(strings.TrimSpace(fields[5]))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		key := groupKey{
			id:        ID{WayID: wayID, FromNode: fromNode, ToNode: toNode},
			timeRange: strings.TrimSpace(fields[5]),
		}

		record, ok := groups[key]
		if !ok {
			record = &Record{ID: key.id, Window: window}
			groups[key] = record
			store.Add(record)
		}
		record.Distances = append(record.Distances, distance)
		record.TempDeltas = append(record.TempDeltas, tempDelta)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading segment-weather rows: %w", err)
	}

	return store, nil
}

func parseTimeRange(label string) (*Window, error) {
	switch label {
	case "morning":
		w := WindowMorning
		return &w, nil
	case "evening":
		w := WindowEvening
		return &w, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTimeRange, label)
	}
}
