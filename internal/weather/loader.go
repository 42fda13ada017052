package weather

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

// The bootstrap weather file is CSV with the columns
// timestamp,temperature,relative_humidity; timestamps are RFC3339.
const loaderColumns = 3

// LoadFile reads a weather CSV into a series. Any malformed row is fatal:
// the error aborts startup rather than producing a partial series.
func LoadFile(path string) (*Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening weather file: %w", err)
	}
	defer f.Close()

	series, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return series, nil
}

// Load parses weather CSV rows into a series.
func Load(r io.Reader) (*Series, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = loaderColumns

	var samples []Sample
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if line == 1 && record[0] == "timestamp" {
			// Optional header row.
			continue
		}

		at, err := time.Parse(time.RFC3339, record[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: parsing timestamp %q: %w", line, record[0], err)
		}
		temperature, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: parsing temperature %q: %w", line, record[1], err)
		}
		humidity, err := strconv.ParseFloat(record[2], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: parsing relative humidity %q: %w", line, record[2], err)
		}

		samples = append(samples, Sample{
			Time:        at,
			Temperature: temperature,
			Humidity:    humidity,
		})
	}

	return NewSeries(samples)
}
