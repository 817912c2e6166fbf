// Package dataset parses historical temperature CSV files.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/weather-anomaly/internal/anomaly"
)

// Required CSV columns.
const (
	ColumnCity        = "city"
	ColumnTimestamp   = "timestamp"
	ColumnTemperature = "temperature"
	ColumnSeason      = "season"
)

var (
	// ErrEmpty is returned for an input without a header row.
	ErrEmpty = errors.New("dataset is empty")
	// ErrMissingColumn is returned when the header lacks a required column.
	ErrMissingColumn = errors.New("missing required column")
	// ErrNotFinite is returned for NaN or infinite temperatures.
	ErrNotFinite = errors.New("temperature must be a finite number")
)

// ParseError points at the offending line of the input.
type ParseError struct {
	Line   int
	Column string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d, column %s: %v", e.Line, e.Column, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Dataset is one uploaded historical file.
type Dataset struct {
	ID       string                      `json:"id"`
	LoadedAt time.Time                   `json:"loadedAt"`
	Size     int                         `json:"records"`
	Cities   []string                    `json:"cities"`
	Records  []anomaly.TemperatureRecord `json:"-"`
}

// New wraps records into a Dataset with a fresh ID.
func New(records []anomaly.TemperatureRecord, now time.Time) Dataset {
	return Dataset{
		ID:       uuid.New().String(),
		LoadedAt: now.UTC(),
		Size:     len(records),
		Cities:   Cities(records),
		Records:  records,
	}
}

// Parse reads records from CSV with a header naming at least the city,
// timestamp, temperature and season columns. Column order is free and
// extra columns are ignored. Records keep file order.
func Parse(r io.Reader) ([]anomaly.TemperatureRecord, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	var records []anomaly.TemperatureRecord
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		line, _ := reader.FieldPos(0)
		if isBlank(row) {
			continue
		}

		rec, err := parseRow(row, idx, line)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, nil
}

func columnIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, seen := idx[name]; !seen {
			idx[name] = i
		}
	}
	for _, col := range []string{ColumnCity, ColumnTimestamp, ColumnTemperature, ColumnSeason} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}
	return idx, nil
}

func parseRow(row []string, idx map[string]int, line int) (anomaly.TemperatureRecord, error) {
	field := func(col string) (string, error) {
		i := idx[col]
		if i >= len(row) {
			return "", &ParseError{Line: line, Column: col, Err: errors.New("missing value")}
		}
		return strings.TrimSpace(row[i]), nil
	}

	city, err := field(ColumnCity)
	if err != nil {
		return anomaly.TemperatureRecord{}, err
	}
	if city == "" {
		return anomaly.TemperatureRecord{}, &ParseError{Line: line, Column: ColumnCity, Err: errors.New("empty city")}
	}

	rawTS, err := field(ColumnTimestamp)
	if err != nil {
		return anomaly.TemperatureRecord{}, err
	}
	ts, err := ParseTime(rawTS)
	if err != nil {
		return anomaly.TemperatureRecord{}, &ParseError{Line: line, Column: ColumnTimestamp, Err: err}
	}

	rawTemp, err := field(ColumnTemperature)
	if err != nil {
		return anomaly.TemperatureRecord{}, err
	}
	temp, err := strconv.ParseFloat(rawTemp, 64)
	if err != nil {
		return anomaly.TemperatureRecord{}, &ParseError{Line: line, Column: ColumnTemperature, Err: err}
	}
	if math.IsNaN(temp) || math.IsInf(temp, 0) {
		return anomaly.TemperatureRecord{}, &ParseError{Line: line, Column: ColumnTemperature, Err: ErrNotFinite}
	}

	rawSeason, err := field(ColumnSeason)
	if err != nil {
		return anomaly.TemperatureRecord{}, err
	}
	season, err := anomaly.ParseSeason(rawSeason)
	if err != nil {
		return anomaly.TemperatureRecord{}, &ParseError{Line: line, Column: ColumnSeason, Err: err}
	}

	return anomaly.TemperatureRecord{
		City:        city,
		Timestamp:   ts,
		Temperature: temp,
		Season:      season,
	}, nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTime accepts ISO-8601 timestamps (with or without zone, date only)
// or unix seconds. Zone-less values are taken as UTC.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid time %q; use ISO-8601 or unix seconds", s)
}

func isBlank(row []string) bool {
	for _, f := range row {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// Cities lists the distinct cities in order of first appearance.
func Cities(records []anomaly.TemperatureRecord) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range records {
		if _, ok := seen[r.City]; ok {
			continue
		}
		seen[r.City] = struct{}{}
		out = append(out, r.City)
	}
	return out
}
