// Package anomaly holds the statistical core: seasonal baselines, the rolling
// two-sigma detector, the point classifier and the month to season mapping.
//
// Everything here is a pure function over immutable inputs. The only source
// of non-determinism, wall-clock time, is reached through Clock.
package anomaly

import "time"

// TemperatureRecord is one historical observation.
type TemperatureRecord struct {
	City        string    `json:"city"`
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperature"`
	Season      Season    `json:"season"`
}

// SeasonalBaseline is the historical mean/stddev of temperature for one
// city and season. StdDev is NaN when Count < 2.
type SeasonalBaseline struct {
	City   string
	Season Season
	Mean   float64
	StdDev float64
	Count  int
}

// Baselines indexes seasonal baselines by season.
type Baselines map[Season]SeasonalBaseline

// Table returns the baselines in calendar season order, skipping seasons
// without data.
func (b Baselines) Table() []SeasonalBaseline {
	out := make([]SeasonalBaseline, 0, len(b))
	for _, s := range Seasons() {
		if bl, ok := b[s]; ok {
			out = append(out, bl)
		}
	}
	return out
}

// Point is a single sample of a temperature time series.
type Point struct {
	Timestamp   time.Time
	Temperature float64
}

// RollingStats describes one point of a series against its trailing window.
type RollingStats struct {
	Timestamp   time.Time
	Temperature float64
	Mean        float64
	StdDev      float64
	LowerBound  float64
	UpperBound  float64
	IsAnomaly   bool
}

// CurrentReading is a freshly observed temperature tagged with its season.
// An empty Season means the season of the current date.
type CurrentReading struct {
	Temperature float64 `json:"temperature"`
	Season      Season  `json:"season"`
}

// SeriesOf converts records into a time series, preserving input order.
func SeriesOf(records []TemperatureRecord) []Point {
	points := make([]Point, len(records))
	for i, r := range records {
		points[i] = Point{Timestamp: r.Timestamp, Temperature: r.Temperature}
	}
	return points
}
