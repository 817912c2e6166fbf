package anomaly

import (
	"math"
	"sort"
	"time"
)

// Summary holds descriptive statistics of a city's temperatures.
type Summary struct {
	Count  int
	Mean   float64
	StdDev float64
	Min    float64
	P25    float64
	Median float64
	P75    float64
	Max    float64
	From   time.Time
	To     time.Time
}

// Describe summarizes the temperatures of records. Quantiles interpolate
// linearly between the closest ranks. An empty input yields NaN statistics.
func Describe(records []TemperatureRecord) Summary {
	if len(records) == 0 {
		nan := math.NaN()
		return Summary{Mean: nan, StdDev: nan, Min: nan, P25: nan, Median: nan, P75: nan, Max: nan}
	}

	temps := make([]float64, len(records))
	from, to := records[0].Timestamp, records[0].Timestamp
	for i, r := range records {
		temps[i] = r.Temperature
		if r.Timestamp.Before(from) {
			from = r.Timestamp
		}
		if r.Timestamp.After(to) {
			to = r.Timestamp
		}
	}

	mean, stddev := meanStdDev(temps)
	sort.Float64s(temps)

	return Summary{
		Count:  len(temps),
		Mean:   mean,
		StdDev: stddev,
		Min:    temps[0],
		P25:    quantile(temps, 0.25),
		Median: quantile(temps, 0.5),
		P75:    quantile(temps, 0.75),
		Max:    temps[len(temps)-1],
		From:   from,
		To:     to,
	}
}

// quantile expects sorted input.
func quantile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
