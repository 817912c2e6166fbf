package anomaly

import "math"

// DefaultWindow is the number of trailing points the rolling detector uses.
const DefaultWindow = 30

// DetectRolling marks each point that falls strictly outside two sample
// standard deviations of its trailing window (the point itself included).
//
// The window for index i holds min(i+1, window) points. Windows with fewer
// than two points have a stddev of 0, so the first point is never an anomaly.
// A window below 1 falls back to DefaultWindow. The output has one entry per
// input point, in input order.
//
// Every window is recomputed with a two-pass mean/stddev, so a run of equal
// values always has a zero stddev. DetectRollingIncremental gives the same
// result in O(n).
func DetectRolling(series []Point, window int) []RollingStats {
	if window < 1 {
		window = DefaultWindow
	}

	out := make([]RollingStats, len(series))
	values := make([]float64, 0, window)
	for i, p := range series {
		start := i - window + 1
		if start < 0 {
			start = 0
		}

		values = values[:0]
		for _, q := range series[start : i+1] {
			values = append(values, q.Temperature)
		}

		mean, stddev := meanStdDev(values)
		if len(values) < 2 {
			stddev = 0
		}
		out[i] = rollingPoint(p, mean, stddev)
	}
	return out
}

// DetectRollingIncremental is DetectRolling with running sums over a ring
// buffer instead of recomputing each window.
func DetectRollingIncremental(series []Point, window int) []RollingStats {
	if window < 1 {
		window = DefaultWindow
	}

	out := make([]RollingStats, len(series))
	if len(series) == 0 {
		return out
	}

	w := newWindowStats(window, series[0].Temperature)
	for i, p := range series {
		w.push(p.Temperature)
		if w.samples < 2 {
			out[i] = rollingPoint(p, p.Temperature, 0)
			continue
		}
		out[i] = rollingPoint(p, w.mean(), w.stdDev())
	}
	return out
}

func rollingPoint(p Point, mean, stddev float64) RollingStats {
	lower, upper := band(mean, stddev)
	return RollingStats{
		Timestamp:   p.Timestamp,
		Temperature: p.Temperature,
		Mean:        mean,
		StdDev:      stddev,
		LowerBound:  lower,
		UpperBound:  upper,
		IsAnomaly:   outside(p.Temperature, lower, upper),
	}
}

// windowStats keeps a fixed-size ring of values with running sums.
// Values are stored relative to shift to keep the sum of squares small.
type windowStats struct {
	values     []float64
	position   int
	samples    int
	shift      float64
	sum        float64
	sumSquares float64
}

func newWindowStats(capacity int, shift float64) *windowStats {
	return &windowStats{
		values: make([]float64, capacity),
		shift:  shift,
	}
}

func (w *windowStats) push(v float64) {
	v -= w.shift

	if w.samples == len(w.values) {
		old := w.values[w.position]
		w.sum -= old
		w.sumSquares -= old * old
	} else {
		w.samples++
	}

	w.values[w.position] = v
	w.sum += v
	w.sumSquares += v * v
	w.position = (w.position + 1) % len(w.values)
}

func (w *windowStats) mean() float64 {
	return w.shift + w.sum/float64(w.samples)
}

func (w *windowStats) stdDev() float64 {
	if w.samples < 2 {
		return 0
	}
	n := float64(w.samples)
	variance := (w.sumSquares - w.sum*w.sum/n) / (n - 1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}
