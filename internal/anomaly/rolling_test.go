package anomaly

import (
	"math"
	"math/rand"
	"testing"
	"testing/quick"
	"time"

	"github.com/stretchr/testify/require"
)

func series(temps ...float64) []Point {
	start := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]Point, len(temps))
	for i, v := range temps {
		out[i] = Point{Timestamp: start.AddDate(0, 0, i), Temperature: v}
	}
	return out
}

func randomSeries(rng *rand.Rand, n int) []Point {
	temps := make([]float64, n)
	for i := range temps {
		temps[i] = 10 + 8*math.Sin(float64(i)/20) + rng.NormFloat64()*3
		if rng.Intn(40) == 0 {
			temps[i] += 25
		}
	}
	return series(temps...)
}

func TestDetectRollingEmpty(t *testing.T) {
	require.Empty(t, DetectRolling(nil, 30))
	require.Empty(t, DetectRollingIncremental(nil, 30))
}

func TestDetectRollingFirstPointNeverAnomalous(t *testing.T) {
	for _, detect := range []func([]Point, int) []RollingStats{DetectRolling, DetectRollingIncremental} {
		out := detect(series(42), 30)
		require.Len(t, out, 1)
		require.Equal(t, 42.0, out[0].Mean)
		require.Equal(t, 0.0, out[0].StdDev)
		require.Equal(t, 42.0, out[0].LowerBound)
		require.Equal(t, 42.0, out[0].UpperBound)
		require.False(t, out[0].IsAnomaly)
	}
}

func TestDetectRollingWindowStats(t *testing.T) {
	out := DetectRolling(series(10, 12, 14, 100), 3)
	require.Len(t, out, 4)

	require.InDelta(t, 11.0, out[1].Mean, 1e-9)
	require.InDelta(t, math.Sqrt2, out[1].StdDev, 1e-9)

	require.InDelta(t, 12.0, out[2].Mean, 1e-9)
	require.InDelta(t, 2.0, out[2].StdDev, 1e-9)
	require.InDelta(t, 8.0, out[2].LowerBound, 1e-9)
	require.InDelta(t, 16.0, out[2].UpperBound, 1e-9)
	require.False(t, out[2].IsAnomaly)

	// Window [12, 14, 100] drops the first point.
	require.InDelta(t, 42.0, out[3].Mean, 1e-9)
}

func TestDetectRollingFlagsSpike(t *testing.T) {
	temps := make([]float64, 40)
	for i := range temps {
		temps[i] = 20 + float64(i%3) - 1
	}
	temps[35] = 60

	out := DetectRolling(series(temps...), DefaultWindow)
	for i, st := range out {
		require.Equal(t, i == 35, st.IsAnomaly, "index %d", i)
	}
}

func TestDetectRollingConstantSeries(t *testing.T) {
	temps := make([]float64, 50)
	for i := range temps {
		temps[i] = 0.1
	}
	for _, st := range DetectRollingIncremental(series(temps...), 30) {
		require.Equal(t, 0.1, st.Mean)
		require.Equal(t, 0.0, st.StdDev)
		require.False(t, st.IsAnomaly)
	}
	for _, st := range DetectRolling(series(temps...), 30) {
		require.False(t, st.IsAnomaly)
	}
}

func TestDetectRollingDefaultWindow(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	s := randomSeries(rng, 80)
	require.Equal(t, DetectRolling(s, DefaultWindow), DetectRolling(s, 0))
	require.Equal(t, DetectRollingIncremental(s, DefaultWindow), DetectRollingIncremental(s, -5))
}

func TestDetectRollingIncrementalMatchesRecomputed(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for _, window := range []int{1, 2, 5, 30, 200} {
		s := randomSeries(rng, 500)
		fast := DetectRollingIncremental(s, window)
		slow := DetectRolling(s, window)
		require.Len(t, fast, len(s))
		require.Len(t, slow, len(s))
		for i := range s {
			require.InDelta(t, slow[i].Mean, fast[i].Mean, 1e-9, "window %d index %d", window, i)
			require.InDelta(t, slow[i].StdDev, fast[i].StdDev, 1e-9, "window %d index %d", window, i)
			require.Equal(t, slow[i].IsAnomaly, fast[i].IsAnomaly, "window %d index %d", window, i)
			require.Equal(t, s[i].Timestamp, fast[i].Timestamp)
		}
	}
}

func TestDetectRollingProperties(t *testing.T) {
	check := func(seed int64, size uint8, window uint8) bool {
		rng := rand.New(rand.NewSource(seed))
		s := randomSeries(rng, int(size))
		out := DetectRolling(s, int(window))
		if len(out) != len(s) {
			return false
		}
		for _, st := range out {
			if st.StdDev < 0 || st.LowerBound > st.Mean || st.Mean > st.UpperBound {
				return false
			}
		}
		return true
	}
	require.NoError(t, quick.Check(check, nil))
}

func TestSeriesOfPreservesOrder(t *testing.T) {
	ts := time.Date(2022, 5, 1, 0, 0, 0, 0, time.UTC)
	records := []TemperatureRecord{
		{City: "Oslo", Timestamp: ts.Add(time.Hour), Temperature: 2, Season: SeasonSpring},
		{City: "Oslo", Timestamp: ts, Temperature: 1, Season: SeasonSpring},
	}
	points := SeriesOf(records)
	require.Equal(t, []Point{
		{Timestamp: ts.Add(time.Hour), Temperature: 2},
		{Timestamp: ts, Temperature: 1},
	}, points)
}
