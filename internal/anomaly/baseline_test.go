package anomaly

import (
	"math"
	"math/rand"
	"testing"
	"testing/quick"
	"time"

	"github.com/stretchr/testify/require"
)

func rec(season Season, temp float64) TemperatureRecord {
	return TemperatureRecord{City: "Berlin", Timestamp: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), Temperature: temp, Season: season}
}

func TestComputeBaselinesSpringScenario(t *testing.T) {
	baselines := ComputeBaselines([]TemperatureRecord{
		rec(SeasonSpring, 10), rec(SeasonSpring, 12), rec(SeasonSpring, 14),
	})

	require.Len(t, baselines, 1)
	spring := baselines[SeasonSpring]
	require.Equal(t, "Berlin", spring.City)
	require.Equal(t, 3, spring.Count)
	require.InDelta(t, 12.0, spring.Mean, 1e-9)
	require.InDelta(t, 2.0, spring.StdDev, 1e-9)
}

func TestComputeBaselinesEmpty(t *testing.T) {
	require.Empty(t, ComputeBaselines(nil))
}

func TestComputeBaselinesSingleRecordSeason(t *testing.T) {
	baselines := ComputeBaselines([]TemperatureRecord{
		rec(SeasonAutumn, 9), rec(SeasonWinter, -1), rec(SeasonWinter, 1),
	})

	require.Len(t, baselines, 2)
	require.Equal(t, 9.0, baselines[SeasonAutumn].Mean)
	require.True(t, math.IsNaN(baselines[SeasonAutumn].StdDev))
	require.InDelta(t, 0.0, baselines[SeasonWinter].Mean, 1e-9)
	require.InDelta(t, math.Sqrt2, baselines[SeasonWinter].StdDev, 1e-9)
}

func TestComputeBaselinesTrustsSeasonField(t *testing.T) {
	// July timestamp labelled winter stays winter.
	r := rec(SeasonWinter, 30)
	r.Timestamp = time.Date(2020, time.July, 1, 0, 0, 0, 0, time.UTC)
	baselines := ComputeBaselines([]TemperatureRecord{r, r})
	require.Contains(t, baselines, SeasonWinter)
	require.NotContains(t, baselines, SeasonSummer)
}

func TestBaselinesTableOrder(t *testing.T) {
	baselines := ComputeBaselines([]TemperatureRecord{
		rec(SeasonAutumn, 1), rec(SeasonSummer, 2), rec(SeasonWinter, 3),
	})
	table := baselines.Table()
	require.Len(t, table, 3)
	require.Equal(t, SeasonWinter, table[0].Season)
	require.Equal(t, SeasonSummer, table[1].Season)
	require.Equal(t, SeasonAutumn, table[2].Season)
}

func TestComputeBaselinesMatchesDefinitionProperty(t *testing.T) {
	seasons := Seasons()
	check := func(seed int64, size uint8) bool {
		rng := rand.New(rand.NewSource(seed))
		n := int(size) + 1

		records := make([]TemperatureRecord, n)
		bySeason := make(map[Season][]float64)
		for i := range records {
			s := seasons[rng.Intn(len(seasons))]
			v := rng.Float64()*60 - 20
			records[i] = rec(s, v)
			bySeason[s] = append(bySeason[s], v)
		}

		baselines := ComputeBaselines(records)
		if len(baselines) != len(bySeason) {
			return false
		}
		for s, vals := range bySeason {
			var sum float64
			for _, v := range vals {
				sum += v
			}
			mean := sum / float64(len(vals))
			if math.Abs(baselines[s].Mean-mean) > 1e-9 {
				return false
			}
			if len(vals) < 2 {
				if !math.IsNaN(baselines[s].StdDev) {
					return false
				}
				continue
			}
			var sq float64
			for _, v := range vals {
				sq += (v - mean) * (v - mean)
			}
			if math.Abs(baselines[s].StdDev-math.Sqrt(sq/float64(len(vals)-1))) > 1e-9 {
				return false
			}
		}
		return true
	}
	require.NoError(t, quick.Check(check, nil))
}
