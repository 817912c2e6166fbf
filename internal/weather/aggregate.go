package weather

import "time"

// AggregateReadings combines multiple provider readings into a single WeatherSnapshot.
// Temperatures are averaged; conditions are selected by majority (ties go to the
// condition seen first).
func AggregateReadings(loc Location, readings []ProviderReading, now time.Time) WeatherSnapshot {
	if len(readings) == 0 {
		return WeatherSnapshot{
			Location:  loc,
			Timestamp: now.UTC(),
			Condition: ConditionUnknown,
		}
	}

	var sumTemp float64

	conditionCounts := make(map[Condition]int)
	var conditionOrder []Condition
	providers := make([]ProviderContribution, 0, len(readings))
	var newestTS time.Time

	for _, r := range readings {
		sumTemp += r.TemperatureC

		if _, ok := conditionCounts[r.Condition]; !ok {
			conditionOrder = append(conditionOrder, r.Condition)
		}
		conditionCounts[r.Condition]++

		if r.Timestamp.After(newestTS) {
			newestTS = r.Timestamp
		}

		providers = append(providers, ProviderContribution{
			ProviderName: r.ProviderName,
			Timestamp:    r.Timestamp,
			Temperature:  r.TemperatureC,
		})
	}

	// Pick majority condition.
	bestCond := ConditionUnknown
	bestCount := 0
	for _, cond := range conditionOrder {
		if count := conditionCounts[cond]; count > bestCount {
			bestCount = count
			bestCond = cond
		}
	}

	if newestTS.IsZero() {
		newestTS = now
	}

	return WeatherSnapshot{
		Location:    loc,
		Timestamp:   newestTS.UTC(),
		Temperature: sumTemp / float64(len(readings)),
		Condition:   bestCond,
		Providers:   providers,
	}
}
