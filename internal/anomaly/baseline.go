package anomaly

// ComputeBaselines groups records by their Season field and computes the mean
// and sample standard deviation of temperature per season.
//
// Records are expected to belong to a single city. The season on each record
// is trusted as-is; it is not derived from the timestamp. A season with a
// single record gets a NaN stddev, which Classify reports as insufficient data.
func ComputeBaselines(records []TemperatureRecord) Baselines {
	groups := make(map[Season][]float64)
	cities := make(map[Season]string)

	for _, r := range records {
		groups[r.Season] = append(groups[r.Season], r.Temperature)
		if _, ok := cities[r.Season]; !ok {
			cities[r.Season] = r.City
		}
	}

	out := make(Baselines, len(groups))
	for season, temps := range groups {
		mean, stddev := meanStdDev(temps)
		out[season] = SeasonalBaseline{
			City:   cities[season],
			Season: season,
			Mean:   mean,
			StdDev: stddev,
			Count:  len(temps),
		}
	}
	return out
}
