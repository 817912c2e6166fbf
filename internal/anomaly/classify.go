package anomaly

import "math"

// Verdict is the outcome of comparing one reading with its seasonal baseline.
type Verdict struct {
	Season      Season  `json:"season"`
	Temperature float64 `json:"temperature"`
	Mean        float64 `json:"mean"`
	StdDev      float64 `json:"stddev"`
	Lower       float64 `json:"lowerBound"`
	Upper       float64 `json:"upperBound"`
	ZScore      float64 `json:"zScore"`
	Anomalous   bool    `json:"anomalous"`
}

// Evaluate compares temperature against the baseline for season.
//
// It fails with *UnknownSeasonError when baselines has no entry for season and
// with *InsufficientDataError when that entry has an undefined stddev.
func Evaluate(temperature float64, season Season, baselines Baselines) (Verdict, error) {
	bl, ok := baselines[season]
	if !ok {
		return Verdict{}, &UnknownSeasonError{Season: season}
	}
	if bl.Count < 2 || math.IsNaN(bl.StdDev) {
		return Verdict{}, &InsufficientDataError{Season: season, Count: bl.Count}
	}

	lower, upper := band(bl.Mean, bl.StdDev)

	var z float64
	if bl.StdDev > 0 {
		z = (temperature - bl.Mean) / bl.StdDev
	}

	return Verdict{
		Season:      season,
		Temperature: temperature,
		Mean:        bl.Mean,
		StdDev:      bl.StdDev,
		Lower:       lower,
		Upper:       upper,
		ZScore:      z,
		Anomalous:   outside(temperature, lower, upper),
	}, nil
}

// Classify reports whether temperature is outside two standard deviations of
// the season's baseline. Values exactly on the boundary are normal.
func Classify(temperature float64, season Season, baselines Baselines) (bool, error) {
	v, err := Evaluate(temperature, season, baselines)
	if err != nil {
		return false, err
	}
	return v.Anomalous, nil
}
