package anomaly

import "math"

// sigmas is the width of the normal band on each side of the mean.
const sigmas = 2.0

// meanStdDev returns the arithmetic mean and the sample (N-1) standard
// deviation of values. The stddev is NaN for fewer than two values.
func meanStdDev(values []float64) (mean, stddev float64) {
	n := len(values)
	if n == 0 {
		return math.NaN(), math.NaN()
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(n)

	if n < 2 {
		return mean, math.NaN()
	}

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(n-1))
}

// band returns the two-sigma bounds around mean.
func band(mean, stddev float64) (lower, upper float64) {
	return mean - sigmas*stddev, mean + sigmas*stddev
}

// outside reports whether v lies strictly outside [lower, upper].
func outside(v, lower, upper float64) bool {
	return v < lower || v > upper
}
