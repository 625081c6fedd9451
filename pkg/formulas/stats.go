package formulas

import (
	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// PopStdDev calculates the population standard deviation of a slice of
// float64 values. Category baselines treat the batch as the full
// population, so the divisor is n, not n-1.
func PopStdDev(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.PopStdDev(data, nil)
}

// ZScore calculates how many standard deviations a value sits from the
// mean. A zero or negative standard deviation yields 0 rather than NaN so
// single-row categories never produce undefined scores.
func ZScore(value, mean, stdDev float64) float64 {
	if stdDev <= 0 {
		return 0
	}
	return (value - mean) / stdDev
}
