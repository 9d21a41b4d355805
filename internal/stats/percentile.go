// Package stats provides the rank and quantile utilities shared by the risk
// modules.
package stats

import "sort"

// PercentileRank converts a numeric series into percentile ranks in [0, 1].
// The rank of an element is the fraction of elements strictly less than it,
// so tied values all receive the lower rank. Degenerate series (length <= 1,
// or every value equal) rank 0 everywhere. The input is not modified.
func PercentileRank(values []float64) []float64 {
	n := len(values)
	ranks := make([]float64, n)
	if n <= 1 {
		return ranks
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	for i, v := range values {
		// Index of the first element >= v is the count strictly below it.
		below := sort.SearchFloat64s(sorted, v)
		ranks[i] = float64(below) / float64(n)
	}
	return ranks
}

// Quantile returns the q-th quantile of the series using linear interpolation
// between the two nearest order statistics. q is clamped to [0, 1]. An empty
// series yields 0. The input is not modified.
func Quantile(values []float64, q float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	if q < 0 {
		q = 0
	}
	if q > 1 {
		q = 1
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	h := q * float64(n-1)
	lo := int(h)
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := h - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// Mean returns the arithmetic mean of the series, or 0 for an empty series.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// SafeShare divides part by total, returning 0 when the denominator is zero.
func SafeShare(part, total float64) float64 {
	if total == 0 {
		return 0
	}
	return part / total
}
