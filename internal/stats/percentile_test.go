package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercentileRankDistinctValues(t *testing.T) {
	// Distinct values must map onto {0, 1/n, ..., (n-1)/n} in sorted order.
	values := []float64{40, 10, 30, 20, 50}
	ranks := PercentileRank(values)

	assert.Equal(t, []float64{0.6, 0.0, 0.4, 0.2, 0.8}, ranks)
}

func TestPercentileRankTiesGetLowerRank(t *testing.T) {
	values := []float64{1, 2, 2, 3}
	ranks := PercentileRank(values)

	assert.Equal(t, 0.0, ranks[0])
	assert.Equal(t, 0.25, ranks[1])
	assert.Equal(t, 0.25, ranks[2])
	assert.Equal(t, 0.75, ranks[3])
}

func TestPercentileRankDegenerateSeries(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   []float64
	}{
		{"empty", []float64{}, []float64{}},
		{"single element", []float64{42}, []float64{0}},
		{"all equal", []float64{7, 7, 7, 7}, []float64{0, 0, 0, 0}},
		{"all zeros", []float64{0, 0, 0}, []float64{0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PercentileRank(tt.values))
		})
	}
}

func TestPercentileRankDoesNotMutateInput(t *testing.T) {
	values := []float64{3, 1, 2}
	PercentileRank(values)
	assert.Equal(t, []float64{3, 1, 2}, values)
}

func TestQuantile(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		q      float64
		want   float64
	}{
		{"empty series", []float64{}, 0.1, 0},
		{"single element", []float64{5}, 0.1, 5},
		{"median of pair interpolates", []float64{10, 20}, 0.5, 15},
		{"tenth percentile", []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100, 110}, 0.10, 20},
		{"q clamped low", []float64{1, 2, 3}, -1, 1},
		{"q clamped high", []float64{1, 2, 3}, 2, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Quantile(tt.values, tt.q), 1e-9)
		})
	}
}

func TestQuantileInterpolation(t *testing.T) {
	// h = 0.1 * 9 = 0.9 between the first and second order statistics.
	got := Quantile([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.10)
	assert.InDelta(t, 1.9, got, 1e-9)
}

func TestMean(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 2.0, Mean([]float64{1, 2, 3}))
}

func TestSafeShare(t *testing.T) {
	assert.Equal(t, 0.0, SafeShare(5, 0))
	assert.Equal(t, 0.5, SafeShare(1, 2))
}
