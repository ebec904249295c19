package insights

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScaleComponent(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   []float64
	}{
		{
			name:   "empty",
			values: nil,
			want:   nil,
		},
		{
			name:   "single value lands mid-scale",
			values: []float64{7},
			want:   []float64{0.5},
		},
		{
			name:   "flat component lands mid-scale",
			values: []float64{3, 3, 3},
			want:   []float64{0.5, 0.5, 0.5},
		},
		{
			// Winsorized edges are 0.5 and 9.5, so the extremes clamp
			// to 0 and 1 and the midpoint stays at 0.5.
			name:   "symmetric spread",
			values: []float64{0, 5, 10},
			want:   []float64{0, 0.5, 1},
		},
		{
			name:   "non-finite values score zero",
			values: []float64{1, math.NaN(), 2, math.Inf(1)},
			want:   []float64{0, 0, 1, 0},
		},
		{
			name:   "all non-finite",
			values: []float64{math.NaN(), math.Inf(-1)},
			want:   []float64{0, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scaleComponent(tt.values)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.InDelta(t, tt.want[i], got[i], 1e-12, "index %d", i)
			}
		})
	}
}

func TestScaleComponentWinsorizesOutliers(t *testing.T) {
	values := []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1000}

	got := scaleComponent(values)
	require.Len(t, got, 10)

	assert.InDelta(t, 1.0, got[9], 1e-12, "clamped outlier still tops the scale")
	for i := 0; i < 9; i++ {
		assert.InDelta(t, 0.0, got[i], 1e-12)
	}
}

func TestScaleComponentStaysInRange(t *testing.T) {
	values := []float64{-50, 3, 0.25, 99, 7, 7, 12, 0}

	for i, v := range scaleComponent(values) {
		assert.GreaterOrEqual(t, v, 0.0, "index %d", i)
		assert.LessOrEqual(t, v, 1.0, "index %d", i)
	}
}

func TestPercentileValue(t *testing.T) {
	sorted := []float64{1, 2, 3, 4}

	tests := []struct {
		name string
		p    float64
		want float64
	}{
		{"floor", 0, 1},
		{"ceiling", 1, 4},
		{"median interpolates", 0.5, 2.5},
		{"quarter interpolates", 0.25, 1.75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, percentileValue(sorted, tt.p), 1e-12)
		})
	}

	assert.Equal(t, 0.0, percentileValue(nil, 0.5))
	assert.Equal(t, 5.0, percentileValue([]float64{5}, 0.5))
}
