package insights

import (
	"math"
	"sort"
)

// Percentile clamps applied before min-max scaling.
const (
	winsorLower = 0.05
	winsorUpper = 0.95
)

// scaleComponent winsorizes values at the 5th and 95th percentiles and
// min-max scales the result to [0, 1]. A flat component scores 0.5
// everywhere; NaN and infinite inputs score 0.
func scaleComponent(values []float64) []float64 {
	n := len(values)
	if n == 0 {
		return nil
	}

	valid := make([]float64, 0, n)
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			valid = append(valid, v)
		}
	}
	if len(valid) == 0 {
		return make([]float64, n)
	}
	sort.Float64s(valid)

	lo := percentileValue(valid, winsorLower)
	hi := percentileValue(valid, winsorUpper)

	scaled := make([]float64, n)
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if hi-lo < 1e-9 {
			scaled[i] = 0.5
			continue
		}
		v = math.Max(lo, math.Min(hi, v))
		scaled[i] = (v - lo) / (hi - lo)
	}
	return scaled
}

// percentileValue reads the value at percentile p from a sorted slice,
// interpolating linearly between neighbors.
func percentileValue(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	pos := p * float64(n-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return sorted[lower]
	}
	weight := pos - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}
