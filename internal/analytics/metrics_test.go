package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"watchlens/pkg/contracts/domain"
)

func TestComputeMetrics(t *testing.T) {
	m := ComputeMetrics(fixture())

	assert.Equal(t, 6, m.TotalViews)
	assert.Equal(t, 4, m.UniqueViewers)
	assert.Equal(t, 3, m.UniqueVideos)

	assert.InDelta(t, 183.5, m.TotalMinutes, 1e-9)
	assert.InDelta(t, 183.5/6, m.AvgMinutes, 1e-9)
	assert.InDelta(t, 21, m.MedianMinutes, 1e-9)
	assert.InDelta(t, 41.25, m.P75Minutes, 1e-9)

	assert.Equal(t, 3, m.CompletedViews)
	assert.Equal(t, 2, m.NotCompletedViews)
	assert.Equal(t, 1, m.UnknownViews)
	assert.InDelta(t, 0.6, m.CompletionRate, 1e-9, "unknown views stay out of the denominator")

	assert.Equal(t, 2, m.RepeatViews)
	assert.InDelta(t, 1.0/3.0, m.RepeatShare, 1e-9)

	assert.Equal(t, 1, m.OwnerViews)
	assert.Equal(t, 1, m.QuestionnaireViewers)

	assert.Equal(t, "2023-01-05", m.DateFrom)
	assert.Equal(t, "2023-09-20", m.DateTo)
}

func TestComputeMetricsOnFilteredSubset(t *testing.T) {
	records := Apply(fixture(), domain.WatchFilter{Users: []string{"user-1"}})
	m := ComputeMetrics(records)

	assert.Equal(t, 3, m.TotalViews)
	assert.Equal(t, 1, m.UniqueViewers)
	assert.InDelta(t, (1.5+12+90)/3, m.AvgMinutes, 1e-9)
}

func TestComputeMetricsEmpty(t *testing.T) {
	m := ComputeMetrics(nil)
	assert.Equal(t, Metrics{}, m, "empty subsets produce the zero state, not an error")
}

func TestPercentile(t *testing.T) {
	tests := []struct {
		name     string
		sorted   []float64
		p        float64
		expected float64
	}{
		{name: "empty", sorted: nil, p: 0.5, expected: 0},
		{name: "single", sorted: []float64{7}, p: 0.75, expected: 7},
		{name: "median interpolates", sorted: []float64{1, 2, 3, 4}, p: 0.5, expected: 2.5},
		{name: "p75 interpolates", sorted: []float64{1, 2, 3, 4}, p: 0.75, expected: 3.25},
		{name: "p0 is the minimum", sorted: []float64{1, 2, 3, 4}, p: 0, expected: 1},
		{name: "p100 is the maximum", sorted: []float64{1, 2, 3, 4}, p: 1, expected: 4},
		{name: "odd count median is exact", sorted: []float64{1, 2, 9}, p: 0.5, expected: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, percentile(tt.sorted, tt.p), 1e-9)
		})
	}
}
