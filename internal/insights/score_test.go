package insights

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watchlens/pkg/contracts/domain"
)

// scoreFixture returns three summaries whose components are symmetric
// spreads, so each scales to exactly 0, 0.5 and 1.
func scoreFixture() []domain.VideoSummary {
	return []domain.VideoSummary{
		{VideoName: "Low", Views: 2, UniqueViewers: 1, CompletionRate: 0.2, RepeatShare: 0.1},
		{VideoName: "Mid", Views: 6, UniqueViewers: 3, CompletionRate: 0.5, RepeatShare: 0.3},
		{VideoName: "High", Views: 10, UniqueViewers: 5, CompletionRate: 0.8, RepeatShare: 0.5},
	}
}

func TestScoreSummaries(t *testing.T) {
	summaries := scoreFixture()

	ScoreSummaries(summaries, DefaultWeights())

	assert.InDelta(t, 0, summaries[0].EngagementScore, 1e-9)
	assert.InDelta(t, 50, summaries[1].EngagementScore, 1e-9)
	assert.InDelta(t, 100, summaries[2].EngagementScore, 1e-9)
}

func TestScoreSummariesCustomWeights(t *testing.T) {
	summaries := scoreFixture()
	// Reverse the completion spread so views and completion disagree
	// about the ranking.
	summaries[0].CompletionRate = 0.8
	summaries[2].CompletionRate = 0.2

	viewsOnly := ComponentWeights{Views: 1}
	ScoreSummaries(summaries, viewsOnly)
	assert.InDelta(t, 0, summaries[0].EngagementScore, 1e-9)
	assert.InDelta(t, 100, summaries[2].EngagementScore, 1e-9)

	completionOnly := ComponentWeights{CompletionRate: 1}
	ScoreSummaries(summaries, completionOnly)
	assert.InDelta(t, 100, summaries[0].EngagementScore, 1e-9)
	assert.InDelta(t, 0, summaries[2].EngagementScore, 1e-9)
}

func TestScoreSummariesInvalidWeightsFallBack(t *testing.T) {
	scored := scoreFixture()
	ScoreSummaries(scored, ComponentWeights{})

	want := scoreFixture()
	ScoreSummaries(want, DefaultWeights())

	for i := range want {
		assert.Equal(t, want[i].EngagementScore, scored[i].EngagementScore, scored[i].VideoName)
	}
}

func TestScoreSummariesSingle(t *testing.T) {
	summaries := []domain.VideoSummary{
		{VideoName: "Only", Views: 40, UniqueViewers: 12, CompletionRate: 0.7, RepeatShare: 0.2},
	}

	ScoreSummaries(summaries, DefaultWeights())

	assert.InDelta(t, 50, summaries[0].EngagementScore, 1e-9)
}

func TestScoreSummariesEmpty(t *testing.T) {
	assert.NotPanics(t, func() {
		ScoreSummaries(nil, DefaultWeights())
	})
}

func TestScoreSummariesValidatesAgainstContract(t *testing.T) {
	summaries := scoreFixture()
	for i := range summaries {
		summaries[i].CompletedViews = summaries[i].Views
		summaries[i].FirstSeen = "2023-01-05"
		summaries[i].LastSeen = "2023-09-20"
	}

	ScoreSummaries(summaries, DefaultWeights())

	for _, s := range summaries {
		require.NoError(t, domain.ValidateVideoSummary(&s), s.VideoName)
	}
}

func TestDefaultWeights(t *testing.T) {
	w := DefaultWeights()

	assert.True(t, w.IsValid())
	assert.InDelta(t, 1.0, w.Views+w.UniqueViewers+w.CompletionRate+w.RepeatShare, 1e-9)
}

func TestComponentWeightsIsValid(t *testing.T) {
	tests := []struct {
		name    string
		weights ComponentWeights
		want    bool
	}{
		{"defaults", DefaultWeights(), true},
		{"single component", ComponentWeights{Views: 1}, true},
		{"small float error tolerated", ComponentWeights{Views: 0.5, UniqueViewers: 0.505}, true},
		{"zero", ComponentWeights{}, false},
		{"under one", ComponentWeights{Views: 0.5}, false},
		{"negative component", ComponentWeights{Views: 1.5, RepeatShare: -0.5}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.weights.IsValid())
		})
	}
}

func TestComponentWeightsNormalize(t *testing.T) {
	w := ComponentWeights{Views: 2, UniqueViewers: 1, CompletionRate: 1}
	w.Normalize()

	assert.InDelta(t, 0.5, w.Views, 1e-12)
	assert.InDelta(t, 0.25, w.UniqueViewers, 1e-12)
	assert.InDelta(t, 0.25, w.CompletionRate, 1e-12)
	assert.Zero(t, w.RepeatShare)

	zero := ComponentWeights{}
	zero.Normalize()
	assert.Zero(t, zero.Views)
}
