package insights

import (
	"watchlens/pkg/contracts/domain"
)

// ScoreSummaries fills EngagementScore on every summary, in place. The
// score is a 0-100 weighted blend of winsorized, min-max scaled
// components: views, unique viewers, completion rate and repeat share.
// Invalid weights fall back to DefaultWeights. A single summary scores
// 50, the midpoint of every flat component.
func ScoreSummaries(summaries []domain.VideoSummary, weights ComponentWeights) {
	if len(summaries) == 0 {
		return
	}
	if !weights.IsValid() {
		weights = DefaultWeights()
	}
	weights.Normalize()

	n := len(summaries)
	views := make([]float64, n)
	unique := make([]float64, n)
	completion := make([]float64, n)
	repeat := make([]float64, n)
	for i := range summaries {
		views[i] = float64(summaries[i].Views)
		unique[i] = float64(summaries[i].UniqueViewers)
		completion[i] = summaries[i].CompletionRate
		repeat[i] = summaries[i].RepeatShare
	}

	views = scaleComponent(views)
	unique = scaleComponent(unique)
	completion = scaleComponent(completion)
	repeat = scaleComponent(repeat)

	for i := range summaries {
		score := 100 * (weights.Views*views[i] +
			weights.UniqueViewers*unique[i] +
			weights.CompletionRate*completion[i] +
			weights.RepeatShare*repeat[i])
		summaries[i].EngagementScore = clampScore(score)
	}
}

func clampScore(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
