package insights

// ComponentWeights sets how much each normalized per-video metric
// contributes to the engagement score.
type ComponentWeights struct {
	Views          float64 `json:"views"`
	UniqueViewers  float64 `json:"unique_viewers"`
	CompletionRate float64 `json:"completion_rate"`
	RepeatShare    float64 `json:"repeat_share"`
}

// DefaultWeights returns the standard blend: reach weighted highest,
// then audience breadth and completion quality, with a smaller repeat
// component.
func DefaultWeights() ComponentWeights {
	return ComponentWeights{
		Views:          0.35,
		UniqueViewers:  0.25,
		CompletionRate: 0.25,
		RepeatShare:    0.15,
	}
}

// IsValid reports whether the weights are non-negative and sum to 1,
// allowing small floating point error.
func (w ComponentWeights) IsValid() bool {
	sum := w.Views + w.UniqueViewers + w.CompletionRate + w.RepeatShare
	return w.Views >= 0 && w.UniqueViewers >= 0 &&
		w.CompletionRate >= 0 && w.RepeatShare >= 0 &&
		sum > 0.99 && sum < 1.01
}

// Normalize rescales the weights to sum to 1.
func (w *ComponentWeights) Normalize() {
	sum := w.Views + w.UniqueViewers + w.CompletionRate + w.RepeatShare
	if sum > 0 {
		w.Views /= sum
		w.UniqueViewers /= sum
		w.CompletionRate /= sum
		w.RepeatShare /= sum
	}
}
