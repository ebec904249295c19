package analytics

import (
	"sort"

	"watchlens/pkg/contracts/domain"
)

// Metrics are the KPI tile values for one filtered view of the dataset.
// An empty subset yields the zero value, which renders as the dashboard's
// zero state rather than an error.
type Metrics struct {
	TotalViews    int `json:"total_views"`
	UniqueViewers int `json:"unique_viewers"`
	UniqueVideos  int `json:"unique_videos"`

	TotalMinutes  float64 `json:"total_minutes"`
	AvgMinutes    float64 `json:"avg_minutes"`
	MedianMinutes float64 `json:"median_minutes"`
	P75Minutes    float64 `json:"p75_minutes"`

	CompletedViews    int `json:"completed_views"`
	NotCompletedViews int `json:"not_completed_views"`
	UnknownViews      int `json:"unknown_views"`

	// CompletionRate is completed over completed+not_completed; views
	// with unknown status stay out of the denominator.
	CompletionRate float64 `json:"completion_rate"`

	RepeatViews int     `json:"repeat_views"`
	RepeatShare float64 `json:"repeat_share"`

	OwnerViews           int `json:"owner_views"`
	QuestionnaireViewers int `json:"questionnaire_viewers"`

	// DateFrom and DateTo bound the subset's timestamps ("2006-01-02").
	DateFrom string `json:"date_from,omitempty"`
	DateTo   string `json:"date_to,omitempty"`
}

// ComputeMetrics aggregates one filtered subset into its KPI values.
func ComputeMetrics(records []domain.DerivedRecord) Metrics {
	var m Metrics
	if len(records) == 0 {
		return m
	}

	viewers := make(map[string]bool)
	videos := make(map[string]bool)
	questionnaire := make(map[string]bool)
	durations := make([]float64, 0, len(records))

	for _, r := range records {
		m.TotalViews++
		viewers[r.UserID] = true
		videos[r.JoinKey()] = true
		durations = append(durations, r.DurationMinutes)
		m.TotalMinutes += r.DurationMinutes

		switch r.Completion {
		case domain.CompletionCompleted:
			m.CompletedViews++
		case domain.CompletionNotCompleted:
			m.NotCompletedViews++
		default:
			m.UnknownViews++
		}

		if r.RepeatViewer {
			m.RepeatViews++
		}
		if r.OwnerView {
			m.OwnerViews++
		}
		if r.Questionnaire {
			questionnaire[r.UserID] = true
		}
	}

	m.UniqueViewers = len(viewers)
	m.UniqueVideos = len(videos)
	m.QuestionnaireViewers = len(questionnaire)

	m.AvgMinutes = m.TotalMinutes / float64(m.TotalViews)
	sort.Float64s(durations)
	m.MedianMinutes = percentile(durations, 0.5)
	m.P75Minutes = percentile(durations, 0.75)

	if known := m.CompletedViews + m.NotCompletedViews; known > 0 {
		m.CompletionRate = float64(m.CompletedViews) / float64(known)
	}
	m.RepeatShare = float64(m.RepeatViews) / float64(m.TotalViews)

	// records arrive in the dataset's chronological order
	m.DateFrom = records[0].Timestamp.Format("2006-01-02")
	m.DateTo = records[len(records)-1].Timestamp.Format("2006-01-02")

	return m
}

// percentile reads the p-quantile (0..1) of an ascending-sorted slice
// with linear interpolation between the two nearest ranks.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	pos := p * float64(len(sorted)-1)
	lower := int(pos)
	if lower >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := pos - float64(lower)
	return sorted[lower] + frac*(sorted[lower+1]-sorted[lower])
}
