package analytics

import (
	"sort"
	"strings"

	"watchlens/pkg/contracts/domain"
)

// Summary sort keys accepted by FilterSummaries.
const (
	SortByViews           = "views"
	SortByUniqueViewers   = "unique_viewers"
	SortByTotalMinutes    = "total_minutes"
	SortByAvgMinutes      = "avg_minutes"
	SortByCompletionRate  = "completion_rate"
	SortByRepeatShare     = "repeat_share"
	SortByEngagementScore = "engagement_score"
	SortByReportedViews   = "reported_views"
	SortByVideoName       = "video_name"
)

// ValidSummarySort reports whether key names a leaderboard sort column.
func ValidSummarySort(key string) bool {
	switch key {
	case SortByViews, SortByUniqueViewers, SortByTotalMinutes, SortByAvgMinutes,
		SortByCompletionRate, SortByRepeatShare, SortByEngagementScore,
		SortByReportedViews, SortByVideoName:
		return true
	}
	return false
}

// FilterSummaries narrows, orders and pages the per-video summary table
// for the leaderboard. It returns the requested page and the total match
// count before paging. The input slice is never reordered.
func FilterSummaries(summaries []domain.VideoSummary, filter domain.VideoSummaryFilter) ([]domain.VideoSummary, int) {
	names := stringSet(filter.VideoNames)
	categories := stringSet(filter.Categories)
	pattern := strings.ToLower(strings.TrimSpace(filter.NamePattern))

	matched := make([]domain.VideoSummary, 0, len(summaries))
	for _, s := range summaries {
		if names != nil && !names[s.VideoName] {
			continue
		}
		if pattern != "" && !strings.Contains(strings.ToLower(s.VideoName), pattern) {
			continue
		}
		if categories != nil && !categories[s.Category] {
			continue
		}
		if s.Views < filter.MinViews {
			continue
		}
		if s.CompletionRate < filter.MinCompletionRate {
			continue
		}
		matched = append(matched, s)
	}
	total := len(matched)

	sortBy := filter.SortBy
	desc := filter.SortDesc
	if sortBy == "" {
		// The leaderboard's natural order: most viewed first.
		sortBy, desc = SortByViews, true
	}
	sortSummaries(matched, sortBy, desc)

	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) {
		return nil, total
	}
	matched = matched[offset:]
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, total
}

// sortSummaries orders summaries by the named column, falling back to
// name then id so equal values keep a stable, reproducible order.
func sortSummaries(summaries []domain.VideoSummary, sortBy string, desc bool) {
	value := summaryColumn(sortBy)
	sort.SliceStable(summaries, func(i, j int) bool {
		a, b := &summaries[i], &summaries[j]
		if sortBy == SortByVideoName {
			if a.VideoName != b.VideoName {
				if desc {
					return a.VideoName > b.VideoName
				}
				return a.VideoName < b.VideoName
			}
		} else if va, vb := value(a), value(b); va != vb {
			if desc {
				return va > vb
			}
			return va < vb
		}
		if a.VideoName != b.VideoName {
			return a.VideoName < b.VideoName
		}
		return a.VideoID < b.VideoID
	})
}

// summaryColumn maps a sort key to its numeric column. Unknown keys sort
// like views.
func summaryColumn(sortBy string) func(*domain.VideoSummary) float64 {
	switch sortBy {
	case SortByUniqueViewers:
		return func(s *domain.VideoSummary) float64 { return float64(s.UniqueViewers) }
	case SortByTotalMinutes:
		return func(s *domain.VideoSummary) float64 { return s.TotalMinutes }
	case SortByAvgMinutes:
		return func(s *domain.VideoSummary) float64 { return s.AvgMinutes }
	case SortByCompletionRate:
		return func(s *domain.VideoSummary) float64 { return s.CompletionRate }
	case SortByRepeatShare:
		return func(s *domain.VideoSummary) float64 { return s.RepeatShare }
	case SortByEngagementScore:
		return func(s *domain.VideoSummary) float64 { return s.EngagementScore }
	case SortByReportedViews:
		return func(s *domain.VideoSummary) float64 { return float64(s.ReportedViews) }
	default:
		return func(s *domain.VideoSummary) float64 { return float64(s.Views) }
	}
}
