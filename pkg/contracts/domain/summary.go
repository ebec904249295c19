package domain

import (
	"fmt"
	"strings"
	"time"
)

// VideoSummary is the Single Source of Truth (SSOT) for per-video engagement
// data. This structure defines the authoritative format for video summaries
// across the entire WatchLens system. All consumers, exporters, APIs and
// dashboards must use this structure for video summary operations.
//
// Design Principles:
// - Single Source of Truth for all per-video aggregates
// - Support both CSV and JSON serialization with proper field mapping
// - Deterministic output: the same dataset always yields the same summary
// - Extensible for future metrics without breaking changes
//
// Usage:
//   summary := &VideoSummary{
//       VideoName: "Intro to Cell Biology",
//       Views: 412,
//       UniqueViewers: 287,
//       FirstSeen: "2023-01-05", // Earliest record timestamp for the video
//       LastSeen: "2023-06-14",
//   }
type VideoSummary struct {
	// === CORE FIELDS (always present) ===

	// VideoID is the stable video identifier when the source provides one.
	// Empty for sources that only carry a display name.
	VideoID string `json:"video_id,omitempty" csv:"VideoID"`

	// VideoName is the display name of the video
	// Used for matching across sources when no ID exists
	VideoName string `json:"video_name" csv:"VideoName" validate:"required,min=1,max=255"`

	// Category is the subject/topic grouping from video metadata
	// Empty when no metadata source mentioned the video
	Category string `json:"category,omitempty" csv:"Category"`

	// Views is the total number of watch records for the video
	Views int `json:"views" csv:"Views" validate:"min=0"`

	// UniqueViewers is the count of distinct user identifiers that watched
	// Always <= Views
	UniqueViewers int `json:"unique_viewers" csv:"UniqueViewers" validate:"min=0"`

	// FirstSeen is the earliest watch date for the video
	// Format: "2006-01-02" (ISO 8601 date format)
	FirstSeen string `json:"first_seen" csv:"FirstSeen"`

	// LastSeen is the most recent watch date for the video
	// Format: "2006-01-02" (ISO 8601 date format)
	LastSeen string `json:"last_seen" csv:"LastSeen"`

	// === ENGAGEMENT METRICS ===

	// TotalMinutes is the summed watch duration across all records
	// Precision: 2 decimal places in CSV output
	TotalMinutes float64 `json:"total_minutes" csv:"TotalMinutes" validate:"min=0"`

	// AvgMinutes is the mean watch duration per record
	AvgMinutes float64 `json:"avg_minutes" csv:"AvgMinutes" validate:"min=0"`

	// MedianMinutes is the median watch duration per record
	// More robust than the mean for skewed viewing patterns
	MedianMinutes float64 `json:"median_minutes" csv:"MedianMinutes" validate:"min=0"`

	// CompletedViews / NotCompletedViews / UnknownViews break Views down
	// by standardized completion status. They always sum to Views.
	CompletedViews    int `json:"completed_views" csv:"CompletedViews" validate:"min=0"`
	NotCompletedViews int `json:"not_completed_views" csv:"NotCompletedViews" validate:"min=0"`
	UnknownViews      int `json:"unknown_views" csv:"UnknownViews" validate:"min=0"`

	// CompletionRate is CompletedViews / (CompletedViews + NotCompletedViews).
	// Records with unknown completion are excluded from the denominator.
	// 0 when no record carries a known status.
	CompletionRate float64 `json:"completion_rate" csv:"CompletionRate" validate:"min=0,max=1"`

	// RepeatShare is the fraction of Views that were repeat views, i.e.
	// the Nth chronological record (N > 1) of a viewer for this video.
	RepeatShare float64 `json:"repeat_share" csv:"RepeatShare" validate:"min=0,max=1"`

	// OwnerViews counts records where the viewer is the video's owner.
	// Only populated when video metadata carries owner identities.
	OwnerViews int `json:"owner_views,omitempty" csv:"OwnerViews" validate:"min=0"`

	// ReportedViews is the platform's own lifetime view count from the
	// counts export, when one mentioned the video. Shown next to Views
	// so discrepancies with the derived count are visible.
	ReportedViews int `json:"reported_views,omitempty" csv:"ReportedViews" validate:"min=0"`

	// EngagementScore is the composite 0-100 score blending normalized
	// views, unique viewers, completion rate and repeat share.
	// Populated by the insights layer; 0 until scored.
	EngagementScore float64 `json:"engagement_score,omitempty" csv:"EngagementScore" validate:"min=0,max=100"`
}

// VideoSummaryValidationRules defines validation constraints for
// VideoSummary fields shared by every producer.
var VideoSummaryValidationRules = struct {
	MinNameLength      int
	MaxNameLength      int
	RequiredDateFormat string
	MaxScore           float64
}{
	MinNameLength:      1,
	MaxNameLength:      255,
	RequiredDateFormat: "2006-01-02",
	MaxScore:           100,
}

// ValidateVideoSummary checks the business rules a well-formed summary
// must satisfy. It returns nil on success or an error naming the first
// violated rule.
func ValidateVideoSummary(summary *VideoSummary) error {
	if summary == nil {
		return fmt.Errorf("video summary cannot be nil")
	}

	if strings.TrimSpace(summary.VideoName) == "" {
		return fmt.Errorf("video name is required")
	}
	if len(summary.VideoName) > VideoSummaryValidationRules.MaxNameLength {
		return fmt.Errorf("video name must not exceed %d characters", VideoSummaryValidationRules.MaxNameLength)
	}

	if summary.Views < 0 {
		return fmt.Errorf("views cannot be negative: %d", summary.Views)
	}
	if summary.UniqueViewers < 0 {
		return fmt.Errorf("unique viewers cannot be negative: %d", summary.UniqueViewers)
	}
	if summary.UniqueViewers > summary.Views {
		return fmt.Errorf("unique viewers %d cannot exceed views %d", summary.UniqueViewers, summary.Views)
	}

	if got := summary.CompletedViews + summary.NotCompletedViews + summary.UnknownViews; got != summary.Views {
		return fmt.Errorf("completion breakdown sums to %d, want %d", got, summary.Views)
	}

	if summary.CompletionRate < 0 || summary.CompletionRate > 1 {
		return fmt.Errorf("completion rate %.4f must be within [0,1]", summary.CompletionRate)
	}
	if summary.RepeatShare < 0 || summary.RepeatShare > 1 {
		return fmt.Errorf("repeat share %.4f must be within [0,1]", summary.RepeatShare)
	}
	if summary.EngagementScore < 0 || summary.EngagementScore > VideoSummaryValidationRules.MaxScore {
		return fmt.Errorf("engagement score %.2f must be within [0,%.0f]", summary.EngagementScore, VideoSummaryValidationRules.MaxScore)
	}

	for _, pair := range []struct {
		name  string
		value string
	}{
		{"first seen", summary.FirstSeen},
		{"last seen", summary.LastSeen},
	} {
		if pair.value == "" {
			continue
		}
		if _, err := time.Parse(VideoSummaryValidationRules.RequiredDateFormat, pair.value); err != nil {
			return fmt.Errorf("%s date '%s' must be in format '%s': %w",
				pair.name, pair.value, VideoSummaryValidationRules.RequiredDateFormat, err)
		}
	}

	if summary.TotalMinutes < 0 {
		return fmt.Errorf("total minutes cannot be negative: %.2f", summary.TotalMinutes)
	}
	if summary.AvgMinutes < 0 {
		return fmt.Errorf("average minutes cannot be negative: %.2f", summary.AvgMinutes)
	}
	if summary.MedianMinutes < 0 {
		return fmt.Errorf("median minutes cannot be negative: %.2f", summary.MedianMinutes)
	}

	return nil
}

// VideoSummaryFilter represents filters for querying video summaries.
// Zero-value fields are inactive; active fields combine by intersection.
type VideoSummaryFilter struct {
	// VideoNames filters by exact video names
	// Empty slice means no name filtering
	VideoNames []string `json:"video_names,omitempty"`

	// NamePattern filters by video name using case-insensitive
	// substring matching
	NamePattern string `json:"name_pattern,omitempty"`

	// Categories filters by metadata category
	Categories []string `json:"categories,omitempty"`

	// MinViews keeps summaries with at least this many views
	MinViews int `json:"min_views,omitempty"`

	// MinCompletionRate keeps summaries with completion rate >= this value
	MinCompletionRate float64 `json:"min_completion_rate,omitempty"`

	// SortBy specifies the field to sort results by
	// Valid values: "video_name", "views", "unique_viewers", "total_minutes",
	// "completion_rate", "engagement_score"
	SortBy string `json:"sort_by,omitempty"`

	// SortDesc specifies sort direction (true = descending)
	SortDesc bool `json:"sort_desc,omitempty"`

	// Limit specifies maximum number of results to return
	Limit int `json:"limit,omitempty"`

	// Offset specifies number of results to skip (for pagination)
	Offset int `json:"offset,omitempty"`
}

// VideoSummaryResponse is the paginated envelope for summary queries.
type VideoSummaryResponse struct {
	// Summaries contains the page of matching video summaries
	Summaries []VideoSummary `json:"summaries"`

	// TotalCount is the number of summaries matching the filter before
	// pagination was applied
	TotalCount int `json:"total_count"`

	// Page is the current page number (1-based)
	Page int `json:"page"`

	// PageSize is the number of summaries per page
	PageSize int `json:"page_size"`

	// TotalPages is the total number of pages available
	TotalPages int `json:"total_pages"`

	// GeneratedAt is when this response was created
	GeneratedAt time.Time `json:"generated_at"`

	// Filter contains the filter parameters used for this query
	Filter *VideoSummaryFilter `json:"filter,omitempty"`
}
