// Package api contains API contract definitions for the WatchLens dashboard
// server. Version v1 represents the current stable API version.
package api

// Common request parameters

// PaginationRequest represents common pagination parameters
type PaginationRequest struct {
	Page     int    `json:"page" query:"page" validate:"min=1"`
	PageSize int    `json:"page_size" query:"page_size" validate:"min=1,max=500"`
	Sort     string `json:"sort" query:"sort" validate:"omitempty,oneof=asc desc"`
	SortBy   string `json:"sort_by" query:"sort_by"`
}

// DateRangeRequest represents a date range in requests
type DateRangeRequest struct {
	From string `json:"from" query:"from" validate:"omitempty,datetime=2006-01-02"`
	To   string `json:"to" query:"to" validate:"omitempty,datetime=2006-01-02"`
}

// FilterRequest carries the dashboard filter dimensions as they arrive on
// the query string, before being parsed into a domain.WatchFilter. List
// parameters accept comma-separated values.
type FilterRequest struct {
	From          string `json:"from" query:"from" validate:"omitempty,datetime=2006-01-02"`
	To            string `json:"to" query:"to" validate:"omitempty,datetime=2006-01-02"`
	Hours         string `json:"hours" query:"hours"`
	AmPm          string `json:"am_pm" query:"am_pm" validate:"omitempty,oneof=AM PM"`
	Weekdays      string `json:"weekdays" query:"weekdays"`
	AcademicYears string `json:"academic_years" query:"academic_years"`
	Videos        string `json:"videos" query:"videos"`
	VideoQuery    string `json:"video_query" query:"video_query" validate:"omitempty,max=255"`
	Categories    string `json:"categories" query:"categories"`
	Completion    string `json:"completion" query:"completion"`
	Questionnaire string `json:"questionnaire" query:"questionnaire" validate:"omitempty,oneof=true false"`
	RepeatOnly    string `json:"repeat_only" query:"repeat_only" validate:"omitempty,oneof=true false"`
	OwnerView     string `json:"owner_view" query:"owner_view" validate:"omitempty,oneof=true false"`
	Users         string `json:"users" query:"users"`
	MinDuration   string `json:"min_duration" query:"min_duration" validate:"omitempty,numeric"`
	MaxDuration   string `json:"max_duration" query:"max_duration" validate:"omitempty,numeric"`
}

// Operation API Requests

// RebuildRequest represents a request to rebuild the assembled dataset
// from the raw input directory.
type RebuildRequest struct {
	// Files limits the build to the named inputs. Empty means every
	// recognized file under the raw directory.
	Files []string `json:"files,omitempty"`

	// Force rebuilds even when no raw file changed since the last build.
	Force bool `json:"force"`
}

// OperationStatusRequest represents a request for one operation's state
type OperationStatusRequest struct {
	OperationID string `json:"operation_id" param:"id" validate:"required"`
}

// Analytics API Requests

// LeaderboardRequest represents a leaderboard query
type LeaderboardRequest struct {
	PaginationRequest
	Metric   string `json:"metric" query:"metric" validate:"omitempty,oneof=views unique_viewers total_minutes completion_rate engagement_score"`
	MinViews int    `json:"min_views" query:"min_views" validate:"min=0"`
}

// TopVideosRequest represents a top-N chart query
type TopVideosRequest struct {
	Limit  int    `json:"limit" query:"limit" validate:"omitempty,min=1,max=100"`
	Metric string `json:"metric" query:"metric" validate:"omitempty,oneof=views unique_viewers total_minutes"`
}

// Export API Requests

// ExportRequest represents a CSV export request. The export honors the
// same filter dimensions as the dashboard views.
type ExportRequest struct {
	FilterRequest
	// Dataset selects what to export: the filtered records or the
	// per-video summaries computed from them.
	Dataset string `json:"dataset" query:"dataset" validate:"omitempty,oneof=records summaries"`
}

// Health API Requests

// HealthCheckRequest represents a health check request
type HealthCheckRequest struct {
	Verbose bool `json:"verbose" query:"verbose"`
}
