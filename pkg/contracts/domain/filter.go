package domain

import "time"

// WatchFilter narrows the assembled dataset for dashboard views, metrics
// and exports. A zero-value field is inactive; every active field must
// match, so combining filters always intersects.
type WatchFilter struct {
	// DateFrom keeps records with timestamp on or after this instant.
	DateFrom *time.Time `json:"date_from,omitempty"`

	// DateTo keeps records with timestamp on or before this instant.
	DateTo *time.Time `json:"date_to,omitempty"`

	// Hours keeps records whose hour-of-day is in the set (0-23).
	Hours []int `json:"hours,omitempty"`

	// Meridiem keeps AM or PM records only.
	Meridiem *Meridiem `json:"am_pm,omitempty"`

	// Weekdays keeps records falling on the named days (Monday-first labels).
	Weekdays []string `json:"weekdays,omitempty"`

	// AcademicYears keeps records in the named year periods ("2023-2024").
	AcademicYears []string `json:"academic_years,omitempty"`

	// VideoNames keeps records for the exact video names.
	VideoNames []string `json:"video_names,omitempty"`

	// VideoQuery keeps records whose video name contains the query,
	// case-insensitively.
	VideoQuery string `json:"video_query,omitempty"`

	// Categories keeps records whose metadata category is in the set.
	Categories []string `json:"categories,omitempty"`

	// Completion keeps records with one of the given statuses.
	Completion []CompletionStatus `json:"completion,omitempty"`

	// Questionnaire, when set, keeps records of viewers who did (true)
	// or did not (false) submit the questionnaire.
	Questionnaire *bool `json:"questionnaire,omitempty"`

	// RepeatOnly, when set to true, keeps only repeat views. False keeps
	// only first views.
	RepeatOnly *bool `json:"repeat_only,omitempty"`

	// OwnerView, when set, keeps records where the viewer is (or is not)
	// the video's owner.
	OwnerView *bool `json:"owner_view,omitempty"`

	// Users keeps records for the exact user identifiers.
	Users []string `json:"users,omitempty"`

	// MinDurationMinutes keeps records with at least this watch duration.
	MinDurationMinutes *float64 `json:"min_duration_minutes,omitempty"`

	// MaxDurationMinutes keeps records with at most this watch duration.
	MaxDurationMinutes *float64 `json:"max_duration_minutes,omitempty"`
}

// IsZero reports whether no filter dimension is active.
func (f WatchFilter) IsZero() bool {
	return f.DateFrom == nil &&
		f.DateTo == nil &&
		len(f.Hours) == 0 &&
		f.Meridiem == nil &&
		len(f.Weekdays) == 0 &&
		len(f.AcademicYears) == 0 &&
		len(f.VideoNames) == 0 &&
		f.VideoQuery == "" &&
		len(f.Categories) == 0 &&
		len(f.Completion) == 0 &&
		f.Questionnaire == nil &&
		f.RepeatOnly == nil &&
		f.OwnerView == nil &&
		len(f.Users) == 0 &&
		f.MinDurationMinutes == nil &&
		f.MaxDurationMinutes == nil
}
