package domain

import (
	"strconv"
	"time"
)

// CompletionStatus is the standardized three-value classification of
// whether a view was finished, regardless of how the source encoded it.
type CompletionStatus string

const (
	CompletionCompleted    CompletionStatus = "completed"
	CompletionNotCompleted CompletionStatus = "not_completed"
	CompletionUnknown      CompletionStatus = "unknown"
)

// Valid reports whether the status is one of the three allowed values.
func (c CompletionStatus) Valid() bool {
	switch c {
	case CompletionCompleted, CompletionNotCompleted, CompletionUnknown:
		return true
	}
	return false
}

// Meridiem labels a record by clock half-day.
type Meridiem string

const (
	MeridiemAM Meridiem = "AM"
	MeridiemPM Meridiem = "PM"
)

// MeridiemForHour classifies an hour of day (0-23).
func MeridiemForHour(hour int) Meridiem {
	if hour < 12 {
		return MeridiemAM
	}
	return MeridiemPM
}

// SourceKind identifies the spreadsheet shape a record was ingested from.
type SourceKind string

const (
	SourceWatchHistory  SourceKind = "watch_history"
	SourceQuestionnaire SourceKind = "questionnaire"
	SourceVideoMeta     SourceKind = "video_meta"
)

// WatchRecord is a canonical row of the assembled dataset: one watch (or
// questionnaire activity) event after column reconciliation, timestamp
// repair and field standardization.
type WatchRecord struct {
	VideoID         string           `json:"video_id" csv:"VideoID"`
	VideoName       string           `json:"video_name" csv:"VideoName" validate:"required"`
	UserID          string           `json:"user_id" csv:"UserID" validate:"required"`
	OwnerID         string           `json:"owner_id,omitempty" csv:"OwnerID"`
	Timestamp       time.Time        `json:"timestamp" csv:"Timestamp" validate:"required"`
	DurationMinutes float64          `json:"duration_minutes" csv:"DurationMinutes" validate:"gte=0"`
	Completion      CompletionStatus `json:"completion" csv:"Completion" validate:"required,oneof=completed not_completed unknown"`
	AcademicYear    string           `json:"academic_year" csv:"AcademicYear"`
	Questionnaire   bool             `json:"questionnaire" csv:"Questionnaire"`
	Source          SourceKind       `json:"source" csv:"Source"`
}

// DerivedRecord is a WatchRecord plus the fields computed from its
// timestamp and from the record's position in the assembled dataset.
type DerivedRecord struct {
	WatchRecord

	Year         int      `json:"year" csv:"Year"`
	Month        int      `json:"month" csv:"Month" validate:"gte=1,lte=12"`
	Hour         int      `json:"hour" csv:"Hour" validate:"gte=0,lte=23"`
	Weekday      string   `json:"weekday" csv:"Weekday"`
	AmPm         Meridiem `json:"am_pm" csv:"AmPm"`
	RepeatViewer bool     `json:"repeat_viewer" csv:"RepeatViewer"`
	OwnerView    bool     `json:"owner_view" csv:"OwnerView"`
	Category     string   `json:"category,omitempty" csv:"Category"`
}

// WeekdayOrder is the fixed Monday-first ordering used everywhere a
// day-of-week axis appears (heatmaps, filters, exports).
var WeekdayOrder = [7]string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

// WeekdayIndex returns the Monday-first position of a weekday label,
// or -1 when the label is not one of the seven canonical values.
func WeekdayIndex(name string) int {
	for i, d := range WeekdayOrder {
		if d == name {
			return i
		}
	}
	return -1
}

// WeekdayName maps time.Weekday onto the canonical label set.
func WeekdayName(d time.Weekday) string {
	// time.Weekday is Sunday-first; the dataset ordering is Monday-first.
	return WeekdayOrder[(int(d)+6)%7]
}

// AcademicYearFor labels a timestamp with the institution year period.
// The year boundary is September 1: 2023-09-01 falls in "2023-2024",
// 2023-08-31 in "2022-2023".
func AcademicYearFor(t time.Time) string {
	start := t.Year()
	if t.Month() < time.September {
		start--
	}
	return formatAcademicYear(start)
}

func formatAcademicYear(start int) string {
	return strconv.Itoa(start) + "-" + strconv.Itoa(start+1)
}

// VideoMeta carries per-video attributes from the metadata source shape.
// Records are enriched with it by video identity during assembly.
type VideoMeta struct {
	VideoID   string `json:"video_id" csv:"VideoID"`
	VideoName string `json:"video_name" csv:"VideoName" validate:"required"`
	Category  string `json:"category,omitempty" csv:"Category"`
	Kind      string `json:"kind,omitempty" csv:"Kind" validate:"omitempty,oneof=parent child"`
	OwnerID   string `json:"owner_id,omitempty" csv:"OwnerID"`

	// ReportedViews is the lifetime view count the platform's own counts
	// export claims for the video. Kept alongside the counts this system
	// derives so the two can be compared; never substituted for them.
	ReportedViews int `json:"reported_views,omitempty" csv:"ReportedViews" validate:"min=0"`
}

// Key returns the identity used to join metadata onto watch records:
// the video ID when present, otherwise the video name.
func (m VideoMeta) Key() string {
	if m.VideoID != "" {
		return m.VideoID
	}
	return m.VideoName
}

// JoinKey is the matching identity of a watch record, mirroring VideoMeta.Key.
func (r WatchRecord) JoinKey() string {
	if r.VideoID != "" {
		return r.VideoID
	}
	return r.VideoName
}

// DedupKey identifies an exact-duplicate row. Two rows with the same key
// are the same event reported twice and only the first is kept.
type DedupKey struct {
	VideoKey   string
	UserID     string
	Timestamp  time.Time
	Duration   float64
	Completion CompletionStatus
}

// Dedup returns the record's duplicate-detection key.
func (r WatchRecord) Dedup() DedupKey {
	return DedupKey{
		VideoKey:   r.JoinKey(),
		UserID:     r.UserID,
		Timestamp:  r.Timestamp,
		Duration:   r.DurationMinutes,
		Completion: r.Completion,
	}
}

// Less orders derived records deterministically: timestamp, then user,
// then video, then source. Assembled output is always sorted with it so
// that identical inputs yield byte-identical tables.
func (r DerivedRecord) Less(other DerivedRecord) bool {
	if !r.Timestamp.Equal(other.Timestamp) {
		return r.Timestamp.Before(other.Timestamp)
	}
	if r.UserID != other.UserID {
		return r.UserID < other.UserID
	}
	if r.VideoName != other.VideoName {
		return r.VideoName < other.VideoName
	}
	return r.Source < other.Source
}
