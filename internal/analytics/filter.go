package analytics

import (
	"sort"
	"strings"
	"time"

	"watchlens/pkg/contracts/domain"
)

// Apply narrows the assembled dataset to the records matching every
// active filter dimension. Record order is preserved, so a filtered
// subset keeps the dataset's canonical chronological order and the same
// filter over the same dataset always yields the same rows.
func Apply(records []domain.DerivedRecord, filter domain.WatchFilter) []domain.DerivedRecord {
	if filter.IsZero() {
		return records
	}

	m := newMatcher(filter)
	filtered := make([]domain.DerivedRecord, 0, len(records))
	for _, record := range records {
		if m.matches(record) {
			filtered = append(filtered, record)
		}
	}
	return filtered
}

// Page slices a filtered record list for the paged records endpoint.
// Offsets beyond the end yield an empty page; limit <= 0 means no limit.
func Page(records []domain.DerivedRecord, offset, limit int) []domain.DerivedRecord {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(records) {
		return nil
	}
	rest := records[offset:]
	if limit <= 0 || limit >= len(rest) {
		return rest
	}
	return rest[:limit]
}

// matcher holds a filter with its set dimensions compiled into lookup
// maps, so Apply stays linear in the record count.
type matcher struct {
	filter     domain.WatchFilter
	hours      map[int]bool
	weekdays   map[string]bool
	years      map[string]bool
	names      map[string]bool
	categories map[string]bool
	completion map[domain.CompletionStatus]bool
	users      map[string]bool
	query      string
}

func newMatcher(filter domain.WatchFilter) *matcher {
	return &matcher{
		filter:     filter,
		hours:      intSet(filter.Hours),
		weekdays:   stringSet(filter.Weekdays),
		years:      stringSet(filter.AcademicYears),
		names:      stringSet(filter.VideoNames),
		categories: stringSet(filter.Categories),
		completion: statusSet(filter.Completion),
		users:      stringSet(filter.Users),
		query:      strings.ToLower(strings.TrimSpace(filter.VideoQuery)),
	}
}

func (m *matcher) matches(r domain.DerivedRecord) bool {
	f := m.filter

	if f.DateFrom != nil && r.Timestamp.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && r.Timestamp.After(*f.DateTo) {
		return false
	}
	if m.hours != nil && !m.hours[r.Hour] {
		return false
	}
	if f.Meridiem != nil && r.AmPm != *f.Meridiem {
		return false
	}
	if m.weekdays != nil && !m.weekdays[r.Weekday] {
		return false
	}
	if m.years != nil && !m.years[r.AcademicYear] {
		return false
	}
	if m.names != nil && !m.names[r.VideoName] {
		return false
	}
	if m.query != "" && !strings.Contains(strings.ToLower(r.VideoName), m.query) {
		return false
	}
	if m.categories != nil && !m.categories[r.Category] {
		return false
	}
	if m.completion != nil && !m.completion[r.Completion] {
		return false
	}
	if f.Questionnaire != nil && r.Questionnaire != *f.Questionnaire {
		return false
	}
	if f.RepeatOnly != nil && r.RepeatViewer != *f.RepeatOnly {
		return false
	}
	if f.OwnerView != nil && r.OwnerView != *f.OwnerView {
		return false
	}
	if m.users != nil && !m.users[r.UserID] {
		return false
	}
	if f.MinDurationMinutes != nil && r.DurationMinutes < *f.MinDurationMinutes {
		return false
	}
	if f.MaxDurationMinutes != nil && r.DurationMinutes > *f.MaxDurationMinutes {
		return false
	}
	return true
}

func stringSet(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

func intSet(values []int) map[int]bool {
	if len(values) == 0 {
		return nil
	}
	set := make(map[int]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

func statusSet(values []domain.CompletionStatus) map[domain.CompletionStatus]bool {
	if len(values) == 0 {
		return nil
	}
	set := make(map[domain.CompletionStatus]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

// FilterOptions enumerates the values the dashboard filter controls can
// offer, derived from the dataset itself.
type FilterOptions struct {
	// DateMin and DateMax bound the dataset's timestamps ("2006-01-02").
	DateMin string `json:"date_min,omitempty"`
	DateMax string `json:"date_max,omitempty"`

	// AcademicYears, VideoNames and Categories are the distinct values
	// present, sorted. Categories omits the empty value.
	AcademicYears []string `json:"academic_years"`
	VideoNames    []string `json:"video_names"`
	Categories    []string `json:"categories"`

	// Weekdays is the fixed Monday-first label order.
	Weekdays []string `json:"weekdays"`

	// Completion lists the three canonical statuses.
	Completion []domain.CompletionStatus `json:"completion"`
}

// Options derives the filter enumerations from the assembled dataset.
func Options(records []domain.DerivedRecord) FilterOptions {
	options := FilterOptions{
		Weekdays: domain.WeekdayOrder[:],
		Completion: []domain.CompletionStatus{
			domain.CompletionCompleted,
			domain.CompletionNotCompleted,
			domain.CompletionUnknown,
		},
	}

	years := make(map[string]bool)
	names := make(map[string]bool)
	categories := make(map[string]bool)
	var min, max time.Time

	for i, r := range records {
		years[r.AcademicYear] = true
		if r.VideoName != "" {
			names[r.VideoName] = true
		}
		if r.Category != "" {
			categories[r.Category] = true
		}
		if i == 0 || r.Timestamp.Before(min) {
			min = r.Timestamp
		}
		if i == 0 || r.Timestamp.After(max) {
			max = r.Timestamp
		}
	}

	options.AcademicYears = sortedKeys(years)
	options.VideoNames = sortedKeys(names)
	options.Categories = sortedKeys(categories)
	if len(records) > 0 {
		options.DateMin = min.Format("2006-01-02")
		options.DateMax = max.Format("2006-01-02")
	}
	return options
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
