package dataprocessing

import (
	"regexp"
	"strings"

	"watchlens/pkg/contracts/domain"
)

// Canonical column keys. Source headers are reconciled onto these via the
// alias tables below; every consumer downstream of the parser sees only
// canonical keys.
const (
	ColVideoName  = "video_name"
	ColVideoID    = "video_id"
	ColUserID     = "user_id"
	ColOwnerID    = "owner_id"
	ColDate       = "date"
	ColTime       = "time"
	ColDuration   = "duration"
	ColCompletion = "completion"
	ColCategory   = "category"
	ColKind       = "kind"
	ColViewCount  = "view_count"
)

// columnAliases maps each canonical key to the header spellings observed
// across real exports, in priority order. Matching is explicit: a header
// that is not listed here (or does not contain a listed alias) is never
// used, and required keys with no match are reported, not guessed.
var columnAliases = map[string][]string{
	ColVideoName: {
		"viewerChoices_VideoName", "Video_Name", "VideoName", "video name",
		"viewerChoices video name", "title",
	},
	ColVideoID: {
		"viewerChoices_VideoId", "VideoID", "Video_Id", "video id", "id",
	},
	ColUserID: {
		"videoViewer", "Viewer", "User", "Student", "Respondent",
		"Participant", "viewer id", "student id",
	},
	ColOwnerID: {
		"videoOwner", "Owner", "Instructor",
	},
	ColDate: {
		"viewerChoices_ViewDate", "View_Date", "ViewDate", "Date",
		"View_Timestamp", "Timestamp", "Datetime",
	},
	ColTime: {
		"viewerChoices_ViewTime", "View_Time", "ViewTime", "Time",
	},
	ColDuration: {
		"viewerChoices_ViewingDuration", "Viewing_Duration_Sec",
		"ViewingDuration", "Duration_Seconds", "Duration_Sec",
		"Duration_Min", "Duration", "Watch Time",
	},
	ColCompletion: {
		"viewerChoices_DoneViewing", "Done_Viewing", "Done", "Completed",
		"Completion", "Finished", "Submitted",
	},
	ColCategory: {
		"Category", "Topic", "Module", "Tag", "Tags",
	},
	ColKind: {
		"ParentChild", "parent_child", "Parent/Child", "is_parent",
		"Type", "Level",
	},
	ColViewCount: {
		"View_Count", "Total_Views", "Views", "Count",
	},
}

// columnOrder fixes the sequence in which keys claim header cells. More
// specific keys go first so that, for example, a "Video Name" header is
// claimed by video_name before video_id's short "id" alias can reach it
// on the substring pass.
var columnOrder = map[domain.SourceKind][]string{
	domain.SourceWatchHistory: {
		ColVideoName, ColVideoID, ColUserID, ColOwnerID,
		ColDate, ColTime, ColDuration, ColCompletion,
	},
	domain.SourceQuestionnaire: {
		ColUserID, ColCompletion, ColDate, ColTime,
	},
	domain.SourceVideoMeta: {
		ColVideoName, ColVideoID, ColCategory, ColKind,
		ColOwnerID, ColViewCount,
	},
}

// requiredColumns lists what a source shape must provide to be usable.
// videoIdentity entries are satisfied by either video_name or video_id.
var requiredColumns = map[domain.SourceKind][]string{
	domain.SourceWatchHistory:  {videoIdentity, ColDate, ColDuration},
	domain.SourceQuestionnaire: {ColUserID},
	domain.SourceVideoMeta:     {videoIdentity},
}

// videoIdentity is the pseudo-column reported as missing when a source
// carries neither a video name nor a video id.
const videoIdentity = "video_name|video_id"

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)

// normalizeHeader collapses a header cell to lowercase alphanumerics so
// that "View_Date", "view date" and "ViewDate" all compare equal.
func normalizeHeader(s string) string {
	return nonAlnumRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "")
}

// ColumnMatch is the outcome of reconciling one header row against the
// alias table for a source shape.
type ColumnMatch struct {
	// Indexes maps each matched canonical key to its cell position.
	Indexes map[string]int

	// Matched maps each matched canonical key to the source header that
	// claimed it, as written in the file.
	Matched map[string]string

	// Missing lists required keys no alias matched. A non-empty list
	// means the file cannot be ingested.
	Missing []string

	// DurationUnit is the unit bare numeric durations are read in,
	// inferred from the matched duration header.
	DurationUnit DurationUnit
}

// HasColumn reports whether a canonical key was matched.
func (m ColumnMatch) HasColumn(key string) bool {
	_, ok := m.Indexes[key]
	return ok
}

// Cell returns the trimmed cell under a canonical key, or "" when the key
// was not matched or the row is too short.
func (m ColumnMatch) Cell(row []string, key string) string {
	idx, ok := m.Indexes[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// MatchColumns reconciles a header row against the alias table for the
// given source shape. Each canonical key tries, in order: an exact header
// match, a normalized match, then a normalized-substring match. A header
// cell claimed by one key is not offered to later keys.
func MatchColumns(header []string, kind domain.SourceKind) ColumnMatch {
	match := ColumnMatch{
		Indexes: make(map[string]int),
		Matched: make(map[string]string),
	}

	claimed := make(map[int]bool, len(header))
	normalized := make([]string, len(header))
	for i, cell := range header {
		normalized[i] = normalizeHeader(cell)
	}

	for _, key := range columnOrder[kind] {
		idx := findColumn(header, normalized, claimed, columnAliases[key])
		if idx < 0 {
			continue
		}
		claimed[idx] = true
		match.Indexes[key] = idx
		match.Matched[key] = strings.TrimSpace(header[idx])
	}

	for _, req := range requiredColumns[kind] {
		if req == videoIdentity {
			if !match.HasColumn(ColVideoName) && !match.HasColumn(ColVideoID) {
				match.Missing = append(match.Missing, videoIdentity)
			}
			continue
		}
		if !match.HasColumn(req) {
			match.Missing = append(match.Missing, req)
		}
	}

	if header, ok := match.Matched[ColDuration]; ok {
		match.DurationUnit = durationUnitForHeader(header)
	}

	return match
}

// findColumn locates the first unclaimed header cell an alias list can
// claim, trying exact, normalized, then substring matches in that order.
func findColumn(header, normalized []string, claimed map[int]bool, aliases []string) int {
	for _, alias := range aliases {
		for i, cell := range header {
			if !claimed[i] && strings.TrimSpace(cell) == alias {
				return i
			}
		}
	}
	for _, alias := range aliases {
		want := normalizeHeader(alias)
		for i := range header {
			if !claimed[i] && normalized[i] != "" && normalized[i] == want {
				return i
			}
		}
	}
	for _, alias := range aliases {
		want := normalizeHeader(alias)
		if want == "" {
			continue
		}
		for i := range header {
			if !claimed[i] && strings.Contains(normalized[i], want) {
				return i
			}
		}
	}
	return -1
}

// durationUnitForHeader infers the unit of bare numeric duration cells
// from the header they sit under. Exports that label the column at all
// label it with the unit; unlabeled columns carry seconds.
func durationUnitForHeader(header string) DurationUnit {
	h := strings.ToLower(header)
	switch {
	case strings.Contains(h, "min"):
		return UnitMinutes
	case strings.Contains(h, "hour"), strings.Contains(h, "hr"):
		return UnitHours
	default:
		return UnitSeconds
	}
}
