package dataprocessing

import (
	"sort"

	"watchlens/pkg/contracts/domain"
)

// Derive turns deduplicated canonical records into the derived table the
// dashboards consume. Records are sorted into the canonical chronological
// order first; the repeat-viewer flag depends on it, and the fixed order
// is what makes rebuilds of the same sources byte-identical.
func Derive(records []domain.WatchRecord, meta map[string]domain.VideoMeta, questionnaireUsers map[string]bool) []domain.DerivedRecord {
	derived := make([]domain.DerivedRecord, 0, len(records))

	for _, record := range records {
		record.AcademicYear = domain.AcademicYearFor(record.Timestamp)
		record.Questionnaire = questionnaireUsers[record.UserID]

		d := domain.DerivedRecord{
			WatchRecord: record,
			Year:        record.Timestamp.Year(),
			Month:       int(record.Timestamp.Month()),
			Hour:        record.Timestamp.Hour(),
			Weekday:     domain.WeekdayName(record.Timestamp.Weekday()),
			AmPm:        domain.MeridiemForHour(record.Timestamp.Hour()),
		}

		if m, ok := lookupMeta(meta, record); ok {
			d.Category = m.Category
			if d.VideoID == "" {
				d.VideoID = m.VideoID
			}
			if d.OwnerID == "" {
				d.OwnerID = m.OwnerID
			}
		}
		d.OwnerView = d.OwnerID != "" && d.UserID == d.OwnerID

		derived = append(derived, d)
	}

	sort.SliceStable(derived, func(i, j int) bool {
		return derived[i].Less(derived[j])
	})

	seen := make(map[string]int, len(derived))
	for i := range derived {
		user := derived[i].UserID
		derived[i].RepeatViewer = seen[user] > 0
		seen[user]++
	}

	return derived
}

// lookupMeta resolves a record's metadata by video id first, then by
// display name.
func lookupMeta(meta map[string]domain.VideoMeta, record domain.WatchRecord) (domain.VideoMeta, bool) {
	if len(meta) == 0 {
		return domain.VideoMeta{}, false
	}
	if record.VideoID != "" {
		if m, ok := meta[record.VideoID]; ok {
			return m, true
		}
	}
	if record.VideoName != "" {
		if m, ok := meta[record.VideoName]; ok {
			return m, true
		}
	}
	return domain.VideoMeta{}, false
}

// BuildMetaIndex folds per-video metadata rows into one entry per video,
// indexed under both the video id and the display name. Later rows fill
// only the blanks of earlier ones, so the first source to state a fact
// wins and source order decides conflicts.
func BuildMetaIndex(rows []domain.VideoMeta) map[string]domain.VideoMeta {
	if len(rows) == 0 {
		return nil
	}

	index := make(map[string]domain.VideoMeta)
	merge := func(key string, row domain.VideoMeta) {
		if key == "" {
			return
		}
		existing, ok := index[key]
		if !ok {
			index[key] = row
			return
		}
		if existing.VideoID == "" {
			existing.VideoID = row.VideoID
		}
		if existing.VideoName == "" {
			existing.VideoName = row.VideoName
		}
		if existing.Category == "" {
			existing.Category = row.Category
		}
		if existing.Kind == "" {
			existing.Kind = row.Kind
		}
		if existing.OwnerID == "" {
			existing.OwnerID = row.OwnerID
		}
		if existing.ReportedViews == 0 {
			existing.ReportedViews = row.ReportedViews
		}
		index[key] = existing
	}

	for _, row := range rows {
		merge(row.VideoID, row)
		merge(row.VideoName, row)
	}

	return index
}
