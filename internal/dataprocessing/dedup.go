package dataprocessing

import (
	"log/slog"

	"watchlens/pkg/contracts/domain"
)

// Deduplicator drops exact duplicate rows from the merged record set.
// Exports frequently overlap (a season file and a full-year file both
// carrying the same weeks), so the same event arrives more than once;
// two rows are the same event when every identifying field agrees.
type Deduplicator struct {
	logger *slog.Logger
}

// NewDeduplicator creates a deduplicator. A nil logger falls back to the
// process default.
func NewDeduplicator(logger *slog.Logger) *Deduplicator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Deduplicator{logger: logger}
}

// DedupStatistics reports what deduplication removed.
type DedupStatistics struct {
	// TotalRecords is the merged row count before deduplication.
	TotalRecords int

	// UniqueRecords is the row count after deduplication.
	UniqueRecords int

	// DuplicatesRemoved is TotalRecords - UniqueRecords.
	DuplicatesRemoved int

	// DuplicatesByVideo counts removed rows per video identity, for the
	// build report's troubleshooting view.
	DuplicatesByVideo map[string]int
}

// Deduplicate returns the records with exact duplicates removed, keeping
// the first occurrence. Input order is preserved, so with sources walked
// in a fixed order the survivor of a duplicate pair is always the same.
func (d *Deduplicator) Deduplicate(records []domain.WatchRecord) []domain.WatchRecord {
	unique, _ := d.DeduplicateWithStats(records)
	return unique
}

// DeduplicateWithStats deduplicates and reports what was removed.
func (d *Deduplicator) DeduplicateWithStats(records []domain.WatchRecord) ([]domain.WatchRecord, *DedupStatistics) {
	stats := &DedupStatistics{
		TotalRecords:      len(records),
		DuplicatesByVideo: make(map[string]int),
	}

	seen := make(map[domain.DedupKey]bool, len(records))
	unique := make([]domain.WatchRecord, 0, len(records))

	for _, record := range records {
		key := record.Dedup()
		if seen[key] {
			stats.DuplicatesRemoved++
			stats.DuplicatesByVideo[record.JoinKey()]++
			continue
		}
		seen[key] = true
		unique = append(unique, record)
	}

	stats.UniqueRecords = len(unique)

	if stats.DuplicatesRemoved > 0 {
		d.logger.Info("duplicate rows removed",
			slog.Int("total", stats.TotalRecords),
			slog.Int("unique", stats.UniqueRecords),
			slog.Int("removed", stats.DuplicatesRemoved))
	}

	return unique, stats
}
