package domain

import "time"

// ExclusionReason names why a row or file was left out of the assembled
// dataset. Exclusions never abort a build; they are counted per reason
// and surfaced in the BuildReport.
type ExclusionReason string

const (
	// ExcludeMissingColumns marks a whole file skipped because a required
	// column had no recognizable alias in the header row.
	ExcludeMissingColumns ExclusionReason = "missing_required_columns"

	// ExcludeBadTimestamp marks a row whose date/time could not be parsed
	// by any accepted format.
	ExcludeBadTimestamp ExclusionReason = "unparseable_timestamp"

	// ExcludeInvalidDuration marks a row whose duration was negative,
	// non-numeric or otherwise uninterpretable.
	ExcludeInvalidDuration ExclusionReason = "invalid_duration"

	// ExcludeMissingVideo marks a row with no video identity at all.
	ExcludeMissingVideo ExclusionReason = "missing_video"

	// ExcludeMissingUser marks a row with no viewer identity.
	ExcludeMissingUser ExclusionReason = "missing_user"

	// ExcludeDuplicate marks an exact duplicate of an earlier row.
	ExcludeDuplicate ExclusionReason = "duplicate"

	// ExcludeNotSubmitted marks a questionnaire row whose completion
	// column says the response was never submitted.
	ExcludeNotSubmitted ExclusionReason = "not_submitted"
)

// SourceReport describes what happened to one input file during a build.
type SourceReport struct {
	// File is the input path relative to the raw data directory.
	File string `json:"file"`

	// Kind is the detected source shape.
	Kind SourceKind `json:"kind"`

	// Sheet is the worksheet the rows were read from.
	Sheet string `json:"sheet,omitempty"`

	// RowsRead counts data rows found below the header.
	RowsRead int `json:"rows_read"`

	// RowsKept counts rows that made it into the assembled dataset.
	RowsKept int `json:"rows_kept"`

	// Excluded counts dropped rows by reason.
	Excluded map[ExclusionReason]int `json:"excluded,omitempty"`

	// Skipped is true when the whole file was excluded.
	Skipped bool `json:"skipped,omitempty"`

	// SkipReason explains a skipped file.
	SkipReason string `json:"skip_reason,omitempty"`

	// MissingColumns lists required columns that no header alias matched,
	// for files skipped with ExcludeMissingColumns.
	MissingColumns []string `json:"missing_columns,omitempty"`

	// MatchedColumns maps each canonical column to the source header that
	// matched it, for troubleshooting alias coverage.
	MatchedColumns map[string]string `json:"matched_columns,omitempty"`
}

// ExcludedTotal sums the per-reason exclusion counts of one source.
func (s SourceReport) ExcludedTotal() int {
	total := 0
	for _, n := range s.Excluded {
		total += n
	}
	return total
}

// BuildReport summarizes a full dataset build: every file touched, every
// row kept or excluded, and the reasons. It accompanies the assembled
// table so dashboards can show what the numbers are based on.
type BuildReport struct {
	// RunID identifies the build run for correlation with logs.
	RunID string `json:"run_id"`

	// StartedAt and FinishedAt bound the build wall time. They describe
	// the run, not the data; the assembled table itself carries no run
	// timestamps so identical inputs produce identical tables.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Sources reports per-file outcomes in input order.
	Sources []SourceReport `json:"sources"`

	// RowsRead is the total of data rows across all files.
	RowsRead int `json:"rows_read"`

	// RowsKept counts rows that survived from all sources, after the
	// build-level duplicate removal. RowsRead always equals RowsKept
	// plus the sum of ExcludedByReason.
	RowsKept int `json:"rows_kept"`

	// DatasetRows is the size of the assembled watch table. It differs
	// from RowsKept when questionnaire or metadata sources contributed
	// rows, which feed the table without becoming rows of it.
	DatasetRows int `json:"dataset_rows"`

	// ExcludedByReason aggregates exclusion counts across all sources,
	// plus duplicates removed when merging sources together.
	ExcludedByReason map[ExclusionReason]int `json:"excluded_by_reason,omitempty"`

	// Videos and Viewers are distinct-entity counts of the kept rows.
	Videos  int `json:"videos"`
	Viewers int `json:"viewers"`

	// DateFrom and DateTo bound the kept rows' timestamps ("2006-01-02").
	// Empty when no rows were kept.
	DateFrom string `json:"date_from,omitempty"`
	DateTo   string `json:"date_to,omitempty"`
}

// AddSource appends a per-file report and folds its counts into the totals.
func (b *BuildReport) AddSource(src SourceReport) {
	b.Sources = append(b.Sources, src)
	b.RowsRead += src.RowsRead
	b.RowsKept += src.RowsKept
	if len(src.Excluded) == 0 {
		return
	}
	if b.ExcludedByReason == nil {
		b.ExcludedByReason = make(map[ExclusionReason]int)
	}
	for reason, n := range src.Excluded {
		b.ExcludedByReason[reason] += n
	}
}

// ExcludedTotal sums exclusions across every source in the build.
func (b *BuildReport) ExcludedTotal() int {
	total := 0
	for _, n := range b.ExcludedByReason {
		total += n
	}
	return total
}
