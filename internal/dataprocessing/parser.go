package dataprocessing

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "watchlens/internal/errors"
	"watchlens/pkg/contracts/domain"
)

// headerScanRows bounds how deep into a sheet the header search looks.
// Real exports put the header in the first few rows, sometimes below a
// title banner or a blank spacer.
const headerScanRows = 12

// ParseResult is the typed payload of one parsed source file. Exactly one
// of Records, Users or Meta is populated, matching the source kind.
type ParseResult struct {
	// Records are canonical watch rows from a watch-history source.
	Records []domain.WatchRecord

	// Users is the set of identifiers that submitted a questionnaire.
	Users map[string]bool

	// Meta is the per-video attribute list from a metadata source.
	Meta []domain.VideoMeta

	// Report accounts for every data row the file contained.
	Report domain.SourceReport
}

// SourceParser reads one classified export file into canonical rows.
// Rows that cannot be repaired are excluded and counted by reason; the
// only fatal condition is a file that cannot be opened or read at all.
type SourceParser struct {
	logger *slog.Logger
}

// NewSourceParser creates a parser. A nil logger falls back to the
// process default.
func NewSourceParser(logger *slog.Logger) *SourceParser {
	if logger == nil {
		logger = slog.Default()
	}
	return &SourceParser{logger: logger}
}

// Parse reads the file at path as the given source kind. The returned
// error is non-nil only for unreadable files; every row-level problem is
// absorbed into the result's report.
func (p *SourceParser) Parse(ctx context.Context, path string, kind domain.SourceKind) (*ParseResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &ParseResult{
		Report: domain.SourceReport{
			File: filepath.Base(path),
			Kind: kind,
		},
	}

	rows, sheet, err := p.readRows(path, kind)
	if err != nil {
		return nil, apperrors.NewIngestError(
			fmt.Sprintf("source file %s is unreadable", filepath.Base(path)), err,
		).WithContext("file", path)
	}
	result.Report.Sheet = sheet

	headerIdx, match, found := findHeader(rows, kind)
	if !found {
		result.Report.Skipped = true
		result.Report.SkipReason = "no recognizable header row"
		p.logger.Warn("source skipped",
			slog.String("file", result.Report.File),
			slog.String("reason", result.Report.SkipReason))
		return result, nil
	}

	result.Report.MatchedColumns = match.Matched
	if len(match.Missing) > 0 {
		dataRows := countDataRows(rows, headerIdx+1)
		result.Report.Skipped = true
		result.Report.SkipReason = "required columns not found"
		result.Report.MissingColumns = match.Missing
		result.Report.RowsRead = dataRows
		if dataRows > 0 {
			result.Report.Excluded = map[domain.ExclusionReason]int{
				domain.ExcludeMissingColumns: dataRows,
			}
		}
		p.logger.Warn("source skipped",
			slog.String("file", result.Report.File),
			slog.String("reason", result.Report.SkipReason),
			slog.Any("missing_columns", match.Missing),
			slog.Int("rows_excluded", dataRows))
		return result, nil
	}

	switch kind {
	case domain.SourceWatchHistory:
		p.parseWatchRows(ctx, rows[headerIdx+1:], match, result)
	case domain.SourceQuestionnaire:
		p.parseQuestionnaireRows(ctx, rows[headerIdx+1:], match, result)
	case domain.SourceVideoMeta:
		p.parseMetaRows(ctx, rows[headerIdx+1:], match, result)
	default:
		result.Report.Skipped = true
		result.Report.SkipReason = fmt.Sprintf("unsupported source kind %q", kind)
		return result, nil
	}

	p.logger.Info("source parsed",
		slog.String("file", result.Report.File),
		slog.String("kind", string(kind)),
		slog.String("sheet", sheet),
		slog.Int("rows_read", result.Report.RowsRead),
		slog.Int("rows_kept", result.Report.RowsKept),
		slog.Int("rows_excluded", result.Report.ExcludedTotal()))

	return result, nil
}

// readRows loads the cell grid of a source file. Spreadsheets go through
// excelize, delimited text through encoding/csv with ragged rows allowed.
func (p *SourceParser) readRows(path string, kind domain.SourceKind) ([][]string, string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".csv" {
		f, err := os.Open(path)
		if err != nil {
			return nil, "", err
		}
		defer f.Close()

		reader := csv.NewReader(f)
		reader.FieldsPerRecord = -1
		reader.LazyQuotes = true
		rows, err := reader.ReadAll()
		if err != nil {
			return nil, "", err
		}
		return rows, "", nil
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	return bestSheet(f, kind)
}

// bestSheet picks the worksheet to ingest: the first sheet whose early
// rows form a complete header for the source kind, falling back to the
// first readable sheet so the miss is reported against real content.
func bestSheet(f *excelize.File, kind domain.SourceKind) ([][]string, string, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, "", fmt.Errorf("workbook has no sheets")
	}

	var firstRows [][]string
	var firstName string
	for _, name := range sheets {
		rows, err := f.GetRows(name)
		if err != nil {
			continue
		}
		if firstName == "" {
			firstRows, firstName = rows, name
		}
		if _, match, ok := findHeader(rows, kind); ok && len(match.Missing) == 0 {
			return rows, name, nil
		}
	}

	if firstName == "" {
		return nil, "", fmt.Errorf("workbook has no readable sheets")
	}
	return firstRows, firstName, nil
}

// findHeader scans the top of the grid for the row that best matches the
// alias table. A row matching every required column wins outright; short
// of that, the row with the most matches is returned so the report can
// name exactly which required columns were missing.
func findHeader(rows [][]string, kind domain.SourceKind) (int, ColumnMatch, bool) {
	bestIdx := -1
	var best ColumnMatch

	limit := len(rows)
	if limit > headerScanRows {
		limit = headerScanRows
	}

	for i := 0; i < limit; i++ {
		if len(rows[i]) == 0 {
			continue
		}
		match := MatchColumns(rows[i], kind)
		if len(match.Indexes) == 0 {
			continue
		}
		if len(match.Missing) == 0 {
			return i, match, true
		}
		if bestIdx == -1 || len(match.Indexes) > len(best.Indexes) {
			bestIdx, best = i, match
		}
	}

	if bestIdx == -1 {
		return -1, ColumnMatch{}, false
	}
	return bestIdx, best, true
}

// countDataRows counts rows below the header with any content at all.
func countDataRows(rows [][]string, start int) int {
	count := 0
	for _, row := range rows[start:] {
		if !rowEmpty(row) {
			count++
		}
	}
	return count
}

func rowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// excludeRow counts one dropped row under its reason.
func excludeRow(report *domain.SourceReport, reason domain.ExclusionReason) {
	if report.Excluded == nil {
		report.Excluded = make(map[domain.ExclusionReason]int)
	}
	report.Excluded[reason]++
}

// parseWatchRows turns watch-history data rows into canonical records.
// Row order in the file is preserved; the assembler owns final ordering.
func (p *SourceParser) parseWatchRows(ctx context.Context, rows [][]string, match ColumnMatch, result *ParseResult) {
	for i, row := range rows {
		if i%1024 == 0 && ctx.Err() != nil {
			return
		}
		if rowEmpty(row) {
			continue
		}
		result.Report.RowsRead++

		videoName := CleanTitle(match.Cell(row, ColVideoName))
		videoID := match.Cell(row, ColVideoID)
		if videoName == "" && videoID == "" {
			excludeRow(&result.Report, domain.ExcludeMissingVideo)
			continue
		}

		userID := match.Cell(row, ColUserID)
		if userID == "" {
			excludeRow(&result.Report, domain.ExcludeMissingUser)
			continue
		}

		timestamp, err := ParseTimestamp(match.Cell(row, ColDate), match.Cell(row, ColTime))
		if err != nil {
			excludeRow(&result.Report, domain.ExcludeBadTimestamp)
			continue
		}

		minutes, err := ParseDurationMinutes(match.Cell(row, ColDuration), match.DurationUnit)
		if err != nil || minutes <= 0 {
			excludeRow(&result.Report, domain.ExcludeInvalidDuration)
			continue
		}

		result.Records = append(result.Records, domain.WatchRecord{
			VideoID:         videoID,
			VideoName:       videoName,
			UserID:          userID,
			OwnerID:         match.Cell(row, ColOwnerID),
			Timestamp:       timestamp,
			DurationMinutes: minutes,
			Completion:      ParseCompletion(match.Cell(row, ColCompletion)),
			Source:          domain.SourceWatchHistory,
		})
		result.Report.RowsKept++
	}
}

// parseQuestionnaireRows collects the set of users that submitted a
// response. Rows whose completion column denies submission are excluded;
// repeated rows for one user all count as kept and collapse in the set.
func (p *SourceParser) parseQuestionnaireRows(ctx context.Context, rows [][]string, match ColumnMatch, result *ParseResult) {
	result.Users = make(map[string]bool)

	for i, row := range rows {
		if i%1024 == 0 && ctx.Err() != nil {
			return
		}
		if rowEmpty(row) {
			continue
		}
		result.Report.RowsRead++

		userID := match.Cell(row, ColUserID)
		if userID == "" {
			excludeRow(&result.Report, domain.ExcludeMissingUser)
			continue
		}

		if match.HasColumn(ColCompletion) {
			if ParseCompletion(match.Cell(row, ColCompletion)) == domain.CompletionNotCompleted {
				excludeRow(&result.Report, domain.ExcludeNotSubmitted)
				continue
			}
		}

		result.Users[userID] = true
		result.Report.RowsKept++
	}
}

// parseMetaRows reads per-video attributes. One video may appear on
// several rows; later rows fill blanks left by earlier ones and the
// merge itself happens during assembly.
func (p *SourceParser) parseMetaRows(ctx context.Context, rows [][]string, match ColumnMatch, result *ParseResult) {
	for i, row := range rows {
		if i%1024 == 0 && ctx.Err() != nil {
			return
		}
		if rowEmpty(row) {
			continue
		}
		result.Report.RowsRead++

		videoName := CleanTitle(match.Cell(row, ColVideoName))
		videoID := match.Cell(row, ColVideoID)
		if videoName == "" && videoID == "" {
			excludeRow(&result.Report, domain.ExcludeMissingVideo)
			continue
		}

		meta := domain.VideoMeta{
			VideoID:   videoID,
			VideoName: videoName,
			Category:  match.Cell(row, ColCategory),
			Kind:      normalizeVideoKind(match.Cell(row, ColKind)),
			OwnerID:   match.Cell(row, ColOwnerID),
		}
		if count, ok := parseCount(match.Cell(row, ColViewCount)); ok {
			meta.ReportedViews = count
		}

		result.Meta = append(result.Meta, meta)
		result.Report.RowsKept++
	}
}

// normalizeVideoKind maps the parent/child spellings onto the two
// canonical values, dropping anything else.
func normalizeVideoKind(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(s, "parent"):
		return "parent"
	case strings.Contains(s, "child"):
		return "child"
	}
	return ""
}
