package dataprocessing

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	apperrors "watchlens/internal/errors"
	"watchlens/pkg/contracts/domain"
)

// RecordsCSVHeader is the canonical column order of the assembled watch
// table. Every writer and reader of the table, including the dashboard
// export, uses exactly this header.
var RecordsCSVHeader = []string{
	"VideoID", "VideoName", "UserID", "OwnerID", "Timestamp",
	"DurationMinutes", "Completion", "AcademicYear", "Questionnaire",
	"Source", "Year", "Month", "Hour", "Weekday", "AmPm",
	"RepeatViewer", "OwnerView", "Category",
}

// recordsTimestampLayout keeps table timestamps second-precise and
// zone-free, matching how they were parsed.
const recordsTimestampLayout = "2006-01-02T15:04:05"

// RecordCSVRow renders one derived record in the canonical column order.
// Floats use the shortest exact representation, so a written table reads
// back to the very same values and rewriting it changes nothing.
func RecordCSVRow(r domain.DerivedRecord) []string {
	return []string{
		r.VideoID,
		r.VideoName,
		r.UserID,
		r.OwnerID,
		r.Timestamp.Format(recordsTimestampLayout),
		strconv.FormatFloat(r.DurationMinutes, 'f', -1, 64),
		string(r.Completion),
		r.AcademicYear,
		strconv.FormatBool(r.Questionnaire),
		string(r.Source),
		strconv.Itoa(r.Year),
		strconv.Itoa(r.Month),
		strconv.Itoa(r.Hour),
		r.Weekday,
		string(r.AmPm),
		strconv.FormatBool(r.RepeatViewer),
		strconv.FormatBool(r.OwnerView),
		r.Category,
	}
}

// RenderRecordsCSV renders the assembled table as CSV bytes. Identical
// record slices always render byte-identically.
func RenderRecordsCSV(records []domain.DerivedRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(RecordsCSVHeader); err != nil {
		return nil, err
	}
	for _, record := range records {
		if err := w.Write(RecordCSVRow(record)); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteRecordsCSV writes the assembled table to path.
func WriteRecordsCSV(path string, records []domain.DerivedRecord) error {
	data, err := RenderRecordsCSV(records)
	if err != nil {
		return apperrors.NewStorageError("failed to render records CSV", err).WithContext("path", path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return apperrors.NewStorageError("failed to write records CSV", err).WithContext("path", path)
	}
	return nil
}

// ReadRecordsCSV loads a previously written table. The header must match
// the canonical one exactly; the table is this system's own artifact and
// a mismatch means it is from an incompatible version, not a source file
// to be repaired.
func ReadRecordsCSV(path string) ([]domain.DerivedRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to open records CSV", err).WithContext("path", path)
	}
	defer f.Close()

	reader := csv.NewReader(f)

	header, err := reader.Read()
	if err != nil {
		return nil, apperrors.NewStorageError("failed to read records CSV header", err).WithContext("path", path)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	if len(header) != len(RecordsCSVHeader) {
		return nil, apperrors.NewParsingError(
			fmt.Sprintf("records CSV has %d columns, want %d", len(header), len(RecordsCSVHeader)), nil,
		).WithContext("path", path)
	}
	for i, name := range RecordsCSVHeader {
		if header[i] != name {
			return nil, apperrors.NewParsingError(
				fmt.Sprintf("records CSV column %d is %q, want %q", i, header[i], name), nil,
			).WithContext("path", path)
		}
	}

	var records []domain.DerivedRecord
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.NewParsingError("failed to read records CSV row", err).
				WithContext("path", path).
				WithContext("line", line+1)
		}
		line++

		record, err := parseRecordRow(row)
		if err != nil {
			return nil, apperrors.NewParsingError("invalid records CSV row", err).
				WithContext("path", path).
				WithContext("line", line)
		}
		records = append(records, record)
	}

	return records, nil
}

func parseRecordRow(row []string) (domain.DerivedRecord, error) {
	var r domain.DerivedRecord

	timestamp, err := time.ParseInLocation(recordsTimestampLayout, row[4], time.UTC)
	if err != nil {
		return r, fmt.Errorf("timestamp: %w", err)
	}
	minutes, err := strconv.ParseFloat(row[5], 64)
	if err != nil {
		return r, fmt.Errorf("duration_minutes: %w", err)
	}

	completion := domain.CompletionStatus(row[6])
	if !completion.Valid() {
		return r, fmt.Errorf("completion: unknown status %q", row[6])
	}

	questionnaire, err := strconv.ParseBool(row[8])
	if err != nil {
		return r, fmt.Errorf("questionnaire: %w", err)
	}
	year, err := strconv.Atoi(row[10])
	if err != nil {
		return r, fmt.Errorf("year: %w", err)
	}
	month, err := strconv.Atoi(row[11])
	if err != nil {
		return r, fmt.Errorf("month: %w", err)
	}
	hour, err := strconv.Atoi(row[12])
	if err != nil {
		return r, fmt.Errorf("hour: %w", err)
	}
	repeat, err := strconv.ParseBool(row[15])
	if err != nil {
		return r, fmt.Errorf("repeat_viewer: %w", err)
	}
	ownerView, err := strconv.ParseBool(row[16])
	if err != nil {
		return r, fmt.Errorf("owner_view: %w", err)
	}

	r = domain.DerivedRecord{
		WatchRecord: domain.WatchRecord{
			VideoID:         row[0],
			VideoName:       row[1],
			UserID:          row[2],
			OwnerID:         row[3],
			Timestamp:       timestamp,
			DurationMinutes: minutes,
			Completion:      completion,
			AcademicYear:    row[7],
			Questionnaire:   questionnaire,
			Source:          domain.SourceKind(row[9]),
		},
		Year:         year,
		Month:        month,
		Hour:         hour,
		Weekday:      row[13],
		AmPm:         domain.Meridiem(row[14]),
		RepeatViewer: repeat,
		OwnerView:    ownerView,
		Category:     row[17],
	}
	return r, nil
}
