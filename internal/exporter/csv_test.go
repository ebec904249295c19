package exporter

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watchlens/internal/dataprocessing"
	"watchlens/pkg/contracts/domain"
)

func exportRecord(video, user string, ts time.Time, minutes float64) domain.DerivedRecord {
	return domain.DerivedRecord{
		WatchRecord: domain.WatchRecord{
			VideoID:         video,
			VideoName:       video,
			UserID:          user,
			Timestamp:       ts,
			DurationMinutes: minutes,
			Completion:      domain.CompletionCompleted,
			AcademicYear:    domain.AcademicYearFor(ts),
			Source:          domain.SourceWatchHistory,
		},
		Year:    ts.Year(),
		Month:   int(ts.Month()),
		Hour:    ts.Hour(),
		Weekday: domain.WeekdayName(ts.Weekday()),
		AmPm:    domain.MeridiemForHour(ts.Hour()),
	}
}

func exportFixture() []domain.DerivedRecord {
	return []domain.DerivedRecord{
		exportRecord("vid-001", "user-1", time.Date(2023, 1, 5, 13, 30, 0, 0, time.UTC), 1.5),
		exportRecord("vid-002", "user-2", time.Date(2023, 1, 6, 9, 5, 0, 0, time.UTC), 30),
	}
}

func TestRecordsMatchesCanonicalRendering(t *testing.T) {
	records := exportFixture()

	var buf bytes.Buffer
	count, err := Records(&buf, records, Options{})
	require.NoError(t, err)
	assert.Equal(t, len(records), count)

	canonical, err := dataprocessing.RenderRecordsCSV(records)
	require.NoError(t, err)
	assert.Equal(t, canonical, buf.Bytes())
}

func TestRecordsBOM(t *testing.T) {
	records := exportFixture()

	var plain, prefixed bytes.Buffer
	_, err := Records(&plain, records, Options{})
	require.NoError(t, err)
	_, err = Records(&prefixed, records, Options{BOM: true})
	require.NoError(t, err)

	got := prefixed.Bytes()
	require.Greater(t, len(got), 3)
	assert.Equal(t, []byte{0xEF, 0xBB, 0xBF}, got[:3])
	assert.Equal(t, plain.Bytes(), got[3:], "BOM is the only difference")
}

func TestRecordsEmpty(t *testing.T) {
	var buf bytes.Buffer
	count, err := Records(&buf, nil, Options{})
	require.NoError(t, err)
	assert.Zero(t, count)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1, "header only")
	assert.Equal(t, dataprocessing.RecordsCSVHeader, rows[0])
}

func TestRecordsCountMatchesDataRows(t *testing.T) {
	records := exportFixture()

	var buf bytes.Buffer
	count, err := Records(&buf, records, Options{})
	require.NoError(t, err)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, count, len(rows)-1)
}

func TestSummaries(t *testing.T) {
	summaries := []domain.VideoSummary{
		{VideoName: "Algebra Basics", Views: 4, UniqueViewers: 3, TotalMinutes: 100, AvgMinutes: 25, MedianMinutes: 25, CompletedViews: 4, FirstSeen: "2023-01-05", LastSeen: "2023-01-08", CompletionRate: 1},
		{VideoName: "Biology Lab", Views: 1, UniqueViewers: 1, TotalMinutes: 5, AvgMinutes: 5, MedianMinutes: 5, CompletedViews: 1, FirstSeen: "2023-01-06", LastSeen: "2023-01-06", CompletionRate: 1},
	}

	var buf bytes.Buffer
	count, err := Summaries(&buf, summaries, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	canonical, err := dataprocessing.NewSummarizer(dataprocessing.DefaultSummarizerConfig()).RenderCSV(summaries)
	require.NoError(t, err)
	assert.Equal(t, canonical, buf.Bytes())

	var prefixed bytes.Buffer
	_, err = Summaries(&prefixed, summaries, Options{BOM: true})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xEF, 0xBB, 0xBF}, prefixed.Bytes()[:3])
	assert.Equal(t, buf.Bytes(), prefixed.Bytes()[3:])
}

func TestFilename(t *testing.T) {
	now := time.Date(2023, 1, 5, 13, 30, 0, 0, time.UTC)
	assert.Equal(t, "records_20230105_133000.csv", Filename("records", now))

	shifted := time.Date(2023, 1, 5, 15, 30, 0, 0, time.FixedZone("plus2", 2*60*60))
	assert.Equal(t, "records_20230105_133000.csv", Filename("records", shifted), "names use UTC")
}
