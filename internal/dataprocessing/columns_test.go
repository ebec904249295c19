package dataprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watchlens/pkg/contracts/domain"
)

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"View_Date", "viewdate"},
		{"  view date ", "viewdate"},
		{"ViewDate", "viewdate"},
		{"viewerChoices_VideoName", "viewerchoicesvideoname"},
		{"Parent/Child", "parentchild"},
		{"", ""},
		{"___", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, normalizeHeader(tt.input))
		})
	}
}

func TestMatchColumnsWatchHistory(t *testing.T) {
	t.Run("platform export headers", func(t *testing.T) {
		header := []string{
			"viewerChoices_VideoName", "videoViewer", "videoOwner",
			"viewerChoices_ViewDate", "viewerChoices_ViewTime",
			"viewerChoices_ViewingDuration", "viewerChoices_DoneViewing",
			"viewerChoices_VideoId",
		}

		match := MatchColumns(header, domain.SourceWatchHistory)

		require.Empty(t, match.Missing)
		assert.Equal(t, 0, match.Indexes[ColVideoName])
		assert.Equal(t, 1, match.Indexes[ColUserID])
		assert.Equal(t, 2, match.Indexes[ColOwnerID])
		assert.Equal(t, 3, match.Indexes[ColDate])
		assert.Equal(t, 4, match.Indexes[ColTime])
		assert.Equal(t, 5, match.Indexes[ColDuration])
		assert.Equal(t, 6, match.Indexes[ColCompletion])
		assert.Equal(t, 7, match.Indexes[ColVideoID])
		assert.Equal(t, UnitSeconds, match.DurationUnit)
	})

	t.Run("renamed export headers", func(t *testing.T) {
		header := []string{
			"Video_Name", "Viewer", "View_Date", "View_Time",
			"Viewing_Duration_Sec", "Done_Viewing",
		}

		match := MatchColumns(header, domain.SourceWatchHistory)

		require.Empty(t, match.Missing)
		assert.Equal(t, "Video_Name", match.Matched[ColVideoName])
		assert.Equal(t, "Viewing_Duration_Sec", match.Matched[ColDuration])
		assert.Equal(t, UnitSeconds, match.DurationUnit)
	})

	t.Run("spaced lowercase headers", func(t *testing.T) {
		header := []string{"video name", "student", "date", "time", "duration"}

		match := MatchColumns(header, domain.SourceWatchHistory)

		require.Empty(t, match.Missing)
		assert.Equal(t, 0, match.Indexes[ColVideoName])
		assert.Equal(t, 1, match.Indexes[ColUserID])
	})

	t.Run("minutes unit hint from header", func(t *testing.T) {
		header := []string{"Video Name", "User", "Date", "Duration_Min"}

		match := MatchColumns(header, domain.SourceWatchHistory)

		require.Empty(t, match.Missing)
		assert.Equal(t, UnitMinutes, match.DurationUnit)
	})

	t.Run("video name is not claimed by the id key", func(t *testing.T) {
		header := []string{"Video Name", "VideoID", "User", "Date", "Duration"}

		match := MatchColumns(header, domain.SourceWatchHistory)

		assert.Equal(t, 0, match.Indexes[ColVideoName])
		assert.Equal(t, 1, match.Indexes[ColVideoID])
	})

	t.Run("timestamp column satisfies the date requirement", func(t *testing.T) {
		header := []string{"Video Name", "User", "Timestamp", "Duration"}

		match := MatchColumns(header, domain.SourceWatchHistory)

		require.Empty(t, match.Missing)
		assert.Equal(t, 2, match.Indexes[ColDate])
		assert.False(t, match.HasColumn(ColTime))
	})

	t.Run("missing required columns are reported", func(t *testing.T) {
		header := []string{"Video Name", "User"}

		match := MatchColumns(header, domain.SourceWatchHistory)

		assert.ElementsMatch(t, []string{ColDate, ColDuration}, match.Missing)
	})

	t.Run("missing video identity is reported as one miss", func(t *testing.T) {
		header := []string{"User", "Date", "Duration"}

		match := MatchColumns(header, domain.SourceWatchHistory)

		assert.Contains(t, match.Missing, "video_name|video_id")
	})
}

func TestMatchColumnsQuestionnaire(t *testing.T) {
	t.Run("respondent column", func(t *testing.T) {
		header := []string{"Respondent", "Submitted", "Date"}

		match := MatchColumns(header, domain.SourceQuestionnaire)

		require.Empty(t, match.Missing)
		assert.Equal(t, 0, match.Indexes[ColUserID])
		assert.Equal(t, 1, match.Indexes[ColCompletion])
	})

	t.Run("no user column", func(t *testing.T) {
		header := []string{"Question", "Answer"}

		match := MatchColumns(header, domain.SourceQuestionnaire)

		assert.Equal(t, []string{ColUserID}, match.Missing)
	})
}

func TestMatchColumnsVideoMeta(t *testing.T) {
	header := []string{"VideoID", "Video_Name", "Category", "Parent/Child", "Owner", "Total_Views"}

	match := MatchColumns(header, domain.SourceVideoMeta)

	require.Empty(t, match.Missing)
	assert.Equal(t, 0, match.Indexes[ColVideoID])
	assert.Equal(t, 1, match.Indexes[ColVideoName])
	assert.Equal(t, 2, match.Indexes[ColCategory])
	assert.Equal(t, 3, match.Indexes[ColKind])
	assert.Equal(t, 4, match.Indexes[ColOwnerID])
	assert.Equal(t, 5, match.Indexes[ColViewCount])
}

func TestColumnMatchCell(t *testing.T) {
	header := []string{"Video_Name", "Viewer", "Date", "Duration"}
	match := MatchColumns(header, domain.SourceWatchHistory)

	row := []string{"  Intro to Cells  ", "u-1", "2023-01-05"}

	assert.Equal(t, "Intro to Cells", match.Cell(row, ColVideoName))
	assert.Equal(t, "u-1", match.Cell(row, ColUserID))
	// row shorter than the matched duration column
	assert.Equal(t, "", match.Cell(row, ColDuration))
	// unmatched key
	assert.Equal(t, "", match.Cell(row, ColCategory))
}
