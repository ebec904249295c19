package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateVideoSummary(t *testing.T) {
	validSummary := &VideoSummary{
		VideoName:         "Intro to Cell Biology",
		Category:          "Biology",
		Views:             412,
		UniqueViewers:     287,
		FirstSeen:         "2023-01-05",
		LastSeen:          "2023-06-14",
		TotalMinutes:      618.0,
		AvgMinutes:        1.5,
		MedianMinutes:     1.2,
		CompletedViews:    300,
		NotCompletedViews: 100,
		UnknownViews:      12,
		CompletionRate:    0.75,
		RepeatShare:       0.30,
		EngagementScore:   64.2,
	}

	tests := []struct {
		name        string
		modify      func(*VideoSummary)
		wantErr     bool
		errContains string
	}{
		{
			name:    "valid summary",
			modify:  func(s *VideoSummary) {},
			wantErr: false,
		},
		{
			name: "empty video name",
			modify: func(s *VideoSummary) {
				s.VideoName = "   "
			},
			wantErr:     true,
			errContains: "video name is required",
		},
		{
			name: "video name too long",
			modify: func(s *VideoSummary) {
				s.VideoName = strings.Repeat("A", 256)
			},
			wantErr:     true,
			errContains: "must not exceed 255 characters",
		},
		{
			name: "negative views",
			modify: func(s *VideoSummary) {
				s.Views = -1
				s.CompletedViews = -1
				s.NotCompletedViews = 0
				s.UnknownViews = 0
			},
			wantErr:     true,
			errContains: "views cannot be negative",
		},
		{
			name: "unique viewers exceed views",
			modify: func(s *VideoSummary) {
				s.UniqueViewers = s.Views + 1
			},
			wantErr:     true,
			errContains: "cannot exceed views",
		},
		{
			name: "completion breakdown does not sum to views",
			modify: func(s *VideoSummary) {
				s.UnknownViews++
			},
			wantErr:     true,
			errContains: "completion breakdown sums to",
		},
		{
			name: "completion rate above one",
			modify: func(s *VideoSummary) {
				s.CompletionRate = 1.2
			},
			wantErr:     true,
			errContains: "completion rate",
		},
		{
			name: "repeat share below zero",
			modify: func(s *VideoSummary) {
				s.RepeatShare = -0.1
			},
			wantErr:     true,
			errContains: "repeat share",
		},
		{
			name: "engagement score above cap",
			modify: func(s *VideoSummary) {
				s.EngagementScore = 101
			},
			wantErr:     true,
			errContains: "engagement score",
		},
		{
			name: "bad first seen date",
			modify: func(s *VideoSummary) {
				s.FirstSeen = "05/01/2023"
			},
			wantErr:     true,
			errContains: "must be in format '2006-01-02'",
		},
		{
			name: "empty dates are allowed",
			modify: func(s *VideoSummary) {
				s.FirstSeen = ""
				s.LastSeen = ""
			},
			wantErr: false,
		},
		{
			name: "negative total minutes",
			modify: func(s *VideoSummary) {
				s.TotalMinutes = -5
			},
			wantErr:     true,
			errContains: "total minutes cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary := *validSummary
			tt.modify(&summary)

			err := ValidateVideoSummary(&summary)

			if tt.wantErr {
				require.Error(t, err)
				if tt.errContains != "" {
					assert.Contains(t, err.Error(), tt.errContains)
				}
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestValidateVideoSummaryNil(t *testing.T) {
	err := ValidateVideoSummary(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be nil")
}

func TestBuildReportAddSource(t *testing.T) {
	report := &BuildReport{}

	report.AddSource(SourceReport{
		File:     "watch_history_2023.xlsx",
		Kind:     SourceWatchHistory,
		RowsRead: 100,
		RowsKept: 95,
		Excluded: map[ExclusionReason]int{
			ExcludeBadTimestamp:    3,
			ExcludeInvalidDuration: 2,
		},
	})
	report.AddSource(SourceReport{
		File:     "questionnaire.xlsx",
		Kind:     SourceQuestionnaire,
		RowsRead: 40,
		RowsKept: 38,
		Excluded: map[ExclusionReason]int{
			ExcludeBadTimestamp: 2,
		},
	})
	report.AddSource(SourceReport{
		File:       "broken.xlsx",
		Kind:       SourceWatchHistory,
		Skipped:    true,
		SkipReason: "missing required columns",
	})

	assert.Equal(t, 140, report.RowsRead)
	assert.Equal(t, 133, report.RowsKept)
	assert.Equal(t, 5, report.ExcludedByReason[ExcludeBadTimestamp])
	assert.Equal(t, 2, report.ExcludedByReason[ExcludeInvalidDuration])
	assert.Equal(t, 7, report.ExcludedTotal())
	assert.Len(t, report.Sources, 3)

	// Excluded rows plus kept rows account for every data row read.
	assert.Equal(t, report.RowsRead, report.RowsKept+report.ExcludedTotal())
}

func TestSourceReportExcludedTotal(t *testing.T) {
	src := SourceReport{
		Excluded: map[ExclusionReason]int{
			ExcludeDuplicate:    4,
			ExcludeMissingUser:  1,
			ExcludeMissingVideo: 2,
		},
	}
	assert.Equal(t, 7, src.ExcludedTotal())
	assert.Equal(t, 0, SourceReport{}.ExcludedTotal())
}
