package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"watchlens/pkg/contracts/domain"
)

func TestDescribeReport(t *testing.T) {
	tests := []struct {
		name     string
		report   domain.SourceReport
		contains []string
		excludes []string
	}{
		{
			name: "parsed watch history",
			report: domain.SourceReport{
				File:     "watch_history_2023.xlsx",
				Kind:     domain.SourceWatchHistory,
				Sheet:    "Sheet1",
				RowsRead: 120,
				RowsKept: 118,
				Excluded: map[domain.ExclusionReason]int{
					domain.ExcludeBadTimestamp: 2,
				},
				MatchedColumns: map[string]string{
					"video_name": "Video Title",
				},
			},
			contains: []string{
				"watch_history_2023.xlsx",
				"kind:      watch_history",
				"sheet:     Sheet1",
				"rows read: 120",
				"rows kept: 118",
				`column:    video_name <- "Video Title"`,
				"excluded:  unparseable_timestamp (2)",
			},
		},
		{
			name: "skipped file",
			report: domain.SourceReport{
				File:           "broken.xlsx",
				Kind:           domain.SourceWatchHistory,
				Skipped:        true,
				SkipReason:     "missing required columns",
				MissingColumns: []string{"video_name", "watch_date"},
			},
			contains: []string{
				"skipped:   missing required columns",
				"missing:   video_name, watch_date",
			},
			excludes: []string{"rows read"},
		},
		{
			name: "unclassified file",
			report: domain.SourceReport{
				File:       "mystery.csv",
				Skipped:    true,
				SkipReason: "unrecognized file name",
			},
			contains: []string{"kind:      unclassified"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := describeReport(tt.report)
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
			for _, unwanted := range tt.excludes {
				assert.NotContains(t, out, unwanted)
			}
		})
	}
}
