package dataprocessing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name     string
		dateCell string
		timeCell string
		expected time.Time
	}{
		{
			name:     "iso date with twelve hour clock",
			dateCell: "2023-01-05",
			timeCell: "1:30 PM",
			expected: time.Date(2023, 1, 5, 13, 30, 0, 0, time.UTC),
		},
		{
			name:     "iso date with twenty four hour clock",
			dateCell: "2023-01-05",
			timeCell: "13:30",
			expected: time.Date(2023, 1, 5, 13, 30, 0, 0, time.UTC),
		},
		{
			name:     "date only defaults to midnight",
			dateCell: "2023-01-05",
			expected: time.Date(2023, 1, 5, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "datetime in a single cell",
			dateCell: "2023-01-05 13:30:00",
			expected: time.Date(2023, 1, 5, 13, 30, 0, 0, time.UTC),
		},
		{
			name:     "iso datetime with T separator",
			dateCell: "2023-01-05T13:30:45",
			expected: time.Date(2023, 1, 5, 13, 30, 45, 0, time.UTC),
		},
		{
			name:     "month first date",
			dateCell: "1/5/2023",
			timeCell: "9:05 AM",
			expected: time.Date(2023, 1, 5, 9, 5, 0, 0, time.UTC),
		},
		{
			name:     "padded month first date",
			dateCell: "01/05/2023",
			expected: time.Date(2023, 1, 5, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "written month date",
			dateCell: "Jan 5, 2023",
			expected: time.Date(2023, 1, 5, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "meridiem with dots",
			dateCell: "2023-01-05",
			timeCell: "1:30 p.m.",
			expected: time.Date(2023, 1, 5, 13, 30, 0, 0, time.UTC),
		},
		{
			name:     "meridiem without space",
			dateCell: "2023-01-05",
			timeCell: "1:30PM",
			expected: time.Date(2023, 1, 5, 13, 30, 0, 0, time.UTC),
		},
		{
			name:     "midnight twelve hour",
			dateCell: "2023-01-05",
			timeCell: "12:00 AM",
			expected: time.Date(2023, 1, 5, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "noon twelve hour",
			dateCell: "2023-01-05",
			timeCell: "12:00 PM",
			expected: time.Date(2023, 1, 5, 12, 0, 0, 0, time.UTC),
		},
		{
			name:     "excel serial date",
			dateCell: "44931", // 2023-01-05
			expected: time.Date(2023, 1, 5, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "excel serial date with day fraction time",
			dateCell: "44931",
			timeCell: "0.5625", // 13:30
			expected: time.Date(2023, 1, 5, 13, 30, 0, 0, time.UTC),
		},
		{
			name:     "explicit time overrides datetime cell clock",
			dateCell: "2023-01-05 08:00:00",
			timeCell: "1:30 PM",
			expected: time.Date(2023, 1, 5, 13, 30, 0, 0, time.UTC),
		},
		{
			name:     "whitespace is tolerated",
			dateCell: "  2023-01-05 ",
			timeCell: " 1:30 PM ",
			expected: time.Date(2023, 1, 5, 13, 30, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimestamp(tt.dateCell, tt.timeCell)
			require.NoError(t, err)
			assert.True(t, tt.expected.Equal(got), "want %v, got %v", tt.expected, got)
		})
	}
}

func TestParseTimestampErrors(t *testing.T) {
	tests := []struct {
		name     string
		dateCell string
		timeCell string
	}{
		{name: "empty date", dateCell: "", timeCell: "1:30 PM"},
		{name: "date words", dateCell: "sometime last week"},
		{name: "unparseable time", dateCell: "2023-01-05", timeCell: "half past one"},
		{name: "number too small for a serial", dateCell: "42"},
		{name: "number too large for a serial", dateCell: "999999999"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTimestamp(tt.dateCell, tt.timeCell)
			assert.Error(t, err)
		})
	}
}

func TestFromExcelSerial(t *testing.T) {
	t.Run("known day", func(t *testing.T) {
		got, ok := fromExcelSerial(44931)
		require.True(t, ok)
		assert.Equal(t, time.Date(2023, 1, 5, 0, 0, 0, 0, time.UTC), got)
	})

	t.Run("fraction carries the clock", func(t *testing.T) {
		got, ok := fromExcelSerial(44931.5625)
		require.True(t, ok)
		assert.Equal(t, time.Date(2023, 1, 5, 13, 30, 0, 0, time.UTC), got)
	})

	t.Run("out of range values are not dates", func(t *testing.T) {
		_, ok := fromExcelSerial(90)
		assert.False(t, ok)
		_, ok = fromExcelSerial(2_000_000)
		assert.False(t, ok)
	})
}
