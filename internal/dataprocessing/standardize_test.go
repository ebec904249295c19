package dataprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watchlens/pkg/contracts/domain"
)

func TestParseDurationMinutes(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		fallback DurationUnit
		expected float64
	}{
		{name: "seconds with unit", raw: "90 sec", expected: 1.5},
		{name: "seconds spelled out", raw: "90 seconds", expected: 1.5},
		{name: "seconds abbreviated tight", raw: "90s", expected: 1.5},
		{name: "bare number defaults to seconds", raw: "90", expected: 1.5},
		{name: "bare number with seconds fallback", raw: "90", fallback: UnitSeconds, expected: 1.5},
		{name: "bare number with minutes fallback", raw: "90", fallback: UnitMinutes, expected: 90},
		{name: "bare number with hours fallback", raw: "2", fallback: UnitHours, expected: 120},
		{name: "explicit unit beats fallback", raw: "90 sec", fallback: UnitMinutes, expected: 1.5},
		{name: "minutes with unit", raw: "2 min", expected: 2},
		{name: "minutes abbreviated", raw: "1.5m", expected: 1.5},
		{name: "hours with unit", raw: "1.5 hr", expected: 90},
		{name: "hours spelled out", raw: "2 hours", expected: 120},
		{name: "thousands separator", raw: "1,200", fallback: UnitSeconds, expected: 20},
		{name: "minute second clock", raw: "1:30", expected: 1.5},
		{name: "hour minute second clock", raw: "1:30:00", expected: 90},
		{name: "zero is returned for the caller to exclude", raw: "0", expected: 0},
		{name: "negative is returned for the caller to exclude", raw: "-90 sec", expected: -1.5},
		{name: "fractional seconds", raw: "45.5 sec", fallback: UnitSeconds, expected: 45.5 / 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDurationMinutes(tt.raw, tt.fallback)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, got, 1e-9)
		})
	}
}

func TestParseDurationMinutesErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty", raw: ""},
		{name: "whitespace only", raw: "   "},
		{name: "words", raw: "about a minute"},
		{name: "unknown unit", raw: "90 parsecs"},
		{name: "too many clock parts", raw: "1:2:3:4"},
		{name: "clock with words", raw: "1:ab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDurationMinutes(tt.raw, UnitSeconds)
			assert.Error(t, err)
		})
	}
}

func TestParseCompletion(t *testing.T) {
	tests := []struct {
		raw      string
		expected domain.CompletionStatus
	}{
		{"yes", domain.CompletionCompleted},
		{"Yes", domain.CompletionCompleted},
		{"YES", domain.CompletionCompleted},
		{"y", domain.CompletionCompleted},
		{"true", domain.CompletionCompleted},
		{"1", domain.CompletionCompleted},
		{"completed", domain.CompletionCompleted},
		{"Done", domain.CompletionCompleted},
		{"finished", domain.CompletionCompleted},
		{"no", domain.CompletionNotCompleted},
		{"No", domain.CompletionNotCompleted},
		{"n", domain.CompletionNotCompleted},
		{"false", domain.CompletionNotCompleted},
		{"0", domain.CompletionNotCompleted},
		{"Not Completed", domain.CompletionNotCompleted},
		{"incomplete", domain.CompletionNotCompleted},
		{"In Progress", domain.CompletionNotCompleted},
		{"100%", domain.CompletionCompleted},
		{"100.0%", domain.CompletionCompleted},
		{"85%", domain.CompletionNotCompleted},
		{"0%", domain.CompletionNotCompleted},
		{"0.85", domain.CompletionNotCompleted},
		{"", domain.CompletionUnknown},
		{"   ", domain.CompletionUnknown},
		{"maybe", domain.CompletionUnknown},
		{"n/a", domain.CompletionUnknown},
	}

	for _, tt := range tests {
		name := tt.raw
		if name == "" {
			name = "empty"
		}
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseCompletion(tt.raw))
		})
	}
}

func TestCleanTitle(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{name: "plain title", raw: "Intro to Cell Biology", expected: "Intro to Cell Biology"},
		{name: "surrounding whitespace", raw: "  Intro  ", expected: "Intro"},
		{name: "numeric title", raw: "101", expected: "101"},
		{name: "empty", raw: "", expected: ""},
		{name: "punctuation only", raw: "----", expected: ""},
		{name: "whitespace only", raw: "   ", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanTitle(tt.raw))
		})
	}
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		raw      string
		expected int
		ok       bool
	}{
		{"412", 412, true},
		{"1,204", 1204, true},
		{"0", 0, true},
		{"", 0, false},
		{"-3", 0, false},
		{"many", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := parseCount(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}
