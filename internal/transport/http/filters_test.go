package http

import (
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "watchlens/internal/errors"
	"watchlens/pkg/contracts/domain"
)

func TestParseWatchFilterEmptyQuery(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/data/metrics", nil)

	filter, err := ParseWatchFilter(r)
	require.NoError(t, err)
	assert.True(t, filter.IsZero())
}

func TestParseWatchFilterAllDimensions(t *testing.T) {
	q := url.Values{}
	q.Set("from", "2023-01-05")
	q.Set("to", "2023-01-31")
	q.Set("hours", "9,13,20")
	q.Set("am_pm", "pm")
	q.Set("weekdays", "Monday,Tuesday")
	q.Set("academic_years", "2022-2023")
	q.Set("videos", "Algebra Basics, Biology Lab")
	q.Set("video_query", " algebra ")
	q.Set("categories", "Math")
	q.Set("completion", "completed,UNKNOWN")
	q.Set("questionnaire", "true")
	q.Set("repeat_only", "false")
	q.Set("owner_view", "true")
	q.Set("users", "user-1,user-2")
	q.Set("min_duration", "0.5")
	q.Set("max_duration", "90")
	r := httptest.NewRequest("GET", "/api/data/metrics?"+q.Encode(), nil)

	filter, err := ParseWatchFilter(r)
	require.NoError(t, err)

	require.NotNil(t, filter.DateFrom)
	assert.Equal(t, time.Date(2023, 1, 5, 0, 0, 0, 0, time.UTC), *filter.DateFrom)

	// to widens to the end of the named day.
	require.NotNil(t, filter.DateTo)
	assert.Equal(t, time.Date(2023, 1, 31, 23, 59, 59, 0, time.UTC), *filter.DateTo)

	assert.Equal(t, []int{9, 13, 20}, filter.Hours)
	require.NotNil(t, filter.Meridiem)
	assert.Equal(t, domain.MeridiemPM, *filter.Meridiem)
	assert.Equal(t, []string{"Monday", "Tuesday"}, filter.Weekdays)
	assert.Equal(t, []string{"2022-2023"}, filter.AcademicYears)
	assert.Equal(t, []string{"Algebra Basics", "Biology Lab"}, filter.VideoNames)
	assert.Equal(t, "algebra", filter.VideoQuery)
	assert.Equal(t, []string{"Math"}, filter.Categories)
	assert.Equal(t, []domain.CompletionStatus{domain.CompletionCompleted, domain.CompletionUnknown}, filter.Completion)

	require.NotNil(t, filter.Questionnaire)
	assert.True(t, *filter.Questionnaire)
	require.NotNil(t, filter.RepeatOnly)
	assert.False(t, *filter.RepeatOnly)
	require.NotNil(t, filter.OwnerView)
	assert.True(t, *filter.OwnerView)

	assert.Equal(t, []string{"user-1", "user-2"}, filter.Users)
	require.NotNil(t, filter.MinDurationMinutes)
	assert.Equal(t, 0.5, *filter.MinDurationMinutes)
	require.NotNil(t, filter.MaxDurationMinutes)
	assert.Equal(t, 90.0, *filter.MaxDurationMinutes)
}

func TestParseWatchFilterRejectsBadParams(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"from not a date", "from=05-01-2023"},
		{"to not a date", "to=yesterday"},
		{"to before from", "from=2023-02-01&to=2023-01-01"},
		{"hour out of range", "hours=9,24"},
		{"hour not numeric", "hours=noon"},
		{"meridiem", "am_pm=noon"},
		{"completion", "completion=done"},
		{"questionnaire", "questionnaire=yes"},
		{"repeat flag", "repeat_only=1maybe"},
		{"min duration negative", "min_duration=-1"},
		{"min duration not numeric", "min_duration=short"},
		{"max below min", "min_duration=10&max_duration=5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/data/metrics?"+tt.query, nil)
			_, err := ParseWatchFilter(r)
			assert.ErrorIs(t, err, apperrors.ErrInvalidFilterParam)
		})
	}
}

func TestParsePagination(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/data/records", nil)
	page, size, err := parsePagination(r)
	require.NoError(t, err)
	assert.Equal(t, 1, page)
	assert.Equal(t, defaultPageSize, size)

	r = httptest.NewRequest("GET", "/api/data/records?page=3&page_size=25", nil)
	page, size, err = parsePagination(r)
	require.NoError(t, err)
	assert.Equal(t, 3, page)
	assert.Equal(t, 25, size)

	for _, query := range []string{"page=0", "page=x", "page_size=0", "page_size=501"} {
		r = httptest.NewRequest("GET", "/api/data/records?"+query, nil)
		_, _, err = parsePagination(r)
		assert.ErrorIs(t, err, apperrors.ErrInvalidFilterParam, query)
	}
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Nil(t, splitList("  ,  ,"))
	assert.Equal(t, []string{"a", "b"}, splitList(" a , b "))
	assert.Equal(t, []string{"solo"}, splitList("solo"))
}
