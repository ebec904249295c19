package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcademicYearFor(t *testing.T) {
	tests := []struct {
		name string
		date string
		want string
	}{
		{"september first starts the year", "2023-09-01", "2023-2024"},
		{"late august belongs to prior year", "2023-08-31", "2022-2023"},
		{"january is the spring half", "2023-01-05", "2022-2023"},
		{"december is the fall half", "2023-12-20", "2023-2024"},
		{"june exams", "2024-06-10", "2023-2024"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, err := time.Parse("2006-01-02", tt.date)
			require.NoError(t, err)
			assert.Equal(t, tt.want, AcademicYearFor(ts))
		})
	}
}

func TestWeekdayName(t *testing.T) {
	tests := []struct {
		day  time.Weekday
		want string
	}{
		{time.Monday, "Monday"},
		{time.Tuesday, "Tuesday"},
		{time.Saturday, "Saturday"},
		{time.Sunday, "Sunday"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, WeekdayName(tt.day))
		})
	}
}

func TestWeekdayIndexOrdering(t *testing.T) {
	// Monday must come first and Sunday last wherever days are sorted.
	assert.Equal(t, 0, WeekdayIndex("Monday"))
	assert.Equal(t, 6, WeekdayIndex("Sunday"))
	assert.Equal(t, -1, WeekdayIndex("Funday"))

	for i := 0; i < len(WeekdayOrder)-1; i++ {
		assert.Less(t, WeekdayIndex(WeekdayOrder[i]), WeekdayIndex(WeekdayOrder[i+1]))
	}
}

func TestMeridiemForHour(t *testing.T) {
	tests := []struct {
		hour int
		want Meridiem
	}{
		{0, MeridiemAM},
		{11, MeridiemAM},
		{12, MeridiemPM},
		{13, MeridiemPM},
		{23, MeridiemPM},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, MeridiemForHour(tt.hour), "hour %d", tt.hour)
	}
}

func TestCompletionStatusValid(t *testing.T) {
	assert.True(t, CompletionCompleted.Valid())
	assert.True(t, CompletionNotCompleted.Valid())
	assert.True(t, CompletionUnknown.Valid())
	assert.False(t, CompletionStatus("finished").Valid())
	assert.False(t, CompletionStatus("").Valid())
}

func TestJoinKeyPrefersVideoID(t *testing.T) {
	withID := WatchRecord{VideoID: "v-17", VideoName: "Cell Biology"}
	assert.Equal(t, "v-17", withID.JoinKey())

	nameOnly := WatchRecord{VideoName: "Cell Biology"}
	assert.Equal(t, "Cell Biology", nameOnly.JoinKey())

	meta := VideoMeta{VideoID: "v-17", VideoName: "Cell Biology"}
	assert.Equal(t, meta.Key(), withID.JoinKey())
}

func TestDedupKeyMatchesExactTuplesOnly(t *testing.T) {
	ts := time.Date(2023, 1, 5, 13, 30, 0, 0, time.UTC)
	base := WatchRecord{
		VideoName:       "Cell Biology",
		UserID:          "u-1",
		Timestamp:       ts,
		DurationMinutes: 1.5,
		Completion:      CompletionCompleted,
	}

	same := base
	assert.Equal(t, base.Dedup(), same.Dedup())

	differentDuration := base
	differentDuration.DurationMinutes = 2.0
	assert.NotEqual(t, base.Dedup(), differentDuration.Dedup())

	differentUser := base
	differentUser.UserID = "u-2"
	assert.NotEqual(t, base.Dedup(), differentUser.Dedup())

	differentStatus := base
	differentStatus.Completion = CompletionNotCompleted
	assert.NotEqual(t, base.Dedup(), differentStatus.Dedup())
}

func TestDerivedRecordLess(t *testing.T) {
	early := time.Date(2023, 1, 5, 9, 0, 0, 0, time.UTC)
	late := time.Date(2023, 1, 5, 13, 30, 0, 0, time.UTC)

	rec := func(ts time.Time, user, video string) DerivedRecord {
		return DerivedRecord{WatchRecord: WatchRecord{
			Timestamp: ts,
			UserID:    user,
			VideoName: video,
		}}
	}

	tests := []struct {
		name string
		a, b DerivedRecord
		want bool
	}{
		{"earlier timestamp wins", rec(early, "u-2", "B"), rec(late, "u-1", "A"), true},
		{"same timestamp falls back to user", rec(early, "u-1", "B"), rec(early, "u-2", "A"), true},
		{"same user falls back to video", rec(early, "u-1", "A"), rec(early, "u-1", "B"), true},
		{"equal records are not less", rec(early, "u-1", "A"), rec(early, "u-1", "A"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Less(tt.b))
		})
	}
}

func TestWatchFilterIsZero(t *testing.T) {
	assert.True(t, WatchFilter{}.IsZero())

	from := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.False(t, WatchFilter{DateFrom: &from}.IsZero())
	assert.False(t, WatchFilter{Hours: []int{13}}.IsZero())
	assert.False(t, WatchFilter{VideoQuery: "biology"}.IsZero())

	repeat := true
	assert.False(t, WatchFilter{RepeatOnly: &repeat}.IsZero())
}
