package dataprocessing

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// dateLayouts is the fixed precedence order for date cells. The first
// layout that parses wins; nothing downstream ever guesses at formats.
// Layouts with a clock component let a single cell carry the full
// timestamp when the export has no separate time column.
var dateLayouts = []struct {
	layout string
	clock  bool
}{
	{"2006-01-02T15:04:05", true},
	{"2006-01-02 15:04:05", true},
	{"2006-01-02 15:04", true},
	{"2006-01-02", false},
	{"1/2/2006 15:04:05", true},
	{"1/2/2006 3:04 PM", true},
	{"1/2/2006", false},
	{"1-2-2006", false},
	{"2006/1/2", false},
	{"Jan 2, 2006", false},
	{"January 2, 2006", false},
	{"2 Jan 2006", false},
}

// clockLayouts is the fixed precedence order for time cells.
var clockLayouts = []string{
	"3:04:05 PM",
	"3:04 PM",
	"15:04:05",
	"15:04",
}

// excelEpoch is day zero of the 1900 date system used by xlsx serials.
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// ParseTimestamp repairs a record timestamp from its raw date and time
// cells. A datetime-valued date cell stands alone; otherwise the date
// cell supplies the day and the time cell the clock. All timestamps are
// UTC wall-clock values so repeated builds of the same sources agree.
func ParseTimestamp(dateCell, timeCell string) (time.Time, error) {
	dateCell = strings.TrimSpace(dateCell)
	timeCell = strings.TrimSpace(timeCell)

	if dateCell == "" {
		return time.Time{}, fmt.Errorf("empty date cell")
	}

	day, _, err := parseDateCell(dateCell)
	if err != nil {
		return time.Time{}, err
	}

	if timeCell == "" {
		return day, nil
	}

	hour, minute, second, err := parseClockCell(timeCell)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, second, 0, time.UTC), nil
}

// parseDateCell tries the fixed layout order, then Excel serial numbers.
// The bool reports whether the matched layout carried a clock component.
func parseDateCell(s string) (time.Time, bool, error) {
	cleaned := normalizeMeridiem(s)
	for _, candidate := range dateLayouts {
		if t, err := time.ParseInLocation(candidate.layout, cleaned, time.UTC); err == nil {
			return t, candidate.clock, nil
		}
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if t, ok := fromExcelSerial(serial); ok {
			return t, serial != math.Trunc(serial), nil
		}
	}

	return time.Time{}, false, fmt.Errorf("unrecognized date %q", s)
}

// parseClockCell reads a clock cell: 12-hour with meridiem, 24-hour, or
// an Excel day fraction (0.5625 is 13:30).
func parseClockCell(s string) (hour, minute, second int, err error) {
	cleaned := normalizeMeridiem(s)
	for _, layout := range clockLayouts {
		if t, perr := time.Parse(layout, cleaned); perr == nil {
			return t.Hour(), t.Minute(), t.Second(), nil
		}
	}

	if frac, perr := strconv.ParseFloat(s, 64); perr == nil && frac >= 0 && frac < 1 {
		seconds := int(math.Round(frac * 86400))
		return seconds / 3600, (seconds % 3600) / 60, seconds % 60, nil
	}

	return 0, 0, 0, fmt.Errorf("unrecognized time %q", s)
}

// normalizeMeridiem uppercases meridiem markers and strips their dots so
// "1:30 p.m." parses with the standard PM layouts.
func normalizeMeridiem(s string) string {
	trimmed := strings.TrimSpace(s)
	lower := strings.ToLower(trimmed)
	for _, marker := range []string{"a.m.", "p.m.", "am", "pm"} {
		if !strings.HasSuffix(lower, marker) {
			continue
		}
		head := strings.TrimSpace(trimmed[:len(trimmed)-len(marker)])
		tail := strings.ToUpper(strings.ReplaceAll(marker, ".", ""))
		return head + " " + tail
	}
	return trimmed
}

// fromExcelSerial converts an xlsx date serial (days since 1899-12-30,
// fraction = time of day) into a UTC timestamp. Serials outside the
// 1905-2173 range are rejected as ordinary numbers, not dates.
func fromExcelSerial(serial float64) (time.Time, bool) {
	if serial < 2000 || serial > 100000 {
		return time.Time{}, false
	}
	days := math.Trunc(serial)
	frac := serial - days
	t := excelEpoch.AddDate(0, 0, int(days))
	return t.Add(time.Duration(math.Round(frac*86400)) * time.Second), true
}
