package dataprocessing

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"watchlens/pkg/contracts/domain"
)

// DurationUnit is the unit a bare numeric duration cell is read in. Cells
// that spell a unit out ("90 sec", "1.5 hr") override it.
type DurationUnit string

const (
	UnitSeconds DurationUnit = "seconds"
	UnitMinutes DurationUnit = "minutes"
	UnitHours   DurationUnit = "hours"
)

var durationRe = regexp.MustCompile(`^([0-9][0-9,]*\.?[0-9]*)\s*([a-zA-Z]*)$`)

// unitMinutes converts one unit's worth of duration into minutes.
var unitMinutes = map[DurationUnit]float64{
	UnitSeconds: 1.0 / 60.0,
	UnitMinutes: 1,
	UnitHours:   60,
}

// ParseDurationMinutes converts a raw duration cell to canonical minutes.
// Accepted forms: a bare number (read in the fallback unit), a number with
// a spelled unit, or a colon clock ("1:30" is m:ss, "1:30:00" is h:mm:ss).
// Zero and negative results are returned as-is; rows are excluded on the
// caller's non-positive check so the count lands under one reason.
func ParseDurationMinutes(raw string, fallback DurationUnit) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("empty duration cell")
	}
	if fallback == "" {
		fallback = UnitSeconds
	}

	negative := false
	if strings.HasPrefix(s, "-") {
		negative = true
		s = strings.TrimSpace(s[1:])
	}

	if strings.Contains(s, ":") {
		minutes, err := parseClockDuration(s)
		if err != nil {
			return 0, err
		}
		if negative {
			minutes = -minutes
		}
		return minutes, nil
	}

	m := durationRe.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("unrecognized duration %q", raw)
	}

	value, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, fmt.Errorf("unrecognized duration %q", raw)
	}

	unit := fallback
	if m[2] != "" {
		unit, err = parseUnit(m[2])
		if err != nil {
			return 0, err
		}
	}

	minutes := value * unitMinutes[unit]
	if negative {
		minutes = -minutes
	}
	return minutes, nil
}

// parseClockDuration reads "m:ss" and "h:mm:ss" duration cells.
func parseClockDuration(s string) (float64, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("unrecognized duration %q", s)
	}
	values := make([]float64, len(parts))
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("unrecognized duration %q", s)
		}
		values[i] = v
	}
	if len(parts) == 2 {
		return values[0] + values[1]/60, nil
	}
	return values[0]*60 + values[1] + values[2]/60, nil
}

func parseUnit(s string) (DurationUnit, error) {
	switch strings.ToLower(s) {
	case "s", "sec", "secs", "second", "seconds":
		return UnitSeconds, nil
	case "m", "min", "mins", "minute", "minutes":
		return UnitMinutes, nil
	case "h", "hr", "hrs", "hour", "hours":
		return UnitHours, nil
	}
	return "", fmt.Errorf("unrecognized duration unit %q", s)
}

// completionWords maps the literal completion spellings seen in exports.
var completionWords = map[string]domain.CompletionStatus{
	"yes":           domain.CompletionCompleted,
	"true":          domain.CompletionCompleted,
	"y":             domain.CompletionCompleted,
	"1":             domain.CompletionCompleted,
	"completed":     domain.CompletionCompleted,
	"complete":      domain.CompletionCompleted,
	"done":          domain.CompletionCompleted,
	"finished":      domain.CompletionCompleted,
	"no":            domain.CompletionNotCompleted,
	"false":         domain.CompletionNotCompleted,
	"n":             domain.CompletionNotCompleted,
	"0":             domain.CompletionNotCompleted,
	"not completed": domain.CompletionNotCompleted,
	"incomplete":    domain.CompletionNotCompleted,
	"unfinished":    domain.CompletionNotCompleted,
	"in progress":   domain.CompletionNotCompleted,
}

// ParseCompletion standardizes a completion cell onto the three-value
// status. Yes/no words and 1/0 map directly; percentages complete at 100.
// Anything unrecognized, including an empty cell, is unknown rather than
// an exclusion: a row with a watchable duration still counts as a view.
func ParseCompletion(raw string) domain.CompletionStatus {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return domain.CompletionUnknown
	}

	if status, ok := completionWords[s]; ok {
		return status
	}

	isPercent := strings.HasSuffix(s, "%")
	numeric := strings.TrimSpace(strings.TrimSuffix(s, "%"))
	v, err := strconv.ParseFloat(numeric, 64)
	if err != nil {
		return domain.CompletionUnknown
	}
	if !isPercent && v > 0 && v <= 1 {
		v *= 100
	}
	if v >= 100 {
		return domain.CompletionCompleted
	}
	if v >= 0 {
		return domain.CompletionNotCompleted
	}
	return domain.CompletionUnknown
}

// CleanTitle trims a video name cell and rejects cells with no
// alphanumeric content at all (stray punctuation, box-drawing fills).
func CleanTitle(raw string) string {
	s := strings.TrimSpace(raw)
	for _, r := range s {
		if (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return s
		}
	}
	return ""
}

// parseCount reads a non-negative integer cell, tolerating thousands
// separators. Used for externally reported view counts.
func parseCount(raw string) (int, bool) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if s == "" {
		return 0, false
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
