package insights

import (
	"sort"

	"watchlens/internal/analytics"
)

// Peak detection parameters: a day is a peak when its views reach
// peakThreshold times the mean of the trailing peakWindow active days,
// the day itself included. Detection needs at least minActiveDays days
// with views before it runs at all.
const (
	peakWindow    = 7
	peakThreshold = 1.25
	minActiveDays = 7
)

// Peak is one detected high-engagement day.
type Peak struct {
	// Date is the calendar day ("2006-01-02").
	Date string `json:"date"`

	// Views is the day's view count.
	Views int `json:"views"`

	// Baseline is the trailing mean the day was measured against.
	Baseline float64 `json:"baseline"`

	// Ratio is Views divided by Baseline.
	Ratio float64 `json:"ratio"`
}

// DetectPeaks scans a daily series for days whose views stand well
// above the recent trend. Zero-view days are skipped so the baseline
// tracks days that actually had activity. Results are ordered highest
// views first, earlier dates first within ties.
func DetectPeaks(series []analytics.DailyPoint) []Peak {
	active := make([]analytics.DailyPoint, 0, len(series))
	for _, point := range series {
		if point.Views > 0 {
			active = append(active, point)
		}
	}
	if len(active) < minActiveDays {
		return nil
	}

	var peaks []Peak
	sum := 0.0
	for i, point := range active {
		sum += float64(point.Views)
		if i >= peakWindow {
			sum -= float64(active[i-peakWindow].Views)
		}
		span := i + 1
		if span > peakWindow {
			span = peakWindow
		}

		baseline := sum / float64(span)
		if float64(point.Views) >= baseline*peakThreshold {
			peaks = append(peaks, Peak{
				Date:     point.Date,
				Views:    point.Views,
				Baseline: baseline,
				Ratio:    float64(point.Views) / baseline,
			})
		}
	}

	sort.SliceStable(peaks, func(i, j int) bool {
		if peaks[i].Views != peaks[j].Views {
			return peaks[i].Views > peaks[j].Views
		}
		return peaks[i].Date < peaks[j].Date
	})
	return peaks
}
