package analytics

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"watchlens/pkg/contracts/domain"
)

// DailyPoint is one day of the daily time series.
type DailyPoint struct {
	// Date is the calendar day ("2006-01-02").
	Date string `json:"date"`

	Views         int     `json:"views"`
	UniqueViewers int     `json:"unique_viewers"`
	Minutes       float64 `json:"minutes"`
}

// DailySeries buckets records by calendar day. Days between the first
// and last record with no views appear as zero points, so the series is
// continuous and rolling-window math over it sees real gaps.
func DailySeries(records []domain.DerivedRecord) []DailyPoint {
	if len(records) == 0 {
		return nil
	}

	views := make(map[string]int)
	viewers := make(map[string]map[string]bool)
	minutes := make(map[string]float64)

	for _, r := range records {
		day := r.Timestamp.Format("2006-01-02")
		views[day]++
		minutes[day] += r.DurationMinutes
		set, ok := viewers[day]
		if !ok {
			set = make(map[string]bool)
			viewers[day] = set
		}
		set[r.UserID] = true
	}

	first := truncateDay(records[0].Timestamp)
	last := truncateDay(records[len(records)-1].Timestamp)

	var series []DailyPoint
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		key := day.Format("2006-01-02")
		series = append(series, DailyPoint{
			Date:          key,
			Views:         views[key],
			UniqueViewers: len(viewers[key]),
			Minutes:       minutes[key],
		})
	}
	return series
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// MonthlyPoint is one month of the monthly trend series.
type MonthlyPoint struct {
	// Month is the calendar month ("2006-01").
	Month string `json:"month"`

	Views         int     `json:"views"`
	UniqueViewers int     `json:"unique_viewers"`
	Minutes       float64 `json:"minutes"`
}

// MonthlySeries buckets records by calendar month, zero-filling months
// between the first and last record.
func MonthlySeries(records []domain.DerivedRecord) []MonthlyPoint {
	if len(records) == 0 {
		return nil
	}

	views := make(map[string]int)
	viewers := make(map[string]map[string]bool)
	minutes := make(map[string]float64)

	for _, r := range records {
		month := r.Timestamp.Format("2006-01")
		views[month]++
		minutes[month] += r.DurationMinutes
		set, ok := viewers[month]
		if !ok {
			set = make(map[string]bool)
			viewers[month] = set
		}
		set[r.UserID] = true
	}

	first := records[0].Timestamp
	last := records[len(records)-1].Timestamp
	cursor := time.Date(first.Year(), first.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(last.Year(), last.Month(), 1, 0, 0, 0, 0, time.UTC)

	var series []MonthlyPoint
	for ; !cursor.After(end); cursor = cursor.AddDate(0, 1, 0) {
		key := cursor.Format("2006-01")
		series = append(series, MonthlyPoint{
			Month:         key,
			Views:         views[key],
			UniqueViewers: len(viewers[key]),
			Minutes:       minutes[key],
		})
	}
	return series
}

// PeakMonth returns the month with the most views, for the trend chart's
// callout. Earlier months win ties. ok is false for an empty series.
func PeakMonth(series []MonthlyPoint) (MonthlyPoint, bool) {
	if len(series) == 0 {
		return MonthlyPoint{}, false
	}
	peak := series[0]
	for _, point := range series[1:] {
		if point.Views > peak.Views {
			peak = point
		}
	}
	return peak, true
}

// Heatmap is the day-of-week by hour-of-day view count grid. Rows follow
// the fixed Monday-first weekday order; columns are hours 0-23.
type Heatmap struct {
	Days   []string   `json:"days"`
	Counts [7][24]int `json:"counts"`
}

// DayHourHeatmap folds records into the weekday-by-hour grid.
func DayHourHeatmap(records []domain.DerivedRecord) Heatmap {
	heatmap := Heatmap{Days: domain.WeekdayOrder[:]}
	for _, r := range records {
		day := domain.WeekdayIndex(r.Weekday)
		if day < 0 || r.Hour < 0 || r.Hour > 23 {
			continue
		}
		heatmap.Counts[day][r.Hour]++
	}
	return heatmap
}

// CompletionBreakdown counts views per standardized completion status.
type CompletionBreakdown struct {
	Completed    int `json:"completed"`
	NotCompleted int `json:"not_completed"`
	Unknown      int `json:"unknown"`
}

// BreakdownCompletion tallies the three status buckets.
func BreakdownCompletion(records []domain.DerivedRecord) CompletionBreakdown {
	var b CompletionBreakdown
	for _, r := range records {
		switch r.Completion {
		case domain.CompletionCompleted:
			b.Completed++
		case domain.CompletionNotCompleted:
			b.NotCompleted++
		default:
			b.Unknown++
		}
	}
	return b
}

// HistogramBin is one bucket of the watch-duration histogram.
type HistogramBin struct {
	// Label names the bucket ("5-10", "120+").
	Label string `json:"label"`

	// From is the inclusive lower edge in minutes; To the exclusive
	// upper edge, 0 for the open-ended last bucket.
	From  float64 `json:"from"`
	To    float64 `json:"to,omitempty"`
	Count int     `json:"count"`
}

// durationBinEdges are the fixed upper edges (minutes) of the duration
// histogram. Fixed edges keep the chart comparable across filters and
// rebuilds.
var durationBinEdges = []float64{1, 2, 5, 10, 15, 30, 60, 120}

// DurationHistogram buckets records by watch duration.
func DurationHistogram(records []domain.DerivedRecord) []HistogramBin {
	bins := make([]HistogramBin, 0, len(durationBinEdges)+1)
	lower := 0.0
	for _, edge := range durationBinEdges {
		bins = append(bins, HistogramBin{
			Label: fmt.Sprintf("%s-%s", formatEdge(lower), formatEdge(edge)),
			From:  lower,
			To:    edge,
		})
		lower = edge
	}
	bins = append(bins, HistogramBin{
		Label: formatEdge(lower) + "+",
		From:  lower,
	})

	for _, r := range records {
		bins[binIndex(r.DurationMinutes)].Count++
	}
	return bins
}

func binIndex(minutes float64) int {
	for i, edge := range durationBinEdges {
		if minutes < edge {
			return i
		}
	}
	return len(durationBinEdges)
}

func formatEdge(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// PlaysBucket is one bucket of the plays-per-user distribution: how many
// viewers watched exactly Plays times (the last bucket is open-ended).
type PlaysBucket struct {
	Plays string `json:"plays"`
	Users int    `json:"users"`
}

// playsBucketCap is where the plays-per-user distribution folds the long
// tail into one open-ended bucket.
const playsBucketCap = 10

// PlaysPerUser distributes viewers by how many records they have in the
// subset. The buckets run "1".."9" then "10+".
func PlaysPerUser(records []domain.DerivedRecord) []PlaysBucket {
	if len(records) == 0 {
		return nil
	}

	counts := make(map[string]int)
	for _, r := range records {
		counts[r.UserID]++
	}

	byPlays := make(map[int]int)
	maxPlays := 0
	for _, plays := range counts {
		if plays >= playsBucketCap {
			plays = playsBucketCap
		}
		byPlays[plays]++
		if plays > maxPlays {
			maxPlays = plays
		}
	}

	buckets := make([]PlaysBucket, 0, maxPlays)
	for plays := 1; plays <= maxPlays; plays++ {
		label := strconv.Itoa(plays)
		if plays == playsBucketCap {
			label += "+"
		}
		buckets = append(buckets, PlaysBucket{Plays: label, Users: byPlays[plays]})
	}
	return buckets
}

// OwnerSplit separates views by the video's own uploader from everyone
// else's.
type OwnerSplit struct {
	OwnerViews  int `json:"owner_views"`
	ViewerViews int `json:"viewer_views"`
}

// SplitOwnerViews tallies owner against non-owner views.
func SplitOwnerViews(records []domain.DerivedRecord) OwnerSplit {
	var split OwnerSplit
	for _, r := range records {
		if r.OwnerView {
			split.OwnerViews++
		} else {
			split.ViewerViews++
		}
	}
	return split
}

// VideoCount pairs a video name with its view count in the subset.
type VideoCount struct {
	VideoName string `json:"video_name"`
	Views     int    `json:"views"`
}

// TopVideos counts views per video name and returns the n most viewed,
// ties broken by name so the ranking is stable.
func TopVideos(records []domain.DerivedRecord, n int) []VideoCount {
	if n <= 0 || len(records) == 0 {
		return nil
	}

	counts := make(map[string]int)
	for _, r := range records {
		counts[videoLabel(r)]++
	}

	ranking := make([]VideoCount, 0, len(counts))
	for name, views := range counts {
		ranking = append(ranking, VideoCount{VideoName: name, Views: views})
	}
	sort.Slice(ranking, func(i, j int) bool {
		if ranking[i].Views != ranking[j].Views {
			return ranking[i].Views > ranking[j].Views
		}
		return ranking[i].VideoName < ranking[j].VideoName
	})

	if len(ranking) > n {
		ranking = ranking[:n]
	}
	return ranking
}

// VideoMetric is one ranking bar: a video and its metric value.
type VideoMetric struct {
	VideoName string  `json:"video_name"`
	Value     float64 `json:"value"`
}

// TopVideosBy ranks videos within the subset by the named metric:
// views, unique_viewers or total_minutes. Anything else ranks by views.
func TopVideosBy(records []domain.DerivedRecord, n int, metric string) []VideoMetric {
	if n <= 0 || len(records) == 0 {
		return nil
	}

	values := make(map[string]float64)
	switch metric {
	case SortByUniqueViewers:
		viewers := make(map[string]map[string]bool)
		for _, r := range records {
			name := videoLabel(r)
			set, ok := viewers[name]
			if !ok {
				set = make(map[string]bool)
				viewers[name] = set
			}
			set[r.UserID] = true
		}
		for name, set := range viewers {
			values[name] = float64(len(set))
		}
	case SortByTotalMinutes:
		for _, r := range records {
			values[videoLabel(r)] += r.DurationMinutes
		}
	default:
		for _, r := range records {
			values[videoLabel(r)]++
		}
	}

	ranking := make([]VideoMetric, 0, len(values))
	for name, value := range values {
		ranking = append(ranking, VideoMetric{VideoName: name, Value: value})
	}
	sort.Slice(ranking, func(i, j int) bool {
		if ranking[i].Value != ranking[j].Value {
			return ranking[i].Value > ranking[j].Value
		}
		return ranking[i].VideoName < ranking[j].VideoName
	})

	if len(ranking) > n {
		ranking = ranking[:n]
	}
	return ranking
}

// videoLabel names a record's video for grouping, falling back to the
// id when the export carried no title.
func videoLabel(r domain.DerivedRecord) string {
	if r.VideoName != "" {
		return r.VideoName
	}
	return r.VideoID
}
