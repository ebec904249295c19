package dataprocessing

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"sort"
	"strconv"
	"time"

	apperrors "watchlens/internal/errors"
	"watchlens/pkg/contracts/domain"
)

// SummarizerConfig controls how summary values are rendered.
type SummarizerConfig struct {
	// MinutePrecision is the decimal places for minute values in CSV.
	MinutePrecision int

	// RatePrecision is the decimal places for rates and shares in CSV.
	RatePrecision int
}

// DefaultSummarizerConfig returns the rendering settings every exporter
// and dashboard shares.
func DefaultSummarizerConfig() SummarizerConfig {
	return SummarizerConfig{
		MinutePrecision: 2,
		RatePrecision:   4,
	}
}

// Summarizer generates the per-video summary table from the assembled
// dataset. It is the single producer of domain.VideoSummary values; the
// same records always yield the same summaries in the same order.
type Summarizer struct {
	config SummarizerConfig
}

// NewSummarizer creates a summarizer with the given rendering config.
func NewSummarizer(config SummarizerConfig) *Summarizer {
	if config.MinutePrecision <= 0 {
		config.MinutePrecision = 2
	}
	if config.RatePrecision <= 0 {
		config.RatePrecision = 4
	}
	return &Summarizer{config: config}
}

// videoAccumulator folds one video's records during grouping.
type videoAccumulator struct {
	summary   domain.VideoSummary
	durations []float64
	viewers   map[string]bool
	plays     map[string]int
	first     time.Time
	last      time.Time
	repeats   int
}

// GenerateFromRecords groups the dataset by video identity and computes
// each video's engagement aggregates. Records must be in the assembler's
// chronological order; the per-viewer repeat share depends on it.
func (s *Summarizer) GenerateFromRecords(records []domain.DerivedRecord, meta map[string]domain.VideoMeta) []domain.VideoSummary {
	groups := make(map[string]*videoAccumulator)
	order := make([]string, 0)

	for _, record := range records {
		key := record.JoinKey()
		acc, ok := groups[key]
		if !ok {
			acc = &videoAccumulator{
				summary: domain.VideoSummary{
					VideoID:   record.VideoID,
					VideoName: record.VideoName,
					Category:  record.Category,
				},
				viewers: make(map[string]bool),
				plays:   make(map[string]int),
				first:   record.Timestamp,
				last:    record.Timestamp,
			}
			groups[key] = acc
			order = append(order, key)
		}

		if acc.summary.VideoName == "" {
			acc.summary.VideoName = record.VideoName
		}
		if acc.summary.VideoID == "" {
			acc.summary.VideoID = record.VideoID
		}
		if acc.summary.Category == "" {
			acc.summary.Category = record.Category
		}

		acc.summary.Views++
		acc.viewers[record.UserID] = true
		acc.durations = append(acc.durations, record.DurationMinutes)
		acc.summary.TotalMinutes += record.DurationMinutes

		switch record.Completion {
		case domain.CompletionCompleted:
			acc.summary.CompletedViews++
		case domain.CompletionNotCompleted:
			acc.summary.NotCompletedViews++
		default:
			acc.summary.UnknownViews++
		}

		if acc.plays[record.UserID] > 0 {
			acc.repeats++
		}
		acc.plays[record.UserID]++

		if record.OwnerView {
			acc.summary.OwnerViews++
		}

		if record.Timestamp.Before(acc.first) {
			acc.first = record.Timestamp
		}
		if record.Timestamp.After(acc.last) {
			acc.last = record.Timestamp
		}
	}

	summaries := make([]domain.VideoSummary, 0, len(groups))
	for _, key := range order {
		acc := groups[key]
		summary := acc.summary

		summary.UniqueViewers = len(acc.viewers)
		summary.FirstSeen = acc.first.Format("2006-01-02")
		summary.LastSeen = acc.last.Format("2006-01-02")
		summary.AvgMinutes = summary.TotalMinutes / float64(summary.Views)
		summary.MedianMinutes = median(acc.durations)

		if known := summary.CompletedViews + summary.NotCompletedViews; known > 0 {
			summary.CompletionRate = float64(summary.CompletedViews) / float64(known)
		}
		summary.RepeatShare = float64(acc.repeats) / float64(summary.Views)

		if meta != nil {
			if m, ok := meta[key]; ok {
				summary.ReportedViews = m.ReportedViews
				if summary.Category == "" {
					summary.Category = m.Category
				}
			}
		}

		summaries = append(summaries, summary)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		if summaries[i].VideoName != summaries[j].VideoName {
			return summaries[i].VideoName < summaries[j].VideoName
		}
		return summaries[i].VideoID < summaries[j].VideoID
	})

	return summaries
}

// median returns the middle duration, averaging the two middles for even
// counts. The input is copied before sorting.
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// summaryCSVHeader is the canonical column order of the summary table.
var summaryCSVHeader = []string{
	"VideoID", "VideoName", "Category", "Views", "UniqueViewers",
	"FirstSeen", "LastSeen", "TotalMinutes", "AvgMinutes", "MedianMinutes",
	"CompletedViews", "NotCompletedViews", "UnknownViews",
	"CompletionRate", "RepeatShare", "OwnerViews", "ReportedViews",
	"EngagementScore",
}

// RenderCSV renders summaries as CSV bytes with the canonical header.
// Numeric formatting is fixed-precision so identical summaries render
// byte-identically.
func (s *Summarizer) RenderCSV(summaries []domain.VideoSummary) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(summaryCSVHeader); err != nil {
		return nil, err
	}

	minutes := func(v float64) string {
		return strconv.FormatFloat(v, 'f', s.config.MinutePrecision, 64)
	}
	rate := func(v float64) string {
		return strconv.FormatFloat(v, 'f', s.config.RatePrecision, 64)
	}

	for _, summary := range summaries {
		row := []string{
			summary.VideoID,
			summary.VideoName,
			summary.Category,
			strconv.Itoa(summary.Views),
			strconv.Itoa(summary.UniqueViewers),
			summary.FirstSeen,
			summary.LastSeen,
			minutes(summary.TotalMinutes),
			minutes(summary.AvgMinutes),
			minutes(summary.MedianMinutes),
			strconv.Itoa(summary.CompletedViews),
			strconv.Itoa(summary.NotCompletedViews),
			strconv.Itoa(summary.UnknownViews),
			rate(summary.CompletionRate),
			rate(summary.RepeatShare),
			strconv.Itoa(summary.OwnerViews),
			strconv.Itoa(summary.ReportedViews),
			minutes(summary.EngagementScore),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteCSV writes the summary table to path.
func (s *Summarizer) WriteCSV(path string, summaries []domain.VideoSummary) error {
	data, err := s.RenderCSV(summaries)
	if err != nil {
		return apperrors.NewStorageError("failed to render summary CSV", err).WithContext("path", path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return apperrors.NewStorageError("failed to write summary CSV", err).WithContext("path", path)
	}
	return nil
}

// summaryEnvelope is the JSON document shape consumed by the dashboards.
type summaryEnvelope struct {
	Videos      []domain.VideoSummary `json:"videos"`
	Count       int                   `json:"count"`
	GeneratedAt time.Time             `json:"generated_at"`
	Format      string                `json:"format"`
}

// WriteJSON writes the summary table to path as a versioned envelope.
func (s *Summarizer) WriteJSON(path string, summaries []domain.VideoSummary) error {
	envelope := summaryEnvelope{
		Videos:      summaries,
		Count:       len(summaries),
		GeneratedAt: time.Now().UTC(),
		Format:      "video_summary_v1",
	}

	data, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return apperrors.NewStorageError("failed to marshal summary JSON", err).WithContext("path", path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return apperrors.NewStorageError("failed to write summary JSON", err).WithContext("path", path)
	}
	return nil
}
