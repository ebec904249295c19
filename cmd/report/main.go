package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"watchlens/internal/analytics"
	"watchlens/internal/config"
	"watchlens/internal/dataprocessing"
	"watchlens/internal/exporter"
	"watchlens/internal/files"
	"watchlens/internal/infrastructure"
	"watchlens/internal/insights"
	"watchlens/pkg/contracts/domain"
)

// insightsArtifact is the JSON document written next to the dataset. It
// is a derived artifact: rerunning the report over the same dataset
// produces the same peaks and ranking, only GeneratedAt changes.
type insightsArtifact struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Rows        int             `json:"rows"`
	DateFrom    string          `json:"date_from,omitempty"`
	DateTo      string          `json:"date_to,omitempty"`
	Peaks       []insights.Peak `json:"peaks"`
	TopVideos   []rankedVideo   `json:"top_videos"`
}

// rankedVideo is one leaderboard row of the insights artifact.
type rankedVideo struct {
	VideoName       string  `json:"video_name"`
	EngagementScore float64 `json:"engagement_score"`
	Views           int     `json:"views"`
	UniqueViewers   int     `json:"unique_viewers"`
	CompletionRate  float64 `json:"completion_rate"`
}

func main() {
	os.Exit(run())
}

func run() int {
	recordsPath := flag.String("records", "", "dataset records CSV (defaults to data/processed/watch_records.csv)")
	topN := flag.Int("top", 10, "number of videos in the engagement ranking")
	flag.Parse()

	paths, err := config.GetPaths()
	if err != nil {
		slog.Error("Failed to initialize paths", "error", err)
		return 1
	}
	if err := paths.EnsureDirectories(); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		return 1
	}

	if *recordsPath == "" {
		*recordsPath = paths.GetRecordsCSVPath()
	}
	if *topN < 1 {
		slog.Error("top must be at least 1")
		return 1
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Warn("Failed to load config, using defaults", "error", err)
		cfg = config.Default()
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		return 1
	}
	defer infrastructure.CloseLogFile()

	records, err := dataprocessing.ReadRecordsCSV(*recordsPath)
	if err != nil {
		logger.Error("Failed to read dataset records",
			slog.String("path", *recordsPath),
			slog.String("error", err.Error()))
		fmt.Fprintln(os.Stderr, "No dataset found. Run the processor (or the dashboard rebuild) first.")
		return 1
	}

	summaries, err := loadSummaries(paths, records)
	if err != nil {
		logger.Error("Failed to load video summaries", slog.String("error", err.Error()))
		return 1
	}

	artifact := buildInsights(records, summaries, *topN, time.Now())

	manager := files.NewManager(paths)
	artifactJSON, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		logger.Error("Failed to marshal insights", slog.String("error", err.Error()))
		return 1
	}
	if err := manager.WriteFileAtomic(paths.GetInsightsJSONPath(), artifactJSON); err != nil {
		logger.Error("Failed to write insights artifact", slog.String("error", err.Error()))
		return 1
	}
	fmt.Printf("Wrote %s\n", paths.GetInsightsJSONPath())

	var peaksCSV bytes.Buffer
	if _, err := exporter.Peaks(&peaksCSV, artifact.Peaks, exporter.Options{BOM: true}); err != nil {
		logger.Error("Failed to render peaks export", slog.String("error", err.Error()))
		return 1
	}
	peaksPath := paths.GetExportPath(exporter.Filename("engagement_peaks", artifact.GeneratedAt))
	if err := manager.WriteFileAtomic(peaksPath, peaksCSV.Bytes()); err != nil {
		logger.Error("Failed to write peaks export", slog.String("error", err.Error()))
		return 1
	}
	fmt.Printf("Wrote %s\n", peaksPath)

	printInsights(artifact)

	logger.Info("Engagement report finished",
		slog.Int("rows", artifact.Rows),
		slog.Int("peaks", len(artifact.Peaks)),
		slog.Int("ranked", len(artifact.TopVideos)))
	return 0
}

// loadSummaries prefers the summary artifact from the last build; when
// it is missing the summaries are regenerated from the records alone,
// losing only metadata-joined columns.
func loadSummaries(paths *config.Paths, records []domain.DerivedRecord) ([]domain.VideoSummary, error) {
	raw, err := os.ReadFile(paths.GetSummariesJSONPath())
	if err == nil {
		var summaries []domain.VideoSummary
		if jsonErr := json.Unmarshal(raw, &summaries); jsonErr == nil {
			return summaries, nil
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	summarizer := dataprocessing.NewSummarizer(dataprocessing.DefaultSummarizerConfig())
	return summarizer.GenerateFromRecords(records, nil), nil
}

// buildInsights computes the report body: detected peak days plus the
// engagement ranking.
func buildInsights(records []domain.DerivedRecord, summaries []domain.VideoSummary, topN int, now time.Time) insightsArtifact {
	insights.ScoreSummaries(summaries, insights.DefaultWeights())

	ranked := make([]domain.VideoSummary, len(summaries))
	copy(ranked, summaries)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].EngagementScore != ranked[j].EngagementScore {
			return ranked[i].EngagementScore > ranked[j].EngagementScore
		}
		return ranked[i].VideoName < ranked[j].VideoName
	})
	if topN > len(ranked) {
		topN = len(ranked)
	}

	top := make([]rankedVideo, 0, topN)
	for _, summary := range ranked[:topN] {
		top = append(top, rankedVideo{
			VideoName:       summary.VideoName,
			EngagementScore: summary.EngagementScore,
			Views:           summary.Views,
			UniqueViewers:   summary.UniqueViewers,
			CompletionRate:  summary.CompletionRate,
		})
	}

	series := analytics.DailySeries(records)
	peaks := insights.DetectPeaks(series)
	if peaks == nil {
		peaks = []insights.Peak{}
	}

	artifact := insightsArtifact{
		GeneratedAt: now.UTC(),
		Rows:        len(records),
		Peaks:       peaks,
		TopVideos:   top,
	}
	if len(series) > 0 {
		artifact.DateFrom = series[0].Date
		artifact.DateTo = series[len(series)-1].Date
	}
	return artifact
}

// printInsights renders the report to stdout.
func printInsights(artifact insightsArtifact) {
	fmt.Printf("\nEngagement report over %d rows", artifact.Rows)
	if artifact.DateFrom != "" {
		fmt.Printf(" (%s to %s)", artifact.DateFrom, artifact.DateTo)
	}
	fmt.Println()

	if len(artifact.Peaks) == 0 {
		fmt.Println("\nNo peak days detected.")
	} else {
		fmt.Println("\nPeak days:")
		for _, peak := range artifact.Peaks {
			fmt.Printf("  %s  %4d views (%.1fx the surrounding baseline)\n",
				peak.Date, peak.Views, peak.Ratio)
		}
	}

	if len(artifact.TopVideos) > 0 {
		fmt.Println("\nTop videos by engagement score:")
		for i, video := range artifact.TopVideos {
			fmt.Printf("  %2d. %-45s %5.1f  (%d views, %.0f%% completion)\n",
				i+1, video.VideoName, video.EngagementScore,
				video.Views, video.CompletionRate*100)
		}
	}
}
