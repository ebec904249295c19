package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"watchlens/internal/config"
	"watchlens/internal/dataprocessing"
	apperrors "watchlens/internal/errors"
	"watchlens/internal/files"
	"watchlens/internal/insights"
	"watchlens/pkg/contracts/domain"
)

// Snapshot is one generation of the assembled dataset. A snapshot is
// replaced wholesale when a build publishes and is never mutated after
// that, so handlers can hold one across a whole request without locking.
type Snapshot struct {
	Records   []domain.DerivedRecord
	Summaries []domain.VideoSummary
	Report    domain.BuildReport
	LoadedAt  time.Time
}

// DatasetStatus describes what the server is currently serving. It is
// safe to compute even when nothing has been built yet.
type DatasetStatus struct {
	Built    bool      `json:"built"`
	Rows     int       `json:"rows"`
	Videos   int       `json:"videos"`
	Viewers  int       `json:"viewers"`
	DateFrom string    `json:"date_from,omitempty"`
	DateTo   string    `json:"date_to,omitempty"`
	LoadedAt time.Time `json:"loaded_at"`
}

// DataService owns the in-memory dataset snapshot and the artifact
// files it is persisted to. It is the single writer of the processed
// directory: builds publish through it and the HTTP layer reads from it.
type DataService struct {
	config     *config.Config
	paths      *config.Paths
	files      *files.Manager
	summarizer *dataprocessing.Summarizer
	weights    insights.ComponentWeights
	logger     *slog.Logger

	mu       sync.RWMutex
	snapshot *Snapshot
}

// NewDataService creates a data service rooted at the executable's
// directory layout.
func NewDataService(cfg *config.Config, logger *slog.Logger) (*DataService, error) {
	paths, err := config.GetPaths()
	if err != nil {
		return nil, fmt.Errorf("failed to get paths: %w", err)
	}
	return NewDataServiceWithPaths(cfg, paths, logger), nil
}

// NewDataServiceWithPaths creates a data service over an explicit path
// layout.
func NewDataServiceWithPaths(cfg *config.Config, paths *config.Paths, logger *slog.Logger) *DataService {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("DataService initialized with paths",
		slog.String("processed_dir", paths.ProcessedDir),
		slog.String("records_csv", paths.RecordsCSV))

	return &DataService{
		config:     cfg,
		paths:      paths,
		files:      files.NewManager(paths),
		summarizer: dataprocessing.NewSummarizer(dataprocessing.DefaultSummarizerConfig()),
		weights:    insights.DefaultWeights(),
		logger:     logger,
	}
}

// LoadFromDisk reads the artifacts written by the last build and makes
// them the serving snapshot. A missing records file is not an error:
// the server starts without a dataset and the API reports it as not
// built until one is published.
func (ds *DataService) LoadFromDisk(ctx context.Context) error {
	recordsPath := ds.paths.GetRecordsCSVPath()
	if !config.FileExists(recordsPath) {
		ds.logger.Info("no dataset artifacts found, starting without a dataset",
			slog.String("records_csv", recordsPath))
		return nil
	}

	start := time.Now()
	records, err := dataprocessing.ReadRecordsCSV(recordsPath)
	if err != nil {
		return fmt.Errorf("read records csv: %w", err)
	}

	report, err := ds.loadReport()
	if err != nil {
		return err
	}

	summaries, err := ds.loadOrRegenerateSummaries(records)
	if err != nil {
		return err
	}

	ds.swap(&Snapshot{
		Records:   records,
		Summaries: summaries,
		Report:    report,
		LoadedAt:  time.Now(),
	})

	ds.logger.InfoContext(ctx, "dataset loaded from disk",
		slog.Int("rows", len(records)),
		slog.Int("videos", len(summaries)),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}

func (ds *DataService) loadReport() (domain.BuildReport, error) {
	var report domain.BuildReport

	raw, err := os.ReadFile(ds.paths.GetBuildReportJSONPath())
	if os.IsNotExist(err) {
		ds.logger.Warn("build report missing, dataset status will lack build details")
		return report, nil
	}
	if err != nil {
		return report, fmt.Errorf("read build report: %w", err)
	}

	if err := json.Unmarshal(raw, &report); err != nil {
		ds.logger.Warn("build report unreadable, continuing without it",
			slog.String("error", err.Error()))
		return domain.BuildReport{}, nil
	}
	return report, nil
}

func (ds *DataService) loadOrRegenerateSummaries(records []domain.DerivedRecord) ([]domain.VideoSummary, error) {
	raw, err := os.ReadFile(ds.paths.GetSummariesJSONPath())
	switch {
	case err == nil:
		var summaries []domain.VideoSummary
		jsonErr := json.Unmarshal(raw, &summaries)
		if jsonErr == nil {
			return summaries, nil
		}
		ds.logger.Warn("summary artifact unreadable, regenerating from records",
			slog.String("error", jsonErr.Error()))
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("read summaries json: %w", err)
	}

	// Regenerating from the records table alone loses metadata-derived
	// columns such as ReportedViews, which only the build pipeline can
	// join back in. Scores are recomputed so the leaderboard still works.
	summaries := ds.summarizer.GenerateFromRecords(records, nil)
	insights.ScoreSummaries(summaries, ds.weights)
	return summaries, nil
}

// Publish scores the summaries, writes all dataset artifacts and swaps
// the serving snapshot to the new generation. It implements
// operations.SnapshotPublisher. Each artifact is written with an
// atomic rename, so a crash mid-publish leaves the previous files
// intact.
func (ds *DataService) Publish(ctx context.Context, dataset *dataprocessing.Dataset, summaries []domain.VideoSummary) ([]string, error) {
	if dataset == nil {
		return nil, fmt.Errorf("nil dataset")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	insights.ScoreSummaries(summaries, ds.weights)

	recordsCSV, err := dataprocessing.RenderRecordsCSV(dataset.Records)
	if err != nil {
		return nil, fmt.Errorf("render records csv: %w", err)
	}
	summariesCSV, err := ds.summarizer.RenderCSV(summaries)
	if err != nil {
		return nil, fmt.Errorf("render summary csv: %w", err)
	}
	summariesJSON, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal summaries: %w", err)
	}
	reportJSON, err := json.MarshalIndent(dataset.Report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal build report: %w", err)
	}

	artifacts := []struct {
		path string
		data []byte
	}{
		{ds.paths.GetRecordsCSVPath(), recordsCSV},
		{ds.paths.GetSummariesCSVPath(), summariesCSV},
		{ds.paths.GetSummariesJSONPath(), summariesJSON},
		{ds.paths.GetBuildReportJSONPath(), reportJSON},
	}

	written := make([]string, 0, len(artifacts))
	for _, artifact := range artifacts {
		if err := ds.files.WriteFileAtomic(artifact.path, artifact.data); err != nil {
			return nil, fmt.Errorf("write %s: %w", filepath.Base(artifact.path), err)
		}
		written = append(written, artifact.path)
	}

	ds.swap(&Snapshot{
		Records:   dataset.Records,
		Summaries: summaries,
		Report:    dataset.Report,
		LoadedAt:  time.Now(),
	})

	ds.logger.InfoContext(ctx, "dataset published",
		slog.Int("rows", len(dataset.Records)),
		slog.Int("videos", len(summaries)),
		slog.Int("artifacts", len(written)))
	return written, nil
}

func (ds *DataService) swap(snap *Snapshot) {
	ds.mu.Lock()
	ds.snapshot = snap
	ds.mu.Unlock()
}

// Snapshot returns the currently served dataset generation.
func (ds *DataService) Snapshot() (*Snapshot, error) {
	ds.mu.RLock()
	snap := ds.snapshot
	ds.mu.RUnlock()

	if snap == nil {
		return nil, apperrors.ErrDatasetNotBuilt
	}
	return snap, nil
}

// Records returns the derived watch records of the current snapshot.
func (ds *DataService) Records() ([]domain.DerivedRecord, error) {
	snap, err := ds.Snapshot()
	if err != nil {
		return nil, err
	}
	if len(snap.Records) == 0 {
		return nil, apperrors.ErrDatasetEmpty
	}
	return snap.Records, nil
}

// Summaries returns the per-video summaries of the current snapshot,
// scored for the leaderboard.
func (ds *DataService) Summaries() ([]domain.VideoSummary, error) {
	snap, err := ds.Snapshot()
	if err != nil {
		return nil, err
	}
	if len(snap.Summaries) == 0 {
		return nil, apperrors.ErrDatasetEmpty
	}
	return snap.Summaries, nil
}

// Report returns the build report of the current snapshot.
func (ds *DataService) Report() (domain.BuildReport, error) {
	snap, err := ds.Snapshot()
	if err != nil {
		return domain.BuildReport{}, err
	}
	return snap.Report, nil
}

// Status reports what is currently loaded. Unlike the accessors it
// never fails; an unbuilt dataset is just Built=false.
func (ds *DataService) Status() DatasetStatus {
	ds.mu.RLock()
	snap := ds.snapshot
	ds.mu.RUnlock()

	if snap == nil {
		return DatasetStatus{}
	}

	status := DatasetStatus{
		Built:    true,
		Rows:     len(snap.Records),
		Videos:   snap.Report.Videos,
		Viewers:  snap.Report.Viewers,
		DateFrom: snap.Report.DateFrom,
		DateTo:   snap.Report.DateTo,
		LoadedAt: snap.LoadedAt,
	}
	if status.Videos == 0 {
		status.Videos = len(snap.Summaries)
	}
	return status
}

// RowCount returns the number of records currently served, zero when no
// dataset is loaded.
func (ds *DataService) RowCount() int {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	if ds.snapshot == nil {
		return 0
	}
	return len(ds.snapshot.Records)
}
