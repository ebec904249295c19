package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"watchlens/internal/config"
	"watchlens/internal/dataprocessing"
	"watchlens/internal/files"
	"watchlens/internal/infrastructure"
	"watchlens/internal/insights"
	"watchlens/internal/validation"
)

func main() {
	os.Exit(run())
}

func run() int {
	inDir := flag.String("in", "", "directory with raw spreadsheet exports (defaults to data/raw next to the executable)")
	outDir := flag.String("out", "", "directory for dataset artifacts (defaults to data/processed)")
	workers := flag.Int("workers", 0, "concurrent source file parsers (0 uses the configured default)")
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

	if *inDir == "" {
		*inDir = paths.RawDir
	}
	if *outDir == "" {
		*outDir = paths.ProcessedDir
	}
	// Relative flag values resolve against the working directory, not
	// the executable-relative data layout.
	if abs, err := filepath.Abs(*outDir); err == nil {
		*outDir = abs
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	validator := validation.NewFileValidator(logger)
	if err := validator.ValidateInputDirectory(*inDir); err != nil {
		logger.Error("Input directory check failed", slog.String("error", err.Error()))
		return 1
	}
	if err := validator.ValidateOutputDirectory(*outDir); err != nil {
		logger.Error("Output directory check failed", slog.String("error", err.Error()))
		return 1
	}

	discovery := files.NewDiscovery("")
	sources, err := discovery.FindSourceFiles(*inDir)
	if err != nil {
		logger.Error("Source discovery failed", slog.String("error", err.Error()))
		return 1
	}

	fmt.Printf("Found %d source file(s) in %s\n", len(sources), *inDir)
	inputs := make([]dataprocessing.Input, 0, len(sources))
	for _, src := range sources {
		kind := string(src.Kind)
		if kind == "" {
			kind = "unclassified"
		}
		fmt.Printf("  %-45s %s\n", src.Name, kind)
		inputs = append(inputs, dataprocessing.Input{
			Path: src.Path,
			Name: src.Name,
			Kind: src.Kind,
		})
	}

	parsers := *workers
	if parsers <= 0 {
		parsers = cfg.BuildWorkers()
	}

	assembler := dataprocessing.NewAssembler(logger, parsers)
	dataset, err := assembler.Assemble(ctx, inputs)
	if err != nil {
		logger.Error("Dataset build failed", slog.String("error", err.Error()))
		return 1
	}

	summarizer := dataprocessing.NewSummarizer(dataprocessing.DefaultSummarizerConfig())
	summaries := summarizer.GenerateFromRecords(dataset.Records, dataset.Meta)
	insights.ScoreSummaries(summaries, insights.DefaultWeights())

	manager := files.NewManager(paths)
	recordsCSV, err := dataprocessing.RenderRecordsCSV(dataset.Records)
	if err != nil {
		logger.Error("Failed to render records table", slog.String("error", err.Error()))
		return 1
	}
	summariesCSV, err := summarizer.RenderCSV(summaries)
	if err != nil {
		logger.Error("Failed to render summary table", slog.String("error", err.Error()))
		return 1
	}
	summariesJSON, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		logger.Error("Failed to marshal summaries", slog.String("error", err.Error()))
		return 1
	}
	reportJSON, err := json.MarshalIndent(dataset.Report, "", "  ")
	if err != nil {
		logger.Error("Failed to marshal build report", slog.String("error", err.Error()))
		return 1
	}

	artifacts := []struct {
		name string
		data []byte
	}{
		{"watch_records.csv", recordsCSV},
		{"video_summary.csv", summariesCSV},
		{"video_summary.json", summariesJSON},
		{"build_report.json", reportJSON},
	}
	for _, artifact := range artifacts {
		path := filepath.Join(*outDir, artifact.name)
		if err := manager.WriteFileAtomic(path, artifact.data); err != nil {
			logger.Error("Failed to write artifact",
				slog.String("file", path),
				slog.String("error", err.Error()))
			return 1
		}
		fmt.Printf("Wrote %s\n", path)
	}

	report := dataset.Report
	fmt.Printf("\nBuild %s complete\n", report.RunID)
	fmt.Printf("  rows read:    %d\n", report.RowsRead)
	fmt.Printf("  rows kept:    %d\n", report.RowsKept)
	fmt.Printf("  dataset rows: %d\n", report.DatasetRows)
	fmt.Printf("  videos:       %d\n", report.Videos)
	fmt.Printf("  viewers:      %d\n", report.Viewers)
	if report.DateFrom != "" {
		fmt.Printf("  date range:   %s to %s\n", report.DateFrom, report.DateTo)
	}
	for reason, count := range report.ExcludedByReason {
		fmt.Printf("  excluded (%s): %d\n", reason, count)
	}

	logger.Info("Dataset build finished",
		slog.String("run_id", report.RunID),
		slog.Int("rows", report.DatasetRows),
		slog.Int("videos", report.Videos))
	return 0
}
