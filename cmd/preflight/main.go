package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"watchlens/internal/config"
	"watchlens/internal/dataprocessing"
	"watchlens/internal/files"
	"watchlens/internal/infrastructure"
	"watchlens/internal/validation"
	"watchlens/pkg/contracts/domain"
)

// preflight parses every raw export without writing anything, so a
// user can see how their spreadsheets will be classified and which
// rows would be excluded before running a real build.
func main() {
	os.Exit(run())
}

func run() int {
	inDir := flag.String("in", "", "directory with raw spreadsheet exports (defaults to data/raw next to the executable)")
	asJSON := flag.Bool("json", false, "print the per-file reports as JSON")
	flag.Parse()

	paths, err := config.GetPaths()
	if err != nil {
		slog.Error("Failed to initialize paths", "error", err)
		return 1
	}

	if *inDir == "" {
		*inDir = paths.RawDir
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

	discovery := files.NewDiscovery("")
	sources, err := discovery.FindSourceFiles(*inDir)
	if err != nil {
		logger.Error("Source discovery failed", slog.String("error", err.Error()))
		return 1
	}
	if len(sources) == 0 {
		fmt.Printf("No spreadsheet exports found in %s\n", *inDir)
		return 0
	}

	parser := dataprocessing.NewSourceParser(logger)
	reports := make([]domain.SourceReport, 0, len(sources))
	failed := false

	for _, src := range sources {
		result, err := parser.Parse(ctx, src.Path, src.Kind)
		if err != nil {
			logger.Error("Parse failed",
				slog.String("file", src.Name),
				slog.String("error", err.Error()))
			failed = true
			continue
		}
		reports = append(reports, result.Report)
	}

	if *asJSON {
		out, err := json.MarshalIndent(reports, "", "  ")
		if err != nil {
			logger.Error("Failed to marshal reports", slog.String("error", err.Error()))
			return 1
		}
		fmt.Println(string(out))
	} else {
		for _, report := range reports {
			fmt.Print(describeReport(report))
		}
		fmt.Printf("%d file(s) checked\n", len(reports))
	}

	if failed {
		return 1
	}
	return 0
}

// describeReport renders one per-file report as indented text.
func describeReport(r domain.SourceReport) string {
	var b strings.Builder

	kind := string(r.Kind)
	if kind == "" {
		kind = "unclassified"
	}
	fmt.Fprintf(&b, "%s\n", r.File)
	fmt.Fprintf(&b, "  kind:      %s\n", kind)
	if r.Sheet != "" {
		fmt.Fprintf(&b, "  sheet:     %s\n", r.Sheet)
	}

	if r.Skipped {
		fmt.Fprintf(&b, "  skipped:   %s\n", r.SkipReason)
		if len(r.MissingColumns) > 0 {
			fmt.Fprintf(&b, "  missing:   %s\n", strings.Join(r.MissingColumns, ", "))
		}
		return b.String()
	}

	fmt.Fprintf(&b, "  rows read: %d\n", r.RowsRead)
	fmt.Fprintf(&b, "  rows kept: %d\n", r.RowsKept)

	if len(r.MatchedColumns) > 0 {
		columns := make([]string, 0, len(r.MatchedColumns))
		for canonical := range r.MatchedColumns {
			columns = append(columns, canonical)
		}
		sort.Strings(columns)
		for _, canonical := range columns {
			fmt.Fprintf(&b, "  column:    %s <- %q\n", canonical, r.MatchedColumns[canonical])
		}
	}

	if len(r.Excluded) > 0 {
		reasons := make([]string, 0, len(r.Excluded))
		for reason := range r.Excluded {
			reasons = append(reasons, string(reason))
		}
		sort.Strings(reasons)
		for _, reason := range reasons {
			fmt.Fprintf(&b, "  excluded:  %s (%d)\n", reason, r.Excluded[domain.ExclusionReason(reason)])
		}
	}

	return b.String()
}
