package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Paths contains all the application paths
// This is the single source of truth for ALL file paths in the application
type Paths struct {
	ExecutableDir string
	WebDir        string
	StaticDir     string
	DataDir       string
	RawDir        string
	ProcessedDir  string
	ExportsDir    string
	CacheDir      string
	LogsDir       string

	// Well-known dataset files (inside ProcessedDir)
	RecordsCSV      string
	SummariesCSV    string
	SummariesJSON   string
	BuildReportJSON string
	InsightsJSON    string
}

// GetPaths returns the application paths relative to the executable location
// All paths are ALWAYS relative to the executable directory, never the current working directory
func GetPaths() (*Paths, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %v", err)
	}

	// Resolve symlinks to get the actual executable location
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable symlinks: %v", err)
	}

	return PathsFromBase(filepath.Dir(exe)), nil
}

// PathsFromBase builds the standard directory layout rooted at baseDir.
// Services take the result by injection so tests can point the whole
// tree at a temporary directory.
func PathsFromBase(baseDir string) *Paths {
	// Directory structure:
	// dist/
	//   ├── data/
	//   │   ├── raw/         (spreadsheet exports dropped in by the user)
	//   │   ├── processed/   (normalized dataset, summaries, build report)
	//   │   ├── exports/     (CSV downloads written by cmd/report)
	//   │   └── cache/       (temporary files)
	//   ├── logs/            (application logs)
	//   └── web/             (frontend assets, used when not embedded)

	dataDir := filepath.Join(baseDir, "data")
	processedDir := filepath.Join(dataDir, "processed")

	paths := &Paths{
		ExecutableDir: baseDir,
		DataDir:       dataDir,
		WebDir:        filepath.Join(baseDir, "web"),
		StaticDir:     filepath.Join(baseDir, "web", "static"),
		RawDir:        filepath.Join(dataDir, "raw"),
		ProcessedDir:  processedDir,
		ExportsDir:    filepath.Join(dataDir, "exports"),
		CacheDir:      filepath.Join(dataDir, "cache"),
		LogsDir:       filepath.Join(baseDir, "logs"),

		RecordsCSV:      filepath.Join(processedDir, "watch_records.csv"),
		SummariesCSV:    filepath.Join(processedDir, "video_summary.csv"),
		SummariesJSON:   filepath.Join(processedDir, "video_summary.json"),
		BuildReportJSON: filepath.Join(processedDir, "build_report.json"),
		InsightsJSON:    filepath.Join(processedDir, "engagement_insights.json"),
	}

	return paths
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.DataDir,
		p.RawDir,
		p.ProcessedDir,
		p.ExportsDir,
		p.CacheDir,
		p.LogsDir,
	}

	logger := slog.Default()

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %v", dir, err)
		}

		if logger != nil {
			logger.Debug("Ensured directory exists",
				slog.String("directory", dir))
		}
	}

	return nil
}

// GetRelativePath returns a path relative to the executable directory
func (p *Paths) GetRelativePath(subpath string) string {
	return filepath.Join(p.ExecutableDir, subpath)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// GetRawPath returns the path for a raw source file
func (p *Paths) GetRawPath(filename string) string {
	return filepath.Join(p.RawDir, filename)
}

// GetProcessedPath returns the path for a processed dataset file
func (p *Paths) GetProcessedPath(filename string) string {
	return filepath.Join(p.ProcessedDir, filename)
}

// GetExportPath returns the path for an exported CSV file
func (p *Paths) GetExportPath(filename string) string {
	return filepath.Join(p.ExportsDir, filename)
}

// GetCachePath returns the path for a cache file
func (p *Paths) GetCachePath(filename string) string {
	return filepath.Join(p.CacheDir, filename)
}

// GetLogPath returns the path for a log file
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// GetWebFilePath returns the path to a web file
func (p *Paths) GetWebFilePath(filename string) string {
	return filepath.Join(p.WebDir, filename)
}

// GetStaticFilePath returns the path to a static file
func (p *Paths) GetStaticFilePath(filename string) string {
	return filepath.Join(p.StaticDir, filename)
}

// GetRecordsCSVPath returns the path for the watch_records.csv file
func (p *Paths) GetRecordsCSVPath() string {
	return p.RecordsCSV
}

// GetSummariesCSVPath returns the path for the video_summary.csv file
func (p *Paths) GetSummariesCSVPath() string {
	return p.SummariesCSV
}

// GetSummariesJSONPath returns the path for the video_summary.json file
func (p *Paths) GetSummariesJSONPath() string {
	return p.SummariesJSON
}

// GetBuildReportJSONPath returns the path for the build_report.json file
func (p *Paths) GetBuildReportJSONPath() string {
	return p.BuildReportJSON
}

// GetInsightsJSONPath returns the path for the engagement_insights.json file
func (p *Paths) GetInsightsJSONPath() string {
	return p.InsightsJSON
}

// GetDatedExportPath returns the path for a dated export file
// (e.g. watch_records_20240115.csv)
func (p *Paths) GetDatedExportPath(prefix string, date time.Time) string {
	filename := fmt.Sprintf("%s_%s.csv", prefix, date.Format("20060102"))
	return filepath.Join(p.ExportsDir, filename)
}

// LogPathResolution logs detailed path resolution information for debugging
func (p *Paths) LogPathResolution() {
	logger := slog.Default()
	if logger == nil {
		return
	}

	logger.Info("Path resolution summary",
		slog.Group("directories",
			slog.String("executable", p.ExecutableDir),
			slog.String("data", p.DataDir),
			slog.String("raw", p.RawDir),
			slog.String("processed", p.ProcessedDir),
			slog.String("exports", p.ExportsDir),
			slog.String("cache", p.CacheDir),
			slog.String("logs", p.LogsDir),
			slog.String("web", p.WebDir),
		),
		slog.Group("dataset_files",
			slog.String("records_csv", p.RecordsCSV),
			slog.String("summaries_csv", p.SummariesCSV),
			slog.String("summaries_json", p.SummariesJSON),
			slog.String("build_report_json", p.BuildReportJSON),
			slog.String("insights_json", p.InsightsJSON),
		))
}
