package files

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"watchlens/internal/config"
	"watchlens/pkg/contracts/domain"
)

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
	IsDir   bool
}

// SourceFile is a discovered raw export together with its classified kind.
type SourceFile struct {
	FileInfo
	Kind domain.SourceKind
}

var (
	watchHistoryRe  = regexp.MustCompile(config.WatchHistoryPattern)
	questionnaireRe = regexp.MustCompile(config.QuestionnairePattern)
	videoMetaRe     = regexp.MustCompile(config.VideoMetaPattern)
)

// Classify determines the source kind of a raw export from its filename.
// Returns false for files that match no known shape.
func Classify(name string) (domain.SourceKind, bool) {
	switch {
	case watchHistoryRe.MatchString(name):
		return domain.SourceWatchHistory, true
	case questionnaireRe.MatchString(name):
		return domain.SourceQuestionnaire, true
	case videoMetaRe.MatchString(name):
		return domain.SourceVideoMeta, true
	}
	return "", false
}

// Discovery provides file discovery operations
type Discovery struct {
	basePath string
}

// NewDiscovery creates a new file discovery instance
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

// FindSourceFiles finds all raw exports in the specified directory and
// classifies each by filename. Unclassified spreadsheets are returned with an
// empty Kind so callers can report them as skipped. Results are sorted by
// name so repeated builds walk sources in the same order.
func (d *Discovery) FindSourceFiles(dir string) ([]SourceFile, error) {
	spreadsheets, err := d.FindSpreadsheetFiles(dir)
	if err != nil {
		return nil, err
	}

	csvs, err := d.FindCSVFiles(dir)
	if err != nil {
		return nil, err
	}

	all := append(spreadsheets, csvs...)
	sort.Slice(all, func(i, j int) bool {
		return all[i].Name < all[j].Name
	})

	sources := make([]SourceFile, 0, len(all))
	for _, file := range all {
		kind, _ := Classify(file.Name)
		sources = append(sources, SourceFile{
			FileInfo: file,
			Kind:     kind,
		})
	}

	return sources, nil
}

// FindSpreadsheetFiles finds all Excel workbooks in the specified directory
func (d *Discovery) FindSpreadsheetFiles(dir string) ([]FileInfo, error) {
	// If dir is already absolute, use it directly
	fullPath := dir
	if !filepath.IsAbs(dir) {
		fullPath = filepath.Join(d.basePath, dir)
	}

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := strings.ToLower(entry.Name())
		if strings.HasSuffix(name, ".xlsx") || strings.HasSuffix(name, ".xlsm") {
			info, err := entry.Info()
			if err != nil {
				continue
			}

			files = append(files, FileInfo{
				Path:    filepath.Join(fullPath, entry.Name()),
				Name:    entry.Name(),
				Size:    info.Size(),
				ModTime: info.ModTime(),
				IsDir:   false,
			})
		}
	}

	// Sort by name so build order is stable across runs
	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})

	return files, nil
}

// FindCSVFiles finds all CSV files in the specified directory
func (d *Discovery) FindCSVFiles(dir string) ([]FileInfo, error) {
	// If dir is already absolute, use it directly
	fullPath := dir
	if !filepath.IsAbs(dir) {
		fullPath = filepath.Join(d.basePath, dir)
	}

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if strings.HasSuffix(strings.ToLower(name), ".csv") {
			info, err := entry.Info()
			if err != nil {
				continue
			}

			files = append(files, FileInfo{
				Path:    filepath.Join(fullPath, name),
				Name:    name,
				Size:    info.Size(),
				ModTime: info.ModTime(),
				IsDir:   false,
			})
		}
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})

	return files, nil
}

// GetLatestFile returns the most recently modified file from a list
func GetLatestFile(files []FileInfo) (FileInfo, bool) {
	if len(files) == 0 {
		return FileInfo{}, false
	}

	latest := files[0]
	for _, file := range files[1:] {
		if file.ModTime.After(latest.ModTime) {
			latest = file
		}
	}

	return latest, true
}
