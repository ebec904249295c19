package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// sourceExtensions lists the spreadsheet formats the ingest pipeline
// can read. Anything else in the raw directory is ignored, not an
// error.
var sourceExtensions = map[string]bool{
	".xlsx": true,
	".xlsm": true,
	".xls":  true,
	".csv":  true,
}

// FileValidator checks raw exports and output locations before the
// pipeline touches them. The CLIs share it so their preflight failures
// read the same.
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator.
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger,
	}
}

// ValidateInputDirectory checks that the raw exports directory exists
// and is a directory. An empty directory passes; a build over nothing
// is a valid, empty build.
func (v *FileValidator) ValidateInputDirectory(dir string) error {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		v.logger.Error("Input directory does not exist",
			slog.String("directory", dir))
		return fmt.Errorf("input directory %s does not exist", dir)
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		v.logger.Error("Input path is not a directory",
			slog.String("path", dir))
		return fmt.Errorf("%s is not a directory", dir)
	}

	return nil
}

// ValidateOutputDirectory ensures the output directory exists and is
// writable. It creates the directory when missing.
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	testFile := filepath.Join(dir, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	file.Close()
	os.Remove(testFile)

	return nil
}

// ValidateFile checks that a file exists, is a regular file and can be
// opened for reading.
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("file %s does not exist", path)
	}
	if err != nil {
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateSourceFile checks that a file is a readable spreadsheet
// export the parser can open. Office lock files ("~$...") are rejected:
// they show up while a user still has the workbook open.
func (v *FileValidator) ValidateSourceFile(path string) error {
	if err := v.ValidateFile(path); err != nil {
		return err
	}

	base := filepath.Base(path)
	if strings.HasPrefix(base, "~$") {
		v.logger.Warn("Skipping spreadsheet lock file",
			slog.String("file", path))
		return fmt.Errorf("file %s is a spreadsheet lock file", path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !sourceExtensions[ext] {
		return fmt.Errorf("file %s is not a supported spreadsheet export (extension: %s)", path, ext)
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("file %s is empty", path)
	}

	return nil
}

// CountSourceFiles counts supported spreadsheet exports directly inside
// dir. Lock files and subdirectories do not count.
func (v *FileValidator) CountSourceFiles(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	count := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, "~$") {
			continue
		}
		if sourceExtensions[strings.ToLower(filepath.Ext(name))] {
			count++
		}
	}

	v.logger.Debug("Source files counted",
		slog.String("directory", dir),
		slog.Int("count", count))
	return count, nil
}
