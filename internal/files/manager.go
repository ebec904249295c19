package files

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"watchlens/internal/config"
)

// Manager provides file management operations
type Manager struct {
	paths *config.Paths
}

// NewManager creates a new file manager instance
func NewManager(paths *config.Paths) *Manager {
	return &Manager{paths: paths}
}

// FileExists checks if a file exists at the given path
func (m *Manager) FileExists(path string) bool {
	fullPath := m.resolvePath(path)
	_, err := os.Stat(fullPath)
	exists := err == nil

	slog.Debug("FileExists check",
		slog.String("path", path),
		slog.String("full_path", fullPath),
		slog.Bool("exists", exists))

	return exists
}

// ReadFile reads the entire content of a file
func (m *Manager) ReadFile(path string) ([]byte, error) {
	fullPath := m.resolvePath(path)

	slog.Debug("Reading file",
		slog.String("path", path),
		slog.String("full_path", fullPath))

	return os.ReadFile(fullPath)
}

// WriteFile writes data to a file
func (m *Manager) WriteFile(path string, data []byte) error {
	fullPath := m.resolvePath(path)

	slog.Info("Writing file",
		slog.String("path", path),
		slog.String("full_path", fullPath),
		slog.Int("size_bytes", len(data)))

	// Ensure directory exists
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	return os.WriteFile(fullPath, data, 0644)
}

// WriteFileAtomic writes data to a temporary file in the target directory and
// renames it into place, so readers never observe a partially written file.
func (m *Manager) WriteFileAtomic(path string, data []byte) error {
	fullPath := m.resolvePath(path)

	slog.Info("Writing file atomically",
		slog.String("path", path),
		slog.String("full_path", fullPath),
		slog.Int("size_bytes", len(data)))

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(fullPath)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temporary file: %w", err)
	}

	if err := os.Rename(tmpName, fullPath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return nil
}

// EnsureDirectory creates a directory if it doesn't exist
func (m *Manager) EnsureDirectory(path string) error {
	fullPath := m.resolvePath(path)
	return os.MkdirAll(fullPath, 0755)
}

// resolvePath resolves a path relative to the appropriate base directory
func (m *Manager) resolvePath(path string) string {
	// If the path is already absolute, return it as-is
	if filepath.IsAbs(path) {
		return path
	}

	// Determine which directory to use based on the path
	switch {
	case strings.HasPrefix(path, "raw/"):
		return m.paths.GetRawPath(strings.TrimPrefix(path, "raw/"))
	case strings.HasPrefix(path, "processed/"):
		return m.paths.GetProcessedPath(strings.TrimPrefix(path, "processed/"))
	case strings.HasPrefix(path, "exports/"):
		return m.paths.GetExportPath(strings.TrimPrefix(path, "exports/"))
	case strings.HasPrefix(path, "cache/"):
		return m.paths.GetCachePath(strings.TrimPrefix(path, "cache/"))
	case strings.HasPrefix(path, "logs/"):
		return m.paths.GetLogPath(strings.TrimPrefix(path, "logs/"))
	case strings.HasPrefix(path, "web/"):
		return m.paths.GetWebFilePath(strings.TrimPrefix(path, "web/"))
	case strings.HasPrefix(path, "static/"):
		return m.paths.GetStaticFilePath(strings.TrimPrefix(path, "static/"))
	default:
		// For files in the data directory
		return filepath.Join(m.paths.DataDir, path)
	}
}
