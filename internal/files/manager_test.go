package files

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watchlens/internal/config"
)

// testPaths builds a config.Paths rooted at a temp directory
func testPaths(t *testing.T) *config.Paths {
	t.Helper()
	tmpDir := t.TempDir()

	dataDir := filepath.Join(tmpDir, "data")
	paths := &config.Paths{
		ExecutableDir: tmpDir,
		DataDir:       dataDir,
		WebDir:        filepath.Join(tmpDir, "web"),
		StaticDir:     filepath.Join(tmpDir, "web", "static"),
		RawDir:        filepath.Join(dataDir, "raw"),
		ProcessedDir:  filepath.Join(dataDir, "processed"),
		ExportsDir:    filepath.Join(dataDir, "exports"),
		CacheDir:      filepath.Join(dataDir, "cache"),
		LogsDir:       filepath.Join(tmpDir, "logs"),
	}
	require.NoError(t, paths.EnsureDirectories())
	return paths
}

func TestNewManager(t *testing.T) {
	paths := testPaths(t)
	manager := NewManager(paths)

	assert.NotNil(t, manager)
	assert.Equal(t, paths, manager.paths)
}

func TestResolvePath(t *testing.T) {
	paths := testPaths(t)
	manager := NewManager(paths)

	tests := []struct {
		name string
		path string
		want string
	}{
		{"raw prefix", "raw/watch_history.xlsx", filepath.Join(paths.RawDir, "watch_history.xlsx")},
		{"processed prefix", "processed/watch_records.csv", filepath.Join(paths.ProcessedDir, "watch_records.csv")},
		{"exports prefix", "exports/filtered.csv", filepath.Join(paths.ExportsDir, "filtered.csv")},
		{"cache prefix", "cache/tmp.bin", filepath.Join(paths.CacheDir, "tmp.bin")},
		{"logs prefix", "logs/app.log", filepath.Join(paths.LogsDir, "app.log")},
		{"web prefix", "web/index.html", filepath.Join(paths.WebDir, "index.html")},
		{"static prefix", "static/app.js", filepath.Join(paths.StaticDir, "app.js")},
		{"bare name lands in data", "state.json", filepath.Join(paths.DataDir, "state.json")},
		{"absolute passes through", "/tmp/absolute.csv", "/tmp/absolute.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, manager.resolvePath(tt.path))
		})
	}
}

func TestFileExists(t *testing.T) {
	paths := testPaths(t)
	manager := NewManager(paths)

	assert.False(t, manager.FileExists("raw/missing.xlsx"))

	fullPath := filepath.Join(paths.RawDir, "present.xlsx")
	require.NoError(t, os.WriteFile(fullPath, []byte("x"), 0644))

	assert.True(t, manager.FileExists("raw/present.xlsx"))
	assert.True(t, manager.FileExists(fullPath))
}

func TestReadWriteFile(t *testing.T) {
	manager := NewManager(testPaths(t))

	content := []byte("video_id,user_id\nv1,u1\n")
	require.NoError(t, manager.WriteFile("processed/test.csv", content))

	read, err := manager.ReadFile("processed/test.csv")
	require.NoError(t, err)
	assert.Equal(t, content, read)

	// WriteFile creates missing parent directories
	require.NoError(t, manager.WriteFile("processed/nested/deep.csv", content))
	assert.True(t, manager.FileExists("processed/nested/deep.csv"))
}

func TestWriteFileAtomic(t *testing.T) {
	paths := testPaths(t)
	manager := NewManager(paths)

	content := []byte("row1\nrow2\n")
	require.NoError(t, manager.WriteFileAtomic("processed/watch_records.csv", content))

	read, err := manager.ReadFile("processed/watch_records.csv")
	require.NoError(t, err)
	assert.Equal(t, content, read)

	// Overwrite leaves no temp files behind
	require.NoError(t, manager.WriteFileAtomic("processed/watch_records.csv", []byte("replaced\n")))

	entries, err := os.ReadDir(paths.ProcessedDir)
	require.NoError(t, err)
	for _, entry := range entries {
		assert.False(t, strings.Contains(entry.Name(), ".tmp-"),
			"temporary file %s left behind", entry.Name())
	}

	read, err = manager.ReadFile("processed/watch_records.csv")
	require.NoError(t, err)
	assert.Equal(t, []byte("replaced\n"), read)
}

func TestEnsureDirectory(t *testing.T) {
	manager := NewManager(testPaths(t))

	require.NoError(t, manager.EnsureDirectory("cache/new/nested"))
	assert.True(t, manager.FileExists("cache/new/nested"))

	// Idempotent
	assert.NoError(t, manager.EnsureDirectory("cache/new/nested"))
}

