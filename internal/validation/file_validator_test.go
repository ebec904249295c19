package validation

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newValidator() *FileValidator {
	return NewFileValidator(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestFileValidator_ValidateInputDirectory(t *testing.T) {
	v := newValidator()

	tests := []struct {
		name          string
		setup         func(t *testing.T) string
		wantErr       bool
		errorContains string
	}{
		{
			name: "existing directory",
			setup: func(t *testing.T) string {
				return t.TempDir()
			},
		},
		{
			name: "non-existent directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "missing")
			},
			wantErr:       true,
			errorContains: "does not exist",
		},
		{
			name: "path is a file",
			setup: func(t *testing.T) string {
				return writeFile(t, t.TempDir(), "exports.xlsx", "x")
			},
			wantErr:       true,
			errorContains: "is not a directory",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateInputDirectory(tt.setup(t))
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFileValidator_ValidateOutputDirectory(t *testing.T) {
	v := newValidator()

	t.Run("creates missing directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "processed")
		require.NoError(t, v.ValidateOutputDirectory(dir))

		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("accepts existing directory", func(t *testing.T) {
		assert.NoError(t, v.ValidateOutputDirectory(t.TempDir()))
	})

	t.Run("leaves no probe file behind", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, v.ValidateOutputDirectory(dir))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}

func TestFileValidator_ValidateSourceFile(t *testing.T) {
	v := newValidator()

	tests := []struct {
		name          string
		fileName      string
		content       string
		wantErr       bool
		errorContains string
	}{
		{name: "xlsx export", fileName: "watch_history_2023.xlsx", content: "data"},
		{name: "xlsm export", fileName: "questionnaire.xlsm", content: "data"},
		{name: "legacy xls export", fileName: "videos.xls", content: "data"},
		{name: "csv export", fileName: "watch_history.csv", content: "a,b\n"},
		{
			name:          "office lock file",
			fileName:      "~$watch_history_2023.xlsx",
			content:       "lock",
			wantErr:       true,
			errorContains: "lock file",
		},
		{
			name:          "unsupported extension",
			fileName:      "notes.txt",
			content:       "hello",
			wantErr:       true,
			errorContains: "not a supported spreadsheet export",
		},
		{
			name:          "empty file",
			fileName:      "empty.xlsx",
			content:       "",
			wantErr:       true,
			errorContains: "is empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), tt.fileName, tt.content)

			err := v.ValidateSourceFile(path)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	t.Run("missing file", func(t *testing.T) {
		err := v.ValidateSourceFile(filepath.Join(t.TempDir(), "gone.xlsx"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "does not exist")
	})
}

func TestFileValidator_CountSourceFiles(t *testing.T) {
	v := newValidator()

	t.Run("counts only supported exports", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "watch_history_2023.xlsx", "x")
		writeFile(t, dir, "questionnaire.csv", "x")
		writeFile(t, dir, "~$watch_history_2023.xlsx", "lock")
		writeFile(t, dir, "readme.txt", "x")
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "archive"), 0755))

		count, err := v.CountSourceFiles(dir)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("empty directory counts zero", func(t *testing.T) {
		count, err := v.CountSourceFiles(t.TempDir())
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("missing directory errors", func(t *testing.T) {
		_, err := v.CountSourceFiles(filepath.Join(t.TempDir(), "missing"))
		assert.Error(t, err)
	})
}
