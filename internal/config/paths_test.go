package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPaths(t *testing.T) {
	paths, err := GetPaths()
	require.NoError(t, err)
	require.NotNil(t, paths)

	assert.NotEmpty(t, paths.ExecutableDir)
	assert.True(t, filepath.IsAbs(paths.ExecutableDir))

	// All derived paths hang off the executable directory
	assert.Equal(t, filepath.Join(paths.ExecutableDir, "data"), paths.DataDir)
	assert.Equal(t, filepath.Join(paths.DataDir, "uploads"), paths.UploadsDir)
	assert.Equal(t, filepath.Join(paths.DataDir, "results"), paths.ResultsDir)
	assert.Equal(t, filepath.Join(paths.DataDir, "reports"), paths.ReportsDir)
	assert.Equal(t, filepath.Join(paths.ExecutableDir, "logs"), paths.LogsDir)
}

func TestPathHelpers(t *testing.T) {
	paths := &Paths{
		ExecutableDir: "/opt/attend",
		DataDir:       "/opt/attend/data",
		UploadsDir:    "/opt/attend/data/uploads",
		ResultsDir:    "/opt/attend/data/results",
		ReportsDir:    "/opt/attend/data/reports",
		LogsDir:       "/opt/attend/logs",
	}

	assert.Equal(t, filepath.Join("/opt/attend/data/uploads", "in.csv"), paths.GetUploadPath("in.csv"))
	assert.Equal(t, filepath.Join("/opt/attend/data/results", "out.xlsx"), paths.GetResultPath("out.xlsx"))
	assert.Equal(t, filepath.Join("/opt/attend/data/reports", "summary.csv"), paths.GetReportPath("summary.csv"))
	assert.Equal(t, filepath.Join("/opt/attend/logs", "web.log"), paths.GetLogPath("web.log"))

	at := time.Date(2024, 5, 22, 10, 45, 0, 0, time.UTC)
	assert.Equal(t,
		filepath.Join("/opt/attend/data/results", "attendance_20240522_104500.xlsx"),
		paths.GetDatedResultPath(at))
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	paths := &Paths{
		ExecutableDir: base,
		DataDir:       filepath.Join(base, "data"),
		UploadsDir:    filepath.Join(base, "data", "uploads"),
		ResultsDir:    filepath.Join(base, "data", "results"),
		ReportsDir:    filepath.Join(base, "data", "reports"),
		LogsDir:       filepath.Join(base, "logs"),
	}

	require.NoError(t, paths.EnsureDirectories())

	for _, dir := range []string{paths.DataDir, paths.UploadsDir, paths.ResultsDir, paths.ReportsDir, paths.LogsDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err, "directory %s should exist", dir)
		assert.True(t, info.IsDir())
	}

	// Second call is a no-op
	assert.NoError(t, paths.EnsureDirectories())
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "present.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	assert.True(t, FileExists(file))
	assert.False(t, FileExists(filepath.Join(dir, "absent.txt")))
}
