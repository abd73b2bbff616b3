package files

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendcli/internal/config"
)

func quietManager(t *testing.T, resultsDir string) *Manager {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewManager(&config.Paths{
		DataDir:    filepath.Dir(resultsDir),
		ResultsDir: resultsDir,
	}, logger)
}

// writeWorkbook drops a stub workbook with a backdated mtime so retention
// ordering is deterministic.
func writeWorkbook(t *testing.T, dir, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("stub"), 0644))
	mod := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, mod, mod))
	return path
}

func TestPruneResults(t *testing.T) {
	dir := t.TempDir()
	oldest := writeWorkbook(t, dir, "attendance_aaa.xlsx", 3*time.Hour)
	middle := writeWorkbook(t, dir, "attendance_bbb.xlsx", 2*time.Hour)
	newest := writeWorkbook(t, dir, "attendance_ccc.xlsx", time.Hour)
	other := writeWorkbook(t, dir, "monthly_report.xlsx", 4*time.Hour)

	removed, err := quietManager(t, dir).PruneResults(2)
	require.NoError(t, err)
	assert.Equal(t, []string{"attendance_aaa.xlsx"}, removed)

	assert.NoFileExists(t, oldest)
	assert.FileExists(t, middle)
	assert.FileExists(t, newest)
	assert.FileExists(t, other, "non-result workbooks are never pruned")
}

func TestPruneResultsUnderCap(t *testing.T) {
	dir := t.TempDir()
	kept := writeWorkbook(t, dir, "attendance_aaa.xlsx", time.Hour)

	removed, err := quietManager(t, dir).PruneResults(5)
	require.NoError(t, err)
	assert.Empty(t, removed)
	assert.FileExists(t, kept)
}

func TestPruneResultsDisabled(t *testing.T) {
	dir := t.TempDir()
	kept := writeWorkbook(t, dir, "attendance_aaa.xlsx", time.Hour)

	removed, err := quietManager(t, dir).PruneResults(0)
	require.NoError(t, err)
	assert.Empty(t, removed)
	assert.FileExists(t, kept)
}

func TestPruneResultsMissingDirectory(t *testing.T) {
	dir := t.TempDir()

	removed, err := quietManager(t, filepath.Join(dir, "results")).PruneResults(3)
	require.NoError(t, err)
	assert.Empty(t, removed)
}
