package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendcli/internal/config"
	"attendcli/internal/dataprocessing"
	"attendcli/internal/exporter"
	"attendcli/internal/files"
	"attendcli/internal/validation"
)

const punchReport = `Attendance Export
Generated 01/08/2024
SR+A3:R24 NO,ALPHA EMP CODE,EMP FULL NAME,DESIG NAME,ON DATE,SHIFT START TIME,SHIFT END TIME,ACTUAL IN TIME,ACTUAL OUT TIME,DURATION,AB LEAVE
1,E100,Maya Iqbal,Engineer,26/05/2024,10:00,19:00,09:58,19:05,9:07,P
2,E100,Maya Iqbal,Engineer,27/05/2024,10:00,19:00,10:40,17:10,6:30,P
3,E200,Omar Khan,Analyst,26/05/2024,10:00,19:00,,,,A
`

const emptyReport = `Attendance Export
Generated 01/08/2024
SR+A3:R24 NO,ALPHA EMP CODE,EMP FULL NAME,DESIG NAME,ON DATE,SHIFT START TIME,SHIFT END TIME,ACTUAL IN TIME,ACTUAL OUT TIME,DURATION,AB LEAVE
`

const shapelessReport = `Attendance Export
Generated 01/08/2024
EMP FULL NAME,ON DATE,AB LEAVE
Maya Iqbal,26/05/2024,P
`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testPaths points every directory at a temp dir so exports never touch the
// executable's data tree.
func testPaths(t *testing.T) *config.Paths {
	t.Helper()
	base := t.TempDir()
	return &config.Paths{
		ExecutableDir: base,
		DataDir:       filepath.Join(base, "data"),
		UploadsDir:    filepath.Join(base, "data", "uploads"),
		ResultsDir:    filepath.Join(base, "data", "results"),
		ReportsDir:    filepath.Join(base, "data", "reports"),
		LogsDir:       filepath.Join(base, "logs"),
	}
}

func writeReport(t *testing.T, dir, name, content string) files.FileInfo {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	info, err := os.Stat(path)
	require.NoError(t, err)
	return files.FileInfo{Path: path, Name: name, Size: info.Size(), ModTime: info.ModTime()}
}

func TestProcessReport(t *testing.T) {
	tests := []struct {
		name          string
		fileName      string
		content       string
		withWorkbook  bool
		wantErr       bool
		errorContains string
	}{
		{
			name:     "valid report produces both CSV outputs",
			fileName: "july.csv",
			content:  punchReport,
		},
		{
			name:         "workbook flag adds an xlsx output",
			fileName:     "july.csv",
			content:      punchReport,
			withWorkbook: true,
		},
		{
			name:          "report with no data rows",
			fileName:      "empty.csv",
			content:       emptyReport,
			wantErr:       true,
			errorContains: "no data rows",
		},
		{
			name:          "report missing required columns",
			fileName:      "shapeless.csv",
			content:       shapelessReport,
			wantErr:       true,
			errorContains: "required columns missing",
		},
		{
			name:          "unsupported file format",
			fileName:      "notes.txt",
			content:       "not a punch report",
			wantErr:       true,
			errorContains: "unsupported report format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inDir := t.TempDir()
			outDir := t.TempDir()
			report := writeReport(t, inDir, tt.fileName, tt.content)

			pipeline := dataprocessing.NewPipeline(testLogger(), dataprocessing.DefaultRuleConfig())
			attendanceExporter := exporter.NewAttendanceExporter(testPaths(t))
			workbookBuilder := exporter.NewWorkbookBuilder(testLogger())

			outcome := processReport(context.Background(), pipeline, attendanceExporter,
				workbookBuilder, 2, tt.withWorkbook, outDir, report)

			assert.Equal(t, tt.fileName, outcome.Name)

			if tt.wantErr {
				require.Error(t, outcome.Err)
				assert.Contains(t, outcome.Err.Error(), tt.errorContains)
				return
			}
			require.NoError(t, outcome.Err)

			base := "july"
			assert.Equal(t, 3, outcome.Stats.RowsIn)
			assert.FileExists(t, filepath.Join(outDir, base+"_attendance.csv"))
			assert.FileExists(t, filepath.Join(outDir, base+"_summary.csv"))

			if tt.withWorkbook {
				workbookPath := filepath.Join(outDir, base+"_attendance.xlsx")
				assert.FileExists(t, workbookPath)
				info, err := os.Stat(workbookPath)
				require.NoError(t, err)
				assert.Greater(t, info.Size(), int64(0))
			} else {
				assert.NoFileExists(t, filepath.Join(outDir, base+"_attendance.xlsx"))
			}
		})
	}
}

func TestProcessReportAttendanceCSVContent(t *testing.T) {
	inDir := t.TempDir()
	outDir := t.TempDir()
	report := writeReport(t, inDir, "cycle.csv", punchReport)

	pipeline := dataprocessing.NewPipeline(testLogger(), dataprocessing.DefaultRuleConfig())
	attendanceExporter := exporter.NewAttendanceExporter(testPaths(t))
	workbookBuilder := exporter.NewWorkbookBuilder(testLogger())

	outcome := processReport(context.Background(), pipeline, attendanceExporter,
		workbookBuilder, 2, false, outDir, report)
	require.NoError(t, outcome.Err)

	file, err := os.Open(filepath.Join(outDir, "cycle_attendance.csv"))
	require.NoError(t, err)
	defer file.Close()

	reader := csv.NewReader(file)
	rows, err := reader.ReadAll()
	require.NoError(t, err)

	// Header plus one row per punch record
	require.Len(t, rows, 4)
	assert.Len(t, rows[0], len(exporter.RecordHeaders()))

	raw, err := os.ReadFile(filepath.Join(outDir, "cycle_attendance.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "E100")
	assert.Contains(t, string(raw), "Maya Iqbal")
}

func TestProcessReportsConcurrently(t *testing.T) {
	inDir := t.TempDir()
	outDir := t.TempDir()

	const numReports = 5
	reports := make([]files.FileInfo, 0, numReports)
	for i := 0; i < numReports; i++ {
		name := fmt.Sprintf("report_%d.csv", i)
		reports = append(reports, writeReport(t, inDir, name, punchReport))
	}

	pipeline := dataprocessing.NewPipeline(testLogger(), dataprocessing.DefaultRuleConfig())
	attendanceExporter := exporter.NewAttendanceExporter(testPaths(t))
	workbookBuilder := exporter.NewWorkbookBuilder(testLogger())

	outcomes := make([]reportOutcome, numReports)
	done := make(chan bool, numReports)
	for i, report := range reports {
		i, report := i, report
		go func() {
			defer func() { done <- true }()
			outcomes[i] = processReport(context.Background(), pipeline, attendanceExporter,
				workbookBuilder, 2, false, outDir, report)
		}()
	}
	for i := 0; i < numReports; i++ {
		<-done
	}

	for i, outcome := range outcomes {
		require.NoError(t, outcome.Err, "report %d", i)
		assert.Equal(t, 3, outcome.Stats.RowsIn)
	}

	// Two CSV outputs per report
	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Len(t, entries, numReports*2)
}

func TestEmptyInputDirectoryFallback(t *testing.T) {
	outDir := t.TempDir()

	validator := validation.NewFileValidator(testLogger())
	summaryPath := filepath.Join(outDir, "combined_summary.csv")
	require.NoError(t, validator.CreateEmptyCSV(summaryPath, exporter.SummaryHeaders()))

	file, err := os.Open(summaryPath)
	require.NoError(t, err)
	defer file.Close()

	reader := csv.NewReader(file)
	rows, err := reader.ReadAll()
	require.NoError(t, err)

	// Header only, no data rows
	require.Len(t, rows, 1)
	assert.Equal(t, exporter.SummaryHeaders(), rows[0])
}
