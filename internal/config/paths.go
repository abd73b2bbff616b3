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
	DataDir       string
	UploadsDir    string
	ResultsDir    string
	ReportsDir    string
	LogsDir       string
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

	exeDir := filepath.Dir(exe)

	// Directory structure:
	//   data/
	//     uploads/   (raw attendance reports received over HTTP)
	//     results/   (generated workbooks kept for download)
	//     reports/   (CSV reports from the batch processor)
	//   logs/
	dataDir := filepath.Join(exeDir, "data")

	paths := &Paths{
		ExecutableDir: exeDir,
		DataDir:       dataDir,
		UploadsDir:    filepath.Join(dataDir, "uploads"),
		ResultsDir:    filepath.Join(dataDir, "results"),
		ReportsDir:    filepath.Join(dataDir, "reports"),
		LogsDir:       filepath.Join(exeDir, "logs"),
	}

	return paths, nil
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.DataDir,
		p.UploadsDir,
		p.ResultsDir,
		p.ReportsDir,
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

// GetUploadPath returns the path for a received upload file
func (p *Paths) GetUploadPath(filename string) string {
	return filepath.Join(p.UploadsDir, filename)
}

// GetResultPath returns the path for a generated workbook
func (p *Paths) GetResultPath(filename string) string {
	return filepath.Join(p.ResultsDir, filename)
}

// GetReportPath returns the path for a report file
func (p *Paths) GetReportPath(filename string) string {
	return filepath.Join(p.ReportsDir, filename)
}

// GetLogPath returns the path for a log file
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// GetDatedResultPath returns the workbook path for a processing run started
// at the given time, e.g. attendance_20240522_104500.xlsx.
func (p *Paths) GetDatedResultPath(t time.Time) string {
	filename := fmt.Sprintf("attendance_%s.xlsx", t.Format("20060102_150405"))
	return filepath.Join(p.ResultsDir, filename)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
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
			slog.String("uploads", p.UploadsDir),
			slog.String("results", p.ResultsDir),
			slog.String("reports", p.ReportsDir),
			slog.String("logs", p.LogsDir),
		))
}
