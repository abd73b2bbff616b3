package validation

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// FileValidator checks report files and directories before processing
// touches them. Both the batch processor and the upload handler share one
// instance.
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

// ValidateInputDirectory checks that the input directory exists and logs
// how many punch reports it holds. An empty directory is not an error;
// the caller decides what an empty batch means.
func (v *FileValidator) ValidateInputDirectory(dir string) error {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		v.logger.Error("Input directory does not exist",
			slog.String("directory", dir))
		return fmt.Errorf("input directory %s does not exist", dir)
	}
	if err != nil {
		v.logger.Error("Failed to stat input directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to stat directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		v.logger.Error("Input path is not a directory",
			slog.String("path", dir))
		return fmt.Errorf("%s is not a directory", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		v.logger.Error("Failed to read input directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	reports := 0
	for _, entry := range entries {
		if !entry.IsDir() && isReportName(entry.Name()) {
			reports++
		}
	}
	if reports == 0 {
		v.logger.Warn("No punch reports in input directory",
			slog.String("directory", dir))
		return nil
	}

	v.logger.Info("Input directory validated",
		slog.String("directory", dir),
		slog.Int("reports_found", reports))
	return nil
}

// ValidateOutputDirectory ensures the output directory exists and is
// writable, creating it if needed.
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	probe, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	probe.Close()
	os.Remove(probe.Name())

	v.logger.Info("Output directory validated",
		slog.String("directory", dir))
	return nil
}

// ValidateFile checks that a path names a readable regular file.
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist",
			slog.String("file", path))
		return fmt.Errorf("file %s does not exist", path)
	}
	if err != nil {
		v.logger.Error("Failed to stat file",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		v.logger.Error("Path is a directory, not a file",
			slog.String("path", path))
		return fmt.Errorf("%s is a directory, not a file", path)
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// CreateEmptyCSV writes a CSV containing only the given header row. The
// batch processor uses it so an empty input batch still produces a valid
// combined summary for downstream consumers.
func (v *FileValidator) CreateEmptyCSV(path string, headers []string) error {
	if err := v.ValidateOutputDirectory(filepath.Dir(path)); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		v.logger.Error("Failed to create empty CSV",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create CSV %s: %w", path, err)
	}
	defer file.Close()

	if len(headers) > 0 {
		w := csv.NewWriter(file)
		if err := w.Write(headers); err != nil {
			v.logger.Error("Failed to write CSV headers",
				slog.String("file", path),
				slog.String("error", err.Error()))
			return fmt.Errorf("failed to write headers: %w", err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}

	v.logger.Info("Created empty CSV file",
		slog.String("file", path),
		slog.Int("headers", len(headers)))
	return nil
}
