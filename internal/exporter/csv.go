package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"attendcli/internal/config"
)

// utf8BOM lets Excel detect UTF-8 in exported CSVs.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter writes attendance CSV outputs. Relative paths land in the
// reports directory; absolute paths are used as given.
type CSVWriter struct {
	paths *config.Paths
}

// NewCSVWriter creates a new CSV writer instance.
func NewCSVWriter(paths *config.Paths) *CSVWriter {
	return &CSVWriter{paths: paths}
}

// WriteSimpleCSV writes headers and records to a BOM-prefixed CSV,
// replacing any existing file.
func (w *CSVWriter) WriteSimpleCSV(filePath string, headers []string, records [][]string) error {
	fullPath := w.resolvePath(filePath)

	slog.Info("Writing CSV file",
		slog.String("path", fullPath),
		slog.Int("record_count", len(records)))

	file, err := w.createFile(fullPath)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if len(headers) > 0 {
		if err := writer.Write(headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}
	for i, record := range records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// StreamWriter writes one CSV row at a time, for record tables too large
// to hold as [][]string.
type StreamWriter struct {
	file   *os.File
	writer *csv.Writer
}

// CreateStreamWriter opens a BOM-prefixed CSV with the header row written,
// ready for WriteRecord calls.
func (w *CSVWriter) CreateStreamWriter(filePath string, headers []string) (*StreamWriter, error) {
	fullPath := w.resolvePath(filePath)

	slog.Info("Creating CSV stream writer",
		slog.String("path", fullPath),
		slog.Int("header_count", len(headers)))

	file, err := w.createFile(fullPath)
	if err != nil {
		return nil, err
	}

	writer := csv.NewWriter(file)
	if len(headers) > 0 {
		if err := writer.Write(headers); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write headers: %w", err)
		}
	}

	return &StreamWriter{
		file:   file,
		writer: writer,
	}, nil
}

// WriteRecord appends a single row.
func (s *StreamWriter) WriteRecord(record []string) error {
	return s.writer.Write(record)
}

// Close flushes and closes the underlying file.
func (s *StreamWriter) Close() error {
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}

// createFile makes the parent directory, truncates the target and writes
// the BOM.
func (w *CSVWriter) createFile(fullPath string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := file.Write(utf8BOM); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to write BOM: %w", err)
	}
	return file, nil
}

func (w *CSVWriter) resolvePath(filePath string) string {
	if filepath.IsAbs(filePath) {
		return filePath
	}
	return w.paths.GetReportPath(filePath)
}
