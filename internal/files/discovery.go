package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
	IsDir   bool
}

// ResultWorkbook describes a stored attendance workbook in the results
// directory, keyed by the run ID embedded in its filename.
type ResultWorkbook struct {
	ID string
	FileInfo
}

// Discovery provides file discovery operations
type Discovery struct {
	basePath string
}

// NewDiscovery creates a new file discovery instance
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

// FindExcelFiles finds all Excel files in the specified directory
func (d *Discovery) FindExcelFiles(dir string) ([]FileInfo, error) {
	// If dir is already absolute, use it directly
	fullPath := dir
	if !filepath.IsAbs(dir) {
		fullPath = filepath.Join(d.basePath, dir)
	}

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if strings.HasSuffix(strings.ToLower(name), ".xlsx") ||
			strings.HasSuffix(strings.ToLower(name), ".xls") {
			info, err := entry.Info()
			if err != nil {
				continue
			}

			files = append(files, FileInfo{
				Path:    filepath.Join(fullPath, name),
				Name:    name,
				Size:    info.Size(),
				ModTime: info.ModTime(),
				IsDir:   false,
			})
		}
	}

	// Sort by modification time (oldest first)
	sort.Slice(files, func(i, j int) bool {
		return files[i].ModTime.Before(files[j].ModTime)
	})

	return files, nil
}

// FindReportFiles finds all punch report files (.csv, .xlsx) in the specified
// directory, skipping Excel lock files, sorted by name for stable batch order.
func (d *Discovery) FindReportFiles(dir string) ([]FileInfo, error) {
	// If dir is already absolute, use it directly
	fullPath := dir
	if !filepath.IsAbs(dir) {
		fullPath = filepath.Join(d.basePath, dir)
	}

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if strings.HasPrefix(name, "~$") {
			continue
		}

		lower := strings.ToLower(name)
		if strings.HasSuffix(lower, ".csv") || strings.HasSuffix(lower, ".xlsx") {
			info, err := entry.Info()
			if err != nil {
				continue
			}

			files = append(files, FileInfo{
				Path:    filepath.Join(fullPath, name),
				Name:    name,
				Size:    info.Size(),
				ModTime: info.ModTime(),
				IsDir:   false,
			})
		}
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})

	return files, nil
}

// FindResultWorkbooks finds stored attendance workbooks
// (attendance_<id>.xlsx) in the specified directory, newest first.
func (d *Discovery) FindResultWorkbooks(dir string) ([]ResultWorkbook, error) {
	files, err := d.FindExcelFiles(dir)
	if err != nil {
		return nil, err
	}

	var results []ResultWorkbook
	for _, file := range files {
		if strings.HasPrefix(file.Name, "attendance_") && strings.HasSuffix(file.Name, ".xlsx") {
			// Extract run ID from filename: attendance_<id>.xlsx
			id := strings.TrimPrefix(file.Name, "attendance_")
			id = strings.TrimSuffix(id, ".xlsx")
			if id == "" {
				continue
			}
			results = append(results, ResultWorkbook{ID: id, FileInfo: file})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].ModTime.After(results[j].ModTime)
	})

	return results, nil
}
