package validation

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
)

// Extensions accepted for uploaded punch reports.
var supportedUploadExts = map[string]bool{
	".csv":  true,
	".xlsx": true,
}

// SupportedUploadExtensions returns the accepted report extensions in a
// stable order, for error messages and the rules endpoint.
func SupportedUploadExtensions() []string {
	return []string{".csv", ".xlsx"}
}

// isReportName reports whether a filename looks like a punch report:
// a supported extension and not an Office lock file.
func isReportName(name string) bool {
	if strings.HasPrefix(name, "~$") {
		return false
	}
	return supportedUploadExts[strings.ToLower(filepath.Ext(name))]
}

// ValidateUploadName checks that an uploaded filename carries a supported
// report extension and is not an Office lock file.
func (v *FileValidator) ValidateUploadName(filename string) error {
	base := filepath.Base(filename)
	if strings.HasPrefix(base, "~$") {
		v.logger.Warn("Rejecting temporary Excel upload",
			slog.String("filename", base))
		return fmt.Errorf("file %s is a temporary Excel file", base)
	}

	ext := strings.ToLower(filepath.Ext(base))
	if !supportedUploadExts[ext] {
		v.logger.Error("Unsupported upload extension",
			slog.String("filename", base),
			slog.String("extension", ext))
		return fmt.Errorf("unsupported report type %q (expected one of %s)",
			ext, strings.Join(SupportedUploadExtensions(), ", "))
	}

	return nil
}

// ValidateUploadSize checks a declared upload size against the configured
// limit. A zero or negative limit disables the check.
func (v *FileValidator) ValidateUploadSize(size, limit int64) error {
	if limit <= 0 {
		return nil
	}
	if size > limit {
		v.logger.Error("Upload exceeds size limit",
			slog.Int64("size", size),
			slog.Int64("limit", limit))
		return fmt.Errorf("upload of %d bytes exceeds limit of %d bytes", size, limit)
	}
	return nil
}

// ValidateReportFile checks that a file on disk is a readable punch report
// in one of the supported formats.
func (v *FileValidator) ValidateReportFile(path string) error {
	if err := v.ValidateUploadName(filepath.Base(path)); err != nil {
		return err
	}
	return v.ValidateFile(path)
}
