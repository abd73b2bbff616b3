package http

import (
	"context"
	"io"
	"net/http"

	"attendcli/internal/services"
)

// AttendanceServiceInterface defines the interface for attendance operations
type AttendanceServiceInterface interface {
	ProcessUpload(ctx context.Context, r io.Reader, filename string, size int64) (*services.UploadResult, error)
	ListResults(ctx context.Context) ([]services.StoredResult, error)
	DownloadResult(ctx context.Context, w http.ResponseWriter, r *http.Request, id string) error
	Rules(ctx context.Context) services.RuleSettings
}
