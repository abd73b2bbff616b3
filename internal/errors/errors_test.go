package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(http.StatusBadRequest, "TEST_ERROR", "test message")

	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	assert.Equal(t, "TEST_ERROR", err.ErrorCode)
	assert.Equal(t, "test message", err.Message)
	assert.Nil(t, err.Details)
	assert.Equal(t, "test message", err.Error())
}

func TestNewWithDetails(t *testing.T) {
	details := map[string]string{"field": "employee_id"}
	err := NewWithDetails(http.StatusUnprocessableEntity, "REPORT_SHAPE_INVALID", "missing columns", details)

	assert.Equal(t, http.StatusUnprocessableEntity, err.StatusCode)
	assert.Equal(t, details, err.Details)
}

func TestAPIErrorRender(t *testing.T) {
	err := New(http.StatusNotFound, "NOT_FOUND", "missing")

	r := httptest.NewRequest(http.MethodGet, "/api/attendance/results/abc", nil)
	w := httptest.NewRecorder()

	require.NoError(t, err.Render(w, r))
}

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *APIError
		wantStatus int
		wantCode   string
	}{
		{"invalid request", ErrInvalidRequest, http.StatusBadRequest, "INVALID_REQUEST"},
		{"validation failed", ErrValidationFailed, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"unsupported upload", ErrUnsupportedUpload, http.StatusBadRequest, "UNSUPPORTED_UPLOAD"},
		{"not found", ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"result not found", ErrResultNotFound, http.StatusNotFound, "RESULT_NOT_FOUND"},
		{"upload too large", ErrUploadTooLarge, http.StatusRequestEntityTooLarge, "UPLOAD_TOO_LARGE"},
		{"report shape", ErrReportShape, http.StatusUnprocessableEntity, "REPORT_SHAPE_INVALID"},
		{"rate limit", ErrRateLimitExceeded, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED"},
		{"internal server", ErrInternalServer, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
		{"processing failed", ErrProcessingFailed, http.StatusInternalServerError, "PROCESSING_FAILED"},
		{"service unavailable", ErrServiceUnavailable, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, tt.err.StatusCode)
			assert.Equal(t, tt.wantCode, tt.err.ErrorCode)
			assert.NotEmpty(t, tt.err.Message)
		})
	}
}

func TestErrValidation(t *testing.T) {
	err := ErrValidation("employee_id", "Employee ID is required")

	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", err.ErrorCode)

	ve, ok := err.Details.(ValidationError)
	require.True(t, ok)
	assert.Equal(t, "employee_id", ve.Field)
	assert.Equal(t, "Employee ID is required", ve.Message)
}

func TestReportShapeError(t *testing.T) {
	err := ReportShapeError([]string{"employee_id", "attendance_status"})

	assert.Equal(t, http.StatusUnprocessableEntity, err.StatusCode)
	assert.Equal(t, "REPORT_SHAPE_INVALID", err.ErrorCode)

	missing, ok := err.Details.([]string)
	require.True(t, ok)
	assert.Equal(t, []string{"employee_id", "attendance_status"}, missing)
}

func TestUnsupportedUploadError(t *testing.T) {
	err := UnsupportedUploadError("report.pdf")

	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	assert.Equal(t, "UNSUPPORTED_UPLOAD", err.ErrorCode)
	assert.Equal(t, "report.pdf", err.Details)
}

func TestProcessingError(t *testing.T) {
	cause := errors.New("cycle counter overflow")
	err := ProcessingError(cause)

	assert.Equal(t, http.StatusInternalServerError, err.StatusCode)
	assert.Equal(t, "PROCESSING_FAILED", err.ErrorCode)
	assert.Equal(t, cause.Error(), err.Details)
}

func TestFileSystemError(t *testing.T) {
	err := FileSystemError("workbook write", errors.New("disk full"))

	assert.Equal(t, http.StatusInternalServerError, err.StatusCode)
	assert.Contains(t, err.Message, "workbook write")
	assert.Equal(t, "disk full", err.Details)
}

func TestNewValidationErrors(t *testing.T) {
	err := NewValidationErrors([]ValidationError{
		{Field: "file", Message: "file is required"},
		{Field: "format", Message: "unsupported format"},
	})

	ve, ok := err.Details.(ValidationErrors)
	require.True(t, ok)
	assert.Len(t, ve.Errors, 2)
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, ErrResultNotFound)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "RESULT_NOT_FOUND", resp.Error.ErrorCode)
}

func TestAppError(t *testing.T) {
	tests := []struct {
		name    string
		err     *AppError
		wantMsg string
	}{
		{
			name:    "with cause",
			err:     NewParsingError("failed to parse report", errors.New("bad header")),
			wantMsg: "[PARSING] failed to parse report: bad header",
		},
		{
			name:    "without cause",
			err:     NewAppValidationError("invalid upload"),
			wantMsg: "[VALIDATION] invalid upload",
		},
		{
			name:    "not found",
			err:     NewNotFoundError("result"),
			wantMsg: "[NOT_FOUND] result not found",
		},
		{
			name:    "processing",
			err:     NewProcessingError("rule evaluation failed", errors.New("nil record")),
			wantMsg: "[PROCESSING] rule evaluation failed: nil record",
		},
		{
			name:    "config",
			err:     NewConfigError("invalid grace allowance", nil),
			wantMsg: "[CONFIG] invalid grace allowance",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, tt.err.Error())
		})
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewStorageError("failed to save workbook", cause)

	assert.True(t, errors.Is(err, cause))

	var appErr *AppError
	assert.True(t, errors.As(fmt.Errorf("wrapped: %w", err), &appErr))
	assert.Equal(t, ErrTypeStorage, appErr.Type)
}

func TestAppErrorWithContext(t *testing.T) {
	err := NewParsingError("failed to parse row", nil).
		WithContext("row", 42).
		WithContext("file", "july.csv")

	assert.Equal(t, 42, err.Context["row"])
	assert.Equal(t, "july.csv", err.Context["file"])
}
