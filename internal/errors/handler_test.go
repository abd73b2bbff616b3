package errors

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(includeStack bool) *ErrorHandler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewErrorHandler(logger, includeStack)
}

func decodeProblem(t *testing.T, body []byte) map[string]interface{} {
	t.Helper()
	var problem map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &problem))
	return problem
}

func TestHandleErrorAPIError(t *testing.T) {
	h := newTestHandler(false)

	r := httptest.NewRequest(http.MethodGet, "/api/attendance/results/xyz", nil)
	w := httptest.NewRecorder()

	h.HandleError(w, r, ErrResultNotFound)

	assert.Equal(t, http.StatusNotFound, w.Code)

	problem := decodeProblem(t, w.Body.Bytes())
	assert.Equal(t, TypeNotFound, problem["type"])
	assert.Equal(t, "RESULT_NOT_FOUND", problem["error_code"])
	assert.Equal(t, "/api/attendance/results/xyz", problem["instance"])
}

func TestHandleErrorNil(t *testing.T) {
	h := newTestHandler(false)

	r := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()

	h.HandleError(w, r, nil)

	// Nothing written
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestErrorToProblem(t *testing.T) {
	h := newTestHandler(false)
	r := httptest.NewRequest(http.MethodPost, "/api/attendance/upload", nil)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{
			name:       "context deadline",
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
		},
		{
			name:       "context cancelled",
			err:        context.Canceled,
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
		},
		{
			name:       "empty report sentinel",
			err:        ErrReportEmpty,
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeReportEmpty,
		},
		{
			name:       "unsupported format sentinel",
			err:        ErrReportFormat,
			wantStatus: http.StatusBadRequest,
			wantType:   TypeReportFormat,
		},
		{
			name:       "result missing sentinel",
			err:        ErrResultMissing,
			wantStatus: http.StatusNotFound,
			wantType:   TypeResultNotFound,
		},
		{
			name:       "wrapped sentinel",
			err:        NewParsingError("reading report", ErrReportEmpty),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeReportEmpty,
		},
		{
			name:       "parsing error without sentinel",
			err:        NewParsingError("row 14 is malformed", nil),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeProcessing,
		},
		{
			name:       "typed validation error",
			err:        NewAppValidationError("report filename is empty"),
			wantStatus: http.StatusBadRequest,
			wantType:   TypeValidation,
		},
		{
			name:       "typed not found error",
			err:        NewNotFoundError("summary table"),
			wantStatus: http.StatusNotFound,
			wantType:   TypeNotFound,
		},
		{
			name:       "typed storage error",
			err:        NewStorageError("writing workbook", errors.New("disk full")),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeInternal,
		},
		{
			name:       "generic not found text",
			err:        errors.New("summary file not found"),
			wantStatus: http.StatusNotFound,
			wantType:   TypeNotFound,
		},
		{
			name:       "rate limit text",
			err:        errors.New("rate limit exceeded for client"),
			wantStatus: http.StatusTooManyRequests,
			wantType:   TypeRateLimit,
		},
		{
			name:       "unknown error",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			problem := h.ErrorToProblem(tt.err, r)
			assert.Equal(t, tt.wantStatus, problem.Status)
			assert.Equal(t, tt.wantType, problem.Type)
		})
	}
}

func TestErrorToProblemMissingColumns(t *testing.T) {
	h := newTestHandler(false)
	r := httptest.NewRequest(http.MethodPost, "/api/attendance/upload", nil)

	err := NewMissingColumnsError([]string{"employee_id", "punch_in"})
	problem := h.ErrorToProblem(err, r)

	assert.Equal(t, http.StatusUnprocessableEntity, problem.Status)
	assert.Equal(t, TypeReportShape, problem.Type)
	assert.Equal(t, []string{"employee_id", "punch_in"}, problem.Extensions["missing_columns"])
}

func TestAppErrorToProblemExtensions(t *testing.T) {
	h := newTestHandler(false)
	r := httptest.NewRequest(http.MethodPost, "/api/attendance/upload", nil)

	err := NewParsingError("row 14 is malformed", nil).WithContext("filename", "july.csv")
	problem := h.ErrorToProblem(err, r)

	assert.Equal(t, http.StatusUnprocessableEntity, problem.Status)
	assert.Equal(t, "row 14 is malformed", problem.Detail)
	assert.Equal(t, "PARSING", problem.Extensions["error_type"])

	ctx, ok := problem.Extensions["context"].(map[string]interface{})
	require.True(t, ok, "context extension should be a map")
	assert.Equal(t, "july.csv", ctx["filename"])

	// Server-side kinds never echo the wrapped cause
	storage := h.ErrorToProblem(NewStorageError("writing workbook", errors.New("disk full")), r)
	assert.NotContains(t, storage.Detail, "disk full")
}

func TestAPIErrorToProblemTypeMapping(t *testing.T) {
	h := newTestHandler(false)
	r := httptest.NewRequest(http.MethodGet, "/api/test", nil)

	tests := []struct {
		errorCode string
		wantType  string
	}{
		{"VALIDATION_FAILED", TypeValidation},
		{"NOT_FOUND", TypeNotFound},
		{"RESULT_NOT_FOUND", TypeNotFound},
		{"REPORT_SHAPE_INVALID", TypeReportShape},
		{"UNSUPPORTED_UPLOAD", TypeReportFormat},
		{"UPLOAD_TOO_LARGE", TypePayloadTooLarge},
		{"PROCESSING_FAILED", TypeProcessing},
		{"RATE_LIMIT_EXCEEDED", TypeRateLimit},
		{"SERVICE_UNAVAILABLE", TypeServiceDown},
		{"SOMETHING_ELSE", TypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.errorCode, func(t *testing.T) {
			apiErr := New(http.StatusBadRequest, tt.errorCode, "test")
			problem := h.apiErrorToProblem(apiErr, r)
			assert.Equal(t, tt.wantType, problem.Type)
			assert.Equal(t, tt.errorCode, problem.Extensions["error_code"])
		})
	}
}

func TestHandleErrorIncludesStack(t *testing.T) {
	h := newTestHandler(true)

	r := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	w := httptest.NewRecorder()

	h.HandleError(w, r, errors.New("boom"))

	problem := decodeProblem(t, w.Body.Bytes())
	assert.Contains(t, problem, "stack")
}

func TestNotFoundHandler(t *testing.T) {
	h := newTestHandler(false)

	r := httptest.NewRequest(http.MethodGet, "/api/unknown", nil)
	w := httptest.NewRecorder()

	h.NotFound(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
	problem := decodeProblem(t, w.Body.Bytes())
	assert.Equal(t, TypeNotFound, problem["type"])
}

func TestMethodNotAllowedHandler(t *testing.T) {
	h := newTestHandler(false)

	r := httptest.NewRequest(http.MethodDelete, "/api/attendance/upload", nil)
	w := httptest.NewRecorder()

	h.MethodNotAllowed(w, r)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	problem := decodeProblem(t, w.Body.Bytes())
	assert.Equal(t, TypeMethodNotAllowed, problem["type"])
	assert.Contains(t, problem["detail"], "DELETE")
}
