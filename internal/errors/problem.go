package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/render"
)

// Report-processing errors (using errors package for sentinel errors)
var (
	ErrReportEmpty       = errors.New("report contains no data rows")
	ErrReportFormat      = errors.New("unsupported report format")
	ErrProcessingNothing = errors.New("no processing result available")
	ErrResultMissing     = errors.New("processing result not found")
)

// MissingColumnsError reports required report columns that could not be matched
// after header normalization.
type MissingColumnsError struct {
	Columns []string
}

// Error implements the error interface
func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("required columns missing: %s", strings.Join(e.Columns, ", "))
}

// NewMissingColumnsError creates a missing columns error
func NewMissingColumnsError(columns []string) *MissingColumnsError {
	return &MissingColumnsError{Columns: columns}
}

// ProblemDetails implements RFC 7807 Problem Details for HTTP APIs
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	// Additional fields for extensibility
	Extensions map[string]interface{} `json:"-"`
}

// Render implements the render.Renderer interface
func (pd *ProblemDetails) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, pd.Status)
	return nil
}

// MarshalJSON custom marshaler to include extensions
func (pd *ProblemDetails) MarshalJSON() ([]byte, error) {
	data := make(map[string]interface{})

	data["type"] = pd.Type
	data["title"] = pd.Title
	data["status"] = pd.Status

	if pd.Detail != "" {
		data["detail"] = pd.Detail
	}
	if pd.Instance != "" {
		data["instance"] = pd.Instance
	}

	for k, v := range pd.Extensions {
		data[k] = v
	}

	return json.Marshal(data)
}

// NewProblemDetails creates a new RFC 7807 compliant error
func NewProblemDetails(status int, problemType, title, detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:       problemType,
		Title:      title,
		Status:     status,
		Detail:     detail,
		Instance:   instance,
		Extensions: make(map[string]interface{}),
	}
}

// WithExtension adds an extension field to the problem details
func (pd *ProblemDetails) WithExtension(key string, value interface{}) *ProblemDetails {
	pd.Extensions[key] = value
	return pd
}

// MapReportError maps report-processing errors to HTTP problem details
func MapReportError(err error, traceID string) render.Renderer {
	instance := fmt.Sprintf("/api/attendance#trace-%s", traceID)

	var missingErr *MissingColumnsError
	if errors.As(err, &missingErr) {
		return NewProblemDetails(
			http.StatusUnprocessableEntity,
			TypeReportShape,
			"Report Missing Required Columns",
			"The uploaded report does not contain all required columns after header normalization.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "REPORT_SHAPE_INVALID").
			WithExtension("missing_columns", missingErr.Columns)
	}

	switch {
	case errors.Is(err, ErrReportEmpty):
		return NewProblemDetails(
			http.StatusUnprocessableEntity,
			TypeReportEmpty,
			"Empty Report",
			"The uploaded report contains no data rows to process.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "REPORT_EMPTY")

	case errors.Is(err, ErrReportFormat):
		return NewProblemDetails(
			http.StatusBadRequest,
			TypeReportFormat,
			"Unsupported Report Format",
			"Only .csv and .xlsx attendance reports are supported.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "UNSUPPORTED_FORMAT").
			WithExtension("supported_formats", []string{".csv", ".xlsx"})

	case errors.Is(err, ErrResultMissing), errors.Is(err, ErrProcessingNothing):
		return NewProblemDetails(
			http.StatusNotFound,
			TypeResultNotFound,
			"Result Not Found",
			"No processing result is available for the requested identifier.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "RESULT_NOT_FOUND")

	default:
		return NewProblemDetails(
			http.StatusInternalServerError,
			TypeInternal,
			"Internal Server Error",
			"An unexpected error occurred while processing your request.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "INTERNAL_ERROR")
	}
}
