package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

// Common error types following RFC 7807
const (
	TypeValidation       = "/errors/validation"
	TypeNotFound         = "/errors/not-found"
	TypeUnauthorized     = "/errors/unauthorized"
	TypeForbidden        = "/errors/forbidden"
	TypeRateLimit        = "/errors/rate-limit"
	TypeInternal         = "/errors/internal"
	TypeServiceDown      = "/errors/service-unavailable"
	TypeTimeout          = "/errors/timeout"
	TypeConflict         = "/errors/conflict"
	TypePayloadTooLarge  = "/errors/payload-too-large"
	TypeMethodNotAllowed = "/errors/method-not-allowed"
)

// Domain-specific error types
const (
	TypeReportShape    = "/errors/report/missing-columns"
	TypeReportEmpty    = "/errors/report/empty"
	TypeReportFormat   = "/errors/report/unsupported-format"
	TypeResultNotFound = "/errors/results/not-found"
	TypeProcessing     = "/errors/processing/failed"
)

// ErrorHandler provides centralized error handling
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	return &ErrorHandler{
		logger:       logger.With(slog.String("component", "error_handler")),
		includeStack: includeStack,
	}
}

// HandleError converts any error to RFC 7807 format and responds
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	// Get request ID for tracing
	reqID := middleware.GetReqID(r.Context())

	// Log the error with full context
	h.logger.ErrorContext(r.Context(), "request failed",
		slog.String("error", err.Error()),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("remote_addr", r.RemoteAddr),
	)

	// Convert to problem details
	problem := h.ErrorToProblem(err, r)
	problem.WithExtension("trace_id", reqID)

	// Add stack trace in development
	if h.includeStack {
		problem.WithExtension("stack", getStackTrace())
	}

	// Render the error response
	render.Render(w, r, problem)
}

// ErrorToProblem converts an error to RFC 7807 Problem Details
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	// Check for context errors first
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewProblemDetails(
			http.StatusGatewayTimeout,
			TypeTimeout,
			"Request Timeout",
			"The request took too long to process and was cancelled",
			r.URL.Path,
		)
	}

	// Check for our custom API errors
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return h.apiErrorToProblem(apiErr, r)
	}

	// Report-shape errors carry the missing column names
	var missingErr *MissingColumnsError
	if errors.As(err, &missingErr) {
		return NewProblemDetails(
			http.StatusUnprocessableEntity,
			TypeReportShape,
			"Report Missing Required Columns",
			missingErr.Error(),
			r.URL.Path,
		).WithExtension("missing_columns", missingErr.Columns)
	}

	// Domain-specific error handling. Sentinel checks run before the
	// AppError branch so a typed error wrapping a sentinel keeps the
	// sentinel's mapping.
	var appErr *AppError
	switch {
	case errors.Is(err, ErrReportEmpty):
		return NewProblemDetails(
			http.StatusUnprocessableEntity,
			TypeReportEmpty,
			"Empty Report",
			"The uploaded report contains no data rows to process",
			r.URL.Path,
		)

	case errors.Is(err, ErrReportFormat):
		return NewProblemDetails(
			http.StatusBadRequest,
			TypeReportFormat,
			"Unsupported Report Format",
			"Only .csv and .xlsx attendance reports are supported",
			r.URL.Path,
		)

	case errors.Is(err, ErrResultMissing):
		return NewProblemDetails(
			http.StatusNotFound,
			TypeResultNotFound,
			"Result Not Found",
			err.Error(),
			r.URL.Path,
		)

	case errors.As(err, &appErr):
		return h.appErrorToProblem(appErr, r)

	case strings.Contains(err.Error(), "not found"):
		return NewProblemDetails(
			http.StatusNotFound,
			TypeNotFound,
			"Resource Not Found",
			err.Error(),
			r.URL.Path,
		)

	case strings.Contains(err.Error(), "unauthorized"):
		return NewProblemDetails(
			http.StatusUnauthorized,
			TypeUnauthorized,
			"Unauthorized",
			"Authentication required to access this resource",
			r.URL.Path,
		)

	case strings.Contains(err.Error(), "forbidden"):
		return NewProblemDetails(
			http.StatusForbidden,
			TypeForbidden,
			"Forbidden",
			"You don't have permission to access this resource",
			r.URL.Path,
		)

	case strings.Contains(err.Error(), "rate limit"):
		return NewProblemDetails(
			http.StatusTooManyRequests,
			TypeRateLimit,
			"Rate Limit Exceeded",
			"Too many requests. Please try again later.",
			r.URL.Path,
		).WithExtension("retry_after", 60)

	case strings.Contains(err.Error(), "conflict"):
		return NewProblemDetails(
			http.StatusConflict,
			TypeConflict,
			"Conflict",
			err.Error(),
			r.URL.Path,
		)

	case strings.Contains(err.Error(), "payload too large"):
		return NewProblemDetails(
			http.StatusRequestEntityTooLarge,
			TypePayloadTooLarge,
			"Payload Too Large",
			"The request body exceeds the maximum allowed size",
			r.URL.Path,
		)

	default:
		// Generic internal error
		return NewProblemDetails(
			http.StatusInternalServerError,
			TypeInternal,
			"Internal Server Error",
			"An unexpected error occurred while processing your request",
			r.URL.Path,
		)
	}
}

// apiErrorToProblem converts APIError to ProblemDetails
func (h *ErrorHandler) apiErrorToProblem(apiErr *APIError, r *http.Request) *ProblemDetails {
	// Map error codes to problem types
	problemType := TypeInternal
	switch apiErr.ErrorCode {
	case "VALIDATION_FAILED":
		problemType = TypeValidation
	case "NOT_FOUND", "RESULT_NOT_FOUND", "REPORT_NOT_FOUND":
		problemType = TypeNotFound
	case "REPORT_SHAPE_INVALID":
		problemType = TypeReportShape
	case "UNSUPPORTED_UPLOAD":
		problemType = TypeReportFormat
	case "UPLOAD_TOO_LARGE":
		problemType = TypePayloadTooLarge
	case "PROCESSING_FAILED":
		problemType = TypeProcessing
	case "CONFLICT":
		problemType = TypeConflict
	case "RATE_LIMIT_EXCEEDED":
		problemType = TypeRateLimit
	case "SERVICE_UNAVAILABLE":
		problemType = TypeServiceDown
	}

	problem := NewProblemDetails(
		apiErr.StatusCode,
		problemType,
		http.StatusText(apiErr.StatusCode),
		apiErr.Message,
		r.URL.Path,
	).WithExtension("error_code", apiErr.ErrorCode)

	// Add details if present
	if apiErr.Details != nil {
		problem.WithExtension("details", apiErr.Details)
	}

	return problem
}

// appErrorToProblem converts a typed AppError to ProblemDetails. Client-side
// kinds echo the error message; server-side kinds keep a generic detail.
func (h *ErrorHandler) appErrorToProblem(appErr *AppError, r *http.Request) *ProblemDetails {
	var problem *ProblemDetails

	switch appErr.Type {
	case ErrTypeValidation:
		problem = NewProblemDetails(
			http.StatusBadRequest,
			TypeValidation,
			"Validation Failed",
			appErr.Message,
			r.URL.Path,
		)
	case ErrTypeNotFound:
		problem = NewProblemDetails(
			http.StatusNotFound,
			TypeNotFound,
			"Resource Not Found",
			appErr.Message,
			r.URL.Path,
		)
	case ErrTypeParsing:
		problem = NewProblemDetails(
			http.StatusUnprocessableEntity,
			TypeProcessing,
			"Report Processing Failed",
			appErr.Message,
			r.URL.Path,
		)
	case ErrTypeProcessing:
		problem = NewProblemDetails(
			http.StatusInternalServerError,
			TypeProcessing,
			"Processing Failed",
			"The report could not be processed",
			r.URL.Path,
		)
	default:
		problem = NewProblemDetails(
			http.StatusInternalServerError,
			TypeInternal,
			"Internal Server Error",
			"An unexpected error occurred while processing your request",
			r.URL.Path,
		)
	}

	problem.WithExtension("error_type", string(appErr.Type))
	if len(appErr.Context) > 0 {
		problem.WithExtension("context", appErr.Context)
	}
	return problem
}

// NotFound returns a standard 404 error
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusNotFound,
		TypeNotFound,
		"Not Found",
		"The requested resource was not found",
		r.URL.Path,
	).WithExtension("trace_id", middleware.GetReqID(r.Context()))

	render.Render(w, r, problem)
}

// MethodNotAllowed returns a standard 405 error
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusMethodNotAllowed,
		TypeMethodNotAllowed,
		"Method Not Allowed",
		fmt.Sprintf("Method %s is not allowed for this endpoint", r.Method),
		r.URL.Path,
	).WithExtension("trace_id", middleware.GetReqID(r.Context()))

	render.Render(w, r, problem)
}

// getStackTrace returns the current stack trace
func getStackTrace() string {
	buf := make([]byte, 1024*8)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}
