package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "attendcli/internal/errors"
	"attendcli/internal/services"
	"attendcli/internal/validation"
	v1 "attendcli/pkg/contracts/api/v1"
)

// uploadFormField is the multipart field carrying the punch report.
const uploadFormField = "file"

// AttendanceHandler handles attendance processing HTTP requests with RFC 7807 compliance
type AttendanceHandler struct {
	service        AttendanceServiceInterface
	validator      *validation.FileValidator
	requests       *validation.RequestValidator
	queryParams    *validation.QueryParamValidator
	maxUploadBytes int64
	logger         *slog.Logger
	errorHandler   *apierrors.ErrorHandler
}

// NewAttendanceHandler creates a new attendance handler with RFC 7807 error handling
func NewAttendanceHandler(service AttendanceServiceInterface, maxUploadBytes int64, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *AttendanceHandler {
	return &AttendanceHandler{
		service:        service,
		validator:      validation.NewFileValidator(logger),
		requests:       validation.NewRequestValidator(logger),
		queryParams:    validation.NewQueryParamValidator(logger, errorHandler),
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With(slog.String("component", "attendance_handler")),
		errorHandler:   errorHandler,
	}
}

// Routes returns the attendance routes with proper Chi patterns
func (h *AttendanceHandler) Routes() chi.Router {
	r := chi.NewRouter()

	// Use render for consistent JSON responses
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/upload", h.Upload)
	r.Get("/results", h.ListResults)
	r.Get("/rules", h.Rules)

	// Sub-resource routes
	r.Route("/results/{id}", func(r chi.Router) {
		r.Use(h.ResultCtx) // Validate result identifier
		r.Get("/download", h.Download)
	})

	return r
}

// ResultCtx middleware validates the result identifier parameter
func (h *AttendanceHandler) ResultCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("id", "Result identifier is required"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Upload handles POST /api/attendance/upload with RFC 7807 errors
func (h *AttendanceHandler) Upload(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	// Bound the body before any multipart parsing touches it
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}

	file, header, err := r.FormFile(uploadFormField)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.errorHandler.HandleError(w, r, apierrors.ErrUploadTooLarge)
			return
		}

		h.logger.WarnContext(r.Context(), "upload without report file",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation(uploadFormField, "A punch report file is required"))
		return
	}
	defer file.Close()

	uploadReq := v1.UploadRequest{
		Filename:  header.Filename,
		SizeBytes: header.Size,
	}
	if err := h.requests.ValidateStruct(uploadReq); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	if err := h.validator.ValidateUploadName(header.Filename); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.UnsupportedUploadError(header.Filename))
		return
	}
	if err := h.validator.ValidateUploadSize(header.Size, h.maxUploadBytes); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrUploadTooLarge)
		return
	}

	h.logger.InfoContext(r.Context(), "processing uploaded report",
		slog.String("request_id", reqID),
		slog.String("filename", header.Filename),
		slog.Int64("size_bytes", header.Size),
	)

	result, err := h.service.ProcessUpload(r.Context(), file, header.Filename, header.Size)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to process upload",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
			slog.String("filename", header.Filename),
		)

		// Report-shape failures carry extensions the generic handler cannot render
		var missingErr *apierrors.MissingColumnsError
		if errors.As(err, &missingErr) || errors.Is(err, apierrors.ErrReportEmpty) || errors.Is(err, apierrors.ErrReportFormat) {
			render.Render(w, r, apierrors.MapReportError(err, reqID))
			return
		}

		// Map service errors to API errors
		if errors.Is(err, services.ErrInvalidInput) {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation(uploadFormField, err.Error()))
			return
		}

		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   result,
	})
}

// ListResults handles GET /api/attendance/results with RFC 7807 errors
func (h *AttendanceHandler) ListResults(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	// limit=0 means no limit
	limit, ok := h.queryParams.ValidateInt(w, r, "limit", 1, 500, 0)
	if !ok {
		return
	}
	order, ok := h.queryParams.ValidateEnum(w, r, "order", []string{"newest", "oldest"}, "newest")
	if !ok {
		return
	}

	h.logger.InfoContext(r.Context(), "listing stored results",
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	results, err := h.service.ListResults(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list results",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)
		h.errorHandler.HandleError(w, r, err)
		return
	}

	// Service returns newest first
	if order == "oldest" {
		for i, j := 0, len(results)-1; i < j; i, j = i+1, j-1 {
			results[i], results[j] = results[j], results[i]
		}
	}
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	// Success response
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   results,
		"count":  len(results),
	})
}

// Download handles GET /api/attendance/results/{id}/download with RFC 7807 errors
func (h *AttendanceHandler) Download(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())
	id := chi.URLParam(r, "id")

	h.logger.InfoContext(r.Context(), "downloading result workbook",
		slog.String("request_id", reqID),
		slog.String("result_id", id),
	)

	// Let service handle the download (it writes directly to response)
	if err := h.service.DownloadResult(r.Context(), w, r, id); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to download result",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
			slog.String("result_id", id),
		)

		// Only handle error if response not yet written
		if !isResponseWritten(w) {
			if errors.Is(err, services.ErrInvalidResultID) {
				h.errorHandler.HandleError(w, r, apierrors.ErrValidation("id", "Invalid result identifier"))
				return
			}

			if errors.Is(err, apierrors.ErrResultMissing) {
				h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
					http.StatusNotFound,
					"RESULT_NOT_FOUND",
					fmt.Sprintf("Result '%s' not found", id),
					map[string]interface{}{
						"result_id": id,
					},
				))
				return
			}

			h.errorHandler.HandleError(w, r, err)
		}
	}
}

// Rules handles GET /api/attendance/rules with RFC 7807 errors
func (h *AttendanceHandler) Rules(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   h.service.Rules(r.Context()),
	})
}

// isResponseWritten checks if response has already been written
func isResponseWritten(w http.ResponseWriter) bool {
	// Check if writer is a wrapped response writer with status
	if ww, ok := w.(interface{ Status() int }); ok {
		return ww.Status() != 0
	}
	return false
}
