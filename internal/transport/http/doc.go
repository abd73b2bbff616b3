// Package http implements the chi request handlers for the attendance
// service. Handlers stay thin: they parse and validate the request, call the
// service layer, and render the response; every business decision lives
// below them.
//
// # Request Flow
//
// A typical request flows through these layers:
//
//	HTTP Request → Chi Router → Middleware → Handler → Service → Pipeline
//	                                              ↓
//	HTTP Response ← Handler ← Service Response ←─┘
//
// # Handler Structure
//
// Both handlers are structs built by a New* constructor, holding the service
// behind an interface plus a component-tagged logger; AttendanceHandler also
// carries the shared ErrorHandler and its validators. Failures route through
// ErrorHandler.HandleError (or render.Render for report-shape problems that
// carry extensions), successes through render.JSON, with render.Status set
// first for anything other than 200:
//
//	result, err := h.service.ProcessUpload(r.Context(), file, name, size)
//	if err != nil {
//	    h.errorHandler.HandleError(w, r, err)
//	    return
//	}
//	render.Status(r, http.StatusCreated)
//	render.JSON(w, r, map[string]interface{}{"status": "success", "data": result})
//
// # Error Handling
//
// All errors follow RFC 7807 Problem Details specification:
//
//	{
//	    "type": "/errors/report/missing-columns",
//	    "title": "Report Missing Required Columns",
//	    "status": 422,
//	    "detail": "required columns missing: employee_id, date",
//	    "instance": "/api/attendance/upload"
//	}
//
// # Upload Handling
//
// The attendance upload endpoint accepts multipart form data with a single
// "file" field carrying a .csv or .xlsx punch report. The body is bounded
// with http.MaxBytesReader before multipart parsing, the filename is
// validated, and the stream is handed to the service layer without being
// buffered to disk.
//
// # Route Assembly
//
// AttendanceHandler.Routes returns a chi.Router mounted under
// /api/attendance by the application container; the download sub-resource
// guards its {id} parameter with the ResultCtx middleware. Health endpoints
// are registered individually so each can sit in the short-timeout group.
//
// # Testing
//
// Handler tests run against httptest recorders with the attendance service
// replaced by a testify mock of AttendanceServiceInterface, asserting on
// status codes, problem documents, and the mock's recorded calls.
package http
