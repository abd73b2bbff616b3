package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"attendcli/internal/config"
	"attendcli/internal/dataprocessing"
	apierrors "attendcli/internal/errors"
	"attendcli/internal/exporter"
	"attendcli/internal/files"
	"attendcli/internal/infrastructure"
	"attendcli/pkg/contracts/domain"
	"attendcli/pkg/contracts/events"
)

// ProgressBroadcaster pushes processing lifecycle events to connected
// websocket clients. *websocket.Hub satisfies it; tests substitute a recorder.
type ProgressBroadcaster interface {
	BroadcastProcessingProgressWithTrace(progress events.ProcessingProgress, traceID string)
	BroadcastResultReady(result events.ResultReady, traceID string)
	BroadcastError(code, message, details, stage string, recoverable bool)
}

// AttendanceService runs the deduction engine over uploaded punch reports
// and manages the stored result workbooks.
type AttendanceService struct {
	config    *config.Config
	paths     *config.Paths
	rules     dataprocessing.RuleConfig
	builder   *exporter.WorkbookBuilder
	discovery *files.Discovery
	manager   *files.Manager
	hub       ProgressBroadcaster
	metrics   *infrastructure.BusinessMetrics
	logger    *slog.Logger
}

// UploadResult describes one stored processing run. The same fields are
// returned to the upload client and pushed over the websocket once the
// workbook is on disk.
type UploadResult struct {
	ResultID      string `json:"result_id"`
	DownloadURL   string `json:"download_url"`
	Rows          int    `json:"rows"`
	DeductionRows int    `json:"deduction_rows"`
	SummaryRows   int    `json:"summary_rows"`
}

// StoredResult describes one result workbook in the results directory.
type StoredResult struct {
	ID       string    `json:"id"`
	Filename string    `json:"filename"`
	Size     int64     `json:"size"`
	Created  time.Time `json:"created"`
}

// RuleSettings is the active engine policy as presented to API clients.
// Clock thresholds are formatted HH:MM:SS.
type RuleSettings struct {
	ShiftStart      string  `json:"shift_start"`
	GraceLimit      string  `json:"grace_limit"`
	FlexLimit       string  `json:"flex_limit"`
	GraceAllowance  int     `json:"grace_allowance"`
	FlexAllowance   int     `json:"flex_allowance"`
	ShortDayHours   float64 `json:"short_day_hours"`
	FullDayHours    float64 `json:"full_day_hours"`
	AverageHoursBar float64 `json:"average_hours_bar"`
	FlexForgiveness int     `json:"flex_forgiveness"`
	CycleShiftDays  int     `json:"cycle_shift_days"`
}

// NewAttendanceService creates an attendance service using default logger
func NewAttendanceService(cfg *config.Config, hub ProgressBroadcaster, metrics *infrastructure.BusinessMetrics) (*AttendanceService, error) {
	return NewAttendanceServiceWithLogger(cfg, hub, metrics, slog.Default())
}

// NewAttendanceServiceWithLogger creates an attendance service with a specific logger
func NewAttendanceServiceWithLogger(cfg *config.Config, hub ProgressBroadcaster, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) (*AttendanceService, error) {
	// Get the centralized paths
	paths, err := config.GetPaths()
	if err != nil {
		return nil, fmt.Errorf("failed to get paths: %w", err)
	}
	return NewAttendanceServiceWithPaths(cfg, paths, hub, metrics, logger)
}

// NewAttendanceServiceWithPaths creates an attendance service against an
// explicit path layout. Tests use this to run against temporary directories.
func NewAttendanceServiceWithPaths(cfg *config.Config, paths *config.Paths, hub ProgressBroadcaster, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) (*AttendanceService, error) {
	// Ensure we have a logger
	if logger == nil {
		logger = slog.Default()
	}

	rules, err := dataprocessing.RuleConfigFromProcessing(cfg.Processing)
	if err != nil {
		return nil, fmt.Errorf("failed to build rule configuration: %w", err)
	}

	// Log startup paths for visibility using injected logger
	logger.Info("AttendanceService initialized with paths",
		slog.String("uploads_dir", paths.UploadsDir),
		slog.String("results_dir", paths.ResultsDir),
		slog.String("shift_start", rules.ShiftStart.String()))

	return &AttendanceService{
		config:    cfg,
		paths:     paths,
		rules:     rules,
		builder:   exporter.NewWorkbookBuilder(logger),
		discovery: files.NewDiscovery(paths.DataDir),
		manager:   files.NewManager(paths, logger),
		hub:       hub,
		metrics:   metrics,
		logger:    logger,
	}, nil
}

// ProcessUpload runs the deduction pipeline over one uploaded punch report
// and stores the resulting workbook in the results directory. The report is
// consumed from the stream; nothing is written to disk until the workbook.
// Every run gets its own pipeline, so concurrent uploads never share state.
func (s *AttendanceService) ProcessUpload(ctx context.Context, r io.Reader, filename string, size int64) (*UploadResult, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, fmt.Errorf("%w: missing report filename", ErrInvalidInput)
	}

	start := time.Now()
	traceID := infrastructure.GetTraceID(ctx)
	resultID := uuid.New().String()

	logger := s.logger.With(
		slog.String("result_id", resultID),
		slog.String("filename", filename))
	logger.InfoContext(ctx, "ProcessUpload: starting run",
		slog.Int64("size_bytes", size))

	if s.metrics != nil {
		s.metrics.ActiveProcessingRuns.Add(ctx, 1)
		defer s.metrics.ActiveProcessingRuns.Add(ctx, -1)
		if size > 0 {
			s.metrics.UploadBytesTotal.Add(ctx, size)
		}
	}

	s.progress(events.ProcessingProgress{
		ResultID: resultID,
		Stage:    events.StageIngest,
		Message:  "Reading " + filepath.Base(filename),
	}, traceID)

	table, err := dataprocessing.ReadUpload(r, filename, s.config.Processing.HeaderSkipRows)
	if err != nil {
		return nil, s.failRun(ctx, resultID, traceID, events.StageIngest, start, err)
	}

	s.progress(events.ProcessingProgress{
		ResultID: resultID,
		Stage:    events.StageRules,
		Rows:     len(table.Rows),
		Message:  "Applying deduction rules",
	}, traceID)

	pipeline := dataprocessing.NewPipeline(logger, s.rules)
	result, err := pipeline.Process(ctx, table)
	if err != nil {
		return nil, s.failRun(ctx, resultID, traceID, events.StageRules, start, err)
	}

	s.progress(events.ProcessingProgress{
		ResultID: resultID,
		Stage:    events.StageExport,
		Rows:     result.Stats.RowsIn,
		Message:  "Writing result workbook",
	}, traceID)

	workbookPath := s.paths.GetResultPath(resultFilename(resultID))
	if err := s.builder.Save(result, workbookPath); err != nil {
		return nil, s.failRun(ctx, resultID, traceID, events.StageExport, start, err)
	}

	// A failed prune never fails the run that just produced a workbook.
	if _, err := s.manager.PruneResults(s.config.Processing.MaxStoredResults); err != nil {
		logger.WarnContext(ctx, "ProcessUpload: pruning stored results failed",
			slog.String("error", err.Error()))
	}

	infrastructure.RecordProcessingRun(ctx, s.metrics, "upload",
		result.Stats.RowsIn, result.Stats.DeductionRows, result.Stats.DegradedRows,
		time.Since(start), nil)
	infrastructure.AddSpanEvent(ctx, "attendance.run.completed", map[string]interface{}{
		"result_id":      resultID,
		"rows":           result.Stats.RowsIn,
		"deduction_rows": result.Stats.DeductionRows,
		"degraded_rows":  result.Stats.DegradedRows,
	})

	upload := &UploadResult{
		ResultID:      resultID,
		DownloadURL:   downloadURL(resultID),
		Rows:          result.Stats.RowsIn,
		DeductionRows: result.Stats.DeductionRows,
		SummaryRows:   result.Stats.SummaryRows,
	}

	s.progress(events.ProcessingProgress{
		ResultID: resultID,
		Stage:    events.StageComplete,
		Rows:     upload.Rows,
	}, traceID)
	if s.hub != nil {
		s.hub.BroadcastResultReady(events.ResultReady{
			ResultID:      upload.ResultID,
			DownloadURL:   upload.DownloadURL,
			Rows:          upload.Rows,
			DeductionRows: upload.DeductionRows,
			SummaryRows:   upload.SummaryRows,
			CompletedAt:   time.Now().UTC(),
		}, traceID)
	}

	logger.InfoContext(ctx, "ProcessUpload: run complete",
		slog.Int("rows", upload.Rows),
		slog.Int("deduction_rows", upload.DeductionRows),
		slog.Int("summary_rows", upload.SummaryRows),
		slog.String("workbook", workbookPath),
		slog.Duration("duration", time.Since(start)))

	return upload, nil
}

// ProcessFile runs the pipeline over a report already on disk and returns
// the full result tables. Used by the batch CLI, which owns its own output
// writing; nothing is stored in the results directory.
func (s *AttendanceService) ProcessFile(ctx context.Context, path string) (*domain.ProcessingResult, error) {
	table, err := dataprocessing.ReadFile(path, s.config.Processing.HeaderSkipRows)
	if err != nil {
		return nil, err
	}

	pipeline := dataprocessing.NewPipeline(s.logger, s.rules)
	return pipeline.Process(ctx, table)
}

// ListResults returns the stored result workbooks, newest first. A missing
// results directory reads as no results, not an error.
func (s *AttendanceService) ListResults(ctx context.Context) ([]StoredResult, error) {
	s.logger.DebugContext(ctx, "ListResults: scanning results directory",
		slog.String("results_dir", s.paths.ResultsDir))

	workbooks, err := s.discovery.FindResultWorkbooks(s.paths.ResultsDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []StoredResult{}, nil
		}
		return nil, fmt.Errorf("scan results directory: %w", err)
	}

	results := make([]StoredResult, 0, len(workbooks))
	for _, wb := range workbooks {
		results = append(results, StoredResult{
			ID:       wb.ID,
			Filename: wb.Name,
			Size:     wb.Size,
			Created:  wb.ModTime,
		})
	}
	return results, nil
}

// DownloadResult streams a stored result workbook with the spreadsheet
// content type and a stable download filename.
func (s *AttendanceService) DownloadResult(ctx context.Context, w http.ResponseWriter, r *http.Request, id string) error {
	path, err := s.resultPath(id)
	if err != nil {
		return err
	}

	s.logger.DebugContext(ctx, "DownloadResult: serving workbook",
		slog.String("result_id", id),
		slog.String("path", path))

	w.Header().Set("Content-Disposition", `attachment; filename="attendance_final.xlsx"`)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	http.ServeFile(w, r, path)
	return nil
}

// Rules returns the active engine policy for display.
func (s *AttendanceService) Rules(ctx context.Context) RuleSettings {
	return RuleSettings{
		ShiftStart:      s.rules.ShiftStart.String(),
		GraceLimit:      s.rules.GraceLimit.String(),
		FlexLimit:       s.rules.FlexLimit.String(),
		GraceAllowance:  s.rules.GraceAllowance,
		FlexAllowance:   s.rules.FlexAllowance,
		ShortDayHours:   s.rules.ShortDayHours,
		FullDayHours:    s.rules.FullDayHours,
		AverageHoursBar: s.rules.AverageHoursBar,
		FlexForgiveness: s.rules.FlexForgiveness,
		CycleShiftDays:  s.rules.CycleShiftDays,
	}
}

// resultPath resolves a result identifier to its workbook path. Identifiers
// carrying path separators are rejected before touching the filesystem so a
// crafted id can never escape the results directory.
func (s *AttendanceService) resultPath(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || id != filepath.Base(id) {
		return "", fmt.Errorf("%w: %q", ErrInvalidResultID, id)
	}

	path := s.paths.GetResultPath(resultFilename(id))
	if !config.FileExists(path) {
		return "", fmt.Errorf("%w: %s", apierrors.ErrResultMissing, id)
	}
	return path, nil
}

// failRun records the failed run in metrics, pushes failure events to
// websocket clients, and returns the original error for the transport layer
// to map.
func (s *AttendanceService) failRun(ctx context.Context, resultID, traceID, stage string, start time.Time, err error) error {
	infrastructure.RecordProcessingRun(ctx, s.metrics, "upload", 0, 0, 0, time.Since(start), err)
	infrastructure.RecordError(ctx, err)

	s.logger.ErrorContext(ctx, "ProcessUpload: run failed",
		slog.String("result_id", resultID),
		slog.String("stage", stage),
		slog.String("error", err.Error()))

	s.progress(events.ProcessingProgress{
		ResultID: resultID,
		Stage:    events.StageFailed,
		Message:  err.Error(),
	}, traceID)
	if s.hub != nil {
		s.hub.BroadcastError(errorCode(err), err.Error(), "", stage, true)
	}
	return err
}

func (s *AttendanceService) progress(p events.ProcessingProgress, traceID string) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastProcessingProgressWithTrace(p, traceID)
}

// errorCode maps a pipeline error to the websocket error code surfaced to
// clients, matching the hub's recovery hints.
func errorCode(err error) string {
	var missing *apierrors.MissingColumnsError
	switch {
	case errors.Is(err, apierrors.ErrReportEmpty):
		return "REPORT_EMPTY"
	case errors.As(err, &missing):
		return "REPORT_SHAPE"
	case errors.Is(err, apierrors.ErrReportFormat):
		return "UNSUPPORTED_UPLOAD"
	default:
		return "PROCESSING_ERROR"
	}
}

// resultFilename returns the on-disk workbook name for a result identifier.
func resultFilename(id string) string {
	return "attendance_" + id + ".xlsx"
}

// downloadURL returns the API path that serves a stored result.
func downloadURL(id string) string {
	return "/api/attendance/results/" + id + "/download"
}
