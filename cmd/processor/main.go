package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"attendcli/internal/config"
	"attendcli/internal/dataprocessing"
	"attendcli/internal/exporter"
	"attendcli/internal/files"
	"attendcli/internal/infrastructure"
	"attendcli/internal/validation"
	"attendcli/pkg/contracts"
	"attendcli/pkg/contracts/domain"
)

// reportOutcome holds the result of processing one punch report.
type reportOutcome struct {
	Name  string
	Stats domain.ProcessingStats
	Err   error
}

func main() {
	inDir := flag.String("in", "", "input directory for punch reports (defaults to data/uploads relative to executable)")
	outDir := flag.String("out", "", "output directory for attendance reports (defaults to data/reports relative to executable)")
	workbook := flag.Bool("workbook", false, "also write a results workbook per report")
	workers := flag.Int("workers", runtime.NumCPU(), "maximum reports processed concurrently")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(contracts.GetFullVersionString())
		return
	}

	// Initialize paths first to get default directories
	paths, err := config.GetPaths()
	if err != nil {
		slog.Error("Failed to initialize paths", "error", err)
		os.Exit(1)
	}

	// Use centralized directories as defaults if not specified
	if *inDir == "" {
		*inDir = paths.UploadsDir
	}
	if *outDir == "" {
		*outDir = paths.ReportsDir
	}

	// The exporter resolves relative names against the reports directory,
	// so flag paths must be absolute before they reach it
	if *inDir, err = filepath.Abs(*inDir); err != nil {
		slog.Error("Failed to resolve input directory", "error", err)
		os.Exit(1)
	}
	if *outDir, err = filepath.Abs(*outDir); err != nil {
		slog.Error("Failed to resolve output directory", "error", err)
		os.Exit(1)
	}

	// Ensure all required directories exist
	if err := paths.EnsureDirectories(); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Warn("Failed to load config, using defaults", "error", err)
		cfg = config.Default()
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}

	// Engine thresholds come from the same configuration the web surface uses
	ruleCfg, err := dataprocessing.RuleConfigFromProcessing(cfg.Processing)
	if err != nil {
		logger.Error("Invalid rule configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Starting attendance report processing",
		slog.String("input_dir", *inDir),
		slog.String("output_dir", *outDir),
		slog.Bool("workbook", *workbook),
		slog.Int("workers", *workers),
		slog.String("executable_dir", paths.ExecutableDir))

	validator := validation.NewFileValidator(logger)
	if err := validator.ValidateInputDirectory(*inDir); err != nil {
		logger.Error("Input directory validation failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := validator.ValidateOutputDirectory(*outDir); err != nil {
		logger.Error("Output directory validation failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	discovery := files.NewDiscovery(paths.DataDir)
	reports, err := discovery.FindReportFiles(*inDir)
	if err != nil {
		logger.Error("Failed to read input directory", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Punch reports discovered", slog.Int("count", len(reports)))
	fmt.Printf("Found %d punch reports\n", len(reports))

	// Graceful exit if no reports found
	if len(reports) == 0 {
		logger.Warn("No punch reports found in input directory",
			slog.String("input_dir", *inDir),
			slog.String("patterns", "*.csv, *.xlsx"))

		// Create an empty but valid combined summary so downstream
		// consumers always find the file
		summaryPath := filepath.Join(*outDir, "combined_summary.csv")
		if err := validator.CreateEmptyCSV(summaryPath, exporter.SummaryHeaders()); err != nil {
			logger.Error("Failed to create empty combined summary", slog.String("error", err.Error()))
			os.Exit(1)
		}

		logger.Info("Created empty combined summary", slog.String("path", summaryPath))
		fmt.Println("Processing complete: 0 reports")
		return
	}

	pipeline := dataprocessing.NewPipeline(logger, ruleCfg)
	attendanceExporter := exporter.NewAttendanceExporter(paths)
	workbookBuilder := exporter.NewWorkbookBuilder(logger)

	start := time.Now()
	outcomes := make([]reportOutcome, len(reports))
	total := len(reports)

	if *workers < 1 {
		*workers = 1
	}

	g, gctx := errgroup.WithContext(context.Background())
	g.SetLimit(*workers)

	for i, report := range reports {
		i, report := i, report
		g.Go(func() error {
			logger.Info("Processing report",
				slog.Int("current", i+1),
				slog.Int("total", total),
				slog.String("filename", report.Name))
			fmt.Printf("Processing report %d of %d: %s\n", i+1, total, report.Name)

			outcomes[i] = processReport(gctx, pipeline, attendanceExporter, workbookBuilder,
				cfg.Processing.HeaderSkipRows, *workbook, *outDir, report)

			// Per-report failures never halt the batch
			return nil
		})
	}
	g.Wait()

	// Summarize the run
	var processed, failed, totalRows, totalDeductions int
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			failed++
			logger.Error("Report failed",
				slog.String("filename", outcome.Name),
				slog.String("error", outcome.Err.Error()))
			fmt.Printf("Failed: %s: %v\n", outcome.Name, outcome.Err)
			continue
		}
		processed++
		totalRows += outcome.Stats.RowsIn
		totalDeductions += outcome.Stats.DeductionRows
	}

	logger.Info("Processing complete",
		slog.Int("processed", processed),
		slog.Int("failed", failed),
		slog.Int("total_rows", totalRows),
		slog.Int("total_deduction_rows", totalDeductions),
		slog.Duration("duration", time.Since(start)))

	fmt.Printf("Processing complete: %d reports\n", processed)
	if failed > 0 {
		fmt.Printf("Reports failed: %d\n", failed)
		os.Exit(1)
	}
}

// processReport runs one punch report through the engine and writes its CSV
// outputs next to the other reports: <name>_attendance.csv plus
// <name>_summary.csv, and optionally <name>_attendance.xlsx.
func processReport(ctx context.Context, pipeline *dataprocessing.Pipeline,
	attendanceExporter *exporter.AttendanceExporter, workbookBuilder *exporter.WorkbookBuilder,
	skipRows int, withWorkbook bool, outDir string, report files.FileInfo) reportOutcome {

	table, err := dataprocessing.ReadFile(report.Path, skipRows)
	if err != nil {
		return reportOutcome{Name: report.Name, Err: fmt.Errorf("reading report: %w", err)}
	}

	result, err := pipeline.Process(ctx, table)
	if err != nil {
		return reportOutcome{Name: report.Name, Err: fmt.Errorf("processing report: %w", err)}
	}

	base := strings.TrimSuffix(report.Name, filepath.Ext(report.Name))
	if err := attendanceExporter.ExportResult(result, filepath.Join(outDir, base)); err != nil {
		return reportOutcome{Name: report.Name, Err: fmt.Errorf("exporting report: %w", err)}
	}

	if withWorkbook {
		workbookPath := filepath.Join(outDir, base+"_attendance.xlsx")
		if err := workbookBuilder.Save(result, workbookPath); err != nil {
			return reportOutcome{Name: report.Name, Err: fmt.Errorf("saving workbook: %w", err)}
		}
	}

	return reportOutcome{Name: report.Name, Stats: result.Stats}
}
