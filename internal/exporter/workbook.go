package exporter

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"attendcli/pkg/contracts/domain"
)

// Sheet names in the results workbook.
const (
	SheetFullAttendance  = "Full_Attendance"
	SheetWithDeductions  = "With_Deductions"
	SheetEmployeeSummary = "Employee_Summary"
)

// WorkbookBuilder assembles the results workbook for one processing run:
// every record on Full_Attendance, the deduction-bearing subset on
// With_Deductions (omitted entirely when no row carries a deduction), and
// the rollup on Employee_Summary.
type WorkbookBuilder struct {
	logger *slog.Logger
}

// NewWorkbookBuilder creates a workbook builder.
func NewWorkbookBuilder(logger *slog.Logger) *WorkbookBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkbookBuilder{logger: logger}
}

// Build renders the processing result into an in-memory workbook. The
// caller owns the returned file and must Close it. Record sheets are
// streamed, so their cells only become readable once the workbook has been
// written out.
func (b *WorkbookBuilder) Build(result *domain.ProcessingResult) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", SheetFullAttendance); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename default sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create header style: %w", err)
	}

	if err := b.writeRecordSheet(f, SheetFullAttendance, result.Records, headerStyle); err != nil {
		f.Close()
		return nil, err
	}

	if len(result.Deductions) > 0 {
		if _, err := f.NewSheet(SheetWithDeductions); err != nil {
			f.Close()
			return nil, fmt.Errorf("create sheet %s: %w", SheetWithDeductions, err)
		}
		if err := b.writeRecordSheet(f, SheetWithDeductions, result.Deductions, headerStyle); err != nil {
			f.Close()
			return nil, err
		}
	}

	// the summary sheet is always present, headers only when empty
	if _, err := f.NewSheet(SheetEmployeeSummary); err != nil {
		f.Close()
		return nil, fmt.Errorf("create sheet %s: %w", SheetEmployeeSummary, err)
	}
	if err := b.writeSummarySheet(f, result.Summaries, headerStyle); err != nil {
		f.Close()
		return nil, err
	}

	index, err := f.GetSheetIndex(SheetFullAttendance)
	if err == nil && index >= 0 {
		f.SetActiveSheet(index)
	}

	return f, nil
}

// Write builds the workbook and streams it to w, for HTTP download.
func (b *WorkbookBuilder) Write(w io.Writer, result *domain.ProcessingResult) error {
	f, err := b.Build(result)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Save builds the workbook and writes it to path, creating the parent
// directory if needed.
func (b *WorkbookBuilder) Save(result *domain.ProcessingResult, path string) error {
	f, err := b.Build(result)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}

	b.logger.Info("results workbook saved",
		slog.String("path", path),
		slog.Int("records", len(result.Records)),
		slog.Int("deductions", len(result.Deductions)),
		slog.Int("summaries", len(result.Summaries)))
	return nil
}

// writeRecordSheet streams records row by row because a multi-month report
// can carry tens of thousands of rows. Widths and the frozen pane must be
// set before the first streamed row.
func (b *WorkbookBuilder) writeRecordSheet(f *excelize.File, sheet string, records []domain.AttendanceRecord, headerStyle int) error {
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("stream sheet %s: %w", sheet, err)
	}

	// widths for the columns people actually read
	if err := sw.SetColWidth(3, 5, 18); err != nil {
		return fmt.Errorf("set column widths: %w", err)
	}
	if err := sw.SetColWidth(32, 32, 45); err != nil {
		return fmt.Errorf("set column widths: %w", err)
	}
	if err := sw.SetPanes(frozenHeaderPane()); err != nil {
		return fmt.Errorf("freeze header row: %w", err)
	}

	if err := sw.SetRow("A1", headerCells(RecordHeaders(), headerStyle)); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}

	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("locate row %d: %w", i+2, err)
		}
		if err := sw.SetRow(cell, recordToWorkbookRow(rec)); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet %s: %w", sheet, err)
	}
	return nil
}

func (b *WorkbookBuilder) writeSummarySheet(f *excelize.File, summaries []domain.EmployeeSummary, headerStyle int) error {
	if err := f.SetPanes(SheetEmployeeSummary, frozenHeaderPane()); err != nil {
		return fmt.Errorf("freeze header row: %w", err)
	}
	if err := writeHeaderRow(f, SheetEmployeeSummary, SummaryHeaders(), headerStyle); err != nil {
		return err
	}

	for i, summary := range summaries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("locate row %d: %w", i+2, err)
		}
		row := summaryToWorkbookRow(summary)
		if err := f.SetSheetRow(SheetEmployeeSummary, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", SheetEmployeeSummary, i+2, err)
		}
	}

	if err := f.SetColWidth(SheetEmployeeSummary, "B", "D", 18); err != nil {
		return fmt.Errorf("set column widths: %w", err)
	}
	return f.SetColWidth(SheetEmployeeSummary, "F", "F", 40)
}

func frozenHeaderPane() *excelize.Panes {
	return &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}
}

func headerCells(headers []string, style int) []interface{} {
	cells := make([]interface{}, len(headers))
	for i, header := range headers {
		cells[i] = excelize.Cell{StyleID: style, Value: header}
	}
	return cells
}

func writeHeaderRow(f *excelize.File, sheet string, headers []string, style int) error {
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("locate header cell %d: %w", i+1, err)
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("write header %q: %w", header, err)
		}
	}

	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return fmt.Errorf("style header row: %w", err)
	}
	return nil
}

// recordToWorkbookRow keeps numeric fields numeric so spreadsheet formulas
// work on them; temporal fields are written as stable formatted strings.
func recordToWorkbookRow(rec domain.AttendanceRecord) []interface{} {
	return []interface{}{
		rec.SerialNo,
		rec.RawSerial,
		rec.EmployeeID,
		rec.EmployeeName,
		rec.Designation,
		formatDate(rec.Date),
		rec.CycleMonth,
		rec.CalendarMonth,
		rec.AttendanceStatus,
		rec.ShiftStart,
		rec.ShiftEnd,
		rec.PunchInRaw,
		rec.PunchOutRaw,
		rec.PunchInTime.String(),
		rec.PunchOutTime.String(),
		formatTimestamp(rec.PunchIn),
		formatTimestamp(rec.PunchOut),
		rec.ReportedDuration,
		rec.WorkingHours,
		rec.WorkingDay,
		rec.WithinGrace,
		rec.LateBeyondGrace,
		rec.FlexLate,
		rec.GraceCount,
		rec.FlexCount,
		rec.GraceViolation,
		rec.FlexViolation,
		rec.HalfDay,
		rec.FullDay,
		rec.DayDeduction,
		rec.PayableDay,
		rec.DeductionReason,
	}
}

func summaryToWorkbookRow(summary domain.EmployeeSummary) []interface{} {
	return []interface{}{
		summary.SerialNo,
		summary.EmployeeID,
		summary.EmployeeName,
		summary.Designation,
		summary.CalendarMonth,
		summary.DeductionDates,
		summary.TotalFullDayDeductions,
		summary.TotalHalfDayDeductions,
		summary.TotalDeductions,
		summary.GraceViolationCount,
		summary.FlexViolationCount,
		summary.WorkingHoursLess8Count,
		summary.WorkingHoursBetween8And9Count,
		summary.LateBeyondGraceCount,
	}
}
