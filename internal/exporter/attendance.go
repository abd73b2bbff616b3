package exporter

import (
	"fmt"

	"attendcli/internal/config"
	"attendcli/pkg/contracts/domain"
)

// AttendanceExporter handles attendance CSV report generation
type AttendanceExporter struct {
	csvWriter *CSVWriter
}

// NewAttendanceExporter creates a new attendance report exporter
func NewAttendanceExporter(paths *config.Paths) *AttendanceExporter {
	return &AttendanceExporter{
		csvWriter: NewCSVWriter(paths),
	}
}

// ExportRecords writes the full record set to a CSV file, streaming row by
// row because a multi-month report can carry tens of thousands of records.
func (a *AttendanceExporter) ExportRecords(records []domain.AttendanceRecord, outputPath string) error {
	stream, err := a.csvWriter.CreateStreamWriter(outputPath, RecordHeaders())
	if err != nil {
		return fmt.Errorf("failed to create stream writer for %s: %w", outputPath, err)
	}

	for _, record := range records {
		if err := stream.WriteRecord(recordToCSVRow(record)); err != nil {
			stream.Close()
			return fmt.Errorf("failed to write record: %w", err)
		}
	}

	if err := stream.Close(); err != nil {
		return fmt.Errorf("failed to close stream for %s: %w", outputPath, err)
	}
	return nil
}

// ExportSummaries writes the employee summary table to a CSV file. An empty
// summary still produces a file with the full header row.
func (a *AttendanceExporter) ExportSummaries(summaries []domain.EmployeeSummary, outputPath string) error {
	var csvRecords [][]string
	for _, summary := range summaries {
		csvRecords = append(csvRecords, summaryToCSVRow(summary))
	}

	if err := a.csvWriter.WriteSimpleCSV(outputPath, SummaryHeaders(), csvRecords); err != nil {
		return fmt.Errorf("failed to write summary file %s: %w", outputPath, err)
	}
	return nil
}

// ExportResult writes both CSV views of one processing run, derived from a
// base name: <base>_attendance.csv and <base>_summary.csv.
func (a *AttendanceExporter) ExportResult(result *domain.ProcessingResult, baseName string) error {
	if err := a.ExportRecords(result.Records, baseName+"_attendance.csv"); err != nil {
		return err
	}
	return a.ExportSummaries(result.Summaries, baseName+"_summary.csv")
}

// RecordHeaders returns the CSV and workbook column order for attendance
// records. The order is stable: raw source columns first, then derived
// temporal fields, hours, lateness state, and the deduction outcome.
func RecordHeaders() []string {
	return []string{
		"sr_no_fixed", "sr_no", "employee_id", "employee_name", "designation",
		"date", "cycle_month", "calendar_month", "attendance_status",
		"shift_start", "shift_end", "punch_in_raw", "punch_out_raw",
		"punch_in_time", "punch_out_time", "punch_in", "punch_out",
		"reported_duration", "working_hours", "working_day", "within_grace",
		"late_beyond_grace", "flex_late", "grace_count", "flex_count",
		"grace_violation", "flex_violation", "half_day", "full_day",
		"day_deduction", "payable_day", "deduction_reason",
	}
}

// SummaryHeaders returns the CSV and workbook column order for employee
// summaries.
func SummaryHeaders() []string {
	return []string{
		"sr_no", "employee_id", "employee_name", "designation",
		"calendar_month", "deduction_dates", "total_full_day_deductions",
		"total_half_day_deductions", "total_deductions",
		"grace_violation_count", "flex_violation_count",
		"working_hours_less8_count", "working_hours_between8to9_count",
		"late_beyond_grace_count",
	}
}

// recordToCSVRow converts an attendance record to a CSV row
func recordToCSVRow(rec domain.AttendanceRecord) []string {
	return []string{
		formatInt(rec.SerialNo),
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
		formatHours(rec.WorkingHours),
		formatBool(rec.WorkingDay),
		formatBool(rec.WithinGrace),
		formatBool(rec.LateBeyondGrace),
		formatBool(rec.FlexLate),
		formatInt(rec.GraceCount),
		formatInt(rec.FlexCount),
		formatBool(rec.GraceViolation),
		formatBool(rec.FlexViolation),
		formatFraction(rec.HalfDay),
		formatFraction(rec.FullDay),
		formatFraction(rec.DayDeduction),
		formatFraction(rec.PayableDay),
		rec.DeductionReason,
	}
}

// summaryToCSVRow converts an employee summary to a CSV row
func summaryToCSVRow(summary domain.EmployeeSummary) []string {
	return []string{
		formatInt(summary.SerialNo),
		summary.EmployeeID,
		summary.EmployeeName,
		summary.Designation,
		summary.CalendarMonth,
		summary.DeductionDates,
		formatFraction(summary.TotalFullDayDeductions),
		formatFraction(summary.TotalHalfDayDeductions),
		formatFraction(summary.TotalDeductions),
		formatInt(summary.GraceViolationCount),
		formatInt(summary.FlexViolationCount),
		formatInt(summary.WorkingHoursLess8Count),
		formatInt(summary.WorkingHoursBetween8And9Count),
		formatInt(summary.LateBeyondGraceCount),
	}
}
