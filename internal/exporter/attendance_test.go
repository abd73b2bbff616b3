package exporter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendcli/pkg/contracts/domain"
)

func sampleResult() *domain.ProcessingResult {
	day := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	deducted := domain.AttendanceRecord{
		SerialNo: 1, RawSerial: "1",
		EmployeeID: "E001", EmployeeName: "Alice Hale", Designation: "Engineer",
		Date: day, CycleMonth: "2024-06", CalendarMonth: "2024-07",
		AttendanceStatus: "P", ShiftStart: "10:00", ShiftEnd: "19:00",
		PunchInRaw: "10:20", PunchOutRaw: "17:50",
		PunchInTime: domain.NewClockTime(10, 20, 0), PunchOutTime: domain.NewClockTime(17, 50, 0),
		PunchIn:  day.Add(10*time.Hour + 20*time.Minute),
		PunchOut: day.Add(17*time.Hour + 50*time.Minute),
		ReportedDuration: "7:30", WorkingHours: 7.5, WorkingDay: true,
		LateBeyondGrace: true, FlexLate: true,
		GraceCount: 5, FlexCount: 1, GraceViolation: true,
		FullDay: 1.0, DayDeduction: 1.0, PayableDay: 0.0,
		DeductionReason: "Late beyond grace, Working hours < 8, Grace violation > 4",
	}
	weekOff := domain.AttendanceRecord{
		SerialNo: 2, RawSerial: "2",
		EmployeeID: "E001", EmployeeName: "Alice Hale", Designation: "Engineer",
		Date: day.AddDate(0, 0, 1), CycleMonth: "2024-06", CalendarMonth: "2024-07",
		AttendanceStatus: "WO", PayableDay: 1.0,
	}

	return &domain.ProcessingResult{
		Records:    []domain.AttendanceRecord{deducted, weekOff},
		Deductions: []domain.AttendanceRecord{deducted},
		Summaries: []domain.EmployeeSummary{{
			SerialNo: 1, EmployeeID: "E001", EmployeeName: "Alice Hale",
			Designation: "Engineer", CalendarMonth: "2024-07",
			DeductionDates:         "01/07/2024",
			TotalFullDayDeductions: 1.0, TotalDeductions: 1.0,
			GraceViolationCount: 1, WorkingHoursLess8Count: 1, LateBeyondGraceCount: 1,
		}},
		Stats: domain.ProcessingStats{RowsIn: 2, DeductionRows: 1, SummaryRows: 1},
	}
}

func TestExportRecords(t *testing.T) {
	paths, _ := testPaths(t)
	ex := NewAttendanceExporter(paths)
	result := sampleResult()

	require.NoError(t, ex.ExportRecords(result.Records, "july_attendance.csv"))

	rows := readCSVFile(t, paths.GetReportPath("july_attendance.csv"))
	require.Len(t, rows, 3)
	assert.Equal(t, RecordHeaders(), rows[0])

	first := rows[1]
	require.Len(t, first, len(RecordHeaders()))
	assert.Equal(t, "1", first[0])
	assert.Equal(t, "E001", first[2])
	assert.Equal(t, "2024-07-01", first[5])
	assert.Equal(t, "10:20:00", first[13])
	assert.Equal(t, "2024-07-01 10:20:00", first[15])
	assert.Equal(t, "7.50", first[18])
	assert.Equal(t, "true", first[19])
	assert.Equal(t, "1.0", first[28], "full_day keeps one decimal place")
	assert.Equal(t, "0.0", first[30], "payable_day keeps one decimal place")
	assert.Equal(t, "Late beyond grace, Working hours < 8, Grace violation > 4", first[31])

	second := rows[2]
	assert.Equal(t, "WO", second[8])
	assert.Empty(t, second[13], "missing punch clock stays empty")
	assert.Empty(t, second[15], "missing punch timestamp stays empty")
	assert.Equal(t, "1.0", second[30], "week off pays in full")
}

func TestExportSummaries(t *testing.T) {
	paths, _ := testPaths(t)
	ex := NewAttendanceExporter(paths)

	require.NoError(t, ex.ExportSummaries(sampleResult().Summaries, "july_summary.csv"))

	rows := readCSVFile(t, paths.GetReportPath("july_summary.csv"))
	require.Len(t, rows, 2)
	assert.Equal(t, SummaryHeaders(), rows[0])

	row := rows[1]
	assert.Equal(t, "E001", row[1])
	assert.Equal(t, "2024-07", row[4])
	assert.Equal(t, "01/07/2024", row[5])
	assert.Equal(t, "1.0", row[6])
	assert.Equal(t, "1", row[9])
}

func TestExportSummariesEmpty(t *testing.T) {
	paths, _ := testPaths(t)
	ex := NewAttendanceExporter(paths)

	require.NoError(t, ex.ExportSummaries(nil, "empty_summary.csv"))

	rows := readCSVFile(t, paths.GetReportPath("empty_summary.csv"))
	require.Len(t, rows, 1, "headers survive even with no summaries")
	assert.Equal(t, SummaryHeaders(), rows[0])
}

func TestExportResult(t *testing.T) {
	paths, _ := testPaths(t)
	ex := NewAttendanceExporter(paths)

	require.NoError(t, ex.ExportResult(sampleResult(), "july"))

	records := readCSVFile(t, paths.GetReportPath("july_attendance.csv"))
	assert.Len(t, records, 3)
	summaries := readCSVFile(t, paths.GetReportPath("july_summary.csv"))
	assert.Len(t, summaries, 2)
}

func TestHeaderShapes(t *testing.T) {
	assert.Len(t, RecordHeaders(), 32)
	assert.Len(t, SummaryHeaders(), 14)

	rec := recordToCSVRow(domain.AttendanceRecord{})
	assert.Len(t, rec, len(RecordHeaders()))
	summary := summaryToCSVRow(domain.EmployeeSummary{})
	assert.Len(t, summary, len(SummaryHeaders()))
}
