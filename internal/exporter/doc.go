// Package exporter serializes processing results for the Attendance Pulse
// service.
//
// This package contains three main components:
//
// CSVWriter: Core CSV writing functionality with support for headers,
// streaming, and UTF-8 BOM for Excel compatibility.
//
// AttendanceExporter: Converts attendance records and employee summaries to
// CSV files, streaming the full record set for large reports.
//
// WorkbookBuilder: Builds the three-sheet results workbook
// (Full_Attendance, With_Deductions, Employee_Summary) handed out by the
// download endpoint and the batch processor.
//
// Example usage:
//
//	builder := exporter.NewWorkbookBuilder(logger)
//	if err := builder.Save(result, paths.GetDatedResultPath(time.Now())); err != nil {
//		return err
//	}
//
//	csvExporter := exporter.NewAttendanceExporter(paths)
//	err := csvExporter.ExportRecords(result.Records, "july_attendance.csv")
package exporter
