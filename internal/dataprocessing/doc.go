// Package dataprocessing implements the attendance rule engine that turns
// raw punch reports into deduction and payable-day figures.
//
// # Architecture
//
// The package is organised as a staged pipeline. Each stage is a small
// component with a single responsibility, and the Pipeline type wires them
// together in a fixed order:
//
//	Reader -> Column Mapper -> Time Normalizer -> Hours Calculator ->
//	Lateness Counter -> Rule Engine -> Aggregator
//
// # Core Components
//
//   - Reader functions (ReadFile, ReadCSV, ReadWorkbook, ReadUpload) load a
//     raw report into a domain.RawTable, skipping the preamble rows that
//     punch-machine exports carry above the header.
//   - MapColumns and BuildRecords resolve the messy source headers to
//     canonical field names and build one AttendanceRecord per data row.
//   - TimeNormalizer parses dates day-first, forward-fills missing dates per
//     employee, derives cycle and calendar months, and resolves punch
//     timestamps including overnight shifts.
//   - HoursCalculator computes worked hours from the punch pair with a
//     fallback to the duration column reported by the punch machine.
//   - LatenessCounter classifies arrival lateness against the shift
//     thresholds and maintains running per-cycle counters.
//   - RuleEngine evaluates the ordered deduction rule table and applies the
//     long-day forgiveness override.
//   - Aggregator converts deductions to payable-day fractions, renders
//     human-readable deduction reasons, and builds per-employee monthly
//     summaries.
//
// # Usage Example
//
//	pipeline := dataprocessing.NewPipeline(logger, dataprocessing.DefaultRuleConfig())
//	table, err := dataprocessing.ReadFile("july_punches.csv", 2)
//	if err != nil {
//		return err
//	}
//	result, err := pipeline.Process(ctx, table)
//	if err != nil {
//		return err
//	}
//	for _, summary := range result.Summaries {
//		fmt.Println(summary.EmployeeID, summary.TotalDeductions)
//	}
//
// # Data Flow
//
// Records flow through the stages in source row order, which matters: running
// grace and flex counters and the forgiveness budget are defined over row
// order within each employee's deduction cycle. Stages mutate the record
// slice they are handed and return it for chaining; no stage retains a
// reference after returning.
//
// # Error Handling
//
// Structural problems with the input surface as typed errors from the
// internal errors package: MissingColumnsError lists every required column
// the report lacks, ErrReportEmpty covers reports with no data rows, and
// ErrReportFormat covers unsupported file types. Bad cell values are never
// fatal. Unparsable dates, times, and durations degrade the affected record
// and processing continues.
package dataprocessing
