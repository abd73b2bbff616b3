package domain

import (
	"fmt"
	"time"
)

// Attendance status codes as they appear in the source reports after
// normalization (trimmed, uppercased). Codes outside this set are passed
// through and treated as non-payable.
const (
	StatusPresent = "P"
	StatusAbsent  = "A"
	StatusWeekOff = "WO"
)

// ClockTime is a wall-clock time of day without a date component.
// The zero value (Valid == false) means the source value was missing or
// unparsable.
type ClockTime struct {
	Hour   int  `json:"hour"`
	Minute int  `json:"minute"`
	Second int  `json:"second"`
	Valid  bool `json:"valid"`
}

// NewClockTime builds a valid ClockTime from clock components.
func NewClockTime(hour, minute, second int) ClockTime {
	return ClockTime{Hour: hour, Minute: minute, Second: second, Valid: true}
}

// Seconds returns the offset from midnight in seconds.
func (c ClockTime) Seconds() int {
	return c.Hour*3600 + c.Minute*60 + c.Second
}

// After reports whether c is strictly later in the day than other.
// Invalid values never compare later than anything.
func (c ClockTime) After(other ClockTime) bool {
	if !c.Valid || !other.Valid {
		return false
	}
	return c.Seconds() > other.Seconds()
}

// AfterOrEqual reports whether c is at or later than other.
func (c ClockTime) AfterOrEqual(other ClockTime) bool {
	if !c.Valid || !other.Valid {
		return false
	}
	return c.Seconds() >= other.Seconds()
}

// String formats the clock as HH:MM:SS, or an empty string when invalid.
func (c ClockTime) String() string {
	if !c.Valid {
		return ""
	}
	return fmt.Sprintf("%02d:%02d:%02d", c.Hour, c.Minute, c.Second)
}

// AttendanceRecord represents one employee's attendance for one calendar day,
// carrying both the raw source values and every field derived by the
// processing pipeline. Records are immutable once a run completes.
type AttendanceRecord struct {
	SerialNo  int    `json:"sr_no_fixed"`            // output ordinal, assigned at aggregation
	RawSerial string `json:"sr_no"`                  // source serial column, passed through
	RowIndex  int    `json:"-"`                      // zero-based position in the source table

	EmployeeID   string `json:"employee_id" validate:"required"`
	EmployeeName string `json:"employee_name"`
	Designation  string `json:"designation"`

	DateRaw       string    `json:"-"`              // source date cell, kept until normalization
	Date          time.Time `json:"date"`           // zero when unparsable with no fill candidate
	CycleMonth    string    `json:"cycle_month"`    // YYYY-MM of (Date - 24d); empty when Date is missing
	CalendarMonth string    `json:"calendar_month"` // YYYY-MM of Date; empty when Date is missing

	AttendanceStatus string `json:"attendance_status"`
	ShiftStart       string `json:"shift_start"`
	ShiftEnd         string `json:"shift_end"`

	PunchInRaw       string    `json:"punch_in_raw"`
	PunchOutRaw      string    `json:"punch_out_raw"`
	PunchInTime      ClockTime `json:"punch_in_time"`
	PunchOutTime     ClockTime `json:"punch_out_time"`
	PunchIn          time.Time `json:"punch_in"`  // Date + PunchInTime; zero when either is missing
	PunchOut         time.Time `json:"punch_out"` // overnight-corrected; zero when either is missing
	ReportedDuration string    `json:"reported_duration"`

	WorkingHours float64 `json:"working_hours"` // finite and >= 0 after normalization
	WorkingDay   bool    `json:"working_day"`   // AttendanceStatus == "P"

	WithinGrace     bool `json:"within_grace"`
	LateBeyondGrace bool `json:"late_beyond_grace"`
	FlexLate        bool `json:"flex_late"`
	GraceCount      int  `json:"grace_count"` // running per (employee, cycle month), inclusive
	FlexCount       int  `json:"flex_count"`
	GraceViolation  bool `json:"grace_violation"` // GraceCount > grace allowance
	FlexViolation   bool `json:"flex_violation"`  // FlexCount > flex allowance

	HalfDay         float64 `json:"half_day"`      // 0 or 0.5
	FullDay         float64 `json:"full_day"`      // 0 or 1.0
	DayDeduction    float64 `json:"day_deduction"` // max(HalfDay, FullDay)
	PayableDay      float64 `json:"payable_day"`   // in [0, 1]
	DeductionReason string  `json:"deduction_reason"`
}

// HasDate reports whether the record carries an established calendar date.
// Records without one are degraded: retained in output but excluded from
// cycle counting.
func (r *AttendanceRecord) HasDate() bool {
	return !r.Date.IsZero()
}

// EmployeeSummary aggregates one employee's deduction-bearing records within
// one calendar month.
type EmployeeSummary struct {
	SerialNo      int    `json:"sr_no"`
	EmployeeID    string `json:"employee_id"`
	EmployeeName  string `json:"employee_name"`
	Designation   string `json:"designation"`
	CalendarMonth string `json:"calendar_month"`

	DeductionDates string `json:"deduction_dates"` // sorted, de-duplicated DD/MM/YYYY, comma-joined

	TotalFullDayDeductions float64 `json:"total_full_day_deductions"`
	TotalHalfDayDeductions float64 `json:"total_half_day_deductions"`
	TotalDeductions        float64 `json:"total_deductions"`

	GraceViolationCount           int `json:"grace_violation_count"`
	FlexViolationCount            int `json:"flex_violation_count"`
	WorkingHoursLess8Count        int `json:"working_hours_less8_count"`
	WorkingHoursBetween8And9Count int `json:"working_hours_between8to9_count"`
	LateBeyondGraceCount          int `json:"late_beyond_grace_count"`
}

// ProcessingStats carries run-level counters for logging and metrics.
type ProcessingStats struct {
	RowsIn        int `json:"rows_in"`
	DegradedRows  int `json:"degraded_rows"`
	DeductionRows int `json:"deduction_rows"`
	SummaryRows   int `json:"summary_rows"`
}

// ProcessingResult is the engine's complete output for one run: every record
// with all derived fields, the deduction-bearing subset, and the per-employee
// summary table. The deduction slice shares backing records with Records by
// value copy; mutating one never affects the other.
type ProcessingResult struct {
	Records    []AttendanceRecord `json:"records"`
	Deductions []AttendanceRecord `json:"deductions"`
	Summaries  []EmployeeSummary  `json:"summaries"`
	Stats      ProcessingStats    `json:"stats"`
}

// RawTable is a rectangular slice of source data as ingested: one header row
// and zero or more data rows, all values still strings. Rows may be ragged;
// the column normalizer pads short rows.
type RawTable struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}
