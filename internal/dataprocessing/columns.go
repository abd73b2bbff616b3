package dataprocessing

import (
	"strings"
	"unicode"

	"attendcli/internal/errors"
	"attendcli/pkg/contracts/domain"
)

// columnAliases maps cleaned source headers to canonical field names. The
// keys are the literal headers the punch-machine export produces, including
// the mangled serial-number header it ships with.
var columnAliases = map[string]string{
	"SR+A3:R24 NO":     "sr_no",
	"ALPHA EMP CODE":   "employee_id",
	"EMP FULL NAME":    "employee_name",
	"DESIG NAME":       "designation",
	"ON DATE":          "date",
	"SHIFT START TIME": "shift_start",
	"SHIFT END TIME":   "shift_end",
	"ACTUAL IN TIME":   "punch_in",
	"ACTUAL OUT TIME":  "punch_out",
	"DURATION":         "reported_duration",
	"AB LEAVE":         "attendance_status",
}

// requiredColumns must all resolve after header mapping for a run to
// proceed. sr_no is deliberately absent: reports without a serial column
// are still processable.
var requiredColumns = []string{
	"employee_id",
	"employee_name",
	"designation",
	"date",
	"shift_start",
	"shift_end",
	"punch_in",
	"punch_out",
	"reported_duration",
	"attendance_status",
}

// CleanHeader trims surrounding whitespace and strips non-ASCII runes.
// Punch exports embed stray unicode artifacts in header cells, so cleaning
// runs before alias lookup.
func CleanHeader(header string) string {
	header = strings.TrimSpace(header)

	var b strings.Builder
	b.Grow(len(header))
	for _, r := range header {
		if r <= unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// MapColumns resolves the raw header row to canonical field names and
// returns the column index for each. Headers without an alias pass through
// under their cleaned name. The first occurrence wins when a header repeats.
func MapColumns(headers []string) (map[string]int, error) {
	index := make(map[string]int, len(headers))
	for i, h := range headers {
		name := CleanHeader(h)
		if canonical, ok := columnAliases[name]; ok {
			name = canonical
		}
		if name == "" {
			continue
		}
		if _, seen := index[name]; !seen {
			index[name] = i
		}
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, errors.NewMissingColumnsError(missing)
	}
	return index, nil
}

// BuildRecords maps each data row of the table into an AttendanceRecord
// carrying the raw cell values. Short rows yield empty cells rather than
// errors; all value parsing happens in later stages.
func BuildRecords(table *domain.RawTable) ([]domain.AttendanceRecord, error) {
	index, err := MapColumns(table.Headers)
	if err != nil {
		return nil, err
	}

	records := make([]domain.AttendanceRecord, 0, len(table.Rows))
	for i, row := range table.Rows {
		cell := func(name string) string {
			col, ok := index[name]
			if !ok || col >= len(row) {
				return ""
			}
			return row[col]
		}

		records = append(records, domain.AttendanceRecord{
			RowIndex:         i,
			RawSerial:        cell("sr_no"),
			EmployeeID:       cell("employee_id"),
			EmployeeName:     cell("employee_name"),
			Designation:      cell("designation"),
			DateRaw:          cell("date"),
			ShiftStart:       cell("shift_start"),
			ShiftEnd:         cell("shift_end"),
			PunchInRaw:       cell("punch_in"),
			PunchOutRaw:      cell("punch_out"),
			ReportedDuration: cell("reported_duration"),
			AttendanceStatus: cell("attendance_status"),
		})
	}
	return records, nil
}
