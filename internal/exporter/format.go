package exporter

import (
	"fmt"
	"time"
)

const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02 15:04:05"
)

// formatHours formats a working-hours value with exactly 2 decimal places
// so that 9.5 appears as 9.50 in CSV output.
func formatHours(f float64) string {
	return fmt.Sprintf("%.2f", f)
}

// formatFraction formats a deduction or payable fraction with 1 decimal
// place, matching the {0.0, 0.5, 1.0} value domain.
func formatFraction(f float64) string {
	return fmt.Sprintf("%.1f", f)
}

// formatInt formats an integer value for CSV output.
func formatInt(i int) string {
	return fmt.Sprintf("%d", i)
}

// formatBool formats a boolean value for CSV output.
func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// formatDate formats a record date, or empty for dateless records.
func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

// formatTimestamp formats a punch timestamp, or empty when unresolved.
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timestampLayout)
}
