package dataprocessing

import (
	"math"
	"strconv"
	"strings"

	"attendcli/pkg/contracts/domain"
)

// HoursCalculator derives the worked-hours figure for each record.
type HoursCalculator struct{}

// NewHoursCalculator creates an hours calculator.
func NewHoursCalculator() *HoursCalculator {
	return &HoursCalculator{}
}

// Calculate sets WorkingHours on every record. The punch timestamp pair is
// the primary source; when either punch is unresolved the duration column
// reported by the punch machine is the fallback. The result is always
// finite and non-negative: rows where both sources fail get zero hours.
func (h *HoursCalculator) Calculate(records []domain.AttendanceRecord) []domain.AttendanceRecord {
	for i := range records {
		rec := &records[i]

		var hours float64
		if !rec.PunchIn.IsZero() && !rec.PunchOut.IsZero() {
			hours = rec.PunchOut.Sub(rec.PunchIn).Hours()
		} else if parsed, ok := parseDurationHours(rec.ReportedDuration); ok {
			hours = parsed
		}

		if math.IsNaN(hours) || math.IsInf(hours, 0) || hours < 0 {
			hours = 0
		}
		rec.WorkingHours = hours
	}
	return records
}

// parseDurationHours parses a duration cell in H:MM or H:MM:SS form into
// fractional hours.
func parseDurationHours(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}

	parts := strings.Split(raw, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}

	values := make([]int, len(parts))
	for i, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || v < 0 {
			return 0, false
		}
		values[i] = v
	}

	hours := float64(values[0]) + float64(values[1])/60
	if len(values) == 3 {
		hours += float64(values[2]) / 3600
	}
	return hours, true
}
