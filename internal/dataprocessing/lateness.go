package dataprocessing

import (
	"attendcli/pkg/contracts/domain"
)

// LatenessCounter classifies arrival lateness and maintains the running
// per-cycle counters the deduction rules consume.
type LatenessCounter struct {
	cfg RuleConfig
}

// NewLatenessCounter creates a counter with the given rule configuration.
func NewLatenessCounter(cfg RuleConfig) *LatenessCounter {
	return &LatenessCounter{cfg: cfg}
}

// cycleKey scopes the running counters to one employee within one
// deduction cycle.
type cycleKey struct {
	employee string
	cycle    string
}

// Count sets the lateness flags and running counters on every record.
//
// Flags are derived from the punch-in clock against the configured shift
// thresholds and only apply to working days. Counters accumulate in source
// row order within each (employee, cycle month) group; every dated row in a
// cycle carries the running total inclusive of itself, whether or not it
// contributed. Dateless rows cannot be attributed to a cycle, so they carry
// no flags and never advance or observe a counter.
func (l *LatenessCounter) Count(records []domain.AttendanceRecord) []domain.AttendanceRecord {
	graceTotals := make(map[cycleKey]int)
	flexTotals := make(map[cycleKey]int)

	for i := range records {
		rec := &records[i]

		rec.WorkingDay = rec.AttendanceStatus == domain.StatusPresent
		if !rec.HasDate() {
			continue
		}

		if rec.WorkingDay && rec.PunchInTime.Valid {
			punch := rec.PunchInTime
			rec.WithinGrace = punch.After(l.cfg.ShiftStart) && !punch.After(l.cfg.GraceLimit)
			rec.LateBeyondGrace = punch.After(l.cfg.GraceLimit)
			rec.FlexLate = punch.After(l.cfg.GraceLimit) && !punch.After(l.cfg.FlexLimit)
		}

		key := cycleKey{employee: rec.EmployeeID, cycle: rec.CycleMonth}
		if rec.WithinGrace {
			graceTotals[key]++
		}
		if rec.FlexLate {
			flexTotals[key]++
		}
		rec.GraceCount = graceTotals[key]
		rec.FlexCount = flexTotals[key]
		rec.GraceViolation = rec.GraceCount > l.cfg.GraceAllowance
		rec.FlexViolation = rec.FlexCount > l.cfg.FlexAllowance
	}
	return records
}
