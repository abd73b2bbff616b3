package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"attendcli/pkg/contracts/domain"
)

const deductionDateLayout = "02/01/2006"

// Aggregator finalizes per-record payroll fields and rolls deduction-bearing
// records up into per-employee monthly summaries.
type Aggregator struct {
	cfg    RuleConfig
	logger *slog.Logger
}

// NewAggregator creates an aggregator with the given rule configuration.
func NewAggregator(logger *slog.Logger, cfg RuleConfig) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{cfg: cfg, logger: logger}
}

// Finalize assigns the payable-day fraction, the deduction reason, and the
// output serial number for every record.
//
// Payable day by status: week-off pays in full, absence pays nothing, and a
// present day pays one minus the deduction, clipped to [0, 1]. Any other
// status code pays nothing.
func (a *Aggregator) Finalize(ctx context.Context, records []domain.AttendanceRecord) []domain.AttendanceRecord {
	for i := range records {
		rec := &records[i]
		rec.SerialNo = i + 1

		switch rec.AttendanceStatus {
		case domain.StatusWeekOff:
			rec.PayableDay = 1.0
		case domain.StatusAbsent:
			rec.PayableDay = 0.0
		case domain.StatusPresent:
			rec.PayableDay = clip01(1.0 - rec.DayDeduction)
		default:
			rec.PayableDay = 0.0
		}

		rec.DeductionReason = a.deductionReason(rec)
	}
	return records
}

// deductionReason renders the ordered, comma-joined list of phrases that
// explain a deduction. Empty when nothing was deducted. The hour-based
// phrases are mutually exclusive; the rest are additive.
func (a *Aggregator) deductionReason(rec *domain.AttendanceRecord) string {
	if rec.DayDeduction <= 0 {
		return ""
	}

	var reasons []string
	if rec.LateBeyondGrace {
		reasons = append(reasons, "Late beyond grace")
	}
	if rec.FlexViolation {
		reasons = append(reasons, "Flex violation")
	}
	if rec.WorkingHours < a.cfg.ShortDayHours {
		reasons = append(reasons, fmt.Sprintf("Working hours < %g", a.cfg.ShortDayHours))
	} else if rec.WorkingHours < a.cfg.FullDayHours {
		reasons = append(reasons, fmt.Sprintf("Working hours between %g–%g", a.cfg.ShortDayHours, a.cfg.FullDayHours))
	}
	if rec.GraceViolation {
		reasons = append(reasons, fmt.Sprintf("Grace violation > %d", a.cfg.GraceAllowance))
	}
	return strings.Join(reasons, ", ")
}

// summaryKey groups deduction rows for the monthly summary table.
type summaryKey struct {
	employeeID string
	month      string
}

// Summarize builds the per-employee monthly summary from records carrying a
// deduction, one row per (employee, calendar month) with the name and
// designation taken from the group's first record. Rows without a resolvable
// date cannot join a monthly group and are skipped. The result is sorted by
// employee then month and is empty, never nil, when no record carries a
// deduction.
func (a *Aggregator) Summarize(ctx context.Context, records []domain.AttendanceRecord) []domain.EmployeeSummary {
	type accum struct {
		summary domain.EmployeeSummary
		dates   map[string]struct{}
	}

	groups := make(map[summaryKey]*accum)
	order := make([]summaryKey, 0)

	for i := range records {
		rec := &records[i]
		if rec.DayDeduction <= 0 || !rec.HasDate() {
			continue
		}

		key := summaryKey{
			employeeID: rec.EmployeeID,
			month:      rec.CalendarMonth,
		}
		acc := groups[key]
		if acc == nil {
			acc = &accum{
				summary: domain.EmployeeSummary{
					EmployeeID:    rec.EmployeeID,
					EmployeeName:  rec.EmployeeName,
					Designation:   rec.Designation,
					CalendarMonth: rec.CalendarMonth,
				},
				dates: make(map[string]struct{}),
			}
			groups[key] = acc
			order = append(order, key)
		}

		acc.dates[rec.Date.Format(deductionDateLayout)] = struct{}{}
		acc.summary.TotalFullDayDeductions += rec.FullDay
		acc.summary.TotalHalfDayDeductions += rec.HalfDay
		acc.summary.TotalDeductions += rec.DayDeduction
		if rec.GraceViolation {
			acc.summary.GraceViolationCount++
		}
		if rec.FlexViolation {
			acc.summary.FlexViolationCount++
		}
		if rec.WorkingHours < a.cfg.ShortDayHours {
			acc.summary.WorkingHoursLess8Count++
		} else if rec.WorkingHours < a.cfg.FullDayHours {
			acc.summary.WorkingHoursBetween8And9Count++
		}
		if rec.LateBeyondGrace {
			acc.summary.LateBeyondGraceCount++
		}
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].employeeID != order[j].employeeID {
			return order[i].employeeID < order[j].employeeID
		}
		return order[i].month < order[j].month
	})

	summaries := make([]domain.EmployeeSummary, 0, len(order))
	for i, key := range order {
		acc := groups[key]

		dates := make([]string, 0, len(acc.dates))
		for d := range acc.dates {
			dates = append(dates, d)
		}
		sort.Strings(dates)

		s := acc.summary
		s.SerialNo = i + 1
		s.DeductionDates = strings.Join(dates, ", ")
		s.TotalFullDayDeductions = round1(s.TotalFullDayDeductions)
		s.TotalHalfDayDeductions = round1(s.TotalHalfDayDeductions)
		s.TotalDeductions = round1(s.TotalDeductions)
		summaries = append(summaries, s)
	}

	a.logger.DebugContext(ctx, "employee summaries built",
		slog.Int("summaries", len(summaries)))

	return summaries
}

func clip01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
