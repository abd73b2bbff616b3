package dataprocessing

import (
	"context"
	"log/slog"
	"math"

	"attendcli/pkg/contracts/domain"
)

// deductionEffect names the record field a rule assigns when it matches.
type deductionEffect int

const (
	effectFullDay deductionEffect = iota
	effectHalfDay
)

// DeductionRule is one row of the ordered rule table. Rules are scanned in
// order and the first match per effect wins, so each predicate must be
// self-contained rather than relying on else-chaining.
type DeductionRule struct {
	Name    string
	Effect  deductionEffect
	Amount  float64
	Matches func(rec *domain.AttendanceRecord, cfg RuleConfig) bool
}

// deductionRules builds the rule table. Ordering encodes precedence:
// recurring lateness beyond the grace window is judged first, then plain
// short days for employees who arrived on time.
func deductionRules() []DeductionRule {
	return []DeductionRule{
		{
			Name:   "late_recurrent_short_day",
			Effect: effectFullDay,
			Amount: 1.0,
			Matches: func(rec *domain.AttendanceRecord, cfg RuleConfig) bool {
				return rec.WorkingDay && rec.LateBeyondGrace && rec.GraceViolation &&
					rec.WorkingHours < cfg.FullDayHours
			},
		},
		{
			Name:   "late_recurrent_outside_flex",
			Effect: effectHalfDay,
			Amount: 0.5,
			Matches: func(rec *domain.AttendanceRecord, cfg RuleConfig) bool {
				return rec.WorkingDay && rec.LateBeyondGrace && rec.GraceViolation &&
					rec.WorkingHours >= cfg.FullDayHours &&
					(!rec.FlexLate || rec.FlexViolation)
			},
		},
		{
			Name:   "on_time_short_day",
			Effect: effectFullDay,
			Amount: 1.0,
			Matches: func(rec *domain.AttendanceRecord, cfg RuleConfig) bool {
				return rec.WorkingDay && !rec.LateBeyondGrace &&
					rec.WorkingHours < cfg.ShortDayHours
			},
		},
		{
			Name:   "on_time_reduced_day",
			Effect: effectHalfDay,
			Amount: 0.5,
			Matches: func(rec *domain.AttendanceRecord, cfg RuleConfig) bool {
				return rec.WorkingDay && !rec.LateBeyondGrace &&
					rec.WorkingHours >= cfg.ShortDayHours &&
					rec.WorkingHours < cfg.FullDayHours
			},
		},
	}
}

// RuleEngine applies the deduction rule table plus the average-hours
// override to a record batch.
type RuleEngine struct {
	cfg    RuleConfig
	rules  []DeductionRule
	logger *slog.Logger
}

// NewRuleEngine creates an engine with the stock rule table.
func NewRuleEngine(logger *slog.Logger, cfg RuleConfig) *RuleEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &RuleEngine{cfg: cfg, rules: deductionRules(), logger: logger}
}

// Apply evaluates every record against the rule table, then runs the
// average-hours override as a second pass that may zero deductions assigned
// by the first.
func (e *RuleEngine) Apply(ctx context.Context, records []domain.AttendanceRecord) []domain.AttendanceRecord {
	deducted := 0
	for i := range records {
		e.evaluate(&records[i])
		if records[i].DayDeduction > 0 {
			deducted++
		}
	}

	forgiven := e.applyAverageHoursOverride(records)

	e.logger.InfoContext(ctx, "deduction rules applied",
		slog.Int("records", len(records)),
		slog.Int("deductions", deducted),
		slog.Int("forgiven", forgiven))

	return records
}

func (e *RuleEngine) evaluate(rec *domain.AttendanceRecord) {
	for _, rule := range e.rules {
		switch rule.Effect {
		case effectFullDay:
			if rec.FullDay == 0 && rule.Matches(rec, e.cfg) {
				rec.FullDay = rule.Amount
			}
		case effectHalfDay:
			if rec.HalfDay == 0 && rule.Matches(rec, e.cfg) {
				rec.HalfDay = rule.Amount
			}
		}
	}
	rec.DayDeduction = math.Max(rec.HalfDay, rec.FullDay)
}

// applyAverageHoursOverride forgives flex-window arrivals for employees
// whose mean working hours across all working days clear the configured
// bar. The forgiveness budget is per employee across the whole batch, spent
// on flex-late rows in source order whether or not the row carried a
// deduction. Returns the number of rows actually zeroed.
func (e *RuleEngine) applyAverageHoursOverride(records []domain.AttendanceRecord) int {
	type hoursAccum struct {
		sum  float64
		days int
	}

	totals := make(map[string]*hoursAccum)
	for i := range records {
		if !records[i].WorkingDay {
			continue
		}
		acc := totals[records[i].EmployeeID]
		if acc == nil {
			acc = &hoursAccum{}
			totals[records[i].EmployeeID] = acc
		}
		acc.sum += records[i].WorkingHours
		acc.days++
	}

	spent := make(map[string]int)
	zeroed := 0
	for i := range records {
		rec := &records[i]
		if !rec.FlexLate {
			continue
		}
		acc := totals[rec.EmployeeID]
		if acc == nil || acc.days == 0 {
			continue
		}
		if acc.sum/float64(acc.days) <= e.cfg.AverageHoursBar {
			continue
		}
		if spent[rec.EmployeeID] >= e.cfg.FlexForgiveness {
			continue
		}
		spent[rec.EmployeeID]++

		if rec.DayDeduction > 0 {
			zeroed++
		}
		rec.HalfDay = 0
		rec.FullDay = 0
		rec.DayDeduction = 0
	}
	return zeroed
}
