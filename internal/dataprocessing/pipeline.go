package dataprocessing

import (
	"context"
	"log/slog"
	"time"

	"attendcli/internal/config"
	"attendcli/internal/errors"
	"attendcli/pkg/contracts/domain"
)

// RuleConfig carries every policy threshold the engine consumes. Thresholds
// live here rather than as literals inside the rules so that policy changes
// never touch rule logic.
type RuleConfig struct {
	// Shift thresholds as wall-clock times.
	ShiftStart domain.ClockTime
	GraceLimit domain.ClockTime
	FlexLimit  domain.ClockTime

	// Per-cycle arrival allowances before a violation.
	GraceAllowance int
	FlexAllowance  int

	// Working-hours boundaries for short and reduced days.
	ShortDayHours float64
	FullDayHours  float64

	// Average-hours override policy.
	AverageHoursBar float64
	FlexForgiveness int

	// Days subtracted from a record date to locate its pay cycle.
	CycleShiftDays int
}

// DefaultRuleConfig returns the stock policy.
func DefaultRuleConfig() RuleConfig {
	cfg, err := RuleConfigFromProcessing(config.DefaultProcessingConfig())
	if err != nil {
		// the stock clock strings always parse
		panic(err)
	}
	return cfg
}

// RuleConfigFromProcessing converts the application-level processing
// configuration into engine thresholds, parsing the clock strings.
func RuleConfigFromProcessing(pc config.ProcessingConfig) (RuleConfig, error) {
	shiftStart := ParseClock(pc.ShiftStart)
	if !shiftStart.Valid {
		return RuleConfig{}, errors.NewConfigError("invalid shift start time: "+pc.ShiftStart, nil)
	}
	graceLimit := ParseClock(pc.GraceLimit)
	if !graceLimit.Valid {
		return RuleConfig{}, errors.NewConfigError("invalid grace limit time: "+pc.GraceLimit, nil)
	}
	flexLimit := ParseClock(pc.FlexLimit)
	if !flexLimit.Valid {
		return RuleConfig{}, errors.NewConfigError("invalid flex limit time: "+pc.FlexLimit, nil)
	}

	return RuleConfig{
		ShiftStart:      shiftStart,
		GraceLimit:      graceLimit,
		FlexLimit:       flexLimit,
		GraceAllowance:  pc.GraceAllowance,
		FlexAllowance:   pc.FlexAllowance,
		ShortDayHours:   pc.ShortDayHours,
		FullDayHours:    pc.FullDayHours,
		AverageHoursBar: pc.AverageHoursBar,
		FlexForgiveness: pc.FlexForgiveness,
		CycleShiftDays:  pc.CycleShiftDays,
	}, nil
}

// Pipeline wires the processing stages together in dependency order. A
// Pipeline is safe for concurrent use: every run works on its own record
// slice and no stage retains state between runs.
type Pipeline struct {
	cfg        RuleConfig
	logger     *slog.Logger
	normalizer *TimeNormalizer
	hours      *HoursCalculator
	lateness   *LatenessCounter
	rules      *RuleEngine
	aggregator *Aggregator
}

// NewPipeline creates a pipeline with the given rule configuration.
func NewPipeline(logger *slog.Logger, cfg RuleConfig) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		cfg:        cfg,
		logger:     logger,
		normalizer: NewTimeNormalizer(logger, cfg),
		hours:      NewHoursCalculator(),
		lateness:   NewLatenessCounter(cfg),
		rules:      NewRuleEngine(logger, cfg),
		aggregator: NewAggregator(logger, cfg),
	}
}

// Config returns the policy thresholds the pipeline runs with.
func (p *Pipeline) Config() RuleConfig {
	return p.cfg
}

// Process runs the full engine over one raw table and returns every derived
// table. The input table is not retained. Structural defects (missing
// required columns, no data rows) abort the run; per-row defects degrade to
// safe defaults and processing continues.
func (p *Pipeline) Process(ctx context.Context, table *domain.RawTable) (*domain.ProcessingResult, error) {
	start := time.Now()

	if table == nil || len(table.Rows) == 0 {
		return nil, errors.ErrReportEmpty
	}

	records, err := BuildRecords(table)
	if err != nil {
		return nil, err
	}

	records = p.normalizer.Normalize(ctx, records)
	records = p.hours.Calculate(records)
	records = p.lateness.Count(records)
	records = p.rules.Apply(ctx, records)
	records = p.aggregator.Finalize(ctx, records)

	deductions := make([]domain.AttendanceRecord, 0)
	degraded := 0
	for i := range records {
		if !records[i].HasDate() {
			degraded++
		}
		if records[i].DayDeduction > 0 {
			deductions = append(deductions, records[i])
		}
	}

	summaries := p.aggregator.Summarize(ctx, records)

	result := &domain.ProcessingResult{
		Records:    records,
		Deductions: deductions,
		Summaries:  summaries,
		Stats: domain.ProcessingStats{
			RowsIn:        len(records),
			DegradedRows:  degraded,
			DeductionRows: len(deductions),
			SummaryRows:   len(summaries),
		},
	}

	p.logger.InfoContext(ctx, "attendance processing complete",
		slog.Int("rows_in", result.Stats.RowsIn),
		slog.Int("deduction_rows", result.Stats.DeductionRows),
		slog.Int("degraded_rows", result.Stats.DegradedRows),
		slog.Int("summary_rows", result.Stats.SummaryRows),
		slog.Duration("duration", time.Since(start)))

	return result, nil
}
