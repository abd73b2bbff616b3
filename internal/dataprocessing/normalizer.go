package dataprocessing

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"attendcli/pkg/contracts/domain"
)

// dateLayouts are tried in order when parsing the date column. Sources are
// day-first; the ISO layout covers re-exported reports.
var dateLayouts = []string{
	"2/1/2006",
	"2-1-2006",
	"2.1.2006",
	"2/1/06",
	"2006-01-02",
	"2 Jan 2006",
}

// clockLayouts are tried in order when parsing time-of-day cells. The
// trailing layouts accept punch cells carrying a full timestamp; only the
// clock component is kept.
var clockLayouts = []string{
	"15:04:05",
	"15:04",
	"3:04:05 PM",
	"3:04 PM",
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"2006-01-02 15:04:05",
}

const monthKeyLayout = "2006-01"

// TimeNormalizer resolves the temporal fields of a record batch: dates,
// month keys, punch clocks, and full punch timestamps.
type TimeNormalizer struct {
	cfg    RuleConfig
	logger *slog.Logger
}

// NewTimeNormalizer creates a normalizer with the given rule configuration.
func NewTimeNormalizer(logger *slog.Logger, cfg RuleConfig) *TimeNormalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &TimeNormalizer{cfg: cfg, logger: logger}
}

// Normalize processes records in source row order:
//
//  1. Attendance status is trimmed and uppercased.
//  2. The date cell is parsed day-first; rows that fail inherit the last
//     parsed date of the same employee (forward fill). Rows with no prior
//     date stay dateless and are treated as degraded downstream.
//  3. Cycle month (date shifted back by the configured cycle start) and
//     calendar month keys are derived for dated rows.
//  4. Punch cells are parsed as clock times, then combined with the row
//     date into full timestamps. A punch-out earlier than punch-in rolls
//     to the next day.
func (n *TimeNormalizer) Normalize(ctx context.Context, records []domain.AttendanceRecord) []domain.AttendanceRecord {
	lastDate := make(map[string]time.Time)
	filled := 0
	dateless := 0

	for i := range records {
		rec := &records[i]

		rec.AttendanceStatus = strings.ToUpper(strings.TrimSpace(rec.AttendanceStatus))

		rec.Date = parseDate(rec.DateRaw)
		if rec.Date.IsZero() {
			if prev, ok := lastDate[rec.EmployeeID]; ok {
				rec.Date = prev
				filled++
			}
		} else {
			lastDate[rec.EmployeeID] = rec.Date
		}

		if rec.HasDate() {
			rec.CycleMonth = rec.Date.AddDate(0, 0, -n.cfg.CycleShiftDays).Format(monthKeyLayout)
			rec.CalendarMonth = rec.Date.Format(monthKeyLayout)
		} else {
			dateless++
		}

		rec.PunchInTime = ParseClock(rec.PunchInRaw)
		rec.PunchOutTime = ParseClock(rec.PunchOutRaw)

		if rec.HasDate() {
			if rec.PunchInTime.Valid {
				rec.PunchIn = combine(rec.Date, rec.PunchInTime)
			}
			if rec.PunchOutTime.Valid {
				rec.PunchOut = combine(rec.Date, rec.PunchOutTime)
				if rec.PunchInTime.Valid && rec.PunchOut.Before(rec.PunchIn) {
					rec.PunchOut = rec.PunchOut.AddDate(0, 0, 1)
				}
			}
		}
	}

	n.logger.DebugContext(ctx, "normalized attendance records",
		slog.Int("records", len(records)),
		slog.Int("dates_filled", filled),
		slog.Int("dateless", dateless))

	return records
}

// parseDate parses a date cell day-first. Returns the zero time when the
// cell is empty or matches no known layout.
func parseDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

// ParseClock parses a time-of-day cell in 24-hour or 12-hour notation. A
// cell holding a full datetime contributes its clock component. Unparsable
// cells return an invalid ClockTime, never an error: a bad punch value
// degrades the row, it does not abort the run.
func ParseClock(raw string) domain.ClockTime {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.ClockTime{}
	}
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return domain.NewClockTime(t.Hour(), t.Minute(), t.Second())
		}
		if upper := strings.ToUpper(raw); upper != raw {
			if t, err := time.Parse(layout, upper); err == nil {
				return domain.NewClockTime(t.Hour(), t.Minute(), t.Second())
			}
		}
	}
	return domain.ClockTime{}
}

func combine(date time.Time, clock domain.ClockTime) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(),
		clock.Hour, clock.Minute, clock.Second, 0, date.Location())
}
