package dataprocessing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendcli/pkg/contracts/domain"
)

func TestDeductionRuleTable(t *testing.T) {
	rules := deductionRules()
	require.Len(t, rules, 4)

	// precedence: recurring-lateness rules first, then on-time hour rules
	assert.Equal(t, "late_recurrent_short_day", rules[0].Name)
	assert.Equal(t, effectFullDay, rules[0].Effect)
	assert.Equal(t, "late_recurrent_outside_flex", rules[1].Name)
	assert.Equal(t, effectHalfDay, rules[1].Effect)
	assert.Equal(t, "on_time_short_day", rules[2].Name)
	assert.Equal(t, effectFullDay, rules[2].Effect)
	assert.Equal(t, "on_time_reduced_day", rules[3].Name)
	assert.Equal(t, effectHalfDay, rules[3].Effect)
}

func TestRuleEngineEvaluate(t *testing.T) {
	tests := []struct {
		name     string
		rec      domain.AttendanceRecord
		wantHalf float64
		wantFull float64
	}{
		{
			name: "recurring late with short day costs a full day",
			rec: domain.AttendanceRecord{
				WorkingDay: true, LateBeyondGrace: true, GraceViolation: true,
				WorkingHours: 7.5,
			},
			wantFull: 1.0,
		},
		{
			name: "recurring late with full hours outside flex costs half",
			rec: domain.AttendanceRecord{
				WorkingDay: true, LateBeyondGrace: true, GraceViolation: true,
				WorkingHours: 9.5,
			},
			wantHalf: 0.5,
		},
		{
			name: "recurring late within exhausted flex allowance costs half",
			rec: domain.AttendanceRecord{
				WorkingDay: true, LateBeyondGrace: true, GraceViolation: true,
				FlexLate: true, FlexViolation: true, WorkingHours: 9.5,
			},
			wantHalf: 0.5,
		},
		{
			name: "recurring late but flex window still open is tolerated",
			rec: domain.AttendanceRecord{
				WorkingDay: true, LateBeyondGrace: true, GraceViolation: true,
				FlexLate: true, WorkingHours: 9.5,
			},
		},
		{
			name: "late without a grace violation is tolerated",
			rec: domain.AttendanceRecord{
				WorkingDay: true, LateBeyondGrace: true, WorkingHours: 7.0,
			},
		},
		{
			name: "on time but short day costs a full day",
			rec: domain.AttendanceRecord{
				WorkingDay: true, WorkingHours: 7.9,
			},
			wantFull: 1.0,
		},
		{
			name: "on time with reduced hours costs half",
			rec: domain.AttendanceRecord{
				WorkingDay: true, WorkingHours: 8.5,
			},
			wantHalf: 0.5,
		},
		{
			name: "exactly eight hours is a reduced day",
			rec: domain.AttendanceRecord{
				WorkingDay: true, WorkingHours: 8.0,
			},
			wantHalf: 0.5,
		},
		{
			name: "exactly nine hours is clean",
			rec: domain.AttendanceRecord{
				WorkingDay: true, WorkingHours: 9.0,
			},
		},
		{
			name: "zero hours on a working day costs a full day",
			rec: domain.AttendanceRecord{
				WorkingDay: true, WorkingHours: 0,
			},
			wantFull: 1.0,
		},
		{
			name: "non working day never deducts",
			rec: domain.AttendanceRecord{
				LateBeyondGrace: true, GraceViolation: true, WorkingHours: 2,
			},
		},
	}

	engine := NewRuleEngine(testLogger(), DefaultRuleConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := engine.Apply(context.Background(), []domain.AttendanceRecord{tt.rec})

			rec := records[0]
			assert.Equal(t, tt.wantHalf, rec.HalfDay)
			assert.Equal(t, tt.wantFull, rec.FullDay)
			assert.Equal(t, maxOf(tt.wantHalf, tt.wantFull), rec.DayDeduction)
		})
	}
}

func maxOf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func TestAverageHoursOverride(t *testing.T) {
	// long-hours employee: six flex arrivals, each carrying a full-day
	// deduction from recurring lateness
	makeFlexDay := func() domain.AttendanceRecord {
		return domain.AttendanceRecord{
			EmployeeID: "E002", WorkingDay: true,
			LateBeyondGrace: true, GraceViolation: true, FlexLate: true,
			WorkingHours: 8.5,
		}
	}

	records := make([]domain.AttendanceRecord, 0, 8)
	for i := 0; i < 6; i++ {
		records = append(records, makeFlexDay())
	}
	// two long clean days push the mean over the bar
	records = append(records,
		domain.AttendanceRecord{EmployeeID: "E002", WorkingDay: true, WorkingHours: 14},
		domain.AttendanceRecord{EmployeeID: "E002", WorkingDay: true, WorkingHours: 14},
	)
	// mean = (6*8.5 + 2*14) / 8 = 9.875 > 9.5

	engine := NewRuleEngine(testLogger(), DefaultRuleConfig())
	records = engine.Apply(context.Background(), records)

	for i := 0; i < 5; i++ {
		assert.Zero(t, records[i].DayDeduction, "flex day %d is forgiven", i+1)
		assert.Zero(t, records[i].HalfDay)
		assert.Zero(t, records[i].FullDay)
	}
	assert.Equal(t, 1.0, records[5].DayDeduction, "the budget covers five flex days, not six")
}

func TestAverageHoursOverrideBudgetSpentInRowOrder(t *testing.T) {
	// first three flex arrivals carry no deduction yet still consume budget
	records := []domain.AttendanceRecord{
		{EmployeeID: "E003", WorkingDay: true, FlexLate: true, LateBeyondGrace: true, WorkingHours: 11},
		{EmployeeID: "E003", WorkingDay: true, FlexLate: true, LateBeyondGrace: true, WorkingHours: 11},
		{EmployeeID: "E003", WorkingDay: true, FlexLate: true, LateBeyondGrace: true, WorkingHours: 11},
		{EmployeeID: "E003", WorkingDay: true, FlexLate: true, LateBeyondGrace: true, GraceViolation: true, WorkingHours: 8.5},
		{EmployeeID: "E003", WorkingDay: true, FlexLate: true, LateBeyondGrace: true, GraceViolation: true, WorkingHours: 8.5},
		{EmployeeID: "E003", WorkingDay: true, FlexLate: true, LateBeyondGrace: true, GraceViolation: true, WorkingHours: 8.5},
	}
	// mean = (3*11 + 3*8.5) / 6 = 9.75 > 9.5

	engine := NewRuleEngine(testLogger(), DefaultRuleConfig())
	records = engine.Apply(context.Background(), records)

	assert.Zero(t, records[3].DayDeduction, "fourth flex day spends the fourth budget slot")
	assert.Zero(t, records[4].DayDeduction)
	assert.Equal(t, 1.0, records[5].DayDeduction, "budget exhausted after five flex days")
}

func TestAverageHoursOverrideRequiresLongHours(t *testing.T) {
	records := []domain.AttendanceRecord{
		{EmployeeID: "E004", WorkingDay: true, FlexLate: true, LateBeyondGrace: true, GraceViolation: true, WorkingHours: 8.5},
		{EmployeeID: "E004", WorkingDay: true, WorkingHours: 9.5},
	}
	// mean = 9.0, under the bar

	engine := NewRuleEngine(testLogger(), DefaultRuleConfig())
	records = engine.Apply(context.Background(), records)

	assert.Equal(t, 1.0, records[0].DayDeduction, "no forgiveness without long average hours")
}

func TestAverageHoursOverrideNoWorkingDays(t *testing.T) {
	records := []domain.AttendanceRecord{
		{EmployeeID: "E005", FlexLate: true, WorkingHours: 12},
	}

	engine := NewRuleEngine(testLogger(), DefaultRuleConfig())
	records = engine.Apply(context.Background(), records)

	assert.Zero(t, records[0].DayDeduction)
	assert.Zero(t, records[0].HalfDay)
}
