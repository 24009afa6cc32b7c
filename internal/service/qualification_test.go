package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/aleks-coins-api/internal/models"
	appErrors "github.com/noah-isme/aleks-coins-api/pkg/errors"
)

var testThresholds = Thresholds{MinMinutes: 31, MinTopics: 1}

func date(raw string) time.Time {
	parsed, err := ParseLocalDate(raw)
	if err != nil {
		panic(err)
	}
	return parsed
}

func TestBuildPeriodCalendar(t *testing.T) {
	days, err := BuildPeriodCalendar(date("2025-06-24"), date("2025-06-26"), []string{"2025-06-25"})
	require.NoError(t, err)
	require.Len(t, days, 3)

	assert.Equal(t, 1, days[0].DayNumber)
	assert.False(t, days[0].IsExcluded)
	assert.Equal(t, 2, days[1].DayNumber)
	assert.True(t, days[1].IsExcluded)
	assert.Equal(t, 3, days[2].DayNumber)
	assert.False(t, days[2].IsExcluded)
	assert.Equal(t, "2025-06-26", days[2].Date.Format("2006-01-02"))
}

func TestBuildPeriodCalendarMonthAndYearRollover(t *testing.T) {
	days, err := BuildPeriodCalendar(date("2024-12-30"), date("2025-01-02"), nil)
	require.NoError(t, err)
	require.Len(t, days, 4)
	assert.Equal(t, "2024-12-31", days[1].Date.Format("2006-01-02"))
	assert.Equal(t, "2025-01-01", days[2].Date.Format("2006-01-02"))

	// leap February
	days, err = BuildPeriodCalendar(date("2024-02-27"), date("2024-03-01"), nil)
	require.NoError(t, err)
	require.Len(t, days, 4)
	assert.Equal(t, "2024-02-29", days[2].Date.Format("2006-01-02"))

	for i, day := range days {
		assert.Equal(t, i+1, day.DayNumber)
	}
}

func TestBuildPeriodCalendarInvalidRange(t *testing.T) {
	_, err := BuildPeriodCalendar(date("2025-06-26"), date("2025-06-24"), nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidRange.Code, appErrors.FromError(err).Code)
}

func TestBuildPeriodCalendarInvalidExcludedDate(t *testing.T) {
	_, err := BuildPeriodCalendar(date("2025-06-24"), date("2025-06-26"), []string{"06/25/2025"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidDate.Code, appErrors.FromError(err).Code)

	_, err = BuildPeriodCalendar(date("2025-06-24"), date("2025-06-26"), []string{""})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidDate.Code, appErrors.FromError(err).Code)
}

func TestQualifyDayMeetsBothThresholds(t *testing.T) {
	qualified, reason := QualifyDay(45, 2, false, testThresholds)
	assert.True(t, qualified)
	assert.Contains(t, reason, "45 minutes")
	assert.Contains(t, reason, "2 topics")
}

func TestQualifyDayBothShortfalls(t *testing.T) {
	qualified, reason := QualifyDay(20, 0, false, testThresholds)
	assert.False(t, qualified)
	assert.Contains(t, reason, "20 of 31 required minutes")
	assert.Contains(t, reason, "0 of 1 required topics")
}

func TestQualifyDaySingleShortfall(t *testing.T) {
	qualified, reason := QualifyDay(60, 0.5, false, testThresholds)
	assert.False(t, qualified)
	assert.NotContains(t, reason, "minutes")
	assert.Contains(t, reason, "0.5 of 1 required topics")

	qualified, reason = QualifyDay(30, 3, false, testThresholds)
	assert.False(t, qualified)
	assert.Contains(t, reason, "30 of 31 required minutes")
	assert.NotContains(t, reason, "topics")
}

func TestQualifyDayExemptNeverQualifies(t *testing.T) {
	qualified, reason := QualifyDay(120, 5, true, testThresholds)
	assert.False(t, qualified)
	assert.Contains(t, reason, "Exempt day")
}

func buildDay(dayNumber int, dateStr string, minutes int, topics float64, excluded bool) models.DayQualification {
	qualified, reason := QualifyDay(minutes, topics, excluded, testThresholds)
	return models.DayQualification{
		DayNumber:  dayNumber,
		Date:       dateStr,
		Minutes:    minutes,
		Topics:     topics,
		IsExcluded: excluded,
		Qualified:  qualified,
		Reason:     reason,
	}
}

func TestAggregateDaysCoinsAndPercent(t *testing.T) {
	var days []models.DayQualification
	// 10 working days, 8 qualified
	for i := 1; i <= 8; i++ {
		days = append(days, buildDay(i, "2025-06-01", 45, 2, false))
	}
	days = append(days, buildDay(9, "2025-06-09", 10, 0, false))
	days = append(days, buildDay(10, "2025-06-10", 0, 0, false))
	// exempt day whose raw activity would have qualified
	days = append(days, buildDay(11, "2025-06-11", 50, 1, true))

	agg := AggregateDays(days, 11, testThresholds)
	assert.Equal(t, 9, agg.Coins)
	assert.Equal(t, 10, agg.PeriodDays)
	assert.Equal(t, 11, agg.TotalDays)
	assert.Equal(t, 90.0, agg.PercentComplete)
}

func TestAggregateDaysExemptWithoutActivityEarnsNoCredit(t *testing.T) {
	days := []models.DayQualification{
		buildDay(1, "2025-06-01", 45, 2, false),
		buildDay(2, "2025-06-02", 0, 0, true),
	}
	agg := AggregateDays(days, 2, testThresholds)
	assert.Equal(t, 1, agg.Coins)
	assert.Equal(t, 1, agg.PeriodDays)
}

func TestAggregateDaysEmpty(t *testing.T) {
	agg := AggregateDays(nil, 0, testThresholds)
	assert.Equal(t, 0, agg.Coins)
	assert.Equal(t, 0, agg.TotalDays)
	assert.Equal(t, 0, agg.PeriodDays)
	assert.Equal(t, 0.0, agg.PercentComplete)
}

func TestAggregateDaysPercentWithinBounds(t *testing.T) {
	days := []models.DayQualification{
		buildDay(1, "2025-06-01", 45, 2, false),
		buildDay(2, "2025-06-02", 45, 2, false),
		buildDay(3, "2025-06-03", 50, 1, true),
	}
	agg := AggregateDays(days, 3, testThresholds)
	// exempt credit can push coins past the working-day count, percent caps the ratio as computed
	assert.Equal(t, 3, agg.Coins)
	assert.Equal(t, 150.0, agg.PercentComplete)

	working := []models.DayQualification{
		buildDay(1, "2025-06-01", 45, 2, false),
		buildDay(2, "2025-06-02", 45, 2, false),
		buildDay(3, "2025-06-03", 0, 0, false),
	}
	agg = AggregateDays(working, 3, testThresholds)
	assert.InDelta(t, 66.7, agg.PercentComplete, 0.001)
}

func TestApplyOverridesReplacesFlagAndReason(t *testing.T) {
	days := []models.DayQualification{
		buildDay(1, "2025-06-01", 10, 0, false),
		buildDay(2, "2025-06-02", 45, 2, false),
	}
	overrides := map[string]models.DayOverride{
		"2025-06-01": {StudentID: "abc123", Date: "2025-06-01", Type: models.OverrideQualified, Reason: "documented outage"},
		"2025-06-02": {StudentID: "abc123", Date: "2025-06-02", Type: models.OverrideNotQualified},
	}

	result := ApplyOverrides(days, overrides)
	require.Len(t, result, 2)
	assert.True(t, result[0].Qualified)
	assert.Equal(t, "documented outage", result[0].Reason)
	assert.True(t, result[0].Overridden)
	assert.False(t, result[1].Qualified)
	// empty override reason keeps the computed reason
	assert.Equal(t, days[1].Reason, result[1].Reason)

	// the input sequence is untouched
	assert.False(t, days[0].Qualified)
}

func TestApplyOverridesIdempotent(t *testing.T) {
	days := []models.DayQualification{
		buildDay(1, "2025-06-01", 10, 0, false),
		buildDay(2, "2025-06-02", 45, 2, true),
	}
	overrides := map[string]models.DayOverride{
		"2025-06-01": {Date: "2025-06-01", Type: models.OverrideQualified, Reason: "makeup session"},
		"2025-06-02": {Date: "2025-06-02", Type: models.OverrideNotQualified, Reason: "revoked"},
	}

	once := ApplyOverrides(days, overrides)
	twice := ApplyOverrides(once, overrides)
	assert.Equal(t, once, twice)
	assert.Equal(t, AggregateDays(once, 2, testThresholds), AggregateDays(twice, 2, testThresholds))
}

func TestApplyOverridesOnExemptDayControlsCredit(t *testing.T) {
	// exempt day with no activity: normally no credit
	days := []models.DayQualification{buildDay(1, "2025-06-01", 0, 0, true)}
	granted := ApplyOverrides(days, map[string]models.DayOverride{
		"2025-06-01": {Date: "2025-06-01", Type: models.OverrideQualified, Reason: "credit granted"},
	})
	assert.True(t, granted[0].IsExcluded)
	agg := AggregateDays(granted, 1, testThresholds)
	assert.Equal(t, 1, agg.Coins)

	// exempt day that would have earned credit, explicitly revoked
	days = []models.DayQualification{buildDay(1, "2025-06-01", 60, 3, true)}
	revoked := ApplyOverrides(days, map[string]models.DayOverride{
		"2025-06-01": {Date: "2025-06-01", Type: models.OverrideNotQualified},
	})
	agg = AggregateDays(revoked, 1, testThresholds)
	assert.Equal(t, 0, agg.Coins)
}

func TestComputeBalanceScopedAndGlobal(t *testing.T) {
	records := []models.StudentPeriodRecord{
		{PeriodKey: "exam1", SectionID: "s1", Coins: 5},
		{PeriodKey: "exam2", SectionID: "s1", Coins: 3},
	}
	adjustments := []models.CoinAdjustment{
		{PeriodKey: "exam1", SectionID: "s1", Amount: -2, Active: true},
		{PeriodKey: models.ScopeGlobal, Amount: -20, Active: true},
	}
	// (5-2)+(3+0)-20 = -14, clamped to 0
	assert.Equal(t, 0, ComputeBalance(records, adjustments))
}

func TestComputeBalanceNeverNegative(t *testing.T) {
	records := []models.StudentPeriodRecord{{PeriodKey: "exam1", SectionID: "s1", Coins: 2}}
	adjustments := []models.CoinAdjustment{
		{PeriodKey: "exam1", SectionID: "s1", Amount: -100, Active: true},
	}
	assert.Equal(t, 0, ComputeBalance(records, adjustments))
	assert.Equal(t, 0, ComputeBalance(nil, adjustments))
}

func TestComputeBalanceIgnoresInactiveAndUnmatchedScopes(t *testing.T) {
	records := []models.StudentPeriodRecord{{PeriodKey: "exam1", SectionID: "s1", Coins: 4}}
	adjustments := []models.CoinAdjustment{
		{PeriodKey: "exam1", SectionID: "s1", Amount: -1, Active: false},
		{PeriodKey: "exam9", SectionID: "s1", Amount: 50, Active: true},
		{PeriodKey: models.ScopeGlobal, Amount: 2, Active: true},
	}
	assert.Equal(t, 6, ComputeBalance(records, adjustments))
}

func TestComputeBalanceGlobalAppliesWithoutRecords(t *testing.T) {
	adjustments := []models.CoinAdjustment{{PeriodKey: models.ScopeGlobal, Amount: 7, Active: true}}
	assert.Equal(t, 7, ComputeBalance(nil, adjustments))
}
