package service

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/aleks-coins-api/internal/models"
	appErrors "github.com/noah-isme/aleks-coins-api/pkg/errors"
)

const dateLayout = "2006-01-02"

// Thresholds holds the per-day qualification minimums.
type Thresholds struct {
	MinMinutes int
	MinTopics  int
}

// Aggregate summarises a student's day qualification records for one
// period+section.
type Aggregate struct {
	Coins           int
	TotalDays       int
	PeriodDays      int
	PercentComplete float64
}

// ParseLocalDate parses a YYYY-MM-DD string into a timezone-naive calendar
// date, normalised to midnight UTC so date arithmetic never shifts across
// day boundaries.
func ParseLocalDate(raw string) (time.Time, error) {
	parsed, err := time.Parse(dateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrInvalidDate.Code, appErrors.ErrInvalidDate.Status, fmt.Sprintf("malformed date %q, expected YYYY-MM-DD", raw))
	}
	return normalizeDate(parsed), nil
}

func normalizeDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// BuildPeriodCalendar expands a period into its ordered calendar days, one
// entry per date from start to end inclusive. Day numbers start at 1 and
// increment by exactly one per calendar day regardless of exclusion.
func BuildPeriodCalendar(start, end time.Time, excludedDates []string) ([]models.CalendarDay, error) {
	start = normalizeDate(start)
	end = normalizeDate(end)
	if start.After(end) {
		return nil, appErrors.Clone(appErrors.ErrInvalidRange, fmt.Sprintf("start date %s is after end date %s", start.Format(dateLayout), end.Format(dateLayout)))
	}

	excluded := make(map[string]struct{}, len(excludedDates))
	for _, raw := range excludedDates {
		date, err := ParseLocalDate(raw)
		if err != nil {
			return nil, err
		}
		excluded[date.Format(dateLayout)] = struct{}{}
	}

	var days []models.CalendarDay
	number := 1
	for current := start; !current.After(end); current = current.AddDate(0, 0, 1) {
		_, isExcluded := excluded[current.Format(dateLayout)]
		days = append(days, models.CalendarDay{DayNumber: number, Date: current, IsExcluded: isExcluded})
		number++
	}
	return days, nil
}

// QualifyDay decides whether one day's raw activity qualifies. Exempt days
// never qualify on their own; the exemption message is informational, not a
// pass. The reason always carries the observed values.
func QualifyDay(minutes int, topics float64, excluded bool, t Thresholds) (bool, string) {
	if excluded {
		return false, "Exempt day: ALEKS activity not required"
	}
	if meetsThresholds(minutes, topics, t) {
		return true, fmt.Sprintf("Qualified: %d minutes (min %d) and %s topics (min %d)", minutes, t.MinMinutes, formatTopics(topics), t.MinTopics)
	}
	var shortfalls []string
	if minutes < t.MinMinutes {
		shortfalls = append(shortfalls, fmt.Sprintf("only %d of %d required minutes", minutes, t.MinMinutes))
	}
	if topics < float64(t.MinTopics) {
		shortfalls = append(shortfalls, fmt.Sprintf("only %s of %d required topics", formatTopics(topics), t.MinTopics))
	}
	return false, "Not qualified: " + strings.Join(shortfalls, "; ")
}

func meetsThresholds(minutes int, topics float64, t Thresholds) bool {
	return minutes >= t.MinMinutes && topics >= float64(t.MinTopics)
}

func formatTopics(topics float64) string {
	return strconv.FormatFloat(topics, 'f', -1, 64)
}

// AggregateDays folds a student's day qualification records into coin and
// percent totals. Working days count toward completion; exempt days only
// contribute credit when their raw activity would have qualified, except that
// an explicit admin override on an exempt day is honoured as stored.
func AggregateDays(days []models.DayQualification, observedDayCount int, t Thresholds) Aggregate {
	var completedWorking, qualifiedWorking, exemptCredits int
	for _, day := range days {
		if day.IsExcluded {
			if day.Overridden {
				if day.Qualified {
					exemptCredits++
				}
			} else if meetsThresholds(day.Minutes, day.Topics, t) {
				exemptCredits++
			}
			continue
		}
		completedWorking++
		if day.Qualified {
			qualifiedWorking++
		}
	}

	coins := qualifiedWorking + exemptCredits
	var percent float64
	if completedWorking > 0 {
		percent = math.Round(float64(coins)/float64(completedWorking)*1000) / 10
	}
	return Aggregate{
		Coins:           coins,
		TotalDays:       observedDayCount,
		PeriodDays:      completedWorking,
		PercentComplete: percent,
	}
}

// ApplyOverrides returns a new day sequence with every record whose date
// matches an override carrying the override's qualified flag, and its reason
// when non-empty. Excluded flags are untouched. Applying the same override
// set twice yields the same sequence as applying it once.
func ApplyOverrides(days []models.DayQualification, overrides map[string]models.DayOverride) []models.DayQualification {
	if len(overrides) == 0 {
		return append([]models.DayQualification(nil), days...)
	}
	result := make([]models.DayQualification, len(days))
	for i, day := range days {
		if override, ok := overrides[day.Date]; ok {
			day.Qualified = override.Type == models.OverrideQualified
			if override.Reason != "" {
				day.Reason = override.Reason
			}
			day.Overridden = true
		}
		result[i] = day
	}
	return result
}

// ComputeBalance combines a student's post-override period coins with their
// active adjustments into a single non-negative balance. Period-scoped
// adjustments only count when the student has a record in that period and
// section; global adjustments always count.
func ComputeBalance(records []models.StudentPeriodRecord, adjustments []models.CoinAdjustment) int {
	scoped := make(map[string]int)
	global := 0
	for _, adj := range adjustments {
		if !adj.Active {
			continue
		}
		if adj.Global() {
			global += adj.Amount
			continue
		}
		scoped[adj.PeriodKey+"|"+adj.SectionID] += adj.Amount
	}

	total := 0
	for _, record := range records {
		total += record.Coins + scoped[record.PeriodKey+"|"+record.SectionID]
	}
	total += global
	if total < 0 {
		return 0
	}
	return total
}
