package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// DayQualification is one student's outcome for one calendar day of a
// period. Records are recomputed wholesale, never patched field by field.
type DayQualification struct {
	DayNumber  int     `json:"day"`
	Date       string  `json:"date"`
	Minutes    int     `json:"minutes"`
	Topics     float64 `json:"topics"`
	IsExcluded bool    `json:"is_excluded"`
	Qualified  bool    `json:"qualified"`
	Reason     string  `json:"reason"`
	// Overridden marks that an admin override replaced the computed
	// qualified flag; aggregation trusts the flag as stored for these days.
	Overridden bool `json:"overridden,omitempty"`
}

// DailyLog stores the ordered day qualification records as a JSONB column.
type DailyLog []DayQualification

// Value implements driver.Valuer.
func (l DailyLog) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	raw, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("marshal daily log: %w", err)
	}
	return string(raw), nil
}

// Scan implements sql.Scanner.
func (l *DailyLog) Scan(src interface{}) error {
	if src == nil {
		*l = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported daily log source %T", src)
	}
	return json.Unmarshal(raw, l)
}

// StudentPeriodRecord is one student's progress within one period+section.
// Identity is (period key, section id, lowercased student id).
type StudentPeriodRecord struct {
	PeriodKey       string    `db:"period_key" json:"period_key"`
	SectionID       string    `db:"section_id" json:"section_id"`
	StudentID       string    `db:"student_id" json:"student_id"`
	Name            string    `db:"name" json:"name"`
	Email           string    `db:"email" json:"email"`
	Coins           int       `db:"coins" json:"coins"`
	TotalDays       int       `db:"total_days" json:"total_days"`
	PeriodDays      int       `db:"period_days" json:"period_days"`
	PercentComplete float64   `db:"percent_complete" json:"percent_complete"`
	DailyLog        DailyLog  `db:"daily_log" json:"daily_log"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// UploadRow is one parsed spreadsheet row. Days maps the observed day number
// to that day's raw activity; column binding happens in the upload layer.
type UploadRow struct {
	StudentID string            `json:"student_id"`
	Name      string            `json:"name"`
	Email     string            `json:"email"`
	Days      map[int]UploadDay `json:"days"`
}

// UploadDay carries the raw per-day activity values as they appear in the
// spreadsheet: a clock-style time total and a possibly fractional topic count.
type UploadDay struct {
	Time   string  `json:"time"`
	Topics float64 `json:"topics"`
}

// UploadSummary reports the outcome of an upload merge.
type UploadSummary struct {
	Students int `json:"students"`
	Skipped  int `json:"skipped"`
}
