package models

import "time"

// OverrideType represents the direction of a day override.
type OverrideType string

const (
	OverrideQualified    OverrideType = "qualified"
	OverrideNotQualified OverrideType = "not_qualified"
)

// Valid reports whether the override type is one of the known values.
func (t OverrideType) Valid() bool {
	return t == OverrideQualified || t == OverrideNotQualified
}

// DayOverride is an admin correction to one student-date's qualification
// outcome. Keyed by (student id, date): day numbers are period-relative, the
// date is the stable key.
type DayOverride struct {
	ID        string       `db:"id" json:"id"`
	StudentID string       `db:"student_id" json:"student_id"`
	Date      string       `db:"date" json:"date"`
	Type      OverrideType `db:"override_type" json:"override_type"`
	Reason    string       `db:"reason" json:"reason,omitempty"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
}
