package models

import (
	"time"

	"github.com/lib/pq"
)

// Period is an administrator-defined exam period: a date range plus the
// calendar dates inside it that are exempt from qualification.
type Period struct {
	Key           string         `db:"key" json:"key"`
	Name          string         `db:"name" json:"name"`
	StartDate     time.Time      `db:"start_date" json:"start_date"`
	EndDate       time.Time      `db:"end_date" json:"end_date"`
	ExcludedDates pq.StringArray `db:"excluded_dates" json:"excluded_dates"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// CalendarDay is one calendar date inside a period. Derived from the period
// on every computation, never persisted.
type CalendarDay struct {
	DayNumber  int       `json:"day"`
	Date       time.Time `json:"date"`
	IsExcluded bool      `json:"is_excluded"`
}

// PeriodFilter defines filters supported by the period list endpoint.
type PeriodFilter struct {
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
