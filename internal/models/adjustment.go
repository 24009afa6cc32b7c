package models

import "time"

// ScopeGlobal is the sentinel period key marking an adjustment that applies
// to the student's total across all periods.
const ScopeGlobal = "__GLOBAL__"

// CoinAdjustment is a signed manual correction to a student's balance,
// scoped to a (period, section) pair or global. Soft-deleted via the active
// flag so the audit trail survives.
type CoinAdjustment struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	PeriodKey string    `db:"period_key" json:"period_key"`
	SectionID string    `db:"section_id" json:"section_id"`
	Amount    int       `db:"amount" json:"amount"`
	Reason    string    `db:"reason" json:"reason"`
	CreatedBy string    `db:"created_by" json:"created_by"`
	Active    bool      `db:"active" json:"active"`
	RequestID *string   `db:"request_id" json:"request_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Global reports whether the adjustment applies across all periods.
func (a CoinAdjustment) Global() bool {
	return a.PeriodKey == ScopeGlobal
}
