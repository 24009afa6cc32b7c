package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/aleks-coins-api/internal/models"
)

// ProgressRepository persists student period records.
type ProgressRepository struct {
	db *sqlx.DB
}

// NewProgressRepository constructs a progress repository.
func NewProgressRepository(db *sqlx.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

const recordColumns = `period_key, section_id, student_id, name, email, coins, total_days, period_days, percent_complete, daily_log, updated_at`

// UpsertRecords merges uploaded records into the store. Each record is a
// single conditional write keyed by (period, section, student), so concurrent
// uploads resolve last-write-wins per student and students absent from the
// batch keep their previous record.
func (r *ProgressRepository) UpsertRecords(ctx context.Context, records []models.StudentPeriodRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin progress upsert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	query := `INSERT INTO student_period_records (` + recordColumns + `)
VALUES (:period_key, :section_id, :student_id, :name, :email, :coins, :total_days, :period_days, :percent_complete, :daily_log, :updated_at)
ON CONFLICT (period_key, section_id, student_id) DO UPDATE SET
name = EXCLUDED.name, email = EXCLUDED.email, coins = EXCLUDED.coins,
total_days = EXCLUDED.total_days, period_days = EXCLUDED.period_days,
percent_complete = EXCLUDED.percent_complete, daily_log = EXCLUDED.daily_log,
updated_at = EXCLUDED.updated_at`
	now := time.Now().UTC()
	for i := range records {
		records[i].UpdatedAt = now
		if _, err := tx.NamedExecContext(ctx, query, records[i]); err != nil {
			return fmt.Errorf("upsert student record %s: %w", records[i].StudentID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit progress upsert: %w", err)
	}
	return nil
}

// Get fetches one student's record for a period+section.
func (r *ProgressRepository) Get(ctx context.Context, periodKey, sectionID, studentID string) (*models.StudentPeriodRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM student_period_records
WHERE period_key = $1 AND section_id = $2 AND student_id = $3`
	var record models.StudentPeriodRecord
	if err := r.db.GetContext(ctx, &record, query, periodKey, sectionID, studentID); err != nil {
		return nil, err
	}
	return &record, nil
}

// ListByPeriodSection returns every record in a period+section ordered by name.
func (r *ProgressRepository) ListByPeriodSection(ctx context.Context, periodKey, sectionID string) ([]models.StudentPeriodRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM student_period_records
WHERE period_key = $1 AND section_id = $2 ORDER BY name ASC`
	var records []models.StudentPeriodRecord
	if err := r.db.SelectContext(ctx, &records, query, periodKey, sectionID); err != nil {
		return nil, fmt.Errorf("list records for %s/%s: %w", periodKey, sectionID, err)
	}
	return records, nil
}

// ListByStudent returns a student's records across all periods and sections.
func (r *ProgressRepository) ListByStudent(ctx context.Context, studentID string) ([]models.StudentPeriodRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM student_period_records
WHERE student_id = $1 ORDER BY period_key ASC, section_id ASC`
	var records []models.StudentPeriodRecord
	if err := r.db.SelectContext(ctx, &records, query, studentID); err != nil {
		return nil, fmt.Errorf("list records for student %s: %w", studentID, err)
	}
	return records, nil
}

// ListAll returns every student record, for leaderboard computation.
func (r *ProgressRepository) ListAll(ctx context.Context) ([]models.StudentPeriodRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM student_period_records ORDER BY student_id ASC, period_key ASC`
	var records []models.StudentPeriodRecord
	if err := r.db.SelectContext(ctx, &records, query); err != nil {
		return nil, fmt.Errorf("list all records: %w", err)
	}
	return records, nil
}
