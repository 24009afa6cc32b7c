package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/aleks-coins-api/internal/models"
)

// PeriodRepository persists exam periods.
type PeriodRepository struct {
	db *sqlx.DB
}

// NewPeriodRepository constructs a period repository.
func NewPeriodRepository(db *sqlx.DB) *PeriodRepository {
	return &PeriodRepository{db: db}
}

// List returns periods matching the filter, ordered by start date.
func (r *PeriodRepository) List(ctx context.Context, filter models.PeriodFilter) ([]models.Period, int, error) {
	base := "FROM periods"
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.Search != "" {
		where = append(where, fmt.Sprintf("(key ILIKE $%d OR name ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT key, name, start_date, end_date, excluded_dates, created_at, updated_at
%s WHERE %s ORDER BY start_date ASC LIMIT %d OFFSET %d`, base, whereClause, size, offset)
	var periods []models.Period
	if err := r.db.SelectContext(ctx, &periods, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list periods: %w", err)
	}
	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count periods: %w", err)
	}
	return periods, total, nil
}

// GetByKey fetches a period.
func (r *PeriodRepository) GetByKey(ctx context.Context, key string) (*models.Period, error) {
	const query = `SELECT key, name, start_date, end_date, excluded_dates, created_at, updated_at
FROM periods WHERE key = $1`
	var period models.Period
	if err := r.db.GetContext(ctx, &period, query, key); err != nil {
		return nil, err
	}
	return &period, nil
}

// Create inserts a period.
func (r *PeriodRepository) Create(ctx context.Context, period *models.Period) error {
	now := time.Now().UTC()
	if period.CreatedAt.IsZero() {
		period.CreatedAt = now
	}
	period.UpdatedAt = now
	query := `INSERT INTO periods (key, name, start_date, end_date, excluded_dates, created_at, updated_at)
VALUES (:key, :name, :start_date, :end_date, :excluded_dates, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, period); err != nil {
		return fmt.Errorf("create period: %w", err)
	}
	return nil
}

// Update modifies a period's attributes without touching its key.
func (r *PeriodRepository) Update(ctx context.Context, period *models.Period) error {
	period.UpdatedAt = time.Now().UTC()
	query := `UPDATE periods SET name = :name, start_date = :start_date, end_date = :end_date,
excluded_dates = :excluded_dates, updated_at = :updated_at WHERE key = :key`
	if _, err := r.db.NamedExecContext(ctx, query, period); err != nil {
		return fmt.Errorf("update period: %w", err)
	}
	return nil
}

// RenameKey changes a period's key and cascades the rename to every student
// record and adjustment referencing the old key, in one transaction.
func (r *PeriodRepository) RenameKey(ctx context.Context, oldKey, newKey string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin period rename: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, "UPDATE periods SET key = $2, updated_at = $3 WHERE key = $1", oldKey, newKey, now); err != nil {
		return fmt.Errorf("rename period: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "UPDATE student_period_records SET period_key = $2, updated_at = $3 WHERE period_key = $1", oldKey, newKey, now); err != nil {
		return fmt.Errorf("cascade rename to student records: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "UPDATE coin_adjustments SET period_key = $2, updated_at = $3 WHERE period_key = $1", oldKey, newKey, now); err != nil {
		return fmt.Errorf("cascade rename to adjustments: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit period rename: %w", err)
	}
	return nil
}

// Delete removes a period and its student records.
func (r *PeriodRepository) Delete(ctx context.Context, key string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin period delete: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM student_period_records WHERE period_key = $1", key); err != nil {
		return fmt.Errorf("delete period student records: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM periods WHERE key = $1", key); err != nil {
		return fmt.Errorf("delete period: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit period delete: %w", err)
	}
	return nil
}
