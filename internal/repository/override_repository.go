package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/aleks-coins-api/internal/models"
)

// OverrideRepository persists day overrides.
type OverrideRepository struct {
	db *sqlx.DB
}

// NewOverrideRepository constructs an override repository.
func NewOverrideRepository(db *sqlx.DB) *OverrideRepository {
	return &OverrideRepository{db: db}
}

const overrideColumns = `id, student_id, date, override_type, reason, created_at, updated_at`

// ListByStudent returns a student's overrides ordered by date.
func (r *OverrideRepository) ListByStudent(ctx context.Context, studentID string) ([]models.DayOverride, error) {
	query := `SELECT ` + overrideColumns + ` FROM day_overrides WHERE student_id = $1 ORDER BY date ASC`
	var overrides []models.DayOverride
	if err := r.db.SelectContext(ctx, &overrides, query, studentID); err != nil {
		return nil, fmt.Errorf("list overrides for %s: %w", studentID, err)
	}
	return overrides, nil
}

// ListAll returns every override, for bulk balance computation.
func (r *OverrideRepository) ListAll(ctx context.Context) ([]models.DayOverride, error) {
	query := `SELECT ` + overrideColumns + ` FROM day_overrides ORDER BY student_id ASC, date ASC`
	var overrides []models.DayOverride
	if err := r.db.SelectContext(ctx, &overrides, query); err != nil {
		return nil, fmt.Errorf("list overrides: %w", err)
	}
	return overrides, nil
}

// Upsert inserts or replaces the override for (student, date).
func (r *OverrideRepository) Upsert(ctx context.Context, override *models.DayOverride) error {
	if override.ID == "" {
		override.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if override.CreatedAt.IsZero() {
		override.CreatedAt = now
	}
	override.UpdatedAt = now
	query := `INSERT INTO day_overrides (` + overrideColumns + `)
VALUES (:id, :student_id, :date, :override_type, :reason, :created_at, :updated_at)
ON CONFLICT (student_id, date) DO UPDATE SET
override_type = EXCLUDED.override_type, reason = EXCLUDED.reason, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, override); err != nil {
		return fmt.Errorf("upsert override: %w", err)
	}
	return nil
}

// Delete removes an override.
func (r *OverrideRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM day_overrides WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete override: %w", err)
	}
	return nil
}
