package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/aleks-coins-api/internal/models"
)

// AdjustmentRepository persists coin adjustments.
type AdjustmentRepository struct {
	db *sqlx.DB
}

// NewAdjustmentRepository constructs an adjustment repository.
func NewAdjustmentRepository(db *sqlx.DB) *AdjustmentRepository {
	return &AdjustmentRepository{db: db}
}

const adjustmentColumns = `id, student_id, period_key, section_id, amount, reason, created_by, active, request_id, created_at, updated_at`

// ListActiveByStudent returns a student's active adjustments.
func (r *AdjustmentRepository) ListActiveByStudent(ctx context.Context, studentID string) ([]models.CoinAdjustment, error) {
	query := `SELECT ` + adjustmentColumns + ` FROM coin_adjustments
WHERE student_id = $1 AND active = true ORDER BY created_at ASC`
	var adjustments []models.CoinAdjustment
	if err := r.db.SelectContext(ctx, &adjustments, query, studentID); err != nil {
		return nil, fmt.Errorf("list adjustments for %s: %w", studentID, err)
	}
	return adjustments, nil
}

// ListActive returns every active adjustment, for bulk balance computation.
func (r *AdjustmentRepository) ListActive(ctx context.Context) ([]models.CoinAdjustment, error) {
	query := `SELECT ` + adjustmentColumns + ` FROM coin_adjustments WHERE active = true ORDER BY created_at ASC`
	var adjustments []models.CoinAdjustment
	if err := r.db.SelectContext(ctx, &adjustments, query); err != nil {
		return nil, fmt.Errorf("list active adjustments: %w", err)
	}
	return adjustments, nil
}

// ListByStudent returns a student's full adjustment history, inactive included.
func (r *AdjustmentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.CoinAdjustment, error) {
	query := `SELECT ` + adjustmentColumns + ` FROM coin_adjustments
WHERE student_id = $1 ORDER BY created_at ASC`
	var adjustments []models.CoinAdjustment
	if err := r.db.SelectContext(ctx, &adjustments, query, studentID); err != nil {
		return nil, fmt.Errorf("list adjustment history for %s: %w", studentID, err)
	}
	return adjustments, nil
}

// Create inserts an adjustment.
func (r *AdjustmentRepository) Create(ctx context.Context, adjustment *models.CoinAdjustment) error {
	if adjustment.ID == "" {
		adjustment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if adjustment.CreatedAt.IsZero() {
		adjustment.CreatedAt = now
	}
	adjustment.UpdatedAt = now
	query := `INSERT INTO coin_adjustments (` + adjustmentColumns + `)
VALUES (:id, :student_id, :period_key, :section_id, :amount, :reason, :created_by, :active, :request_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, adjustment); err != nil {
		return fmt.Errorf("create adjustment: %w", err)
	}
	return nil
}

// Deactivate soft-deletes an adjustment, preserving the audit trail.
func (r *AdjustmentRepository) Deactivate(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "UPDATE coin_adjustments SET active = false, updated_at = $2 WHERE id = $1", id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("deactivate adjustment: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("adjustment %s not found", id)
	}
	return nil
}
