package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/aleks-coins-api/internal/models"
)

// RequestRepository persists student requests.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository constructs a request repository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

const requestColumns = `id, student_id, type, detail, cost, status, reviewed_by, reviewed_at, created_at, updated_at`

// List returns requests, optionally filtered by status, newest first.
func (r *RequestRepository) List(ctx context.Context, status models.RequestStatus) ([]models.StudentRequest, error) {
	var requests []models.StudentRequest
	if status == "" {
		query := `SELECT ` + requestColumns + ` FROM student_requests ORDER BY created_at DESC`
		if err := r.db.SelectContext(ctx, &requests, query); err != nil {
			return nil, fmt.Errorf("list requests: %w", err)
		}
		return requests, nil
	}
	query := `SELECT ` + requestColumns + ` FROM student_requests WHERE status = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &requests, query, status); err != nil {
		return nil, fmt.Errorf("list requests by status: %w", err)
	}
	return requests, nil
}

// GetByID fetches a request.
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*models.StudentRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM student_requests WHERE id = $1`
	var request models.StudentRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// Create inserts a request.
func (r *RequestRepository) Create(ctx context.Context, request *models.StudentRequest) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if request.CreatedAt.IsZero() {
		request.CreatedAt = now
	}
	request.UpdatedAt = now
	query := `INSERT INTO student_requests (` + requestColumns + `)
VALUES (:id, :student_id, :type, :detail, :cost, :status, :reviewed_by, :reviewed_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return nil
}

// UpdateStatus records the review outcome.
func (r *RequestRepository) UpdateStatus(ctx context.Context, id string, status models.RequestStatus, reviewedBy string) error {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		"UPDATE student_requests SET status = $2, reviewed_by = $3, reviewed_at = $4, updated_at = $4 WHERE id = $1",
		id, status, reviewedBy, now)
	if err != nil {
		return fmt.Errorf("update request status: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("request %s not found", id)
	}
	return nil
}
