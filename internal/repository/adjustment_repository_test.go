package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/aleks-coins-api/internal/models"
)

func TestAdjustmentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAdjustmentRepository(db)
	mock.ExpectExec("INSERT INTO coin_adjustments").
		WillReturnResult(sqlmock.NewResult(1, 1))

	adjustment := &models.CoinAdjustment{
		StudentID: "abc123",
		PeriodKey: models.ScopeGlobal,
		Amount:    -20,
		Reason:    "hint token redemption",
		CreatedBy: "admin",
		Active:    true,
	}
	require.NoError(t, repo.Create(context.Background(), adjustment))
	assert.NotEmpty(t, adjustment.ID)
}

func TestAdjustmentRepositoryListActiveByStudent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAdjustmentRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "student_id", "period_key", "section_id", "amount", "reason", "created_by", "active", "request_id", "created_at", "updated_at"}).
		AddRow("adj-1", "abc123", "exam1", "s1", -2, "late submission", "admin", true, nil, now, now).
		AddRow("adj-2", "abc123", models.ScopeGlobal, "", 5, "contest prize", "admin", true, nil, now, now)
	mock.ExpectQuery("SELECT id, student_id, period_key").
		WithArgs("abc123").
		WillReturnRows(rows)

	adjustments, err := repo.ListActiveByStudent(context.Background(), "abc123")
	require.NoError(t, err)
	require.Len(t, adjustments, 2)
	assert.False(t, adjustments[0].Global())
	assert.True(t, adjustments[1].Global())
}

func TestAdjustmentRepositoryDeactivate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAdjustmentRepository(db)
	mock.ExpectExec("UPDATE coin_adjustments SET active = false").
		WithArgs("adj-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Deactivate(context.Background(), "adj-1"))
}

func TestAdjustmentRepositoryDeactivateMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAdjustmentRepository(db)
	mock.ExpectExec("UPDATE coin_adjustments SET active = false").
		WithArgs("ghost", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.Error(t, repo.Deactivate(context.Background(), "ghost"))
}
