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

func TestOverrideRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewOverrideRepository(db)
	mock.ExpectExec("INSERT INTO day_overrides").
		WillReturnResult(sqlmock.NewResult(1, 1))

	override := &models.DayOverride{
		StudentID: "abc123",
		Date:      "2025-06-25",
		Type:      models.OverrideQualified,
		Reason:    "makeup session",
	}
	require.NoError(t, repo.Upsert(context.Background(), override))
	assert.NotEmpty(t, override.ID)
	assert.False(t, override.UpdatedAt.IsZero())
}

func TestOverrideRepositoryListByStudent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewOverrideRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "student_id", "date", "override_type", "reason", "created_at", "updated_at"}).
		AddRow("ov-1", "abc123", "2025-06-25", "qualified", "makeup session", now, now).
		AddRow("ov-2", "abc123", "2025-06-26", "not_qualified", "", now, now)
	mock.ExpectQuery("SELECT id, student_id, date").
		WithArgs("abc123").
		WillReturnRows(rows)

	overrides, err := repo.ListByStudent(context.Background(), "abc123")
	require.NoError(t, err)
	require.Len(t, overrides, 2)
	assert.Equal(t, models.OverrideQualified, overrides[0].Type)
	assert.Equal(t, models.OverrideNotQualified, overrides[1].Type)
}

func TestOverrideRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewOverrideRepository(db)
	mock.ExpectExec("DELETE FROM day_overrides").
		WithArgs("ov-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "ov-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
