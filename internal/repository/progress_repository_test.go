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

func TestProgressRepositoryUpsertRecords(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewProgressRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO student_period_records").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO student_period_records").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	records := []models.StudentPeriodRecord{
		{PeriodKey: "exam1", SectionID: "s1", StudentID: "abc123", Name: "Ada", Coins: 5},
		{PeriodKey: "exam1", SectionID: "s1", StudentID: "def456", Name: "Ben", Coins: 3},
	}
	require.NoError(t, repo.UpsertRecords(context.Background(), records))
	require.NoError(t, mock.ExpectationsWereMet())
	assert.False(t, records[0].UpdatedAt.IsZero())
}

func TestProgressRepositoryUpsertRecordsEmpty(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewProgressRepository(db)
	require.NoError(t, repo.UpsertRecords(context.Background(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProgressRepositoryGet(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewProgressRepository(db)
	now := time.Now()
	log := `[{"day":1,"date":"2025-06-24","minutes":45,"topics":2,"is_excluded":false,"qualified":true,"reason":"ok"}]`
	rows := sqlmock.NewRows([]string{"period_key", "section_id", "student_id", "name", "email", "coins", "total_days", "period_days", "percent_complete", "daily_log", "updated_at"}).
		AddRow("exam1", "s1", "abc123", "Ada", "ada@example.edu", 1, 1, 1, 100.0, []byte(log), now)
	mock.ExpectQuery("SELECT period_key, section_id, student_id").
		WithArgs("exam1", "s1", "abc123").
		WillReturnRows(rows)

	record, err := repo.Get(context.Background(), "exam1", "s1", "abc123")
	require.NoError(t, err)
	assert.Equal(t, 1, record.Coins)
	require.Len(t, record.DailyLog, 1)
	assert.True(t, record.DailyLog[0].Qualified)
	assert.Equal(t, "2025-06-24", record.DailyLog[0].Date)
}

func TestProgressRepositoryListByStudent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewProgressRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows([]string{"period_key", "section_id", "student_id", "name", "email", "coins", "total_days", "period_days", "percent_complete", "daily_log", "updated_at"}).
		AddRow("exam1", "s1", "abc123", "Ada", "ada@example.edu", 5, 10, 9, 55.6, []byte("[]"), now).
		AddRow("exam2", "s1", "abc123", "Ada", "ada@example.edu", 3, 7, 7, 42.9, []byte("[]"), now)
	mock.ExpectQuery("SELECT period_key, section_id, student_id").
		WithArgs("abc123").
		WillReturnRows(rows)

	records, err := repo.ListByStudent(context.Background(), "abc123")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "exam2", records[1].PeriodKey)
}
