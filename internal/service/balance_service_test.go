package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/aleks-coins-api/internal/models"
	appErrors "github.com/noah-isme/aleks-coins-api/pkg/errors"
	"github.com/noah-isme/aleks-coins-api/pkg/jobs"
)

type adjustmentReaderStub struct {
	adjustments []models.CoinAdjustment
	err         error
}

func (s adjustmentReaderStub) ListActiveByStudent(ctx context.Context, studentID string) ([]models.CoinAdjustment, error) {
	return s.adjustments, s.err
}

func (s adjustmentReaderStub) ListActive(ctx context.Context) ([]models.CoinAdjustment, error) {
	return s.adjustments, s.err
}

type cacheStub struct {
	stored  map[string][]byte
	getErr  error
	setErr  error
	sets    int
	deletes int
	setTTLs []time.Duration
}

func newCacheStub() *cacheStub {
	return &cacheStub{stored: make(map[string][]byte)}
}

func (s *cacheStub) Get(ctx context.Context, key string, dest interface{}) error {
	if s.getErr != nil {
		return s.getErr
	}
	raw, ok := s.stored[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (s *cacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if s.setErr != nil {
		return s.setErr
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.stored[key] = raw
	s.sets++
	s.setTTLs = append(s.setTTLs, ttl)
	return nil
}

func (s *cacheStub) Delete(ctx context.Context, key string) error {
	delete(s.stored, key)
	s.deletes++
	return nil
}

func qualifiedDays(dates ...string) models.DailyLog {
	var days models.DailyLog
	for i, d := range dates {
		days = append(days, models.DayQualification{
			DayNumber: i + 1,
			Date:      d,
			Minutes:   45,
			Topics:    2,
			Qualified: true,
		})
	}
	return days
}

func TestBalanceServiceStudentBalance(t *testing.T) {
	progress := &progressRepoStub{student: []models.StudentPeriodRecord{
		{
			PeriodKey: "summer-2025",
			SectionID: "A",
			StudentID: "alice1",
			Name:      "Alice",
			TotalDays: 2,
			DailyLog:  qualifiedDays("2025-06-24", "2025-06-26"),
		},
	}}
	adjustments := adjustmentReaderStub{adjustments: []models.CoinAdjustment{
		{StudentID: "alice1", PeriodKey: models.ScopeGlobal, Amount: -1, Active: true},
	}}
	service := NewBalanceService(progress, overrideReaderStub{}, adjustments, nil, testThresholds, false, time.Minute, zap.NewNop(), nil)

	result, err := service.StudentBalance(context.Background(), " ALICE1 ")
	require.NoError(t, err)
	assert.Equal(t, "alice1", result.StudentID)
	assert.Equal(t, 1, result.Balance)
	assert.False(t, result.Degraded)
}

func TestBalanceServiceStudentBalanceDegradedFallback(t *testing.T) {
	progress := &progressRepoStub{student: []models.StudentPeriodRecord{
		{
			PeriodKey: "summer-2025",
			SectionID: "A",
			StudentID: "alice1",
			TotalDays: 1,
			DailyLog:  qualifiedDays("2025-06-24"),
		},
	}}
	adjustments := adjustmentReaderStub{err: errors.New("connection refused")}
	service := NewBalanceService(progress, overrideReaderStub{}, adjustments, nil, testThresholds, true, time.Minute, zap.NewNop(), nil)

	result, err := service.StudentBalance(context.Background(), "alice1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Balance)
	assert.True(t, result.Degraded)
}

func TestBalanceServiceStudentBalanceAdjustmentFailure(t *testing.T) {
	progress := &progressRepoStub{}
	adjustments := adjustmentReaderStub{err: errors.New("connection refused")}
	service := NewBalanceService(progress, overrideReaderStub{}, adjustments, nil, testThresholds, false, time.Minute, zap.NewNop(), nil)

	_, err := service.StudentBalance(context.Background(), "alice1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAdjustmentLookup.Code, appErrors.FromError(err).Code)
}

func TestBalanceServiceLeaderboardComputesAndCaches(t *testing.T) {
	progress := &progressRepoStub{all: []models.StudentPeriodRecord{
		{
			PeriodKey: "summer-2025",
			SectionID: "A",
			StudentID: "alice1",
			Name:      "Alice",
			TotalDays: 2,
			DailyLog:  qualifiedDays("2025-06-24", "2025-06-26"),
		},
		{
			PeriodKey: "summer-2025",
			SectionID: "A",
			StudentID: "bob2",
			Name:      "Bob",
			TotalDays: 1,
			DailyLog:  qualifiedDays("2025-06-24"),
		},
	}}
	adjustments := adjustmentReaderStub{adjustments: []models.CoinAdjustment{
		{StudentID: "carol3", PeriodKey: models.ScopeGlobal, Amount: 4, Active: true},
	}}
	cache := newCacheStub()
	service := NewBalanceService(progress, overrideReaderStub{}, adjustments, cache, testThresholds, false, time.Minute, zap.NewNop(), nil)

	board, err := service.Leaderboard(context.Background())
	require.NoError(t, err)
	require.Len(t, board.Entries, 3)
	assert.Equal(t, "carol3", board.Entries[0].StudentID)
	assert.Equal(t, 4, board.Entries[0].Balance)
	assert.Equal(t, "alice1", board.Entries[1].StudentID)
	assert.Equal(t, 2, board.Entries[1].Balance)
	assert.Equal(t, "bob2", board.Entries[2].StudentID)
	assert.False(t, board.Degraded)
	assert.Equal(t, 1, cache.sets)
}

func TestBalanceServiceLeaderboardServedFromCache(t *testing.T) {
	cache := newCacheStub()
	cached := models.Leaderboard{
		Entries:     []models.LeaderboardEntry{{StudentID: "alice1", Name: "Alice", Balance: 7}},
		GeneratedAt: time.Now().UTC(),
	}
	raw, err := json.Marshal(cached)
	require.NoError(t, err)
	cache.stored[leaderboardCacheKey] = raw

	progress := &progressRepoStub{allErr: errors.New("should not be queried")}
	service := NewBalanceService(progress, overrideReaderStub{}, adjustmentReaderStub{}, cache, testThresholds, false, time.Minute, zap.NewNop(), nil)

	board, err := service.Leaderboard(context.Background())
	require.NoError(t, err)
	require.Len(t, board.Entries, 1)
	assert.Equal(t, 7, board.Entries[0].Balance)
}

func TestBalanceServiceLeaderboardDegradedNotCached(t *testing.T) {
	progress := &progressRepoStub{all: []models.StudentPeriodRecord{
		{
			PeriodKey: "summer-2025",
			SectionID: "A",
			StudentID: "alice1",
			Name:      "Alice",
			TotalDays: 1,
			DailyLog:  qualifiedDays("2025-06-24"),
		},
	}}
	adjustments := adjustmentReaderStub{err: errors.New("connection refused")}
	cache := newCacheStub()
	service := NewBalanceService(progress, overrideReaderStub{}, adjustments, cache, testThresholds, true, time.Minute, zap.NewNop(), nil)

	board, err := service.Leaderboard(context.Background())
	require.NoError(t, err)
	assert.True(t, board.Degraded)
	assert.Equal(t, 0, cache.sets)
}

func TestBalanceServiceLeaderboardAppliesOverrides(t *testing.T) {
	progress := &progressRepoStub{all: []models.StudentPeriodRecord{
		{
			PeriodKey: "summer-2025",
			SectionID: "A",
			StudentID: "alice1",
			Name:      "Alice",
			TotalDays: 1,
			DailyLog: models.DailyLog{
				{DayNumber: 1, Date: "2025-06-24", Minutes: 10, Topics: 0},
			},
		},
	}}
	overrides := overrideReaderStub{overrides: []models.DayOverride{
		{StudentID: "alice1", Date: "2025-06-24", Type: models.OverrideQualified},
	}}
	service := NewBalanceService(progress, overrides, adjustmentReaderStub{}, nil, testThresholds, false, time.Minute, zap.NewNop(), nil)

	board, err := service.Leaderboard(context.Background())
	require.NoError(t, err)
	require.Len(t, board.Entries, 1)
	assert.Equal(t, 1, board.Entries[0].Balance)
}

func TestLeaderboardWorkerIgnoresUnknownJobs(t *testing.T) {
	progress := &progressRepoStub{allErr: errors.New("should not be queried")}
	service := NewBalanceService(progress, overrideReaderStub{}, adjustmentReaderStub{}, nil, testThresholds, false, time.Minute, zap.NewNop(), nil)
	worker := NewLeaderboardWorker(service, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{Type: "unrelated"})
	require.NoError(t, err)
}

func TestLeaderboardWorkerRefreshes(t *testing.T) {
	progress := &progressRepoStub{}
	cache := newCacheStub()
	service := NewBalanceService(progress, overrideReaderStub{}, adjustmentReaderStub{}, cache, testThresholds, false, time.Minute, zap.NewNop(), nil)
	worker := NewLeaderboardWorker(service, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{Type: jobTypeLeaderboardRefresh})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)
}
