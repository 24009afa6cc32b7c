package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/aleks-coins-api/internal/models"
	appErrors "github.com/noah-isme/aleks-coins-api/pkg/errors"
)

type periodRepoStub struct {
	periods   map[string]*models.Period
	created   []models.Period
	updated   []models.Period
	renames   [][2]string
	deleted   []string
	listErr   error
	createErr error
	updateErr error
	renameErr error
	deleteErr error
}

func newPeriodRepoStub(periods ...*models.Period) *periodRepoStub {
	stub := &periodRepoStub{periods: make(map[string]*models.Period)}
	for _, period := range periods {
		stub.periods[period.Key] = period
	}
	return stub
}

func (s *periodRepoStub) List(ctx context.Context, filter models.PeriodFilter) ([]models.Period, int, error) {
	if s.listErr != nil {
		return nil, 0, s.listErr
	}
	var periods []models.Period
	for _, period := range s.periods {
		periods = append(periods, *period)
	}
	return periods, len(periods), nil
}

func (s *periodRepoStub) GetByKey(ctx context.Context, key string) (*models.Period, error) {
	if period, ok := s.periods[key]; ok {
		return period, nil
	}
	return nil, sql.ErrNoRows
}

func (s *periodRepoStub) Create(ctx context.Context, period *models.Period) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, *period)
	s.periods[period.Key] = period
	return nil
}

func (s *periodRepoStub) Update(ctx context.Context, period *models.Period) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updated = append(s.updated, *period)
	s.periods[period.Key] = period
	return nil
}

func (s *periodRepoStub) RenameKey(ctx context.Context, oldKey, newKey string) error {
	if s.renameErr != nil {
		return s.renameErr
	}
	s.renames = append(s.renames, [2]string{oldKey, newKey})
	if period, ok := s.periods[oldKey]; ok {
		delete(s.periods, oldKey)
		period.Key = newKey
		s.periods[newKey] = period
	}
	return nil
}

func (s *periodRepoStub) Delete(ctx context.Context, key string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, key)
	delete(s.periods, key)
	return nil
}

func TestPeriodServiceCreate(t *testing.T) {
	repo := newPeriodRepoStub()
	service := NewPeriodService(repo, nil, zap.NewNop())

	period, err := service.Create(context.Background(), CreatePeriodRequest{
		Key:           "summer-2025",
		Name:          "Summer 2025",
		StartDate:     "2025-06-24",
		EndDate:       "2025-06-27",
		ExcludedDates: []string{"2025-06-25"},
	})
	require.NoError(t, err)
	assert.Equal(t, "summer-2025", period.Key)
	assert.Equal(t, []string{"2025-06-25"}, []string(period.ExcludedDates))
	require.Len(t, repo.created, 1)
}

func TestPeriodServiceCreateInvalidRange(t *testing.T) {
	service := NewPeriodService(newPeriodRepoStub(), nil, zap.NewNop())

	_, err := service.Create(context.Background(), CreatePeriodRequest{
		Key:       "summer-2025",
		Name:      "Summer 2025",
		StartDate: "2025-06-27",
		EndDate:   "2025-06-24",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidRange.Code, appErrors.FromError(err).Code)
}

func TestPeriodServiceCreateDuplicateKey(t *testing.T) {
	repo := newPeriodRepoStub(summerPeriod(t))
	service := NewPeriodService(repo, nil, zap.NewNop())

	_, err := service.Create(context.Background(), CreatePeriodRequest{
		Key:       "summer-2025",
		Name:      "Summer 2025",
		StartDate: "2025-06-24",
		EndDate:   "2025-06-27",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestPeriodServiceUpdateRenamesKey(t *testing.T) {
	repo := newPeriodRepoStub(summerPeriod(t))
	service := NewPeriodService(repo, nil, zap.NewNop())

	period, err := service.Update(context.Background(), "summer-2025", UpdatePeriodRequest{
		NewKey:    "summer-a-2025",
		Name:      "Summer A 2025",
		StartDate: "2025-06-24",
		EndDate:   "2025-06-27",
	})
	require.NoError(t, err)
	assert.Equal(t, "summer-a-2025", period.Key)
	require.Len(t, repo.renames, 1)
	assert.Equal(t, [2]string{"summer-2025", "summer-a-2025"}, repo.renames[0])
	require.Len(t, repo.updated, 1)
}

func TestPeriodServiceUpdateMissing(t *testing.T) {
	service := NewPeriodService(newPeriodRepoStub(), nil, zap.NewNop())

	_, err := service.Update(context.Background(), "winter-2026", UpdatePeriodRequest{
		Name:      "Winter 2026",
		StartDate: "2026-01-05",
		EndDate:   "2026-01-30",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrMissingPeriod.Code, appErrors.FromError(err).Code)
}

func TestPeriodServiceDelete(t *testing.T) {
	repo := newPeriodRepoStub(summerPeriod(t))
	service := NewPeriodService(repo, nil, zap.NewNop())

	require.NoError(t, service.Delete(context.Background(), "summer-2025"))
	assert.Equal(t, []string{"summer-2025"}, repo.deleted)

	err := service.Delete(context.Background(), "summer-2025")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrMissingPeriod.Code, appErrors.FromError(err).Code)
}

func TestPeriodServiceGet(t *testing.T) {
	repo := newPeriodRepoStub(summerPeriod(t))
	service := NewPeriodService(repo, nil, zap.NewNop())

	period, err := service.Get(context.Background(), "summer-2025")
	require.NoError(t, err)
	assert.Equal(t, "Summer 2025", period.Name)
}
