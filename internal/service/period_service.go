package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/aleks-coins-api/internal/models"
	appErrors "github.com/noah-isme/aleks-coins-api/pkg/errors"
)

type periodRepository interface {
	List(ctx context.Context, filter models.PeriodFilter) ([]models.Period, int, error)
	GetByKey(ctx context.Context, key string) (*models.Period, error)
	Create(ctx context.Context, period *models.Period) error
	Update(ctx context.Context, period *models.Period) error
	RenameKey(ctx context.Context, oldKey, newKey string) error
	Delete(ctx context.Context, key string) error
}

// PeriodService manages exam periods.
type PeriodService struct {
	repo      periodRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPeriodService constructs the service.
func NewPeriodService(repo periodRepository, validate *validator.Validate, logger *zap.Logger) *PeriodService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PeriodService{repo: repo, validator: validate, logger: logger}
}

// CreatePeriodRequest describes the create payload. Dates arrive as
// YYYY-MM-DD strings from the admin form.
type CreatePeriodRequest struct {
	Key           string   `json:"key" validate:"required"`
	Name          string   `json:"name" validate:"required"`
	StartDate     string   `json:"start_date" validate:"required"`
	EndDate       string   `json:"end_date" validate:"required"`
	ExcludedDates []string `json:"excluded_dates"`
}

// UpdatePeriodRequest describes the update payload. A NewKey different from
// the path key renames the period and cascades to every referencing record.
type UpdatePeriodRequest struct {
	NewKey        string   `json:"new_key"`
	Name          string   `json:"name" validate:"required"`
	StartDate     string   `json:"start_date" validate:"required"`
	EndDate       string   `json:"end_date" validate:"required"`
	ExcludedDates []string `json:"excluded_dates"`
}

// List returns periods.
func (s *PeriodService) List(ctx context.Context, filter models.PeriodFilter) ([]models.Period, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 50
	}
	periods, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list periods")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return periods, pagination, nil
}

// Get returns a period by key.
func (s *PeriodService) Get(ctx context.Context, key string) (*models.Period, error) {
	period, err := s.repo.GetByKey(ctx, key)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrMissingPeriod, "period "+key+" is not configured")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to get period")
	}
	return period, nil
}

// Create registers a new period.
func (s *PeriodService) Create(ctx context.Context, req CreatePeriodRequest) (*models.Period, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	period, err := s.buildPeriod(req.Key, req.Name, req.StartDate, req.EndDate, req.ExcludedDates)
	if err != nil {
		return nil, err
	}
	if existing, err := s.repo.GetByKey(ctx, period.Key); err == nil && existing != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "period "+period.Key+" already exists")
	}
	if err := s.repo.Create(ctx, period); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create period")
	}
	return period, nil
}

// Update modifies a period, renaming its key first when requested.
func (s *PeriodService) Update(ctx context.Context, key string, req UpdatePeriodRequest) (*models.Period, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	if _, err := s.Get(ctx, key); err != nil {
		return nil, err
	}
	newKey := strings.TrimSpace(req.NewKey)
	if newKey != "" && newKey != key {
		if existing, err := s.repo.GetByKey(ctx, newKey); err == nil && existing != nil {
			return nil, appErrors.Clone(appErrors.ErrConflict, "period "+newKey+" already exists")
		}
		if err := s.repo.RenameKey(ctx, key, newKey); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rename period")
		}
		key = newKey
	}
	period, err := s.buildPeriod(key, req.Name, req.StartDate, req.EndDate, req.ExcludedDates)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, period); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update period")
	}
	return period, nil
}

// Delete removes a period and its student records.
func (s *PeriodService) Delete(ctx context.Context, key string) error {
	if _, err := s.Get(ctx, key); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, key); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete period")
	}
	return nil
}

func (s *PeriodService) buildPeriod(key, name, startDate, endDate string, excludedDates []string) (*models.Period, error) {
	start, err := ParseLocalDate(startDate)
	if err != nil {
		return nil, err
	}
	end, err := ParseLocalDate(endDate)
	if err != nil {
		return nil, err
	}
	if start.After(end) {
		return nil, appErrors.Clone(appErrors.ErrInvalidRange, "start date "+startDate+" is after end date "+endDate)
	}
	cleaned := make([]string, 0, len(excludedDates))
	for _, raw := range excludedDates {
		date, err := ParseLocalDate(raw)
		if err != nil {
			return nil, err
		}
		if date.Before(start) || date.After(end) {
			s.logger.Sugar().Warnw("excluded date outside period range", "period", key, "date", raw)
		}
		cleaned = append(cleaned, date.Format(dateLayout))
	}
	return &models.Period{
		Key:           strings.TrimSpace(key),
		Name:          name,
		StartDate:     start,
		EndDate:       end,
		ExcludedDates: pq.StringArray(cleaned),
	}, nil
}
