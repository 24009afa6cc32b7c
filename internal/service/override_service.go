package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/aleks-coins-api/internal/models"
	appErrors "github.com/noah-isme/aleks-coins-api/pkg/errors"
	"github.com/noah-isme/aleks-coins-api/pkg/jobs"
)

type overrideRepository interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.DayOverride, error)
	Upsert(ctx context.Context, override *models.DayOverride) error
	Delete(ctx context.Context, id string) error
}

// OverrideService manages day-level qualification corrections.
type OverrideService struct {
	repo      overrideRepository
	queue     refreshQueue
	validator *validator.Validate
	logger    *zap.Logger
}

// NewOverrideService constructs the service.
func NewOverrideService(repo overrideRepository, queue refreshQueue, validate *validator.Validate, logger *zap.Logger) *OverrideService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &OverrideService{repo: repo, queue: queue, validator: validate, logger: logger}
	svc.validator.RegisterValidation("override_type", func(fl validator.FieldLevel) bool {
		return models.OverrideType(strings.ToLower(fl.Field().String())).Valid()
	})
	return svc
}

// SetOverrideRequest describes the create/replace payload.
type SetOverrideRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	Date      string `json:"date" validate:"required"`
	Type      string `json:"override_type" validate:"required,override_type"`
	Reason    string `json:"reason"`
}

// ListByStudent returns a student's overrides.
func (s *OverrideService) ListByStudent(ctx context.Context, studentID string) ([]models.DayOverride, error) {
	studentID = strings.ToLower(strings.TrimSpace(studentID))
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id required")
	}
	overrides, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list overrides")
	}
	return overrides, nil
}

// Set creates or replaces the override for (student, date).
func (s *OverrideService) Set(ctx context.Context, req SetOverrideRequest) (*models.DayOverride, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid override payload")
	}
	date, err := ParseLocalDate(req.Date)
	if err != nil {
		return nil, err
	}
	override := &models.DayOverride{
		StudentID: strings.ToLower(strings.TrimSpace(req.StudentID)),
		Date:      date.Format(dateLayout),
		Type:      models.OverrideType(strings.ToLower(req.Type)),
		Reason:    strings.TrimSpace(req.Reason),
	}
	if err := s.repo.Upsert(ctx, override); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save override")
	}
	s.notifyChanged()
	return override, nil
}

// Delete removes an override.
func (s *OverrideService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete override")
	}
	s.notifyChanged()
	return nil
}

func (s *OverrideService) notifyChanged() {
	if s.queue == nil {
		return
	}
	if err := s.queue.Enqueue(jobs.Job{Type: jobTypeLeaderboardRefresh}); err != nil {
		s.logger.Sugar().Warnw("failed to enqueue leaderboard refresh", "error", err)
	}
}
