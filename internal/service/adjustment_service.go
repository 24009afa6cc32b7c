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

type adjustmentRepository interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.CoinAdjustment, error)
	Create(ctx context.Context, adjustment *models.CoinAdjustment) error
	Deactivate(ctx context.Context, id string) error
}

// AdjustmentService manages signed manual coin corrections.
type AdjustmentService struct {
	repo      adjustmentRepository
	periods   periodReader
	queue     refreshQueue
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAdjustmentService constructs the service.
func NewAdjustmentService(repo adjustmentRepository, periods periodReader, queue refreshQueue, validate *validator.Validate, logger *zap.Logger) *AdjustmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdjustmentService{repo: repo, periods: periods, queue: queue, validator: validate, logger: logger}
}

// CreateAdjustmentRequest describes the create payload. Period "__GLOBAL__"
// (or empty) scopes the adjustment to the student's total across all periods.
type CreateAdjustmentRequest struct {
	StudentID string  `json:"student_id" validate:"required"`
	PeriodKey string  `json:"period_key"`
	SectionID string  `json:"section_id"`
	Amount    int     `json:"amount" validate:"required"`
	Reason    string  `json:"reason" validate:"required"`
	CreatedBy string  `json:"created_by" validate:"required"`
	RequestID *string `json:"request_id"`
}

// History returns a student's full adjustment trail, inactive included.
func (s *AdjustmentService) History(ctx context.Context, studentID string) ([]models.CoinAdjustment, error) {
	studentID = strings.ToLower(strings.TrimSpace(studentID))
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id required")
	}
	adjustments, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list adjustments")
	}
	return adjustments, nil
}

// Create records an adjustment. Period-scoped adjustments must reference a
// configured period; global ones use the sentinel scope.
func (s *AdjustmentService) Create(ctx context.Context, req CreateAdjustmentRequest) (*models.CoinAdjustment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid adjustment payload")
	}
	periodKey := strings.TrimSpace(req.PeriodKey)
	sectionID := strings.TrimSpace(req.SectionID)
	if periodKey == "" {
		periodKey = models.ScopeGlobal
	}
	if periodKey == models.ScopeGlobal {
		sectionID = ""
	} else {
		if sectionID == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "section id required for period-scoped adjustments")
		}
		if _, err := s.periods.GetByKey(ctx, periodKey); err != nil {
			return nil, appErrors.Clone(appErrors.ErrMissingPeriod, "period "+periodKey+" is not configured")
		}
	}
	adjustment := &models.CoinAdjustment{
		StudentID: strings.ToLower(strings.TrimSpace(req.StudentID)),
		PeriodKey: periodKey,
		SectionID: sectionID,
		Amount:    req.Amount,
		Reason:    req.Reason,
		CreatedBy: req.CreatedBy,
		Active:    true,
		RequestID: req.RequestID,
	}
	if err := s.repo.Create(ctx, adjustment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create adjustment")
	}
	s.notifyChanged()
	return adjustment, nil
}

// Deactivate soft-deletes an adjustment, keeping it in the audit trail.
func (s *AdjustmentService) Deactivate(ctx context.Context, id string) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "adjustment not found")
	}
	s.notifyChanged()
	return nil
}

func (s *AdjustmentService) notifyChanged() {
	if s.queue == nil {
		return
	}
	if err := s.queue.Enqueue(jobs.Job{Type: jobTypeLeaderboardRefresh}); err != nil {
		s.logger.Sugar().Warnw("failed to enqueue leaderboard refresh", "error", err)
	}
}
