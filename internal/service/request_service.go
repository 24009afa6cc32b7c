package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/aleks-coins-api/internal/models"
	appErrors "github.com/noah-isme/aleks-coins-api/pkg/errors"
)

type requestRepository interface {
	List(ctx context.Context, status models.RequestStatus) ([]models.StudentRequest, error)
	GetByID(ctx context.Context, id string) (*models.StudentRequest, error)
	Create(ctx context.Context, request *models.StudentRequest) error
	UpdateStatus(ctx context.Context, id string, status models.RequestStatus, reviewedBy string) error
}

type adjustmentWriter interface {
	Create(ctx context.Context, req CreateAdjustmentRequest) (*models.CoinAdjustment, error)
}

// RequestService handles student requests and redemption accounting.
type RequestService struct {
	repo        requestRepository
	adjustments adjustmentWriter
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewRequestService constructs the service.
func NewRequestService(repo requestRepository, adjustments adjustmentWriter, validate *validator.Validate, logger *zap.Logger) *RequestService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &RequestService{repo: repo, adjustments: adjustments, validator: validate, logger: logger}
	svc.validator.RegisterValidation("request_type", func(fl validator.FieldLevel) bool {
		return models.RequestType(strings.ToUpper(fl.Field().String())).Valid()
	})
	return svc
}

// SubmitRequestRequest describes a student submission. Cost is the coin
// price of a redemption; zero for free request types.
type SubmitRequestRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	Type      string `json:"type" validate:"required,request_type"`
	Detail    string `json:"detail" validate:"required"`
	Cost      int    `json:"cost" validate:"min=0"`
}

// List returns requests, optionally filtered by status.
func (s *RequestService) List(ctx context.Context, status string) ([]models.StudentRequest, error) {
	filter := models.RequestStatus(strings.ToUpper(strings.TrimSpace(status)))
	requests, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}
	return requests, nil
}

// Submit records a student request. Coin-costing redemptions immediately
// create a linked global negative adjustment, so the spent coins leave the
// balance before review.
func (s *RequestService) Submit(ctx context.Context, req SubmitRequestRequest) (*models.StudentRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request payload")
	}
	request := &models.StudentRequest{
		StudentID: strings.ToLower(strings.TrimSpace(req.StudentID)),
		Type:      models.RequestType(strings.ToUpper(req.Type)),
		Detail:    req.Detail,
		Cost:      req.Cost,
		Status:    models.RequestPending,
	}
	if err := s.repo.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create request")
	}

	if request.Type == models.RequestRedemption && request.Cost > 0 {
		_, err := s.adjustments.Create(ctx, CreateAdjustmentRequest{
			StudentID: request.StudentID,
			PeriodKey: models.ScopeGlobal,
			Amount:    -request.Cost,
			Reason:    "redemption: " + request.Detail,
			CreatedBy: request.StudentID,
			RequestID: &request.ID,
		})
		if err != nil {
			s.logger.Sugar().Errorw("failed to create redemption adjustment", "request_id", request.ID, "error", err)
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to charge redemption")
		}
	}
	return request, nil
}

// Approve marks a pending request approved.
func (s *RequestService) Approve(ctx context.Context, id, reviewedBy string) (*models.StudentRequest, error) {
	return s.review(ctx, id, reviewedBy, models.RequestApproved)
}

// Reject marks a pending request rejected. Rejecting a coin-costing
// redemption refunds the charge with a compensating adjustment.
func (s *RequestService) Reject(ctx context.Context, id, reviewedBy string) (*models.StudentRequest, error) {
	request, err := s.review(ctx, id, reviewedBy, models.RequestRejected)
	if err != nil {
		return nil, err
	}
	if request.Type == models.RequestRedemption && request.Cost > 0 {
		_, err := s.adjustments.Create(ctx, CreateAdjustmentRequest{
			StudentID: request.StudentID,
			PeriodKey: models.ScopeGlobal,
			Amount:    request.Cost,
			Reason:    "redemption refund: " + request.Detail,
			CreatedBy: reviewedBy,
			RequestID: &request.ID,
		})
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to refund redemption")
		}
	}
	return request, nil
}

func (s *RequestService) review(ctx context.Context, id, reviewedBy string, status models.RequestStatus) (*models.StudentRequest, error) {
	request, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	if request.Status != models.RequestPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "request already reviewed")
	}
	if err := s.repo.UpdateStatus(ctx, id, status, reviewedBy); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update request")
	}
	request.Status = status
	request.ReviewedBy = &reviewedBy
	return request, nil
}
