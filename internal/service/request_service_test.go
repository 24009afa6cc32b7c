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

type requestRepoStub struct {
	requests  []models.StudentRequest
	byID      map[string]*models.StudentRequest
	created   []models.StudentRequest
	updates   []models.RequestStatus
	listErr   error
	createErr error
	updateErr error
}

func (s *requestRepoStub) List(ctx context.Context, status models.RequestStatus) ([]models.StudentRequest, error) {
	return s.requests, s.listErr
}

func (s *requestRepoStub) GetByID(ctx context.Context, id string) (*models.StudentRequest, error) {
	if request, ok := s.byID[id]; ok {
		return request, nil
	}
	return nil, sql.ErrNoRows
}

func (s *requestRepoStub) Create(ctx context.Context, request *models.StudentRequest) error {
	if s.createErr != nil {
		return s.createErr
	}
	request.ID = "req-1"
	s.created = append(s.created, *request)
	return nil
}

func (s *requestRepoStub) UpdateStatus(ctx context.Context, id string, status models.RequestStatus, reviewedBy string) error {
	s.updates = append(s.updates, status)
	return s.updateErr
}

type adjustmentWriterStub struct {
	requests []CreateAdjustmentRequest
	err      error
}

func (s *adjustmentWriterStub) Create(ctx context.Context, req CreateAdjustmentRequest) (*models.CoinAdjustment, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.requests = append(s.requests, req)
	return &models.CoinAdjustment{ID: "adj-1", StudentID: req.StudentID, Amount: req.Amount}, nil
}

func TestRequestServiceSubmitRedemptionChargesCoins(t *testing.T) {
	repo := &requestRepoStub{}
	adjustments := &adjustmentWriterStub{}
	service := NewRequestService(repo, adjustments, nil, zap.NewNop())

	request, err := service.Submit(context.Background(), SubmitRequestRequest{
		StudentID: "ALICE1",
		Type:      "redemption",
		Detail:    "homework pass",
		Cost:      10,
	})
	require.NoError(t, err)
	assert.Equal(t, models.RequestPending, request.Status)
	assert.Equal(t, "alice1", request.StudentID)

	require.Len(t, adjustments.requests, 1)
	charge := adjustments.requests[0]
	assert.Equal(t, -10, charge.Amount)
	assert.Equal(t, models.ScopeGlobal, charge.PeriodKey)
	require.NotNil(t, charge.RequestID)
	assert.Equal(t, "req-1", *charge.RequestID)
}

func TestRequestServiceSubmitOtherSkipsCharge(t *testing.T) {
	repo := &requestRepoStub{}
	adjustments := &adjustmentWriterStub{}
	service := NewRequestService(repo, adjustments, nil, zap.NewNop())

	_, err := service.Submit(context.Background(), SubmitRequestRequest{
		StudentID: "alice1",
		Type:      "other",
		Detail:    "question about coins",
	})
	require.NoError(t, err)
	assert.Empty(t, adjustments.requests)
}

func TestRequestServiceSubmitInvalidType(t *testing.T) {
	service := NewRequestService(&requestRepoStub{}, &adjustmentWriterStub{}, nil, zap.NewNop())

	_, err := service.Submit(context.Background(), SubmitRequestRequest{
		StudentID: "alice1",
		Type:      "wish",
		Detail:    "anything",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRequestServiceApprove(t *testing.T) {
	repo := &requestRepoStub{byID: map[string]*models.StudentRequest{
		"req-1": {ID: "req-1", StudentID: "alice1", Type: models.RequestRedemption, Cost: 10, Status: models.RequestPending},
	}}
	adjustments := &adjustmentWriterStub{}
	service := NewRequestService(repo, adjustments, nil, zap.NewNop())

	request, err := service.Approve(context.Background(), "req-1", "admin")
	require.NoError(t, err)
	assert.Equal(t, models.RequestApproved, request.Status)
	// the submit-time charge stands, no extra adjustment on approval
	assert.Empty(t, adjustments.requests)
}

func TestRequestServiceRejectRefundsRedemption(t *testing.T) {
	repo := &requestRepoStub{byID: map[string]*models.StudentRequest{
		"req-1": {ID: "req-1", StudentID: "alice1", Type: models.RequestRedemption, Detail: "homework pass", Cost: 10, Status: models.RequestPending},
	}}
	adjustments := &adjustmentWriterStub{}
	service := NewRequestService(repo, adjustments, nil, zap.NewNop())

	request, err := service.Reject(context.Background(), "req-1", "admin")
	require.NoError(t, err)
	assert.Equal(t, models.RequestRejected, request.Status)

	require.Len(t, adjustments.requests, 1)
	refund := adjustments.requests[0]
	assert.Equal(t, 10, refund.Amount)
	assert.Equal(t, "admin", refund.CreatedBy)
}

func TestRequestServiceReviewAlreadyReviewed(t *testing.T) {
	repo := &requestRepoStub{byID: map[string]*models.StudentRequest{
		"req-1": {ID: "req-1", StudentID: "alice1", Status: models.RequestApproved},
	}}
	service := NewRequestService(repo, &adjustmentWriterStub{}, nil, zap.NewNop())

	_, err := service.Approve(context.Background(), "req-1", "admin")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestRequestServiceReviewNotFound(t *testing.T) {
	service := NewRequestService(&requestRepoStub{}, &adjustmentWriterStub{}, nil, zap.NewNop())

	_, err := service.Approve(context.Background(), "req-missing", "admin")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
