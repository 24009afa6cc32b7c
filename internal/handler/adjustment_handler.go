package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/aleks-coins-api/internal/service"
	appErrors "github.com/noah-isme/aleks-coins-api/pkg/errors"
	"github.com/noah-isme/aleks-coins-api/pkg/response"
)

// AdjustmentHandler exposes coin adjustment endpoints.
type AdjustmentHandler struct {
	service *service.AdjustmentService
}

// NewAdjustmentHandler constructs an adjustment handler.
func NewAdjustmentHandler(svc *service.AdjustmentService) *AdjustmentHandler {
	return &AdjustmentHandler{service: svc}
}

// History godoc
// @Summary List a student's adjustments
// @Description Returns the full adjustment trail for a student, deactivated entries included.
// @Tags Adjustments
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /admin/adjustments/{studentId} [get]
func (h *AdjustmentHandler) History(c *gin.Context) {
	adjustments, err := h.service.History(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, adjustments, nil)
}

// Create godoc
// @Summary Create an adjustment
// @Description Record a signed coin correction. Omit the period key to scope the adjustment to the student's total.
// @Tags Adjustments
// @Accept json
// @Produce json
// @Param payload body service.CreateAdjustmentRequest true "Adjustment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/adjustments [post]
func (h *AdjustmentHandler) Create(c *gin.Context) {
	var req service.CreateAdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid adjustment payload"))
		return
	}
	if req.CreatedBy == "" {
		req.CreatedBy = adminActor(c)
	}

	adjustment, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, adjustment)
}

// Deactivate godoc
// @Summary Deactivate an adjustment
// @Description Soft-delete an adjustment so it stops counting toward balances but stays in the audit trail.
// @Tags Adjustments
// @Param id path string true "Adjustment ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/adjustments/{id} [delete]
func (h *AdjustmentHandler) Deactivate(c *gin.Context) {
	if err := h.service.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
