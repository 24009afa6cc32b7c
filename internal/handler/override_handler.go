package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/aleks-coins-api/internal/service"
	appErrors "github.com/noah-isme/aleks-coins-api/pkg/errors"
	"github.com/noah-isme/aleks-coins-api/pkg/response"
)

// OverrideHandler exposes day override endpoints.
type OverrideHandler struct {
	service *service.OverrideService
}

// NewOverrideHandler constructs an override handler.
func NewOverrideHandler(svc *service.OverrideService) *OverrideHandler {
	return &OverrideHandler{service: svc}
}

// ListByStudent godoc
// @Summary List a student's overrides
// @Tags Overrides
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /admin/overrides/{studentId} [get]
func (h *OverrideHandler) ListByStudent(c *gin.Context) {
	overrides, err := h.service.ListByStudent(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, overrides, nil)
}

// Set godoc
// @Summary Create or replace an override
// @Description Force one student-date to qualified or not qualified. A second override for the same student and date replaces the first.
// @Tags Overrides
// @Accept json
// @Produce json
// @Param payload body service.SetOverrideRequest true "Override payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/overrides [put]
func (h *OverrideHandler) Set(c *gin.Context) {
	var req service.SetOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid override payload"))
		return
	}

	override, err := h.service.Set(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, override, nil)
}

// Delete godoc
// @Summary Delete an override
// @Tags Overrides
// @Param id path string true "Override ID"
// @Success 204 {object} response.Envelope
// @Router /admin/overrides/{id} [delete]
func (h *OverrideHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
