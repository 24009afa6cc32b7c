package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/aleks-coins-api/internal/service"
	appErrors "github.com/noah-isme/aleks-coins-api/pkg/errors"
	"github.com/noah-isme/aleks-coins-api/pkg/response"
)

// ProgressHandler exposes upload and progress endpoints.
type ProgressHandler struct {
	service *service.ProgressService
}

// NewProgressHandler constructs a progress handler.
func NewProgressHandler(svc *service.ProgressService) *ProgressHandler {
	return &ProgressHandler{service: svc}
}

// Upload godoc
// @Summary Merge a progress upload
// @Description Merge parsed ALEKS report rows for one period and section. Re-uploading replaces earlier data for the same students.
// @Tags Progress
// @Accept json
// @Produce json
// @Param payload body service.UploadRequest true "Upload payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/uploads [post]
func (h *ProgressHandler) Upload(c *gin.Context) {
	var req service.UploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid upload payload"))
		return
	}

	summary, err := h.service.ProcessUpload(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// GetStudent godoc
// @Summary Get a student's progress
// @Description Returns one student's day-by-day qualification log for a period and section, with overrides applied.
// @Tags Progress
// @Produce json
// @Param studentId path string true "Student ID"
// @Param period query string true "Period key"
// @Param section query string true "Section ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /progress/{studentId} [get]
func (h *ProgressHandler) GetStudent(c *gin.Context) {
	periodKey := c.Query("period")
	sectionID := c.Query("section")
	if periodKey == "" || sectionID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "period and section query parameters are required"))
		return
	}

	record, err := h.service.GetStudentProgress(c.Request.Context(), c.Param("studentId"), periodKey, sectionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// ListSection godoc
// @Summary List a section's progress
// @Tags Progress
// @Produce json
// @Param key path string true "Period key"
// @Param sectionId path string true "Section ID"
// @Success 200 {object} response.Envelope
// @Router /admin/periods/{key}/sections/{sectionId}/records [get]
func (h *ProgressHandler) ListSection(c *gin.Context) {
	records, err := h.service.ListSection(c.Request.Context(), c.Param("key"), c.Param("sectionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}
