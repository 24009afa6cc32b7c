package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/aleks-coins-api/internal/service"
	"github.com/noah-isme/aleks-coins-api/pkg/response"
)

// BalanceHandler exposes balance and leaderboard endpoints.
type BalanceHandler struct {
	service *service.BalanceService
}

// NewBalanceHandler constructs a balance handler.
func NewBalanceHandler(svc *service.BalanceService) *BalanceHandler {
	return &BalanceHandler{service: svc}
}

// GetStudent godoc
// @Summary Get a student's coin balance
// @Description Returns the student's final balance: period coins plus active adjustments, never below zero.
// @Tags Balances
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /balance/{studentId} [get]
func (h *BalanceHandler) GetStudent(c *gin.Context) {
	result, err := h.service.StudentBalance(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Leaderboard godoc
// @Summary Get the coin leaderboard
// @Tags Balances
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /leaderboard [get]
func (h *BalanceHandler) Leaderboard(c *gin.Context) {
	board, err := h.service.Leaderboard(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, board, nil)
}

// Refresh godoc
// @Summary Recompute the leaderboard
// @Tags Balances
// @Success 204 {object} response.Envelope
// @Router /admin/leaderboard/refresh [post]
func (h *BalanceHandler) Refresh(c *gin.Context) {
	if err := h.service.RefreshLeaderboard(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
