package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/aleks-coins-api/internal/service"
)

func TestProgressHandlerUploadInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := service.NewProgressService(nil, nil, nil, nil, service.Thresholds{MinMinutes: 31, MinTopics: 1}, nil, zap.NewNop(), nil)
	handler := NewProgressHandler(svc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/admin/uploads", bytes.NewReader([]byte(`not json`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Upload(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProgressHandlerGetStudentRequiresScope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := service.NewProgressService(nil, nil, nil, nil, service.Thresholds{MinMinutes: 31, MinTopics: 1}, nil, zap.NewNop(), nil)
	handler := NewProgressHandler(svc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/progress/alice1", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "studentId", Value: "alice1"}}

	handler.GetStudent(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
