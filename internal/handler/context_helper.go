package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/aleks-coins-api/internal/middleware"
	"github.com/noah-isme/aleks-coins-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.AdminClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.AdminClaims)
	if !ok {
		return nil
	}
	return claims
}

// adminActor names the acting admin for audit fields. The portal shares a
// single admin credential, so the role stands in for an identity.
func adminActor(c *gin.Context) string {
	if claims := claimsFromContext(c); claims != nil && claims.Role != "" {
		return claims.Role
	}
	return "admin"
}
