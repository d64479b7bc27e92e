package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/emra-dev/lms-api/internal/middleware"
	"github.com/emra-dev/lms-api/internal/models"
	"github.com/emra-dev/lms-api/internal/service"
	appErrors "github.com/emra-dev/lms-api/pkg/errors"
	"github.com/emra-dev/lms-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// viewerFromContext builds the service-level identity. Anonymous callers
// get a zero Viewer.
func viewerFromContext(c *gin.Context) service.Viewer {
	claims := claimsFromContext(c)
	if claims == nil {
		return service.Viewer{}
	}
	return service.Viewer{UserID: claims.UserID, Role: claims.Role}
}

// requireViewer aborts with 401 when no claims are attached.
func requireViewer(c *gin.Context) (service.Viewer, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return service.Viewer{}, false
	}
	return service.Viewer{UserID: claims.UserID, Role: claims.Role}, true
}

func paramInt64(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid "+name))
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
