package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studybase-api/internal/middleware"
	"github.com/noah-isme/studybase-api/internal/models"
	appErrors "github.com/noah-isme/studybase-api/pkg/errors"
	"github.com/noah-isme/studybase-api/pkg/response"
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

// actorFromContext returns the caller, or nil on public routes.
func actorFromContext(c *gin.Context) *models.Actor {
	claims := claimsFromContext(c)
	if claims == nil {
		return nil
	}
	return &models.Actor{UserID: claims.UserID, Email: claims.Email, FullName: claims.FullName, Role: claims.Role}
}

// requireActor writes 401 and returns nil when the route has no authenticated caller.
func requireActor(c *gin.Context) *models.Actor {
	actor := actorFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
	}
	return actor
}

func respondWithMeta(c *gin.Context, status int, data interface{}, pagination *models.Pagination, cacheHit bool) {
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, status, data, pagination, middleware.ExtractMeta(c))
}
