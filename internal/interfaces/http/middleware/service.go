package middleware

import (
	"github.com/bizcore/backend/internal/domain/shared"
	"github.com/bizcore/backend/internal/infrastructure/auth"
	"github.com/bizcore/backend/internal/infrastructure/logger"
	"github.com/bizcore/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequireService admits only credentials carrying the service role claim.
// It runs after JWT authentication on routes that act for the platform
// rather than for a tenant member.
func RequireService(log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims == nil || claims.Role != auth.ServiceRole {
			log.Warn("Service route called without service credential",
				logger.SecurityEvent(),
				zap.String("user_id", GetJWTUserID(c)),
				zap.String("route", c.FullPath()))
			AbortWithError(c, dto.FromError(shared.ErrInsufficientPermission.WithMessage("Service credential required")))
			return
		}
		c.Next()
	}
}
