package middleware

import (
	"github.com/bizcore/backend/internal/domain/identity"
	"github.com/bizcore/backend/internal/domain/shared"
	"github.com/bizcore/backend/internal/infrastructure/logger"
	"github.com/bizcore/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PermissionConfig holds configuration for the role gate
type PermissionConfig struct {
	Logger *zap.Logger
}

// RequireAction creates the role gate for action
func RequireAction(action identity.Action) gin.HandlerFunc {
	return RequireActionWithConfig(PermissionConfig{}, action)
}

// RequireActionWithConfig admits the request only when the caller's role is
// allowed to perform action. A route reached without a security context is a
// wiring bug and answers 500.
func RequireActionWithConfig(cfg PermissionConfig, action identity.Action) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		sc, ok := GetSecurityContext(c)
		if !ok {
			log.Error("Security context missing on protected route",
				zap.Bool("alert", true),
				zap.String("action", string(action)),
				zap.String("route", c.FullPath()))
			AbortWithError(c, dto.FromError(shared.ErrSecurityContextMissing))
			return
		}

		if !identity.IsAllowed(sc.Role, action) {
			log.Warn("Permission denied",
				logger.SecurityEvent(),
				zap.String("tenant_id", sc.TenantID.String()),
				zap.String("user_id", sc.UserID.String()),
				zap.String("role", string(sc.Role)),
				zap.String("action", string(action)))
			AbortWithError(c, dto.FromError(shared.ErrInsufficientPermission.WithDetails(map[string]any{
				"action":        action,
				"role":          sc.Role,
				"allowed_roles": identity.AllowedRoles(action),
			})))
			return
		}

		c.Next()
	}
}
