// Package middleware holds the HTTP gate: credential verification, tenant
// resolution, the role gate and plan enforcement, plus transport concerns.
package middleware

import (
	"github.com/bizcore/backend/internal/domain/identity"
	"github.com/bizcore/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// Context keys shared with handlers
const (
	RequestIDKey     = "request_id"
	RequestIDHeader  = "X-Request-ID"
	PlanStateKey     = "plan_state"
	TenantHeaderName = "X-Tenant-ID"
)

// AbortWithError writes the error payload and stops the chain
func AbortWithError(c *gin.Context, resp dto.ErrorResponse) {
	c.AbortWithStatusJSON(resp.Status, resp.WithRequestID(c.GetString(RequestIDKey)))
}

// GetSecurityContext returns the security context set by the tenant resolver
func GetSecurityContext(c *gin.Context) (*identity.SecurityContext, bool) {
	return identity.SecurityContextFrom(c.Request.Context())
}
