package middleware

import (
	appaudit "github.com/bizcore/backend/internal/application/audit"
	"github.com/gin-gonic/gin"
)

// AuditRequestMeta makes the client ip and user agent available to audit
// entries written while serving the request
func AuditRequestMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := appaudit.WithRequestMeta(c.Request.Context(), c.ClientIP(), c.Request.UserAgent())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
