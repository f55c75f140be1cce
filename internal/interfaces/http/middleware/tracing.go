package middleware

import (
	"net/http"

	"github.com/bizcore/backend/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig holds configuration for the tracing middleware
type TracingConfig struct {
	ServiceName string
	Enabled     bool
}

// TracingWithConfig wraps otelgin; spans are named after the route pattern
func TracingWithConfig(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	return otelgin.Middleware(cfg.ServiceName)
}

// SpanEnricher copies the resolved security context onto the request span.
// It must run after the tenant middleware.
func SpanEnricher() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			if id := c.GetString(RequestIDKey); id != "" {
				span.SetAttributes(attribute.String("request.id", id))
			}
			if sc, ok := GetSecurityContext(c); ok {
				span.SetAttributes(
					attribute.String(telemetry.SpanAttrTenantID, sc.TenantID.String()),
					attribute.String(telemetry.SpanAttrUserID, sc.UserID.String()),
					attribute.String(telemetry.SpanAttrAccessType, string(sc.AccessType)),
				)
			}
		}
		c.Next()
	}
}

// SpanErrorMarker sets an error status on the span for 5xx responses.
// Denials (4xx) are expected outcomes and leave the span status unset.
func SpanErrorMarker() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}
		status := c.Writer.Status()
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}
