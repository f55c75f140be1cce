package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bizcore/backend/internal/domain/identity"
	"github.com/bizcore/backend/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// startSpan opens a recording span around the request, standing in for otelgin
func startSpan(tp *sdktrace.TracerProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tp.Tracer("test").Start(c.Request.Context(), c.FullPath())
		defer span.End()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func newRecordingProvider(t *testing.T) (*sdktrace.TracerProvider, *tracetest.SpanRecorder) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return tp, sr
}

func TestSpanEnricher(t *testing.T) {
	tp, sr := newRecordingProvider(t)
	sc := &identity.SecurityContext{
		TenantID:   uuid.New(),
		UserID:     uuid.New(),
		AccessType: identity.AccessTypeDelegated,
		Role:       identity.RoleAccountant,
	}

	r := gin.New()
	r.Use(RequestID(), startSpan(tp), withSecurityContext(sc), SpanEnricher())
	r.GET("/test", ok)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	serve(r, req)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	attrs := map[attribute.Key]string{}
	for _, a := range spans[0].Attributes() {
		attrs[a.Key] = a.Value.AsString()
	}
	assert.Equal(t, "req-1", attrs["request.id"])
	assert.Equal(t, sc.TenantID.String(), attrs[telemetry.SpanAttrTenantID])
	assert.Equal(t, sc.UserID.String(), attrs[telemetry.SpanAttrUserID])
	assert.Equal(t, "DELEGATED", attrs[telemetry.SpanAttrAccessType])
}

func TestSpanErrorMarker(t *testing.T) {
	tests := []struct {
		status int
		code   codes.Code
	}{
		{http.StatusOK, codes.Unset},
		{http.StatusForbidden, codes.Unset},
		{http.StatusInternalServerError, codes.Error},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			tp, sr := newRecordingProvider(t)
			r := gin.New()
			r.Use(startSpan(tp), SpanErrorMarker())
			r.GET("/test", func(c *gin.Context) { c.Status(tt.status) })

			serve(r, httptest.NewRequest(http.MethodGet, "/test", nil))

			spans := sr.Ended()
			require.Len(t, spans, 1)
			assert.Equal(t, tt.code, spans[0].Status().Code)
		})
	}
}

func TestTracingWithConfig_Disabled(t *testing.T) {
	r := gin.New()
	r.Use(TracingWithConfig(TracingConfig{Enabled: false}))
	r.GET("/test", ok)

	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/test", nil)).Code)
}
