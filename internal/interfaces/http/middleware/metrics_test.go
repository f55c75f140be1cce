package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bizcore/backend/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

func collectMetrics(t *testing.T, reader sdkmetric.Reader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func TestHTTPMetrics_RecordsRoutePattern(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := telemetry.NewMeterProviderWithReader(reader, zap.NewNop())

	r := gin.New()
	r.Use(HTTPMetrics(mp))
	r.GET("/api/v1/invoices/:id", ok)

	serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/invoices/123", nil))
	serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/invoices/456", nil))
	serve(r, httptest.NewRequest(http.MethodGet, "/missing", nil))

	data := collectMetrics(t, reader)

	total, isSum := data["http_server_request_total"].(metricdata.Sum[int64])
	require.True(t, isSum)
	counts := map[string]int64{}
	for _, dp := range total.DataPoints {
		route, _ := dp.Attributes.Value(attribute.Key(attrRoute))
		status, _ := dp.Attributes.Value(attribute.Key(attrStatus))
		counts[route.AsString()+" "+status.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{
		"/api/v1/invoices/:id 200": 2,
		"unmatched 404":            1,
	}, counts)

	hist, isHist := data["http_server_request_duration_seconds"].(metricdata.Histogram[float64])
	require.True(t, isHist)
	assert.Len(t, hist.DataPoints, 2)

	active, isSum := data["http_server_active_requests"].(metricdata.Sum[int64])
	require.True(t, isSum)
	for _, dp := range active.DataPoints {
		assert.Zero(t, dp.Value)
	}
}

func TestHTTPMetrics_DisabledProvider(t *testing.T) {
	r := gin.New()
	r.Use(HTTPMetrics(nil))
	r.GET("/test", ok)

	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/test", nil)).Code)
}
