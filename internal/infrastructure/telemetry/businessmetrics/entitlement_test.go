package businessmetrics

import (
	"context"
	"testing"

	"github.com/bizcore/backend/internal/application/entitlement"
	"github.com/bizcore/backend/internal/domain/billing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func sums(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Sum[int64] {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Sum[int64]{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if s, ok := m.Data.(metricdata.Sum[int64]); ok {
				out[m.Name] = s
			}
		}
	}
	return out
}

func TestEntitlementMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test")
	m, err := NewEntitlementMetrics(meter)
	require.NoError(t, err)
	ctx := context.Background()

	m.RecordDecision(ctx, &entitlement.Decision{Allowed: true, Action: entitlement.ActionIssueInvoice, PlanCode: billing.PlanStart})
	m.RecordDecision(ctx, &entitlement.Decision{Allowed: true, Action: entitlement.ActionIssueInvoice, PlanCode: billing.PlanStart, CreditConsumed: true})
	m.RecordDecision(ctx, &entitlement.Decision{
		Action:   entitlement.ActionIssueInvoice,
		PlanCode: billing.PlanStart,
		Reason:   entitlement.ReasonLimitExceeded,
	})
	m.RecordPlanBlocked(ctx, billing.PlanStatusBlocked)
	m.RecordTenantDenied(ctx, "TENANT_VIOLATION")

	got := sums(t, reader)

	var allowed, denied int64
	for _, dp := range got["entitlement_decisions_total"].DataPoints {
		v, _ := dp.Attributes.Value(attribute.Key("allowed"))
		if v.AsString() == "true" {
			allowed += dp.Value
		} else {
			denied += dp.Value
			reason, ok := dp.Attributes.Value(attribute.Key("reason"))
			require.True(t, ok)
			assert.Equal(t, entitlement.ReasonLimitExceeded, reason.AsString())
		}
	}
	assert.Equal(t, int64(2), allowed)
	assert.Equal(t, int64(1), denied)
	assert.Equal(t, int64(1), got["entitlement_credits_consumed_total"].DataPoints[0].Value)
	assert.Equal(t, int64(1), got["plan_enforcement_blocked_total"].DataPoints[0].Value)
	assert.Equal(t, int64(1), got["tenant_access_denied_total"].DataPoints[0].Value)
}
