// Package businessmetrics records entitlement and plan enforcement outcomes.
package businessmetrics

import (
	"context"
	"strconv"

	"github.com/bizcore/backend/internal/application/entitlement"
	"github.com/bizcore/backend/internal/domain/billing"
	"github.com/bizcore/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// EntitlementMetrics counts entitlement decisions and plan enforcement
// outcomes. It implements entitlement.DecisionRecorder.
type EntitlementMetrics struct {
	decisions     *telemetry.Counter
	creditsUsed   *telemetry.Counter
	planBlocked   *telemetry.Counter
	tenantDenials *telemetry.Counter
}

// NewEntitlementMetrics creates the instruments on meter
func NewEntitlementMetrics(meter metric.Meter) (*EntitlementMetrics, error) {
	decisions, err := telemetry.NewCounter(meter, "entitlement_decisions_total", "Entitlement decisions by action and outcome", "{decision}")
	if err != nil {
		return nil, err
	}
	creditsUsed, err := telemetry.NewCounter(meter, "entitlement_credits_consumed_total", "Service credits consumed to cover usage over the plan limit", "{credit}")
	if err != nil {
		return nil, err
	}
	planBlocked, err := telemetry.NewCounter(meter, "plan_enforcement_blocked_total", "Requests rejected because the plan is restricted", "{request}")
	if err != nil {
		return nil, err
	}
	tenantDenials, err := telemetry.NewCounter(meter, "tenant_access_denied_total", "Requests rejected while resolving the tenant", "{request}")
	if err != nil {
		return nil, err
	}
	return &EntitlementMetrics{
		decisions:     decisions,
		creditsUsed:   creditsUsed,
		planBlocked:   planBlocked,
		tenantDenials: tenantDenials,
	}, nil
}

// RecordDecision counts one decision. Tenant ids are not attributes to keep
// cardinality bounded.
func (m *EntitlementMetrics) RecordDecision(ctx context.Context, d *entitlement.Decision) {
	attrs := []attribute.KeyValue{
		attribute.String("action", string(d.Action)),
		attribute.String("allowed", strconv.FormatBool(d.Allowed)),
		attribute.String("plan", string(d.PlanCode)),
	}
	if d.Reason != "" {
		attrs = append(attrs, attribute.String("reason", d.Reason))
	}
	m.decisions.Inc(ctx, attrs...)
	if d.CreditConsumed {
		m.creditsUsed.Inc(ctx, attribute.String("action", string(d.Action)))
	}
}

// RecordPlanBlocked counts a request rejected by plan enforcement
func (m *EntitlementMetrics) RecordPlanBlocked(ctx context.Context, status billing.PlanStatus) {
	m.planBlocked.Inc(ctx, attribute.String("status", string(status)))
}

// RecordTenantDenied counts a request rejected by the tenant resolver
func (m *EntitlementMetrics) RecordTenantDenied(ctx context.Context, code string) {
	m.tenantDenials.Inc(ctx, attribute.String("code", code))
}

var _ entitlement.DecisionRecorder = (*EntitlementMetrics)(nil)
