// Package planstate derives and caches the overall account status of a tenant.
package planstate

import (
	"context"
	"fmt"
	"time"

	"github.com/bizcore/backend/internal/application/subscription"
	"github.com/bizcore/backend/internal/application/unitofwork"
	"github.com/bizcore/backend/internal/domain/billing"
	"github.com/bizcore/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PlanInfo is the plan summary shown with the state
type PlanInfo struct {
	Code         billing.PlanCode `json:"code"`
	Name         string           `json:"name"`
	PriceMonthly decimal.Decimal  `json:"priceMonthly"`
	PriceYearly  decimal.Decimal  `json:"priceYearly"`
}

// UsageValue is one dimension's usage; a limit of -1 means unlimited
type UsageValue struct {
	Used  int64 `json:"used"`
	Limit int64 `json:"limit"`
}

// Usage groups the three resource dimensions
type Usage struct {
	Invoices    UsageValue `json:"invoices"`
	Seats       UsageValue `json:"seats"`
	Accountants UsageValue `json:"accountants"`
}

// State is the derived plan state as served to clients and cached
type State struct {
	Plan       PlanInfo           `json:"plan"`
	Status     billing.PlanStatus `json:"status"`
	Usage      Usage              `json:"usage"`
	Expiration *time.Time         `json:"expiration"`
	Reason     string             `json:"reason"`
	CTA        *billing.CTA       `json:"cta"`
	PlanCode   billing.PlanCode   `json:"planCode"`
	Limits     map[string]int64   `json:"limits"`
	ComputedAt time.Time          `json:"computedAt"`
}

// Clone returns a copy that shares no pointers or maps with s
func (s *State) Clone() *State {
	out := *s
	if s.Expiration != nil {
		exp := *s.Expiration
		out.Expiration = &exp
	}
	if s.CTA != nil {
		cta := *s.CTA
		out.CTA = &cta
	}
	if s.Limits != nil {
		out.Limits = make(map[string]int64, len(s.Limits))
		for k, v := range s.Limits {
			out.Limits[k] = v
		}
	}
	return &out
}

// Config tunes the engine
type Config struct {
	WarningPercent int
}

// Engine derives plan states
type Engine struct {
	repos         unitofwork.Repositories
	subscriptions *subscription.Service
	cache         Cache
	config        Config
	logger        *zap.Logger
	now           func() time.Time
}

// NewEngine creates an engine. A nil cache disables caching.
func NewEngine(
	repos unitofwork.Repositories,
	subscriptions *subscription.Service,
	cache Cache,
	config Config,
	logger *zap.Logger,
) *Engine {
	if cache == nil {
		cache = NopCache{}
	}
	return &Engine{
		repos:         repos,
		subscriptions: subscriptions,
		cache:         cache,
		config:        config,
		logger:        logger,
		now:           time.Now,
	}
}

// SetClock overrides the time source
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// GetPlanState returns the tenant's plan state, served from cache when fresh
func (e *Engine) GetPlanState(ctx context.Context, tenantID uuid.UUID) (*State, error) {
	if st, ok := e.cache.Get(ctx, tenantID); ok {
		return st, nil
	}
	return e.Refresh(ctx, tenantID)
}

// Refresh derives the state and replaces the cached copy
func (e *Engine) Refresh(ctx context.Context, tenantID uuid.UUID) (*State, error) {
	st, err := e.Derive(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	e.cache.Set(ctx, tenantID, st)
	return st, nil
}

// Invalidate drops the cached state
func (e *Engine) Invalidate(ctx context.Context, tenantID uuid.UUID) {
	e.cache.Invalidate(ctx, tenantID)
}

// Derive always reads current data and bypasses the cache
func (e *Engine) Derive(ctx context.Context, tenantID uuid.UUID) (*State, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "planstate", "derive",
		telemetry.WithAttribute(telemetry.SpanAttrTenantID, tenantID.String()))
	defer span.End()

	st, err := e.derive(ctx, tenantID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrPlanCode, string(st.PlanCode),
		telemetry.SpanAttrPlanStatus, string(st.Status))
	return st, nil
}

func (e *Engine) derive(ctx context.Context, tenantID uuid.UUID) (*State, error) {
	sub, err := e.subscriptions.ResolveOrProvision(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	plan, err := e.subscriptions.ResolvePlan(ctx, sub.PlanCode)
	if err != nil {
		return nil, err
	}

	now := e.now()
	invoices, err := e.repos.UsageCounters().Get(ctx, tenantID, billing.EntitlementInvoices, billing.PeriodStart(now))
	if err != nil {
		return nil, fmt.Errorf("read invoice usage: %w", err)
	}
	seats, err := e.repos.Members().CountActive(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("count seats: %w", err)
	}
	accountants, err := e.repos.Delegations().CountActiveAssignments(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("count accountants: %w", err)
	}

	derived := billing.DerivePlanState(billing.PlanStateInput{
		Subscription: sub,
		Plan:         plan,
		Usage: map[billing.Dimension]int64{
			billing.DimensionInvoices:    invoices,
			billing.DimensionSeats:       seats,
			billing.DimensionAccountants: accountants,
		},
		Now:            now,
		WarningPercent: e.config.WarningPercent,
	})

	if derived.Status != billing.PlanStatusActive {
		e.logger.Debug("Plan state restricted",
			zap.String("tenant_id", tenantID.String()),
			zap.String("status", string(derived.Status)),
			zap.String("reason", derived.Reason))
	}
	return toState(derived, now), nil
}

func toState(d billing.PlanState, now time.Time) *State {
	usage := func(dim billing.Dimension) UsageValue {
		u := d.Usage[dim]
		return UsageValue{Used: u.Used, Limit: billing.LimitValue(u.Limit)}
	}

	st := &State{
		Plan: PlanInfo{
			Code:         d.Plan.Code,
			Name:         d.Plan.Name,
			PriceMonthly: d.Plan.PriceMonthly,
			PriceYearly:  d.Plan.PriceYearly,
		},
		Status: d.Status,
		Usage: Usage{
			Invoices:    usage(billing.DimensionInvoices),
			Seats:       usage(billing.DimensionSeats),
			Accountants: usage(billing.DimensionAccountants),
		},
		Expiration: d.Expiration,
		Reason:     d.Reason,
		PlanCode:   d.Plan.Code,
		Limits:     make(map[string]int64, 4),
		ComputedAt: now.UTC(),
	}
	if d.CTA != billing.CTANone {
		cta := d.CTA
		st.CTA = &cta
	}
	for _, key := range []billing.EntitlementKey{
		billing.EntitlementInvoices, billing.EntitlementSeats, billing.EntitlementAccountants, billing.EntitlementGraceDays,
	} {
		st.Limits[string(key)] = billing.LimitValue(d.Plan.Limit(key))
	}
	return st
}
