// Package entitlement decides whether a tenant's plan allows an action.
package entitlement

import (
	"context"
	"fmt"
	"time"

	appaudit "github.com/bizcore/backend/internal/application/audit"
	"github.com/bizcore/backend/internal/application/subscription"
	"github.com/bizcore/backend/internal/application/unitofwork"
	"github.com/bizcore/backend/internal/domain/audit"
	"github.com/bizcore/backend/internal/domain/billing"
	"github.com/bizcore/backend/internal/domain/identity"
	"github.com/bizcore/backend/internal/domain/shared"
	"github.com/bizcore/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreditLedger consumes service credits on the given repositories
type CreditLedger interface {
	ConsumeOneIn(ctx context.Context, repos unitofwork.Repositories, tenantID uuid.UUID, creditType billing.CreditType) (bool, error)
	AvailableIn(ctx context.Context, repos unitofwork.Repositories, tenantID uuid.UUID, creditType billing.CreditType) (int64, error)
}

// DecisionRecorder observes decisions, e.g. for metrics
type DecisionRecorder interface {
	RecordDecision(ctx context.Context, d *Decision)
}

type nopRecorder struct{}

func (nopRecorder) RecordDecision(context.Context, *Decision) {}

// Service is the entitlement decision function
type Service struct {
	repos         unitofwork.Repositories
	subscriptions *subscription.Service
	ledger        CreditLedger
	sink          *appaudit.Sink
	recorder      DecisionRecorder
	logger        *zap.Logger
	now           func() time.Time
}

// NewService creates an entitlement service. The credit ledger and audit
// sink are injected so the service never reaches for them itself.
func NewService(
	repos unitofwork.Repositories,
	subscriptions *subscription.Service,
	ledger CreditLedger,
	sink *appaudit.Sink,
	logger *zap.Logger,
) *Service {
	return &Service{
		repos:         repos,
		subscriptions: subscriptions,
		ledger:        ledger,
		sink:          sink,
		recorder:      nopRecorder{},
		logger:        logger,
		now:           time.Now,
	}
}

// SetRecorder registers a decision recorder
func (s *Service) SetRecorder(r DecisionRecorder) {
	if r != nil {
		s.recorder = r
	}
}

// SetClock overrides the time source
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// CheckOption alters a single check
type CheckOption func(*checkOptions)

type checkOptions struct {
	dryRun      bool
	repos       unitofwork.Repositories
	quietDenial bool
}

// DryRun evaluates without consuming credits or auditing denials
func DryRun() CheckOption {
	return func(o *checkOptions) { o.dryRun = true }
}

// CheckEntitlement decides whether tenantID may perform action right now.
// Denials are returned as a Decision with Allowed=false; errors mean the
// decision could not be made and the caller must fail closed.
func (s *Service) CheckEntitlement(ctx context.Context, tenantID uuid.UUID, action Action, opts ...CheckOption) (*Decision, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "entitlement", "check",
		telemetry.WithAttribute(telemetry.SpanAttrTenantID, tenantID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrAction, string(action)))
	defer span.End()

	d, err := s.check(ctx, tenantID, action, opts)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrAllowed, d.Allowed,
		telemetry.SpanAttrPlanCode, string(d.PlanCode),
		telemetry.SpanAttrCreditUsed, d.CreditConsumed)
	if d.Reason != "" {
		telemetry.SetAttributes(span, telemetry.SpanAttrReason, d.Reason)
	}
	return d, nil
}

func (s *Service) check(ctx context.Context, tenantID uuid.UUID, action Action, opts []CheckOption) (*Decision, error) {
	o := checkOptions{repos: s.repos}
	for _, opt := range opts {
		opt(&o)
	}

	strat, ok := strategies[action]
	if !ok {
		return nil, shared.ErrInvalidInput.WithMessage("unknown entitlement action: " + string(action))
	}

	sub, err := s.subscriptions.ResolveOrProvisionIn(ctx, o.repos, tenantID)
	if err != nil {
		return nil, err
	}
	plan, err := s.subscriptions.ResolvePlanIn(ctx, o.repos, sub.PlanCode)
	if err != nil {
		return nil, err
	}
	catalog, err := s.subscriptions.CatalogIn(ctx, o.repos)
	if err != nil {
		return nil, err
	}

	d, err := strat.evaluate(ctx, s, evaluation{
		tenantID: tenantID,
		plan:     plan,
		catalog:  catalog,
		now:      s.now(),
		dryRun:   o.dryRun,
		repos:    o.repos,
	})
	if err != nil {
		return nil, err
	}
	d.Action = action
	d.PlanCode = plan.Code
	s.recorder.RecordDecision(ctx, d)

	if !d.Allowed && !o.dryRun && !o.quietDenial {
		s.logDenial(ctx, tenantID, d)
	}
	return d, nil
}

// Require is CheckEntitlement for mutation paths: a denial becomes an
// ENTITLEMENT_DENIED error carrying the decision.
func (s *Service) Require(ctx context.Context, tenantID uuid.UUID, action Action) (*Decision, error) {
	d, err := s.CheckEntitlement(ctx, tenantID, action)
	if err != nil {
		return nil, err
	}
	if !d.Allowed {
		return d, DeniedError(d)
	}
	return d, nil
}

// RequireIn is Require evaluated on repos, the repositories of the caller's
// open transaction. Usage reads and credit consumption join that
// transaction, so a credit taken for a mutation that later fails is rolled
// back with it. A denial is not audited here because the transaction is
// about to roll back: the caller passes the returned decision to
// AuditDenial once Execute has returned.
func (s *Service) RequireIn(ctx context.Context, repos unitofwork.Repositories, tenantID uuid.UUID, action Action) (*Decision, error) {
	d, err := s.CheckEntitlement(ctx, tenantID, action, func(o *checkOptions) {
		o.repos = repos
		o.quietDenial = true
	})
	if err != nil {
		return nil, err
	}
	if !d.Allowed {
		return d, DeniedError(d)
	}
	return d, nil
}

// AuditDenial records a denial returned by RequireIn. Allowed or nil
// decisions are ignored.
func (s *Service) AuditDenial(ctx context.Context, tenantID uuid.UUID, d *Decision) {
	if d == nil || d.Allowed {
		return
	}
	s.logDenial(ctx, tenantID, d)
}

// DeniedError converts a denial into a domain error
func DeniedError(d *Decision) *shared.DomainError {
	details := map[string]any{
		"action":    d.Action,
		"reason":    d.Reason,
		"plan_code": d.PlanCode,
	}
	if d.UpgradeSuggestion != nil {
		details["upgrade_suggestion"] = *d.UpgradeSuggestion
	}
	if d.CurrentUsage != nil {
		details["current_usage"] = *d.CurrentUsage
	}
	if d.Limit != nil {
		details["limit"] = *d.Limit
	}
	return shared.ErrEntitlementDenied.
		WithMessage(d.Message).
		WithCTA(string(billing.CTAUpgrade)).
		WithDetails(details)
}

func (s *Service) logDenial(ctx context.Context, tenantID uuid.UUID, d *Decision) {
	entityID := string(d.Action)
	var entry *audit.Entry
	if sc, ok := identity.SecurityContextFrom(ctx); ok && sc.TenantID == tenantID {
		entry = audit.NewEntry(sc, audit.ActionEntitlementDenied, audit.EntityEntitlement, entityID)
	} else {
		entry = audit.NewSystemEntry(tenantID, audit.ActionEntitlementDenied, audit.EntityEntitlement, entityID)
	}
	after := map[string]any{
		"action":    d.Action,
		"reason":    d.Reason,
		"plan_code": d.PlanCode,
	}
	if d.UpgradeSuggestion != nil {
		after["upgrade_suggestion"] = *d.UpgradeSuggestion
	}
	entry.WithChange(nil, after)
	s.sink.LogBestEffort(ctx, entry)

	s.logger.Info("Entitlement denied",
		zap.String("tenant_id", tenantID.String()),
		zap.String("action", string(d.Action)),
		zap.String("reason", d.Reason),
		zap.String("plan", string(d.PlanCode)))
}

func (m meteredStrategy) evaluate(ctx context.Context, s *Service, ev evaluation) (*Decision, error) {
	limit := ev.plan.Limit(m.key)
	if billing.IsUnlimited(limit) {
		return &Decision{Allowed: true}, nil
	}

	used, err := m.usage(ctx, ev.repos, ev.tenantID, ev.now)
	if err != nil {
		return nil, fmt.Errorf("read %s usage: %w", m.key, err)
	}
	lim := *limit
	d := &Decision{CurrentUsage: &used, Limit: &lim}
	if used < lim {
		d.Allowed = true
		return d, nil
	}

	if ev.dryRun {
		avail, err := s.ledger.AvailableIn(ctx, ev.repos, ev.tenantID, m.creditType)
		if err != nil {
			return nil, err
		}
		if avail > 0 {
			d.Allowed = true
			d.CreditAvailable = true
			return d, nil
		}
	} else {
		consumed, err := s.ledger.ConsumeOneIn(ctx, ev.repos, ev.tenantID, m.creditType)
		if err != nil {
			return nil, err
		}
		if consumed {
			d.Allowed = true
			d.CreditConsumed = true
			return d, nil
		}
	}

	d.Reason = ReasonLimitExceeded
	d.Message = fmt.Sprintf("%s limit of %d reached on plan %s", m.key, lim, ev.plan.Code)
	if next, ok := ev.catalog.NextHigher(ev.plan.Code); ok {
		code := next.Code
		d.UpgradeSuggestion = &code
	}
	return d, nil
}

func (f featureStrategy) evaluate(_ context.Context, _ *Service, ev evaluation) (*Decision, error) {
	if ev.plan.HasFeature(f.feature) {
		return &Decision{Allowed: true}, nil
	}
	d := &Decision{
		Reason:  ReasonFeatureNotAvailable,
		Message: fmt.Sprintf("feature %s is not available on plan %s", f.feature, ev.plan.Code),
	}
	if p, ok := ev.catalog.LowestWithFeature(f.feature); ok {
		code := p.Code
		d.UpgradeSuggestion = &code
	}
	return d, nil
}
