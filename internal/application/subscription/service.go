// Package subscription resolves the authoritative subscription and plan of a
// tenant and applies billing events to it.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	appaudit "github.com/bizcore/backend/internal/application/audit"
	"github.com/bizcore/backend/internal/application/unitofwork"
	"github.com/bizcore/backend/internal/domain/audit"
	"github.com/bizcore/backend/internal/domain/billing"
	"github.com/bizcore/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Invalidator drops cached derived state for a tenant
type Invalidator interface {
	Invalidate(ctx context.Context, tenantID uuid.UUID)
}

// Service resolves subscriptions and plans
type Service struct {
	repos       unitofwork.Repositories
	txScope     unitofwork.TransactionScope
	catalog     billing.PlanCatalog
	sink        *appaudit.Sink
	invalidator Invalidator
	defaultPlan billing.PlanCode
	logger      *zap.Logger
	now         func() time.Time
}

// NewService creates a subscription service. catalog is the fallback used
// when a plan is missing from the database.
func NewService(
	repos unitofwork.Repositories,
	txScope unitofwork.TransactionScope,
	catalog billing.PlanCatalog,
	sink *appaudit.Sink,
	logger *zap.Logger,
) *Service {
	return &Service{
		repos:       repos,
		txScope:     txScope,
		catalog:     catalog,
		sink:        sink,
		defaultPlan: billing.DefaultPlanCode,
		logger:      logger,
		now:         time.Now,
	}
}

// SetDefaultPlan changes the plan provisioned for tenants without a
// subscription. Unknown codes are ignored.
func (s *Service) SetDefaultPlan(code billing.PlanCode) {
	if _, ok := s.catalog.Find(code); ok {
		s.defaultPlan = code
	}
}

// SetInvalidator registers the plan-state cache to clear after billing events
func (s *Service) SetInvalidator(inv Invalidator) {
	s.invalidator = inv
}

// SetClock overrides the time source
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// ResolveOrProvision returns the tenant's subscription, creating the default
// plan subscription when none exists.
func (s *Service) ResolveOrProvision(ctx context.Context, tenantID uuid.UUID) (*billing.Subscription, error) {
	return s.ResolveOrProvisionIn(ctx, s.repos, tenantID)
}

// ResolveOrProvisionIn is ResolveOrProvision on repos, e.g. those of an
// open transaction.
func (s *Service) ResolveOrProvisionIn(ctx context.Context, repos unitofwork.Repositories, tenantID uuid.UUID) (*billing.Subscription, error) {
	sub, err := repos.Subscriptions().FindByTenant(ctx, tenantID)
	if err == nil {
		return sub, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("find subscription: %w", err)
	}

	sub = billing.NewSubscription(tenantID, s.defaultPlan, s.now())
	if err := repos.Subscriptions().Create(ctx, sub); err != nil {
		// A concurrent request may have provisioned it first
		existing, findErr := repos.Subscriptions().FindByTenant(ctx, tenantID)
		if findErr == nil {
			return existing, nil
		}
		return nil, fmt.Errorf("provision subscription: %w", err)
	}
	s.logger.Info("Provisioned default subscription",
		zap.String("tenant_id", tenantID.String()),
		zap.String("plan", string(sub.PlanCode)))
	return sub, nil
}

// ResolvePlan returns the plan from the database, falling back to the catalog
func (s *Service) ResolvePlan(ctx context.Context, code billing.PlanCode) (*billing.Plan, error) {
	return s.ResolvePlanIn(ctx, s.repos, code)
}

// ResolvePlanIn is ResolvePlan on repos
func (s *Service) ResolvePlanIn(ctx context.Context, repos unitofwork.Repositories, code billing.PlanCode) (*billing.Plan, error) {
	plan, err := repos.Plans().FindByCode(ctx, code)
	if err == nil {
		return plan, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("find plan %s: %w", code, err)
	}
	if p, ok := s.catalog.Find(code); ok {
		return p, nil
	}
	return nil, shared.ErrNotFound.WithMessage(fmt.Sprintf("plan %s is not defined", code))
}

// Catalog returns every plan, preferring the database
func (s *Service) Catalog(ctx context.Context) (billing.PlanCatalog, error) {
	return s.CatalogIn(ctx, s.repos)
}

// CatalogIn is Catalog on repos
func (s *Service) CatalogIn(ctx context.Context, repos unitofwork.Repositories) (billing.PlanCatalog, error) {
	plans, err := repos.Plans().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	if len(plans) == 0 {
		return s.catalog, nil
	}
	return plans, nil
}

// EventType is a billing lifecycle event
type EventType string

const (
	EventPaymentSucceeded EventType = "PAYMENT_SUCCEEDED"
	EventPaymentFailed    EventType = "PAYMENT_FAILED"
	EventPlanChanged      EventType = "PLAN_CHANGED"
	EventCancelled        EventType = "CANCELLED"
)

// BillingEvent is delivered by the payment collaborator
type BillingEvent struct {
	Type      EventType
	PlanCode  billing.PlanCode
	PaidUntil time.Time
}

// ApplyBillingEvent updates the tenant's single subscription and records an
// audit entry in the same transaction.
func (s *Service) ApplyBillingEvent(ctx context.Context, tenantID uuid.UUID, event BillingEvent) (*billing.Subscription, error) {
	if event.Type == EventPlanChanged {
		if _, err := s.ResolvePlan(ctx, event.PlanCode); err != nil {
			return nil, err
		}
	}

	var updated *billing.Subscription
	err := s.txScope.Execute(ctx, func(repos unitofwork.Repositories) error {
		sub, err := repos.Subscriptions().FindByTenant(ctx, tenantID)
		if err != nil {
			return err
		}
		before := *sub

		switch event.Type {
		case EventPaymentSucceeded:
			if event.PaidUntil.IsZero() {
				return shared.ErrInvalidInput.WithMessage("paid_until is required")
			}
			sub.RecordPaymentSucceeded(event.PaidUntil)
		case EventPaymentFailed:
			sub.RecordPaymentFailed()
		case EventPlanChanged:
			if err := sub.ChangePlan(event.PlanCode); err != nil {
				return err
			}
		case EventCancelled:
			sub.Cancel(s.now())
		default:
			return shared.ErrInvalidInput.WithMessage("unknown billing event: " + string(event.Type))
		}

		if err := repos.Subscriptions().Update(ctx, sub); err != nil {
			return fmt.Errorf("update subscription: %w", err)
		}
		entry := audit.NewSystemEntry(tenantID, audit.ActionSubscriptionUpdated, audit.EntitySubscription, sub.ID.String()).
			WithChange(snapshot(&before), snapshot(sub))
		if err := s.sink.Log(ctx, repos.Audit(), entry); err != nil {
			return err
		}
		updated = sub
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, tenantID)
	}
	s.logger.Info("Applied billing event",
		zap.String("tenant_id", tenantID.String()),
		zap.String("event", string(event.Type)))
	return updated, nil
}

func snapshot(sub *billing.Subscription) map[string]any {
	out := map[string]any{
		"plan_code":      sub.PlanCode,
		"status":         sub.Status,
		"payment_status": sub.PaymentStatus,
	}
	if sub.ExpiresAt != nil {
		out["expires_at"] = sub.ExpiresAt.Format(time.RFC3339)
	}
	return out
}
