package billing

import (
	"context"
	"time"

	"github.com/bizcore/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// SubscriptionStatus is the lifecycle status of a subscription
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "ACTIVE"
	SubscriptionPaused    SubscriptionStatus = "PAUSED"
	SubscriptionCancelled SubscriptionStatus = "CANCELLED"
)

// PaymentStatus is the outcome of the latest billing attempt
type PaymentStatus string

const (
	PaymentPaid   PaymentStatus = "PAID"
	PaymentFailed PaymentStatus = "FAILED"
)

// Subscription binds a tenant to a plan. There is exactly one per tenant.
type Subscription struct {
	shared.TenantEntity
	PlanCode      PlanCode
	Status        SubscriptionStatus
	PaymentStatus PaymentStatus
	StartedAt     time.Time
	// ExpiresAt is nil for subscriptions without a fixed end
	ExpiresAt *time.Time
}

// NewSubscription creates an active, paid subscription starting now
func NewSubscription(tenantID uuid.UUID, plan PlanCode, now time.Time) *Subscription {
	return &Subscription{
		TenantEntity:  shared.NewTenantEntity(tenantID),
		PlanCode:      plan,
		Status:        SubscriptionActive,
		PaymentStatus: PaymentPaid,
		StartedAt:     now.UTC(),
	}
}

// IsExpired reports whether the subscription expired before now
func (s *Subscription) IsExpired(now time.Time) bool {
	return s.ExpiresAt != nil && now.After(*s.ExpiresAt)
}

// RecordPaymentSucceeded marks the subscription paid and extends it to paidUntil
func (s *Subscription) RecordPaymentSucceeded(paidUntil time.Time) {
	s.PaymentStatus = PaymentPaid
	if s.Status == SubscriptionPaused {
		s.Status = SubscriptionActive
	}
	until := paidUntil.UTC()
	s.ExpiresAt = &until
	s.Touch()
}

// RecordPaymentFailed marks the latest billing attempt as failed
func (s *Subscription) RecordPaymentFailed() {
	s.PaymentStatus = PaymentFailed
	s.Touch()
}

// ChangePlan moves the subscription to another plan
func (s *Subscription) ChangePlan(code PlanCode) error {
	if s.Status == SubscriptionCancelled {
		return shared.ErrInvalidState.WithMessage("cannot change plan of a cancelled subscription")
	}
	s.PlanCode = code
	s.Touch()
	return nil
}

// Cancel cancels the subscription; access ends at ExpiresAt
func (s *Subscription) Cancel(now time.Time) {
	s.Status = SubscriptionCancelled
	if s.ExpiresAt == nil {
		at := now.UTC()
		s.ExpiresAt = &at
	}
	s.Touch()
}

// SubscriptionRepository persists the authoritative subscription per tenant
type SubscriptionRepository interface {
	// FindByTenant returns shared.ErrNotFound when the tenant has none
	FindByTenant(ctx context.Context, tenantID uuid.UUID) (*Subscription, error)
	Create(ctx context.Context, sub *Subscription) error
	Update(ctx context.Context, sub *Subscription) error
}
