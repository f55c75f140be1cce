// Package credit manages time-boxed service credits that extend plan limits.
package credit

import (
	"context"
	"fmt"
	"time"

	appaudit "github.com/bizcore/backend/internal/application/audit"
	"github.com/bizcore/backend/internal/application/unitofwork"
	"github.com/bizcore/backend/internal/domain/audit"
	"github.com/bizcore/backend/internal/domain/billing"
	"github.com/bizcore/backend/internal/domain/identity"
	"github.com/bizcore/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LedgerService consumes and grants service credits
type LedgerService struct {
	repos   unitofwork.Repositories
	txScope unitofwork.TransactionScope
	sink    *appaudit.Sink
	logger  *zap.Logger
	now     func() time.Time
}

// NewLedgerService creates a ledger service
func NewLedgerService(
	repos unitofwork.Repositories,
	txScope unitofwork.TransactionScope,
	sink *appaudit.Sink,
	logger *zap.Logger,
) *LedgerService {
	return &LedgerService{
		repos:   repos,
		txScope: txScope,
		sink:    sink,
		logger:  logger,
		now:     time.Now,
	}
}

// SetClock overrides the time source
func (s *LedgerService) SetClock(now func() time.Time) {
	s.now = now
}

// ConsumeOne takes one unit from the tenant's usable credit of the given type
// expiring first. If a concurrent request drains that credit between the read
// and the conditional update, the next credit is tried.
func (s *LedgerService) ConsumeOne(ctx context.Context, tenantID uuid.UUID, creditType billing.CreditType) (bool, error) {
	return s.ConsumeOneIn(ctx, s.repos, tenantID, creditType)
}

// ConsumeOneIn is ConsumeOne on repos. Inside a transaction the unit is
// given back when the transaction rolls back.
func (s *LedgerService) ConsumeOneIn(ctx context.Context, repos unitofwork.Repositories, tenantID uuid.UUID, creditType billing.CreditType) (bool, error) {
	credits, err := repos.Credits().ListUsable(ctx, tenantID, creditType, s.now())
	if err != nil {
		return false, fmt.Errorf("list usable credits: %w", err)
	}
	for _, c := range credits {
		ok, err := repos.Credits().ConsumeOne(ctx, c.ID)
		if err != nil {
			return false, fmt.Errorf("consume credit %s: %w", c.ID, err)
		}
		if ok {
			s.logger.Debug("Consumed service credit",
				zap.String("tenant_id", tenantID.String()),
				zap.String("credit_id", c.ID.String()),
				zap.String("credit_type", string(creditType)))
			return true, nil
		}
	}
	return false, nil
}

// Available returns the total usable units of a credit type
func (s *LedgerService) Available(ctx context.Context, tenantID uuid.UUID, creditType billing.CreditType) (int64, error) {
	return s.AvailableIn(ctx, s.repos, tenantID, creditType)
}

// AvailableIn is Available on repos
func (s *LedgerService) AvailableIn(ctx context.Context, repos unitofwork.Repositories, tenantID uuid.UUID, creditType billing.CreditType) (int64, error) {
	credits, err := repos.Credits().ListUsable(ctx, tenantID, creditType, s.now())
	if err != nil {
		return 0, fmt.Errorf("list usable credits: %w", err)
	}
	var total int64
	for _, c := range credits {
		total += c.RemainingValue
	}
	return total, nil
}

// Balance is the usable credit per type plus every grant on record
type Balance struct {
	Available map[billing.CreditType]int64
	Credits   []billing.ServiceCredit
}

// Balance lists the tenant's credits
func (s *LedgerService) Balance(ctx context.Context, tenantID uuid.UUID) (*Balance, error) {
	credits, err := s.repos.Credits().ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list credits: %w", err)
	}
	now := s.now()
	b := &Balance{
		Available: map[billing.CreditType]int64{
			billing.CreditTypeInvoice:    0,
			billing.CreditTypeSeat:       0,
			billing.CreditTypeAccountant: 0,
		},
		Credits: credits,
	}
	for _, c := range credits {
		if c.IsUsable(now) {
			b.Available[c.CreditType] += c.RemainingValue
		}
	}
	return b, nil
}

// GrantInput describes a credit grant from an incentive event
type GrantInput struct {
	TenantID   uuid.UUID
	CreditType billing.CreditType
	Amount     int64
	ValidFor   time.Duration
	Source     string
}

// Grant creates a credit and its audit entry atomically. sc is nil for
// system-originated grants.
func (s *LedgerService) Grant(ctx context.Context, sc *identity.SecurityContext, in GrantInput) (*billing.ServiceCredit, error) {
	c, err := billing.NewServiceCredit(in.TenantID, in.CreditType, in.Amount, s.now().Add(in.ValidFor), in.Source)
	if err != nil {
		return nil, err
	}

	err = s.txScope.Execute(ctx, func(repos unitofwork.Repositories) error {
		exists, err := repos.Companies().Exists(ctx, in.TenantID)
		if err != nil {
			return fmt.Errorf("check tenant: %w", err)
		}
		if !exists {
			return shared.ErrNotFound.WithMessage("tenant not found")
		}
		if err := repos.Credits().Create(ctx, c); err != nil {
			return fmt.Errorf("create credit: %w", err)
		}
		entry := audit.NewSystemEntry(in.TenantID, audit.ActionCreditGranted, audit.EntityCredit, c.ID.String())
		if sc != nil {
			entry = audit.NewEntry(sc, audit.ActionCreditGranted, audit.EntityCredit, c.ID.String())
		}
		entry.WithChange(nil, map[string]any{
			"credit_type": c.CreditType,
			"amount":      c.RemainingValue,
			"valid_until": c.ValidUntil.Format(time.RFC3339),
			"source":      c.Source,
		})
		return s.sink.Log(ctx, repos.Audit(), entry)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}
