package billing

import (
	"context"
	"strings"
	"time"

	"github.com/bizcore/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ServiceCredit is a time-boxed bonus allowance for one limit.
// RemainingValue only decreases and never goes negative; expired credits
// are ignored, never deleted.
type ServiceCredit struct {
	shared.TenantEntity
	CreditType     CreditType
	RemainingValue int64
	ValidUntil     time.Time
	Source         string
}

// NewServiceCredit creates a credit grant
func NewServiceCredit(tenantID uuid.UUID, creditType CreditType, amount int64, validUntil time.Time, source string) (*ServiceCredit, error) {
	if tenantID == uuid.Nil {
		return nil, shared.ErrInvalidInput.WithMessage("tenant is required")
	}
	if !creditType.IsValid() {
		return nil, shared.ErrInvalidInput.WithMessage("invalid credit type: " + string(creditType))
	}
	if amount <= 0 {
		return nil, shared.ErrInvalidInput.WithMessage("credit amount must be positive")
	}
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, shared.ErrInvalidInput.WithMessage("credit source is required")
	}
	return &ServiceCredit{
		TenantEntity:   shared.NewTenantEntity(tenantID),
		CreditType:     creditType,
		RemainingValue: amount,
		ValidUntil:     validUntil.UTC(),
		Source:         source,
	}, nil
}

// IsUsable reports whether the credit can still be consumed at now
func (c *ServiceCredit) IsUsable(now time.Time) bool {
	return c.RemainingValue > 0 && now.Before(c.ValidUntil)
}

// ServiceCreditRepository persists credits
type ServiceCreditRepository interface {
	// ListUsable returns unexpired credits with remaining value, oldest expiry first
	ListUsable(ctx context.Context, tenantID uuid.UUID, creditType CreditType, now time.Time) ([]ServiceCredit, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]ServiceCredit, error)
	// ConsumeOne decrements a credit iff it still has remaining value.
	// Returns false when another request consumed the last unit first.
	ConsumeOne(ctx context.Context, creditID uuid.UUID) (bool, error)
	Create(ctx context.Context, credit *ServiceCredit) error
}
