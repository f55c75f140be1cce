// Package invoicing models the billable work unit metered by the INVOICES
// entitlement. Tax and document content are handled elsewhere.
package invoicing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bizcore/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status of an invoice
type Status string

const (
	StatusIssued    Status = "ISSUED"
	StatusCancelled Status = "CANCELLED"
)

// Invoice is an issued invoice
type Invoice struct {
	shared.TenantEntity
	Number       string
	CustomerName string
	Amount       decimal.Decimal
	Currency     string
	Status       Status
	IssuedBy     uuid.UUID
	IssuedAt     time.Time
	CancelledAt  *time.Time
}

// Issue creates an issued invoice
func Issue(tenantID, issuedBy uuid.UUID, prefix, customer string, amount decimal.Decimal, currency string, now time.Time) (*Invoice, error) {
	customer = strings.TrimSpace(customer)
	if customer == "" {
		return nil, shared.ErrInvalidInput.WithMessage("customer name is required")
	}
	if !amount.IsPositive() {
		return nil, shared.ErrInvalidInput.WithMessage("invoice amount must be positive")
	}
	if prefix == "" {
		prefix = "INV"
	}
	inv := &Invoice{
		TenantEntity: shared.NewTenantEntity(tenantID),
		CustomerName: customer,
		Amount:       amount.Round(2),
		Currency:     strings.ToUpper(currency),
		Status:       StatusIssued,
		IssuedBy:     issuedBy,
		IssuedAt:     now.UTC(),
	}
	inv.Number = fmt.Sprintf("%s-%s-%s", prefix, inv.IssuedAt.Format("20060102"), strings.ToUpper(inv.ID.String()[:8]))
	return inv, nil
}

// Cancel cancels an issued invoice
func (i *Invoice) Cancel(now time.Time) error {
	if i.Status == StatusCancelled {
		return shared.ErrInvalidState.WithMessage("invoice is already cancelled")
	}
	at := now.UTC()
	i.Status = StatusCancelled
	i.CancelledAt = &at
	i.Touch()
	return nil
}

// Repository persists invoices
type Repository interface {
	Create(ctx context.Context, inv *Invoice) error
	Update(ctx context.Context, inv *Invoice) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Invoice, error)
	List(ctx context.Context, tenantID uuid.UUID, page, pageSize int) ([]Invoice, int64, error)
}
