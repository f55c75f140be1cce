// Package invoicing issues and cancels invoices under plan entitlements.
package invoicing

import (
	"context"
	"fmt"
	"time"

	appaudit "github.com/bizcore/backend/internal/application/audit"
	"github.com/bizcore/backend/internal/application/entitlement"
	"github.com/bizcore/backend/internal/application/subscription"
	"github.com/bizcore/backend/internal/application/unitofwork"
	"github.com/bizcore/backend/internal/domain/audit"
	"github.com/bizcore/backend/internal/domain/billing"
	"github.com/bizcore/backend/internal/domain/identity"
	"github.com/bizcore/backend/internal/domain/invoicing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Entitlements is the part of the entitlement service used here
type Entitlements interface {
	Require(ctx context.Context, tenantID uuid.UUID, action entitlement.Action) (*entitlement.Decision, error)
	RequireIn(ctx context.Context, repos unitofwork.Repositories, tenantID uuid.UUID, action entitlement.Action) (*entitlement.Decision, error)
	AuditDenial(ctx context.Context, tenantID uuid.UUID, d *entitlement.Decision)
}

// Service issues invoices and meters them against the INVOICES limit
type Service struct {
	repos        unitofwork.Repositories
	txScope      unitofwork.TransactionScope
	entitlements Entitlements
	sink         *appaudit.Sink
	invalidator  subscription.Invalidator
	logger       *zap.Logger
	now          func() time.Time
}

// NewService creates an invoicing service. invalidator may be nil.
func NewService(
	repos unitofwork.Repositories,
	txScope unitofwork.TransactionScope,
	entitlements Entitlements,
	sink *appaudit.Sink,
	invalidator subscription.Invalidator,
	logger *zap.Logger,
) *Service {
	return &Service{
		repos:        repos,
		txScope:      txScope,
		entitlements: entitlements,
		sink:         sink,
		invalidator:  invalidator,
		logger:       logger,
		now:          time.Now,
	}
}

// SetClock overrides the time source
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// IssueInput describes an invoice to issue
type IssueInput struct {
	CustomerName string
	Amount       decimal.Decimal
}

// Issue checks the INVOICES entitlement, creates the invoice, bumps the
// monthly counter and writes the audit row in one transaction. An invoice
// credit spent by the check is rolled back if any later step fails.
func (s *Service) Issue(ctx context.Context, sc *identity.SecurityContext, in IssueInput) (*invoicing.Invoice, error) {
	now := s.now()
	var (
		issued *invoicing.Invoice
		denied *entitlement.Decision
	)
	err := s.txScope.Execute(ctx, func(repos unitofwork.Repositories) error {
		company, err := repos.Companies().FindByID(ctx, sc.TenantID)
		if err != nil {
			return err
		}
		inv, err := invoicing.Issue(sc.TenantID, sc.UserID, company.Settings.InvoicePrefix,
			in.CustomerName, in.Amount, company.Settings.Currency, now)
		if err != nil {
			return err
		}
		if d, err := s.entitlements.RequireIn(ctx, repos, sc.TenantID, entitlement.ActionIssueInvoice); err != nil {
			denied = d
			return err
		}
		if err := repos.Invoices().Create(ctx, inv); err != nil {
			return fmt.Errorf("create invoice: %w", err)
		}
		if err := repos.UsageCounters().Increment(ctx, sc.TenantID, billing.EntitlementInvoices, billing.PeriodStart(now), 1); err != nil {
			return fmt.Errorf("increment invoice counter: %w", err)
		}
		entry := audit.NewEntry(sc, audit.ActionInvoiceIssued, audit.EntityInvoice, inv.ID.String()).
			WithChange(nil, invoiceSnapshot(inv))
		if err := s.sink.Log(ctx, repos.Audit(), entry); err != nil {
			return err
		}
		issued = inv
		return nil
	})
	if err != nil {
		s.entitlements.AuditDenial(ctx, sc.TenantID, denied)
		return nil, err
	}

	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, sc.TenantID)
	}
	s.logger.Info("Invoice issued",
		zap.String("tenant_id", sc.TenantID.String()),
		zap.String("invoice_id", issued.ID.String()),
		zap.String("number", issued.Number))
	return issued, nil
}

// Cancel cancels an issued invoice. Cancellation does not give back usage.
func (s *Service) Cancel(ctx context.Context, sc *identity.SecurityContext, invoiceID uuid.UUID) (*invoicing.Invoice, error) {
	if _, err := s.entitlements.Require(ctx, sc.TenantID, entitlement.ActionCancelInvoice); err != nil {
		return nil, err
	}

	var cancelled *invoicing.Invoice
	err := s.txScope.Execute(ctx, func(repos unitofwork.Repositories) error {
		inv, err := repos.Invoices().FindByID(ctx, sc.TenantID, invoiceID)
		if err != nil {
			return err
		}
		before := invoiceSnapshot(inv)
		if err := inv.Cancel(s.now()); err != nil {
			return err
		}
		if err := repos.Invoices().Update(ctx, inv); err != nil {
			return fmt.Errorf("update invoice: %w", err)
		}
		entry := audit.NewEntry(sc, audit.ActionInvoiceCancelled, audit.EntityInvoice, inv.ID.String()).
			WithChange(before, invoiceSnapshot(inv))
		if err := s.sink.Log(ctx, repos.Audit(), entry); err != nil {
			return err
		}
		cancelled = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

// Get returns one invoice of the tenant
func (s *Service) Get(ctx context.Context, tenantID, invoiceID uuid.UUID) (*invoicing.Invoice, error) {
	return s.repos.Invoices().FindByID(ctx, tenantID, invoiceID)
}

// List returns a page of the tenant's invoices, newest first
func (s *Service) List(ctx context.Context, tenantID uuid.UUID, page, pageSize int) ([]invoicing.Invoice, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.repos.Invoices().List(ctx, tenantID, page, pageSize)
}

// exportPageSize bounds each read while collecting an export
const exportPageSize = 100

// Export returns every invoice of the tenant, newest first, after checking
// the EXPORT_REPORT feature. The export is audited best effort.
func (s *Service) Export(ctx context.Context, sc *identity.SecurityContext) ([]invoicing.Invoice, error) {
	if _, err := s.entitlements.Require(ctx, sc.TenantID, entitlement.ActionExportReport); err != nil {
		return nil, err
	}

	var all []invoicing.Invoice
	for page := 1; ; page++ {
		items, total, err := s.repos.Invoices().List(ctx, sc.TenantID, page, exportPageSize)
		if err != nil {
			return nil, fmt.Errorf("list invoices: %w", err)
		}
		all = append(all, items...)
		if len(items) < exportPageSize || int64(len(all)) >= total {
			break
		}
	}

	s.sink.LogBestEffort(ctx, audit.NewEntry(sc, audit.ActionReportExported, audit.EntityReport, "invoices").
		WithChange(nil, map[string]any{"rows": len(all)}))
	return all, nil
}

func invoiceSnapshot(inv *invoicing.Invoice) map[string]any {
	return map[string]any{
		"number":   inv.Number,
		"customer": inv.CustomerName,
		"amount":   inv.Amount.StringFixed(2),
		"currency": inv.Currency,
		"status":   inv.Status,
	}
}
