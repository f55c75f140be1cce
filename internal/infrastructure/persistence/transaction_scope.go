package persistence

import (
	"context"

	"github.com/bizcore/backend/internal/application/unitofwork"
	"github.com/bizcore/backend/internal/domain/audit"
	"github.com/bizcore/backend/internal/domain/billing"
	"github.com/bizcore/backend/internal/domain/identity"
	"github.com/bizcore/backend/internal/domain/invoicing"
	"gorm.io/gorm"
)

// GormTransactionScope implements unitofwork.TransactionScope using GORM transactions.
// A mutation, its usage counter increment and its audit entry commit together.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos unitofwork.Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}

// gormRepositories provides access to all repositories on one connection
// or transaction.
type gormRepositories struct {
	db *gorm.DB
}

// NewRepositories returns every repository bound to db. Pass the root
// connection for reads outside a transaction.
func NewRepositories(db *gorm.DB) unitofwork.Repositories {
	return &gormRepositories{db: db}
}

func (r *gormRepositories) Companies() identity.CompanyRepository {
	return NewGormCompanyRepository(r.db)
}

func (r *gormRepositories) Members() identity.MemberRepository {
	return NewGormMemberRepository(r.db)
}

func (r *gormRepositories) Delegations() identity.DelegationRepository {
	return NewGormDelegationRepository(r.db)
}

func (r *gormRepositories) Subscriptions() billing.SubscriptionRepository {
	return NewGormSubscriptionRepository(r.db)
}

func (r *gormRepositories) Plans() billing.PlanRepository {
	return NewGormPlanRepository(r.db)
}

func (r *gormRepositories) UsageCounters() billing.UsageCounterRepository {
	return NewGormUsageCounterRepository(r.db)
}

func (r *gormRepositories) Credits() billing.ServiceCreditRepository {
	return NewGormServiceCreditRepository(r.db)
}

func (r *gormRepositories) Invoices() invoicing.Repository {
	return NewGormInvoiceRepository(r.db)
}

func (r *gormRepositories) Audit() audit.Repository {
	return NewGormAuditRepository(r.db)
}

// Ensure GormTransactionScope implements TransactionScope
var _ unitofwork.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormRepositories implements Repositories
var _ unitofwork.Repositories = (*gormRepositories)(nil)
