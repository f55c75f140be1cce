// Package unitofwork groups the repositories that take part in one
// database transaction.
package unitofwork

import (
	"context"

	"github.com/bizcore/backend/internal/domain/audit"
	"github.com/bizcore/backend/internal/domain/billing"
	"github.com/bizcore/backend/internal/domain/identity"
	"github.com/bizcore/backend/internal/domain/invoicing"
)

// TransactionScope runs a function inside one database transaction.
// If the function returns an error, every write made through the provided
// repositories is rolled back.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos Repositories) error) error
}

// Repositories gives access to every repository. Inside Execute all of them
// share the same transaction; outside it they run on the root connection.
type Repositories interface {
	Companies() identity.CompanyRepository
	Members() identity.MemberRepository
	Delegations() identity.DelegationRepository
	Subscriptions() billing.SubscriptionRepository
	Plans() billing.PlanRepository
	UsageCounters() billing.UsageCounterRepository
	Credits() billing.ServiceCreditRepository
	Invoices() invoicing.Repository
	Audit() audit.Repository
}

// NoOpTransactionScope runs the function without a transaction.
// Useful in tests where the repositories are mocks.
type NoOpTransactionScope struct {
	Repos Repositories
}

// Execute runs fn with the wrapped repositories
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos Repositories) error) error {
	return fn(s.Repos)
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
