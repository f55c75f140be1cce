package tenancy

import (
	"context"
	"errors"
	"testing"

	appaudit "github.com/bizcore/backend/internal/application/audit"
	"github.com/bizcore/backend/internal/application/credit"
	"github.com/bizcore/backend/internal/application/entitlement"
	"github.com/bizcore/backend/internal/application/subscription"
	"github.com/bizcore/backend/internal/application/unitofwork/memstore"
	"github.com/bizcore/backend/internal/domain/audit"
	"github.com/bizcore/backend/internal/domain/billing"
	"github.com/bizcore/backend/internal/domain/identity"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newService(store *memstore.Store) *Service {
	sink := appaudit.NewSink(store.Audit(), zap.NewNop())
	subs := subscription.NewService(store, store.Scope(), billing.DefaultPlanCatalog(), sink, zap.NewNop())
	ledger := credit.NewLedgerService(store, store.Scope(), sink, zap.NewNop())
	ent := entitlement.NewService(store, subs, ledger, sink, zap.NewNop())
	return NewService(store, store.Scope(), ent, sink, zap.NewNop())
}

func TestService_CreateTenant(t *testing.T) {
	store := memstore.New()
	svc := newService(store)
	owner := uuid.New()
	ctx := context.Background()

	out, err := svc.CreateTenant(ctx, owner, "Acme Ltda")

	require.NoError(t, err)
	assert.Equal(t, billing.PlanStart, out.Subscription.PlanCode)
	assert.Equal(t, identity.RoleOwner, out.Owner.Role)

	sub, err := store.Subscriptions().FindByTenant(ctx, out.Company.ID)
	require.NoError(t, err)
	assert.Equal(t, out.Subscription.ID, sub.ID)

	member, err := store.Members().FindActive(ctx, out.Company.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, identity.RoleOwner, member.Role)

	entries := store.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, audit.ActionTenantCreated, entries[0].Action)
	assert.Equal(t, audit.ActionSubscriptionCreated, entries[1].Action)
}

func TestService_CreateTenant_Validation(t *testing.T) {
	svc := newService(memstore.New())

	_, err := svc.CreateTenant(context.Background(), uuid.New(), " ")

	assert.Error(t, err)
}

func TestService_UpdateSettings(t *testing.T) {
	store := memstore.New()
	svc := newService(store)
	ctx := context.Background()
	out, err := svc.CreateTenant(ctx, uuid.New(), "Acme")
	require.NoError(t, err)
	sc := &identity.SecurityContext{TenantID: out.Company.ID, UserID: out.Owner.UserID, AccessType: identity.AccessTypeDirect, Role: identity.RoleOwner}

	company, err := svc.UpdateSettings(ctx, sc, identity.CompanySettings{Currency: "usd", Timezone: "UTC", Locale: "en-US", InvoicePrefix: "AC"})

	require.NoError(t, err)
	assert.Equal(t, "USD", company.Settings.Currency)
	entries := store.Entries()
	last := entries[len(entries)-1]
	assert.Equal(t, audit.ActionSettingsUpdated, last.Action)
	assert.Equal(t, "BRL", last.Before.(identity.CompanySettings).Currency)
	assert.Equal(t, "USD", last.After.(identity.CompanySettings).Currency)
}

func TestService_UpdateSettings_AuditFailureReturnsError(t *testing.T) {
	store := memstore.New()
	svc := newService(store)
	ctx := context.Background()
	out, err := svc.CreateTenant(ctx, uuid.New(), "Acme")
	require.NoError(t, err)
	store.AppendErr = errors.New("audit unavailable")
	sc := &identity.SecurityContext{TenantID: out.Company.ID, UserID: out.Owner.UserID, AccessType: identity.AccessTypeDirect, Role: identity.RoleOwner}

	_, err = svc.UpdateSettings(ctx, sc, identity.CompanySettings{Currency: "USD"})

	assert.Error(t, err)
}
