package tenancy

import (
	"context"
	"errors"
	"testing"

	"github.com/bizcore/backend/internal/application/unitofwork/memstore"
	"github.com/bizcore/backend/internal/domain/identity"
	"github.com/bizcore/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func seedCompany(t *testing.T, store *memstore.Store) *identity.Company {
	t.Helper()
	c, err := identity.NewCompany("Acme", uuid.New())
	require.NoError(t, err)
	require.NoError(t, store.Companies().Create(context.Background(), c))
	return c
}

func TestContextResolver_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("missing claim is a tenant violation", func(t *testing.T) {
		r := NewContextResolver(memstore.New(), zap.NewNop())

		_, err := r.Resolve(ctx, Caller{UserID: uuid.New()})

		assert.True(t, errors.Is(err, shared.ErrTenantViolation))
	})

	t.Run("malformed claim is a tenant violation", func(t *testing.T) {
		r := NewContextResolver(memstore.New(), zap.NewNop())

		for _, claim := range []string{"acme", "123", uuid.Nil.String()} {
			_, err := r.Resolve(ctx, Caller{UserID: uuid.New(), TenantClaim: claim})
			assert.True(t, errors.Is(err, shared.ErrTenantViolation), claim)
		}
	})

	t.Run("unknown tenant is not found", func(t *testing.T) {
		r := NewContextResolver(memstore.New(), zap.NewNop())

		_, err := r.Resolve(ctx, Caller{UserID: uuid.New(), TenantClaim: uuid.NewString()})

		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})

	t.Run("active member resolves direct", func(t *testing.T) {
		store := memstore.New()
		company := seedCompany(t, store)
		user := uuid.New()
		m, _ := identity.NewCompanyMember(company.ID, user, identity.RoleFinance)
		require.NoError(t, store.Members().Create(ctx, m))
		session := "imp-1"
		r := NewContextResolver(store, zap.NewNop())

		sc, err := r.Resolve(ctx, Caller{UserID: user, TenantClaim: company.ID.String(), ImpersonationSessionID: &session})

		require.NoError(t, err)
		assert.Equal(t, company.ID, sc.TenantID)
		assert.Equal(t, identity.AccessTypeDirect, sc.AccessType)
		assert.Equal(t, identity.RoleFinance, sc.Role)
		assert.Nil(t, sc.FirmID)
		assert.True(t, sc.IsImpersonated())
	})

	t.Run("removed member falls through to delegated access", func(t *testing.T) {
		store := memstore.New()
		company := seedCompany(t, store)
		user, firm := uuid.New(), uuid.New()
		m, _ := identity.NewCompanyMember(company.ID, user, identity.RoleViewer)
		require.NoError(t, m.Remove())
		require.NoError(t, store.Members().Create(ctx, m))
		store.AddFirmMember(identity.FirmMember{FirmID: firm, UserID: user, Role: identity.RoleSupervisor, Status: identity.MemberStatusActive})
		a, _ := identity.NewFirmAssignment(company.ID, firm)
		require.NoError(t, store.Delegations().CreateAssignment(ctx, a))
		r := NewContextResolver(store, zap.NewNop())

		sc, err := r.Resolve(ctx, Caller{UserID: user, TenantClaim: company.ID.String()})

		require.NoError(t, err)
		assert.Equal(t, identity.AccessTypeDelegated, sc.AccessType)
		assert.Equal(t, identity.RoleSupervisor, sc.Role)
		require.NotNil(t, sc.FirmID)
		assert.Equal(t, firm, *sc.FirmID)
	})

	t.Run("firm without active assignment is denied and logged", func(t *testing.T) {
		store := memstore.New()
		company := seedCompany(t, store)
		user := uuid.New()
		store.AddFirmMember(identity.FirmMember{FirmID: uuid.New(), UserID: user, Role: identity.RoleAccountant, Status: identity.MemberStatusActive})
		core, logs := observer.New(zap.WarnLevel)
		r := NewContextResolver(store, zap.New(core))

		_, err := r.Resolve(ctx, Caller{UserID: user, TenantClaim: company.ID.String()})

		assert.True(t, errors.Is(err, shared.ErrTenantViolation))
		assert.Equal(t, "no access to tenant", err.Error())
		require.Equal(t, 1, logs.Len())
		assert.Equal(t, true, logs.All()[0].ContextMap()["security_event"])
		assert.Empty(t, store.Entries(), "no persisted audit row")
	})
}
