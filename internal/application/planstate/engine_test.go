package planstate

import (
	"context"
	"sync"
	"testing"
	"time"

	appaudit "github.com/bizcore/backend/internal/application/audit"
	"github.com/bizcore/backend/internal/application/subscription"
	"github.com/bizcore/backend/internal/application/unitofwork/memstore"
	"github.com/bizcore/backend/internal/domain/billing"
	"github.com/bizcore/backend/internal/domain/identity"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var now = time.Date(2026, 7, 20, 8, 0, 0, 0, time.UTC)

type mapCache struct {
	mu          sync.Mutex
	states      map[uuid.UUID]*State
	invalidated int
}

func newMapCache() *mapCache { return &mapCache{states: map[uuid.UUID]*State{}} }

func (c *mapCache) Get(_ context.Context, id uuid.UUID) (*State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.states[id]
	return st, ok
}

func (c *mapCache) Set(_ context.Context, id uuid.UUID, st *State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states[id] = st
}

func (c *mapCache) Invalidate(_ context.Context, id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.states, id)
	c.invalidated++
}

func setup(t *testing.T, cache Cache) (*Engine, *memstore.Store, *subscription.Service) {
	t.Helper()
	store := memstore.New()
	clock := func() time.Time { return now }
	subs := subscription.NewService(store, store.Scope(), billing.DefaultPlanCatalog(), appaudit.NewSink(store.Audit(), zap.NewNop()), zap.NewNop())
	subs.SetClock(clock)
	engine := NewEngine(store, subs, cache, Config{WarningPercent: 80}, zap.NewNop())
	engine.SetClock(clock)
	subs.SetInvalidator(engine)
	return engine, store, subs
}

func seedSub(t *testing.T, store *memstore.Store, tenant uuid.UUID, mutate func(*billing.Subscription)) {
	t.Helper()
	sub := billing.NewSubscription(tenant, billing.PlanStart, now.AddDate(0, -1, 0))
	if mutate != nil {
		mutate(sub)
	}
	require.NoError(t, store.Subscriptions().Create(context.Background(), sub))
}

func TestEngine_InvoiceScenarios(t *testing.T) {
	tests := []struct {
		name   string
		used   int64
		status billing.PlanStatus
		cta    billing.CTA
	}{
		{"four of five warns", 4, billing.PlanStatusWarning, billing.CTABuyCredits},
		{"five of five blocks", 5, billing.PlanStatusBlocked, billing.CTAUpgrade},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, store, _ := setup(t, nil)
			tenant := uuid.New()
			seedSub(t, store, tenant, nil)
			require.NoError(t, store.UsageCounters().Increment(context.Background(), tenant, billing.EntitlementInvoices, billing.PeriodStart(now), tt.used))

			st, err := engine.GetPlanState(context.Background(), tenant)

			require.NoError(t, err)
			assert.Equal(t, tt.status, st.Status)
			require.NotNil(t, st.CTA)
			assert.Equal(t, tt.cta, *st.CTA)
			assert.Equal(t, tt.used, st.Usage.Invoices.Used)
			assert.Equal(t, int64(5), st.Usage.Invoices.Limit)
		})
	}
}

func TestEngine_PaymentScenarios(t *testing.T) {
	t.Run("failed payment with future expiry is grace", func(t *testing.T) {
		engine, store, _ := setup(t, nil)
		tenant := uuid.New()
		future := now.Add(72 * time.Hour)
		seedSub(t, store, tenant, func(s *billing.Subscription) {
			s.PaymentStatus = billing.PaymentFailed
			s.ExpiresAt = &future
		})

		st, err := engine.Derive(context.Background(), tenant)

		require.NoError(t, err)
		assert.Equal(t, billing.PlanStatusGrace, st.Status)
		assert.Equal(t, future, *st.Expiration)
	})

	t.Run("failed payment with past expiry is blocked", func(t *testing.T) {
		engine, store, _ := setup(t, nil)
		tenant := uuid.New()
		past := now.Add(-72 * time.Hour)
		seedSub(t, store, tenant, func(s *billing.Subscription) {
			s.PaymentStatus = billing.PaymentFailed
			s.ExpiresAt = &past
		})

		st, err := engine.Derive(context.Background(), tenant)

		require.NoError(t, err)
		assert.Equal(t, billing.PlanStatusBlocked, st.Status)
	})
}

func TestEngine_SeatsCountOnlyActiveDirectMembers(t *testing.T) {
	engine, store, _ := setup(t, nil)
	tenant := uuid.New()
	seedSub(t, store, tenant, nil)
	ctx := context.Background()

	active, _ := identity.NewCompanyMember(tenant, uuid.New(), identity.RoleOwner)
	removed, _ := identity.NewCompanyMember(tenant, uuid.New(), identity.RoleViewer)
	require.NoError(t, removed.Remove())
	require.NoError(t, store.Members().Create(ctx, active))
	require.NoError(t, store.Members().Create(ctx, removed))
	assignment, _ := identity.NewFirmAssignment(tenant, uuid.New())
	require.NoError(t, store.Delegations().CreateAssignment(ctx, assignment))

	st, err := engine.Derive(ctx, tenant)

	require.NoError(t, err)
	assert.Equal(t, int64(1), st.Usage.Seats.Used)
	assert.Equal(t, int64(1), st.Usage.Accountants.Used)
	// START allows a single accountant
	assert.Equal(t, billing.PlanStatusBlocked, st.Status)
	assert.Equal(t, "accountants limit reached", st.Reason)
}

func TestEngine_ResponseShape(t *testing.T) {
	engine, store, _ := setup(t, nil)
	tenant := uuid.New()
	seedSub(t, store, tenant, nil)

	st, err := engine.Derive(context.Background(), tenant)

	require.NoError(t, err)
	assert.Equal(t, billing.PlanStatusActive, st.Status)
	assert.Nil(t, st.CTA)
	assert.Equal(t, billing.PlanStart, st.PlanCode)
	assert.Equal(t, "Start", st.Plan.Name)
	assert.True(t, st.Plan.PriceMonthly.IsZero())
	assert.Equal(t, int64(7), st.Limits["GRACE_DAYS"])
	assert.Len(t, st.Limits, 4)
}

func TestEngine_CacheServesStaleUntilRefreshOrInvalidate(t *testing.T) {
	cache := newMapCache()
	engine, store, subs := setup(t, cache)
	tenant := uuid.New()
	seedSub(t, store, tenant, nil)
	ctx := context.Background()

	st, err := engine.GetPlanState(ctx, tenant)
	require.NoError(t, err)
	assert.Equal(t, billing.PlanStatusActive, st.Status)

	require.NoError(t, store.UsageCounters().Increment(ctx, tenant, billing.EntitlementInvoices, billing.PeriodStart(now), 5))

	cached, err := engine.GetPlanState(ctx, tenant)
	require.NoError(t, err)
	assert.Equal(t, billing.PlanStatusActive, cached.Status, "cached read is stale")

	fresh, err := engine.Derive(ctx, tenant)
	require.NoError(t, err)
	assert.Equal(t, billing.PlanStatusBlocked, fresh.Status, "derive bypasses cache")

	refreshed, err := engine.Refresh(ctx, tenant)
	require.NoError(t, err)
	assert.Equal(t, billing.PlanStatusBlocked, refreshed.Status)

	_, err = subs.ApplyBillingEvent(ctx, tenant, subscription.BillingEvent{Type: subscription.EventPlanChanged, PlanCode: billing.PlanEssential})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.invalidated)

	after, err := engine.GetPlanState(ctx, tenant)
	require.NoError(t, err)
	assert.Equal(t, billing.PlanStatusActive, after.Status)
	assert.Equal(t, billing.PlanEssential, after.PlanCode)
}

func TestEngine_CacheIsPerTenant(t *testing.T) {
	cache := newMapCache()
	engine, store, _ := setup(t, cache)
	a, b := uuid.New(), uuid.New()
	seedSub(t, store, a, nil)
	seedSub(t, store, b, func(s *billing.Subscription) { s.PlanCode = billing.PlanProfessional })

	stA, err := engine.GetPlanState(context.Background(), a)
	require.NoError(t, err)
	stB, err := engine.GetPlanState(context.Background(), b)
	require.NoError(t, err)

	assert.Equal(t, billing.PlanStart, stA.PlanCode)
	assert.Equal(t, billing.PlanProfessional, stB.PlanCode)
}

func TestState_CloneSharesNothing(t *testing.T) {
	exp := now.Add(24 * time.Hour)
	cta := billing.CTAUpgrade
	st := &State{Expiration: &exp, CTA: &cta, Limits: map[string]int64{"SEATS": 2}}

	cp := st.Clone()
	*cp.Expiration = now
	*cp.CTA = billing.CTANone
	cp.Limits["SEATS"] = 9

	assert.Equal(t, now.Add(24*time.Hour), *st.Expiration)
	assert.Equal(t, billing.CTAUpgrade, *st.CTA)
	assert.Equal(t, int64(2), st.Limits["SEATS"])
	assert.Nil(t, (&State{}).Clone().Limits)
}
