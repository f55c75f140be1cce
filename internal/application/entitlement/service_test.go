package entitlement

import (
	"context"
	"errors"
	"testing"
	"time"

	appaudit "github.com/bizcore/backend/internal/application/audit"
	"github.com/bizcore/backend/internal/application/credit"
	"github.com/bizcore/backend/internal/application/subscription"
	"github.com/bizcore/backend/internal/application/unitofwork/memstore"
	"github.com/bizcore/backend/internal/domain/audit"
	"github.com/bizcore/backend/internal/domain/billing"
	"github.com/bizcore/backend/internal/domain/identity"
	"github.com/bizcore/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var now = time.Date(2026, 6, 10, 14, 0, 0, 0, time.UTC)

type fixture struct {
	svc    *Service
	store  *memstore.Store
	tenant uuid.UUID
}

func newFixture(t *testing.T, plan billing.PlanCode) *fixture {
	t.Helper()
	store := memstore.New()
	clock := func() time.Time { return now }
	sink := appaudit.NewSink(store.Audit(), zap.NewNop())
	subs := subscription.NewService(store, store.Scope(), billing.DefaultPlanCatalog(), sink, zap.NewNop())
	subs.SetClock(clock)
	ledger := credit.NewLedgerService(store, store.Scope(), sink, zap.NewNop())
	ledger.SetClock(clock)
	svc := NewService(store, subs, ledger, sink, zap.NewNop())
	svc.SetClock(clock)

	tenant := uuid.New()
	if plan != "" {
		require.NoError(t, store.Subscriptions().Create(context.Background(), billing.NewSubscription(tenant, plan, now)))
	}
	return &fixture{svc: svc, store: store, tenant: tenant}
}

func (f *fixture) addMembers(t *testing.T, n int) {
	t.Helper()
	for range n {
		m, err := identity.NewCompanyMember(f.tenant, uuid.New(), identity.RoleCollaborator)
		require.NoError(t, err)
		require.NoError(t, f.store.Members().Create(context.Background(), m))
	}
}

func (f *fixture) setInvoices(t *testing.T, n int64) {
	t.Helper()
	require.NoError(t, f.store.UsageCounters().Increment(context.Background(), f.tenant, billing.EntitlementInvoices, billing.PeriodStart(now), n))
}

func TestCheckEntitlement_AutoProvisionsEntryPlan(t *testing.T) {
	f := newFixture(t, "")

	d, err := f.svc.CheckEntitlement(context.Background(), f.tenant, ActionIssueInvoice)

	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, billing.PlanStart, d.PlanCode)
	sub, err := f.store.Subscriptions().FindByTenant(context.Background(), f.tenant)
	require.NoError(t, err)
	assert.Equal(t, billing.PlanStart, sub.PlanCode)
}

func TestCheckEntitlement_Metered(t *testing.T) {
	t.Run("under limit allows", func(t *testing.T) {
		f := newFixture(t, billing.PlanStart)
		f.setInvoices(t, 4)

		d, err := f.svc.CheckEntitlement(context.Background(), f.tenant, ActionIssueInvoice)

		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, int64(4), *d.CurrentUsage)
		assert.Equal(t, int64(5), *d.Limit)
	})

	t.Run("at limit without credit denies with next plan", func(t *testing.T) {
		f := newFixture(t, billing.PlanStart)
		f.setInvoices(t, 5)

		d, err := f.svc.CheckEntitlement(context.Background(), f.tenant, ActionIssueInvoice)

		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.Equal(t, ReasonLimitExceeded, d.Reason)
		require.NotNil(t, d.UpgradeSuggestion)
		assert.Equal(t, billing.PlanEssential, *d.UpgradeSuggestion)

		entries := f.store.Entries()
		require.Len(t, entries, 1)
		assert.Equal(t, audit.ActionEntitlementDenied, entries[0].Action)
		assert.Equal(t, identity.ActorTypeSystem, entries[0].ActorType)
	})

	t.Run("at limit consumes a credit", func(t *testing.T) {
		f := newFixture(t, billing.PlanStart)
		f.setInvoices(t, 5)
		c, err := billing.NewServiceCredit(f.tenant, billing.CreditTypeInvoice, 1, now.Add(time.Hour), "referral")
		require.NoError(t, err)
		require.NoError(t, f.store.Credits().Create(context.Background(), c))

		d, err := f.svc.CheckEntitlement(context.Background(), f.tenant, ActionIssueInvoice)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.True(t, d.CreditConsumed)

		d, err = f.svc.CheckEntitlement(context.Background(), f.tenant, ActionIssueInvoice)
		require.NoError(t, err)
		assert.False(t, d.Allowed)
	})

	t.Run("unlimited plan allows", func(t *testing.T) {
		f := newFixture(t, billing.PlanEnterprise)
		f.setInvoices(t, 100000)

		d, err := f.svc.CheckEntitlement(context.Background(), f.tenant, ActionIssueInvoice)

		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Nil(t, d.Limit)
	})

	t.Run("top plan denial has no suggestion", func(t *testing.T) {
		f := newFixture(t, billing.PlanEnterprise)
		require.NoError(t, f.store.Plans().Upsert(context.Background(), &billing.Plan{
			Code: billing.PlanEnterprise, Name: "Enterprise", Rank: 4,
			Entitlements: map[billing.EntitlementKey]billing.Limit{billing.EntitlementSeats: billing.LimitOf(0)},
		}))

		d, err := f.svc.CheckEntitlement(context.Background(), f.tenant, ActionAddCollaborator)

		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.Nil(t, d.UpgradeSuggestion)
	})
}

func TestCheckEntitlement_SeatsScenario(t *testing.T) {
	f := newFixture(t, billing.PlanStart)
	f.addMembers(t, 1)

	d, err := f.svc.CheckEntitlement(context.Background(), f.tenant, ActionAddCollaborator)
	require.NoError(t, err)
	assert.True(t, d.Allowed, "used = limit - 1 succeeds")

	f.addMembers(t, 1)
	_, err = f.svc.Require(context.Background(), f.tenant, ActionAddCollaborator)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrEntitlementDenied))
	var de *shared.DomainError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "UPGRADE", de.CTA)
}

func TestCheckEntitlement_SeatsIgnoreDelegatedAccess(t *testing.T) {
	f := newFixture(t, billing.PlanStart)
	f.addMembers(t, 1)
	firm := uuid.New()
	a, err := identity.NewFirmAssignment(f.tenant, firm)
	require.NoError(t, err)
	require.NoError(t, f.store.Delegations().CreateAssignment(context.Background(), a))

	d, err := f.svc.CheckEntitlement(context.Background(), f.tenant, ActionAddCollaborator)

	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, int64(1), *d.CurrentUsage)
}

func TestCheckEntitlement_Features(t *testing.T) {
	tests := []struct {
		plan       billing.PlanCode
		action     Action
		allowed    bool
		suggestion billing.PlanCode
	}{
		{billing.PlanStart, ActionExportReport, false, billing.PlanEssential},
		{billing.PlanEssential, ActionExportReport, true, ""},
		{billing.PlanEssential, ActionEnableRecurringBilling, false, billing.PlanProfessional},
		{billing.PlanProfessional, ActionEnableRecurringBilling, true, ""},
		{billing.PlanStart, ActionCancelInvoice, false, billing.PlanEssential},
	}
	for _, tt := range tests {
		t.Run(string(tt.plan)+"/"+string(tt.action), func(t *testing.T) {
			f := newFixture(t, tt.plan)

			d, err := f.svc.CheckEntitlement(context.Background(), f.tenant, tt.action)

			require.NoError(t, err)
			assert.Equal(t, tt.allowed, d.Allowed)
			if !tt.allowed {
				assert.Equal(t, ReasonFeatureNotAvailable, d.Reason)
				require.NotNil(t, d.UpgradeSuggestion)
				assert.Equal(t, tt.suggestion, *d.UpgradeSuggestion)
			}
		})
	}
}

func TestCheckEntitlement_DryRunDoesNotConsumeOrAudit(t *testing.T) {
	f := newFixture(t, billing.PlanStart)
	f.setInvoices(t, 5)
	c, err := billing.NewServiceCredit(f.tenant, billing.CreditTypeInvoice, 1, now.Add(time.Hour), "referral")
	require.NoError(t, err)
	require.NoError(t, f.store.Credits().Create(context.Background(), c))

	d, err := f.svc.CheckEntitlement(context.Background(), f.tenant, ActionIssueInvoice, DryRun())
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.True(t, d.CreditAvailable)
	assert.False(t, d.CreditConsumed)

	d, err = f.svc.CheckEntitlement(context.Background(), f.tenant, ActionExportReport, DryRun())
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Empty(t, f.store.Entries())
}

func TestCheckEntitlement_DenialAuditAttributedToCaller(t *testing.T) {
	f := newFixture(t, billing.PlanStart)
	sc := &identity.SecurityContext{TenantID: f.tenant, UserID: uuid.New(), AccessType: identity.AccessTypeDirect, Role: identity.RoleAdmin}
	ctx := identity.WithSecurityContext(context.Background(), sc)

	_, err := f.svc.CheckEntitlement(ctx, f.tenant, ActionExportReport)
	require.NoError(t, err)

	entries := f.store.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, sc.UserID, entries[0].ActorID)
	assert.Equal(t, identity.ActorTypeUser, entries[0].ActorType)
}

func TestCheckEntitlement_DenialSurvivesAuditFailure(t *testing.T) {
	f := newFixture(t, billing.PlanStart)
	f.store.AppendErr = errors.New("audit down")

	d, err := f.svc.CheckEntitlement(context.Background(), f.tenant, ActionExportReport)

	require.NoError(t, err)
	assert.False(t, d.Allowed)
}

func TestCheckEntitlement_UnknownAction(t *testing.T) {
	f := newFixture(t, billing.PlanStart)

	_, err := f.svc.CheckEntitlement(context.Background(), f.tenant, Action("TELEPORT"))

	assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	assert.False(t, IsKnown(Action("TELEPORT")))
	assert.True(t, IsKnown(ActionIssueInvoice))
}

type recorder struct{ decisions []*Decision }

func (r *recorder) RecordDecision(_ context.Context, d *Decision) { r.decisions = append(r.decisions, d) }

func TestCheckEntitlement_RecordsDecisions(t *testing.T) {
	f := newFixture(t, billing.PlanStart)
	rec := &recorder{}
	f.svc.SetRecorder(rec)

	_, err := f.svc.CheckEntitlement(context.Background(), f.tenant, ActionIssueInvoice)
	require.NoError(t, err)

	require.Len(t, rec.decisions, 1)
	assert.Equal(t, ActionIssueInvoice, rec.decisions[0].Action)
}

func TestRequireIn_DefersDenialAudit(t *testing.T) {
	f := newFixture(t, billing.PlanStart)
	f.addMembers(t, 2)

	d, err := f.svc.RequireIn(context.Background(), f.store, f.tenant, ActionAddCollaborator)
	require.True(t, errors.Is(err, shared.ErrEntitlementDenied))
	require.NotNil(t, d)
	assert.False(t, d.Allowed)
	assert.Empty(t, f.store.Entries(), "denial is audited by the caller after rollback")

	f.svc.AuditDenial(context.Background(), f.tenant, d)
	entries := f.store.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, audit.ActionEntitlementDenied, entries[0].Action)

	f.svc.AuditDenial(context.Background(), f.tenant, nil)
	assert.Len(t, f.store.Entries(), 1)
}

func TestRequireIn_ConsumesCreditOnGivenRepositories(t *testing.T) {
	f := newFixture(t, billing.PlanStart)
	f.setInvoices(t, 5)
	c, err := billing.NewServiceCredit(f.tenant, billing.CreditTypeInvoice, 1, now.Add(time.Hour), "referral")
	require.NoError(t, err)
	require.NoError(t, f.store.Credits().Create(context.Background(), c))

	d, err := f.svc.RequireIn(context.Background(), f.store, f.tenant, ActionIssueInvoice)

	require.NoError(t, err)
	assert.True(t, d.CreditConsumed)
	credits, err := f.store.Credits().ListByTenant(context.Background(), f.tenant)
	require.NoError(t, err)
	assert.Zero(t, credits[0].RemainingValue)
}
