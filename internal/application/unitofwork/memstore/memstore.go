// Package memstore is an in-memory implementation of the unit of work
// repositories for application-level tests.
package memstore

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/bizcore/backend/internal/application/unitofwork"
	"github.com/bizcore/backend/internal/domain/audit"
	"github.com/bizcore/backend/internal/domain/billing"
	"github.com/bizcore/backend/internal/domain/identity"
	"github.com/bizcore/backend/internal/domain/invoicing"
	"github.com/bizcore/backend/internal/domain/shared"
	"github.com/google/uuid"
)

type counterKey struct {
	tenant uuid.UUID
	key    billing.EntitlementKey
	period time.Time
}

// Store holds every aggregate in maps guarded by one mutex
type Store struct {
	mu          sync.Mutex
	companies   map[uuid.UUID]identity.Company
	members     map[uuid.UUID]identity.CompanyMember
	firmMembers []identity.FirmMember
	assignments map[uuid.UUID]identity.FirmAssignment
	subs        map[uuid.UUID]billing.Subscription
	plans       map[billing.PlanCode]billing.Plan
	counters    map[counterKey]int64
	credits     map[uuid.UUID]billing.ServiceCredit
	invoices    map[uuid.UUID]invoicing.Invoice
	entries     []audit.Entry

	// AppendErr, when set, is returned by every audit append
	AppendErr error
}

// New returns an empty store
func New() *Store {
	return &Store{
		companies:   map[uuid.UUID]identity.Company{},
		members:     map[uuid.UUID]identity.CompanyMember{},
		assignments: map[uuid.UUID]identity.FirmAssignment{},
		subs:        map[uuid.UUID]billing.Subscription{},
		plans:       map[billing.PlanCode]billing.Plan{},
		counters:    map[counterKey]int64{},
		credits:     map[uuid.UUID]billing.ServiceCredit{},
		invoices:    map[uuid.UUID]invoicing.Invoice{},
	}
}

// Scope returns a transaction scope over the store. Writes are not rolled back.
func (s *Store) Scope() unitofwork.TransactionScope {
	return &unitofwork.NoOpTransactionScope{Repos: s}
}

// Entries returns a copy of the audit log
func (s *Store) Entries() []audit.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.entries)
}

// Counter returns a usage counter value
func (s *Store) Counter(tenantID uuid.UUID, key billing.EntitlementKey, period time.Time) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[counterKey{tenantID, key, period}]
}

func (s *Store) Companies() identity.CompanyRepository {
	return companyRepo{s}
}

func (s *Store) Members() identity.MemberRepository {
	return memberRepo{s}
}

func (s *Store) Delegations() identity.DelegationRepository {
	return delegationRepo{s}
}

func (s *Store) Subscriptions() billing.SubscriptionRepository {
	return subscriptionRepo{s}
}

func (s *Store) Plans() billing.PlanRepository {
	return planRepo{s}
}

func (s *Store) UsageCounters() billing.UsageCounterRepository {
	return counterRepo{s}
}

func (s *Store) Credits() billing.ServiceCreditRepository {
	return creditRepo{s}
}

func (s *Store) Invoices() invoicing.Repository {
	return invoiceRepo{s}
}

func (s *Store) Audit() audit.Repository {
	return auditRepo{s}
}

var _ unitofwork.Repositories = (*Store)(nil)

type companyRepo struct{ s *Store }

func (r companyRepo) FindByID(_ context.Context, id uuid.UUID) (*identity.Company, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.companies[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &c, nil
}

func (r companyRepo) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.companies[id]
	return ok, nil
}

func (r companyRepo) Create(_ context.Context, c *identity.Company) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.companies[c.ID] = *c
	return nil
}

func (r companyRepo) SaveSettings(_ context.Context, c *identity.Company) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.companies[c.ID]; !ok {
		return shared.ErrNotFound
	}
	r.s.companies[c.ID] = *c
	return nil
}

type memberRepo struct{ s *Store }

func (r memberRepo) FindActive(_ context.Context, tenantID, userID uuid.UUID) (*identity.CompanyMember, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range r.s.members {
		if m.TenantID == tenantID && m.UserID == userID && m.IsActive() {
			return &m, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r memberRepo) FindByID(_ context.Context, tenantID, id uuid.UUID) (*identity.CompanyMember, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.members[id]
	if !ok || m.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return &m, nil
}

func (r memberRepo) FindByUser(_ context.Context, tenantID, userID uuid.UUID) (*identity.CompanyMember, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range r.s.members {
		if m.TenantID == tenantID && m.UserID == userID {
			return &m, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r memberRepo) ListByTenant(_ context.Context, tenantID uuid.UUID) ([]identity.CompanyMember, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []identity.CompanyMember
	for _, m := range r.s.members {
		if m.TenantID == tenantID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r memberRepo) CountActive(_ context.Context, tenantID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, m := range r.s.members {
		if m.TenantID == tenantID && m.IsActive() {
			n++
		}
	}
	return n, nil
}

func (r memberRepo) Create(_ context.Context, m *identity.CompanyMember) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.members {
		if existing.TenantID == m.TenantID && existing.UserID == m.UserID {
			return shared.ErrAlreadyExists
		}
	}
	r.s.members[m.ID] = *m
	return nil
}

func (r memberRepo) Update(_ context.Context, m *identity.CompanyMember) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.members[m.ID] = *m
	return nil
}

type delegationRepo struct{ s *Store }

// AddFirmMember registers a firm user for delegated access tests
func (s *Store) AddFirmMember(m identity.FirmMember) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.firmMembers = append(s.firmMembers, m)
}

func (r delegationRepo) FindDelegatedAccess(_ context.Context, tenantID, userID uuid.UUID) (*identity.DelegatedAccess, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, fm := range r.s.firmMembers {
		if fm.UserID != userID || fm.Status != identity.MemberStatusActive {
			continue
		}
		for _, a := range r.s.assignments {
			if a.TenantID == tenantID && a.FirmID == fm.FirmID && a.Status == identity.AssignmentStatusActive {
				return &identity.DelegatedAccess{FirmID: fm.FirmID, Role: fm.Role}, nil
			}
		}
	}
	return nil, shared.ErrNotFound
}

func (r delegationRepo) FindAssignment(_ context.Context, tenantID, firmID uuid.UUID) (*identity.FirmAssignment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.assignments {
		if a.TenantID == tenantID && a.FirmID == firmID {
			return &a, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r delegationRepo) CountActiveAssignments(_ context.Context, tenantID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, a := range r.s.assignments {
		if a.TenantID == tenantID && a.Status == identity.AssignmentStatusActive {
			n++
		}
	}
	return n, nil
}

func (r delegationRepo) CreateAssignment(_ context.Context, a *identity.FirmAssignment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.assignments[a.ID] = *a
	return nil
}

func (r delegationRepo) CreateFirmMember(_ context.Context, m *identity.FirmMember) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.firmMembers = append(r.s.firmMembers, *m)
	return nil
}

type subscriptionRepo struct{ s *Store }

func (r subscriptionRepo) FindByTenant(_ context.Context, tenantID uuid.UUID) (*billing.Subscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sub, ok := r.s.subs[tenantID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &sub, nil
}

func (r subscriptionRepo) Create(_ context.Context, sub *billing.Subscription) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.subs[sub.TenantID]; ok {
		return shared.ErrAlreadyExists
	}
	r.s.subs[sub.TenantID] = *sub
	return nil
}

func (r subscriptionRepo) Update(_ context.Context, sub *billing.Subscription) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.subs[sub.TenantID] = *sub
	return nil
}

type planRepo struct{ s *Store }

func (r planRepo) FindByCode(_ context.Context, code billing.PlanCode) (*billing.Plan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.plans[code]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &p, nil
}

func (r planRepo) List(_ context.Context) (billing.PlanCatalog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make(billing.PlanCatalog, 0, len(r.s.plans))
	for _, p := range r.s.plans {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out, nil
}

func (r planRepo) Upsert(_ context.Context, p *billing.Plan) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.plans[p.Code] = *p
	return nil
}

type counterRepo struct{ s *Store }

func (r counterRepo) Get(_ context.Context, tenantID uuid.UUID, key billing.EntitlementKey, period time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.counters[counterKey{tenantID, key, period}], nil
}

func (r counterRepo) Increment(_ context.Context, tenantID uuid.UUID, key billing.EntitlementKey, period time.Time, delta int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.counters[counterKey{tenantID, key, period}] += delta
	return nil
}

type creditRepo struct{ s *Store }

func (r creditRepo) ListUsable(_ context.Context, tenantID uuid.UUID, t billing.CreditType, now time.Time) ([]billing.ServiceCredit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []billing.ServiceCredit
	for _, c := range r.s.credits {
		if c.TenantID == tenantID && c.CreditType == t && c.IsUsable(now) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ValidUntil.Before(out[j].ValidUntil) })
	return out, nil
}

func (r creditRepo) ListByTenant(_ context.Context, tenantID uuid.UUID) ([]billing.ServiceCredit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []billing.ServiceCredit
	for _, c := range r.s.credits {
		if c.TenantID == tenantID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ValidUntil.Before(out[j].ValidUntil) })
	return out, nil
}

func (r creditRepo) ConsumeOne(_ context.Context, id uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.credits[id]
	if !ok || c.RemainingValue <= 0 {
		return false, nil
	}
	c.RemainingValue--
	r.s.credits[id] = c
	return true, nil
}

func (r creditRepo) Create(_ context.Context, c *billing.ServiceCredit) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.credits[c.ID] = *c
	return nil
}

type invoiceRepo struct{ s *Store }

func (r invoiceRepo) Create(_ context.Context, inv *invoicing.Invoice) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.invoices[inv.ID] = *inv
	return nil
}

func (r invoiceRepo) Update(_ context.Context, inv *invoicing.Invoice) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.invoices[inv.ID] = *inv
	return nil
}

func (r invoiceRepo) FindByID(_ context.Context, tenantID, id uuid.UUID) (*invoicing.Invoice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.invoices[id]
	if !ok || inv.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return &inv, nil
}

func (r invoiceRepo) List(_ context.Context, tenantID uuid.UUID, page, pageSize int) ([]invoicing.Invoice, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []invoicing.Invoice
	for _, inv := range r.s.invoices {
		if inv.TenantID == tenantID {
			all = append(all, inv)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].IssuedAt.After(all[j].IssuedAt) })
	total := int64(len(all))
	start := (page - 1) * pageSize
	if start >= len(all) {
		return []invoicing.Invoice{}, total, nil
	}
	end := min(start+pageSize, len(all))
	return all[start:end], total, nil
}

type auditRepo struct{ s *Store }

func (r auditRepo) Append(_ context.Context, e *audit.Entry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.AppendErr != nil {
		return r.s.AppendErr
	}
	r.s.entries = append(r.s.entries, *e)
	return nil
}

func (r auditRepo) List(_ context.Context, tenantID uuid.UUID, q audit.Query) ([]audit.Entry, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []audit.Entry
	for _, e := range r.s.entries {
		if e.TenantID == tenantID && (q.Action == "" || e.Action == q.Action) {
			out = append(out, e)
		}
	}
	return out, int64(len(out)), nil
}
