package billing

import (
	"context"
	"slices"

	"github.com/shopspring/decimal"
)

// PlanCode identifies a plan
type PlanCode string

const (
	PlanStart        PlanCode = "START"
	PlanEssential    PlanCode = "ESSENTIAL"
	PlanProfessional PlanCode = "PROFESSIONAL"
	PlanEnterprise   PlanCode = "ENTERPRISE"
)

// IsValid returns true if the code names a known plan
func (c PlanCode) IsValid() bool {
	switch c {
	case PlanStart, PlanEssential, PlanProfessional, PlanEnterprise:
		return true
	}
	return false
}

// DefaultPlanCode is provisioned for tenants that have no subscription yet
const DefaultPlanCode = PlanStart

// Plan is a subscription plan with its limits and enabled features
type Plan struct {
	Code         PlanCode
	Name         string
	PriceMonthly decimal.Decimal
	PriceYearly  decimal.Decimal
	// Rank orders plans from entry level upwards; used for upgrade suggestions
	Rank         int
	Features     []FeatureFlag
	Entitlements map[EntitlementKey]Limit
}

// Limit returns the limit configured for key; nil when absent (unlimited)
func (p *Plan) Limit(key EntitlementKey) Limit {
	if p.Entitlements == nil {
		return nil
	}
	return p.Entitlements[key]
}

// HasFeature reports whether the plan enables flag
func (p *Plan) HasFeature(flag FeatureFlag) bool {
	return slices.Contains(p.Features, flag)
}

// GraceDays returns the grace window after a failed payment; 0 means none
func (p *Plan) GraceDays() int {
	l := p.Limit(EntitlementGraceDays)
	if IsUnlimited(l) {
		return 0
	}
	return int(*l)
}

// PlanCatalog is an ordered list of plans (lowest rank first)
type PlanCatalog []Plan

// Find returns the plan with the given code
func (c PlanCatalog) Find(code PlanCode) (*Plan, bool) {
	for i := range c {
		if c[i].Code == code {
			return &c[i], true
		}
	}
	return nil, false
}

// NextHigher returns the cheapest plan ranked above code
func (c PlanCatalog) NextHigher(code PlanCode) (*Plan, bool) {
	current, ok := c.Find(code)
	if !ok {
		return nil, false
	}
	var next *Plan
	for i := range c {
		if c[i].Rank > current.Rank && (next == nil || c[i].Rank < next.Rank) {
			next = &c[i]
		}
	}
	return next, next != nil
}

// LowestWithFeature returns the lowest ranked plan that enables flag
func (c PlanCatalog) LowestWithFeature(flag FeatureFlag) (*Plan, bool) {
	var best *Plan
	for i := range c {
		if c[i].HasFeature(flag) && (best == nil || c[i].Rank < best.Rank) {
			best = &c[i]
		}
	}
	return best, best != nil
}

// DefaultPlanCatalog returns the plans seeded at startup
func DefaultPlanCatalog() PlanCatalog {
	return PlanCatalog{
		{
			Code:         PlanStart,
			Name:         "Start",
			PriceMonthly: decimal.Zero,
			PriceYearly:  decimal.Zero,
			Rank:         1,
			Features:     []FeatureFlag{},
			Entitlements: map[EntitlementKey]Limit{
				EntitlementInvoices:    LimitOf(5),
				EntitlementSeats:       LimitOf(2),
				EntitlementAccountants: LimitOf(1),
				EntitlementGraceDays:   LimitOf(7),
			},
		},
		{
			Code:         PlanEssential,
			Name:         "Essential",
			PriceMonthly: decimal.RequireFromString("49.90"),
			PriceYearly:  decimal.RequireFromString("499.00"),
			Rank:         2,
			Features:     []FeatureFlag{FeatureInvoiceCancellation, FeatureReportExport},
			Entitlements: map[EntitlementKey]Limit{
				EntitlementInvoices:    LimitOf(50),
				EntitlementSeats:       LimitOf(5),
				EntitlementAccountants: LimitOf(2),
				EntitlementGraceDays:   LimitOf(7),
			},
		},
		{
			Code:         PlanProfessional,
			Name:         "Professional",
			PriceMonthly: decimal.RequireFromString("149.90"),
			PriceYearly:  decimal.RequireFromString("1499.00"),
			Rank:         3,
			Features:     []FeatureFlag{FeatureInvoiceCancellation, FeatureReportExport, FeatureRecurringBilling},
			Entitlements: map[EntitlementKey]Limit{
				EntitlementInvoices:    LimitOf(500),
				EntitlementSeats:       LimitOf(15),
				EntitlementAccountants: LimitOf(5),
				EntitlementGraceDays:   LimitOf(14),
			},
		},
		{
			Code:         PlanEnterprise,
			Name:         "Enterprise",
			PriceMonthly: decimal.RequireFromString("499.90"),
			PriceYearly:  decimal.RequireFromString("4999.00"),
			Rank:         4,
			Features: []FeatureFlag{
				FeatureInvoiceCancellation, FeatureReportExport, FeatureRecurringBilling, FeaturePrioritySupport,
			},
			Entitlements: map[EntitlementKey]Limit{
				EntitlementInvoices:    LimitOf(Unlimited),
				EntitlementSeats:       LimitOf(Unlimited),
				EntitlementAccountants: LimitOf(Unlimited),
				EntitlementGraceDays:   LimitOf(30),
			},
		},
	}
}

// PlanRepository reads plans from storage
type PlanRepository interface {
	// FindByCode returns shared.ErrNotFound when the plan is not stored
	FindByCode(ctx context.Context, code PlanCode) (*Plan, error)
	List(ctx context.Context) (PlanCatalog, error)
	// Upsert stores a plan and replaces its entitlements
	Upsert(ctx context.Context, plan *Plan) error
}
