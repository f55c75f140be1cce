package models

import (
	"encoding/json"
	"time"

	"github.com/bizcore/backend/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PlanModel is the persistence model for a plan definition
type PlanModel struct {
	Code         billing.PlanCode `gorm:"type:varchar(32);primaryKey"`
	Name         string           `gorm:"type:varchar(100);not null"`
	PriceMonthly decimal.Decimal  `gorm:"type:numeric(12,2);not null"`
	PriceYearly  decimal.Decimal  `gorm:"type:numeric(12,2);not null"`
	Rank         int              `gorm:"not null"`
	// Features is a JSON array of feature flags
	Features     string                 `gorm:"type:text;not null"`
	Entitlements []PlanEntitlementModel `gorm:"foreignKey:PlanCode;references:Code"`
	CreatedAt    time.Time              `gorm:"not null"`
	UpdatedAt    time.Time              `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PlanModel) TableName() string {
	return "plans"
}

// PlanEntitlementModel is one (plan, key) limit. A NULL limit is unlimited.
type PlanEntitlementModel struct {
	PlanCode       billing.PlanCode       `gorm:"type:varchar(32);primaryKey"`
	EntitlementKey billing.EntitlementKey `gorm:"type:varchar(32);primaryKey"`
	LimitValue     *int64
}

// TableName returns the table name for GORM
func (PlanEntitlementModel) TableName() string {
	return "plan_entitlements"
}

// ToDomain converts the persistence model to a domain Plan
func (m *PlanModel) ToDomain() (*billing.Plan, error) {
	features := []billing.FeatureFlag{}
	if m.Features != "" {
		if err := json.Unmarshal([]byte(m.Features), &features); err != nil {
			return nil, err
		}
	}
	ents := make(map[billing.EntitlementKey]billing.Limit, len(m.Entitlements))
	for _, e := range m.Entitlements {
		if e.LimitValue == nil {
			ents[e.EntitlementKey] = billing.LimitOf(billing.Unlimited)
			continue
		}
		ents[e.EntitlementKey] = billing.LimitOf(*e.LimitValue)
	}
	return &billing.Plan{
		Code:         m.Code,
		Name:         m.Name,
		PriceMonthly: m.PriceMonthly,
		PriceYearly:  m.PriceYearly,
		Rank:         m.Rank,
		Features:     features,
		Entitlements: ents,
	}, nil
}

// FromDomain populates the persistence model from a domain Plan
func (m *PlanModel) FromDomain(p *billing.Plan) error {
	features := p.Features
	if features == nil {
		features = []billing.FeatureFlag{}
	}
	raw, err := json.Marshal(features)
	if err != nil {
		return err
	}
	m.Code = p.Code
	m.Name = p.Name
	m.PriceMonthly = p.PriceMonthly
	m.PriceYearly = p.PriceYearly
	m.Rank = p.Rank
	m.Features = string(raw)
	m.Entitlements = make([]PlanEntitlementModel, 0, len(p.Entitlements))
	for key, limit := range p.Entitlements {
		e := PlanEntitlementModel{PlanCode: p.Code, EntitlementKey: key}
		if !billing.IsUnlimited(limit) {
			v := *limit
			e.LimitValue = &v
		}
		m.Entitlements = append(m.Entitlements, e)
	}
	return nil
}

// SubscriptionModel is the persistence model for a tenant's subscription.
// tenant_id is unique: a tenant has exactly one subscription.
type SubscriptionModel struct {
	TenantModel
	PlanCode      billing.PlanCode           `gorm:"type:varchar(32);not null"`
	Status        billing.SubscriptionStatus `gorm:"type:varchar(20);not null"`
	PaymentStatus billing.PaymentStatus      `gorm:"type:varchar(20);not null"`
	StartedAt     time.Time                  `gorm:"not null"`
	ExpiresAt     *time.Time
}

// TableName returns the table name for GORM
func (SubscriptionModel) TableName() string {
	return "subscriptions"
}

// ToDomain converts the persistence model to a domain Subscription
func (m *SubscriptionModel) ToDomain() *billing.Subscription {
	sub := &billing.Subscription{
		TenantEntity:  m.ToDomainTenantEntity(),
		PlanCode:      m.PlanCode,
		Status:        m.Status,
		PaymentStatus: m.PaymentStatus,
		StartedAt:     m.StartedAt.UTC(),
	}
	if m.ExpiresAt != nil {
		at := m.ExpiresAt.UTC()
		sub.ExpiresAt = &at
	}
	return sub
}

// FromDomain populates the persistence model from a domain Subscription
func (m *SubscriptionModel) FromDomain(s *billing.Subscription) {
	m.FromDomainTenantEntity(s.TenantEntity)
	m.PlanCode = s.PlanCode
	m.Status = s.Status
	m.PaymentStatus = s.PaymentStatus
	m.StartedAt = s.StartedAt
	m.ExpiresAt = s.ExpiresAt
}

// UsageCounterModel counts consumption of one entitlement in one period.
// (tenant_id, entitlement_key, period_start) is unique.
type UsageCounterModel struct {
	ID             uuid.UUID              `gorm:"type:uuid;primary_key"`
	TenantID       uuid.UUID              `gorm:"type:uuid;not null"`
	EntitlementKey billing.EntitlementKey `gorm:"type:varchar(32);not null"`
	PeriodStart    time.Time              `gorm:"not null"`
	UsedValue      int64                  `gorm:"not null;default:0"`
	UpdatedAt      time.Time              `gorm:"not null"`
}

// TableName returns the table name for GORM
func (UsageCounterModel) TableName() string {
	return "usage_counters"
}

// ServiceCreditModel is the persistence model for a prepaid overage credit
type ServiceCreditModel struct {
	TenantModel
	CreditType     billing.CreditType `gorm:"type:varchar(32);not null"`
	RemainingValue int64              `gorm:"not null"`
	ValidUntil     time.Time          `gorm:"not null"`
	Source         string             `gorm:"type:varchar(100);not null"`
}

// TableName returns the table name for GORM
func (ServiceCreditModel) TableName() string {
	return "service_credits"
}

// ToDomain converts the persistence model to a domain ServiceCredit
func (m *ServiceCreditModel) ToDomain() *billing.ServiceCredit {
	return &billing.ServiceCredit{
		TenantEntity:   m.ToDomainTenantEntity(),
		CreditType:     m.CreditType,
		RemainingValue: m.RemainingValue,
		ValidUntil:     m.ValidUntil.UTC(),
		Source:         m.Source,
	}
}

// FromDomain populates the persistence model from a domain ServiceCredit
func (m *ServiceCreditModel) FromDomain(c *billing.ServiceCredit) {
	m.FromDomainTenantEntity(c.TenantEntity)
	m.CreditType = c.CreditType
	m.RemainingValue = c.RemainingValue
	m.ValidUntil = c.ValidUntil
	m.Source = c.Source
}

