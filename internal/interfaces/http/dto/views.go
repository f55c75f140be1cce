package dto

import (
	"time"

	"github.com/bizcore/backend/internal/application/credit"
	"github.com/bizcore/backend/internal/application/entitlement"
	"github.com/bizcore/backend/internal/domain/audit"
	"github.com/bizcore/backend/internal/domain/billing"
	"github.com/bizcore/backend/internal/domain/identity"
	"github.com/bizcore/backend/internal/domain/invoicing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PlanView is a catalog entry. It shares the camelCase shape of the plan
// object in the plan state.
type PlanView struct {
	Code         billing.PlanCode `json:"code"`
	Name         string           `json:"name"`
	PriceMonthly decimal.Decimal  `json:"priceMonthly"`
	PriceYearly  decimal.Decimal  `json:"priceYearly"`
	Features     []string         `json:"features"`
	Limits       map[string]int64 `json:"limits"`
}

// ToPlanViews converts the catalog
func ToPlanViews(catalog billing.PlanCatalog) []PlanView {
	out := make([]PlanView, 0, len(catalog))
	for i := range catalog {
		p := &catalog[i]
		features := make([]string, len(p.Features))
		for j, f := range p.Features {
			features[j] = string(f)
		}
		limits := make(map[string]int64, 4)
		for _, key := range []billing.EntitlementKey{
			billing.EntitlementInvoices, billing.EntitlementSeats, billing.EntitlementAccountants, billing.EntitlementGraceDays,
		} {
			limits[string(key)] = billing.LimitValue(p.Limit(key))
		}
		out = append(out, PlanView{
			Code:         p.Code,
			Name:         p.Name,
			PriceMonthly: p.PriceMonthly,
			PriceYearly:  p.PriceYearly,
			Features:     features,
			Limits:       limits,
		})
	}
	return out
}

// CompanyView is the tenant as shown to its members
type CompanyView struct {
	ID               uuid.UUID                `json:"id"`
	Name             string                   `json:"name"`
	OwnerUserID      uuid.UUID                `json:"owner_user_id"`
	Settings         identity.CompanySettings `json:"settings"`
	RecurringBilling bool                     `json:"recurring_billing"`
	CreatedAt        time.Time                `json:"created_at"`
}

// ToCompanyView converts a company
func ToCompanyView(c *identity.Company) CompanyView {
	return CompanyView{
		ID:               c.ID,
		Name:             c.Name,
		OwnerUserID:      c.OwnerUserID,
		Settings:         c.Settings,
		RecurringBilling: c.RecurringBilling,
		CreatedAt:        c.CreatedAt,
	}
}

// SubscriptionView is the tenant's authoritative subscription
type SubscriptionView struct {
	ID            uuid.UUID                  `json:"id"`
	PlanCode      billing.PlanCode           `json:"plan_code"`
	Status        billing.SubscriptionStatus `json:"status"`
	PaymentStatus billing.PaymentStatus      `json:"payment_status"`
	StartedAt     time.Time                  `json:"started_at"`
	ExpiresAt     *time.Time                 `json:"expires_at"`
}

// ToSubscriptionView converts a subscription
func ToSubscriptionView(s *billing.Subscription) SubscriptionView {
	return SubscriptionView{
		ID:            s.ID,
		PlanCode:      s.PlanCode,
		Status:        s.Status,
		PaymentStatus: s.PaymentStatus,
		StartedAt:     s.StartedAt,
		ExpiresAt:     s.ExpiresAt,
	}
}

// OnboardingView is returned after a tenant is created
type OnboardingView struct {
	Company      CompanyView      `json:"company"`
	Owner        MemberView       `json:"owner"`
	Subscription SubscriptionView `json:"subscription"`
}

// MemberView is a direct membership
type MemberView struct {
	ID        uuid.UUID             `json:"id"`
	UserID    uuid.UUID             `json:"user_id"`
	Role      identity.Role         `json:"role"`
	Status    identity.MemberStatus `json:"status"`
	CreatedAt time.Time             `json:"created_at"`
}

// ToMemberView converts a membership
func ToMemberView(m *identity.CompanyMember) MemberView {
	return MemberView{
		ID:        m.ID,
		UserID:    m.UserID,
		Role:      m.Role,
		Status:    m.Status,
		CreatedAt: m.CreatedAt,
	}
}

// AssignmentView is a firm assignment
type AssignmentView struct {
	ID        uuid.UUID                 `json:"id"`
	FirmID    uuid.UUID                 `json:"firm_id"`
	Status    identity.AssignmentStatus `json:"status"`
	CreatedAt time.Time                 `json:"created_at"`
}

// ToAssignmentView converts an assignment
func ToAssignmentView(a *identity.FirmAssignment) AssignmentView {
	return AssignmentView{ID: a.ID, FirmID: a.FirmID, Status: a.Status, CreatedAt: a.CreatedAt}
}

// InvoiceView is an issued invoice
type InvoiceView struct {
	ID           uuid.UUID        `json:"id"`
	Number       string           `json:"number"`
	CustomerName string           `json:"customer_name"`
	Amount       decimal.Decimal  `json:"amount"`
	Currency     string           `json:"currency"`
	Status       invoicing.Status `json:"status"`
	IssuedBy     uuid.UUID        `json:"issued_by"`
	IssuedAt     time.Time        `json:"issued_at"`
	CancelledAt  *time.Time       `json:"cancelled_at,omitempty"`
}

// ToInvoiceView converts an invoice
func ToInvoiceView(inv *invoicing.Invoice) InvoiceView {
	return InvoiceView{
		ID:           inv.ID,
		Number:       inv.Number,
		CustomerName: inv.CustomerName,
		Amount:       inv.Amount,
		Currency:     inv.Currency,
		Status:       inv.Status,
		IssuedBy:     inv.IssuedBy,
		IssuedAt:     inv.IssuedAt,
		CancelledAt:  inv.CancelledAt,
	}
}

// CreditView is one service credit grant
type CreditView struct {
	ID             uuid.UUID          `json:"id"`
	CreditType     billing.CreditType `json:"credit_type"`
	RemainingValue int64              `json:"remaining_value"`
	ValidUntil     time.Time          `json:"valid_until"`
	Source         string             `json:"source"`
}

// ToCreditView converts a credit
func ToCreditView(c *billing.ServiceCredit) CreditView {
	return CreditView{
		ID:             c.ID,
		CreditType:     c.CreditType,
		RemainingValue: c.RemainingValue,
		ValidUntil:     c.ValidUntil,
		Source:         c.Source,
	}
}

// CreditBalanceView is the usable balance per type plus every grant
type CreditBalanceView struct {
	Available map[billing.CreditType]int64 `json:"available"`
	Credits   []CreditView                 `json:"credits"`
}

// ToCreditBalanceView converts a ledger balance
func ToCreditBalanceView(b *credit.Balance) CreditBalanceView {
	credits := make([]CreditView, len(b.Credits))
	for i := range b.Credits {
		credits[i] = ToCreditView(&b.Credits[i])
	}
	return CreditBalanceView{Available: b.Available, Credits: credits}
}

// DecisionView is an entitlement decision
type DecisionView struct {
	Allowed           bool               `json:"allowed"`
	Action            entitlement.Action `json:"action"`
	Reason            string             `json:"reason,omitempty"`
	Message           string             `json:"message,omitempty"`
	UpgradeSuggestion *billing.PlanCode  `json:"upgrade_suggestion"`
	CurrentUsage      *int64             `json:"current_usage"`
	Limit             *int64             `json:"limit"`
	PlanCode          billing.PlanCode   `json:"plan_code"`
	CreditAvailable   bool               `json:"credit_available"`
}

// ToDecisionView converts a decision
func ToDecisionView(d *entitlement.Decision) DecisionView {
	return DecisionView{
		Allowed:           d.Allowed,
		Action:            d.Action,
		Reason:            d.Reason,
		Message:           d.Message,
		UpgradeSuggestion: d.UpgradeSuggestion,
		CurrentUsage:      d.CurrentUsage,
		Limit:             d.Limit,
		PlanCode:          d.PlanCode,
		CreditAvailable:   d.CreditAvailable,
	}
}

// AuditLogView is one audit timeline entry
type AuditLogView struct {
	ID                     uuid.UUID           `json:"id"`
	ActorID                *uuid.UUID          `json:"actor_id"`
	ActorType              identity.ActorType  `json:"actor_type"`
	AccessType             identity.AccessType `json:"access_type,omitempty"`
	ImpersonationSessionID *string             `json:"impersonation_session_id"`
	Action                 audit.Action        `json:"action"`
	EntityType             string              `json:"entity_type"`
	EntityID               string              `json:"entity_id"`
	Before                 any                 `json:"before"`
	After                  any                 `json:"after"`
	IPAddress              string              `json:"ip_address,omitempty"`
	UserAgent              string              `json:"user_agent,omitempty"`
	CreatedAt              time.Time           `json:"created_at"`
}

// ToAuditLogView converts an audit entry
func ToAuditLogView(e *audit.Entry) AuditLogView {
	v := AuditLogView{
		ID:                     e.ID,
		ActorType:              e.ActorType,
		AccessType:             e.AccessType,
		ImpersonationSessionID: e.ImpersonationSessionID,
		Action:                 e.Action,
		EntityType:             e.EntityType,
		EntityID:               e.EntityID,
		Before:                 e.Before,
		After:                  e.After,
		IPAddress:              e.IPAddress,
		UserAgent:              e.UserAgent,
		CreatedAt:              e.CreatedAt,
	}
	if e.ActorID != uuid.Nil {
		id := e.ActorID
		v.ActorID = &id
	}
	return v
}
