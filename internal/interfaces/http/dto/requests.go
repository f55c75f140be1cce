package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateTenantRequest onboards a new company owned by the caller
type CreateTenantRequest struct {
	Name string `json:"name" binding:"required,min=2,max=200"`
}

// UpdateSettingsRequest replaces the company settings
type UpdateSettingsRequest struct {
	Currency      string `json:"currency" binding:"required,len=3"`
	Timezone      string `json:"timezone" binding:"required,max=64"`
	Locale        string `json:"locale" binding:"required,max=16"`
	InvoicePrefix string `json:"invoice_prefix" binding:"omitempty,max=10,alphanum"`
}

// RecurringBillingRequest switches recurring invoicing. Enabled is a pointer
// so an omitted field fails validation instead of reading as false.
type RecurringBillingRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// AddMemberRequest adds a collaborator to the company
type AddMemberRequest struct {
	UserID string `json:"user_id" binding:"required,uuid"`
	Role   string `json:"role" binding:"required,member_role"`
}

// AssignAccountantRequest assigns an accounting firm to the company
type AssignAccountantRequest struct {
	FirmID string `json:"firm_id" binding:"required,uuid"`
}

// IssueInvoiceRequest issues an invoice
type IssueInvoiceRequest struct {
	CustomerName string          `json:"customer_name" binding:"required,max=200"`
	Amount       decimal.Decimal `json:"amount"`
}

// GrantCreditRequest grants service credits to a tenant
type GrantCreditRequest struct {
	CreditType   string `json:"credit_type" binding:"required,oneof=INVOICE_CREDIT SEAT_CREDIT ACCOUNTANT_CREDIT"`
	Amount       int64  `json:"amount" binding:"required,min=1,max=100000"`
	ValidForDays int    `json:"valid_for_days" binding:"required,min=1,max=730"`
	Source       string `json:"source" binding:"required,max=100"`
}

// BillingEventRequest delivers a subscription lifecycle event
type BillingEventRequest struct {
	Type      string     `json:"type" binding:"required,oneof=PAYMENT_SUCCEEDED PAYMENT_FAILED PLAN_CHANGED CANCELLED"`
	PlanCode  string     `json:"plan_code" binding:"required_if=Type PLAN_CHANGED,omitempty,plan_code"`
	PaidUntil *time.Time `json:"paid_until" binding:"required_if=Type PAYMENT_SUCCEEDED"`
}

// AuditLogListRequest filters the audit timeline
type AuditLogListRequest struct {
	ListRequest
	Action string     `form:"action" binding:"omitempty,max=64"`
	Since  *time.Time `form:"since" time_format:"2006-01-02T15:04:05Z07:00"`
}
