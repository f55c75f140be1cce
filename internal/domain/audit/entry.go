// Package audit defines the immutable audit log of sensitive mutations and
// entitlement denials.
package audit

import (
	"context"
	"time"

	"github.com/bizcore/backend/internal/domain/identity"
	"github.com/google/uuid"
)

// Action names an audited event
type Action string

const (
	ActionTenantCreated       Action = "TENANT_CREATED"
	ActionSubscriptionCreated Action = "SUBSCRIPTION_CREATED"
	ActionSubscriptionUpdated Action = "SUBSCRIPTION_UPDATED"
	ActionMemberAdded         Action = "MEMBER_ADDED"
	ActionMemberRemoved       Action = "MEMBER_REMOVED"
	ActionAccountantAssigned  Action = "ACCOUNTANT_ASSIGNED"
	ActionSettingsUpdated     Action = "SETTINGS_UPDATED"
	ActionInvoiceIssued       Action = "INVOICE_ISSUED"
	ActionInvoiceCancelled    Action = "INVOICE_CANCELLED"
	ActionCreditGranted       Action = "CREDIT_GRANTED"
	ActionEntitlementDenied   Action = "ENTITLEMENT_DENIED"
	ActionReportExported      Action = "REPORT_EXPORTED"
	ActionRecurringBilling    Action = "RECURRING_BILLING_CHANGED"
)

// Entity types recorded on entries
const (
	EntityCompany      = "company"
	EntitySubscription = "subscription"
	EntityMember       = "company_member"
	EntityAssignment   = "firm_assignment"
	EntityInvoice      = "invoice"
	EntityCredit       = "service_credit"
	EntityEntitlement  = "entitlement"
	EntityReport       = "report"
)

// Entry is one append-only audit record. It is never updated or deleted.
type Entry struct {
	ID                     uuid.UUID
	TenantID               uuid.UUID
	ActorID                uuid.UUID
	ActorType              identity.ActorType
	AccessType             identity.AccessType
	ImpersonationSessionID *string
	Action                 Action
	EntityType             string
	EntityID               string
	Before                 any
	After                  any
	IPAddress              string
	UserAgent              string
	CreatedAt              time.Time
}

// NewEntry creates an entry attributed to the caller in sc
func NewEntry(sc *identity.SecurityContext, action Action, entityType, entityID string) *Entry {
	return &Entry{
		ID:                     uuid.New(),
		TenantID:               sc.TenantID,
		ActorID:                sc.UserID,
		ActorType:              sc.ActorType(),
		AccessType:             sc.AccessType,
		ImpersonationSessionID: sc.ImpersonationSessionID,
		Action:                 action,
		EntityType:             entityType,
		EntityID:               entityID,
		CreatedAt:              time.Now().UTC(),
	}
}

// WithChange attaches before/after snapshots
func (e *Entry) WithChange(before, after any) *Entry {
	e.Before = before
	e.After = after
	return e
}

// Query filters the audit timeline
type Query struct {
	Action   Action
	Since    *time.Time
	Page     int
	PageSize int
}

// Normalize applies paging defaults
func (q *Query) Normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 || q.PageSize > 200 {
		q.PageSize = 50
	}
}

// Repository appends and reads entries. There is deliberately no update or delete.
type Repository interface {
	Append(ctx context.Context, entry *Entry) error
	List(ctx context.Context, tenantID uuid.UUID, q Query) ([]Entry, int64, error)
}

// NewSystemEntry creates an entry for an action not initiated by a user,
// such as a billing event
func NewSystemEntry(tenantID uuid.UUID, action Action, entityType, entityID string) *Entry {
	return &Entry{
		ID:         uuid.New(),
		TenantID:   tenantID,
		ActorType:  identity.ActorTypeSystem,
		AccessType: identity.AccessTypeDirect,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		CreatedAt:  time.Now().UTC(),
	}
}
