package entitlement

import (
	"context"
	"time"

	"github.com/bizcore/backend/internal/application/unitofwork"
	"github.com/bizcore/backend/internal/domain/billing"
	"github.com/google/uuid"
)

// Action is a plan-gated operation
type Action string

const (
	ActionIssueInvoice           Action = "ISSUE_INVOICE"
	ActionAddCollaborator        Action = "ADD_COLLABORATOR"
	ActionAssignAccountant       Action = "ASSIGN_ACCOUNTANT"
	ActionEnableRecurringBilling Action = "ENABLE_RECURRING_BILLING"
	ActionExportReport           Action = "EXPORT_REPORT"
	ActionCancelInvoice          Action = "CANCEL_INVOICE"
)

// Denial reasons
const (
	ReasonLimitExceeded       = "LIMIT_EXCEEDED"
	ReasonFeatureNotAvailable = "FEATURE_NOT_AVAILABLE"
)

// Decision is the outcome of an entitlement check. A denial is a value,
// not an error.
type Decision struct {
	Allowed           bool
	Action            Action
	Reason            string
	Message           string
	UpgradeSuggestion *billing.PlanCode
	CurrentUsage      *int64
	Limit             *int64
	PlanCode          billing.PlanCode
	// CreditConsumed is set when a credit covered usage beyond the limit
	CreditConsumed bool
	// CreditAvailable is set on dry runs that would be covered by a credit
	CreditAvailable bool
}

// evaluation is the state a strategy sees
type evaluation struct {
	tenantID uuid.UUID
	plan     *billing.Plan
	catalog  billing.PlanCatalog
	now      time.Time
	dryRun   bool
	repos    unitofwork.Repositories
}

// strategy decides one action
type strategy interface {
	evaluate(ctx context.Context, s *Service, ev evaluation) (*Decision, error)
}

// usageFunc reads current usage of a metered dimension
type usageFunc func(ctx context.Context, repos unitofwork.Repositories, tenantID uuid.UUID, now time.Time) (int64, error)

// meteredStrategy gates an action on a numeric limit with credit fallback
type meteredStrategy struct {
	key        billing.EntitlementKey
	creditType billing.CreditType
	usage      usageFunc
}

// featureStrategy gates an action on a plan feature flag
type featureStrategy struct {
	feature billing.FeatureFlag
}

func invoicesThisPeriod(ctx context.Context, repos unitofwork.Repositories, tenantID uuid.UUID, now time.Time) (int64, error) {
	return repos.UsageCounters().Get(ctx, tenantID, billing.EntitlementInvoices, billing.PeriodStart(now))
}

// Seats are always the live count of active direct memberships
func activeSeats(ctx context.Context, repos unitofwork.Repositories, tenantID uuid.UUID, _ time.Time) (int64, error) {
	return repos.Members().CountActive(ctx, tenantID)
}

func activeAccountants(ctx context.Context, repos unitofwork.Repositories, tenantID uuid.UUID, _ time.Time) (int64, error) {
	return repos.Delegations().CountActiveAssignments(ctx, tenantID)
}

// strategies maps every plan-gated action to how it is decided
var strategies = map[Action]strategy{
	ActionIssueInvoice: meteredStrategy{
		key:        billing.EntitlementInvoices,
		creditType: billing.CreditTypeInvoice,
		usage:      invoicesThisPeriod,
	},
	ActionAddCollaborator: meteredStrategy{
		key:        billing.EntitlementSeats,
		creditType: billing.CreditTypeSeat,
		usage:      activeSeats,
	},
	ActionAssignAccountant: meteredStrategy{
		key:        billing.EntitlementAccountants,
		creditType: billing.CreditTypeAccountant,
		usage:      activeAccountants,
	},
	ActionEnableRecurringBilling: featureStrategy{feature: billing.FeatureRecurringBilling},
	ActionExportReport:           featureStrategy{feature: billing.FeatureReportExport},
	ActionCancelInvoice:          featureStrategy{feature: billing.FeatureInvoiceCancellation},
}

// IsKnown reports whether the action has a strategy
func IsKnown(a Action) bool {
	_, ok := strategies[a]
	return ok
}
