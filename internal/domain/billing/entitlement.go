package billing

// EntitlementKey names a numeric entitlement attached to a plan
type EntitlementKey string

const (
	EntitlementInvoices    EntitlementKey = "INVOICES"
	EntitlementSeats       EntitlementKey = "SEATS"
	EntitlementAccountants EntitlementKey = "ACCOUNTANTS"
	EntitlementGraceDays   EntitlementKey = "GRACE_DAYS"
)

// IsValid returns true if the key is known
func (k EntitlementKey) IsValid() bool {
	switch k {
	case EntitlementInvoices, EntitlementSeats, EntitlementAccountants, EntitlementGraceDays:
		return true
	}
	return false
}

// FeatureFlag names a boolean capability enabled per plan
type FeatureFlag string

const (
	FeatureRecurringBilling    FeatureFlag = "recurring_billing"
	FeatureReportExport        FeatureFlag = "report_export"
	FeatureInvoiceCancellation FeatureFlag = "invoice_cancellation"
	FeaturePrioritySupport     FeatureFlag = "priority_support"
)

// CreditType identifies which limit a service credit extends
type CreditType string

const (
	CreditTypeInvoice    CreditType = "INVOICE_CREDIT"
	CreditTypeSeat       CreditType = "SEAT_CREDIT"
	CreditTypeAccountant CreditType = "ACCOUNTANT_CREDIT"
)

// IsValid returns true if the credit type is known
func (c CreditType) IsValid() bool {
	switch c {
	case CreditTypeInvoice, CreditTypeSeat, CreditTypeAccountant:
		return true
	}
	return false
}

// Unlimited is the stored limit value meaning "no limit"
const Unlimited int64 = -1

// Limit is a plan limit. nil and -1 both mean unlimited.
type Limit = *int64

// LimitOf returns a Limit holding v
func LimitOf(v int64) Limit {
	return &v
}

// IsUnlimited treats nil and any negative value as unlimited
func IsUnlimited(l Limit) bool {
	return l == nil || *l < 0
}

// LimitValue returns the stored representation of l (-1 when unlimited)
func LimitValue(l Limit) int64 {
	if IsUnlimited(l) {
		return Unlimited
	}
	return *l
}
