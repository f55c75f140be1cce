package billing

import (
	"fmt"
	"time"
)

// PlanStatus is the overall account status derived from subscription and usage
type PlanStatus string

const (
	PlanStatusActive  PlanStatus = "ACTIVE"
	PlanStatusWarning PlanStatus = "WARNING"
	PlanStatusGrace   PlanStatus = "GRACE"
	PlanStatusBlocked PlanStatus = "BLOCKED"
	PlanStatusExpired PlanStatus = "EXPIRED"
)

func (s PlanStatus) severity() int {
	switch s {
	case PlanStatusWarning:
		return 1
	case PlanStatusGrace:
		return 2
	case PlanStatusBlocked:
		return 3
	case PlanStatusExpired:
		return 4
	}
	return 0
}

// Restricts reports whether the status blocks tenant-scoped mutations
func (s PlanStatus) Restricts() bool {
	return s == PlanStatusBlocked || s == PlanStatusGrace || s == PlanStatusExpired
}

// CTA is the machine-readable call to action returned with a status.
// The empty value is rendered as null.
type CTA string

const (
	CTANone           CTA = ""
	CTAUpgrade        CTA = "UPGRADE"
	CTABuyCredits     CTA = "BUY_CREDITS"
	CTAContactSupport CTA = "CONTACT_SUPPORT"
)

// DefaultWarningPercent is the usage share at which a dimension warns
const DefaultWarningPercent = 80

// Dimension is one of the resource dimensions evaluated for plan state
type Dimension string

const (
	DimensionAccountants Dimension = "accountants"
	DimensionInvoices    Dimension = "invoices"
	DimensionSeats       Dimension = "seats"
)

// dimensionOrder is alphabetical; on equal severity the earliest dimension wins
var dimensionOrder = []Dimension{DimensionAccountants, DimensionInvoices, DimensionSeats}

// DimensionKey maps a dimension to the plan entitlement limiting it
func DimensionKey(d Dimension) EntitlementKey {
	switch d {
	case DimensionAccountants:
		return EntitlementAccountants
	case DimensionInvoices:
		return EntitlementInvoices
	default:
		return EntitlementSeats
	}
}

// DimensionUsage is current usage against the plan limit
type DimensionUsage struct {
	Used  int64
	Limit Limit
}

// PlanStateInput carries everything DerivePlanState needs
type PlanStateInput struct {
	Subscription   *Subscription
	Plan           *Plan
	Usage          map[Dimension]int64
	Now            time.Time
	WarningPercent int
}

// PlanState is the derived account status
type PlanState struct {
	Plan       *Plan
	Status     PlanStatus
	Usage      map[Dimension]DimensionUsage
	Expiration *time.Time
	Reason     string
	CTA        CTA
	// Trigger is the dimension that set the status, if any
	Trigger Dimension
}

// DerivePlanState computes the account status. Steps run in order and may
// only escalate severity:
//  1. expired subscription
//  2. failed payment (grace window or blocked)
//  3. per-dimension usage against limits
func DerivePlanState(in PlanStateInput) PlanState {
	warnPct := in.WarningPercent
	if warnPct <= 0 {
		warnPct = DefaultWarningPercent
	}

	st := PlanState{
		Plan:       in.Plan,
		Status:     PlanStatusActive,
		Usage:      make(map[Dimension]DimensionUsage, len(dimensionOrder)),
		Expiration: in.Subscription.ExpiresAt,
	}
	for _, d := range dimensionOrder {
		st.Usage[d] = DimensionUsage{Used: in.Usage[d], Limit: in.Plan.Limit(DimensionKey(d))}
	}

	sub := in.Subscription
	if sub.IsExpired(in.Now) {
		st.Status = PlanStatusBlocked
		if sub.Status == SubscriptionCancelled {
			st.Status = PlanStatusExpired
		}
		st.Reason = "subscription expired"
		st.CTA = CTAUpgrade
	}

	if sub.PaymentStatus == PaymentFailed {
		graceDays := in.Plan.GraceDays()
		if graceDays > 0 && withinGrace(sub.ExpiresAt, graceDays, in.Now) {
			if st.Status.severity() < PlanStatusGrace.severity() {
				st.Status = PlanStatusGrace
				st.Reason = "payment failed, grace period active"
				st.CTA = CTAUpgrade
			}
		} else if st.Status.severity() < PlanStatusBlocked.severity() {
			st.Status = PlanStatusBlocked
			st.Reason = "payment failed"
			st.CTA = CTAContactSupport
		}
	}

	if st.Status != PlanStatusActive && st.Status != PlanStatusGrace {
		return st
	}

	worst, dim := PlanStatusActive, Dimension("")
	for _, d := range dimensionOrder {
		s := dimensionStatus(st.Usage[d], warnPct)
		if s.severity() > worst.severity() {
			worst, dim = s, d
		}
	}

	switch worst {
	case PlanStatusBlocked:
		st.Status = PlanStatusBlocked
		st.Reason = fmt.Sprintf("%s limit reached", dim)
		st.CTA = CTAUpgrade
		st.Trigger = dim
	case PlanStatusWarning:
		if st.Status == PlanStatusActive {
			st.Status = PlanStatusWarning
			st.Reason = fmt.Sprintf("%s usage at or above %d%% of limit", dim, warnPct)
			if st.CTA == CTANone {
				st.CTA = CTABuyCredits
			}
			st.Trigger = dim
		}
	}
	return st
}

// withinGrace is true while now <= expiresAt + graceDays. A subscription
// without expiry has an open-ended grace window.
func withinGrace(expiresAt *time.Time, graceDays int, now time.Time) bool {
	if expiresAt == nil {
		return true
	}
	return !now.After(expiresAt.AddDate(0, 0, graceDays))
}

func dimensionStatus(u DimensionUsage, warnPct int) PlanStatus {
	if IsUnlimited(u.Limit) {
		return PlanStatusActive
	}
	limit := *u.Limit
	if limit == 0 {
		if u.Used > 0 {
			return PlanStatusBlocked
		}
		return PlanStatusActive
	}
	if u.Used >= limit {
		return PlanStatusBlocked
	}
	if u.Used*100 >= limit*int64(warnPct) {
		return PlanStatusWarning
	}
	return PlanStatusActive
}
