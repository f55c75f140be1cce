package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UsageCounter is the usage of one metric by one tenant in one period
type UsageCounter struct {
	TenantID    uuid.UUID
	Key         EntitlementKey
	PeriodStart time.Time
	UsedValue   int64
}

// PeriodStart returns the start of the calendar month (UTC) containing t
func PeriodStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// UsageCounterRepository stores counters. Increment must be a single atomic
// insert-or-add so concurrent requests never lose updates.
type UsageCounterRepository interface {
	// Get returns 0 when no row exists for the period
	Get(ctx context.Context, tenantID uuid.UUID, key EntitlementKey, periodStart time.Time) (int64, error)
	Increment(ctx context.Context, tenantID uuid.UUID, key EntitlementKey, periodStart time.Time, delta int64) error
}
