package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/bizcore/backend/internal/domain/billing"
	"github.com/bizcore/backend/internal/infrastructure/persistence/models"
	"github.com/bizcore/backend/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormUsageCounterRepository implements billing.UsageCounterRepository using GORM
type GormUsageCounterRepository struct {
	db *gorm.DB
}

// NewGormUsageCounterRepository creates a new GormUsageCounterRepository
func NewGormUsageCounterRepository(db *gorm.DB) *GormUsageCounterRepository {
	return &GormUsageCounterRepository{db: db}
}

// Get returns the counter value, zero when no row exists
func (r *GormUsageCounterRepository) Get(ctx context.Context, tenantID uuid.UUID, key billing.EntitlementKey, periodStart time.Time) (int64, error) {
	var model models.UsageCounterModel
	err := r.db.WithContext(ctx).Scopes(tenant.Scope(tenantID)).
		Where("entitlement_key = ? AND period_start = ?", key, periodStart.UTC()).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return model.UsedValue, nil
}

// Increment adds delta to the counter with a single upsert. Concurrent
// increments never lose updates and never create duplicate rows.
func (r *GormUsageCounterRepository) Increment(ctx context.Context, tenantID uuid.UUID, key billing.EntitlementKey, periodStart time.Time, delta int64) error {
	if tenantID == uuid.Nil {
		return tenant.ErrTenantIDRequired
	}
	row := &models.UsageCounterModel{
		ID:             uuid.New(),
		TenantID:       tenantID,
		EntitlementKey: key,
		PeriodStart:    periodStart.UTC(),
		UsedValue:      delta,
		UpdatedAt:      time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tenant_id"}, {Name: "entitlement_key"}, {Name: "period_start"}},
		DoUpdates: clause.Assignments(map[string]any{
			"used_value": gorm.Expr("usage_counters.used_value + excluded.used_value"),
			"updated_at": gorm.Expr("excluded.updated_at"),
		}),
	}).Create(row).Error
}

var _ billing.UsageCounterRepository = (*GormUsageCounterRepository)(nil)
