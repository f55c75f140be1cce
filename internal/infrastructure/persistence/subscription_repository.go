package persistence

import (
	"context"
	"time"

	"github.com/bizcore/backend/internal/domain/billing"
	"github.com/bizcore/backend/internal/domain/shared"
	"github.com/bizcore/backend/internal/infrastructure/persistence/models"
	"github.com/bizcore/backend/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormSubscriptionRepository implements billing.SubscriptionRepository using GORM
type GormSubscriptionRepository struct {
	db *gorm.DB
}

// NewGormSubscriptionRepository creates a new GormSubscriptionRepository
func NewGormSubscriptionRepository(db *gorm.DB) *GormSubscriptionRepository {
	return &GormSubscriptionRepository{db: db}
}

// FindByTenant returns the tenant's subscription
func (r *GormSubscriptionRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID) (*billing.Subscription, error) {
	var model models.SubscriptionModel
	if err := r.db.WithContext(ctx).Scopes(tenant.Scope(tenantID)).First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// Create inserts the tenant's subscription. The unique tenant_id index
// rejects a second one with shared.ErrAlreadyExists.
func (r *GormSubscriptionRepository) Create(ctx context.Context, sub *billing.Subscription) error {
	model := &models.SubscriptionModel{}
	model.FromDomain(sub)
	return translateError(r.db.WithContext(ctx).Create(model).Error)
}

// Update persists plan, status, payment and expiry changes
func (r *GormSubscriptionRepository) Update(ctx context.Context, sub *billing.Subscription) error {
	updatedAt := sub.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	res := r.db.WithContext(ctx).Scopes(tenant.Scope(sub.TenantID)).
		Model(&models.SubscriptionModel{}).
		Where("id = ?", sub.ID).
		Updates(map[string]any{
			"plan_code":      sub.PlanCode,
			"status":         sub.Status,
			"payment_status": sub.PaymentStatus,
			"expires_at":     sub.ExpiresAt,
			"updated_at":     updatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ billing.SubscriptionRepository = (*GormSubscriptionRepository)(nil)
