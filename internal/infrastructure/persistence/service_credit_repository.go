package persistence

import (
	"context"
	"time"

	"github.com/bizcore/backend/internal/domain/billing"
	"github.com/bizcore/backend/internal/infrastructure/persistence/models"
	"github.com/bizcore/backend/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormServiceCreditRepository implements billing.ServiceCreditRepository using GORM
type GormServiceCreditRepository struct {
	db *gorm.DB
}

// NewGormServiceCreditRepository creates a new GormServiceCreditRepository
func NewGormServiceCreditRepository(db *gorm.DB) *GormServiceCreditRepository {
	return &GormServiceCreditRepository{db: db}
}

// ListUsable returns credits with remaining value that are still valid,
// soonest to expire first.
func (r *GormServiceCreditRepository) ListUsable(ctx context.Context, tenantID uuid.UUID, creditType billing.CreditType, now time.Time) ([]billing.ServiceCredit, error) {
	var rows []models.ServiceCreditModel
	err := r.db.WithContext(ctx).Scopes(tenant.Scope(tenantID)).
		Where("credit_type = ? AND remaining_value > 0 AND valid_until > ?", creditType, now.UTC()).
		Order("valid_until ASC, created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toCredits(rows), nil
}

// ListByTenant returns every credit of the tenant
func (r *GormServiceCreditRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]billing.ServiceCredit, error) {
	var rows []models.ServiceCreditModel
	err := r.db.WithContext(ctx).Scopes(tenant.Scope(tenantID)).
		Order("valid_until ASC, created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toCredits(rows), nil
}

// ConsumeOne decrements the credit by one only while it has value left.
// It reports false when another request drained the credit first.
func (r *GormServiceCreditRepository) ConsumeOne(ctx context.Context, creditID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.ServiceCreditModel{}).
		Where("id = ? AND remaining_value > 0", creditID).
		Updates(map[string]any{
			"remaining_value": gorm.Expr("remaining_value - 1"),
			"updated_at":      time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Create inserts a credit
func (r *GormServiceCreditRepository) Create(ctx context.Context, credit *billing.ServiceCredit) error {
	model := &models.ServiceCreditModel{}
	model.FromDomain(credit)
	return translateError(r.db.WithContext(ctx).Create(model).Error)
}

func toCredits(rows []models.ServiceCreditModel) []billing.ServiceCredit {
	credits := make([]billing.ServiceCredit, len(rows))
	for i := range rows {
		credits[i] = *rows[i].ToDomain()
	}
	return credits
}

var _ billing.ServiceCreditRepository = (*GormServiceCreditRepository)(nil)
