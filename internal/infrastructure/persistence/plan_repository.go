package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/bizcore/backend/internal/domain/billing"
	"github.com/bizcore/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPlanRepository implements billing.PlanRepository using GORM.
// Plans are global reference data and carry no tenant.
type GormPlanRepository struct {
	db *gorm.DB
}

// NewGormPlanRepository creates a new GormPlanRepository
func NewGormPlanRepository(db *gorm.DB) *GormPlanRepository {
	return &GormPlanRepository{db: db}
}

// FindByCode returns a plan with its entitlements
func (r *GormPlanRepository) FindByCode(ctx context.Context, code billing.PlanCode) (*billing.Plan, error) {
	var model models.PlanModel
	err := r.db.WithContext(ctx).Preload("Entitlements").First(&model, "code = ?", code).Error
	if err != nil {
		return nil, translateError(err)
	}
	plan, err := model.ToDomain()
	if err != nil {
		return nil, fmt.Errorf("decode plan %s: %w", code, err)
	}
	return plan, nil
}

// List returns every plan ordered by rank
func (r *GormPlanRepository) List(ctx context.Context) (billing.PlanCatalog, error) {
	var rows []models.PlanModel
	if err := r.db.WithContext(ctx).Preload("Entitlements").Order("rank ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	catalog := make(billing.PlanCatalog, 0, len(rows))
	for i := range rows {
		plan, err := rows[i].ToDomain()
		if err != nil {
			return nil, fmt.Errorf("decode plan %s: %w", rows[i].Code, err)
		}
		catalog = append(catalog, *plan)
	}
	return catalog, nil
}

// Upsert creates or replaces a plan and all of its entitlements
func (r *GormPlanRepository) Upsert(ctx context.Context, plan *billing.Plan) error {
	model := &models.PlanModel{}
	if err := model.FromDomain(plan); err != nil {
		return fmt.Errorf("encode plan %s: %w", plan.Code, err)
	}
	now := time.Now().UTC()
	model.CreatedAt = now
	model.UpdatedAt = now
	entitlements := model.Entitlements
	model.Entitlements = nil

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "price_monthly", "price_yearly", "rank", "features", "updated_at"}),
		}).Create(model).Error
		if err != nil {
			return err
		}
		if err := tx.Where("plan_code = ?", plan.Code).Delete(&models.PlanEntitlementModel{}).Error; err != nil {
			return err
		}
		if len(entitlements) == 0 {
			return nil
		}
		return tx.Create(&entitlements).Error
	})
}

var _ billing.PlanRepository = (*GormPlanRepository)(nil)
