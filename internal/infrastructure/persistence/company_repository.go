package persistence

import (
	"context"
	"time"

	"github.com/bizcore/backend/internal/domain/identity"
	"github.com/bizcore/backend/internal/domain/shared"
	"github.com/bizcore/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCompanyRepository implements identity.CompanyRepository using GORM
type GormCompanyRepository struct {
	db *gorm.DB
}

// NewGormCompanyRepository creates a new GormCompanyRepository
func NewGormCompanyRepository(db *gorm.DB) *GormCompanyRepository {
	return &GormCompanyRepository{db: db}
}

// FindByID finds a company by its ID
func (r *GormCompanyRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Company, error) {
	var model models.CompanyModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// Exists checks whether a company exists
func (r *GormCompanyRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.CompanyModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create inserts a new company
func (r *GormCompanyRepository) Create(ctx context.Context, company *identity.Company) error {
	model := &models.CompanyModel{}
	model.FromDomain(company)
	return translateError(r.db.WithContext(ctx).Create(model).Error)
}

// SaveSettings persists the company's settings and recurring billing flag.
// Name and owner are immutable.
func (r *GormCompanyRepository) SaveSettings(ctx context.Context, company *identity.Company) error {
	res := r.db.WithContext(ctx).Model(&models.CompanyModel{}).
		Where("id = ?", company.ID).
		Updates(map[string]any{
			"currency":          company.Settings.Currency,
			"timezone":          company.Settings.Timezone,
			"locale":            company.Settings.Locale,
			"invoice_prefix":    company.Settings.InvoicePrefix,
			"recurring_billing": company.RecurringBilling,
			"updated_at":        time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ identity.CompanyRepository = (*GormCompanyRepository)(nil)
