package persistence

import (
	"context"
	"time"

	"github.com/bizcore/backend/internal/domain/invoicing"
	"github.com/bizcore/backend/internal/domain/shared"
	"github.com/bizcore/backend/internal/infrastructure/persistence/models"
	"github.com/bizcore/backend/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormInvoiceRepository implements invoicing.Repository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// Create inserts an invoice
func (r *GormInvoiceRepository) Create(ctx context.Context, inv *invoicing.Invoice) error {
	model := &models.InvoiceModel{}
	model.FromDomain(inv)
	return translateError(r.db.WithContext(ctx).Create(model).Error)
}

// Update persists the status change of an invoice
func (r *GormInvoiceRepository) Update(ctx context.Context, inv *invoicing.Invoice) error {
	updatedAt := inv.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	res := r.db.WithContext(ctx).Scopes(tenant.Scope(inv.TenantID)).
		Model(&models.InvoiceModel{}).
		Where("id = ?", inv.ID).
		Updates(map[string]any{
			"status":       inv.Status,
			"cancelled_at": inv.CancelledAt,
			"updated_at":   updatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindByID finds an invoice within the tenant
func (r *GormInvoiceRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*invoicing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).Scopes(tenant.Scope(tenantID)).Where("id = ?", id).First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// List returns one page of the tenant's invoices, newest first
func (r *GormInvoiceRepository) List(ctx context.Context, tenantID uuid.UUID, page, pageSize int) ([]invoicing.Invoice, int64, error) {
	scoped := func() *gorm.DB {
		return r.db.WithContext(ctx).Scopes(tenant.Scope(tenantID)).Model(&models.InvoiceModel{})
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.InvoiceModel
	err := scoped().Order("issued_at DESC, id ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	invoices := make([]invoicing.Invoice, len(rows))
	for i := range rows {
		invoices[i] = *rows[i].ToDomain()
	}
	return invoices, total, nil
}

var _ invoicing.Repository = (*GormInvoiceRepository)(nil)
