package persistence

import (
	"context"
	"fmt"

	"github.com/bizcore/backend/internal/domain/audit"
	"github.com/bizcore/backend/internal/infrastructure/persistence/models"
	"github.com/bizcore/backend/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormAuditRepository implements audit.Repository using GORM.
// The audit log is append-only: there is no update or delete.
type GormAuditRepository struct {
	db *gorm.DB
}

// NewGormAuditRepository creates a new GormAuditRepository
func NewGormAuditRepository(db *gorm.DB) *GormAuditRepository {
	return &GormAuditRepository{db: db}
}

// Append inserts an entry
func (r *GormAuditRepository) Append(ctx context.Context, entry *audit.Entry) error {
	model := &models.AuditLogModel{}
	if err := model.FromDomain(entry); err != nil {
		return fmt.Errorf("encode audit snapshot: %w", err)
	}
	return translateError(r.db.WithContext(ctx).Create(model).Error)
}

// List returns one page of the tenant's entries, newest first
func (r *GormAuditRepository) List(ctx context.Context, tenantID uuid.UUID, q audit.Query) ([]audit.Entry, int64, error) {
	q.Normalize()
	filtered := func() *gorm.DB {
		query := r.db.WithContext(ctx).Scopes(tenant.Scope(tenantID)).Model(&models.AuditLogModel{})
		if q.Action != "" {
			query = query.Where("action = ?", q.Action)
		}
		if q.Since != nil {
			query = query.Where("created_at >= ?", q.Since.UTC())
		}
		return query
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.AuditLogModel
	err := filtered().Order("created_at DESC, id ASC").
		Offset((q.Page - 1) * q.PageSize).
		Limit(q.PageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	entries := make([]audit.Entry, len(rows))
	for i := range rows {
		entries[i] = *rows[i].ToDomain()
	}
	return entries, total, nil
}

var _ audit.Repository = (*GormAuditRepository)(nil)
