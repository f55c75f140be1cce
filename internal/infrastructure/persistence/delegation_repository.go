package persistence

import (
	"context"

	"github.com/bizcore/backend/internal/domain/identity"
	"github.com/bizcore/backend/internal/domain/shared"
	"github.com/bizcore/backend/internal/infrastructure/persistence/models"
	"github.com/bizcore/backend/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormDelegationRepository implements identity.DelegationRepository using GORM
type GormDelegationRepository struct {
	db *gorm.DB
}

// NewGormDelegationRepository creates a new GormDelegationRepository
func NewGormDelegationRepository(db *gorm.DB) *GormDelegationRepository {
	return &GormDelegationRepository{db: db}
}

// FindDelegatedAccess resolves the user's access to the tenant through an
// ACTIVE firm membership joined with an ACTIVE assignment.
func (r *GormDelegationRepository) FindDelegatedAccess(ctx context.Context, tenantID, userID uuid.UUID) (*identity.DelegatedAccess, error) {
	var row struct {
		FirmID uuid.UUID
		Role   identity.Role
	}
	res := r.db.WithContext(ctx).
		Table("firm_members AS fm").
		Select("fm.firm_id, fm.role").
		Joins("JOIN firm_assignments fa ON fa.firm_id = fm.firm_id").
		Where("fm.user_id = ? AND fm.status = ?", userID, identity.MemberStatusActive).
		Where("fa.tenant_id = ? AND fa.status = ?", tenantID, identity.AssignmentStatusActive).
		Order("fm.created_at ASC").
		Limit(1).
		Scan(&row)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, shared.ErrNotFound
	}
	return &identity.DelegatedAccess{FirmID: row.FirmID, Role: row.Role}, nil
}

// FindAssignment returns the most recent assignment of firmID to the tenant
func (r *GormDelegationRepository) FindAssignment(ctx context.Context, tenantID, firmID uuid.UUID) (*identity.FirmAssignment, error) {
	var model models.FirmAssignmentModel
	err := r.db.WithContext(ctx).Scopes(tenant.Scope(tenantID)).
		Where("firm_id = ?", firmID).
		Order("created_at DESC").
		First(&model).Error
	if err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// CountActiveAssignments counts firms with ACTIVE access to the tenant
func (r *GormDelegationRepository) CountActiveAssignments(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Scopes(tenant.Scope(tenantID)).
		Model(&models.FirmAssignmentModel{}).
		Where("status = ?", identity.AssignmentStatusActive).
		Count(&count).Error
	return count, err
}

// CreateAssignment inserts a firm assignment
func (r *GormDelegationRepository) CreateAssignment(ctx context.Context, assignment *identity.FirmAssignment) error {
	model := &models.FirmAssignmentModel{}
	model.FromDomain(assignment)
	return translateError(r.db.WithContext(ctx).Create(model).Error)
}

// CreateFirmMember inserts a firm member
func (r *GormDelegationRepository) CreateFirmMember(ctx context.Context, member *identity.FirmMember) error {
	model := &models.FirmMemberModel{}
	model.FromDomain(member)
	return translateError(r.db.WithContext(ctx).Create(model).Error)
}

var _ identity.DelegationRepository = (*GormDelegationRepository)(nil)
