package persistence

import (
	"context"
	"time"

	"github.com/bizcore/backend/internal/domain/identity"
	"github.com/bizcore/backend/internal/domain/shared"
	"github.com/bizcore/backend/internal/infrastructure/persistence/models"
	"github.com/bizcore/backend/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormMemberRepository implements identity.MemberRepository using GORM
type GormMemberRepository struct {
	db *gorm.DB
}

// NewGormMemberRepository creates a new GormMemberRepository
func NewGormMemberRepository(db *gorm.DB) *GormMemberRepository {
	return &GormMemberRepository{db: db}
}

func (r *GormMemberRepository) scoped(ctx context.Context, tenantID uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).Scopes(tenant.Scope(tenantID))
}

// FindActive returns the user's ACTIVE membership in the tenant
func (r *GormMemberRepository) FindActive(ctx context.Context, tenantID, userID uuid.UUID) (*identity.CompanyMember, error) {
	var model models.CompanyMemberModel
	err := r.scoped(ctx, tenantID).
		Where("user_id = ? AND status = ?", userID, identity.MemberStatusActive).
		First(&model).Error
	if err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByID finds a membership by ID within the tenant
func (r *GormMemberRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*identity.CompanyMember, error) {
	var model models.CompanyMemberModel
	if err := r.scoped(ctx, tenantID).Where("id = ?", id).First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByUser finds the user's membership in the tenant regardless of status
func (r *GormMemberRepository) FindByUser(ctx context.Context, tenantID, userID uuid.UUID) (*identity.CompanyMember, error) {
	var model models.CompanyMemberModel
	if err := r.scoped(ctx, tenantID).Where("user_id = ?", userID).First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// ListByTenant lists every membership of the tenant, oldest first
func (r *GormMemberRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]identity.CompanyMember, error) {
	var rows []models.CompanyMemberModel
	if err := r.scoped(ctx, tenantID).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	members := make([]identity.CompanyMember, len(rows))
	for i := range rows {
		members[i] = *rows[i].ToDomain()
	}
	return members, nil
}

// CountActive counts seats in use
func (r *GormMemberRepository) CountActive(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	err := r.scoped(ctx, tenantID).Model(&models.CompanyMemberModel{}).
		Where("status = ?", identity.MemberStatusActive).
		Count(&count).Error
	return count, err
}

// Create inserts a membership. A second membership for the same user in
// the same tenant is rejected with shared.ErrAlreadyExists.
func (r *GormMemberRepository) Create(ctx context.Context, member *identity.CompanyMember) error {
	model := &models.CompanyMemberModel{}
	model.FromDomain(member)
	return translateError(r.db.WithContext(ctx).Create(model).Error)
}

// Update persists role and status changes
func (r *GormMemberRepository) Update(ctx context.Context, member *identity.CompanyMember) error {
	updatedAt := member.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	res := r.scoped(ctx, member.TenantID).Model(&models.CompanyMemberModel{}).
		Where("id = ?", member.ID).
		Updates(map[string]any{
			"role":       member.Role,
			"status":     member.Status,
			"updated_at": updatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ identity.MemberRepository = (*GormMemberRepository)(nil)
