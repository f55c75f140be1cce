package identity

import (
	"github.com/bizcore/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Role is a role in either the direct (company) or delegated (firm) vocabulary
type Role string

// Direct membership roles
const (
	RoleOwner        Role = "OWNER"
	RoleAdmin        Role = "ADMIN"
	RoleFinance      Role = "FINANCE"
	RoleViewer       Role = "VIEWER"
	RoleCollaborator Role = "COLLABORATOR"
)

// Delegated (accounting firm) roles
const (
	RoleAccountant Role = "ACCOUNTANT"
	RoleSupervisor Role = "SUPERVISOR"
)

// IsMemberRole reports whether r belongs to the direct membership vocabulary
func (r Role) IsMemberRole() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleFinance, RoleViewer, RoleCollaborator:
		return true
	}
	return false
}

// IsFirmRole reports whether r belongs to the delegated vocabulary
func (r Role) IsFirmRole() bool {
	return r == RoleAccountant || r == RoleSupervisor
}

// MemberStatus is the lifecycle status of a company membership
type MemberStatus string

const (
	MemberStatusActive    MemberStatus = "ACTIVE"
	MemberStatusInvited   MemberStatus = "INVITED"
	MemberStatusSuspended MemberStatus = "SUSPENDED"
	MemberStatusRemoved   MemberStatus = "REMOVED"
)

// CompanyMember is a direct-access relation between a user and a company.
// Only ACTIVE members consume a seat.
type CompanyMember struct {
	shared.TenantEntity
	UserID uuid.UUID
	Role   Role
	Status MemberStatus
}

// NewCompanyMember creates an active membership
func NewCompanyMember(tenantID, userID uuid.UUID, role Role) (*CompanyMember, error) {
	if tenantID == uuid.Nil || userID == uuid.Nil {
		return nil, shared.ErrInvalidInput.WithMessage("tenant and user are required")
	}
	if !role.IsMemberRole() {
		return nil, shared.ErrInvalidInput.WithMessage("invalid member role: " + string(role))
	}
	return &CompanyMember{
		TenantEntity: shared.NewTenantEntity(tenantID),
		UserID:       userID,
		Role:         role,
		Status:       MemberStatusActive,
	}, nil
}

// IsActive returns true if the membership grants access
func (m *CompanyMember) IsActive() bool {
	return m.Status == MemberStatusActive
}

// Remove marks the membership as removed. The owner cannot be removed.
func (m *CompanyMember) Remove() error {
	if m.Role == RoleOwner {
		return shared.ErrInvalidState.WithMessage("the company owner cannot be removed")
	}
	if m.Status == MemberStatusRemoved {
		return shared.ErrInvalidState.WithMessage("member is already removed")
	}
	m.Status = MemberStatusRemoved
	m.Touch()
	return nil
}
