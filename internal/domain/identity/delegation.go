package identity

import (
	"github.com/bizcore/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// AssignmentStatus is the status of a firm-to-company assignment
type AssignmentStatus string

const (
	AssignmentStatusActive  AssignmentStatus = "ACTIVE"
	AssignmentStatusRevoked AssignmentStatus = "REVOKED"
)

// FirmMember is a user of an accounting firm
type FirmMember struct {
	shared.BaseEntity
	FirmID uuid.UUID
	UserID uuid.UUID
	Role   Role
	Status MemberStatus
}

// FirmAssignment grants an accounting firm delegated access to a company.
// Delegated access never consumes a seat.
type FirmAssignment struct {
	shared.TenantEntity
	FirmID uuid.UUID
	Status AssignmentStatus
}

// NewFirmAssignment creates an active assignment
func NewFirmAssignment(tenantID, firmID uuid.UUID) (*FirmAssignment, error) {
	if tenantID == uuid.Nil || firmID == uuid.Nil {
		return nil, shared.ErrInvalidInput.WithMessage("tenant and firm are required")
	}
	return &FirmAssignment{
		TenantEntity: shared.NewTenantEntity(tenantID),
		FirmID:       firmID,
		Status:       AssignmentStatusActive,
	}, nil
}

// DelegatedAccess is the result of joining a firm member with an active assignment
type DelegatedAccess struct {
	FirmID uuid.UUID
	Role   Role
}
