package identity

import (
	"context"

	"github.com/google/uuid"
)

// CompanyRepository persists companies
type CompanyRepository interface {
	// FindByID returns shared.ErrNotFound when the company does not exist
	FindByID(ctx context.Context, id uuid.UUID) (*Company, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	Create(ctx context.Context, company *Company) error
	SaveSettings(ctx context.Context, company *Company) error
}

// MemberRepository persists direct memberships
type MemberRepository interface {
	// FindActive returns shared.ErrNotFound unless an ACTIVE membership exists
	FindActive(ctx context.Context, tenantID, userID uuid.UUID) (*CompanyMember, error)
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*CompanyMember, error)
	FindByUser(ctx context.Context, tenantID, userID uuid.UUID) (*CompanyMember, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]CompanyMember, error)
	CountActive(ctx context.Context, tenantID uuid.UUID) (int64, error)
	Create(ctx context.Context, member *CompanyMember) error
	Update(ctx context.Context, member *CompanyMember) error
}

// DelegationRepository resolves accounting-firm access
type DelegationRepository interface {
	// FindDelegatedAccess joins firm members with ACTIVE assignments.
	// Returns shared.ErrNotFound when the user has no delegated access.
	FindDelegatedAccess(ctx context.Context, tenantID, userID uuid.UUID) (*DelegatedAccess, error)
	FindAssignment(ctx context.Context, tenantID, firmID uuid.UUID) (*FirmAssignment, error)
	CountActiveAssignments(ctx context.Context, tenantID uuid.UUID) (int64, error)
	CreateAssignment(ctx context.Context, assignment *FirmAssignment) error
	CreateFirmMember(ctx context.Context, member *FirmMember) error
}
