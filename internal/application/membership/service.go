// Package membership manages direct collaborators and accounting-firm
// assignments of a tenant.
package membership

import (
	"context"
	"errors"
	"fmt"

	appaudit "github.com/bizcore/backend/internal/application/audit"
	"github.com/bizcore/backend/internal/application/entitlement"
	"github.com/bizcore/backend/internal/application/subscription"
	"github.com/bizcore/backend/internal/application/unitofwork"
	"github.com/bizcore/backend/internal/domain/audit"
	"github.com/bizcore/backend/internal/domain/identity"
	"github.com/bizcore/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Entitlements is the part of the entitlement service used here
type Entitlements interface {
	RequireIn(ctx context.Context, repos unitofwork.Repositories, tenantID uuid.UUID, action entitlement.Action) (*entitlement.Decision, error)
	AuditDenial(ctx context.Context, tenantID uuid.UUID, d *entitlement.Decision)
}

// Service manages memberships
type Service struct {
	repos        unitofwork.Repositories
	txScope      unitofwork.TransactionScope
	entitlements Entitlements
	sink         *appaudit.Sink
	invalidator  subscription.Invalidator
	logger       *zap.Logger
}

// NewService creates a membership service. invalidator may be nil.
func NewService(
	repos unitofwork.Repositories,
	txScope unitofwork.TransactionScope,
	entitlements Entitlements,
	sink *appaudit.Sink,
	invalidator subscription.Invalidator,
	logger *zap.Logger,
) *Service {
	return &Service{
		repos:        repos,
		txScope:      txScope,
		entitlements: entitlements,
		sink:         sink,
		invalidator:  invalidator,
		logger:       logger,
	}
}

// List returns every membership of the tenant
func (s *Service) List(ctx context.Context, tenantID uuid.UUID) ([]identity.CompanyMember, error) {
	return s.repos.Members().ListByTenant(ctx, tenantID)
}

// AddCollaboratorInput describes a new member
type AddCollaboratorInput struct {
	UserID uuid.UUID
	Role   identity.Role
}

// AddCollaborator inserts the membership and its audit row atomically. The
// seat entitlement is checked in the same transaction after the duplicate
// check, so a rejected add never spends a seat credit. If the audit write
// fails, no membership is created.
func (s *Service) AddCollaborator(ctx context.Context, sc *identity.SecurityContext, in AddCollaboratorInput) (*identity.CompanyMember, error) {
	if in.Role == identity.RoleOwner {
		return nil, shared.ErrInvalidInput.WithMessage("a company has exactly one owner")
	}
	member, err := identity.NewCompanyMember(sc.TenantID, in.UserID, in.Role)
	if err != nil {
		return nil, err
	}

	var denied *entitlement.Decision
	err = s.txScope.Execute(ctx, func(repos unitofwork.Repositories) error {
		existing, err := repos.Members().FindByUser(ctx, sc.TenantID, in.UserID)
		switch {
		case err == nil && existing.IsActive():
			return shared.ErrAlreadyExists.WithMessage("user is already a member")
		case err != nil && !errors.Is(err, shared.ErrNotFound):
			return fmt.Errorf("find member: %w", err)
		}

		if d, err := s.entitlements.RequireIn(ctx, repos, sc.TenantID, entitlement.ActionAddCollaborator); err != nil {
			denied = d
			return err
		}

		if existing != nil {
			// Reactivate the previous row; memberships are unique per user
			before := memberSnapshot(existing)
			existing.Role = in.Role
			existing.Status = identity.MemberStatusActive
			existing.Touch()
			if err := repos.Members().Update(ctx, existing); err != nil {
				return fmt.Errorf("reactivate member: %w", err)
			}
			member = existing
			entry := audit.NewEntry(sc, audit.ActionMemberAdded, audit.EntityMember, member.ID.String()).
				WithChange(before, memberSnapshot(member))
			return s.sink.Log(ctx, repos.Audit(), entry)
		}

		if err := repos.Members().Create(ctx, member); err != nil {
			return fmt.Errorf("create member: %w", err)
		}
		entry := audit.NewEntry(sc, audit.ActionMemberAdded, audit.EntityMember, member.ID.String()).
			WithChange(nil, memberSnapshot(member))
		return s.sink.Log(ctx, repos.Audit(), entry)
	})
	if err != nil {
		s.entitlements.AuditDenial(ctx, sc.TenantID, denied)
		return nil, err
	}

	s.invalidate(ctx, sc.TenantID)
	s.logger.Info("Collaborator added",
		zap.String("tenant_id", sc.TenantID.String()),
		zap.String("member_id", member.ID.String()),
		zap.String("role", string(member.Role)))
	return member, nil
}

// Remove marks a membership REMOVED and audits it in the same transaction
func (s *Service) Remove(ctx context.Context, sc *identity.SecurityContext, memberID uuid.UUID) error {
	err := s.txScope.Execute(ctx, func(repos unitofwork.Repositories) error {
		member, err := repos.Members().FindByID(ctx, sc.TenantID, memberID)
		if err != nil {
			return err
		}
		before := memberSnapshot(member)
		if err := member.Remove(); err != nil {
			return err
		}
		if err := repos.Members().Update(ctx, member); err != nil {
			return fmt.Errorf("update member: %w", err)
		}
		entry := audit.NewEntry(sc, audit.ActionMemberRemoved, audit.EntityMember, member.ID.String()).
			WithChange(before, memberSnapshot(member))
		return s.sink.Log(ctx, repos.Audit(), entry)
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, sc.TenantID)
	return nil
}

// AssignAccountantFirm grants an accounting firm delegated access. The
// accountant entitlement is checked inside the transaction, after the
// already-assigned check.
func (s *Service) AssignAccountantFirm(ctx context.Context, sc *identity.SecurityContext, firmID uuid.UUID) (*identity.FirmAssignment, error) {
	assignment, err := identity.NewFirmAssignment(sc.TenantID, firmID)
	if err != nil {
		return nil, err
	}

	var denied *entitlement.Decision
	err = s.txScope.Execute(ctx, func(repos unitofwork.Repositories) error {
		existing, err := repos.Delegations().FindAssignment(ctx, sc.TenantID, firmID)
		if err == nil && existing.Status == identity.AssignmentStatusActive {
			return shared.ErrAlreadyExists.WithMessage("firm is already assigned")
		}
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("find assignment: %w", err)
		}
		if d, err := s.entitlements.RequireIn(ctx, repos, sc.TenantID, entitlement.ActionAssignAccountant); err != nil {
			denied = d
			return err
		}
		if err := repos.Delegations().CreateAssignment(ctx, assignment); err != nil {
			return fmt.Errorf("create assignment: %w", err)
		}
		entry := audit.NewEntry(sc, audit.ActionAccountantAssigned, audit.EntityAssignment, assignment.ID.String()).
			WithChange(nil, map[string]any{"firm_id": firmID, "status": assignment.Status})
		return s.sink.Log(ctx, repos.Audit(), entry)
	})
	if err != nil {
		s.entitlements.AuditDenial(ctx, sc.TenantID, denied)
		return nil, err
	}
	s.invalidate(ctx, sc.TenantID)
	return assignment, nil
}

func (s *Service) invalidate(ctx context.Context, tenantID uuid.UUID) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, tenantID)
	}
}

func memberSnapshot(m *identity.CompanyMember) map[string]any {
	return map[string]any{
		"user_id": m.UserID,
		"role":    m.Role,
		"status":  m.Status,
	}
}
