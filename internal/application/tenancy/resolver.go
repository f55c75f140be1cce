// Package tenancy resolves the caller's security context and manages the
// tenant (company) itself.
package tenancy

import (
	"context"
	"errors"
	"fmt"

	"github.com/bizcore/backend/internal/application/unitofwork"
	"github.com/bizcore/backend/internal/domain/identity"
	"github.com/bizcore/backend/internal/domain/shared"
	"github.com/bizcore/backend/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Caller is the identity proven by the credential
type Caller struct {
	UserID uuid.UUID
	// TenantClaim is the raw tenant id claim; empty when absent
	TenantClaim            string
	ImpersonationSessionID *string
}

// ContextResolver turns a verified caller into a security context.
// It is the only producer of security contexts for live requests.
type ContextResolver struct {
	repos  unitofwork.Repositories
	logger *zap.Logger
}

// NewContextResolver creates a resolver
func NewContextResolver(repos unitofwork.Repositories, logger *zap.Logger) *ContextResolver {
	return &ContextResolver{repos: repos, logger: logger}
}

// Resolve derives the tenant exclusively from the credential claim and
// classifies the caller as a direct member or a delegated firm user.
// Store failures are returned wrapped and never retried.
func (r *ContextResolver) Resolve(ctx context.Context, caller Caller) (*identity.SecurityContext, error) {
	if caller.TenantClaim == "" {
		return nil, r.violation(caller, "credential carries no tenant claim")
	}
	tenantID, err := uuid.Parse(caller.TenantClaim)
	if err != nil || tenantID == uuid.Nil {
		return nil, r.violation(caller, "tenant claim is not a valid identifier")
	}

	exists, err := r.repos.Companies().Exists(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("check tenant: %w", err)
	}
	if !exists {
		return nil, shared.ErrNotFound.WithMessage("tenant not found")
	}

	sc := &identity.SecurityContext{
		TenantID:               tenantID,
		UserID:                 caller.UserID,
		ImpersonationSessionID: caller.ImpersonationSessionID,
	}

	member, err := r.repos.Members().FindActive(ctx, tenantID, caller.UserID)
	switch {
	case err == nil:
		sc.AccessType = identity.AccessTypeDirect
		sc.Role = member.Role
		return sc, nil
	case !errors.Is(err, shared.ErrNotFound):
		return nil, fmt.Errorf("find membership: %w", err)
	}

	delegated, err := r.repos.Delegations().FindDelegatedAccess(ctx, tenantID, caller.UserID)
	switch {
	case err == nil:
		firmID := delegated.FirmID
		sc.AccessType = identity.AccessTypeDelegated
		sc.Role = delegated.Role
		sc.FirmID = &firmID
		return sc, nil
	case !errors.Is(err, shared.ErrNotFound):
		return nil, fmt.Errorf("find delegated access: %w", err)
	}

	r.logger.Warn("Caller has no access to tenant",
		logger.SecurityEvent(),
		zap.String("tenant_id", tenantID.String()),
		zap.String("user_id", caller.UserID.String()))
	return nil, shared.ErrTenantViolation.WithMessage("no access to tenant")
}

func (r *ContextResolver) violation(caller Caller, reason string) error {
	r.logger.Warn("Tenant violation",
		logger.SecurityEvent(),
		zap.String("user_id", caller.UserID.String()),
		zap.String("reason", reason))
	return shared.ErrTenantViolation.WithMessage(reason)
}
