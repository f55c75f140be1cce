package identity

import (
	"context"

	"github.com/google/uuid"
)

// AccessType tells whether the caller is a member or acts through a firm
type AccessType string

const (
	AccessTypeDirect    AccessType = "DIRECT"
	AccessTypeDelegated AccessType = "DELEGATED"
)

// ActorType classifies the actor recorded in the audit log
type ActorType string

const (
	ActorTypeUser       ActorType = "USER"
	ActorTypeAccountant ActorType = "ACCOUNTANT"
	ActorTypeSystem     ActorType = "SYSTEM"
)

// SecurityContext is the request-scoped identity produced by the tenant
// context resolver. Nothing else constructs one for a live request.
type SecurityContext struct {
	TenantID               uuid.UUID
	UserID                 uuid.UUID
	AccessType             AccessType
	Role                   Role
	FirmID                 *uuid.UUID
	ImpersonationSessionID *string
}

// ActorType returns the audit actor type for this context
func (s *SecurityContext) ActorType() ActorType {
	if s.AccessType == AccessTypeDelegated {
		return ActorTypeAccountant
	}
	return ActorTypeUser
}

// IsImpersonated returns true when the call runs under an impersonation session
func (s *SecurityContext) IsImpersonated() bool {
	return s.ImpersonationSessionID != nil && *s.ImpersonationSessionID != ""
}

type securityContextKey struct{}

// WithSecurityContext returns a context carrying sc
func WithSecurityContext(ctx context.Context, sc *SecurityContext) context.Context {
	return context.WithValue(ctx, securityContextKey{}, sc)
}

// SecurityContextFrom returns the security context carried by ctx
func SecurityContextFrom(ctx context.Context) (*SecurityContext, bool) {
	sc, ok := ctx.Value(securityContextKey{}).(*SecurityContext)
	return sc, ok && sc != nil
}
