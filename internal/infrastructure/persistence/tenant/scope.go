// Package tenant provides tenant scoping for GORM queries.
//
// Every tenant-owned table carries a tenant_id column. Repositories apply
// Scope on every read and conditional write so that one tenant's rows are
// never visible through another tenant's identifiers.
//
// Usage:
//
//	db.WithContext(ctx).Scopes(tenant.Scope(tenantID)).Find(&members)
package tenant

import (
	"context"
	"errors"

	"github.com/bizcore/backend/internal/domain/identity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrTenantIDRequired is returned when a scoped query has no tenant
var ErrTenantIDRequired = errors.New("tenant_id is required")

// Scope filters a query by tenant_id. A nil tenant makes the query fail
// instead of silently matching nothing.
func Scope(tenantID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if tenantID == uuid.Nil {
			_ = db.AddError(ErrTenantIDRequired)
			return db
		}
		return db.Where("tenant_id = ?", tenantID)
	}
}

// FromContext scopes db to the tenant of the request's security context
func FromContext(ctx context.Context, db *gorm.DB) *gorm.DB {
	scoped := db.WithContext(ctx)
	sc, ok := identity.SecurityContextFrom(ctx)
	if !ok {
		_ = scoped.AddError(ErrTenantIDRequired)
		return scoped
	}
	return scoped.Scopes(Scope(sc.TenantID))
}
