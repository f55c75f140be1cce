package tenancy

import (
	"context"
	"fmt"

	"github.com/bizcore/backend/internal/application/unitofwork"
	"github.com/bizcore/backend/internal/domain/audit"
	"github.com/bizcore/backend/internal/domain/identity"
	"github.com/google/uuid"
)

// GetCompany returns the caller's company
func (s *Service) GetCompany(ctx context.Context, tenantID uuid.UUID) (*identity.Company, error) {
	return s.repos.Companies().FindByID(ctx, tenantID)
}

// UpdateSettings replaces the company settings, auditing before and after
// in the same transaction.
func (s *Service) UpdateSettings(ctx context.Context, sc *identity.SecurityContext, settings identity.CompanySettings) (*identity.Company, error) {
	var updated *identity.Company
	err := s.txScope.Execute(ctx, func(repos unitofwork.Repositories) error {
		company, err := repos.Companies().FindByID(ctx, sc.TenantID)
		if err != nil {
			return err
		}
		before, err := company.UpdateSettings(settings)
		if err != nil {
			return err
		}
		if err := repos.Companies().SaveSettings(ctx, company); err != nil {
			return fmt.Errorf("save settings: %w", err)
		}
		entry := audit.NewEntry(sc, audit.ActionSettingsUpdated, audit.EntityCompany, company.ID.String()).
			WithChange(before, company.Settings)
		if err := s.sink.Log(ctx, repos.Audit(), entry); err != nil {
			return err
		}
		updated = company
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
