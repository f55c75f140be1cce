package tenancy

import (
	"context"
	"fmt"

	"github.com/bizcore/backend/internal/application/entitlement"
	"github.com/bizcore/backend/internal/application/unitofwork"
	"github.com/bizcore/backend/internal/domain/audit"
	"github.com/bizcore/backend/internal/domain/identity"
	"go.uber.org/zap"
)

// SetRecurringBilling switches recurring invoicing for the caller's company.
// Turning it on needs the recurring billing feature of the current plan;
// turning it off is always allowed so a downgraded tenant can comply.
// A change and its audit row commit together; a no-op is not audited.
func (s *Service) SetRecurringBilling(ctx context.Context, sc *identity.SecurityContext, enabled bool) (*identity.Company, error) {
	var (
		updated *identity.Company
		denied  *entitlement.Decision
	)
	err := s.txScope.Execute(ctx, func(repos unitofwork.Repositories) error {
		company, err := repos.Companies().FindByID(ctx, sc.TenantID)
		if err != nil {
			return err
		}
		updated = company
		if company.RecurringBilling == enabled {
			return nil
		}
		if enabled {
			if d, err := s.entitlements.RequireIn(ctx, repos, sc.TenantID, entitlement.ActionEnableRecurringBilling); err != nil {
				denied = d
				return err
			}
		}

		previous := company.SetRecurringBilling(enabled)
		if err := repos.Companies().SaveSettings(ctx, company); err != nil {
			return fmt.Errorf("save recurring billing: %w", err)
		}
		entry := audit.NewEntry(sc, audit.ActionRecurringBilling, audit.EntityCompany, company.ID.String()).
			WithChange(map[string]any{"recurring_billing": previous}, map[string]any{"recurring_billing": enabled})
		return s.sink.Log(ctx, repos.Audit(), entry)
	})
	if err != nil {
		s.entitlements.AuditDenial(ctx, sc.TenantID, denied)
		return nil, err
	}

	s.logger.Info("Recurring billing updated",
		zap.String("tenant_id", sc.TenantID.String()),
		zap.Bool("enabled", enabled))
	return updated, nil
}
