package tenancy

import (
	"context"
	"fmt"
	"time"

	appaudit "github.com/bizcore/backend/internal/application/audit"
	"github.com/bizcore/backend/internal/application/entitlement"
	"github.com/bizcore/backend/internal/application/unitofwork"
	"github.com/bizcore/backend/internal/domain/audit"
	"github.com/bizcore/backend/internal/domain/billing"
	"github.com/bizcore/backend/internal/domain/identity"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Entitlements is the part of the entitlement service used here
type Entitlements interface {
	RequireIn(ctx context.Context, repos unitofwork.Repositories, tenantID uuid.UUID, action entitlement.Action) (*entitlement.Decision, error)
	AuditDenial(ctx context.Context, tenantID uuid.UUID, d *entitlement.Decision)
}

// Service manages companies
type Service struct {
	repos        unitofwork.Repositories
	txScope      unitofwork.TransactionScope
	entitlements Entitlements
	sink         *appaudit.Sink
	logger       *zap.Logger
	now          func() time.Time
}

// NewService creates a tenancy service
func NewService(
	repos unitofwork.Repositories,
	txScope unitofwork.TransactionScope,
	entitlements Entitlements,
	sink *appaudit.Sink,
	logger *zap.Logger,
) *Service {
	return &Service{
		repos:        repos,
		txScope:      txScope,
		entitlements: entitlements,
		sink:         sink,
		logger:       logger,
		now:          time.Now,
	}
}

// Onboarded is the result of creating a tenant
type Onboarded struct {
	Company      *identity.Company
	Owner        *identity.CompanyMember
	Subscription *billing.Subscription
}

// CreateTenant creates the company, its owner membership, the entry plan
// subscription and both audit rows in one transaction.
func (s *Service) CreateTenant(ctx context.Context, ownerUserID uuid.UUID, name string) (*Onboarded, error) {
	company, err := identity.NewCompany(name, ownerUserID)
	if err != nil {
		return nil, err
	}
	owner, err := identity.NewCompanyMember(company.ID, ownerUserID, identity.RoleOwner)
	if err != nil {
		return nil, err
	}
	sub := billing.NewSubscription(company.ID, billing.DefaultPlanCode, s.now())

	sc := &identity.SecurityContext{
		TenantID:   company.ID,
		UserID:     ownerUserID,
		AccessType: identity.AccessTypeDirect,
		Role:       identity.RoleOwner,
	}

	err = s.txScope.Execute(ctx, func(repos unitofwork.Repositories) error {
		if err := repos.Companies().Create(ctx, company); err != nil {
			return fmt.Errorf("create company: %w", err)
		}
		if err := repos.Members().Create(ctx, owner); err != nil {
			return fmt.Errorf("create owner membership: %w", err)
		}
		if err := repos.Subscriptions().Create(ctx, sub); err != nil {
			return fmt.Errorf("create subscription: %w", err)
		}

		created := audit.NewEntry(sc, audit.ActionTenantCreated, audit.EntityCompany, company.ID.String()).
			WithChange(nil, map[string]any{"name": company.Name, "owner_user_id": ownerUserID})
		if err := s.sink.Log(ctx, repos.Audit(), created); err != nil {
			return err
		}
		subscribed := audit.NewEntry(sc, audit.ActionSubscriptionCreated, audit.EntitySubscription, sub.ID.String()).
			WithChange(nil, map[string]any{"plan_code": sub.PlanCode, "status": sub.Status})
		return s.sink.Log(ctx, repos.Audit(), subscribed)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Tenant created",
		zap.String("tenant_id", company.ID.String()),
		zap.String("owner_user_id", ownerUserID.String()))
	return &Onboarded{Company: company, Owner: owner, Subscription: sub}, nil
}
