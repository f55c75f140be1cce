package handler

import (
	"github.com/bizcore/backend/internal/application/subscription"
	"github.com/bizcore/backend/internal/application/tenancy"
	"github.com/bizcore/backend/internal/domain/billing"
	"github.com/bizcore/backend/internal/domain/identity"
	"github.com/bizcore/backend/internal/domain/shared"
	"github.com/bizcore/backend/internal/interfaces/http/dto"
	"github.com/bizcore/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TenantHandler handles onboarding, company settings and the subscription
type TenantHandler struct {
	BaseHandler
	tenancy       *tenancy.Service
	subscriptions *subscription.Service
}

// NewTenantHandler creates a new tenant handler
func NewTenantHandler(tenancySvc *tenancy.Service, subscriptions *subscription.Service) *TenantHandler {
	return &TenantHandler{tenancy: tenancySvc, subscriptions: subscriptions}
}

// CreateTenant onboards a company owned by the authenticated user. It runs
// without a tenant context.
// POST /api/v1/tenants
func (h *TenantHandler) CreateTenant(c *gin.Context) {
	userID, err := uuid.Parse(middleware.GetJWTUserID(c))
	if err != nil {
		h.HandleError(c, shared.ErrUnauthorized.WithMessage("Authentication required"))
		return
	}
	var req dto.CreateTenantRequest
	if !h.BindJSON(c, &req) {
		return
	}

	onboarded, err := h.tenancy.CreateTenant(c.Request.Context(), userID, req.Name)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.OnboardingView{
		Company:      dto.ToCompanyView(onboarded.Company),
		Owner:        dto.ToMemberView(onboarded.Owner),
		Subscription: dto.ToSubscriptionView(onboarded.Subscription),
	})
}

// GetSettings returns the caller's company
// GET /api/v1/tenant/settings
func (h *TenantHandler) GetSettings(c *gin.Context) {
	sc, ok := h.SecurityContext(c)
	if !ok {
		return
	}
	company, err := h.tenancy.GetCompany(c.Request.Context(), sc.TenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToCompanyView(company))
}

// UpdateSettings replaces the company settings
// PUT /api/v1/tenant/settings
func (h *TenantHandler) UpdateSettings(c *gin.Context) {
	sc, ok := h.SecurityContext(c)
	if !ok {
		return
	}
	var req dto.UpdateSettingsRequest
	if !h.BindJSON(c, &req) {
		return
	}

	company, err := h.tenancy.UpdateSettings(c.Request.Context(), sc, identity.CompanySettings{
		Currency:      req.Currency,
		Timezone:      req.Timezone,
		Locale:        req.Locale,
		InvoicePrefix: req.InvoicePrefix,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToCompanyView(company))
}

// SetRecurringBilling switches recurring invoicing on or off
// PUT /api/v1/tenant/recurring-billing
func (h *TenantHandler) SetRecurringBilling(c *gin.Context) {
	sc, ok := h.SecurityContext(c)
	if !ok {
		return
	}
	var req dto.RecurringBillingRequest
	if !h.BindJSON(c, &req) {
		return
	}

	company, err := h.tenancy.SetRecurringBilling(c.Request.Context(), sc, *req.Enabled)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToCompanyView(company))
}

// GetSubscription returns the tenant's authoritative subscription
// GET /api/v1/tenant/subscription
func (h *TenantHandler) GetSubscription(c *gin.Context) {
	sc, ok := h.SecurityContext(c)
	if !ok {
		return
	}
	sub, err := h.subscriptions.ResolveOrProvision(c.Request.Context(), sc.TenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToSubscriptionView(sub))
}

// ApplyBillingEvent records a payment or plan lifecycle event
// POST /api/v1/tenant/subscription/events
func (h *TenantHandler) ApplyBillingEvent(c *gin.Context) {
	sc, ok := h.SecurityContext(c)
	if !ok {
		return
	}
	var req dto.BillingEventRequest
	if !h.BindJSON(c, &req) {
		return
	}

	event := subscription.BillingEvent{
		Type:     subscription.EventType(req.Type),
		PlanCode: billing.PlanCode(req.PlanCode),
	}
	if req.PaidUntil != nil {
		event.PaidUntil = req.PaidUntil.UTC()
	}
	sub, err := h.subscriptions.ApplyBillingEvent(c.Request.Context(), sc.TenantID, event)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToSubscriptionView(sub))
}
