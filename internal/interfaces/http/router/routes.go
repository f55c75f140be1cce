package router

import (
	"github.com/bizcore/backend/internal/domain/identity"
	"github.com/bizcore/backend/internal/interfaces/http/handler"
	"github.com/bizcore/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers are the endpoint handlers mounted under /api/v1
type Handlers struct {
	Plan        *handler.PlanHandler
	Tenant      *handler.TenantHandler
	Member      *handler.MemberHandler
	Invoice     *handler.InvoiceHandler
	Entitlement *handler.EntitlementHandler
	Audit       *handler.AuditHandler
}

// Gate holds the request gate middlewares. Tenant routes run
// JWT -> Tenant -> role gate -> plan enforcement -> handler.
type Gate struct {
	JWT             gin.HandlerFunc
	Tenant          gin.HandlerFunc
	PlanEnforcement gin.HandlerFunc
	// Context runs after tenant resolution, before the role gate
	Context []gin.HandlerFunc
	Logger  *zap.Logger
}

func (g Gate) guarded(action identity.Action, h gin.HandlerFunc) []gin.HandlerFunc {
	return []gin.HandlerFunc{
		middleware.RequireActionWithConfig(middleware.PermissionConfig{Logger: g.Logger}, action),
		g.PlanEnforcement,
		h,
	}
}

// Groups builds the public, onboarding, tenant and system route groups
func Groups(h Handlers, g Gate) []RouteRegistrar {
	plans := NewDomainGroup("plans", "/plans").
		GET("", h.Plan.ListPlans)

	onboarding := NewDomainGroup("onboarding", "/tenants").
		Use(g.JWT, middleware.AuditRequestMeta()).
		POST("", h.Tenant.CreateTenant)

	tenant := NewDomainGroup("tenant", "/tenant").
		Use(g.JWT, g.Tenant, middleware.AuditRequestMeta()).
		Use(g.Context...)

	tenant.
		GET("/plan-state", g.guarded(identity.ActionPlanView, h.Plan.GetPlanState)...).
		POST("/plan-state/refresh", g.guarded(identity.ActionPlanView, h.Plan.RefreshPlanState)...).
		GET("/subscription", g.guarded(identity.ActionPlanView, h.Tenant.GetSubscription)...).
		POST("/subscription/events", g.guarded(identity.ActionPlanManage, h.Tenant.ApplyBillingEvent)...).
		GET("/settings", g.guarded(identity.ActionInvoiceRead, h.Tenant.GetSettings)...).
		PUT("/settings", g.guarded(identity.ActionSettingsManage, h.Tenant.UpdateSettings)...).
		PUT("/recurring-billing", g.guarded(identity.ActionRecurringBillingManage, h.Tenant.SetRecurringBilling)...)

	tenant.
		GET("/members", g.guarded(identity.ActionUserManage, h.Member.List)...).
		POST("/members", g.guarded(identity.ActionUserManage, h.Member.Add)...).
		DELETE("/members/:id", g.guarded(identity.ActionUserManage, h.Member.Remove)...).
		POST("/accountants", g.guarded(identity.ActionUserManage, h.Member.AssignAccountant)...)

	tenant.
		POST("/invoices", g.guarded(identity.ActionInvoiceWrite, h.Invoice.Issue)...).
		GET("/invoices", g.guarded(identity.ActionInvoiceRead, h.Invoice.List)...).
		GET("/invoices/:id", g.guarded(identity.ActionInvoiceRead, h.Invoice.Get)...).
		POST("/invoices/:id/cancel", g.guarded(identity.ActionInvoiceCancel, h.Invoice.Cancel)...).
		GET("/reports/invoices", g.guarded(identity.ActionReportExport, h.Invoice.Export)...)

	tenant.
		GET("/entitlements/:action", g.guarded(identity.ActionPlanView, h.Entitlement.Probe)...).
		GET("/credits", g.guarded(identity.ActionCreditView, h.Entitlement.Credits)...).
		GET("/audit-logs", g.guarded(identity.ActionAuditLogView, h.Audit.List)...)

	// Credits are granted by the referral and incentive collaborators, never
	// by the tenant itself
	system := NewDomainGroup("system", "/system").
		Use(g.JWT, middleware.RequireService(g.Logger), middleware.AuditRequestMeta()).
		POST("/tenants/:tenant_id/credits", h.Entitlement.GrantCredit)

	return []RouteRegistrar{plans, onboarding, tenant, system}
}
