package handler

import (
	"github.com/bizcore/backend/internal/application/planstate"
	"github.com/bizcore/backend/internal/application/subscription"
	"github.com/bizcore/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// PlanHandler serves the plan catalog and the caller's plan state
type PlanHandler struct {
	BaseHandler
	subscriptions *subscription.Service
	engine        *planstate.Engine
}

// NewPlanHandler creates a new plan handler
func NewPlanHandler(subscriptions *subscription.Service, engine *planstate.Engine) *PlanHandler {
	return &PlanHandler{subscriptions: subscriptions, engine: engine}
}

// ListPlans returns every plan with prices and limits. Public.
// GET /api/v1/plans
func (h *PlanHandler) ListPlans(c *gin.Context) {
	catalog, err := h.subscriptions.Catalog(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToPlanViews(catalog))
}

// GetPlanState returns the cached plan state of the caller's tenant
// GET /api/v1/tenant/plan-state
func (h *PlanHandler) GetPlanState(c *gin.Context) {
	sc, ok := h.SecurityContext(c)
	if !ok {
		return
	}
	st, err := h.engine.GetPlanState(c.Request.Context(), sc.TenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, st)
}

// RefreshPlanState derives the plan state again and replaces the cached copy
// POST /api/v1/tenant/plan-state/refresh
func (h *PlanHandler) RefreshPlanState(c *gin.Context) {
	sc, ok := h.SecurityContext(c)
	if !ok {
		return
	}
	st, err := h.engine.Refresh(c.Request.Context(), sc.TenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, st)
}
