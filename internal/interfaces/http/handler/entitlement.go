package handler

import (
	"time"

	"github.com/bizcore/backend/internal/application/credit"
	"github.com/bizcore/backend/internal/application/entitlement"
	"github.com/bizcore/backend/internal/domain/billing"
	"github.com/bizcore/backend/internal/domain/shared"
	"github.com/bizcore/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// EntitlementHandler answers entitlement probes and manages credits
type EntitlementHandler struct {
	BaseHandler
	entitlements *entitlement.Service
	ledger       *credit.LedgerService
}

// NewEntitlementHandler creates a new entitlement handler
func NewEntitlementHandler(entitlements *entitlement.Service, ledger *credit.LedgerService) *EntitlementHandler {
	return &EntitlementHandler{entitlements: entitlements, ledger: ledger}
}

// Probe reports whether the tenant may perform an action right now. It never
// consumes a credit and a denial is a 200 with allowed=false.
// GET /api/v1/tenant/entitlements/:action
func (h *EntitlementHandler) Probe(c *gin.Context) {
	sc, ok := h.SecurityContext(c)
	if !ok {
		return
	}
	action := entitlement.Action(c.Param("action"))
	if !entitlement.IsKnown(action) {
		h.HandleError(c, shared.ErrNotFound.WithMessage("unknown entitlement action: "+string(action)))
		return
	}

	decision, err := h.entitlements.CheckEntitlement(c.Request.Context(), sc.TenantID, action, entitlement.DryRun())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToDecisionView(decision))
}

// Credits returns the tenant's credit balance
// GET /api/v1/tenant/credits
func (h *EntitlementHandler) Credits(c *gin.Context) {
	sc, ok := h.SecurityContext(c)
	if !ok {
		return
	}
	balance, err := h.ledger.Balance(c.Request.Context(), sc.TenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToCreditBalanceView(balance))
}

// GrantCredit records a referral or incentive credit for a tenant. Only
// service credentials reach it, so the grant is audited as a system action.
// POST /api/v1/system/tenants/:tenant_id/credits
func (h *EntitlementHandler) GrantCredit(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Param("tenant_id"))
	if err != nil {
		h.HandleError(c, shared.ErrInvalidInput.WithMessage("tenant_id must be a UUID"))
		return
	}
	var req dto.GrantCreditRequest
	if !h.BindJSON(c, &req) {
		return
	}

	granted, err := h.ledger.Grant(c.Request.Context(), nil, credit.GrantInput{
		TenantID:   tenantID,
		CreditType: billing.CreditType(req.CreditType),
		Amount:     req.Amount,
		ValidFor:   time.Duration(req.ValidForDays) * 24 * time.Hour,
		Source:     req.Source,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.ToCreditView(granted))
}
