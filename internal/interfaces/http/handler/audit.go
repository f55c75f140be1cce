package handler

import (
	appaudit "github.com/bizcore/backend/internal/application/audit"
	"github.com/bizcore/backend/internal/domain/audit"
	"github.com/bizcore/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// AuditHandler serves the audit timeline
type AuditHandler struct {
	BaseHandler
	sink *appaudit.Sink
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(sink *appaudit.Sink) *AuditHandler {
	return &AuditHandler{sink: sink}
}

// List returns the tenant's audit entries, newest first
// GET /api/v1/tenant/audit-logs
func (h *AuditHandler) List(c *gin.Context) {
	sc, ok := h.SecurityContext(c)
	if !ok {
		return
	}
	req := dto.AuditLogListRequest{ListRequest: dto.DefaultListRequest()}
	if !h.BindQuery(c, &req) {
		return
	}

	entries, total, err := h.sink.List(c.Request.Context(), sc.TenantID, audit.Query{
		Action:   audit.Action(req.Action),
		Since:    req.Since,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	views := make([]dto.AuditLogView, len(entries))
	for i := range entries {
		views[i] = dto.ToAuditLogView(&entries[i])
	}
	h.Success(c, dto.NewListResponse(views, total, req.Page, req.PageSize))
}
