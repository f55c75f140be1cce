package handler

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"github.com/bizcore/backend/internal/application/invoicing"
	"github.com/bizcore/backend/internal/domain/shared"
	"github.com/bizcore/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// InvoiceHandler issues, cancels, lists and exports invoices
type InvoiceHandler struct {
	BaseHandler
	invoices *invoicing.Service
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(invoices *invoicing.Service) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices}
}

// Issue issues an invoice against the monthly invoice limit
// POST /api/v1/tenant/invoices
func (h *InvoiceHandler) Issue(c *gin.Context) {
	sc, ok := h.SecurityContext(c)
	if !ok {
		return
	}
	var req dto.IssueInvoiceRequest
	if !h.BindJSON(c, &req) {
		return
	}
	if !req.Amount.IsPositive() {
		h.HandleError(c, shared.ErrInvalidInput.WithMessage("amount must be positive"))
		return
	}

	inv, err := h.invoices.Issue(c.Request.Context(), sc, invoicing.IssueInput{
		CustomerName: req.CustomerName,
		Amount:       req.Amount,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.ToInvoiceView(inv))
}

// List returns a page of invoices, newest first
// GET /api/v1/tenant/invoices
func (h *InvoiceHandler) List(c *gin.Context) {
	sc, ok := h.SecurityContext(c)
	if !ok {
		return
	}
	req := dto.DefaultListRequest()
	if !h.BindQuery(c, &req) {
		return
	}

	items, total, err := h.invoices.List(c.Request.Context(), sc.TenantID, req.Page, req.PageSize)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	views := make([]dto.InvoiceView, len(items))
	for i := range items {
		views[i] = dto.ToInvoiceView(&items[i])
	}
	h.Success(c, dto.NewListResponse(views, total, req.Page, req.PageSize))
}

// Get returns one invoice
// GET /api/v1/tenant/invoices/:id
func (h *InvoiceHandler) Get(c *gin.Context) {
	sc, ok := h.SecurityContext(c)
	if !ok {
		return
	}
	id, ok := h.PathID(c)
	if !ok {
		return
	}
	inv, err := h.invoices.Get(c.Request.Context(), sc.TenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToInvoiceView(inv))
}

// Cancel cancels an issued invoice
// POST /api/v1/tenant/invoices/:id/cancel
func (h *InvoiceHandler) Cancel(c *gin.Context) {
	sc, ok := h.SecurityContext(c)
	if !ok {
		return
	}
	id, ok := h.PathID(c)
	if !ok {
		return
	}
	inv, err := h.invoices.Cancel(c.Request.Context(), sc, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToInvoiceView(inv))
}

// Export streams every invoice as CSV
// GET /api/v1/tenant/reports/invoices
func (h *InvoiceHandler) Export(c *gin.Context) {
	sc, ok := h.SecurityContext(c)
	if !ok {
		return
	}
	items, err := h.invoices.Export(c.Request.Context(), sc)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="invoices-%s.csv"`, time.Now().UTC().Format("20060102")))
	c.Status(http.StatusOK)
	c.Writer.Header().Set("Content-Type", "text/csv; charset=utf-8")

	w := csv.NewWriter(c.Writer)
	_ = w.Write([]string{"number", "customer_name", "amount", "currency", "status", "issued_at"})
	for i := range items {
		inv := &items[i]
		_ = w.Write([]string{
			inv.Number,
			inv.CustomerName,
			inv.Amount.StringFixed(2),
			inv.Currency,
			string(inv.Status),
			inv.IssuedAt.UTC().Format(time.RFC3339),
		})
	}
	w.Flush()
}
