package handler

import (
	"github.com/bizcore/backend/internal/application/membership"
	"github.com/bizcore/backend/internal/domain/identity"
	"github.com/bizcore/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// MemberHandler manages company members and accountant firms
type MemberHandler struct {
	BaseHandler
	members *membership.Service
}

// NewMemberHandler creates a new member handler
func NewMemberHandler(members *membership.Service) *MemberHandler {
	return &MemberHandler{members: members}
}

// List returns every membership of the company
// GET /api/v1/tenant/members
func (h *MemberHandler) List(c *gin.Context) {
	sc, ok := h.SecurityContext(c)
	if !ok {
		return
	}
	members, err := h.members.List(c.Request.Context(), sc.TenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	views := make([]dto.MemberView, len(members))
	for i := range members {
		views[i] = dto.ToMemberView(&members[i])
	}
	h.Success(c, views)
}

// Add adds a collaborator, consuming a seat
// POST /api/v1/tenant/members
func (h *MemberHandler) Add(c *gin.Context) {
	sc, ok := h.SecurityContext(c)
	if !ok {
		return
	}
	var req dto.AddMemberRequest
	if !h.BindJSON(c, &req) {
		return
	}

	member, err := h.members.AddCollaborator(c.Request.Context(), sc, membership.AddCollaboratorInput{
		UserID: uuid.MustParse(req.UserID),
		Role:   identity.Role(req.Role),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.ToMemberView(member))
}

// Remove marks a membership as removed
// DELETE /api/v1/tenant/members/:id
func (h *MemberHandler) Remove(c *gin.Context) {
	sc, ok := h.SecurityContext(c)
	if !ok {
		return
	}
	id, ok := h.PathID(c)
	if !ok {
		return
	}
	if err := h.members.Remove(c.Request.Context(), sc, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// AssignAccountant gives an accounting firm delegated access
// POST /api/v1/tenant/accountants
func (h *MemberHandler) AssignAccountant(c *gin.Context) {
	sc, ok := h.SecurityContext(c)
	if !ok {
		return
	}
	var req dto.AssignAccountantRequest
	if !h.BindJSON(c, &req) {
		return
	}

	assignment, err := h.members.AssignAccountantFirm(c.Request.Context(), sc, uuid.MustParse(req.FirmID))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.ToAssignmentView(assignment))
}
