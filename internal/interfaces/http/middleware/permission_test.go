package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bizcore/backend/internal/domain/identity"
	"github.com/bizcore/backend/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRequireAction(t *testing.T) {
	tests := []struct {
		name   string
		role   identity.Role
		action identity.Action
		status int
	}{
		{"owner manages plan", identity.RoleOwner, identity.ActionPlanManage, http.StatusOK},
		{"admin cannot manage plan", identity.RoleAdmin, identity.ActionPlanManage, http.StatusForbidden},
		{"viewer reads invoices", identity.RoleViewer, identity.ActionInvoiceRead, http.StatusOK},
		{"viewer cannot write invoices", identity.RoleViewer, identity.ActionInvoiceWrite, http.StatusForbidden},
		{"accountant exports reports", identity.RoleAccountant, identity.ActionReportExport, http.StatusOK},
		{"accountant cannot cancel invoices", identity.RoleAccountant, identity.ActionInvoiceCancel, http.StatusForbidden},
		{"supervisor views audit log", identity.RoleSupervisor, identity.ActionAuditLogView, http.StatusOK},
		{"collaborator cannot manage users", identity.RoleCollaborator, identity.ActionUserManage, http.StatusForbidden},
		{"unknown action denied", identity.RoleOwner, identity.Action("SELF_DESTRUCT"), http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := &identity.SecurityContext{TenantID: uuid.New(), UserID: uuid.New(), Role: tt.role}
			r := gin.New()
			r.GET("/test", withSecurityContext(sc), RequireAction(tt.action), ok)

			rec := serve(r, httptest.NewRequest(http.MethodGet, "/test", nil))

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusForbidden {
				resp := decodeError(t, rec)
				assert.Equal(t, shared.CodeInsufficientPermission, resp.Error)
				assert.Nil(t, resp.CTA)
			}
		})
	}
}

func TestRequireAction_MissingSecurityContext(t *testing.T) {
	reached := false
	r := gin.New()
	r.GET("/test", RequireAction(identity.ActionInvoiceRead), func(c *gin.Context) {
		reached = true
		ok(c)
	})

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, shared.CodeSecurityContextMissing, decodeError(t, rec).Error)
	assert.False(t, reached)
}
