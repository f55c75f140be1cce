package identity

// Action is a protected high-level operation checked by the role gate
type Action string

const (
	ActionInvoiceRead            Action = "INVOICE_READ"
	ActionInvoiceWrite           Action = "INVOICE_WRITE"
	ActionInvoiceCancel          Action = "INVOICE_CANCEL"
	ActionUserManage             Action = "USER_MANAGE"
	ActionSettingsManage         Action = "SETTINGS_MANAGE"
	ActionAuditLogView           Action = "AUDIT_LOG_VIEW"
	ActionPlanView               Action = "PLAN_VIEW"
	ActionPlanManage             Action = "PLAN_MANAGE"
	ActionReportExport           Action = "REPORT_EXPORT"
	ActionRecurringBillingManage Action = "RECURRING_BILLING_MANAGE"
	ActionCreditView             Action = "CREDIT_VIEW"
)

var allRoles = []Role{
	RoleOwner, RoleAdmin, RoleFinance, RoleViewer, RoleCollaborator,
	RoleAccountant, RoleSupervisor,
}

// permissionMatrix lists, per action, every role allowed to perform it.
// Actions absent from the matrix are denied for everyone.
var permissionMatrix = map[Action][]Role{
	ActionInvoiceRead:            allRoles,
	ActionInvoiceWrite:           {RoleOwner, RoleAdmin, RoleFinance, RoleCollaborator, RoleAccountant, RoleSupervisor},
	ActionInvoiceCancel:          {RoleOwner, RoleAdmin, RoleFinance, RoleSupervisor},
	ActionUserManage:             {RoleOwner, RoleAdmin},
	ActionSettingsManage:         {RoleOwner, RoleAdmin},
	ActionAuditLogView:           {RoleOwner, RoleAdmin, RoleSupervisor},
	ActionPlanView:               allRoles,
	ActionPlanManage:             {RoleOwner},
	ActionReportExport:           {RoleOwner, RoleAdmin, RoleFinance, RoleAccountant, RoleSupervisor},
	ActionRecurringBillingManage: {RoleOwner, RoleAdmin, RoleFinance},
	ActionCreditView:             {RoleOwner, RoleAdmin, RoleFinance},
}

// IsAllowed reports whether role may perform action
func IsAllowed(role Role, action Action) bool {
	for _, r := range permissionMatrix[action] {
		if r == role {
			return true
		}
	}
	return false
}

// AllowedRoles returns a copy of the roles permitted for action
func AllowedRoles(action Action) []Role {
	roles := permissionMatrix[action]
	out := make([]Role, len(roles))
	copy(out, roles)
	return out
}
