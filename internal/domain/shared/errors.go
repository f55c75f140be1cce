package shared

// DomainError represents a domain-level error.
// CTA carries the corrective action a caller can take, when one exists.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	CTA     string `json:"cta,omitempty"`
	Details any    `json:"details,omitempty"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target carries the same code, so that errors.Is works
// against the sentinel values below even when the message differs.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithMessage returns a copy of the error with a different message
func (e *DomainError) WithMessage(message string) *DomainError {
	cp := *e
	cp.Message = message
	return &cp
}

// WithCTA returns a copy of the error carrying a call to action
func (e *DomainError) WithCTA(cta string) *DomainError {
	cp := *e
	cp.CTA = cta
	return &cp
}

// WithDetails returns a copy of the error carrying extra details
func (e *DomainError) WithDetails(details any) *DomainError {
	cp := *e
	cp.Details = details
	return &cp
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes shared by the domain and the HTTP layer
const (
	CodeNotFound               = "NOT_FOUND"
	CodeAlreadyExists          = "ALREADY_EXISTS"
	CodeValidation             = "VALIDATION_ERROR"
	CodeUnauthorized           = "UNAUTHORIZED"
	CodeInvalidState           = "INVALID_STATE"
	CodeTenantViolation        = "TENANT_VIOLATION"
	CodeInsufficientPermission = "INSUFFICIENT_PERMISSIONS"
	CodeSecurityContextMissing = "SECURITY_CONTEXT_MISSING"
	CodePlanBlocked            = "PLAN_BLOCKED"
	CodeEntitlementDenied      = "ENTITLEMENT_DENIED"
	CodeInternal               = "INTERNAL_ERROR"
)

// Common domain errors
var (
	ErrNotFound               = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists          = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrInvalidInput           = NewDomainError(CodeValidation, "Invalid input provided")
	ErrUnauthorized           = NewDomainError(CodeUnauthorized, "Not authorized to perform this action")
	ErrInvalidState           = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrTenantViolation        = NewDomainError(CodeTenantViolation, "Tenant must only be derived from the credential")
	ErrInsufficientPermission = NewDomainError(CodeInsufficientPermission, "Role is not permitted to perform this action")
	ErrSecurityContextMissing = NewDomainError(CodeSecurityContextMissing, "Security context was not resolved")
	ErrPlanBlocked            = NewDomainError(CodePlanBlocked, "Plan does not allow this action")
	ErrEntitlementDenied      = NewDomainError(CodeEntitlementDenied, "Entitlement denied")
	ErrInternal               = NewDomainError(CodeInternal, "Internal error")
)
