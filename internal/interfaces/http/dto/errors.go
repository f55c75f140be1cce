package dto

import (
	"errors"
	"net/http"

	"github.com/bizcore/backend/internal/domain/shared"
)

// HTTP-only error codes. Domain codes live in the shared package.
const (
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
	ErrCodeRouteNotFound   = "ROUTE_NOT_FOUND"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	shared.CodeValidation:   http.StatusBadRequest,
	shared.CodeUnauthorized: http.StatusUnauthorized,
	shared.CodeNotFound:     http.StatusNotFound,

	// Every gate denial is a 403 so clients branch on the code, not the status
	shared.CodeTenantViolation:        http.StatusForbidden,
	shared.CodeInsufficientPermission: http.StatusForbidden,
	shared.CodePlanBlocked:            http.StatusForbidden,
	shared.CodeEntitlementDenied:      http.StatusForbidden,

	shared.CodeAlreadyExists: http.StatusConflict,
	shared.CodeInvalidState:  http.StatusUnprocessableEntity,

	shared.CodeSecurityContextMissing: http.StatusInternalServerError,
	shared.CodeInternal:               http.StatusInternalServerError,

	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeRouteNotFound:   http.StatusNotFound,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes map to 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// ErrorResponse is the error payload of every endpoint.
// CTA is rendered as null when there is no corrective action.
type ErrorResponse struct {
	Error     string  `json:"error"`
	Status    int     `json:"status"`
	Reason    string  `json:"reason"`
	CTA       *string `json:"cta"`
	Details   any     `json:"details,omitempty"`
	RequestID string  `json:"request_id,omitempty"`
}

// ValidationDetail describes one invalid request field
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// NewErrorResponse creates an error payload for code
func NewErrorResponse(code, reason string) ErrorResponse {
	return ErrorResponse{
		Error:  code,
		Status: GetHTTPStatus(code),
		Reason: reason,
	}
}

// WithCTA sets the call to action; an empty value stays null
func (r ErrorResponse) WithCTA(cta string) ErrorResponse {
	if cta != "" {
		r.CTA = &cta
	}
	return r
}

// WithDetails attaches extra details
func (r ErrorResponse) WithDetails(details any) ErrorResponse {
	r.Details = details
	return r
}

// WithRequestID tags the payload with the request id
func (r ErrorResponse) WithRequestID(requestID string) ErrorResponse {
	r.RequestID = requestID
	return r
}

// NewValidationErrorResponse creates a VALIDATION_ERROR payload listing the
// offending fields
func NewValidationErrorResponse(reason string, details []ValidationDetail) ErrorResponse {
	resp := NewErrorResponse(shared.CodeValidation, reason)
	if len(details) > 0 {
		resp.Details = details
	}
	return resp
}

// FromError converts any error into a payload. Domain errors keep their code,
// message, CTA and details; anything else becomes an opaque INTERNAL_ERROR.
func FromError(err error) ErrorResponse {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return NewErrorResponse(domainErr.Code, domainErr.Message).
			WithCTA(domainErr.CTA).
			WithDetails(domainErr.Details)
	}
	return NewErrorResponse(shared.CodeInternal, "An unexpected error occurred")
}
