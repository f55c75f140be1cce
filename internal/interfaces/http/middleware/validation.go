package middleware

import (
	"errors"
	"reflect"
	"strings"

	"github.com/bizcore/backend/internal/domain/billing"
	"github.com/bizcore/backend/internal/domain/identity"
	"github.com/bizcore/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// SetupValidator names fields after their JSON (or form) tag in validation
// errors and registers the domain tags member_role and plan_code.
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})
	_ = v.RegisterValidation("member_role", func(fl validator.FieldLevel) bool {
		role := identity.Role(fl.Field().String())
		return role.IsMemberRole() && role != identity.RoleOwner
	})
	_ = v.RegisterValidation("plan_code", func(fl validator.FieldLevel) bool {
		return billing.PlanCode(fl.Field().String()).IsValid()
	})
}

// FormatValidationErrors converts binding errors into a VALIDATION_ERROR
// payload. Malformed bodies carry no field details.
func FormatValidationErrors(err error) dto.ErrorResponse {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return dto.NewValidationErrorResponse("Request body is malformed", nil)
	}
	details := make([]dto.ValidationDetail, 0, len(verrs))
	for _, e := range verrs {
		details = append(details, dto.ValidationDetail{
			Field:   e.Field(),
			Message: validationMessage(e),
		})
	}
	return dto.NewValidationErrorResponse("Request validation failed", details)
}

// HandleValidationError writes the validation payload and aborts
func HandleValidationError(c *gin.Context, err error) {
	AbortWithError(c, FormatValidationErrors(err))
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required", "required_if":
		return "This field is required"
	case "min":
		if e.Kind() == reflect.String {
			return "Must be at least " + e.Param() + " characters"
		}
		return "Must be at least " + e.Param()
	case "max":
		if e.Kind() == reflect.String {
			return "Must be at most " + e.Param() + " characters"
		}
		return "Must be at most " + e.Param()
	case "len":
		return "Must be exactly " + e.Param() + " characters"
	case "uuid":
		return "Invalid UUID format"
	case "oneof":
		return "Must be one of: " + e.Param()
	case "alphanum":
		return "Must be alphanumeric"
	case "member_role":
		return "Must be one of: ADMIN FINANCE VIEWER COLLABORATOR"
	case "plan_code":
		return "Must be one of: START ESSENTIAL PROFESSIONAL ENTERPRISE"
	default:
		return "Invalid value"
	}
}
