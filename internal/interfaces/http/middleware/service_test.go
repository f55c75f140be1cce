package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bizcore/backend/internal/domain/shared"
	"github.com/bizcore/backend/internal/infrastructure/auth"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireService(t *testing.T) {
	jwtService := newTestJWTService()
	tenantID := uuid.New()

	tests := []struct {
		name   string
		input  auth.TokenInput
		status int
	}{
		{"service credential passes", auth.TokenInput{UserID: uuid.New(), Role: auth.ServiceRole}, http.StatusOK},
		{"tenant member is rejected", auth.TokenInput{UserID: uuid.New(), TenantID: &tenantID}, http.StatusForbidden},
		{"role claim is case sensitive", auth.TokenInput{UserID: uuid.New(), Role: "service"}, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := jwtService.GenerateToken(tt.input)
			require.NoError(t, err)
			r := gin.New()
			r.POST("/system/grant", JWTAuthMiddleware(jwtService), RequireService(nil), ok)

			req := httptest.NewRequest(http.MethodPost, "/system/grant", nil)
			req.Header.Set(AuthHeaderKey, BearerPrefix+token)
			rec := serve(r, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusForbidden {
				assert.Equal(t, shared.CodeInsufficientPermission, decodeError(t, rec).Error)
			}
		})
	}
}

func TestRequireService_WithoutClaims(t *testing.T) {
	r := gin.New()
	r.POST("/system/grant", RequireService(nil), ok)

	rec := serve(r, httptest.NewRequest(http.MethodPost, "/system/grant", nil))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
