package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bizcore/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	SetupValidator()
}

func bindRouter[T any]() *gin.Engine {
	r := gin.New()
	r.POST("/test", func(c *gin.Context) {
		var req T
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		ok(c)
	})
	return r
}

func postJSON(r *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return serve(r, req)
}

func TestValidation_FieldNamesFollowJSONTags(t *testing.T) {
	rec := postJSON(bindRouter[dto.AddMemberRequest](), `{"user_id":"nope"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error)
	details, isList := resp.Details.([]any)
	require.True(t, isList)
	require.Len(t, details, 2)
	assert.Equal(t, "user_id", details[0].(map[string]any)["field"])
	assert.Equal(t, "role", details[1].(map[string]any)["field"])
}

func TestValidation_MemberRole(t *testing.T) {
	r := bindRouter[dto.AddMemberRequest]()
	user := `"user_id":"0b1c2d3e-4f50-4617-8a9b-0c1d2e3f4a5b"`

	assert.Equal(t, http.StatusOK, postJSON(r, `{`+user+`,"role":"FINANCE"}`).Code)
	assert.Equal(t, http.StatusBadRequest, postJSON(r, `{`+user+`,"role":"OWNER"}`).Code)
	assert.Equal(t, http.StatusBadRequest, postJSON(r, `{`+user+`,"role":"ACCOUNTANT"}`).Code)
	assert.Equal(t, http.StatusBadRequest, postJSON(r, `{`+user+`,"role":"GOD"}`).Code)
}

func TestValidation_BillingEvent(t *testing.T) {
	r := bindRouter[dto.BillingEventRequest]()

	assert.Equal(t, http.StatusOK, postJSON(r, `{"type":"PLAN_CHANGED","plan_code":"PROFESSIONAL"}`).Code)
	assert.Equal(t, http.StatusBadRequest, postJSON(r, `{"type":"PLAN_CHANGED"}`).Code)
	assert.Equal(t, http.StatusBadRequest, postJSON(r, `{"type":"PLAN_CHANGED","plan_code":"PLATINUM"}`).Code)
	assert.Equal(t, http.StatusBadRequest, postJSON(r, `{"type":"PAYMENT_SUCCEEDED"}`).Code)
	assert.Equal(t, http.StatusOK, postJSON(r, `{"type":"PAYMENT_SUCCEEDED","paid_until":"2026-12-01T00:00:00Z"}`).Code)
	assert.Equal(t, http.StatusOK, postJSON(r, `{"type":"PAYMENT_FAILED"}`).Code)
}

func TestValidation_MalformedBody(t *testing.T) {
	rec := postJSON(bindRouter[dto.CreateTenantRequest](), `{"name":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "Request body is malformed", resp.Reason)
	assert.Nil(t, resp.Details)
}
