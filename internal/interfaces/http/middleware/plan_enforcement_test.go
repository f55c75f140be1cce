package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bizcore/backend/internal/application/planstate"
	"github.com/bizcore/backend/internal/domain/billing"
	"github.com/bizcore/backend/internal/domain/identity"
	"github.com/bizcore/backend/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDeriver struct {
	calls int
	state *planstate.State
	err   error
}

func (d *stubDeriver) Derive(context.Context, uuid.UUID) (*planstate.State, error) {
	d.calls++
	return d.state, d.err
}

type blockRecorder struct {
	statuses []billing.PlanStatus
}

func (r *blockRecorder) RecordPlanBlocked(_ context.Context, status billing.PlanStatus) {
	r.statuses = append(r.statuses, status)
}

func stateWith(status billing.PlanStatus, reason string, cta billing.CTA) *planstate.State {
	st := &planstate.State{Status: status, Reason: reason, PlanCode: billing.PlanStart}
	if cta != billing.CTANone {
		st.CTA = &cta
	}
	return st
}

func setupPlanRouter(deriver PlanStateDeriver, recorder PlanBlockRecorder) *gin.Engine {
	sc := &identity.SecurityContext{TenantID: uuid.New(), UserID: uuid.New(), Role: identity.RoleOwner}
	enforce := PlanEnforcement(PlanEnforcementConfig{
		Deriver:         deriver,
		ExemptRoutes:    DefaultExemptRoutes(),
		AllowlistRoutes: DefaultAllowlistRoutes(),
		Recorder:        recorder,
	})

	r := gin.New()
	r.Use(withSecurityContext(sc))
	r.POST("/api/v1/invoices", enforce, func(c *gin.Context) {
		_, exists := c.Get(PlanStateKey)
		c.JSON(http.StatusOK, gin.H{"plan_state_set": exists})
	})
	r.GET("/api/v1/tenant/plan-state", enforce, ok)
	r.POST("/api/v1/tenant/subscription/events", enforce, ok)
	r.GET("/api/v1/tenant/audit-logs", enforce, ok)
	r.POST("/api/v1/tenant/audit-logs", enforce, ok)
	return r
}

func TestPlanEnforcement_BlocksRestrictedStates(t *testing.T) {
	tests := []struct {
		status billing.PlanStatus
		cta    billing.CTA
	}{
		{billing.PlanStatusBlocked, billing.CTAUpgrade},
		{billing.PlanStatusGrace, billing.CTAContactSupport},
		{billing.PlanStatusExpired, billing.CTAContactSupport},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			deriver := &stubDeriver{state: stateWith(tt.status, "Invoice limit reached", tt.cta)}
			recorder := &blockRecorder{}
			r := setupPlanRouter(deriver, recorder)

			rec := serve(r, httptest.NewRequest(http.MethodPost, "/api/v1/invoices", nil))

			assert.Equal(t, http.StatusForbidden, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, shared.CodePlanBlocked, resp.Error)
			assert.Equal(t, "Invoice limit reached", resp.Reason)
			require.NotNil(t, resp.CTA)
			assert.Equal(t, string(tt.cta), *resp.CTA)
			details, isMap := resp.Details.(map[string]any)
			require.True(t, isMap)
			assert.Equal(t, string(tt.status), details["status"])
			assert.Equal(t, "START", details["planCode"])
			assert.Equal(t, []billing.PlanStatus{tt.status}, recorder.statuses)
		})
	}
}

func TestPlanEnforcement_AdmitsHealthyStates(t *testing.T) {
	for _, status := range []billing.PlanStatus{billing.PlanStatusActive, billing.PlanStatusWarning} {
		t.Run(string(status), func(t *testing.T) {
			r := setupPlanRouter(&stubDeriver{state: stateWith(status, "", billing.CTANone)}, nil)

			rec := serve(r, httptest.NewRequest(http.MethodPost, "/api/v1/invoices", nil))

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, `{"plan_state_set":true}`, rec.Body.String())
		})
	}
}

func TestPlanEnforcement_ExemptRoutesNeverDerive(t *testing.T) {
	deriver := &stubDeriver{state: stateWith(billing.PlanStatusBlocked, "blocked", billing.CTAUpgrade)}
	r := setupPlanRouter(deriver, nil)

	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/tenant/plan-state", nil)).Code)
	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodPost, "/api/v1/tenant/subscription/events", nil)).Code)
	assert.Zero(t, deriver.calls)
}

func TestPlanEnforcement_AllowlistIsReadOnly(t *testing.T) {
	deriver := &stubDeriver{state: stateWith(billing.PlanStatusBlocked, "blocked", billing.CTAUpgrade)}
	r := setupPlanRouter(deriver, nil)

	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/tenant/audit-logs", nil)).Code)
	assert.Equal(t, http.StatusForbidden, serve(r, httptest.NewRequest(http.MethodPost, "/api/v1/tenant/audit-logs", nil)).Code)
}

func TestPlanEnforcement_DerivationFailure(t *testing.T) {
	r := setupPlanRouter(&stubDeriver{err: errors.New("connection refused")}, nil)

	rec := serve(r, httptest.NewRequest(http.MethodPost, "/api/v1/invoices", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestPlanEnforcement_MissingSecurityContext(t *testing.T) {
	r := gin.New()
	r.POST("/api/v1/invoices", PlanEnforcement(PlanEnforcementConfig{Deriver: &stubDeriver{}}), ok)

	rec := serve(r, httptest.NewRequest(http.MethodPost, "/api/v1/invoices", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, shared.CodeSecurityContextMissing, decodeError(t, rec).Error)
}
