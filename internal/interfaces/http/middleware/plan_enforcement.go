package middleware

import (
	"context"
	"net/http"
	"slices"

	"github.com/bizcore/backend/internal/application/planstate"
	"github.com/bizcore/backend/internal/domain/billing"
	"github.com/bizcore/backend/internal/domain/shared"
	"github.com/bizcore/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PlanStateDeriver computes the current plan state without the cache
type PlanStateDeriver interface {
	Derive(ctx context.Context, tenantID uuid.UUID) (*planstate.State, error)
}

// PlanBlockRecorder observes requests rejected by plan enforcement
type PlanBlockRecorder interface {
	RecordPlanBlocked(ctx context.Context, status billing.PlanStatus)
}

// PlanEnforcementConfig holds configuration for plan enforcement.
// Routes are gin route patterns as returned by FullPath.
type PlanEnforcementConfig struct {
	Deriver PlanStateDeriver
	// ExemptRoutes are never enforced, whatever the method
	ExemptRoutes []string
	// AllowlistRoutes stay readable (GET and HEAD only) while restricted
	AllowlistRoutes []string
	Recorder        PlanBlockRecorder
	Logger          *zap.Logger
}

// DefaultExemptRoutes lets a restricted tenant see why and pay its way out
func DefaultExemptRoutes() []string {
	return []string{
		"/api/v1/plans",
		"/api/v1/tenant/plan-state",
		"/api/v1/tenant/plan-state/refresh",
		"/api/v1/tenant/subscription",
		"/api/v1/tenant/subscription/events",
	}
}

// DefaultAllowlistRoutes are the read-only views kept open while restricted
func DefaultAllowlistRoutes() []string {
	return []string{
		"/api/v1/tenant/audit-logs",
	}
}

// PlanEnforcement rejects requests of tenants whose plan is BLOCKED, GRACE
// or EXPIRED with PLAN_BLOCKED. The state is derived fresh for every request;
// the plan-state cache is never consulted here.
func PlanEnforcement(cfg PlanEnforcementConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		route := c.FullPath()
		if slices.Contains(cfg.ExemptRoutes, route) {
			c.Next()
			return
		}

		sc, ok := GetSecurityContext(c)
		if !ok {
			log.Error("Security context missing on enforced route",
				zap.Bool("alert", true),
				zap.String("route", route))
			AbortWithError(c, dto.FromError(shared.ErrSecurityContextMissing))
			return
		}

		if isSafeMethod(c.Request.Method) && slices.Contains(cfg.AllowlistRoutes, route) {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		st, err := cfg.Deriver.Derive(ctx, sc.TenantID)
		if err != nil {
			log.Error("Plan state derivation failed",
				zap.String("tenant_id", sc.TenantID.String()),
				zap.Error(err))
			AbortWithError(c, dto.FromError(err))
			return
		}

		if st.Status.Restricts() {
			if cfg.Recorder != nil {
				cfg.Recorder.RecordPlanBlocked(ctx, st.Status)
			}
			log.Info("Request blocked by plan state",
				zap.String("tenant_id", sc.TenantID.String()),
				zap.String("status", string(st.Status)),
				zap.String("reason", st.Reason),
				zap.String("route", route))

			blocked := shared.ErrPlanBlocked.WithMessage(st.Reason).WithDetails(map[string]any{
				"status":   st.Status,
				"planCode": st.PlanCode,
			})
			if st.CTA != nil {
				blocked = blocked.WithCTA(string(*st.CTA))
			}
			AbortWithError(c, dto.FromError(blocked))
			return
		}

		c.Set(PlanStateKey, st)
		c.Next()
	}
}

func isSafeMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}
