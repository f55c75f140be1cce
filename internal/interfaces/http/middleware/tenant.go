package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/bizcore/backend/internal/application/tenancy"
	"github.com/bizcore/backend/internal/domain/identity"
	"github.com/bizcore/backend/internal/domain/shared"
	"github.com/bizcore/backend/internal/infrastructure/logger"
	"github.com/bizcore/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// tenantFieldNames are the parameter names a client might use to choose a
// tenant, lower-cased. Their mere presence is a violation.
var tenantFieldNames = map[string]struct{}{
	"tenant_id":  {},
	"tenantid":   {},
	"company_id": {},
	"companyid":  {},
}

var errBodyTooLarge = errors.New("request body exceeds the inspection window")

func isTenantField(name string) bool {
	_, ok := tenantFieldNames[strings.ToLower(name)]
	return ok
}

// TenantResolver produces the security context from a verified caller
type TenantResolver interface {
	Resolve(ctx context.Context, caller tenancy.Caller) (*identity.SecurityContext, error)
}

// TenantDenialRecorder observes rejected tenant resolutions
type TenantDenialRecorder interface {
	RecordTenantDenied(ctx context.Context, code string)
}

// TenantMiddlewareConfig holds configuration for the tenant resolver middleware
type TenantMiddlewareConfig struct {
	Resolver TenantResolver
	// MaxBodyInspect bounds the body size scanned for tenant fields. Larger
	// bodies are rejected.
	MaxBodyInspect int64
	Recorder       TenantDenialRecorder
	Logger         *zap.Logger
}

// TenantMiddleware resolves the tenant strictly from the credential claim.
// Any tenant identifier supplied by the client (path, query, JSON body or
// X-Tenant-ID header) is rejected, whatever its value. It must run after the
// JWT middleware.
func TenantMiddleware(cfg TenantMiddlewareConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MaxBodyInspect <= 0 {
		cfg.MaxBodyInspect = 1 << 20
	}

	deny := func(c *gin.Context, resp dto.ErrorResponse) {
		if cfg.Recorder != nil {
			cfg.Recorder.RecordTenantDenied(c.Request.Context(), resp.Error)
		}
		AbortWithError(c, resp)
	}

	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims == nil {
			deny(c, dto.NewErrorResponse(shared.CodeUnauthorized, "Authentication required"))
			return
		}

		source, err := clientSuppliedTenant(c, cfg.MaxBodyInspect)
		if errors.Is(err, errBodyTooLarge) {
			deny(c, dto.NewErrorResponse(shared.CodeValidation, "Request body is too large"))
			return
		}
		if err != nil {
			deny(c, dto.NewErrorResponse(shared.CodeValidation, "Request body could not be read"))
			return
		}
		if source != "" {
			log.Warn("Client supplied a tenant identifier",
				logger.SecurityEvent(),
				zap.String("user_id", GetJWTUserID(c)),
				zap.String("source", source),
				zap.String("path", c.Request.URL.Path))
			deny(c, dto.FromError(shared.ErrTenantViolation.WithMessage(
				"tenant must not be supplied by the client ("+source+")")))
			return
		}

		userID, err := claims.UserUUID()
		if err != nil {
			deny(c, dto.NewErrorResponse(shared.CodeUnauthorized, "Token carries no usable user id"))
			return
		}

		ctx := c.Request.Context()
		sc, err := cfg.Resolver.Resolve(ctx, tenancy.Caller{
			UserID:                 userID,
			TenantClaim:            claims.TenantID,
			ImpersonationSessionID: claims.ImpersonationSession(),
		})
		if err != nil {
			var domainErr *shared.DomainError
			if !errors.As(err, &domainErr) {
				log.Error("Tenant resolution failed",
					zap.String("user_id", userID.String()),
					zap.Error(err))
			}
			deny(c, dto.FromError(err))
			return
		}

		ctx = identity.WithSecurityContext(ctx, sc)
		ctx, _ = logger.WithSecurityContext(ctx, logger.FromContext(ctx), sc)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// clientSuppliedTenant returns where a client-chosen tenant id was found,
// or "" when the request carries none
func clientSuppliedTenant(c *gin.Context, maxInspect int64) (string, error) {
	for _, p := range c.Params {
		if isTenantField(p.Key) {
			return "path:" + p.Key, nil
		}
	}
	for key := range c.Request.URL.Query() {
		if isTenantField(key) {
			return "query:" + key, nil
		}
	}
	if len(c.Request.Header.Values(TenantHeaderName)) > 0 {
		return "header:" + TenantHeaderName, nil
	}
	return bodyTenantField(c, maxInspect)
}

// bodyTenantField scans the top-level keys of a body that parses as a JSON
// object, whatever its declared media type, since JSON binding ignores the
// Content-Type. The body is restored for the handler.
func bodyTenantField(c *gin.Context, maxInspect int64) (string, error) {
	if c.Request.Body == nil || c.Request.Body == http.NoBody {
		return "", nil
	}

	body := c.Request.Body
	raw, err := io.ReadAll(io.LimitReader(body, maxInspect+1))
	if err != nil {
		return "", err
	}
	if int64(len(raw)) > maxInspect {
		return "", errBodyTooLarge
	}
	c.Request.Body = readCloser{Reader: bytes.NewReader(raw), Closer: body}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		// Not a JSON object; binding reports it
		return "", nil
	}
	for key := range fields {
		if isTenantField(key) {
			return "body:" + key, nil
		}
	}
	return "", nil
}

type readCloser struct {
	io.Reader
	io.Closer
}
