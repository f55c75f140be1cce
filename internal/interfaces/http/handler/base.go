// Package handler holds the HTTP handlers. Gating (credential, tenant, role,
// plan) happens in middleware; handlers bind, delegate and render.
package handler

import (
	"errors"
	"net/http"

	"github.com/bizcore/backend/internal/domain/identity"
	"github.com/bizcore/backend/internal/domain/shared"
	"github.com/bizcore/backend/internal/infrastructure/logger"
	"github.com/bizcore/backend/internal/infrastructure/telemetry"
	"github.com/bizcore/backend/internal/interfaces/http/dto"
	"github.com/bizcore/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a 200 response with a bare JSON body
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// Created sends a 201 response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// NoContent sends a 204 response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// HandleError renders err. Domain errors keep their code; anything else is
// logged and answered with an opaque INTERNAL_ERROR.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	var domainErr *shared.DomainError
	if !errors.As(err, &domainErr) {
		logger.FromContext(c.Request.Context()).Error("Request failed",
			zap.String("route", c.FullPath()),
			zap.String("trace_id", telemetry.GetTraceID(c.Request.Context())),
			zap.Error(err))
	}
	middleware.AbortWithError(c, dto.FromError(err))
}

// BindJSON binds the body into req, answering 400 on failure
func (h *BaseHandler) BindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

// BindQuery binds query parameters into req, answering 400 on failure
func (h *BaseHandler) BindQuery(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

// SecurityContext returns the resolved context. Its absence on a tenant
// route is a wiring bug and answers 500.
func (h *BaseHandler) SecurityContext(c *gin.Context) (*identity.SecurityContext, bool) {
	sc, ok := middleware.GetSecurityContext(c)
	if !ok {
		logger.FromContext(c.Request.Context()).Error("Security context missing in handler",
			zap.Bool("alert", true),
			zap.String("route", c.FullPath()))
		middleware.AbortWithError(c, dto.FromError(shared.ErrSecurityContextMissing))
		return nil, false
	}
	return sc, true
}

// PathID parses the :id path parameter
func (h *BaseHandler) PathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		middleware.AbortWithError(c, dto.NewValidationErrorResponse("Invalid id", []dto.ValidationDetail{
			{Field: "id", Message: "Invalid UUID format"},
		}))
		return uuid.Nil, false
	}
	return id, true
}
