package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bizcore/backend/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubPinger struct {
	err error
}

func (p stubPinger) PingContext(context.Context) error {
	return p.err
}

func serve(t *testing.T, method, pattern, path string, h gin.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	r := gin.New()
	r.Handle(method, pattern, h)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func TestHealthHandler_Check(t *testing.T) {
	tests := []struct {
		name       string
		pingErr    error
		wantStatus int
		wantState  string
	}{
		{"database reachable", nil, http.StatusOK, "healthy"},
		{"database down", errors.New("connection refused"), http.StatusServiceUnavailable, "unhealthy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(stubPinger{err: tt.pingErr})

			w := serve(t, http.MethodGet, "/health", "/health", h.Check)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantState, decodeBody(t, w)["status"])
		})
	}
}

func TestBaseHandler_HandleError(t *testing.T) {
	h := &BaseHandler{}

	t.Run("domain error keeps its code", func(t *testing.T) {
		w := serve(t, http.MethodGet, "/x", "/x", func(c *gin.Context) {
			h.HandleError(c, shared.ErrNotFound.WithMessage("invoice not found"))
		})

		assert.Equal(t, http.StatusNotFound, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "NOT_FOUND", body["error"])
		assert.Equal(t, "invoice not found", body["reason"])
	})

	t.Run("unknown error is opaque", func(t *testing.T) {
		w := serve(t, http.MethodGet, "/x", "/x", func(c *gin.Context) {
			h.HandleError(c, errors.New("pq: relation \"invoices\" does not exist"))
		})

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "INTERNAL_ERROR", decodeBody(t, w)["error"])
		assert.NotContains(t, w.Body.String(), "relation")
	})
}

func TestBaseHandler_PathID(t *testing.T) {
	h := &BaseHandler{}
	called := false

	w := serve(t, http.MethodGet, "/invoices/:id", "/invoices/not-a-uuid", func(c *gin.Context) {
		if _, ok := h.PathID(c); ok {
			called = true
		}
	})

	assert.False(t, called)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeBody(t, w)["error"])
}

func TestBaseHandler_SecurityContextMissing(t *testing.T) {
	h := &BaseHandler{}

	w := serve(t, http.MethodGet, "/x", "/x", func(c *gin.Context) {
		if _, ok := h.SecurityContext(c); ok {
			c.Status(http.StatusOK)
		}
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "SECURITY_CONTEXT_MISSING", decodeBody(t, w)["error"])
}
