package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())

	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)
}

func TestRouterWithAPIVersion(t *testing.T) {
	r := NewRouter(gin.New(), WithAPIVersion("v2"))

	assert.Equal(t, "v2", r.apiVersion)
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	group := NewDomainGroup("test", "/test").
		GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	NewRouter(engine).Register(group).Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/test/ping", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
}

func TestRouterSetup_RegistersSeveralGroups(t *testing.T) {
	engine := gin.New()
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	NewRouter(engine).Register(
		NewDomainGroup("plans", "/plans").GET("", ok),
		NewDomainGroup("tenant", "/tenant").GET("/plan-state", ok),
	).Setup()

	for _, path := range []string{"/api/v1/plans", "/api/v1/tenant/plan-state"} {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestDomainGroup_MiddlewareOrder(t *testing.T) {
	var order []string
	mark := func(name string) gin.HandlerFunc {
		return func(c *gin.Context) {
			order = append(order, name)
			c.Next()
		}
	}

	engine := gin.New()
	group := NewDomainGroup("test", "/test").
		Use(mark("group-1"), mark("group-2")).
		POST("/items", mark("route"), func(c *gin.Context) { c.Status(http.StatusCreated) })
	NewRouter(engine).Register(group).Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/test/items", nil))

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, []string{"group-1", "group-2", "route"}, order)
}

func TestDomainGroup_Methods(t *testing.T) {
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	group := NewDomainGroup("catalog", "/catalog").
		GET("", ok).
		POST("/items", ok).
		PUT("/items/:id", ok).
		DELETE("/items/:id", ok)

	assert.Equal(t, "catalog", group.Name())
	assert.Equal(t, "/catalog", group.Prefix())
	assert.Equal(t, []string{
		"GET /catalog",
		"POST /catalog/items",
		"PUT /catalog/items/:id",
		"DELETE /catalog/items/:id",
	}, group.Paths())

	engine := gin.New()
	NewRouter(engine).Register(group).Setup()
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/catalog"},
		{http.MethodPost, "/api/v1/catalog/items"},
		{http.MethodPut, "/api/v1/catalog/items/1"},
		{http.MethodDelete, "/api/v1/catalog/items/1"},
	} {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, http.StatusOK, w.Code, tc.method+" "+tc.path)
	}
}
