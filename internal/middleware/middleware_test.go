package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Israel70964/YadnusConsultant2/internal/auth"
)

func protected(svc *auth.JWTService, roles ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/admin/ping", JWT(svc), RequireRole(roles...), func(c *gin.Context) {
		id, _ := c.Get(ContextUserID)
		c.String(http.StatusOK, id.(uuid.UUID).String())
	})
	return r
}

func get(r http.Handler, path, authz string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAndRole(t *testing.T) {
	svc := auth.NewJWTService("s3cret", 1)
	r := protected(svc, "admin")
	adminID := uuid.New()
	adminToken, err := svc.Generate(adminID, "admin@yadnusconsultant.com", "admin")
	require.NoError(t, err)
	editorToken, err := svc.Generate(uuid.New(), "editor@yadnusconsultant.com", "editor")
	require.NoError(t, err)

	w := get(r, "/api/admin/ping", "Bearer "+adminToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, adminID.String(), w.Body.String())

	assert.Equal(t, http.StatusOK, get(r, "/api/admin/ping", "bearer "+adminToken).Code)
	assert.Equal(t, http.StatusForbidden, get(r, "/api/admin/ping", "Bearer "+editorToken).Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/api/admin/ping", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/api/admin/ping", "Basic YWRtaW46YWRtaW4=").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/api/admin/ping", "Bearer nope").Code)
}

func TestRequireRoleWithoutJWT(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", RequireRole("admin"), func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusUnauthorized, get(r, "/x", "").Code)
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS("https://yadnusconsultant.com"))
	r.GET("/api/webinars", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/api/webinars", nil)
	req.Header.Set("Origin", "https://yadnusconsultant.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://yadnusconsultant.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/webinars", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPolicy(t *testing.T) {
	gin.SetMode(gin.TestMode)
	preflight := func(allowed, origin string) *httptest.ResponseRecorder {
		r := gin.New()
		r.Use(CORS(allowed))
		req := httptest.NewRequest(http.MethodOptions, "/api/contact", nil)
		req.Header.Set("Origin", origin)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := preflight("https://yadnusconsultant.com/, http://localhost:5173", "http://localhost:5173")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", w.Header().Get("Vary"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), HeaderRequestID)
	assert.Equal(t, HeaderRequestID, w.Header().Get("Access-Control-Expose-Headers"))

	w = preflight("https://yadnusconsultant.com/", "https://yadnusconsultant.com")
	assert.Equal(t, "https://yadnusconsultant.com", w.Header().Get("Access-Control-Allow-Origin"))

	w = preflight("https://yadnusconsultant.com", "https://evil.example")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	for _, allowed := range []string{"*", ""} {
		w = preflight(allowed, "https://anywhere.example")
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, w.Header().Get("Vary"))
	}
}

func TestLoggerLevelsAndSkip(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.DebugLevel)
	r := gin.New()
	r.Use(Logger(zap.New(core), "/health"))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusBadGateway) })

	get(r, "/health", "")
	w := get(r, "/boom", "")
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zap.ErrorLevel, entry.Level)
	assert.Equal(t, "/boom", entry.ContextMap()["path"])
	assert.Equal(t, w.Header().Get(HeaderRequestID), entry.ContextMap()["request_id"])
}
