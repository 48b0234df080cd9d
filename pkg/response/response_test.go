package response

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	reached := false
	r.GET("/ok", func(c *gin.Context) { OK(c, gin.H{"id": 1}) })
	r.GET("/empty", func(c *gin.Context) { Created(c, nil) })
	r.GET("/conflict", func(c *gin.Context) { Conflict(c, "already live") }, func(*gin.Context) { reached = true })

	cases := []struct {
		path   string
		status int
		body   string
	}{
		{"/ok", http.StatusOK, `{"success":true,"data":{"id":1}}`},
		{"/empty", http.StatusCreated, `{"success":true}`},
		{"/conflict", http.StatusConflict, `{"success":false,"error":"already live"}`},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.path, nil))
		assert.Equal(t, tc.status, w.Code, tc.path)
		assert.JSONEq(t, tc.body, w.Body.String(), tc.path)
	}
	assert.False(t, reached, "error responses abort the handler chain")
}
