package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Israel70964/YadnusConsultant2/internal/models"
	"github.com/Israel70964/YadnusConsultant2/pkg/utils"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := NewJWTService("s3cret", 1)
	id := uuid.New()
	token, err := svc.Generate(id, "admin@yadnusconsultant.com", "admin")
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, id, claims.UserID)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, Issuer, claims.Issuer)
}

func TestValidateRejects(t *testing.T) {
	svc := NewJWTService("s3cret", 1)
	id := uuid.New()

	other, err := NewJWTService("different", 1).Generate(id, "a@b.c", "admin")
	require.NoError(t, err)

	expiring := NewJWTService("s3cret", 1)
	expiring.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := expiring.Generate(id, "a@b.c", "admin")
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: id, RegisteredClaims: jwt.RegisteredClaims{Issuer: Issuer}}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: id, RegisteredClaims: jwt.RegisteredClaims{Issuer: "someone-else"}}).
		SignedString([]byte("s3cret"))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"wrong secret": other,
		"expired":      expired,
		"alg none":     none,
		"wrong issuer": foreign,
		"garbage":      "not.a.jwt",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Validate(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

type memUsers struct{ byEmail map[string]*models.User }

func (m memUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	for _, u := range m.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	if u, ok := m.byEmail[email]; ok {
		return u, nil
	}
	return nil, ErrUserNotFound
}

func (m memUsers) List(context.Context) ([]models.UserPublic, error) {
	out := []models.UserPublic{}
	for _, u := range m.byEmail {
		out = append(out, u.ToPublic())
	}
	return out, nil
}

func newAuthRouter(t *testing.T) (*gin.Engine, *models.User, *JWTService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	hash, err := utils.HashPassword("correct horse")
	require.NoError(t, err)
	admin := &models.User{ID: uuid.New(), Email: "admin@yadnusconsultant.com", Password: hash, FullName: "Site Admin", Role: models.RoleAdmin}
	svc := NewJWTService("s3cret", 1)
	h := NewHandler(memUsers{byEmail: map[string]*models.User{admin.Email: admin}}, svc, nil)

	r := gin.New()
	r.POST("/api/auth/login", h.Login)
	r.GET("/api/auth/user", func(c *gin.Context) { c.Set("user_id", admin.ID) }, h.CurrentUser("user_id"))
	r.GET("/api/auth/anonymous", h.CurrentUser("user_id"))
	return r, admin, svc
}

func login(t *testing.T, r http.Handler, email, password string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(LoginRequest{Email: email, Password: password})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestLogin(t *testing.T) {
	r, admin, svc := newAuthRouter(t)

	w := login(t, r, admin.Email, "correct horse")
	require.Equal(t, http.StatusOK, w.Code)
	var env struct {
		Data TokenResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, admin.ID, env.Data.User.ID)
	assert.NotContains(t, w.Body.String(), admin.Password)
	claims, err := svc.Validate(env.Data.Token)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, claims.UserID)

	assert.Equal(t, http.StatusUnauthorized, login(t, r, admin.Email, "wrong").Code)
	assert.Equal(t, http.StatusUnauthorized, login(t, r, "nobody@example.com", "correct horse").Code)
	assert.Equal(t, http.StatusBadRequest, login(t, r, "not-an-email", "x").Code)
}

func TestCurrentUser(t *testing.T) {
	r, admin, _ := newAuthRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/auth/user", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), admin.Email)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/auth/anonymous", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
