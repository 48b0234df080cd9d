package auth

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Israel70964/YadnusConsultant2/internal/models"
	"github.com/Israel70964/YadnusConsultant2/pkg/response"
	"github.com/Israel70964/YadnusConsultant2/pkg/utils"
)

// Users is the account lookup used by the auth handler.
type Users interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]models.UserPublic, error)
}

// LoginRequest is the body for POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token string            `json:"token"`
	User  models.UserPublic `json:"user"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	users  Users
	jwt    *JWTService
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(users Users, jwt *JWTService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{users: users, jwt: jwt, logger: logger}
}

// Login handles POST /api/auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.users.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			h.logger.Error("login lookup", zap.Error(err))
		}
		response.Unauthorized(c, "invalid email or password")
		return
	}
	if !utils.CheckPassword(req.Password, user.Password) {
		response.Unauthorized(c, "invalid email or password")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Email, string(user.Role))
	if err != nil {
		h.logger.Error("sign token", zap.String("user_id", user.ID.String()), zap.Error(err))
		response.Internal(c, "failed to generate token")
		return
	}
	h.logger.Info("admin login", zap.String("user_id", user.ID.String()))
	response.OK(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// CurrentUser handles GET /api/auth/user. userIDKey is the gin context key set by the JWT middleware.
func (h *Handler) CurrentUser(userIDKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := c.Get(userIDKey)
		uid, isUUID := id.(uuid.UUID)
		if !ok || !isUUID {
			response.Unauthorized(c, "missing user context")
			return
		}
		user, err := h.users.GetByID(c.Request.Context(), uid)
		if errors.Is(err, ErrUserNotFound) {
			response.Unauthorized(c, "account no longer exists")
			return
		}
		if err != nil {
			h.logger.Error("get current user", zap.String("user_id", uid.String()), zap.Error(err))
			response.Internal(c, "Failed to fetch user")
			return
		}
		response.OK(c, user.ToPublic())
	}
}

// List handles GET /api/admin/users.
func (h *Handler) List(c *gin.Context) {
	list, err := h.users.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list users", zap.Error(err))
		response.Internal(c, "failed to list users")
		return
	}
	response.OK(c, list)
}
