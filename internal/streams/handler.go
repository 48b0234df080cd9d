package streams

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Israel70964/YadnusConsultant2/internal/models"
	"github.com/Israel70964/YadnusConsultant2/pkg/response"
)

// Lister reads the live-run history of a webinar.
type Lister interface {
	ListByWebinar(ctx context.Context, webinarID uuid.UUID) ([]models.StreamSession, error)
}

// Handler serves the admin view of live runs.
type Handler struct {
	sessions Lister
	logger   *zap.Logger
}

// NewHandler creates a stream sessions handler.
func NewHandler(sessions Lister, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{sessions: sessions, logger: logger}
}

// List handles GET /api/admin/webinars/:id/sessions.
func (h *Handler) List(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid webinar id")
		return
	}
	list, err := h.sessions.ListByWebinar(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("list stream sessions", zap.String("webinar_id", id.String()), zap.Error(err))
		response.Internal(c, "failed to fetch stream sessions")
		return
	}
	response.OK(c, list)
}
