package emaillogs

import (
	"context"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Israel70964/YadnusConsultant2/internal/models"
	"github.com/Israel70964/YadnusConsultant2/pkg/queue"
	"github.com/Israel70964/YadnusConsultant2/pkg/response"
)

// Store is the email log persistence used by the handler.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.EmailLog, error)
	List(ctx context.Context, f ListFilter) ([]*models.EmailLog, error)
	ListByWebinar(ctx context.Context, webinarID uuid.UUID) ([]*models.EmailLog, error)
	MarkPending(ctx context.Context, id uuid.UUID) error
}

// Enqueuer hands email jobs to the worker.
type Enqueuer interface {
	EnqueueEmail(ctx context.Context, payload queue.EmailPayload) error
}

// Handler handles email log HTTP endpoints.
type Handler struct {
	store  Store
	jobs   Enqueuer
	logger *zap.Logger
}

// NewHandler creates an email logs handler.
func NewHandler(store Store, jobs Enqueuer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, jobs: jobs, logger: logger}
}

// List handles GET /api/admin/email-logs?status=&limit=.
func (h *Handler) List(c *gin.Context) {
	f := ListFilter{Status: c.Query("status")}
	switch f.Status {
	case "", models.EmailLogStatusPending, models.EmailLogStatusSent, models.EmailLogStatusFailed:
	default:
		response.BadRequest(c, "invalid status")
		return
	}
	if l := c.Query("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n <= 0 {
			response.BadRequest(c, "invalid limit")
			return
		}
		f.Limit = n
	}
	logs, err := h.store.List(c.Request.Context(), f)
	if err != nil {
		h.logger.Error("list email logs", zap.Error(err))
		response.Internal(c, "failed to load email logs")
		return
	}
	response.OK(c, logs)
}

// ListByWebinar handles GET /api/admin/webinars/:id/email-logs.
func (h *Handler) ListByWebinar(c *gin.Context) {
	webinarID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid webinar id")
		return
	}
	logs, err := h.store.ListByWebinar(c.Request.Context(), webinarID)
	if err != nil {
		h.logger.Error("list webinar email logs", zap.String("webinar_id", webinarID.String()), zap.Error(err))
		response.Internal(c, "failed to load email logs")
		return
	}
	response.OK(c, logs)
}

// Resend handles POST /api/admin/email-logs/:id/resend. Only failed emails can be resent.
func (h *Handler) Resend(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid email log id")
		return
	}
	ctx := c.Request.Context()
	el, err := h.store.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, "email log not found")
		return
	}
	if err != nil {
		h.logger.Error("get email log", zap.String("email_log_id", id.String()), zap.Error(err))
		response.Internal(c, "failed to load email log")
		return
	}
	if el.Status != models.EmailLogStatusFailed {
		response.Conflict(c, "only failed emails can be resent")
		return
	}
	if err := h.store.MarkPending(ctx, id); err != nil {
		h.logger.Error("reset email log", zap.String("email_log_id", id.String()), zap.Error(err))
		response.Internal(c, "failed to queue email")
		return
	}
	err = h.jobs.EnqueueEmail(ctx, queue.EmailPayload{
		LogID:          el.ID,
		EmailType:      el.EmailType,
		WebinarID:      el.WebinarID,
		SubmissionID:   el.SubmissionID,
		RecipientEmail: el.RecipientEmail,
		Subject:        el.Subject,
		BodyHTML:       el.BodyHTML,
	})
	if err != nil {
		h.logger.Error("enqueue resend", zap.String("email_log_id", id.String()), zap.Error(err))
		response.ServiceUnavailable(c, "email queue unavailable")
		return
	}
	response.OK(c, gin.H{"message": "resend queued"})
}
