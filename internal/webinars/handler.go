package webinars

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Israel70964/YadnusConsultant2/internal/models"
	"github.com/Israel70964/YadnusConsultant2/pkg/response"
)

// Store is the persistence used by the webinar handlers.
type Store interface {
	Create(ctx context.Context, p CreateParams) (*models.Webinar, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Webinar, error)
	List(ctx context.Context) ([]models.Webinar, error)
	ListUpcoming(ctx context.Context, now time.Time) ([]models.Webinar, error)
	ListPast(ctx context.Context, now time.Time) ([]models.Webinar, error)
	Update(ctx context.Context, id uuid.UUID, p UpdateParams) (*models.Webinar, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// AudienceCounter reports connected viewers of a webinar's live feed.
type AudienceCounter interface {
	AudienceCount(webinarID uuid.UUID) int
}

const defaultMaxAttendees = 100

// CreateRequest is the body for POST /api/webinars.
type CreateRequest struct {
	Title            string          `json:"title" binding:"required"`
	Description      string          `json:"description" binding:"required"`
	Date             time.Time       `json:"date" binding:"required"`
	Speakers         json.RawMessage `json:"speakers"`
	VideoURL         string          `json:"videoUrl"`
	ThumbnailURL     string          `json:"thumbnailUrl"`
	ChatEnabled      *bool           `json:"chatEnabled"`
	RecordingEnabled *bool           `json:"recordingEnabled"`
	MaxAttendees     *int            `json:"maxAttendees" binding:"omitempty,min=1"`
}

// UpdateRequest is the body for PUT /api/webinars/:id. Absent fields are left unchanged.
type UpdateRequest struct {
	Title            *string         `json:"title"`
	Description      *string         `json:"description"`
	Date             *time.Time      `json:"date"`
	Speakers         json.RawMessage `json:"speakers"`
	VideoURL         *string         `json:"videoUrl"`
	ThumbnailURL     *string         `json:"thumbnailUrl"`
	ChatEnabled      *bool           `json:"chatEnabled"`
	RecordingEnabled *bool           `json:"recordingEnabled"`
	MaxAttendees     *int            `json:"maxAttendees" binding:"omitempty,min=1"`
}

// Handler handles webinar HTTP endpoints.
type Handler struct {
	store  Store
	now    func() time.Time
	logger *zap.Logger
}

// NewHandler creates a webinar handler.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, now: time.Now, logger: logger}
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid webinar id")
		return uuid.Nil, false
	}
	return id, true
}

func publicList(list []models.Webinar) []models.WebinarPublic {
	out := make([]models.WebinarPublic, 0, len(list))
	for i := range list {
		out = append(out, list[i].Public())
	}
	return out
}

// List handles GET /api/webinars.
func (h *Handler) List(c *gin.Context) {
	list, err := h.store.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list webinars", zap.Error(err))
		response.Internal(c, "failed to fetch webinars")
		return
	}
	response.OK(c, publicList(list))
}

// Upcoming handles GET /api/webinars/upcoming.
func (h *Handler) Upcoming(c *gin.Context) {
	list, err := h.store.ListUpcoming(c.Request.Context(), h.now())
	if err != nil {
		h.logger.Error("list upcoming webinars", zap.Error(err))
		response.Internal(c, "failed to fetch upcoming webinars")
		return
	}
	response.OK(c, publicList(list))
}

// Past handles GET /api/webinars/past.
func (h *Handler) Past(c *gin.Context) {
	list, err := h.store.ListPast(c.Request.Context(), h.now())
	if err != nil {
		h.logger.Error("list past webinars", zap.Error(err))
		response.Internal(c, "failed to fetch past webinars")
		return
	}
	response.OK(c, publicList(list))
}

// GetByID handles GET /api/webinars/:id (public view).
func (h *Handler) GetByID(c *gin.Context) {
	w, ok := h.load(c)
	if !ok {
		return
	}
	response.OK(c, w.Public())
}

// AdminGetByID handles GET /api/admin/webinars/:id, including stream keys and metadata.
func (h *Handler) AdminGetByID(c *gin.Context) {
	w, ok := h.load(c)
	if !ok {
		return
	}
	response.OK(c, w)
}

func (h *Handler) load(c *gin.Context) (*models.Webinar, bool) {
	id, ok := parseID(c)
	if !ok {
		return nil, false
	}
	w, err := h.store.GetByID(c.Request.Context(), id)
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, "webinar not found")
		return nil, false
	}
	if err != nil {
		h.logger.Error("get webinar", zap.String("webinar_id", id.String()), zap.Error(err))
		response.Internal(c, "failed to fetch webinar")
		return nil, false
	}
	return w, true
}

// Create handles POST /api/webinars (admin only).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	p := CreateParams{
		Title:            req.Title,
		Description:      req.Description,
		Date:             req.Date,
		Speakers:         req.Speakers,
		VideoURL:         req.VideoURL,
		ThumbnailURL:     req.ThumbnailURL,
		ChatEnabled:      true,
		RecordingEnabled: true,
		MaxAttendees:     defaultMaxAttendees,
	}
	if req.ChatEnabled != nil {
		p.ChatEnabled = *req.ChatEnabled
	}
	if req.RecordingEnabled != nil {
		p.RecordingEnabled = *req.RecordingEnabled
	}
	if req.MaxAttendees != nil {
		p.MaxAttendees = *req.MaxAttendees
	}
	w, err := h.store.Create(c.Request.Context(), p)
	if err != nil {
		h.logger.Error("create webinar", zap.Error(err))
		response.Internal(c, "failed to create webinar")
		return
	}
	response.Created(c, w)
}

// Update handles PUT /api/webinars/:id (admin only).
func (h *Handler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	w, err := h.store.Update(c.Request.Context(), id, UpdateParams{
		Title:            req.Title,
		Description:      req.Description,
		Date:             req.Date,
		Speakers:         req.Speakers,
		VideoURL:         req.VideoURL,
		ThumbnailURL:     req.ThumbnailURL,
		ChatEnabled:      req.ChatEnabled,
		RecordingEnabled: req.RecordingEnabled,
		MaxAttendees:     req.MaxAttendees,
	})
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, "webinar not found")
		return
	}
	if err != nil {
		h.logger.Error("update webinar", zap.String("webinar_id", id.String()), zap.Error(err))
		response.Internal(c, "failed to update webinar")
		return
	}
	response.OK(c, w)
}

// Delete handles DELETE /api/webinars/:id (admin only).
func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	err := h.store.Delete(c.Request.Context(), id)
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, "webinar not found")
		return
	}
	if err != nil {
		h.logger.Error("delete webinar", zap.String("webinar_id", id.String()), zap.Error(err))
		response.Internal(c, "failed to delete webinar")
		return
	}
	response.NoContent(c)
}

// AudienceCount returns a handler reporting how many viewers are connected to the webinar's
// status feed on this instance.
func (h *Handler) AudienceCount(counter AudienceCounter) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		response.OK(c, gin.H{"webinar_id": id, "count": counter.AudienceCount(id)})
	}
}
