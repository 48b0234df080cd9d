package submissions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Israel70964/YadnusConsultant2/internal/models"
	"github.com/Israel70964/YadnusConsultant2/internal/webinars"
	"github.com/Israel70964/YadnusConsultant2/pkg/response"
	"github.com/Israel70964/YadnusConsultant2/pkg/storage"
)

// FormField is the multipart field that carries project inquiry files.
const FormField = "attachments"

// Store is the submissions persistence used by the handler.
type Store interface {
	Create(ctx context.Context, typ models.SubmissionType, payload []byte, attachments []string) (*models.Submission, error)
	CreateSignup(ctx context.Context, webinarID uuid.UUID, payload []byte) (*models.Submission, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Submission, error)
	List(ctx context.Context, typ models.SubmissionType) ([]models.Submission, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Webinars looks up signup targets.
type Webinars interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Webinar, error)
}

// Attachments stores project inquiry files.
type Attachments interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	PresignDownload(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// Notifier queues the emails that follow a submission.
type Notifier interface {
	ContactReceived(ctx context.Context, submissionID uuid.UUID, form models.ContactForm) error
	WebinarSignup(ctx context.Context, submissionID uuid.UUID, w *models.Webinar, signup models.WebinarSignup) error
	ProjectInquiry(ctx context.Context, submissionID uuid.UUID, inq models.ProjectInquiry, attachments int) error
}

// AttachmentLink is a time-limited download URL for one stored file.
type AttachmentLink struct {
	Key       string    `json:"key"`
	Filename  string    `json:"filename"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Handler handles the public forms and the admin submissions endpoints.
type Handler struct {
	store    Store
	webinars Webinars
	files    Attachments
	notifier Notifier
	expiry   time.Duration
	maxSize  int64
	maxFiles int
	now      func() time.Time
	logger   *zap.Logger
}

// NewHandler creates a submissions handler. files may be nil when attachment storage is not
// configured; project inquiries with files are then refused.
func NewHandler(store Store, webinars Webinars, files Attachments, notifier Notifier, expiry time.Duration, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		store:    store,
		webinars: webinars,
		files:    files,
		notifier: notifier,
		expiry:   expiry,
		maxSize:  storage.MaxAttachmentSize,
		now:      time.Now,
		logger:   logger,
	}
}

// SetLimits overrides the per-file size limit and the number of files per inquiry.
// Non-positive values keep the defaults (10MB, unlimited).
func (h *Handler) SetLimits(maxSize int64, maxFiles int) {
	if maxSize > 0 {
		h.maxSize = maxSize
	}
	if maxFiles > 0 {
		h.maxFiles = maxFiles
	}
}

// Contact handles POST /api/contact.
func (h *Handler) Contact(c *gin.Context) {
	var form models.ContactForm
	if err := c.ShouldBindJSON(&form); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	sub, ok := h.save(c, models.SubmissionContact, form, nil)
	if !ok {
		return
	}
	if err := h.notifier.ContactReceived(c.Request.Context(), sub.ID, form); err != nil {
		h.logger.Warn("contact notification", zap.String("submission_id", sub.ID.String()), zap.Error(err))
	}
	response.Created(c, gin.H{"id": sub.ID, "message": "Contact form submitted successfully"})
}

// WebinarSignup handles POST /api/webinar-signup.
func (h *Handler) WebinarSignup(c *gin.Context) {
	var form models.WebinarSignup
	if err := c.ShouldBindJSON(&form); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	webinarID, err := uuid.Parse(form.WebinarID)
	if err != nil {
		response.BadRequest(c, "invalid webinar id")
		return
	}
	ctx := c.Request.Context()
	w, err := h.webinars.GetByID(ctx, webinarID)
	if errors.Is(err, webinars.ErrNotFound) {
		response.NotFound(c, "Webinar not found")
		return
	}
	if err != nil {
		h.logger.Error("get webinar for signup", zap.String("webinar_id", webinarID.String()), zap.Error(err))
		response.Internal(c, "Failed to register for webinar")
		return
	}

	payload, err := json.Marshal(form)
	if err != nil {
		response.Internal(c, "failed to encode submission")
		return
	}
	sub, err := h.store.CreateSignup(ctx, webinarID, payload)
	if errors.Is(err, webinars.ErrNotFound) {
		response.NotFound(c, "Webinar not found")
		return
	}
	if err != nil {
		h.logger.Error("create webinar signup", zap.String("webinar_id", webinarID.String()), zap.Error(err))
		response.Internal(c, "Failed to register for webinar")
		return
	}
	if err := h.notifier.WebinarSignup(ctx, sub.ID, w, form); err != nil {
		h.logger.Warn("webinar confirmation", zap.String("submission_id", sub.ID.String()), zap.Error(err))
	}
	response.Created(c, gin.H{"id": sub.ID, "message": "Webinar registration successful"})
}

// ProjectInquiry handles POST /api/project-inquiry (multipart, files under "attachments").
func (h *Handler) ProjectInquiry(c *gin.Context) {
	var form models.ProjectInquiry
	if err := c.ShouldBind(&form); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	var files []*multipart.FileHeader
	if mf, err := c.MultipartForm(); err == nil {
		files = mf.File[FormField]
	}
	if h.maxFiles > 0 && len(files) > h.maxFiles {
		response.BadRequest(c, fmt.Sprintf("at most %d attachments are allowed", h.maxFiles))
		return
	}
	for _, fh := range files {
		if fh.Size > h.maxSize {
			response.BadRequest(c, fmt.Sprintf("%s exceeds the %d MB limit", fh.Filename, h.maxSize>>20))
			return
		}
		if !storage.ValidateAttachment(fh.Filename) {
			response.BadRequest(c, fmt.Sprintf("%s: file type not allowed", fh.Filename))
			return
		}
	}
	if len(files) > 0 && h.files == nil {
		response.ServiceUnavailable(c, "file uploads are not configured")
		return
	}

	ctx := c.Request.Context()
	keys := make([]string, 0, len(files))
	for _, fh := range files {
		key, err := h.upload(ctx, fh)
		if err != nil {
			h.logger.Error("upload attachment", zap.String("filename", fh.Filename), zap.Error(err))
			h.removeAll(ctx, keys)
			response.Internal(c, "Failed to submit project inquiry")
			return
		}
		keys = append(keys, key)
	}

	sub, ok := h.save(c, models.SubmissionProject, form, keys)
	if !ok {
		h.removeAll(ctx, keys)
		return
	}
	if err := h.notifier.ProjectInquiry(ctx, sub.ID, form, len(keys)); err != nil {
		h.logger.Warn("project inquiry notification", zap.String("submission_id", sub.ID.String()), zap.Error(err))
	}
	response.Created(c, gin.H{"id": sub.ID, "message": "Project inquiry submitted successfully"})
}

func (h *Handler) upload(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	key := storage.AttachmentKey(h.now(), fh.Filename)
	if err := h.files.Upload(ctx, key, storage.ContentTypeForFilename(fh.Filename), f, fh.Size); err != nil {
		return "", err
	}
	return key, nil
}

func (h *Handler) removeAll(ctx context.Context, keys []string) {
	for _, k := range keys {
		if err := h.files.Delete(ctx, k); err != nil {
			h.logger.Warn("delete attachment", zap.String("key", k), zap.Error(err))
		}
	}
}

func (h *Handler) save(c *gin.Context, typ models.SubmissionType, form any, keys []string) (*models.Submission, bool) {
	payload, err := json.Marshal(form)
	if err != nil {
		response.Internal(c, "failed to encode submission")
		return nil, false
	}
	sub, err := h.store.Create(c.Request.Context(), typ, payload, keys)
	if err != nil {
		h.logger.Error("create submission", zap.String("type", string(typ)), zap.Error(err))
		response.Internal(c, "failed to save submission")
		return nil, false
	}
	return sub, true
}

// List handles GET /api/admin/submissions?type=.
func (h *Handler) List(c *gin.Context) {
	typ := models.SubmissionType(c.Query("type"))
	switch typ {
	case "", models.SubmissionContact, models.SubmissionWebinar, models.SubmissionProject:
	default:
		response.BadRequest(c, "invalid submission type")
		return
	}
	list, err := h.store.List(c.Request.Context(), typ)
	if err != nil {
		h.logger.Error("list submissions", zap.Error(err))
		response.Internal(c, "Failed to fetch submissions")
		return
	}
	response.OK(c, list)
}

// Delete handles DELETE /api/admin/submissions/:id. Stored attachments are removed too.
func (h *Handler) Delete(c *gin.Context) {
	sub, ok := h.load(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if err := h.store.Delete(ctx, sub.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "submission not found")
			return
		}
		h.logger.Error("delete submission", zap.String("submission_id", sub.ID.String()), zap.Error(err))
		response.Internal(c, "Failed to delete submission")
		return
	}
	if h.files != nil {
		h.removeAll(ctx, sub.Attachments)
	}
	response.OK(c, gin.H{"success": true})
}

// AttachmentLinks handles GET /api/admin/submissions/:id/attachments.
func (h *Handler) AttachmentLinks(c *gin.Context) {
	sub, ok := h.load(c)
	if !ok {
		return
	}
	links := make([]AttachmentLink, 0, len(sub.Attachments))
	if len(sub.Attachments) > 0 && h.files == nil {
		response.ServiceUnavailable(c, "file storage is not configured")
		return
	}
	expires := h.now().Add(h.expiry).UTC()
	for _, key := range sub.Attachments {
		url, err := h.files.PresignDownload(c.Request.Context(), key)
		if err != nil {
			h.logger.Error("presign attachment", zap.String("key", key), zap.Error(err))
			response.Internal(c, "failed to sign attachment url")
			return
		}
		links = append(links, AttachmentLink{Key: key, Filename: originalName(key), URL: url, ExpiresAt: expires})
	}
	response.OK(c, links)
}

func (h *Handler) load(c *gin.Context) (*models.Submission, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid submission id")
		return nil, false
	}
	sub, err := h.store.GetByID(c.Request.Context(), id)
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, "submission not found")
		return nil, false
	}
	if err != nil {
		h.logger.Error("get submission", zap.String("submission_id", id.String()), zap.Error(err))
		response.Internal(c, "failed to fetch submission")
		return nil, false
	}
	return sub, true
}

// originalName strips the folder and the random prefix AttachmentKey adds.
func originalName(key string) string {
	base := path.Base(key)
	if _, name, ok := strings.Cut(base, "-"); ok {
		return name
	}
	return base
}
