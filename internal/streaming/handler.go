package streaming

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Israel70964/YadnusConsultant2/internal/middleware"
	"github.com/Israel70964/YadnusConsultant2/internal/models"
	"github.com/Israel70964/YadnusConsultant2/internal/platform"
	"github.com/Israel70964/YadnusConsultant2/internal/platform/youtube"
	"github.com/Israel70964/YadnusConsultant2/internal/platform/zoom"
	"github.com/Israel70964/YadnusConsultant2/internal/webinars"
	"github.com/Israel70964/YadnusConsultant2/pkg/response"
)

// EventStreamStatus is published to a webinar's channel after every setup, start and end.
const EventStreamStatus = "stream_status"

// WebinarStore reads webinars and records streaming changes on them.
type WebinarStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Webinar, error)
	SaveStreamSetup(ctx context.Context, id uuid.UUID, s models.StreamSetup) error
	SetStreamingStatus(ctx context.Context, id uuid.UUID, status models.StreamingStatus, isLive bool) error
}

// SessionLog keeps the history of live runs.
type SessionLog interface {
	Open(ctx context.Context, webinarID uuid.UUID, platform, platformStreamID string, startedBy *uuid.UUID) error
	Close(ctx context.Context, webinarID uuid.UUID) error
}

// EventPublisher fans webinar events out to connected viewers.
type EventPublisher interface {
	PublishWebinarEvent(ctx context.Context, webinarID uuid.UUID, event string, payload []byte) error
}

// StatusEvent is the payload of EventStreamStatus.
type StatusEvent struct {
	WebinarID uuid.UUID              `json:"webinarId"`
	Platform  string                 `json:"platform"`
	Status    models.StreamingStatus `json:"status"`
	IsLive    bool                   `json:"isLive"`
	WatchURL  string                 `json:"watchUrl,omitempty"`
	JoinURL   string                 `json:"joinUrl,omitempty"`
	At        time.Time              `json:"at"`
}

// ZoomSetupRequest is the body for POST /api/webinars/:id/setup-zoom.
type ZoomSetupRequest struct {
	Password string        `json:"password"`
	Settings zoom.Settings `json:"settings"`
}

// Handler serves the streaming routes of a webinar.
type Handler struct {
	svc      *Service
	store    WebinarStore
	sessions SessionLog
	events   EventPublisher
	logger   *zap.Logger
}

// NewHandler creates a streaming handler. sessions and events may be nil.
func NewHandler(svc *Service, store WebinarStore, sessions SessionLog, events EventPublisher, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, store: store, sessions: sessions, events: events, logger: logger}
}

// SetupYouTube handles POST /api/webinars/:id/setup-youtube.
// Body: {"youtubeAccessToken": "...", "youtubeRefreshToken": "..."}; the access token is required.
func (h *Handler) SetupYouTube(c *gin.Context) {
	w, ok := h.load(c)
	if !ok {
		return
	}
	var creds youtube.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, "invalid request body")
		return
	}
	if creds.AccessToken == "" {
		response.BadRequest(c, "youtubeAccessToken is required")
		return
	}
	if w.StreamingStatus == models.StreamingLive {
		response.Conflict(c, "cannot set up a stream while the webinar is live")
		return
	}
	ctx := c.Request.Context()
	setup, err := h.svc.SetupYoutubeLive(ctx, webinarFields(w), creds)
	if err != nil {
		h.platformError(c, w.ID, "setup youtube", err, "Failed to setup YouTube Live stream")
		return
	}
	ok = h.persistSetup(c, w.ID, setup, models.StreamSetup{
		Platform:         setup.Platform,
		YouTubeLiveID:    setup.BroadcastID,
		YouTubeStreamKey: setup.StreamKey,
	})
	if !ok {
		return
	}
	h.publish(ctx, StatusEvent{WebinarID: w.ID, Platform: setup.Platform, Status: models.StreamingScheduled, WatchURL: setup.WatchURL})
	response.OK(c, setup)
}

// SetupZoom handles POST /api/webinars/:id/setup-zoom.
func (h *Handler) SetupZoom(c *gin.Context) {
	w, ok := h.load(c)
	if !ok {
		return
	}
	var req ZoomSetupRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, "invalid request body")
		return
	}
	if w.StreamingStatus == models.StreamingLive {
		response.Conflict(c, "cannot set up a stream while the webinar is live")
		return
	}
	ctx := c.Request.Context()
	setup, err := h.svc.SetupZoomMeeting(ctx, webinarFields(w), req.Password, req.Settings)
	if err != nil {
		h.platformError(c, w.ID, "setup zoom", err, "Failed to setup Zoom meeting")
		return
	}
	ok = h.persistSetup(c, w.ID, setup, models.StreamSetup{
		Platform:      setup.Platform,
		ZoomMeetingID: setup.MeetingID,
		ZoomPassword:  setup.Password,
	})
	if !ok {
		return
	}
	h.publish(ctx, StatusEvent{WebinarID: w.ID, Platform: setup.Platform, Status: models.StreamingScheduled, JoinURL: setup.JoinURL})
	response.OK(c, setup)
}

// Start handles POST /api/webinars/:id/start-stream.
//
// Body for YouTube: {"youtubeAccessToken": "..."}, the admin's token; the server keeps no
// YouTube credentials between requests. Body for Zoom: {} or empty.
func (h *Handler) Start(c *gin.Context) {
	w, p, id, creds, ok := h.prepare(c, "start", CanStart)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	res, err := h.svc.StartLiveStream(ctx, p, id, creds)
	if err != nil {
		h.platformError(c, w.ID, "start stream", err, "Failed to start live stream")
		return
	}
	if err := h.store.SetStreamingStatus(ctx, w.ID, models.StreamingLive, true); err != nil {
		h.logger.Error("mark webinar live", zap.String("webinar_id", w.ID.String()), zap.Error(err))
		response.Internal(c, "failed to update webinar status")
		return
	}
	if h.sessions != nil && w.StreamingStatus != models.StreamingLive {
		if err := h.sessions.Open(ctx, w.ID, string(p), id, currentUser(c)); err != nil {
			h.logger.Warn("open stream session", zap.String("webinar_id", w.ID.String()), zap.Error(err))
		}
	}
	pub := w.Public()
	h.publish(ctx, StatusEvent{WebinarID: w.ID, Platform: string(p), Status: models.StreamingLive, IsLive: true, WatchURL: pub.WatchURL, JoinURL: pub.JoinURL})
	response.OK(c, res)
}

// End handles POST /api/webinars/:id/end-stream. The body is the same as for Start.
// Ending a Zoom webinar deletes its meeting.
func (h *Handler) End(c *gin.Context) {
	w, p, id, creds, ok := h.prepare(c, "end", CanEnd)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	res, err := h.svc.EndLiveStream(ctx, p, id, creds)
	if err != nil {
		h.platformError(c, w.ID, "end stream", err, "Failed to end live stream")
		return
	}
	if err := h.store.SetStreamingStatus(ctx, w.ID, models.StreamingEnded, false); err != nil {
		h.logger.Error("mark webinar ended", zap.String("webinar_id", w.ID.String()), zap.Error(err))
		response.Internal(c, "failed to update webinar status")
		return
	}
	if h.sessions != nil {
		if err := h.sessions.Close(ctx, w.ID); err != nil {
			h.logger.Warn("close stream session", zap.String("webinar_id", w.ID.String()), zap.Error(err))
		}
	}
	h.publish(ctx, StatusEvent{WebinarID: w.ID, Platform: string(p), Status: models.StreamingEnded})
	response.OK(c, res)
}

// prepare loads the webinar and checks it can be started or ended. YouTube needs the admin's
// access token in the body; Zoom needs nothing.
func (h *Handler) prepare(c *gin.Context, action string, allowed func(models.StreamingStatus) bool) (*models.Webinar, platform.Platform, string, youtube.Credentials, bool) {
	var creds youtube.Credentials
	w, ok := h.load(c)
	if !ok {
		return nil, "", "", creds, false
	}
	if err := c.ShouldBindJSON(&creds); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, "invalid request body")
		return nil, "", "", creds, false
	}
	p, id := streamTarget(w)
	if p == platform.None || id == "" {
		response.BadRequest(c, "Stream not configured")
		return nil, "", "", creds, false
	}
	if err := checkTransition(action, w.StreamingStatus, allowed); err != nil {
		response.Conflict(c, err.Error())
		return nil, "", "", creds, false
	}
	if p == platform.YouTube && creds.AccessToken == "" {
		response.BadRequest(c, "youtubeAccessToken is required")
		return nil, "", "", creds, false
	}
	return w, p, id, creds, true
}

// streamTarget returns the platform and the id the platform knows the stream by.
func streamTarget(w *models.Webinar) (platform.Platform, string) {
	p := platform.ParsePlatform(w.StreamingPlatform)
	switch p {
	case platform.YouTube:
		return p, w.YouTubeLiveID
	case platform.Zoom:
		return p, w.ZoomMeetingID
	default:
		return platform.None, ""
	}
}

func (h *Handler) load(c *gin.Context) (*models.Webinar, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid webinar id")
		return nil, false
	}
	w, err := h.store.GetByID(c.Request.Context(), id)
	if errors.Is(err, webinars.ErrNotFound) {
		response.NotFound(c, "Webinar not found")
		return nil, false
	}
	if err != nil {
		h.logger.Error("get webinar", zap.String("webinar_id", id.String()), zap.Error(err))
		response.Internal(c, "failed to fetch webinar")
		return nil, false
	}
	return w, true
}

func (h *Handler) persistSetup(c *gin.Context, id uuid.UUID, result any, s models.StreamSetup) bool {
	meta, err := json.Marshal(result)
	if err != nil {
		h.logger.Error("encode stream metadata", zap.String("webinar_id", id.String()), zap.Error(err))
		response.Internal(c, "failed to save stream setup")
		return false
	}
	s.Metadata = meta
	if err := h.store.SaveStreamSetup(c.Request.Context(), id, s); err != nil {
		h.logger.Error("save stream setup", zap.String("webinar_id", id.String()), zap.String("platform", s.Platform), zap.Error(err))
		response.Internal(c, "failed to save stream setup")
		return false
	}
	return true
}

// platformError logs the full error and answers with msg. Missing credentials are the caller's
// fault; everything else is a 500.
func (h *Handler) platformError(c *gin.Context, webinarID uuid.UUID, op string, err error, msg string) {
	fields := []zap.Field{zap.String("webinar_id", webinarID.String()), zap.Error(err)}
	if reqErr, ok := platform.AsRequestError(err); ok {
		fields = append(fields, zap.String("platform", string(reqErr.Platform)), zap.Int("upstream_status", reqErr.StatusCode))
	}
	switch {
	case platform.IsMissingCredentials(err):
		response.BadRequest(c, "youtubeAccessToken is required")
	case errors.Is(err, ErrNoPlatform):
		response.BadRequest(c, "Stream not configured")
	default:
		h.logger.Error(op, fields...)
		response.Internal(c, msg)
	}
}

func (h *Handler) publish(ctx context.Context, ev StatusEvent) {
	if h.events == nil {
		return
	}
	ev.At = time.Now().UTC()
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := h.events.PublishWebinarEvent(ctx, ev.WebinarID, EventStreamStatus, payload); err != nil {
		h.logger.Warn("publish stream status", zap.String("webinar_id", ev.WebinarID.String()), zap.Error(err))
	}
}

func webinarFields(w *models.Webinar) WebinarFields {
	return WebinarFields{Title: w.Title, Description: w.Description, Date: w.Date}
}

func currentUser(c *gin.Context) *uuid.UUID {
	v, ok := c.Get(middleware.ContextUserID)
	if !ok {
		return nil
	}
	id, ok := v.(uuid.UUID)
	if !ok {
		return nil
	}
	return &id
}
