// Package streaming is the single entry point for provisioning and driving a webinar's live
// stream. It hides which platform is in play from the HTTP layer.
package streaming

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Israel70964/YadnusConsultant2/internal/metrics"
	"github.com/Israel70964/YadnusConsultant2/internal/platform"
	"github.com/Israel70964/YadnusConsultant2/internal/platform/youtube"
	"github.com/Israel70964/YadnusConsultant2/internal/platform/zoom"
)

// ZoomMeetingDuration is the length, in minutes, of every meeting created at setup.
const ZoomMeetingDuration = 60

// ErrNoPlatform is returned when a start or end is requested for a webinar without a platform.
var ErrNoPlatform = errors.New("stream not configured")

// YouTube is the subset of the YouTube client used by the service.
type YouTube interface {
	StartLiveStream(ctx context.Context, creds youtube.Credentials, title, description string, start time.Time) (*youtube.LiveStream, error)
	Transition(ctx context.Context, creds youtube.Credentials, broadcastID string, status youtube.BroadcastStatus) (*youtube.Broadcast, error)
}

// Zoom is the subset of the Zoom client used by the service.
type Zoom interface {
	CreateMeeting(ctx context.Context, req zoom.MeetingRequest) (*zoom.Meeting, error)
	GetMeeting(ctx context.Context, id string) (*zoom.Meeting, error)
	DeleteMeeting(ctx context.Context, id string) (*zoom.DeleteResult, error)
}

// WebinarFields are the webinar attributes copied onto the platform event.
type WebinarFields struct {
	Title       string
	Description string
	Date        time.Time
}

// YouTubeSetup is returned by a successful YouTube setup and stored as the stream metadata.
type YouTubeSetup struct {
	Platform    string `json:"platform"`
	BroadcastID string `json:"broadcastId"`
	StreamID    string `json:"streamId"`
	WatchURL    string `json:"watchUrl"`
	StreamKey   string `json:"streamKey"`
	RTMPURL     string `json:"rtmpUrl"`
}

// ZoomSetup is returned by a successful Zoom setup and stored as the stream metadata.
type ZoomSetup struct {
	Platform      string `json:"platform"`
	MeetingID     string `json:"meetingId"`
	JoinURL       string `json:"joinUrl"`
	StartURL      string `json:"startUrl"`
	Password      string `json:"password,omitempty"`
	MeetingNumber int64  `json:"meetingNumber"`
}

// Service dispatches streaming operations to the configured platform client.
type Service struct {
	youtube YouTube
	zoom    Zoom
	logger  *zap.Logger
	metrics *metrics.Platform
}

// NewService creates a streaming service. metrics may be nil.
func NewService(yt YouTube, zm Zoom, logger *zap.Logger, m *metrics.Platform) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{youtube: yt, zoom: zm, logger: logger, metrics: m}
}

// SetupYoutubeLive provisions a broadcast bound to an RTMP ingest stream. The credentials are
// used for this call only.
func (s *Service) SetupYoutubeLive(ctx context.Context, w WebinarFields, creds youtube.Credentials) (*YouTubeSetup, error) {
	start := time.Now()
	ls, err := s.youtube.StartLiveStream(ctx, creds, w.Title, w.Description, w.Date)
	s.metrics.Observe(string(platform.YouTube), "setup", start, err)
	if err != nil {
		return nil, fmt.Errorf("YouTube Live setup failed: %w", err)
	}
	return &YouTubeSetup{
		Platform:    string(platform.YouTube),
		BroadcastID: ls.BroadcastID,
		StreamID:    ls.StreamID,
		WatchURL:    ls.WatchURL,
		StreamKey:   ls.StreamKey,
		RTMPURL:     ls.RTMPURL,
	}, nil
}

// SetupZoomMeeting creates a scheduled meeting of ZoomMeetingDuration minutes. settings
// override the client's defaults key by key.
func (s *Service) SetupZoomMeeting(ctx context.Context, w WebinarFields, password string, settings zoom.Settings) (*ZoomSetup, error) {
	start := time.Now()
	m, err := s.zoom.CreateMeeting(ctx, zoom.MeetingRequest{
		Topic:     w.Title,
		Duration:  ZoomMeetingDuration,
		StartTime: w.Date,
		Password:  password,
		Settings:  settings,
	})
	s.metrics.Observe(string(platform.Zoom), "setup", start, err)
	if err != nil {
		return nil, fmt.Errorf("Zoom meeting setup failed: %w", err)
	}
	pw := m.Password
	if pw == "" {
		pw = password
	}
	return &ZoomSetup{
		Platform:      string(platform.Zoom),
		MeetingID:     m.IDString(),
		JoinURL:       m.JoinURL,
		StartURL:      m.StartURL,
		Password:      pw,
		MeetingNumber: m.ID,
	}, nil
}

// StartLiveStream moves a YouTube broadcast to live. For Zoom it only reads the meeting:
// a Zoom meeting starts when the host joins, not through the API.
func (s *Service) StartLiveStream(ctx context.Context, p platform.Platform, id string, creds youtube.Credentials) (any, error) {
	start := time.Now()
	var (
		res any
		err error
	)
	switch p {
	case platform.YouTube:
		res, err = s.youtube.Transition(ctx, creds, id, youtube.StatusLive)
	case platform.Zoom:
		res, err = s.zoom.GetMeeting(ctx, id)
	default:
		return nil, ErrNoPlatform
	}
	s.metrics.Observe(string(p), "start", start, err)
	if err != nil {
		return nil, fmt.Errorf("start live stream: %w", err)
	}
	return res, nil
}

// EndLiveStream completes a YouTube broadcast. For Zoom it DELETES the meeting; the join and
// start links stop working and the meeting cannot be restored.
func (s *Service) EndLiveStream(ctx context.Context, p platform.Platform, id string, creds youtube.Credentials) (any, error) {
	start := time.Now()
	var (
		res any
		err error
	)
	switch p {
	case platform.YouTube:
		res, err = s.youtube.Transition(ctx, creds, id, youtube.StatusComplete)
	case platform.Zoom:
		res, err = s.zoom.DeleteMeeting(ctx, id)
		if err == nil {
			s.logger.Info("zoom meeting deleted on end", zap.String("meeting_id", id))
		}
	default:
		return nil, ErrNoPlatform
	}
	s.metrics.Observe(string(p), "end", start, err)
	if err != nil {
		return nil, fmt.Errorf("end live stream: %w", err)
	}
	return res, nil
}
