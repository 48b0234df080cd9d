// Package youtube provisions and drives YouTube Live broadcasts through the YouTube Data API v3.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/Israel70964/YadnusConsultant2/internal/platform"
)

// BroadcastStatus is a target lifecycle state accepted by the transition call.
type BroadcastStatus string

const (
	StatusTesting  BroadcastStatus = "testing"
	StatusLive     BroadcastStatus = "live"
	StatusComplete BroadcastStatus = "complete"
)

const watchURLPrefix = "https://www.youtube.com/watch?v="

// Config holds the OAuth application settings. Endpoint and HTTPClient are optional overrides.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Endpoint     string
	HTTPClient   *http.Client
}

// Credentials are the per-admin OAuth tokens obtained by the admin UI.
type Credentials struct {
	AccessToken  string `json:"youtubeAccessToken"`
	RefreshToken string `json:"youtubeRefreshToken,omitempty"`
}

// Broadcast is the subset of a live broadcast the rest of the system cares about.
type Broadcast struct {
	ID              string `json:"id"`
	WatchURL        string `json:"watchUrl"`
	LifeCycleStatus string `json:"lifeCycleStatus,omitempty"`
}

// Stream is an RTMP ingest endpoint.
type Stream struct {
	ID        string `json:"id"`
	IngestURL string `json:"rtmpUrl"`
	StreamKey string `json:"streamKey"`
}

// LiveStream is the result of provisioning a broadcast bound to an ingest stream.
type LiveStream struct {
	BroadcastID string
	StreamID    string
	WatchURL    string
	StreamKey   string
	RTMPURL     string
}

// Client builds per-credential sessions against the YouTube Data API.
type Client struct {
	oauth      *oauth2.Config
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates a YouTube client. Nothing is shared between sessions beyond the OAuth app config.
func New(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint:     google.Endpoint,
			Scopes:       []string{yt.YoutubeForceSslScope},
		},
		endpoint:   cfg.Endpoint,
		httpClient: cfg.HTTPClient,
		logger:     logger,
	}
}

// Session binds credentials to a YouTube service. Tokens carry no expiry so the transport never
// refreshes them; an expired access token surfaces as the platform's own 401.
func (c *Client) Session(ctx context.Context, creds Credentials) (*Session, error) {
	if creds.AccessToken == "" {
		return nil, &platform.MissingCredentialsError{Platform: platform.YouTube}
	}
	if c.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	}
	tok := &oauth2.Token{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		TokenType:    "Bearer",
	}
	opts := []option.ClientOption{option.WithHTTPClient(c.oauth.Client(ctx, tok))}
	if c.endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.endpoint))
	}
	svc, err := yt.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("youtube service: %w", err)
	}
	return &Session{svc: svc, logger: c.logger}, nil
}

// StartLiveStream provisions a broadcast and ingest stream for one webinar.
func (c *Client) StartLiveStream(ctx context.Context, creds Credentials, title, description string, start time.Time) (*LiveStream, error) {
	s, err := c.Session(ctx, creds)
	if err != nil {
		return nil, err
	}
	return s.StartLiveStream(ctx, title, description, start)
}

// Transition moves a broadcast to the target status using the given credentials.
func (c *Client) Transition(ctx context.Context, creds Credentials, broadcastID string, status BroadcastStatus) (*Broadcast, error) {
	s, err := c.Session(ctx, creds)
	if err != nil {
		return nil, err
	}
	return s.Transition(ctx, broadcastID, status)
}

func requestError(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		msg := gerr.Message
		if msg == "" {
			msg = http.StatusText(gerr.Code)
		}
		return &platform.PlatformRequestError{
			Platform:   platform.YouTube,
			Operation:  op,
			StatusCode: gerr.Code,
			Message:    msg,
		}
	}
	return fmt.Errorf("youtube %s: %w", op, err)
}
