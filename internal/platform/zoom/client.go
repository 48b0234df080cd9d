// Package zoom manages scheduled Zoom meetings using an account-level client-credentials app.
package zoom

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/Israel70964/YadnusConsultant2/internal/platform"
)

const (
	DefaultBaseURL  = "https://api.zoom.us/v2"
	DefaultTokenURL = "https://zoom.us/oauth/token"

	meetingTypeScheduled = 2
)

// Config holds the server-to-server OAuth app credentials. BaseURL, TokenURL and HTTPClient
// default to the production endpoints and http.DefaultClient.
type Config struct {
	ClientID     string
	ClientSecret string
	AccountID    string
	BaseURL      string
	TokenURL     string
	HTTPClient   *http.Client
	// CacheToken reuses a bearer token until it expires instead of fetching one per call.
	CacheToken bool
}

// Client talks to the Zoom REST API v2.
type Client struct {
	creds      *clientcredentials.Config
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger

	// cached is set when tokens are reused until expiry.
	cached oauth2.TokenSource
}

// New creates a Zoom client.
func New(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &Client{
		creds: &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
			EndpointParams: url.Values{
				"grant_type": {"account_credentials"},
				"account_id": {cfg.AccountID},
			},
		},
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
	if cfg.CacheToken {
		c.cached = c.creds.TokenSource(context.WithValue(context.Background(), oauth2.HTTPClient, httpClient))
	}
	return c
}

// AccessToken exchanges the app credentials for a bearer token. Without CacheToken every call
// performs a fresh exchange.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	var (
		tok *oauth2.Token
		err error
	)
	if c.cached != nil {
		tok, err = c.cached.Token()
	} else {
		tok, err = c.creds.Token(context.WithValue(ctx, oauth2.HTTPClient, c.httpClient))
	}
	if err != nil {
		return "", tokenError(err)
	}
	return tok.AccessToken, nil
}

// do performs an authenticated JSON request and decodes a 2xx body into out when out is non-nil.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return err
	}
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("zoom %s: marshal body: %w", op, err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("zoom %s: new request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("zoom %s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return responseError(op, resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("zoom %s: decode response: %w", op, err)
	}
	return nil
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Reason  string `json:"reason"`
	Error   string `json:"error"`
}

func (e apiError) text() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Reason != "":
		return e.Reason
	default:
		return e.Error
	}
}

func responseError(op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body apiError
	_ = json.Unmarshal(raw, &body)
	msg := body.text()
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &platform.PlatformRequestError{
		Platform:   platform.Zoom,
		Operation:  op,
		StatusCode: resp.StatusCode,
		Message:    msg,
	}
}

func tokenError(err error) error {
	var rerr *oauth2.RetrieveError
	if !errors.As(err, &rerr) {
		return fmt.Errorf("zoom token: %w", err)
	}
	var body apiError
	_ = json.Unmarshal(rerr.Body, &body)
	msg := body.text()
	if msg == "" {
		msg = rerr.ErrorDescription
	}
	if msg == "" && rerr.Response != nil {
		msg = http.StatusText(rerr.Response.StatusCode)
	}
	code := 0
	if rerr.Response != nil {
		code = rerr.Response.StatusCode
	}
	return &platform.PlatformRequestError{
		Platform:   platform.Zoom,
		Operation:  "token",
		StatusCode: code,
		Message:    msg,
	}
}
