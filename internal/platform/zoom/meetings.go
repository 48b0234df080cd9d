package zoom

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Settings are Zoom meeting settings keyed by their API field names.
type Settings map[string]any

// DefaultSettings is applied to every new meeting before caller overrides.
func DefaultSettings() Settings {
	return Settings{
		"join_before_host":   true,
		"waiting_room":       false,
		"participant_video":  true,
		"host_video":         true,
		"mute_upon_entry":    false,
		"email_notification": true,
	}
}

// MeetingRequest describes a meeting to create.
type MeetingRequest struct {
	Topic     string
	Duration  int // minutes
	StartTime time.Time
	Password  string
	Settings  Settings
}

// MeetingUpdate is a partial update; nil fields are left unchanged.
type MeetingUpdate struct {
	Topic     *string    `json:"topic,omitempty"`
	StartTime *time.Time `json:"start_time,omitempty"`
	Duration  *int       `json:"duration,omitempty"`
	Password  *string    `json:"password,omitempty"`
	Agenda    *string    `json:"agenda,omitempty"`
	Settings  Settings   `json:"settings,omitempty"`
}

// Meeting is a scheduled Zoom meeting as returned by the API.
type Meeting struct {
	ID        int64    `json:"id"`
	UUID      string   `json:"uuid,omitempty"`
	Topic     string   `json:"topic"`
	Type      int      `json:"type"`
	Status    string   `json:"status,omitempty"`
	StartTime string   `json:"start_time,omitempty"`
	Duration  int      `json:"duration"`
	Timezone  string   `json:"timezone,omitempty"`
	JoinURL   string   `json:"join_url"`
	StartURL  string   `json:"start_url"`
	Password  string   `json:"password,omitempty"`
	Settings  Settings `json:"settings,omitempty"`
}

// IDString returns the meeting id in the form used in API paths.
func (m *Meeting) IDString() string {
	return strconv.FormatInt(m.ID, 10)
}

// DeleteResult reports a completed deletion.
type DeleteResult struct {
	Success bool `json:"success"`
}

type createMeetingBody struct {
	Topic     string   `json:"topic"`
	Type      int      `json:"type"`
	StartTime string   `json:"start_time"`
	Duration  int      `json:"duration"`
	Timezone  string   `json:"timezone"`
	Password  string   `json:"password,omitempty"`
	Settings  Settings `json:"settings"`
}

// CreateMeeting creates a scheduled meeting for the account owner. Caller settings override
// DefaultSettings key by key.
func (c *Client) CreateMeeting(ctx context.Context, req MeetingRequest) (*Meeting, error) {
	settings := DefaultSettings()
	for k, v := range req.Settings {
		settings[k] = v
	}
	body := createMeetingBody{
		Topic:     req.Topic,
		Type:      meetingTypeScheduled,
		StartTime: req.StartTime.UTC().Format(time.RFC3339),
		Duration:  req.Duration,
		Timezone:  "UTC",
		Password:  req.Password,
		Settings:  settings,
	}
	var m Meeting
	if err := c.do(ctx, "createMeeting", http.MethodPost, "/users/me/meetings", body, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// UpdateMeeting patches an existing meeting.
func (c *Client) UpdateMeeting(ctx context.Context, id string, patch MeetingUpdate) error {
	return c.do(ctx, "updateMeeting", http.MethodPatch, meetingPath(id), patch, nil)
}

// DeleteMeeting permanently removes a meeting. Zoom offers no way to restore it.
func (c *Client) DeleteMeeting(ctx context.Context, id string) (*DeleteResult, error) {
	if err := c.do(ctx, "deleteMeeting", http.MethodDelete, meetingPath(id), nil, nil); err != nil {
		return nil, err
	}
	return &DeleteResult{Success: true}, nil
}

// GetMeeting fetches the current state of a meeting.
func (c *Client) GetMeeting(ctx context.Context, id string) (*Meeting, error) {
	var m Meeting
	if err := c.do(ctx, "getMeeting", http.MethodGet, meetingPath(id), nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func meetingPath(id string) string {
	return "/meetings/" + url.PathEscape(id)
}
