package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// StreamingStatus is the live-stream lifecycle of a webinar.
type StreamingStatus string

const (
	StreamingScheduled StreamingStatus = "scheduled"
	StreamingLive      StreamingStatus = "live"
	StreamingEnded     StreamingStatus = "ended"
)

// Webinar is a scheduled session, optionally streamed through YouTube Live or Zoom.
type Webinar struct {
	ID                uuid.UUID       `json:"id"`
	Title             string          `json:"title"`
	Description       string          `json:"description"`
	Date              time.Time       `json:"date"`
	Speakers          json.RawMessage `json:"speakers,omitempty"`
	VideoURL          string          `json:"videoUrl,omitempty"`
	ThumbnailURL      string          `json:"thumbnailUrl,omitempty"`
	IsLive            bool            `json:"isLive"`
	RegistrationCount int             `json:"registrationCount"`
	ChatEnabled       bool            `json:"chatEnabled"`
	RecordingEnabled  bool            `json:"recordingEnabled"`
	MaxAttendees      int             `json:"maxAttendees"`

	StreamingPlatform string          `json:"streamingPlatform,omitempty"`
	StreamingStatus   StreamingStatus `json:"streamingStatus"`
	YouTubeLiveID     string          `json:"youtubeLiveId,omitempty"`
	YouTubeStreamKey  string          `json:"youtubeStreamKey,omitempty"`
	ZoomMeetingID     string          `json:"zoomMeetingId,omitempty"`
	ZoomPassword      string          `json:"zoomPassword,omitempty"`
	// StreamMetadata is the setup result exactly as returned to the admin; never parsed on write.
	StreamMetadata json.RawMessage `json:"streamMetadata,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// WebinarPublic is the view served to anonymous visitors. Stream keys, meeting passwords and
// host start links are never included.
type WebinarPublic struct {
	ID                uuid.UUID       `json:"id"`
	Title             string          `json:"title"`
	Description       string          `json:"description"`
	Date              time.Time       `json:"date"`
	Speakers          json.RawMessage `json:"speakers,omitempty"`
	VideoURL          string          `json:"videoUrl,omitempty"`
	ThumbnailURL      string          `json:"thumbnailUrl,omitempty"`
	IsLive            bool            `json:"isLive"`
	RegistrationCount int             `json:"registrationCount"`
	ChatEnabled       bool            `json:"chatEnabled"`
	MaxAttendees      int             `json:"maxAttendees"`
	StreamingPlatform string          `json:"streamingPlatform,omitempty"`
	StreamingStatus   StreamingStatus `json:"streamingStatus"`
	WatchURL          string          `json:"watchUrl,omitempty"`
	JoinURL           string          `json:"joinUrl,omitempty"`
}

// Public strips secrets and exposes only the audience-facing links from the stream metadata.
func (w *Webinar) Public() WebinarPublic {
	p := WebinarPublic{
		ID:                w.ID,
		Title:             w.Title,
		Description:       w.Description,
		Date:              w.Date,
		Speakers:          w.Speakers,
		VideoURL:          w.VideoURL,
		ThumbnailURL:      w.ThumbnailURL,
		IsLive:            w.IsLive,
		RegistrationCount: w.RegistrationCount,
		ChatEnabled:       w.ChatEnabled,
		MaxAttendees:      w.MaxAttendees,
		StreamingPlatform: w.StreamingPlatform,
		StreamingStatus:   w.StreamingStatus,
	}
	if len(w.StreamMetadata) > 0 {
		var links struct {
			WatchURL string `json:"watchUrl"`
			JoinURL  string `json:"joinUrl"`
		}
		if json.Unmarshal(w.StreamMetadata, &links) == nil {
			p.WatchURL = links.WatchURL
			p.JoinURL = links.JoinURL
		}
	}
	return p
}
