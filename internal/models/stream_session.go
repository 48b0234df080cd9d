package models

import (
	"time"

	"github.com/google/uuid"
)

// StreamSession is one live run of a webinar, from start-stream to end-stream.
type StreamSession struct {
	ID               uuid.UUID  `json:"id"`
	WebinarID        uuid.UUID  `json:"webinar_id"`
	Platform         string     `json:"platform"`
	PlatformStreamID string     `json:"platform_stream_id"`
	StartedAt        time.Time  `json:"started_at"`
	EndedAt          *time.Time `json:"ended_at,omitempty"`
	StartedBy        *uuid.UUID `json:"started_by,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}
