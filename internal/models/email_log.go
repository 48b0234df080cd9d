package models

import (
	"time"

	"github.com/google/uuid"
)

// EmailType for notifications.
const (
	EmailTypeContactNotification = "contact_notification"
	EmailTypeWebinarConfirmation = "webinar_confirmation"
	EmailTypeProjectNotification = "project_inquiry_notification"
)

// EmailLogStatus for delivery.
const (
	EmailLogStatusPending = "pending"
	EmailLogStatusSent    = "sent"
	EmailLogStatusFailed  = "failed"
)

// EmailLog records a queued notification and its delivery outcome.
type EmailLog struct {
	ID             uuid.UUID  `json:"id"`
	WebinarID      *uuid.UUID `json:"webinar_id,omitempty"`
	SubmissionID   *uuid.UUID `json:"submission_id,omitempty"`
	EmailType      string     `json:"email_type"`
	RecipientEmail string     `json:"recipient_email"`
	Subject        string     `json:"subject,omitempty"`
	BodyHTML       string     `json:"-"`
	Status         string     `json:"status"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
