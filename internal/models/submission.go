package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SubmissionType identifies which public form produced a submission.
type SubmissionType string

const (
	SubmissionContact SubmissionType = "contact"
	SubmissionWebinar SubmissionType = "webinar"
	SubmissionProject SubmissionType = "project"
)

// Submission is a stored public form entry. Attachments are object storage keys.
type Submission struct {
	ID          uuid.UUID       `json:"id"`
	Type        SubmissionType  `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	Attachments []string        `json:"attachments,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// ContactForm is the body of POST /api/contact.
type ContactForm struct {
	Name        string `json:"name" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Phone       string `json:"phone,omitempty"`
	ProjectType string `json:"projectType,omitempty"`
	Message     string `json:"message" binding:"required"`
}

// WebinarSignup is the body of POST /api/webinar-signup.
type WebinarSignup struct {
	Name           string `json:"name" binding:"required"`
	Email          string `json:"email" binding:"required,email"`
	Company        string `json:"company,omitempty"`
	JobTitle       string `json:"jobTitle,omitempty"`
	HowHearAboutUs string `json:"howHearAboutUs,omitempty"`
	WebinarID      string `json:"webinarId" binding:"required"`
}

// ProjectInquiry is the multipart form of POST /api/project-inquiry.
type ProjectInquiry struct {
	Name        string `json:"name" form:"name" binding:"required"`
	Email       string `json:"email" form:"email" binding:"required,email"`
	BudgetRange string `json:"budgetRange,omitempty" form:"budgetRange"`
	Description string `json:"description" form:"description" binding:"required"`
}
