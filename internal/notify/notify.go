// Package notify turns form submissions into queued emails. Every email gets a pending
// email_logs row before its job is enqueued; the worker settles the row.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Israel70964/YadnusConsultant2/internal/models"
	"github.com/Israel70964/YadnusConsultant2/pkg/queue"
)

// LogStore creates and settles email log rows.
type LogStore interface {
	Create(ctx context.Context, el *models.EmailLog) (*models.EmailLog, error)
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
}

// Enqueuer hands email jobs to the worker.
type Enqueuer interface {
	EnqueueEmail(ctx context.Context, payload queue.EmailPayload) error
}

// Config names the recipients and sender identity used in bodies.
type Config struct {
	AdminEmail string
	TeamName   string
}

// Notifier builds and queues notification emails.
type Notifier struct {
	logs   LogStore
	jobs   Enqueuer
	cfg    Config
	logger *zap.Logger
}

// New creates a notifier.
func New(logs LogStore, jobs Enqueuer, cfg Config, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TeamName == "" {
		cfg.TeamName = "Yadnus Consultant Team"
	}
	return &Notifier{logs: logs, jobs: jobs, cfg: cfg, logger: logger}
}

// ContactReceived notifies the admin of a contact form entry.
func (n *Notifier) ContactReceived(ctx context.Context, submissionID uuid.UUID, form models.ContactForm) error {
	return n.queue(ctx, email{
		kind:         models.EmailTypeContactNotification,
		to:           n.cfg.AdminEmail,
		subject:      "New Contact Form Submission - Yadnus Consultant",
		tmpl:         contactTmpl,
		data:         form,
		submissionID: &submissionID,
	})
}

// WebinarSignup confirms a registration to the attendee.
func (n *Notifier) WebinarSignup(ctx context.Context, submissionID uuid.UUID, w *models.Webinar, signup models.WebinarSignup) error {
	data := struct {
		Name  string
		Title string
		Date  string
		Team  string
	}{signup.Name, w.Title, w.Date.UTC().Format("Monday, 2 January 2006 15:04 MST"), n.cfg.TeamName}
	return n.queue(ctx, email{
		kind:         models.EmailTypeWebinarConfirmation,
		to:           signup.Email,
		toName:       signup.Name,
		subject:      "Webinar Registration Confirmed - " + w.Title,
		tmpl:         webinarTmpl,
		data:         data,
		submissionID: &submissionID,
		webinarID:    &w.ID,
	})
}

// ProjectInquiry notifies the admin of a project inquiry.
func (n *Notifier) ProjectInquiry(ctx context.Context, submissionID uuid.UUID, inq models.ProjectInquiry, attachments int) error {
	data := struct {
		models.ProjectInquiry
		Attachments int
	}{inq, attachments}
	return n.queue(ctx, email{
		kind:         models.EmailTypeProjectNotification,
		to:           n.cfg.AdminEmail,
		subject:      "New Project Inquiry - Yadnus Consultant",
		tmpl:         projectTmpl,
		data:         data,
		submissionID: &submissionID,
	})
}

type email struct {
	kind         string
	to           string
	toName       string
	subject      string
	tmpl         *template.Template
	data         any
	submissionID *uuid.UUID
	webinarID    *uuid.UUID
}

func (n *Notifier) queue(ctx context.Context, e email) error {
	if e.to == "" {
		n.logger.Warn("email skipped: no recipient", zap.String("email_type", e.kind))
		return nil
	}
	var body bytes.Buffer
	if err := e.tmpl.Execute(&body, e.data); err != nil {
		return fmt.Errorf("render %s: %w", e.kind, err)
	}
	el, err := n.logs.Create(ctx, &models.EmailLog{
		WebinarID:      e.webinarID,
		SubmissionID:   e.submissionID,
		EmailType:      e.kind,
		RecipientEmail: e.to,
		Subject:        e.subject,
		BodyHTML:       body.String(),
	})
	if err != nil {
		return fmt.Errorf("create email log: %w", err)
	}
	err = n.jobs.EnqueueEmail(ctx, queue.EmailPayload{
		LogID:          el.ID,
		EmailType:      e.kind,
		WebinarID:      e.webinarID,
		SubmissionID:   e.submissionID,
		RecipientEmail: e.to,
		RecipientName:  e.toName,
		Subject:        e.subject,
		BodyHTML:       body.String(),
	})
	if err != nil {
		if markErr := n.logs.MarkFailed(ctx, el.ID, "enqueue: "+err.Error()); markErr != nil {
			n.logger.Warn("mark email log failed", zap.String("email_log_id", el.ID.String()), zap.Error(markErr))
		}
		return fmt.Errorf("enqueue %s: %w", e.kind, err)
	}
	return nil
}
