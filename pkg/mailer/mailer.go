// Package mailer delivers transactional email through SendGrid.
package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

const sendPath = "/v3/mail/send"

// ErrDisabled is returned by Send when no API key is configured.
var ErrDisabled = errors.New("email disabled: SENDGRID_API_KEY not configured")

// Config holds SendGrid settings. Host overrides https://api.sendgrid.com, for tests.
type Config struct {
	APIKey    string
	FromEmail string
	FromName  string
	Host      string
}

// Message is one outgoing email.
type Message struct {
	ToEmail string
	ToName  string
	Subject string
	HTML    string
	Text    string
}

// Mailer sends Messages. Without an API key every Send returns ErrDisabled.
type Mailer struct {
	client *sendgrid.Client
	from   *mail.Email
	logger *zap.Logger
}

// New creates a mailer.
func New(cfg Config, logger *zap.Logger) *Mailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Mailer{from: mail.NewEmail(cfg.FromName, cfg.FromEmail), logger: logger}
	if cfg.APIKey == "" {
		logger.Warn("SENDGRID_API_KEY not set, email delivery disabled")
		return m
	}
	req := sendgrid.GetRequest(cfg.APIKey, sendPath, cfg.Host)
	req.Method = "POST"
	m.client = &sendgrid.Client{Request: req}
	return m
}

// Enabled reports whether an API key is configured.
func (m *Mailer) Enabled() bool { return m.client != nil }

// Send delivers msg. Any non-2xx answer from SendGrid is an error carrying its body.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if m.client == nil {
		return ErrDisabled
	}
	email := mail.NewSingleEmail(m.from, msg.Subject, mail.NewEmail(msg.ToName, msg.ToEmail), msg.Text, msg.HTML)
	resp, err := m.client.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}
	m.logger.Debug("email sent", zap.String("to", msg.ToEmail), zap.Int("status", resp.StatusCode))
	return nil
}
