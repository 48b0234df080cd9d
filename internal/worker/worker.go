package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Israel70964/YadnusConsultant2/pkg/mailer"
	"github.com/Israel70964/YadnusConsultant2/pkg/queue"
)

const pollTimeout = 5 * time.Second

// JobTimeout bounds one job, including its retry push and log update. Shutdown lets the job in
// flight run to completion within this bound.
const JobTimeout = 30 * time.Second

// Sender delivers one email.
type Sender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// LogStore settles email log rows.
type LogStore interface {
	MarkSent(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
}

// Jobs is the queue the processor consumes.
type Jobs interface {
	Dequeue(ctx context.Context, timeout time.Duration, keys ...string) (*queue.Job, string, error)
	Retry(ctx context.Context, job *queue.Job) (bool, error)
}

// EmailProcessor sends queued emails and records each outcome on its email log.
type EmailProcessor struct {
	sender  Sender
	logs    LogStore
	jobs    Jobs
	backoff time.Duration
	poll    time.Duration
	timeout time.Duration
	logger  *zap.Logger
}

// NewEmailProcessor creates an email job processor.
func NewEmailProcessor(sender Sender, logs LogStore, jobs Jobs, logger *zap.Logger) *EmailProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailProcessor{sender: sender, logs: logs, jobs: jobs, backoff: queue.RetryBackoff, poll: pollTimeout, timeout: JobTimeout, logger: logger}
}

// errPermanent marks failures that retrying cannot fix.
type errPermanent struct{ err error }

func (e errPermanent) Error() string { return e.err.Error() }
func (e errPermanent) Unwrap() error { return e.err }

// Process executes one email job.
func (p *EmailProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeEmail {
		return errPermanent{fmt.Errorf("unknown job type: %s", job.Type)}
	}
	var payload queue.EmailPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return errPermanent{fmt.Errorf("unmarshal payload: %w", err)}
	}

	err := p.sender.Send(ctx, mailer.Message{
		ToEmail: payload.RecipientEmail,
		ToName:  payload.RecipientName,
		Subject: payload.Subject,
		HTML:    payload.BodyHTML,
	})
	if errors.Is(err, mailer.ErrDisabled) {
		p.markFailed(ctx, payload.LogID, "email disabled")
		return nil
	}
	if err != nil {
		return err
	}
	if err := p.logs.MarkSent(ctx, payload.LogID); err != nil {
		p.logger.Warn("mark email log sent", zap.String("email_log_id", payload.LogID.String()), zap.Error(err))
	}
	p.logger.Info("email sent", zap.String("job_id", job.ID), zap.String("email_type", payload.EmailType))
	return nil
}

// handleFailure retries the job, and once it is dead-lettered settles its log as failed.
func (p *EmailProcessor) handleFailure(ctx context.Context, job *queue.Job, cause error) {
	var payload queue.EmailPayload
	_ = json.Unmarshal(job.Payload, &payload)

	var perm errPermanent
	if errors.As(cause, &perm) {
		if payload.LogID != uuid.Nil {
			p.markFailed(ctx, payload.LogID, cause.Error())
		}
		return
	}
	dead, err := p.jobs.Retry(ctx, job)
	if err != nil {
		p.logger.Error("retry enqueue failed", zap.String("job_id", job.ID), zap.Error(err))
		dead = true
	}
	if dead && payload.LogID != uuid.Nil {
		p.markFailed(ctx, payload.LogID, cause.Error())
	}
}

func (p *EmailProcessor) markFailed(ctx context.Context, id uuid.UUID, reason string) {
	if err := p.logs.MarkFailed(ctx, id, reason); err != nil {
		p.logger.Warn("mark email log failed", zap.String("email_log_id", id.String()), zap.Error(err))
	}
}

// Run starts the worker loop: dequeue, process, retry on error. It returns when ctx is done.
// ctx only gates dequeuing; a job already taken off the queue is settled under its own deadline.
func (p *EmailProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("email worker stopping")
			return
		default:
		}

		job, _, err := p.jobs.Dequeue(ctx, p.poll, queue.QueueEmails)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		if err := p.settle(ctx, job); err != nil {
			p.sleep(ctx)
		}
	}
}

func (p *EmailProcessor) settle(ctx context.Context, job *queue.Job) error {
	jobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
	err := p.Process(jobCtx, job)
	if err != nil {
		p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
		p.handleFailure(jobCtx, job, err)
	}
	return err
}

func (p *EmailProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
