package emaillogs

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Israel70964/YadnusConsultant2/internal/models"
)

// ErrNotFound is returned when no email log has the requested id.
var ErrNotFound = errors.New("email log not found")

const logColumns = `id, webinar_id, submission_id, email_type, recipient_email,
	COALESCE(subject,''), COALESCE(body_html,''), status, sent_at, COALESCE(error_message,''), created_at`

// Repository handles email_logs persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an email logs repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanLog(row pgx.Row) (*models.EmailLog, error) {
	var el models.EmailLog
	err := row.Scan(&el.ID, &el.WebinarID, &el.SubmissionID, &el.EmailType, &el.RecipientEmail,
		&el.Subject, &el.BodyHTML, &el.Status, &el.SentAt, &el.ErrorMessage, &el.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &el, nil
}

func (r *Repository) queryList(ctx context.Context, q string, args ...any) ([]*models.EmailLog, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := make([]*models.EmailLog, 0)
	for rows.Next() {
		el, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, el)
	}
	return list, rows.Err()
}

// Create inserts a pending log row and returns it with its id.
func (r *Repository) Create(ctx context.Context, el *models.EmailLog) (*models.EmailLog, error) {
	const q = `INSERT INTO email_logs (webinar_id, submission_id, email_type, recipient_email, subject, body_html, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending')
		RETURNING ` + logColumns
	return scanLog(r.pool.QueryRow(ctx, q, el.WebinarID, el.SubmissionID, el.EmailType, el.RecipientEmail, el.Subject, el.BodyHTML))
}

// GetByID returns one log row, or ErrNotFound.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.EmailLog, error) {
	return scanLog(r.pool.QueryRow(ctx, `SELECT `+logColumns+` FROM email_logs WHERE id = $1`, id))
}

// MarkSent records a successful delivery.
func (r *Repository) MarkSent(ctx context.Context, id uuid.UUID) error {
	return r.setStatus(ctx, `UPDATE email_logs SET status = 'sent', sent_at = NOW(), error_message = NULL WHERE id = $1`, id)
}

// MarkFailed records a failed delivery with its reason.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return r.setStatus(ctx, `UPDATE email_logs SET status = 'failed', error_message = $2 WHERE id = $1`, id, reason)
}

// MarkPending puts a log back in the queue state before a resend.
func (r *Repository) MarkPending(ctx context.Context, id uuid.UUID) error {
	return r.setStatus(ctx, `UPDATE email_logs SET status = 'pending', error_message = NULL WHERE id = $1`, id)
}

func (r *Repository) setStatus(ctx context.Context, q string, args ...any) error {
	tag, err := r.pool.Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListFilter narrows List. Zero values mean no filter; Limit defaults to 100.
type ListFilter struct {
	Status string
	Limit  int
}

// List returns log rows, newest first.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]*models.EmailLog, error) {
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}
	return r.queryList(ctx, `SELECT `+logColumns+` FROM email_logs
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC LIMIT $2`, f.Status, f.Limit)
}

// ListByWebinar returns email logs for a webinar, newest first.
func (r *Repository) ListByWebinar(ctx context.Context, webinarID uuid.UUID) ([]*models.EmailLog, error) {
	return r.queryList(ctx, `SELECT `+logColumns+` FROM email_logs WHERE webinar_id = $1 ORDER BY created_at DESC`, webinarID)
}
