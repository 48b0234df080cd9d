package submissions

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Israel70964/YadnusConsultant2/internal/models"
	"github.com/Israel70964/YadnusConsultant2/internal/webinars"
)

// ErrNotFound is returned when no submission has the requested id.
var ErrNotFound = errors.New("submission not found")

const submissionColumns = `id, type, payload, attachments, created_at`

// Repository handles submissions persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a submissions repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanSubmission(row pgx.Row) (*models.Submission, error) {
	var (
		s       models.Submission
		typ     string
		payload []byte
	)
	err := row.Scan(&s.ID, &typ, &payload, &s.Attachments, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s.Type = models.SubmissionType(typ)
	s.Payload = json.RawMessage(payload)
	return &s, nil
}

// Create stores a form entry. payload is the validated form as JSON.
func (r *Repository) Create(ctx context.Context, typ models.SubmissionType, payload []byte, attachments []string) (*models.Submission, error) {
	const q = `INSERT INTO submissions (type, payload, attachments) VALUES ($1, $2, $3) RETURNING ` + submissionColumns
	return scanSubmission(r.pool.QueryRow(ctx, q, string(typ), payload, attachments))
}

// CreateSignup stores a webinar signup and bumps the webinar's registration_count in one
// transaction. It returns webinars.ErrNotFound, and stores nothing, when the webinar is gone.
func (r *Repository) CreateSignup(ctx context.Context, webinarID uuid.UUID, payload []byte) (*models.Submission, error) {
	var sub *models.Submission
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE webinars SET registration_count = registration_count + 1, updated_at = NOW() WHERE id = $1`, webinarID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return webinars.ErrNotFound
		}
		const q = `INSERT INTO submissions (type, payload) VALUES ($1, $2) RETURNING ` + submissionColumns
		sub, err = scanSubmission(tx.QueryRow(ctx, q, string(models.SubmissionWebinar), payload))
		return err
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// GetByID returns a submission, or ErrNotFound.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Submission, error) {
	return scanSubmission(r.pool.QueryRow(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id = $1`, id))
}

// List returns submissions newest first, optionally of one type.
func (r *Repository) List(ctx context.Context, typ models.SubmissionType) ([]models.Submission, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+submissionColumns+` FROM submissions
		WHERE ($1 = '' OR type = $1) ORDER BY created_at DESC`, string(typ))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]models.Submission, 0)
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *s)
	}
	return list, rows.Err()
}

// Delete removes a submission.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM submissions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
