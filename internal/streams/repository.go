package streams

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Israel70964/YadnusConsultant2/internal/models"
)

const sessionColumns = `id, webinar_id, platform, platform_stream_id, started_at, ended_at, started_by, created_at, updated_at`

// Repository handles stream_sessions persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a stream sessions repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanSession(row pgx.Row) (*models.StreamSession, error) {
	var s models.StreamSession
	err := row.Scan(&s.ID, &s.WebinarID, &s.Platform, &s.PlatformStreamID, &s.StartedAt, &s.EndedAt, &s.StartedBy, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Open records the start of a live run. Any run still open for the webinar is closed first.
func (r *Repository) Open(ctx context.Context, webinarID uuid.UUID, platform, platformStreamID string, startedBy *uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `UPDATE stream_sessions SET ended_at = NOW(), updated_at = NOW() WHERE webinar_id = $1 AND ended_at IS NULL`, webinarID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO stream_sessions (webinar_id, platform, platform_stream_id, started_by) VALUES ($1, $2, $3, $4)`,
		webinarID, platform, platformStreamID, startedBy); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Close sets ended_at on the webinar's open run, if any.
func (r *Repository) Close(ctx context.Context, webinarID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE stream_sessions SET ended_at = NOW(), updated_at = NOW() WHERE webinar_id = $1 AND ended_at IS NULL`, webinarID)
	return err
}

// ListByWebinar returns every run of a webinar, newest first.
func (r *Repository) ListByWebinar(ctx context.Context, webinarID uuid.UUID) ([]models.StreamSession, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+sessionColumns+` FROM stream_sessions WHERE webinar_id = $1 ORDER BY started_at DESC`, webinarID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]models.StreamSession, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *s)
	}
	return list, rows.Err()
}
