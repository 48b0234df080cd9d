package webinars

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Israel70964/YadnusConsultant2/internal/models"
)

// ErrNotFound is returned when no webinar has the requested id.
var ErrNotFound = errors.New("webinar not found")

const webinarColumns = `id, title, description, date, speakers,
	COALESCE(video_url,''), COALESCE(thumbnail_url,''), is_live, registration_count,
	chat_enabled, recording_enabled, max_attendees,
	COALESCE(streaming_platform,''), streaming_status,
	COALESCE(youtube_live_id,''), COALESCE(youtube_stream_key,''),
	COALESCE(zoom_meeting_id,''), COALESCE(zoom_password,''),
	stream_metadata, created_at, updated_at`

// Repository handles webinar persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a webinar repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanWebinar(row pgx.Row) (*models.Webinar, error) {
	var (
		w        models.Webinar
		speakers []byte
		meta     []byte
		status   string
	)
	err := row.Scan(&w.ID, &w.Title, &w.Description, &w.Date, &speakers,
		&w.VideoURL, &w.ThumbnailURL, &w.IsLive, &w.RegistrationCount,
		&w.ChatEnabled, &w.RecordingEnabled, &w.MaxAttendees,
		&w.StreamingPlatform, &status,
		&w.YouTubeLiveID, &w.YouTubeStreamKey,
		&w.ZoomMeetingID, &w.ZoomPassword,
		&meta, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if len(speakers) > 0 {
		w.Speakers = json.RawMessage(speakers)
	}
	if len(meta) > 0 {
		w.StreamMetadata = json.RawMessage(meta)
	}
	w.StreamingStatus = models.StreamingStatus(status)
	return &w, nil
}

func (r *Repository) queryList(ctx context.Context, q string, args ...any) ([]models.Webinar, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]models.Webinar, 0)
	for rows.Next() {
		w, err := scanWebinar(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *w)
	}
	return list, rows.Err()
}

// CreateParams holds the editable fields of a new webinar.
type CreateParams struct {
	Title            string
	Description      string
	Date             time.Time
	Speakers         json.RawMessage
	VideoURL         string
	ThumbnailURL     string
	ChatEnabled      bool
	RecordingEnabled bool
	MaxAttendees     int
}

// Create inserts a new webinar. Streaming fields start empty with status scheduled.
func (r *Repository) Create(ctx context.Context, p CreateParams) (*models.Webinar, error) {
	q := `INSERT INTO webinars (title, description, date, speakers, video_url, thumbnail_url, chat_enabled, recording_enabled, max_attendees)
		VALUES ($1, $2, $3, $4, NULLIF($5,''), NULLIF($6,''), $7, $8, $9)
		RETURNING ` + webinarColumns
	w, err := scanWebinar(r.pool.QueryRow(ctx, q, p.Title, p.Description, p.Date, nullJSON(p.Speakers),
		p.VideoURL, p.ThumbnailURL, p.ChatEnabled, p.RecordingEnabled, p.MaxAttendees))
	if err != nil {
		return nil, fmt.Errorf("insert webinar: %w", err)
	}
	return w, nil
}

// GetByID returns a webinar by ID, or ErrNotFound.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Webinar, error) {
	return scanWebinar(r.pool.QueryRow(ctx, `SELECT `+webinarColumns+` FROM webinars WHERE id = $1`, id))
}

// List returns all webinars, newest first.
func (r *Repository) List(ctx context.Context) ([]models.Webinar, error) {
	return r.queryList(ctx, `SELECT `+webinarColumns+` FROM webinars ORDER BY date DESC`)
}

// ListUpcoming returns webinars dated at or after now, soonest first.
func (r *Repository) ListUpcoming(ctx context.Context, now time.Time) ([]models.Webinar, error) {
	return r.queryList(ctx, `SELECT `+webinarColumns+` FROM webinars WHERE date >= $1 ORDER BY date ASC`, now)
}

// ListPast returns webinars dated before now, most recent first.
func (r *Repository) ListPast(ctx context.Context, now time.Time) ([]models.Webinar, error) {
	return r.queryList(ctx, `SELECT `+webinarColumns+` FROM webinars WHERE date < $1 ORDER BY date DESC`, now)
}

// UpdateParams is a partial update of editable fields; nil leaves a column unchanged.
// Streaming fields are not editable here.
type UpdateParams struct {
	Title            *string
	Description      *string
	Date             *time.Time
	Speakers         json.RawMessage
	VideoURL         *string
	ThumbnailURL     *string
	ChatEnabled      *bool
	RecordingEnabled *bool
	MaxAttendees     *int
}

// Update applies p and returns the updated webinar.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, p UpdateParams) (*models.Webinar, error) {
	q := `UPDATE webinars SET
		title = COALESCE($2, title),
		description = COALESCE($3, description),
		date = COALESCE($4, date),
		speakers = COALESCE($5::jsonb, speakers),
		video_url = COALESCE($6, video_url),
		thumbnail_url = COALESCE($7, thumbnail_url),
		chat_enabled = COALESCE($8, chat_enabled),
		recording_enabled = COALESCE($9, recording_enabled),
		max_attendees = COALESCE($10, max_attendees),
		updated_at = NOW()
		WHERE id = $1
		RETURNING ` + webinarColumns
	return scanWebinar(r.pool.QueryRow(ctx, q, id, p.Title, p.Description, p.Date, nullJSON(p.Speakers),
		p.VideoURL, p.ThumbnailURL, p.ChatEnabled, p.RecordingEnabled, p.MaxAttendees))
}

// Delete removes a webinar by ID.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM webinars WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveStreamSetup records a successful platform setup. The webinar returns to scheduled and
// the id pair of the other platform is cleared.
func (r *Repository) SaveStreamSetup(ctx context.Context, id uuid.UUID, s models.StreamSetup) error {
	const q = `UPDATE webinars SET
		streaming_platform = $2,
		youtube_live_id = NULLIF($3,''),
		youtube_stream_key = NULLIF($4,''),
		zoom_meeting_id = NULLIF($5,''),
		zoom_password = NULLIF($6,''),
		stream_metadata = $7,
		streaming_status = 'scheduled',
		is_live = FALSE,
		updated_at = NOW()
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, id, s.Platform, s.YouTubeLiveID, s.YouTubeStreamKey, s.ZoomMeetingID, s.ZoomPassword, nullJSON(s.Metadata))
	if err != nil {
		return fmt.Errorf("save stream setup: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetStreamingStatus rewrites only streaming_status and is_live.
func (r *Repository) SetStreamingStatus(ctx context.Context, id uuid.UUID, status models.StreamingStatus, isLive bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE webinars SET streaming_status = $2, is_live = $3, updated_at = NOW() WHERE id = $1`,
		id, string(status), isLive)
	if err != nil {
		return fmt.Errorf("set streaming status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// nullJSON maps an empty document to SQL NULL.
func nullJSON(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}
