package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Israel70964/YadnusConsultant2/internal/models"
	"github.com/Israel70964/YadnusConsultant2/pkg/queue"
)

type memLogs struct {
	created []*models.EmailLog
	failed  map[uuid.UUID]string
}

func (m *memLogs) Create(_ context.Context, el *models.EmailLog) (*models.EmailLog, error) {
	cp := *el
	cp.ID = uuid.New()
	cp.Status = models.EmailLogStatusPending
	m.created = append(m.created, &cp)
	return &cp, nil
}

func (m *memLogs) MarkFailed(_ context.Context, id uuid.UUID, reason string) error {
	if m.failed == nil {
		m.failed = map[uuid.UUID]string{}
	}
	m.failed[id] = reason
	return nil
}

func newRedisQueue(t *testing.T) *queue.Queue {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return queue.NewQueue(client, nil)
}

func nextPayload(t *testing.T, q *queue.Queue) queue.EmailPayload {
	t.Helper()
	job, _, err := q.Dequeue(context.Background(), time.Second)
	require.NoError(t, err)
	require.NotNil(t, job)
	var p queue.EmailPayload
	require.NoError(t, json.Unmarshal(job.Payload, &p))
	return p
}

func TestContactNotificationEscapesInput(t *testing.T) {
	logs := &memLogs{}
	q := newRedisQueue(t)
	n := New(logs, q, Config{AdminEmail: "admin@yadnusconsultant.com"}, nil)
	subID := uuid.New()

	err := n.ContactReceived(context.Background(), subID, models.ContactForm{
		Name: "Ada", Email: "ada@example.com", Message: "<script>alert(1)</script>",
	})
	require.NoError(t, err)

	require.Len(t, logs.created, 1)
	el := logs.created[0]
	assert.Equal(t, models.EmailTypeContactNotification, el.EmailType)
	assert.Equal(t, "admin@yadnusconsultant.com", el.RecipientEmail)
	assert.Equal(t, &subID, el.SubmissionID)

	p := nextPayload(t, q)
	assert.Equal(t, el.ID, p.LogID)
	assert.Contains(t, p.BodyHTML, "Not provided")
	assert.Contains(t, p.BodyHTML, "&lt;script&gt;")
	assert.NotContains(t, p.BodyHTML, "<script>")
}

func TestWebinarConfirmationGoesToAttendee(t *testing.T) {
	logs := &memLogs{}
	q := newRedisQueue(t)
	n := New(logs, q, Config{AdminEmail: "admin@yadnusconsultant.com"}, nil)
	w := &models.Webinar{ID: uuid.New(), Title: "Cloud 101", Date: time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)}

	err := n.WebinarSignup(context.Background(), uuid.New(), w, models.WebinarSignup{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)

	p := nextPayload(t, q)
	assert.Equal(t, "ada@example.com", p.RecipientEmail)
	assert.Equal(t, "Webinar Registration Confirmed - Cloud 101", p.Subject)
	require.NotNil(t, p.WebinarID)
	assert.Equal(t, w.ID, *p.WebinarID)
	assert.Contains(t, p.BodyHTML, "Dear Ada")
	assert.Contains(t, p.BodyHTML, "Sunday, 1 March 2026")
}

func TestProjectInquiryMentionsAttachments(t *testing.T) {
	q := newRedisQueue(t)
	n := New(&memLogs{}, q, Config{AdminEmail: "admin@yadnusconsultant.com"}, nil)

	err := n.ProjectInquiry(context.Background(), uuid.New(), models.ProjectInquiry{Name: "Bo", Email: "bo@example.com", Description: "Site plan"}, 2)
	require.NoError(t, err)

	p := nextPayload(t, q)
	assert.Contains(t, p.BodyHTML, "2 file(s)")
	assert.Contains(t, p.BodyHTML, "Not specified")
}

func TestNoAdminAddressSkips(t *testing.T) {
	logs := &memLogs{}
	n := New(logs, newRedisQueue(t), Config{}, nil)
	require.NoError(t, n.ContactReceived(context.Background(), uuid.New(), models.ContactForm{Name: "Ada"}))
	assert.Empty(t, logs.created)
}

type brokenQueue struct{}

func (brokenQueue) EnqueueEmail(context.Context, queue.EmailPayload) error {
	return errors.New("redis: connection refused")
}

func TestEnqueueFailureMarksLogFailed(t *testing.T) {
	logs := &memLogs{}
	n := New(logs, brokenQueue{}, Config{AdminEmail: "admin@yadnusconsultant.com"}, nil)

	err := n.ContactReceived(context.Background(), uuid.New(), models.ContactForm{Name: "Ada"})
	require.Error(t, err)
	require.Len(t, logs.created, 1)
	assert.Contains(t, logs.failed[logs.created[0].ID], "connection refused")
}
