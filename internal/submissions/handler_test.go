package submissions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Israel70964/YadnusConsultant2/internal/models"
	"github.com/Israel70964/YadnusConsultant2/internal/webinars"
	"github.com/Israel70964/YadnusConsultant2/pkg/storage"
)

type memStore struct {
	rows          map[uuid.UUID]*models.Submission
	registrations map[uuid.UUID]int
	signupErr     error
}

// CreateSignup mirrors the transactional repository: on error neither the row nor the
// registration is kept.
func (m *memStore) CreateSignup(ctx context.Context, webinarID uuid.UUID, payload []byte) (*models.Submission, error) {
	if m.signupErr != nil {
		return nil, m.signupErr
	}
	if m.registrations == nil {
		m.registrations = map[uuid.UUID]int{}
	}
	m.registrations[webinarID]++
	return m.Create(ctx, models.SubmissionWebinar, payload, nil)
}

func (m *memStore) Create(_ context.Context, typ models.SubmissionType, payload []byte, attachments []string) (*models.Submission, error) {
	s := &models.Submission{ID: uuid.New(), Type: typ, Payload: payload, Attachments: attachments, CreatedAt: time.Now()}
	m.rows[s.ID] = s
	return s, nil
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*models.Submission, error) {
	s, ok := m.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

func (m *memStore) List(_ context.Context, typ models.SubmissionType) ([]models.Submission, error) {
	out := []models.Submission{}
	for _, s := range m.rows {
		if typ == "" || s.Type == typ {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memStore) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.rows[id]; !ok {
		return ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

type memWebinars struct {
	w *models.Webinar
}

func (m *memWebinars) GetByID(_ context.Context, id uuid.UUID) (*models.Webinar, error) {
	if m.w == nil || m.w.ID != id {
		return nil, webinars.ErrNotFound
	}
	return m.w, nil
}

type memFiles struct {
	objects   map[string][]byte
	failAfter int
	deleted   []string
}

func (m *memFiles) Upload(_ context.Context, key, _ string, body io.Reader, _ int64) error {
	if m.failAfter >= 0 && len(m.objects) >= m.failAfter {
		return errors.New("s3: access denied")
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.objects[key] = b
	return nil
}

func (m *memFiles) PresignDownload(_ context.Context, key string) (string, error) {
	return "https://files.example.com/" + key + "?X-Amz-Expires=900", nil
}

func (m *memFiles) Delete(_ context.Context, key string) error {
	m.deleted = append(m.deleted, key)
	delete(m.objects, key)
	return nil
}

type recordingNotifier struct {
	contact  []models.ContactForm
	signups  []string
	projects []int
	err      error
}

func (n *recordingNotifier) ContactReceived(_ context.Context, _ uuid.UUID, f models.ContactForm) error {
	n.contact = append(n.contact, f)
	return n.err
}

func (n *recordingNotifier) WebinarSignup(_ context.Context, _ uuid.UUID, w *models.Webinar, _ models.WebinarSignup) error {
	n.signups = append(n.signups, w.Title)
	return n.err
}

func (n *recordingNotifier) ProjectInquiry(_ context.Context, _ uuid.UUID, _ models.ProjectInquiry, attachments int) error {
	n.projects = append(n.projects, attachments)
	return n.err
}

type harness struct {
	store    *memStore
	webinars *memWebinars
	files    *memFiles
	notifier *recordingNotifier
	router   *gin.Engine
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := &harness{
		store:    &memStore{rows: map[uuid.UUID]*models.Submission{}},
		webinars: &memWebinars{w: &models.Webinar{ID: uuid.New(), Title: "BIM for Owners"}},
		files:    &memFiles{objects: map[string][]byte{}, failAfter: -1},
		notifier: &recordingNotifier{},
	}
	handler := NewHandler(h.store, h.webinars, h.files, h.notifier, 15*time.Minute, nil)
	r := gin.New()
	r.POST("/api/contact", handler.Contact)
	r.POST("/api/webinar-signup", handler.WebinarSignup)
	r.POST("/api/project-inquiry", handler.ProjectInquiry)
	r.GET("/api/admin/submissions", handler.List)
	r.DELETE("/api/admin/submissions/:id", handler.Delete)
	r.GET("/api/admin/submissions/:id/attachments", handler.AttachmentLinks)
	h.router = r
	return h
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func (h *harness) serve(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func (h *harness) postJSON(t *testing.T, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return h.serve(t, req)
}

type upload struct {
	name string
	data []byte
}

func multipartRequest(t *testing.T, fields map[string]string, files ...upload) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile(FormField, f.name)
		require.NoError(t, err)
		_, err = fw.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/project-inquiry", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

var inquiry = map[string]string{"name": "Bo", "email": "bo@example.com", "description": "Warehouse retrofit"}

func TestContactCreatesSubmissionAndNotifies(t *testing.T) {
	h := newHarness(t)
	w, env := h.postJSON(t, "/api/contact", map[string]string{"name": "Ada", "email": "ada@example.com", "message": "Hello"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, env.Success)

	require.Len(t, h.store.rows, 1)
	for _, s := range h.store.rows {
		assert.Equal(t, models.SubmissionContact, s.Type)
		assert.JSONEq(t, `{"name":"Ada","email":"ada@example.com","message":"Hello"}`, string(s.Payload))
	}
	require.Len(t, h.notifier.contact, 1)
	assert.Equal(t, "Hello", h.notifier.contact[0].Message)
}

func TestContactValidation(t *testing.T) {
	h := newHarness(t)
	w, _ := h.postJSON(t, "/api/contact", map[string]string{"name": "Ada", "email": "not-an-email", "message": "Hi"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, h.store.rows)
}

func TestNotificationFailureStillSucceeds(t *testing.T) {
	h := newHarness(t)
	h.notifier.err = errors.New("redis down")
	w, _ := h.postJSON(t, "/api/contact", map[string]string{"name": "Ada", "email": "ada@example.com", "message": "Hello"})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestWebinarSignup(t *testing.T) {
	h := newHarness(t)
	w, _ := h.postJSON(t, "/api/webinar-signup", map[string]string{
		"name": "Ada", "email": "ada@example.com", "webinarId": h.webinars.w.ID.String(),
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, h.store.registrations[h.webinars.w.ID])
	assert.Len(t, h.store.rows, 1)
	assert.Equal(t, []string{"BIM for Owners"}, h.notifier.signups)
}

func TestWebinarSignupStoreFailureKeepsNothing(t *testing.T) {
	h := newHarness(t)
	h.store.signupErr = errors.New("conn reset")
	w, env := h.postJSON(t, "/api/webinar-signup", map[string]string{
		"name": "Ada", "email": "ada@example.com", "webinarId": h.webinars.w.ID.String(),
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to register for webinar", env.Error)
	assert.Empty(t, h.store.rows)
	assert.Zero(t, h.store.registrations[h.webinars.w.ID])
	assert.Empty(t, h.notifier.signups)

	h.store.signupErr = webinars.ErrNotFound
	w, _ = h.postJSON(t, "/api/webinar-signup", map[string]string{
		"name": "Ada", "email": "ada@example.com", "webinarId": h.webinars.w.ID.String(),
	})
	assert.Equal(t, http.StatusNotFound, w.Code, "webinar deleted after lookup")
}

func TestWebinarSignupUnknownWebinar(t *testing.T) {
	h := newHarness(t)
	w, env := h.postJSON(t, "/api/webinar-signup", map[string]string{
		"name": "Ada", "email": "ada@example.com", "webinarId": uuid.NewString(),
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Webinar not found", env.Error)
	assert.Empty(t, h.store.rows)
	assert.Empty(t, h.store.registrations)

	w, _ = h.postJSON(t, "/api/webinar-signup", map[string]string{
		"name": "Ada", "email": "ada@example.com", "webinarId": "42",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProjectInquiryUploadsAttachments(t *testing.T) {
	h := newHarness(t)
	w, _ := h.serve(t, multipartRequest(t, inquiry,
		upload{"site plan.pdf", []byte("%PDF-1.7")},
		upload{"photo.jpg", []byte{0xff, 0xd8}},
	))
	require.Equal(t, http.StatusCreated, w.Code)

	require.Len(t, h.files.objects, 2)
	var sub *models.Submission
	for _, s := range h.store.rows {
		sub = s
	}
	require.NotNil(t, sub)
	assert.Equal(t, models.SubmissionProject, sub.Type)
	require.Len(t, sub.Attachments, 2)
	assert.True(t, strings.HasPrefix(sub.Attachments[0], storage.FolderAttachments+"/"))
	assert.True(t, strings.HasSuffix(sub.Attachments[0], "-site_plan.pdf"))
	assert.Equal(t, []byte("%PDF-1.7"), h.files.objects[sub.Attachments[0]])
	assert.Equal(t, []int{2}, h.notifier.projects)
}

func TestProjectInquiryWithoutFiles(t *testing.T) {
	h := newHarness(t)
	w, _ := h.serve(t, multipartRequest(t, inquiry))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Empty(t, h.files.objects)
	assert.Equal(t, []int{0}, h.notifier.projects)
}

func TestProjectInquiryRejectsFiles(t *testing.T) {
	h := newHarness(t)

	w, env := h.serve(t, multipartRequest(t, inquiry, upload{"run.exe", []byte("MZ")}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Error, "not allowed")

	big := make([]byte, storage.MaxAttachmentSize+1)
	w, env = h.serve(t, multipartRequest(t, inquiry, upload{"scan.pdf", big}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Error, "10 MB")

	assert.Empty(t, h.files.objects)
	assert.Empty(t, h.store.rows)
}

func TestProjectInquiryUploadFailureCleansUp(t *testing.T) {
	h := newHarness(t)
	h.files.failAfter = 1
	w, _ := h.serve(t, multipartRequest(t, inquiry,
		upload{"a.pdf", []byte("a")},
		upload{"b.pdf", []byte("b")},
	))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Len(t, h.files.deleted, 1)
	assert.Empty(t, h.files.objects)
	assert.Empty(t, h.store.rows)
}

func TestAdminListDeleteAndLinks(t *testing.T) {
	h := newHarness(t)
	_, _ = h.postJSON(t, "/api/contact", map[string]string{"name": "Ada", "email": "ada@example.com", "message": "Hello"})
	_, _ = h.serve(t, multipartRequest(t, inquiry, upload{"brief.docx", []byte("PK")}))

	w, env := h.serve(t, httptest.NewRequest(http.MethodGet, "/api/admin/submissions?type=project", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.Submission
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)
	project := list[0]

	w, _ = h.serve(t, httptest.NewRequest(http.MethodGet, "/api/admin/submissions?type=newsletter", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = h.serve(t, httptest.NewRequest(http.MethodGet, "/api/admin/submissions/"+project.ID.String()+"/attachments", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var links []AttachmentLink
	require.NoError(t, json.Unmarshal(env.Data, &links))
	require.Len(t, links, 1)
	assert.Equal(t, "brief.docx", links[0].Filename)
	assert.Contains(t, links[0].URL, project.Attachments[0])

	w, _ = h.serve(t, httptest.NewRequest(http.MethodDelete, "/api/admin/submissions/"+project.ID.String(), nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, project.Attachments, h.files.deleted)
	assert.Len(t, h.store.rows, 1)

	w, _ = h.serve(t, httptest.NewRequest(http.MethodDelete, "/api/admin/submissions/"+project.ID.String(), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
