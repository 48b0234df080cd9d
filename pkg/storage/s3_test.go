package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAttachment(t *testing.T) {
	assert.True(t, ValidateAttachment("plan.PDF"))
	assert.True(t, ValidateAttachment("site.dwg"))
	assert.False(t, ValidateAttachment("run.exe"))
	assert.False(t, ValidateAttachment("noext"))
	assert.Equal(t, "application/pdf", ContentTypeForFilename("a.pdf"))
	assert.Equal(t, "application/octet-stream", ContentTypeForFilename("a.bin"))
}

func TestAttachmentKey(t *testing.T) {
	now := time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)
	key := AttachmentKey(now, `C:\Users\me\site plan.pdf`)
	assert.True(t, strings.HasPrefix(key, "attachments/2026/02/"), key)
	assert.True(t, strings.HasSuffix(key, "-site_plan.pdf"), key)
	assert.NotEqual(t, key, AttachmentKey(now, `C:\Users\me\site plan.pdf`))
}

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[r.URL.Path] = string(body)
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodDelete:
		delete(f.objects, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestS3(t *testing.T, endpoint string) *S3 {
	t.Helper()
	s, err := NewS3(context.Background(), S3Config{
		Region:               "us-east-1",
		AccessKeyID:          "AKIDEXAMPLE",
		SecretAccessKey:      "secret",
		AttachmentsBucket:    "yadnus-attachments",
		PresignExpireMinutes: 5,
		Endpoint:             endpoint,
	}, nil)
	require.NoError(t, err)
	return s
}

func TestPresignDownload(t *testing.T) {
	s := newTestS3(t, "http://127.0.0.1:9000")
	raw, err := s.PresignDownload(context.Background(), "attachments/2026/02/abc-plan.pdf")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/yadnus-attachments/attachments/2026/02/abc-plan.pdf", u.Path)
	assert.Equal(t, "300", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
}

func TestUploadAndDelete(t *testing.T) {
	fake := &fakeS3{objects: map[string]string{}}
	srv := httptest.NewServer(fake)
	defer srv.Close()
	s := newTestS3(t, srv.URL)

	err := s.Upload(context.Background(), "attachments/k.txt", "text/plain", strings.NewReader("hello"), 5)
	require.NoError(t, err)
	fake.mu.Lock()
	_, ok := fake.objects["/yadnus-attachments/attachments/k.txt"]
	fake.mu.Unlock()
	assert.True(t, ok)

	require.NoError(t, s.Delete(context.Background(), "attachments/k.txt"))
	fake.mu.Lock()
	assert.Empty(t, fake.objects)
	fake.mu.Unlock()
}
