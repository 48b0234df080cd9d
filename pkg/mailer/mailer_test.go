package mailer

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendPostsToSendGrid(t *testing.T) {
	var (
		gotAuth string
		gotPath string
		gotBody map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	m := New(Config{APIKey: "SG.test", FromEmail: "noreply@yadnusconsultant.com", FromName: "Yadnus Consultant", Host: srv.URL}, nil)
	require.True(t, m.Enabled())

	err := m.Send(context.Background(), Message{ToEmail: "ada@example.com", ToName: "Ada", Subject: "Hello", HTML: "<p>hi</p>"})
	require.NoError(t, err)

	assert.Equal(t, "Bearer SG.test", gotAuth)
	assert.Equal(t, "/v3/mail/send", gotPath)
	assert.Equal(t, "Hello", gotBody["subject"])
	from, _ := gotBody["from"].(map[string]any)
	assert.Equal(t, "noreply@yadnusconsultant.com", from["email"])
}

func TestSendReportsRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"errors":[{"message":"The from address does not match a verified Sender Identity."}]}`))
	}))
	defer srv.Close()

	m := New(Config{APIKey: "SG.test", FromEmail: "x@y.z", Host: srv.URL}, nil)
	err := m.Send(context.Background(), Message{ToEmail: "ada@example.com", Subject: "Hello", HTML: "<p>hi</p>"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
	assert.Contains(t, err.Error(), "verified Sender Identity")
}

func TestDisabledWithoutKey(t *testing.T) {
	m := New(Config{FromEmail: "x@y.z"}, nil)
	assert.False(t, m.Enabled())
	assert.ErrorIs(t, m.Send(context.Background(), Message{ToEmail: "a@b.c"}), ErrDisabled)
}
