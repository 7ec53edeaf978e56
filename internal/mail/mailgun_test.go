// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Natours Contributors

package mail_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/natours/natours/internal/mail"
	"github.com/natours/natours/pkg/errutil"
)

type capturedForm struct {
	mu     sync.Mutex
	path   string
	fields map[string]string
}

func mailgunServer(t *testing.T, status int) (*httptest.Server, *capturedForm) {
	t.Helper()
	captured := &capturedForm{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.mu.Lock()
		captured.path = r.URL.Path
		captured.fields = map[string]string{}
		for _, key := range []string{"from", "to", "subject", "text", "html"} {
			captured.fields[key] = r.FormValue(key)
		}
		captured.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status == http.StatusOK {
			_, _ = w.Write([]byte(`{"id":"<20260301.1@mg.natours.dev>","message":"Queued. Thank you."}`))
			return
		}
		_, _ = w.Write([]byte(`{"message":"Forbidden"}`))
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

func TestMailgunSender_Send(t *testing.T) {
	srv, captured := mailgunServer(t, http.StatusOK)
	sender := mail.NewMailgunSender(mail.MailgunConfig{
		Domain:  "mg.natours.dev",
		APIKey:  "key-test",
		APIBase: srv.URL + "/v3",
	})

	require.NoError(t, sender.Send(context.Background(), testMessage()))

	captured.mu.Lock()
	defer captured.mu.Unlock()
	assert.True(t, strings.HasSuffix(captured.path, "/mg.natours.dev/messages"), captured.path)
	assert.Equal(t, "Welcome to the Natours Family!", captured.fields["subject"])
	assert.Contains(t, captured.fields["to"], "ann@example.com")
	assert.Equal(t, "Hi Ann", captured.fields["text"])
	assert.Equal(t, "<p>Hi Ann</p>", captured.fields["html"])
}

func TestMailgunSender_Rejected(t *testing.T) {
	srv, _ := mailgunServer(t, http.StatusForbidden)
	sender := mail.NewMailgunSender(mail.MailgunConfig{
		Domain:  "mg.natours.dev",
		APIKey:  "key-test",
		APIBase: srv.URL + "/v3",
	})

	err := sender.Send(context.Background(), testMessage())
	errutil.AssertErrorCode(t, err, "MAIL_SEND_FAILED")
	errutil.AssertErrorContext(t, err, "provider", mail.ProviderMailgun)
}
