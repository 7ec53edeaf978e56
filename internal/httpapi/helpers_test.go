// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Natours Contributors

package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/natours/natours/internal/auth"
	"github.com/natours/natours/internal/auth/memory"
	"github.com/natours/natours/internal/httpapi"
	"github.com/natours/natours/internal/observability"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var testHashParams = auth.HashParams{Time: 1, Memory: 1024, Threads: 1}

// testNotifier records the links it was asked to deliver.
type testNotifier struct {
	mu       sync.Mutex
	welcome  []string
	reset    []string
	resetErr error
}

func (n *testNotifier) SendWelcome(_ context.Context, _ *auth.Account, url string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.welcome = append(n.welcome, url)
	return nil
}

func (n *testNotifier) SendPasswordReset(_ context.Context, _ *auth.Account, url string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.resetErr != nil {
		return n.resetErr
	}
	n.reset = append(n.reset, url)
	return nil
}

func (n *testNotifier) welcomeURLs() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.welcome...)
}

func (n *testNotifier) lastResetURL(t *testing.T) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.reset, "no reset mail was sent")
	return n.reset[len(n.reset)-1]
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	router   *gin.Engine
	svc      *auth.Service
	store    *memory.AccountStore
	hasher   *auth.Argon2idHasher
	notifier *testNotifier
	metrics  *observability.Metrics
	clock    *clock
	logs     *bytes.Buffer
}

func newTestEnv(t *testing.T, configure ...func(*httpapi.Options)) *testEnv {
	t.Helper()
	env := &testEnv{
		store:    memory.NewAccountStore(),
		hasher:   auth.NewArgon2idHasher(testHashParams),
		notifier: &testNotifier{},
		metrics:  observability.NewMetrics(prometheus.NewRegistry()),
		clock:    &clock{now: time.Now().UTC().Truncate(time.Second)},
		logs:     &bytes.Buffer{},
	}
	logger := slog.New(slog.NewJSONHandler(env.logs, nil))

	tokens, err := auth.NewTokenService([]byte(testSecret), time.Hour)
	require.NoError(t, err)

	env.svc, err = auth.NewService(auth.Deps{
		Accounts: env.store,
		Hasher:   env.hasher,
		Tokens:   tokens,
		Notifier: env.notifier,
		Logger:   logger,
		Events:   env.metrics,
	}, auth.Config{})
	require.NoError(t, err)
	t.Cleanup(env.svc.Wait)

	opts := httpapi.Options{
		Logger:      logger,
		CORSOrigins: []string{"https://*.natours.dev"},
		Metrics:     env.metrics,
		Now:         env.clock.Now,
	}
	for _, fn := range configure {
		fn(&opts)
	}

	env.router, err = httpapi.NewRouter(env.svc, opts)
	require.NoError(t, err)
	return env
}

// createAccount stores an account directly, bypassing sign-up.
func (e *testEnv) createAccount(t *testing.T, email, password string, role auth.Role) *auth.Account {
	t.Helper()
	hash, err := e.hasher.Hash(password)
	require.NoError(t, err)
	acct, err := auth.NewAccount("Test "+string(role), email, hash, role, time.Now())
	require.NoError(t, err)
	require.NoError(t, e.store.Create(context.Background(), acct))
	return acct
}

// login signs in and returns the bearer token.
func (e *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/v1/users/login", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	token, _ := decode(t, rec)["token"].(string)
	require.NotEmpty(t, token)
	return token
}

type requestOption func(*http.Request)

func withBearer(token string) requestOption {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func withCookie(value string) requestOption {
	return func(r *http.Request) { r.AddCookie(&http.Cookie{Name: httpapi.CookieName, Value: value}) }
}

func withHeader(key, value string) requestOption {
	return func(r *http.Request) { r.Header.Set(key, value) }
}

func withRemoteAddr(addr string) requestOption {
	return func(r *http.Request) { r.RemoteAddr = addr }
}

func (e *testEnv) do(t *testing.T, method, path string, body any, opts ...requestOption) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func userOf(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	data, ok := body["data"].(map[string]any)
	require.True(t, ok, "response has no data object")
	user, ok := data["user"].(map[string]any)
	require.True(t, ok, "response has no user object")
	return user
}

func authCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == httpapi.CookieName {
			return c
		}
	}
	t.Fatalf("response set no %s cookie", httpapi.CookieName)
	return nil
}
