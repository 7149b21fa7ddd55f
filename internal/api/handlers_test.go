package api

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/dumebi/healthchat/internal/chat"
	"github.com/dumebi/healthchat/internal/models"
	"github.com/dumebi/healthchat/internal/secret"
	"github.com/dumebi/healthchat/internal/session"
	"github.com/dumebi/healthchat/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func chatMessage(role, content string) types.Message {
	return types.Message{Role: types.Role(role), Content: content, Timestamp: time.Now()}
}

func newTestServer(t *testing.T, keyReady bool) (*httptest.Server, *session.MemoryStore) {
	t.Helper()
	t.Setenv(secret.EnvKey, "")

	logger := testLogger()
	secrets := secret.NewStore(logger)
	if keyReady {
		secrets.Set("test-key")
	}

	store := session.NewMemoryStore()
	ctrl := chat.NewController(logger, chat.NewEchoEngine(0), store, secrets, 0)

	h := NewHandlers(logger, ctrl, models.NewStaticManager([]string{"gemini-2.0-flash"}), store, secrets, "gemini-2.0-flash")
	h.Admin = NewAdmin(secrets)

	mux := chi.NewRouter()
	RegisterRoutes(mux, h)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, store
}

func TestChat_StreamsDeltasAndDone(t *testing.T) {
	srv, store := newTestServer(t, true)

	res, err := http.Post(srv.URL+"/api/chat", "application/json",
		strings.NewReader(`{"session_id":"c1","message":"hello there"}`))
	require.NoError(t, err)
	defer res.Body.Close()

	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "text/event-stream", res.Header.Get("Content-Type"))

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	text := string(body)
	require.Contains(t, text, "event: user")
	require.Contains(t, text, "event: delta")
	require.Contains(t, text, "event: done")
	require.Contains(t, text, "you said: hello there")
	require.NotContains(t, text, "event: error")

	msgs, _ := store.Get("c1")
	require.Len(t, msgs, 2, "one user and one assistant message per completed turn")
}

func TestChat_FailsClosedWithoutKey(t *testing.T) {
	srv, store := newTestServer(t, false)

	res, err := http.Post(srv.URL+"/api/chat", "application/json",
		strings.NewReader(`{"session_id":"c1","message":"hello"}`))
	require.NoError(t, err)
	defer res.Body.Close()

	require.Equal(t, http.StatusServiceUnavailable, res.StatusCode)
	body, _ := io.ReadAll(res.Body)
	require.Contains(t, string(body), "api_key_missing")

	msgs, _ := store.Get("c1")
	require.Empty(t, msgs, "no turn is recorded when blocked on configuration")
}

func TestChat_RejectsEmptyMessage(t *testing.T) {
	srv, _ := newTestServer(t, true)

	res, err := http.Post(srv.URL+"/api/chat", "application/json", strings.NewReader(`{"session_id":"c1"}`))
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestAdmin_KeyLifecycle(t *testing.T) {
	srv, _ := newTestServer(t, false)

	res, err := http.Get(srv.URL + "/api/key/status")
	require.NoError(t, err)
	body, _ := io.ReadAll(res.Body)
	res.Body.Close()
	require.Contains(t, string(body), `"ready":false`)

	res, err = http.Post(srv.URL+"/admin/key", "application/json", strings.NewReader(`{"key":"abc"}`))
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	res, err = http.Get(srv.URL + "/api/key/status")
	require.NoError(t, err)
	body, _ = io.ReadAll(res.Body)
	res.Body.Close()
	require.Contains(t, string(body), `"ready":true`)

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/admin/key", nil)
	res, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	res, err = http.Get(srv.URL + "/api/key/status")
	require.NoError(t, err)
	body, _ = io.ReadAll(res.Body)
	res.Body.Close()
	require.Contains(t, string(body), `"ready":false`)
}

func TestGetHistory(t *testing.T) {
	srv, store := newTestServer(t, true)
	require.NoError(t, store.Append("c9", chatMessage("user", "hi")))

	res, err := http.Get(srv.URL + "/api/history/c9")
	require.NoError(t, err)
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)
	require.Contains(t, string(body), `"role":"user"`)
	require.Contains(t, string(body), `"content":"hi"`)
}

func TestHealthAndVersion(t *testing.T) {
	srv, _ := newTestServer(t, true)

	res, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	res, err = http.Get(srv.URL + "/version")
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
}
