package httpserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// replyOnce answers the first frame with prefix+frame and returns.
func replyOnce(prefix string) func(context.Context, *ws.Conn) {
	return func(_ context.Context, conn *ws.Conn) {
		defer conn.Close()
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.WriteMessage(ws.TextMessage, []byte(prefix+string(data)))
	}
}

func startTestServer(t *testing.T, srv *Server) string {
	t.Helper()
	httpServer := httptest.NewServer(srv.echo)
	t.Cleanup(httpServer.Close)
	return "ws" + strings.TrimPrefix(httpServer.URL, "http")
}

func TestWebSocketRoutes_DispatchToSessions(t *testing.T) {
	sessions := &mockSessions{
		echoFn:   replyOnce("echo:"),
		upsertFn: replyOnce("upsert:"),
	}
	srv := newTestServer(t, &mockPostService{}, withSessions(sessions))
	base := startTestServer(t, srv)

	for path, want := range map[string]string{"/ws": "echo:hi", "/websockets": "upsert:hi"} {
		conn, _, err := ws.DefaultDialer.Dial(base+path, nil)
		require.NoError(t, err, path)

		require.NoError(t, conn.WriteMessage(ws.TextMessage, []byte("hi")))
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err, path)
		assert.Equal(t, want, string(data))
		conn.Close()
	}
}

func TestWebSocketRoutes_RejectForeignOriginInProduction(t *testing.T) {
	cfg := testConfig()
	cfg.AppEnv = "production"
	cfg.AppURL = "https://posts.example.com"

	called := false
	sessions := &mockSessions{echoFn: func(context.Context, *ws.Conn) { called = true }}
	srv := newTestServer(t, &mockPostService{}, withConfig(cfg), withSessions(sessions))
	base := startTestServer(t, srv)

	header := http.Header{"Origin": []string{"https://evil.example.com"}}
	_, resp, err := ws.DefaultDialer.Dial(base+"/ws", header)

	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.False(t, called)
}

func TestWebSocketRoutes_PlainHTTPRequestIsRejected(t *testing.T) {
	srv := newTestServer(t, &mockPostService{})

	rec := serve(srv, http.MethodGet, "/ws", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebSocketRoutes_PerIPConnectionLimit(t *testing.T) {
	cfg := testConfig()
	cfg.WSMaxConnectionsPerIP = 1

	release := make(chan struct{})
	sessions := &mockSessions{echoFn: func(context.Context, *ws.Conn) { <-release }}
	srv := newTestServer(t, &mockPostService{}, withConfig(cfg), withSessions(sessions))
	base := startTestServer(t, srv)
	t.Cleanup(func() { close(release) })

	first, _, err := ws.DefaultDialer.Dial(base+"/ws", nil)
	require.NoError(t, err)
	defer first.Close()

	_, resp, err := ws.DefaultDialer.Dial(base+"/ws", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, int64(1), srv.connLimits.Current())
}

func TestWebSocketRoutes_PerIPLimitIgnoresForwardedFor(t *testing.T) {
	cfg := testConfig()
	cfg.WSMaxConnectionsPerIP = 1

	release := make(chan struct{})
	sessions := &mockSessions{echoFn: func(context.Context, *ws.Conn) { <-release }}
	srv := newTestServer(t, &mockPostService{}, withConfig(cfg), withSessions(sessions))
	base := startTestServer(t, srv)
	t.Cleanup(func() { close(release) })

	first, _, err := ws.DefaultDialer.Dial(base+"/ws", nil)
	require.NoError(t, err)
	defer first.Close()

	spoofed := http.Header{"X-Forwarded-For": []string{"203.0.113.7"}}
	_, resp, err := ws.DefaultDialer.Dial(base+"/ws", spoofed)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
