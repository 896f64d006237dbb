package httpserver

import (
	"context"
	"errors"
	"testing"

	ws "github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/pscheid92/postwire/internal/domain"
	"github.com/pscheid92/postwire/internal/platform/config"
)

// --- Mock implementations ---

type mockPostService struct {
	createPostFn func(ctx context.Context, title, body string) (*domain.Post, error)
	getPostFn    func(ctx context.Context, id int64) (*domain.Post, error)
	updatePostFn func(ctx context.Context, id int64, title, body string) (*domain.Post, error)
	deletePostFn func(ctx context.Context, id int64) error
}

func (m *mockPostService) CreatePost(ctx context.Context, title, body string) (*domain.Post, error) {
	if m.createPostFn != nil {
		return m.createPostFn(ctx, title, body)
	}
	return nil, errors.New("not implemented")
}

func (m *mockPostService) GetPost(ctx context.Context, id int64) (*domain.Post, error) {
	if m.getPostFn != nil {
		return m.getPostFn(ctx, id)
	}
	return nil, domain.ErrPostNotFound
}

func (m *mockPostService) UpdatePost(ctx context.Context, id int64, title, body string) (*domain.Post, error) {
	if m.updatePostFn != nil {
		return m.updatePostFn(ctx, id, title, body)
	}
	return nil, domain.ErrPostNotFound
}

func (m *mockPostService) DeletePost(ctx context.Context, id int64) error {
	if m.deletePostFn != nil {
		return m.deletePostFn(ctx, id)
	}
	return domain.ErrPostNotFound
}

type mockSessions struct {
	echoFn   func(ctx context.Context, conn *ws.Conn)
	upsertFn func(ctx context.Context, conn *ws.Conn)
}

func (m *mockSessions) RunEcho(ctx context.Context, conn *ws.Conn) {
	if m.echoFn != nil {
		m.echoFn(ctx, conn)
	}
}

func (m *mockSessions) RunUpsert(ctx context.Context, conn *ws.Conn) {
	if m.upsertFn != nil {
		m.upsertFn(ctx, conn)
	}
}

// --- Test helpers ---

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:                "development",
		Port:                  "0",
		AppURL:                "http://localhost:8080",
		RateLimitBurst:        20,
		WSMaxConnections:      100,
		WSMaxConnectionsPerIP: 10,
	}
}

type serverOptions struct {
	cfg          *config.Config
	sessions     sessionRunner
	registry     *prometheus.Registry
	healthChecks []HealthCheck
	clock        clockwork.Clock
}

func newTestServer(t *testing.T, posts postService, opts ...func(*serverOptions)) *Server {
	t.Helper()

	o := &serverOptions{
		cfg:      testConfig(),
		sessions: &mockSessions{},
		clock:    clockwork.NewFakeClock(),
	}
	for _, opt := range opts {
		opt(o)
	}

	return NewServer(o.cfg, posts, o.sessions, o.registry, o.healthChecks, o.clock)
}

func withConfig(cfg *config.Config) func(*serverOptions) {
	return func(o *serverOptions) {
		o.cfg = cfg
	}
}

func withSessions(s sessionRunner) func(*serverOptions) {
	return func(o *serverOptions) {
		o.sessions = s
	}
}

func withMetrics(reg *prometheus.Registry) func(*serverOptions) {
	return func(o *serverOptions) {
		o.registry = reg
	}
}

func withHealthChecks(checks ...HealthCheck) func(*serverOptions) {
	return func(o *serverOptions) {
		o.healthChecks = checks
	}
}

func withClock(clock clockwork.Clock) func(*serverOptions) {
	return func(o *serverOptions) {
		o.clock = clock
	}
}

// callHandler wraps a handler with error middleware, matching production behavior
func callHandler(handler echo.HandlerFunc, c echo.Context) error {
	return ErrorHandlingMiddleware()(handler)(c)
}
