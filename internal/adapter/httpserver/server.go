package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/pscheid92/postwire/internal/domain"
	"github.com/pscheid92/postwire/internal/platform/config"
)

type postService interface {
	CreatePost(ctx context.Context, title, body string) (*domain.Post, error)
	GetPost(ctx context.Context, id int64) (*domain.Post, error)
	UpdatePost(ctx context.Context, id int64, title, body string) (*domain.Post, error)
	DeletePost(ctx context.Context, id int64) error
}

type sessionRunner interface {
	RunEcho(ctx context.Context, conn *ws.Conn)
	RunUpsert(ctx context.Context, conn *ws.Conn)
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	posts      postService
	sessions   sessionRunner
	upgrader   ws.Upgrader
	connLimits *connectionLimits

	metricsRegistry *prometheus.Registry
	healthChecks    []HealthCheck
	clock           clockwork.Clock
	startTime       time.Time
}

// NewServer builds the echo instance and registers all routes.
// reg may be nil, in which case no metrics are recorded or exposed.
func NewServer(cfg *config.Config, posts postService, sessions sessionRunner, reg *prometheus.Registry, healthChecks []HealthCheck, clock clockwork.Clock) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.IPExtractor = newIPExtractor(cfg)

	srv := &Server{
		echo:            e,
		config:          cfg,
		posts:           posts,
		sessions:        sessions,
		upgrader:        newUpgrader(cfg),
		connLimits:      newConnectionLimits(cfg.WSMaxConnections, cfg.WSMaxConnectionsPerIP),
		metricsRegistry: reg,
		healthChecks:    healthChecks,
		clock:           clock,
		startTime:       clock.Now(),
	}

	srv.registerRoutes()

	return srv
}

// newIPExtractor decides which address c.RealIP reports, which keys the rate
// limiter and the per-IP WebSocket cap. Forwarding headers are only believed
// from configured proxy ranges.
func newIPExtractor(cfg *config.Config) echo.IPExtractor {
	ranges, err := cfg.TrustedProxyRanges()
	if err != nil {
		slog.Warn("Ignoring trusted proxies", "error", err)
		ranges = nil
	}
	if len(ranges) == 0 {
		return echo.ExtractIPDirect()
	}

	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, r := range ranges {
		opts = append(opts, echo.TrustIPRange(r))
	}
	return echo.ExtractIPFromXFFHeader(opts...)
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}
