package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	ws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	wsadapter "github.com/pscheid92/postwire/internal/adapter/websocket"
	"github.com/pscheid92/postwire/internal/platform/config"
)

func newUpgrader(cfg *config.Config) ws.Upgrader {
	return ws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     wsadapter.NewCheckOrigin(cfg.AppURL, !cfg.IsProduction()),
	}
}

func (s *Server) registerWebSocketRoutes(m ...echo.MiddlewareFunc) {
	s.echo.GET("/ws", s.handleEchoSocket, m...)
	s.echo.GET("/websockets", s.handleUpsertSocket, m...)
}

func (s *Server) handleEchoSocket(c echo.Context) error {
	return s.serveSocket(c, s.sessions.RunEcho)
}

func (s *Server) handleUpsertSocket(c echo.Context) error {
	return s.serveSocket(c, s.sessions.RunUpsert)
}

func (s *Server) serveSocket(c echo.Context, run func(context.Context, *ws.Conn)) error {
	ip := c.RealIP()
	if ok, reason := s.connLimits.Acquire(ip); !ok {
		slog.WarnContext(c.Request().Context(), "WebSocket connection rejected", "ip", ip, "reason", reason)
		if err := c.JSON(http.StatusServiceUnavailable, map[string]string{
			"error": "too many connections",
			"type":  string(reason),
		}); err != nil {
			return fmt.Errorf("failed to send JSON response: %w", err)
		}
		return nil
	}
	defer s.connLimits.Release(ip)

	conn, ok := s.upgrade(c)
	if !ok {
		return nil
	}
	run(c.Request().Context(), conn)
	return nil
}

// upgrade performs the handshake. On failure the upgrader has already written
// the HTTP error response.
func (s *Server) upgrade(c echo.Context) (*ws.Conn, bool) {
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.DebugContext(c.Request().Context(), "WebSocket upgrade failed", "path", c.Path(), "error", err)
		return nil, false
	}
	return conn, true
}
