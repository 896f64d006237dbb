package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/postwire/internal/adapter/metrics"
	"github.com/pscheid92/postwire/internal/domain"
	apperrors "github.com/pscheid92/postwire/internal/platform/errors"
)

const (
	EndpointEcho   = "echo"
	EndpointUpsert = "upsert"

	replyPostUpdated = "Post updated in the db."
	replyStoreFailed = "Failed to update post."
	closeReasonDone  = "Session ended"
)

// PostUpserter is the store operation the upsert channel needs.
type PostUpserter interface {
	UpsertPost(ctx context.Context, id int64, title, body string) (*domain.Post, error)
}

// Sessions drives the per-connection receive loops of both WebSocket channels.
type Sessions struct {
	registry *Registry
	posts    PostUpserter
	clock    clockwork.Clock
	metrics  *metrics.WebSocketMetrics
}

// NewSessions wires the session loops. m may be nil.
func NewSessions(registry *Registry, posts PostUpserter, clock clockwork.Clock, m *metrics.WebSocketMetrics) *Sessions {
	return &Sessions{registry: registry, posts: posts, clock: clock, metrics: m}
}

// RunEcho answers every text frame with "You sent: <message>" until the connection ends.
func (s *Sessions) RunEcho(ctx context.Context, ws *websocket.Conn) {
	s.run(ctx, ws, EndpointEcho, func(_ context.Context, message string) string {
		return "You sent: " + message
	})
}

// RunUpsert stores every {id, title, body} frame and acknowledges it.
// Malformed frames and store failures are answered without ending the session.
func (s *Sessions) RunUpsert(ctx context.Context, ws *websocket.Conn) {
	s.run(ctx, ws, EndpointUpsert, s.handleUpsert)
}

func (s *Sessions) run(ctx context.Context, ws *websocket.Conn, endpoint string, handle func(context.Context, string) string) {
	conn := NewConn(ws, s.clock)
	logger := slog.With("conn_id", conn.ID(), "endpoint", endpoint)

	s.registry.Register(conn)
	defer func() {
		s.registry.Unregister(conn)
		_ = conn.Close(closeReasonDone)
		logger.InfoContext(ctx, "WebSocket session closed")
	}()

	logger.InfoContext(ctx, "WebSocket session opened", "remote_addr", ws.RemoteAddr().String())

	for {
		message, err := conn.ReadText()
		if err != nil {
			logReadError(ctx, logger, err)
			return
		}
		if s.metrics != nil {
			s.metrics.MessagesReceived.WithLabelValues(endpoint).Inc()
		}

		reply := handle(ctx, message)
		if err := s.registry.SendTo(conn, reply); err != nil {
			logger.WarnContext(ctx, "WebSocket send failed", "error", err)
			return
		}
	}
}

func logReadError(ctx context.Context, logger *slog.Logger, err error) {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
		logger.DebugContext(ctx, "WebSocket closed by client", "reason", err.Error())
		return
	}
	logger.WarnContext(ctx, "WebSocket receive failed", "error", err)
}

func (s *Sessions) handleUpsert(ctx context.Context, message string) string {
	msg, err := parseUpsertMessage(message)
	if err != nil {
		slog.DebugContext(ctx, "Invalid upsert message", "error", err)
		return "Invalid message: " + validationReason(err)
	}

	if _, err := s.posts.UpsertPost(ctx, *msg.ID, *msg.Title, *msg.Body); err != nil {
		slog.ErrorContext(ctx, "Failed to upsert post", "post_id", *msg.ID, "error", err)
		return replyStoreFailed
	}
	return replyPostUpdated
}

type upsertMessage struct {
	ID    *int64  `json:"id"`
	Title *string `json:"title"`
	Body  *string `json:"body"`
}

// parseUpsertMessage returns a validation error naming the first problem found.
func parseUpsertMessage(raw string) (*upsertMessage, error) {
	var msg upsertMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return nil, apperrors.ValidationError(fmt.Sprintf("malformed JSON: %v", jsonReason(err)))
	}

	switch {
	case msg.ID == nil:
		return nil, apperrors.ValidationError("missing id")
	case msg.Title == nil:
		return nil, apperrors.ValidationError("missing title")
	case msg.Body == nil:
		return nil, apperrors.ValidationError("missing body")
	}
	return &msg, nil
}

func validationReason(err error) string {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

func jsonReason(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return fmt.Sprintf("field %q must be %s", typeErr.Field, typeErr.Type)
	}
	return err.Error()
}
