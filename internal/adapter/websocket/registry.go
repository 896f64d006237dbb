package websocket

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/pscheid92/postwire/internal/adapter/metrics"
)

// Registry tracks the active connections of this process.
type Registry struct {
	mu      sync.Mutex
	conns   []Connection
	metrics *metrics.WebSocketMetrics
}

// NewRegistry creates an empty registry. m may be nil.
func NewRegistry(m *metrics.WebSocketMetrics) *Registry {
	return &Registry{metrics: m}
}

// Register adds an accepted connection. Registration order is broadcast order.
func (r *Registry) Register(conn Connection) {
	r.mu.Lock()
	r.conns = append(r.conns, conn)
	count := len(r.conns)
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.ActiveConnections.Set(float64(count))
	}
	slog.Debug("WebSocket connection registered", "conn_id", conn.ID(), "connections", count)
}

// Unregister removes conn. Unknown connections are ignored.
func (r *Registry) Unregister(conn Connection) {
	r.mu.Lock()
	idx := slices.Index(r.conns, conn)
	if idx < 0 {
		r.mu.Unlock()
		return
	}
	r.conns = slices.Delete(r.conns, idx, idx+1)
	count := len(r.conns)
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.ActiveConnections.Set(float64(count))
	}
	slog.Debug("WebSocket connection unregistered", "conn_id", conn.ID(), "connections", count)
}

// SendTo delivers message to a single connection.
func (r *Registry) SendTo(conn Connection, message string) error {
	if err := conn.Send(message); err != nil {
		r.countFailure()
		return err
	}
	return nil
}

// Broadcast sends message to every connection registered when the call starts.
// A failed delivery does not stop the others; all failures are returned joined.
func (r *Registry) Broadcast(message string) error {
	var errs []error
	for _, conn := range r.snapshot() {
		if err := conn.Send(message); err != nil {
			r.countFailure()
			slog.Warn("Broadcast delivery failed", "conn_id", conn.ID(), "error", err)
			errs = append(errs, fmt.Errorf("connection %s: %w", conn.ID(), err))
		}
	}
	return errors.Join(errs...)
}

// Count returns the number of registered connections.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// CloseAll closes every registered connection with reason and empties the registry.
func (r *Registry) CloseAll(reason string) {
	r.mu.Lock()
	conns := r.conns
	r.conns = nil
	r.mu.Unlock()

	for _, conn := range conns {
		if err := conn.Close(reason); err != nil {
			slog.Debug("Error closing WebSocket connection", "conn_id", conn.ID(), "error", err)
		}
	}

	if r.metrics != nil {
		r.metrics.ActiveConnections.Set(0)
	}
	slog.Info("Closed WebSocket connections", "count", len(conns))
}

func (r *Registry) snapshot() []Connection {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.conns)
}

func (r *Registry) countFailure() {
	if r.metrics != nil {
		r.metrics.SendFailures.Inc()
	}
}
