package websocket

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
)

const (
	writeDeadline  = 5 * time.Second
	pingInterval   = 30 * time.Second
	pongDeadline   = 60 * time.Second
	maxMessageSize = 64 * 1024
)

// Connection is a live duplex channel tracked by the Registry.
type Connection interface {
	ID() string
	Send(message string) error
	Close(reason string) error
}

// Conn wraps a gorilla connection. Writes are serialized because gorilla
// supports a single concurrent writer; reads belong to the session loop.
type Conn struct {
	ws        *websocket.Conn
	id        string
	clock     clockwork.Clock
	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

// NewConn configures read limits and pong handling and starts the ping loop.
func NewConn(ws *websocket.Conn, clock clockwork.Clock) *Conn {
	c := &Conn{
		ws:    ws,
		id:    uuid.NewString(),
		clock: clock,
		done:  make(chan struct{}),
	}

	ws.SetReadLimit(maxMessageSize)
	c.updateReadDeadline()
	ws.SetPongHandler(func(string) error {
		c.updateReadDeadline()
		return nil
	})

	go c.keepalive()
	return c
}

// ID is a random identifier used as a log field.
func (c *Conn) ID() string {
	return c.id
}

// Send writes one text frame.
func (c *Conn) Send(message string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.updateWriteDeadline()
	if err := c.ws.WriteMessage(websocket.TextMessage, []byte(message)); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// ReadText blocks until the next data frame arrives. Binary frames are returned as text.
func (c *Conn) ReadText() (string, error) {
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		return "", err
	}
	c.updateReadDeadline()
	return string(data), nil
}

// Close sends a normal close frame with reason and closes the socket.
// A blocked ReadText returns an error afterwards. Safe to call more than once.
func (c *Conn) Close(reason string) error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)

		c.writeMu.Lock()
		c.updateWriteDeadline()
		_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason))
		c.writeMu.Unlock()

		err = c.ws.Close()
	})
	return err
}

func (c *Conn) keepalive() {
	ticker := c.clock.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			c.writeMu.Lock()
			c.updateWriteDeadline()
			err := c.ws.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Conn) updateWriteDeadline() {
	_ = c.ws.SetWriteDeadline(c.clock.Now().Add(writeDeadline))
}

func (c *Conn) updateReadDeadline() {
	_ = c.ws.SetReadDeadline(c.clock.Now().Add(pongDeadline))
}
