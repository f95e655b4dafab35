// Package ws adapts a gorilla websocket connection to the transport contract
// the registry depends on: fire-and-forget sends through a buffered channel,
// an open flag, and close notification callbacks.
package ws

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 256
)

var ErrConnClosed = errors.New("connection closed")

type Conn struct {
	id     string
	ws     *websocket.Conn
	logger *slog.Logger
	send   chan []byte
	done   chan struct{}
	open   atomic.Bool

	mu       sync.Mutex
	closed   bool
	closeFns []func()
}

func NewConn(ws *websocket.Conn, logger *slog.Logger) *Conn {
	c := &Conn{
		id:     uuid.NewString(),
		ws:     ws,
		logger: logger,
		send:   make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
	}
	c.open.Store(true)

	return c
}

func (c *Conn) ID() string { return c.id }

func (c *Conn) Open() bool { return c.open.Load() }

// Send enqueues one text frame. It never blocks: a closed connection or a
// full buffer drops the frame and reports an error.
func (c *Conn) Send(data []byte) error {
	if !c.open.Load() {
		return ErrConnClosed
	}

	select {
	case c.send <- data:
		return nil
	default:
		return ErrConnClosed
	}
}

// NotifyClose registers fn to run once when the connection closes. If the
// connection is already closed, fn runs immediately from its own goroutine.
func (c *Conn) NotifyClose(fn func()) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		go fn()
		return
	}
	c.closeFns = append(c.closeFns, fn)
	c.mu.Unlock()
}

// Serve pumps the connection until the peer disconnects or a read fails,
// handing every inbound text frame to handle. It blocks the caller and fires
// the close notifications on return.
func (c *Conn) Serve(ctx context.Context, handle func(ctx context.Context, data []byte)) {
	go c.writePump()
	c.readLoop(ctx, handle)
	c.shutdown()
}

func (c *Conn) readLoop(ctx context.Context, handle func(ctx context.Context, data []byte)) {
	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Debug("read error", "connId", c.id, "error", err)
			}
			return
		}

		handle(ctx, data)
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			c.ws.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

func (c *Conn) shutdown() {
	c.open.Store(false)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	fns := c.closeFns
	c.closeFns = nil
	c.mu.Unlock()

	close(c.done)
	c.ws.Close()

	for _, fn := range fns {
		fn()
	}
}
