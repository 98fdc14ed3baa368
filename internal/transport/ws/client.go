package ws

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"poemboard/internal/app"
	"poemboard/internal/config"
	"poemboard/internal/domain"
)

// Client is one relay connection. It implements app.Peer.
type Client struct {
	conn     *websocket.Conn
	registry *app.Registry
	member   *app.Member
	cfg      config.RelayConfig
	send     chan []byte
	done     chan struct{}
	alive    atomic.Bool
	logger   *slog.Logger
	mu       sync.Mutex
	closed   bool
}

// NewClient creates a relay connection and registers its handle
func NewClient(conn *websocket.Conn, registry *app.Registry, cfg config.RelayConfig, logger *slog.Logger) *Client {
	c := &Client{
		conn:     conn,
		registry: registry,
		cfg:      cfg,
		send:     make(chan []byte, cfg.SendBufferSize),
		done:     make(chan struct{}),
	}
	c.alive.Store(true)
	c.member = registry.Connect(c)
	c.logger = logger.With("connId", c.member.ID())
	return c
}

// ID returns the connection id
func (c *Client) ID() string {
	return c.member.ID()
}

// Send implements app.Peer. It never blocks: when the buffer is full or the
// connection is closed the message is dropped and the caller logs it.
func (c *Client) Send(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// Close implements app.Peer
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	close(c.done)
	return c.conn.Close()
}

// Run starts the write pump and blocks in the read pump until the
// connection ends.
func (c *Client) Run() {
	go c.writePump()
	c.readPump()
}

// readPump pumps messages from the WebSocket connection
func (c *Client) readPump() {
	defer func() {
		c.registry.Leave(c.member)
		c.Close()
		c.logger.Debug("websocket closed")
	}()

	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.alive.Store(true)
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read error", "error", err)
			}
			return
		}

		c.handleMessage(message)
	}
}

// writePump pumps queued messages to the WebSocket connection and probes
// the peer once per heartbeat interval. A peer that has not answered the
// previous probe by the next tick is terminated.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Debug("websocket write error", "error", err)
				return
			}
		case <-ticker.C:
			if !c.alive.Swap(false) {
				c.logger.Info("heartbeat missed, terminating connection", "boardId", c.registry.BoardOf(c.member))
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage classifies one inbound message. Anything malformed, and any
// action from a connection that has not joined a board, is dropped without
// a reply.
func (c *Client) handleMessage(data []byte) {
	msg, err := domain.DecodeClientMessage(data)
	if err != nil {
		c.logger.Debug("message dropped", "error", err)
		return
	}

	switch m := msg.(type) {
	case domain.JoinBoard:
		c.handleJoinBoard(m)
	case domain.Action:
		c.handleAction(m, data)
	}
}

// handleJoinBoard handles a JOIN_BOARD message
func (c *Client) handleJoinBoard(m domain.JoinBoard) {
	if _, err := c.registry.Join(c.member, m.BoardID); err != nil {
		c.logger.Warn("join failed", "boardId", m.BoardID, "error", err)
	}
}

// handleAction handles a board action. data is relayed verbatim.
func (c *Client) handleAction(a domain.Action, data []byte) {
	err := c.registry.ApplyAndBroadcast(c.member, a, data)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotJoined):
		c.logger.Debug("action before join dropped", "type", a.Type())
	default:
		c.logger.Warn("action failed", "type", a.Type(), "error", err)
	}
}
