// Package syncclient keeps a local board replica in step with a relay.
//
// A Client owns the transport: it joins a board as soon as the connection
// opens and hands every inbound action to a callback, translating the
// relay's SYNC_STATE snapshot into a SET_STATE action. A Board is the local
// replica: it applies local actions optimistically, forwards them through
// the Client and applies remote actions delivered by it.
package syncclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"poemboard/internal/domain"
)

const (
	defaultWriteWait      = 10 * time.Second
	defaultSendBufferSize = 64
)

// Status reports transport state changes
type Status struct {
	Connected bool
}

// Options configures a Client
type Options struct {
	URL     string
	BoardID string

	// OnAction receives every remote action, including the SET_STATE built
	// from the join snapshot. Calls are serialized.
	OnAction func(domain.Action)
	OnJoined func(boardID string)
	OnStatus func(Status)

	Dialer         *websocket.Dialer
	WriteWait      time.Duration
	SendBufferSize int
	Logger         *slog.Logger
}

// Client is a board subscription over one websocket connection
type Client struct {
	opts   Options
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	closed chan struct{}
	logger *slog.Logger

	mu   sync.Mutex
	open bool
}

// Dial connects to the relay and queues JOIN_BOARD for opts.BoardID
func Dial(ctx context.Context, opts Options) (*Client, error) {
	if opts.BoardID == "" {
		return nil, domain.ErrEmptyBoardID
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	if opts.WriteWait <= 0 {
		opts.WriteWait = defaultWriteWait
	}
	if opts.SendBufferSize <= 0 {
		opts.SendBufferSize = defaultSendBufferSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	conn, _, err := opts.Dialer.DialContext(ctx, opts.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", opts.URL, err)
	}

	c := &Client{
		opts:   opts,
		conn:   conn,
		send:   make(chan []byte, opts.SendBufferSize),
		done:   make(chan struct{}),
		closed: make(chan struct{}),
		logger: opts.Logger.With("boardId", opts.BoardID),
		open:   true,
	}

	c.status(true)

	join, err := domain.Encode(domain.JoinBoard{BoardID: opts.BoardID})
	if err != nil {
		conn.Close()
		return nil, err
	}
	c.send <- join

	go c.writePump()
	go c.readPump()

	return c, nil
}

// SendAction transmits a local action if the transport is open. Actions
// sent while the transport is closed, or while the queue is full, are
// dropped.
func (c *Client) SendAction(a domain.Action) error {
	data, err := domain.Encode(a)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.open {
		return domain.ErrNotConnected
	}

	select {
	case c.send <- data:
	default:
		c.logger.Debug("send queue full, action dropped", "type", a.Type())
	}
	return nil
}

// Connected reports whether the transport is open
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// Done is closed once the connection has ended
func (c *Client) Done() <-chan struct{} {
	return c.closed
}

// Close ends the subscription. Queued actions that have not been written
// yet are lost.
func (c *Client) Close() error {
	if !c.markClosed() {
		return nil
	}
	close(c.done)
	c.status(false)
	return c.conn.Close()
}

func (c *Client) markClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return false
	}
	c.open = false
	return true
}

func (c *Client) status(connected bool) {
	if c.opts.OnStatus != nil {
		c.opts.OnStatus(Status{Connected: connected})
	}
}

func (c *Client) readPump() {
	defer func() {
		c.Close()
		close(c.closed)
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) && c.Connected() {
				c.logger.Debug("websocket read error", "error", err)
			}
			return
		}

		c.handleMessage(data)
	}
}

func (c *Client) writePump() {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Debug("websocket write error", "error", err)
				c.Close()
				return
			}
		}
	}
}

// handleMessage delivers recognized messages and drops everything else
func (c *Client) handleMessage(data []byte) {
	msg, err := domain.DecodeServerMessage(data)
	if err != nil {
		c.logger.Debug("message dropped", "error", err)
		return
	}

	switch m := msg.(type) {
	case domain.SyncState:
		c.deliver(domain.SetState{Words: m.Words})
	case domain.Joined:
		c.logger.Debug("joined board")
		if c.opts.OnJoined != nil {
			c.opts.OnJoined(m.BoardID)
		}
	case domain.Action:
		c.deliver(m)
	}
}

func (c *Client) deliver(a domain.Action) {
	if c.opts.OnAction != nil {
		c.opts.OnAction(a)
	}
}
