package ws

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096

	// Inbound rate limit: sustained 10 msg/s with a burst of 20 absorbs
	// stroke batches without letting one client flood a room.
	inboundRate  = rate.Limit(10)
	inboundBurst = 20
)

var (
	// ErrChannelClosed is returned by Deliver once the connection is gone.
	ErrChannelClosed = errors.New("ws: channel closed")
	// ErrSendBufferFull is returned by Deliver when the client stopped draining.
	ErrSendBufferFull = errors.New("ws: send buffer full")
)

// Client represents a single WebSocket connection. It satisfies the
// push.Channel contract: Deliver reports failure instead of dropping
// silently, so registries can prune dead subscribers.
type Client struct {
	id      string
	Hub     *Hub
	Conn    *websocket.Conn
	Send    chan []byte
	limiter *rate.Limiter
	closed  atomic.Bool

	// Faulted is set when the connection died abnormally rather than via a
	// clean close handshake. Disconnect handling uses it to decide whether
	// the session token must be invalidated.
	Faulted atomic.Bool
}

// NewClient creates a new Client.
func NewClient(id string, hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:      id,
		Hub:     hub,
		Conn:    conn,
		Send:    make(chan []byte, 256),
		limiter: rate.NewLimiter(inboundRate, inboundBurst),
	}
}

// NewTestClient creates a hub-less client whose Deliver output can be read
// back from Send. Intended for tests.
func NewTestClient(id string) *Client {
	return &Client{
		id:      id,
		Send:    make(chan []byte, 256),
		limiter: rate.NewLimiter(rate.Inf, 0),
	}
}

// ID returns the client identifier.
func (c *Client) ID() string {
	return c.id
}

// ReadPump pumps messages from the WebSocket connection to the hub.
func (c *Client) ReadPump() {
	defer func() {
		c.closed.Store(true)
		if c.Hub != nil {
			c.Hub.Unregister <- c
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Error("websocket read error", "client", c.id, "error", err)
				c.Faulted.Store(true)
			}
			break
		}
		if !c.limiter.Allow() {
			slog.Warn("client exceeded rate limit, dropping message", "client", c.id)
			continue
		}
		if c.Hub != nil {
			c.Hub.Incoming <- &ClientMessage{Client: c, Data: message}
		}
	}
}

// WritePump pumps messages from the hub to the WebSocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closed.Store(true)
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				c.Faulted.Store(true)
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				c.Faulted.Store(true)
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Deliver queues a message for this client. It returns an error when the
// connection is closed or the send buffer is full; callers treat either as a
// dead channel.
func (c *Client) Deliver(msg Message) error {
	if c.closed.Load() {
		return ErrChannelClosed
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	select {
	case c.Send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close marks the channel unusable for Deliver. The underlying connection is
// torn down by the pumps.
func (c *Client) Close() {
	c.closed.Store(true)
}

// ClientMessage wraps a raw message with its source client.
type ClientMessage struct {
	Client *Client
	Data   []byte
}
