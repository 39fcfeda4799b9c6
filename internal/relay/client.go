package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 1024
)

// Conn is the subset of *websocket.Conn the relay uses. Tests substitute a
// mock implementation.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Client is one dashboard browser tab attached to the relay. The transport
// layer owns the connection; the relay components hold only references and
// deliver through the buffered send channel.
type Client struct {
	id     string
	hub    *Hub
	conn   Conn
	send   chan []byte
	userID string

	// Feed channel keys this client has joined
	channels map[string]bool
	mu       sync.RWMutex

	ctx        context.Context
	cancel     context.CancelFunc
	closed     int32
	sendClosed int32
}

func NewClient(hub *Hub, conn Conn, userID string) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		id:       uuid.New().String(),
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, 256),
		userID:   userID,
		channels: make(map[string]bool),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (c *Client) ID() string {
	return c.id
}

func (c *Client) UserID() string {
	return c.userID
}

func (c *Client) Channels() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	channels := make([]string, 0, len(c.channels))
	for key := range c.channels {
		channels = append(channels, key)
	}
	return channels
}

func (c *Client) addChannel(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.channels[key] = true
}

func (c *Client) removeChannel(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.channels, key)
}

func (c *Client) isClosed() bool {
	return atomic.LoadInt32(&c.closed) == 1
}

// close marks the client as closed and cancels the context
func (c *Client) close() {
	if atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		c.cancel()
	}
}

// closeSendChannel safely closes the send channel
func (c *Client) closeSendChannel() {
	if atomic.CompareAndSwapInt32(&c.sendClosed, 0, 1) {
		close(c.send)
	}
}

// Deliver queues a payload for the client under the given channel key. A full
// send buffer counts as a dead client: the connection is closed rather than
// letting one slow browser stall an upstream relay goroutine.
func (c *Client) Deliver(channelKey string, payload []byte) error {
	if c.isClosed() {
		return ErrClientDisconnected
	}

	// Feed events are already JSON; log lines are plain text and must be
	// quoted before they can sit in the envelope's data field.
	if !json.Valid(payload) {
		payload, _ = json.Marshal(string(payload))
	}

	data, err := json.Marshal(Envelope{Type: channelKey, Data: payload})
	if err != nil {
		return err
	}

	select {
	case c.send <- data:
		return nil
	case <-c.ctx.Done():
		return ErrClientDisconnected
	default:
		slog.Warn("send buffer full, closing client", "clientID", c.id, "userID", c.userID)
		c.close()
		return ErrClientDisconnected
	}
}

func (c *Client) sendError(code, message string) {
	data, err := json.Marshal(ErrorData{Code: code, Message: message})
	if err != nil {
		return
	}
	c.Deliver(MessageTypeError.String(), data)
}

func (c *Client) readPump() {
	defer func() {
		c.close()

		select {
		case c.hub.unregister <- c:
		case <-time.After(5 * time.Second):
			slog.Warn("timeout sending unregister request", "clientID", c.id, "userID", c.userID)
		}

		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		if c.isClosed() {
			return websocket.ErrCloseSent
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("websocket error", "clientID", c.id, "userID", c.userID, "error", err)
			} else {
				slog.Debug("websocket connection closed", "clientID", c.id, "userID", c.userID, "error", err)
			}
			return
		}

		var req SubscribeRequest
		if err := json.Unmarshal(messageBytes, &req); err != nil {
			slog.Debug("failed to unmarshal message", "clientID", c.id, "error", err)
			c.sendError("INVALID_MESSAGE", "invalid message format")
			continue
		}
		if err := req.Validate(); err != nil {
			c.sendError("INVALID_MESSAGE", err.Error())
			continue
		}

		if err := c.hub.handleSubscribe(c, &req); err != nil {
			slog.Error("subscribe failed", "clientID", c.id, "type", req.Type, "error", err)
			c.sendError("SUBSCRIBE_FAILED", "subscription could not be established")
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-c.send:
			if c.isClosed() {
				return
			}

			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				slog.Debug("error writing message", "clientID", c.id, "error", err)
				return
			}

		case <-ticker.C:
			if c.isClosed() {
				return
			}

			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				slog.Debug("error sending ping", "clientID", c.id, "error", err)
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}
