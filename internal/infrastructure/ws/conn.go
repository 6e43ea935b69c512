package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Conn wraps one client websocket. All writes go through the send channel
// into a single writer goroutine; inbound messages are handled in arrival
// order on the reader goroutine. The connection context is cancelled the
// moment the socket is gone, which is how jobs learn their client left.
type Conn struct {
	hub      *Hub
	ws       *websocket.Conn
	connID   string
	clientID string

	send      chan []byte
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	logger *zap.Logger
}

// ConnID returns the server-assigned connection id.
func (c *Conn) ConnID() string { return c.connID }

// ClientID returns the client-chosen id from the connect path.
func (c *Conn) ClientID() string { return c.clientID }

// Context is cancelled when the connection closes.
func (c *Conn) Context() context.Context { return c.ctx }

// Send marshals v and queues it for the writer goroutine. Sends after the
// connection closed are dropped silently; a full send buffer closes the
// connection, since a client that cannot drain audio events is gone for
// practical purposes.
func (c *Conn) Send(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("outbound message marshal failed", zap.Error(err))
		return
	}
	select {
	case <-c.ctx.Done():
	case c.send <- data:
	default:
		c.logger.Warn("send buffer full, dropping connection",
			zap.String("conn_id", c.connID))
		c.close()
	}
}

// trySend queues v without the full-buffer close. Used for broadcasts,
// where one slow client should not be disconnected over a notification.
func (c *Conn) trySend(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("outbound message marshal failed", zap.Error(err))
		return
	}
	select {
	case <-c.ctx.Done():
	case c.send <- data:
	default:
	}
}

// close tears the connection down exactly once.
func (c *Conn) close() {
	c.closeOnce.Do(func() {
		c.cancel()
		c.ws.Close()
	})
}

// readPump delivers inbound messages to the hub's handler one at a time,
// preserving arrival order. It owns the read side: deadlines, pong
// handling, size limits.
func (c *Conn) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.close()
	}()

	c.ws.SetReadLimit(c.hub.cfg.MaxMessageBytes)
	readWait := 2 * c.hub.cfg.HeartbeatInterval
	c.ws.SetReadDeadline(time.Now().Add(readWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(readWait))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read error",
					zap.String("conn_id", c.connID), zap.Error(err))
			}
			return
		}
		c.ws.SetReadDeadline(time.Now().Add(readWait))
		c.hub.handler.HandleMessage(c, data)
	}
}

// writePump is the only goroutine writing to the socket. It drains the
// send channel and keeps the connection alive with periodic pings.
func (c *Conn) writePump() {
	ticker := time.NewTicker(c.hub.cfg.HeartbeatInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			c.ws.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteTimeout))
			c.ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case data := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
