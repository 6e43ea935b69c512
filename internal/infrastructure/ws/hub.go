package ws

import (
	"context"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/anishvdev/voiceforge/pkg/config"
)

// Handler consumes the lifecycle of a connection. HandleMessage is called
// from the reader goroutine, one message at a time per connection.
type Handler interface {
	OnConnect(c *Conn)
	HandleMessage(c *Conn, data []byte)
	OnDisconnect(c *Conn)
}

// Hub upgrades websocket requests and tracks live connections.
type Hub struct {
	cfg      config.WebsocketConfig
	upgrader websocket.Upgrader
	handler  Handler

	mu    sync.RWMutex
	conns map[string]*Conn

	logger *zap.Logger
}

// NewHub creates a hub. allowedOrigins of ["*"] disables the origin check.
func NewHub(cfg config.WebsocketConfig, allowedOrigins []string, handler Handler, logger *zap.Logger) *Hub {
	allowAll := false
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}
	return &Hub{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowAll || origin == "" || allowed[origin]
			},
		},
		handler: handler,
		conns:   make(map[string]*Conn),
		logger:  logger,
	}
}

// ServeWS upgrades the request and runs the connection until it closes.
func (h *Hub) ServeWS(c echo.Context) error {
	clientID := c.Param("client_id")
	if clientID == "" {
		clientID = uuid.New().String()
	}

	socket, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	conn := &Conn{
		hub:      h,
		ws:       socket,
		connID:   uuid.New().String(),
		clientID: clientID,
		send:     make(chan []byte, h.cfg.SendBufferSize),
		ctx:      ctx,
		cancel:   cancel,
		logger:   h.logger,
	}

	h.mu.Lock()
	h.conns[conn.connID] = conn
	h.mu.Unlock()
	h.logger.Info("client connected",
		zap.String("conn_id", conn.connID),
		zap.String("client_id", clientID),
	)

	h.handler.OnConnect(conn)
	go conn.writePump()
	conn.readPump()
	return nil
}

// unregister removes the connection and notifies the handler exactly once.
func (h *Hub) unregister(c *Conn) {
	h.mu.Lock()
	_, known := h.conns[c.connID]
	delete(h.conns, c.connID)
	h.mu.Unlock()
	if !known {
		return
	}
	c.close()
	h.handler.OnDisconnect(c)
	h.logger.Info("client disconnected",
		zap.String("conn_id", c.connID),
		zap.String("client_id", c.clientID),
	)
}

// Broadcast sends v to every live connection. Connections with a full send
// buffer are skipped rather than closed; broadcasts are advisory.
func (h *Hub) Broadcast(v interface{}) {
	h.mu.RLock()
	conns := make([]*Conn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()
	for _, c := range conns {
		c.trySend(v)
	}
}

// Count returns the number of live connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}
