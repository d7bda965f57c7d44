// Package gateway is the local UI surface: a small REST API for driving
// the session controller and a WebSocket feed pushing state snapshots to
// the chat UI on every change.
package gateway

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/FairyDevicesRD/ai.chat.kmp/internal/session"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Local UI surface only.
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Hub maintains the set of connected UI clients and pushes state
// snapshots to them.
type Hub struct {
	controller *session.Controller
	logger     *zap.Logger

	mu      sync.RWMutex
	clients map[string]*client
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan session.State
}

// NewHub creates a new hub observing the controller.
func NewHub(controller *session.Controller, logger *zap.Logger) *Hub {
	return &Hub{
		controller: controller,
		logger:     logger,
		clients:    make(map[string]*client),
	}
}

// Run subscribes to controller state changes and broadcasts them until
// the subscription is closed. Intended to run in its own goroutine.
func (h *Hub) Run() {
	id, states := h.controller.Subscribe()
	defer h.controller.Unsubscribe(id)

	for state := range states {
		h.mu.RLock()
		for _, c := range h.clients {
			select {
			case c.send <- state:
			default:
				// Slow client: it misses this snapshot.
			}
		}
		h.mu.RUnlock()
	}
}

// ServeWS upgrades the connection and streams state snapshots, starting
// with the current one.
func (h *Hub) ServeWS(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", zap.Error(err))
		return err
	}

	cl := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan session.State, 16),
	}
	h.mu.Lock()
	h.clients[cl.id] = cl
	h.mu.Unlock()
	h.logger.Info("ui client connected", zap.String("clientID", cl.id))

	cl.send <- h.controller.Snapshot()
	go h.writePump(cl)
	go h.readPump(cl)
	return nil
}

func (h *Hub) writePump(cl *client) {
	defer h.drop(cl)
	for state := range cl.send {
		cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := cl.conn.WriteJSON(newStateMessage(state)); err != nil {
			h.logger.Debug("ui client write failed", zap.String("clientID", cl.id), zap.Error(err))
			return
		}
	}
}

// readPump discards inbound frames; the feed is one-way. It exists to
// notice the peer closing the connection.
func (h *Hub) readPump(cl *client) {
	defer h.drop(cl)
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) drop(cl *client) {
	h.mu.Lock()
	if _, ok := h.clients[cl.id]; ok {
		delete(h.clients, cl.id)
		close(cl.send)
	}
	h.mu.Unlock()
	cl.conn.Close()
	h.logger.Info("ui client disconnected", zap.String("clientID", cl.id))
}
