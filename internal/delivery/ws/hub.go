package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// client serializes writes; gorilla connections allow one writer at a time.
type client struct {
	conn *websocket.Conn
	wmu  sync.Mutex
}

func (c *client) write(msg []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, msg)
}

// Hub fans session messages out to every connection in a room. A room is
// one capture session plus any viewer screens attached to it.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*websocket.Conn]*client
	log   *logger.ZapLogger
}

func NewHub(log *logger.ZapLogger) *Hub {
	return &Hub{
		rooms: make(map[string]map[*websocket.Conn]*client),
		log:   log,
	}
}

func (h *Hub) Register(roomID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[*websocket.Conn]*client)
	}
	h.rooms[roomID][conn] = &client{conn: conn}

	h.log.Log(logger.LogEntry{
		Level:   "info",
		Message: "hub register",
		Fields:  map[string]any{"room": roomID, "conns": len(h.rooms[roomID])},
	})
}

// Join adds a connection to a room that already exists. It reports false
// when the room is gone.
func (h *Hub) Join(roomID string, conn *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.rooms[roomID]
	if !ok {
		return false
	}
	conns[conn] = &client{conn: conn}
	return true
}

func (h *Hub) Unregister(roomID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.rooms[roomID]
	if !ok {
		return
	}

	if _, ok := conns[conn]; ok {
		delete(conns, conn)
		conn.Close()
	}

	if len(conns) == 0 {
		delete(h.rooms, roomID)
	}
	h.log.Log(logger.LogEntry{
		Level:   "info",
		Message: "hub unregister",
		Fields:  map[string]any{"room": roomID, "conns": len(conns)},
	})
}

// CloseRoom closes every connection in the room and forgets it.
func (h *Hub) CloseRoom(roomID string) {
	h.mu.Lock()
	conns := h.rooms[roomID]
	delete(h.rooms, roomID)
	h.mu.Unlock()

	for conn, c := range conns {
		c.wmu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"),
			time.Now().Add(time.Second))
		c.wmu.Unlock()
		conn.Close()
	}

	h.log.Log(logger.LogEntry{
		Level:   "info",
		Message: "hub room closed",
		Fields:  map[string]any{"room": roomID, "conns": len(conns)},
	})
}

func (h *Hub) HasRoom(roomID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[roomID]
	return ok
}

func (h *Hub) SendToRoom(roomID string, msg []byte) {
	h.mu.RLock()
	conns := make([]*client, 0, len(h.rooms[roomID]))
	for _, c := range h.rooms[roomID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	if len(conns) == 0 {
		return
	}

	for _, c := range conns {
		if err := c.write(msg); err != nil {
			h.log.Log(logger.LogEntry{
				Level:   "warn",
				Message: "hub send failed",
				Error:   err,
				Fields:  map[string]any{"room": roomID},
			})
		}
	}
}

func (h *Hub) SendJSON(roomID string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		h.log.Log(logger.LogEntry{Level: "error", Message: "ws json marshal failed", Error: err})
		return
	}
	h.SendToRoom(roomID, b)
}

var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}
