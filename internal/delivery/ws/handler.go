package ws

import (
	"context"
	"net/http"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// WSHandler serves one capture session per connection. With ?roomID= the
// connection joins an existing session room as a read-only viewer.
func WSHandler(hub *Hub, deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := r.URL.Query().Get("roomID")
		if roomID != "" && !hub.HasRoom(roomID) {
			http.Error(w, "unknown room", http.StatusNotFound)
			return
		}

		conn, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		if roomID != "" {
			serveViewer(hub, roomID, conn)
			return
		}

		id := uuid.NewString()
		hub.Register(id, conn)

		ctx, cancel := context.WithCancel(context.Background())
		sess := NewSession(id, hub, deps)

		defer func() {
			sess.Close()
			cancel()
			// viewers get a last status, then the room goes away
			hub.SendJSON(id, outbound{Type: MsgStatus, Status: StatusEnded})
			hub.CloseRoom(id)
			deps.Log.Log(logger.LogEntry{
				Level:   "info",
				Message: "session ended",
				Fields:  map[string]any{"session": id},
			})
		}()

		go sess.Run(ctx)
		hub.SendJSON(id, outbound{Type: MsgSession, SessionID: id})

		deps.Log.Log(logger.LogEntry{
			Level:   "info",
			Message: "session started",
			Fields:  map[string]any{"session": id, "remote": r.RemoteAddr},
		})

		for {
			kind, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			switch kind {
			case websocket.BinaryMessage:
				sess.PushAudio(data)
			case websocket.TextMessage:
				sess.Handle(ctx, data)
			}
		}
	}
}

func serveViewer(hub *Hub, roomID string, conn *websocket.Conn) {
	if !hub.Join(roomID, conn) {
		conn.Close()
		return
	}
	defer hub.Unregister(roomID, conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
