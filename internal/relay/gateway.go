package relay

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin filtering happens in the CORS middleware ahead of the
		// upgrade; the dashboard is same-deployment only.
		return true
	},
}

// ServeWS upgrades an authenticated request and attaches the resulting client
// to the hub. Authentication has already happened in the gateway middleware:
// userID is the verified principal, and unauthenticated requests never reach
// this point, so no relay state can exist for them.
func ServeWS(hub *Hub, w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade websocket connection", "userID", userID, "error", err)
		return
	}

	client := NewClient(hub, conn, userID)
	slog.Info("new websocket connection established", "clientID", client.id, "userID", userID)

	select {
	case hub.register <- client:
	case <-time.After(5 * time.Second):
		slog.Error("timeout registering client", "clientID", client.id, "userID", userID)
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
