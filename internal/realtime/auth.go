package realtime

import (
	"api/pkg"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS handles the WebSocket upgrade with JWT authentication via query param.
func ServeWS(hub *Hub, jwtSecret string, w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	if _, err := pkg.ValidateToken(token, jwtSecret); err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	client := NewClient(hub, conn)
	hub.register <- client

	go client.WritePump()
	go client.ReadPump()
}

// ServeWorkflowWS upgrades and immediately subscribes the client to one
// workflow's progress room. Used by the API's /ws/workflows/:id route; in dev
// mode the token check is skipped, mirroring the HTTP auth middleware.
func ServeWorkflowWS(hub *Hub, jwtSecret string, devMode bool, workflowID string, w http.ResponseWriter, r *http.Request) {
	if !devMode {
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}
		if _, err := pkg.ValidateToken(token, jwtSecret); err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	client := NewClient(hub, conn)
	hub.register <- client
	hub.subscribe <- subscribeMsg{client: client, workflowID: workflowID}

	go client.WritePump()
	go client.ReadPump()
}
