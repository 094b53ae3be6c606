package websocket

import (
	"net/http"
	"strconv"

	ws "github.com/coder/websocket"
)

// HandleWebSocket upgrades the request and serves it as a hub client. An
// optional ?child_id= scopes the feed to one child from the start.
func HandleWebSocket(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var childID int64
		if v := r.URL.Query().Get("child_id"); v != "" {
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil || id < 0 {
				http.Error(w, "invalid child_id", http.StatusBadRequest)
				return
			}
			childID = id
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			InsecureSkipVerify: true, // family devices on the home LAN connect from any origin
		})
		if err != nil {
			hub.logger.Warn("websocket accept failed", "error", err, "remote", r.RemoteAddr)
			return
		}

		NewClient(hub, conn, childID).Run(r.Context())
	}
}
