package handlers

import (
	"net/http"

	"github.com/arko-chat/paybridge/internal/ws"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleEvents upgrades GET /v1/events to the event stream. A new stream
// replaces the current one.
func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "err", err)
		return
	}

	client := ws.NewEventClient(conn, middleware.GetReqID(r.Context()))
	go client.WritePump()
	h.hub.Register(client)
	defer h.hub.Unregister(client)

	client.ReadPump()
}
