package ws

import (
	"log/slog"

	"github.com/arko-chat/paybridge/internal/events"
)

// Hub binds WebSocket clients to the plugin's event emitter. The emitter
// keeps one subscriber, so registering a client replaces the previous one.
type Hub struct {
	emitter *events.Emitter
	logger  *slog.Logger
}

func NewHub(emitter *events.Emitter, logger *slog.Logger) *Hub {
	return &Hub{emitter: emitter, logger: logger}
}

func (h *Hub) Register(c *EventClient) {
	h.emitter.Attach(c)
	h.logger.Debug("ws register", "client", c.ID)
}

func (h *Hub) Unregister(c *EventClient) {
	if h.emitter.Detach(c) {
		h.logger.Debug("ws unregister", "client", c.ID)
	}
	c.Close()
}

func (h *Hub) Connected() bool {
	return h.emitter.HasSubscriber()
}
