package handlers

import "net/http"

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"initialized": h.plugin.Initialized(),
		"subscriber":  h.hub.Connected(),
	})
}
