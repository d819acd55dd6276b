package handlers

import (
	"net/http"
	"slices"
)

// HandleStatus serves the harness landing page. A caller that presents a
// valid bearer token as ?token= gets a browser token in the session cookie
// so it can use the API directly. Anonymous callers only see the status.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	session := false
	if raw := r.URL.Query().Get("token"); raw != "" {
		if _, err := h.tokens.Verify(raw); err != nil {
			h.logger.Debug("status page token rejected", "err", err)
		} else {
			token, err := h.tokens.Issue("browser")
			if err != nil {
				h.writeError(w, err)
				return
			}
			if err := h.store.SaveToken(w, r, token); err != nil {
				h.logger.Warn("could not save session", "err", err)
			} else {
				session = true
			}
		}
	}

	commands := h.plugin.Commands()
	slices.Sort(commands)

	h.writeJSON(w, http.StatusOK, map[string]any{
		"service":     "paybridge",
		"initialized": h.plugin.Initialized(),
		"session":     session,
		"commands":    commands,
		"events":      "/v1/events",
	})
}
