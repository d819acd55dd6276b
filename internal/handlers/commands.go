package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/arko-chat/paybridge/internal/bridgeerr"
	"github.com/go-chi/chi/v5"
)

const maxBodySize = 1 << 20

// HandleCommand dispatches POST /v1/commands/{command}. The body is the
// JSON argument object; an empty body means no arguments.
func (h *Handler) HandleCommand(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "command")

	args := map[string]any{}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	if err := dec.Decode(&args); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, bridgeerr.InvalidArguments("request body must be a JSON object: %v", err))
		return
	}

	result, err := h.plugin.Dispatch(r.Context(), name, args)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"result": result})
}
