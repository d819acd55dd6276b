package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/arko-chat/paybridge/internal/bridgeerr"
	"github.com/arko-chat/paybridge/internal/plugin"
	"github.com/arko-chat/paybridge/internal/session"
	"github.com/arko-chat/paybridge/internal/ws"
)

type Handler struct {
	plugin *plugin.Plugin
	hub    *ws.Hub
	tokens *session.Tokens
	store  *session.Store
	logger *slog.Logger
}

func New(p *plugin.Plugin, tokens *session.Tokens, store *session.Store, logger *slog.Logger) *Handler {
	return &Handler{
		plugin: p,
		hub:    ws.NewHub(p.Events(), logger),
		tokens: tokens,
		store:  store,
		logger: logger,
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("write response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	be := bridgeerr.From(err)
	h.writeJSON(w, be.Code.HTTPStatus(), be.Map())
}
