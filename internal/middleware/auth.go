package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/arko-chat/paybridge/internal/bridgeerr"
	"github.com/arko-chat/paybridge/internal/session"
)

// Auth requires a valid bearer token. Browsers may present it through the
// session cookie and WebSocket clients through the token query parameter.
func Auth(tokens *session.Tokens, store *session.Store, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" && store != nil {
				raw = store.Token(r)
			}

			claims, err := tokens.Verify(raw)
			if err != nil {
				logger.Debug("rejected request", "path", r.URL.Path, "err", err)
				unauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(setClaimsContext(r.Context(), claims)))
		})
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if t, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(t)
		}
	}
	return r.URL.Query().Get("token")
}

func unauthorized(w http.ResponseWriter) {
	e := bridgeerr.New(bridgeerr.CodeUnauthorized, "missing or invalid bearer token")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Code.HTTPStatus())
	_ = json.NewEncoder(w).Encode(e.Map())
}
