package middleware

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/arko-chat/paybridge/internal/session"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newAuthed(t *testing.T) (http.Handler, *session.Tokens, *session.Store) {
	t.Helper()
	tokens, err := session.NewTokens(testSecret, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	store := session.NewStore([]byte(testSecret))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, ok := GetClaims(r.Context())
		if !ok {
			t.Error("claims missing from context")
		}
		_, _ = io.WriteString(w, c.Subject)
	})
	return Auth(tokens, store, logger)(next), tokens, store
}

func TestAuthRejectsMissingToken(t *testing.T) {
	h, _, _ := newAuthed(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/commands/init", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["code"] != "UNAUTHORIZED" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestAuthAcceptsHeaderQueryAndCookie(t *testing.T) {
	h, tokens, store := newAuthed(t)
	tok, err := tokens.Issue("host")
	if err != nil {
		t.Fatal(err)
	}

	header := httptest.NewRequest(http.MethodGet, "/v1/events", nil)
	header.Header.Set("Authorization", "Bearer "+tok)

	query := httptest.NewRequest(http.MethodGet, "/v1/events?token="+tok, nil)

	saved := httptest.NewRecorder()
	if err := store.SaveToken(saved, httptest.NewRequest(http.MethodGet, "/", nil), tok); err != nil {
		t.Fatal(err)
	}
	cookie := httptest.NewRequest(http.MethodGet, "/v1/events", nil)
	for _, c := range saved.Result().Cookies() {
		cookie.AddCookie(c)
	}

	for name, req := range map[string]*http.Request{"header": header, "query": query, "cookie": cookie} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK || rec.Body.String() != "host" {
			t.Fatalf("%s: got %d %q", name, rec.Code, rec.Body.String())
		}
	}
}

func TestAuthRejectsBadToken(t *testing.T) {
	h, _, _ := newAuthed(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/events", nil)
	req.Header.Set("Authorization", "Bearer nope")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
