package session

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestTokenRoundTrip(t *testing.T) {
	tokens, err := NewTokens(testSecret, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	tok, err := tokens.Issue("host")
	if err != nil {
		t.Fatal(err)
	}
	claims, err := tokens.Verify(tok)
	if err != nil {
		t.Fatal(err)
	}
	if claims.Subject != "host" || claims.IssuedAt == 0 {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestTokenRejectsForgery(t *testing.T) {
	a, _ := NewTokens(testSecret, time.Hour)
	b, _ := NewTokens("ffffffffffffffffffffffffffffffff", time.Hour)

	tok, _ := b.Issue("intruder")
	for _, candidate := range []string{"", "garbage", tok} {
		if _, err := a.Verify(candidate); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken for %q, got %v", candidate, err)
		}
	}
}

func TestShortSecret(t *testing.T) {
	if _, err := NewTokens("short", 0); err == nil {
		t.Fatal("expected short secret to be rejected")
	}
}

func TestStoreKeepsToken(t *testing.T) {
	store := NewStore([]byte(testSecret))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if err := store.SaveToken(rec, req, "tok-1"); err != nil {
		t.Fatal(err)
	}

	next := httptest.NewRequest(http.MethodGet, "/v1/events", nil)
	for _, c := range rec.Result().Cookies() {
		next.AddCookie(c)
	}
	if got := store.Token(next); got != "tok-1" {
		t.Fatalf("expected tok-1, got %q", got)
	}

	if got := store.Token(httptest.NewRequest(http.MethodGet, "/", nil)); got != "" {
		t.Fatalf("expected no token without cookie, got %q", got)
	}
}
