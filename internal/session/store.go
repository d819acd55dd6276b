package session

import (
	"net/http"

	"github.com/gorilla/sessions"
)

const cookieName = "paybridge_session"

// Store keeps a bearer token in a cookie so a browser opened on the status
// page can reach the API without handling headers.
type Store struct {
	inner *sessions.CookieStore
}

func NewStore(secret []byte) *Store {
	cs := sessions.NewCookieStore(secret)
	cs.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
	return &Store{inner: cs}
}

// Token returns the token saved in the request's cookie, if any.
func (s *Store) Token(r *http.Request) string {
	sess, err := s.inner.Get(r, cookieName)
	if err != nil {
		return ""
	}
	v, _ := sess.Values["token"].(string)
	return v
}

func (s *Store) SaveToken(w http.ResponseWriter, r *http.Request, token string) error {
	sess, err := s.inner.Get(r, cookieName)
	if err != nil {
		sess, _ = s.inner.New(r, cookieName)
	}
	sess.Values["token"] = token
	return sess.Save(r, w)
}

func (s *Store) Clear(w http.ResponseWriter, r *http.Request) error {
	sess, err := s.inner.Get(r, cookieName)
	if err != nil {
		sess, _ = s.inner.New(r, cookieName)
	}
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}
