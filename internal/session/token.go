package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/securecookie"
)

const tokenName = "paybridge_token"

var ErrInvalidToken = errors.New("session: invalid token")

// Claims is what a bearer token vouches for.
type Claims struct {
	Subject  string `json:"sub"`
	IssuedAt int64  `json:"iat"`
}

// Tokens issues and verifies signed bearer tokens for the local transport.
type Tokens struct {
	sc *securecookie.SecureCookie
}

// NewTokens signs tokens with secret. ttl bounds token age; zero means
// tokens never expire.
func NewTokens(secret string, ttl time.Duration) (*Tokens, error) {
	if len(secret) < 16 {
		return nil, fmt.Errorf("session: token secret too short")
	}
	sc := securecookie.New([]byte(secret), nil)
	sc.SetSerializer(securecookie.JSONEncoder{})
	sc.MaxAge(int(ttl / time.Second))
	return &Tokens{sc: sc}, nil
}

func (t *Tokens) Issue(subject string) (string, error) {
	return t.sc.Encode(tokenName, Claims{Subject: subject, IssuedAt: time.Now().Unix()})
}

func (t *Tokens) Verify(token string) (Claims, error) {
	if token == "" {
		return Claims{}, ErrInvalidToken
	}
	var c Claims
	if err := t.sc.Decode(tokenName, token, &c); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return c, nil
}
