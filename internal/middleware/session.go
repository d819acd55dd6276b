package middleware

import (
	"context"

	"github.com/arko-chat/paybridge/internal/session"
)

type contextKey string

const claimsKey = contextKey("claims")

func GetClaims(ctx context.Context) (session.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(session.Claims)
	return c, ok
}

func setClaimsContext(ctx context.Context, c session.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}
