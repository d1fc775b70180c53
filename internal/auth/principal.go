package auth

import (
	"context"
	"time"
)

// Principal is the validated caller for a single request.
type Principal struct {
	SubjectID string
	Email     string
	// ExpiresAt is the natural expiry of the token that authenticated the request.
	ExpiresAt time.Time
}

type principalCtxKey struct{}

type tokenCtxKey struct{}

// WithPrincipal returns a context carrying the principal and the raw token it was derived from.
func WithPrincipal(ctx context.Context, principal Principal, rawToken string) context.Context {
	ctx = context.WithValue(ctx, principalCtxKey{}, principal)
	return context.WithValue(ctx, tokenCtxKey{}, rawToken)
}

// PrincipalFromContext retrieves the authenticated caller.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	principal, ok := ctx.Value(principalCtxKey{}).(Principal)
	return principal, ok
}

// TokenFromContext retrieves the raw bearer token of the authenticated caller.
func TokenFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	token, ok := ctx.Value(tokenCtxKey{}).(string)
	return token, ok && token != ""
}
