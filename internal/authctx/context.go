// Package authctx carries the resolved identity and session token through
// request contexts and provides the gin middleware that populates them.
package authctx

import (
	"context"

	identitydomain "combo-auth/internal/identity/domain"
)

type ctxKey int

const (
	identityKey ctxKey = iota
	tokenKey
	clientIPKey
)

// WithIdentity returns a context carrying the resolved identity.
func WithIdentity(ctx context.Context, ident *identitydomain.Identity) context.Context {
	return context.WithValue(ctx, identityKey, ident)
}

// CurrentIdentity returns the identity resolved for this request, or the
// anonymous sentinel when none was resolved.
func CurrentIdentity(ctx context.Context) *identitydomain.Identity {
	if ident, ok := ctx.Value(identityKey).(*identitydomain.Identity); ok && ident != nil {
		return ident
	}
	return identitydomain.Anonymous()
}

// IsAuthenticated reports whether the request carries a live session for an
// enabled identity.
func IsAuthenticated(ctx context.Context) bool {
	ident := CurrentIdentity(ctx)
	return !ident.IsAnonymous() && ident.Enabled
}

// WithToken returns a context carrying the raw session token.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

// Token returns the session token presented with this request, or "".
func Token(ctx context.Context) string {
	if t, ok := ctx.Value(tokenKey).(string); ok {
		return t
	}
	return ""
}

// WithClientIP returns a context carrying the client IP for audit logging.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// ClientIP returns the client IP recorded for this request, or "unknown".
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPKey).(string); ok && ip != "" {
		return ip
	}
	return "unknown"
}
