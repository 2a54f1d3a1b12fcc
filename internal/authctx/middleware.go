package authctx

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"combo-auth/internal/session/manager"
)

// SessionCookieName is the session cookie issued by the auth handlers. The
// __Host- prefix binds it to the origin host over HTTPS.
const SessionCookieName = "__Host-session"

// TokenFromRequest extracts the session token from the session cookie, or
// from an Authorization: Bearer header for non-browser clients. Returns ""
// when neither is present.
func TokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}

// Middleware resolves the presented token once per request and stores the
// token, the resolved identity, and the client IP in the request context.
// Requests with no or a dead token proceed as anonymous; a session store
// failure aborts with 503 rather than silently downgrading to anonymous.
func Middleware(sessions *manager.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := TokenFromRequest(c.Request)
		ctx := WithToken(c.Request.Context(), token)
		ctx = WithClientIP(ctx, c.ClientIP())

		ident, err := sessions.Resolve(ctx, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable,
				gin.H{"error": "session store unavailable"})
			return
		}
		ctx = WithIdentity(ctx, ident)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireAuth aborts with 401 unless the request resolved to a live session
// for an enabled identity. Must run after Middleware.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAuthenticated(c.Request.Context()) {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				gin.H{"error": "authentication required"})
			return
		}
		c.Next()
	}
}
