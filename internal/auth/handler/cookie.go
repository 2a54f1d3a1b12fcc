package handler

import (
	"net/http"
	"time"

	"combo-auth/internal/authctx"
)

// cookieOptions defines how session cookies are issued.
type cookieOptions struct {
	Path     string
	HTTPOnly bool
	Secure   bool
	SameSite http.SameSite
}

// normalize applies safe defaults without breaking callers.
func (o cookieOptions) normalize() cookieOptions {
	if o.Path == "" {
		o.Path = "/" // required for __Host-
	}
	o.HTTPOnly = true
	if o.SameSite == 0 {
		o.SameSite = http.SameSiteLaxMode
	}
	return o
}

// setSessionCookie issues the session cookie to the client.
func setSessionCookie(w http.ResponseWriter, token string, expiresAt time.Time, opts cookieOptions) {
	opts = opts.normalize()
	http.SetCookie(w, &http.Cookie{
		Name:     authctx.SessionCookieName,
		Value:    token,
		Path:     opts.Path,
		Expires:  expiresAt,
		HttpOnly: opts.HTTPOnly,
		Secure:   opts.Secure,
		SameSite: opts.SameSite,
	})
}

// clearSessionCookie removes the session cookie from the client.
func clearSessionCookie(w http.ResponseWriter, opts cookieOptions) {
	opts = opts.normalize()
	http.SetCookie(w, &http.Cookie{
		Name:     authctx.SessionCookieName,
		Value:    "",
		Path:     opts.Path,
		MaxAge:   -1,
		HttpOnly: opts.HTTPOnly,
		Secure:   opts.Secure,
		SameSite: opts.SameSite,
	})
}
