// Package domain defines the Session entity.
package domain

import "time"

// Session is a live token-to-identity mapping. At most one live session row
// exists per token value at any instant; the stores enforce this.
type Session struct {
	// Token is the opaque client-held string the session is keyed by.
	Token      string
	IdentityID string
	ExpiresAt  time.Time // absolute UTC expiry
	CreatedAt  time.Time
}

// Expired reports whether the session is past its expiry at the given instant.
func (s *Session) Expired(now time.Time) bool {
	return s == nil || now.After(s.ExpiresAt)
}
