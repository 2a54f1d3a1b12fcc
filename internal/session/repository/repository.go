// Package repository defines persistence for sessions.
package repository

import (
	"context"
	"errors"

	"combo-auth/internal/session/domain"
)

// ErrConflict is returned by Replace when a concurrent login for the same
// token wins the insert race. The caller must retry the full login or fail;
// the token is left with at most one live session either way.
var ErrConflict = errors.New("session conflict")

// Store defines how sessions are stored and retrieved. Lookups return
// (nil, nil) for missing records; errors indicate store failures only.
type Store interface {
	// FindByToken returns the session row for token, including rows that
	// are already past their expiry, or nil if no row exists.
	FindByToken(ctx context.Context, token string) (*domain.Session, error)
	// Replace atomically removes any existing row(s) for s.Token and
	// inserts s, so the store never holds two live sessions for one token.
	Replace(ctx context.Context, s domain.Session) error
	// DeleteByToken removes all rows for token. Idempotent: deleting an
	// absent token is a no-op, not an error.
	DeleteByToken(ctx context.Context, token string) error
}
