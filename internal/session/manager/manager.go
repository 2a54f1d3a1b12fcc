// Package manager implements the token-to-identity session state machine.
package manager

import (
	"context"
	"errors"
	"log"
	"time"

	identitydomain "combo-auth/internal/identity/domain"
	identityrepo "combo-auth/internal/identity/repository"
	sessionsdomain "combo-auth/internal/session/domain"
	sessionsrepo "combo-auth/internal/session/repository"
)

// ErrNoToken is returned by Login when the caller passes an empty token.
// Tokens are minted by the transport layer, never here.
var ErrNoToken = errors.New("session token required")

// Manager reconciles opaque session tokens with identity records. All reads
// scavenge expired or orphaned rows before answering, so callers only ever
// observe live sessions.
type Manager struct {
	sessions   sessionsrepo.Store
	identities identityrepo.Repository
	ttl        time.Duration
	now        func() time.Time
}

// New returns a Manager issuing sessions with the given lifetime.
func New(sessions sessionsrepo.Store, identities identityrepo.Repository, ttl time.Duration) *Manager {
	return &Manager{
		sessions:   sessions,
		identities: identities,
		ttl:        ttl,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Login binds token to the identity, invalidating any session the token held
// before. Logging in the anonymous identity is a no-op: anonymous is a
// sentinel, never a session owner. A conflict from the store means a
// concurrent login for the same token won; the error propagates and the
// token ends up owned by the winner.
func (m *Manager) Login(ctx context.Context, token string, ident *identitydomain.Identity) error {
	if ident.IsAnonymous() {
		return nil
	}
	if token == "" {
		return ErrNoToken
	}

	// Explicit logout first, then a replace. The replace alone would clear
	// the old row, but the logout keeps the sequence observable and correct
	// even if the store's replace is ever split.
	if err := m.sessions.DeleteByToken(ctx, token); err != nil {
		return err
	}
	now := m.now()
	return m.sessions.Replace(ctx, sessionsdomain.Session{
		Token:      token,
		IdentityID: ident.ID,
		ExpiresAt:  now.Add(m.ttl),
		CreatedAt:  now,
	})
}

// Logout removes every session for token. Calling it for an anonymous or
// unknown token is a no-op.
func (m *Manager) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return m.sessions.DeleteByToken(ctx, token)
}

// Resolve maps token to its current identity. An empty token, a missing
// session, an expired session, or a session pointing at a deleted identity
// all resolve to the anonymous identity. Expired and orphaned rows are
// scavenged on the way out.
func (m *Manager) Resolve(ctx context.Context, token string) (*identitydomain.Identity, error) {
	if token == "" {
		return identitydomain.Anonymous(), nil
	}

	sess, err := m.sessions.FindByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return identitydomain.Anonymous(), nil
	}
	if sess.Expired(m.now()) {
		m.scavenge(ctx, token)
		return identitydomain.Anonymous(), nil
	}

	ident, err := m.identities.GetByID(ctx, sess.IdentityID)
	if err != nil {
		return nil, err
	}
	if ident == nil {
		m.scavenge(ctx, token)
		return identitydomain.Anonymous(), nil
	}
	return ident, nil
}

// Authenticated reports whether token resolves to a non-anonymous identity
// that is still enabled.
func (m *Manager) Authenticated(ctx context.Context, token string) (bool, error) {
	ident, err := m.Resolve(ctx, token)
	if err != nil {
		return false, err
	}
	return !ident.IsAnonymous() && ident.Enabled, nil
}

// scavenge removes a dead session row. The resolve result is anonymous
// either way, so a failed cleanup is logged and retried on the next read.
func (m *Manager) scavenge(ctx context.Context, token string) {
	if err := m.sessions.DeleteByToken(ctx, token); err != nil {
		log.Printf("session scavenge failed: %v", err)
	}
}
