// Package resolver reconciles verified federated assertions with identity records.
package resolver

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"combo-auth/internal/federation"
	"combo-auth/internal/identity/domain"
	"combo-auth/internal/identity/repository"
)

// ErrUnresolvable is returned when resolution loses a uniqueness race twice
// in a row; the caller must fail the login.
var ErrUnresolvable = errors.New("federated identity could not be resolved")

// Resolver maps a verified external assertion to exactly one identity.
// It is the only place where assertion-to-identity mapping logic lives.
type Resolver struct {
	identities repository.Repository
}

// New returns a Resolver backed by the given identity repository.
func New(identities repository.Repository) *Resolver {
	return &Resolver{identities: identities}
}

// Resolve maps the assertion to exactly one identity:
//
//  1. Lookup by federated subject: returning federated users, no writes.
//  2. Else lookup by email: link the subject and raw claims to that
//     identity and persist. This merges a federated login into a
//     pre-existing local account. The email match is trusted as asserted
//     by the external provider; there is no independent proof the caller
//     controls the mailbox.
//  3. Else create a new federation-only identity (no credential hash).
//
// A uniqueness race during link or create is retried once with a fresh
// resolution pass; a second conflict returns ErrUnresolvable.
func (r *Resolver) Resolve(ctx context.Context, a *federation.Assertion) (*domain.Identity, error) {
	if a == nil || a.Subject == "" || a.Email == "" {
		return nil, errors.New("assertion missing subject or email")
	}

	for attempt := 0; attempt < 2; attempt++ {
		ident, err := r.resolveOnce(ctx, a)
		if err == nil {
			return ident, nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return nil, err
		}
	}
	return nil, ErrUnresolvable
}

func (r *Resolver) resolveOnce(ctx context.Context, a *federation.Assertion) (*domain.Identity, error) {
	ident, err := r.identities.GetByFederatedSubject(ctx, a.Subject)
	if err != nil {
		return nil, err
	}
	if ident != nil {
		return ident, nil
	}

	ident, err = r.identities.GetByEmail(ctx, a.Email)
	if err != nil {
		return nil, err
	}
	if ident != nil {
		ident.FederatedSubject = a.Subject
		ident.FederatedMetadata = a.RawClaims
		ident.UpdatedAt = time.Now().UTC()
		if err := r.identities.Update(ctx, ident); err != nil {
			return nil, err
		}
		return ident, nil
	}

	now := time.Now().UTC()
	ident = &domain.Identity{
		ID:                uuid.New().String(),
		DisplayName:       a.DisplayName,
		Email:             a.Email,
		Enabled:           true,
		FederatedSubject:  a.Subject,
		FederatedMetadata: a.RawClaims,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := ident.Validate(); err != nil {
		return nil, err
	}
	if err := r.identities.Create(ctx, ident); err != nil {
		return nil, err
	}
	return ident, nil
}
