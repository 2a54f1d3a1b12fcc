// Package domain defines the Identity entity and the anonymous sentinel.
package domain

import (
	"errors"
	"time"
)

// AnonymousName is the display name carried by the anonymous sentinel.
// It is never a valid display name for a persisted identity.
const AnonymousName = "__anonymous__"

// Identity is a persistent user record. An identity is local
// (CredentialHash set), federated (FederatedSubject set), or both,
// never neither.
type Identity struct {
	ID          string
	DisplayName string
	Email       string // unique across identities, immutable after creation
	// CredentialHash is the bcrypt hash of the local password; empty for
	// federation-only identities.
	CredentialHash string
	Enabled        bool
	// FederatedSubject is the issuer-scoped subject of a linked external
	// identity; empty when no federation link exists. Unique when present.
	FederatedSubject string
	// FederatedMetadata holds the raw verified claims (JSON) for audit/debug.
	FederatedMetadata []byte
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Anonymous returns the anonymous sentinel: the canonical "no identity"
// value. It is never persisted and never returned by the resolver.
func Anonymous() *Identity {
	return &Identity{DisplayName: AnonymousName}
}

// IsAnonymous reports whether i is the anonymous sentinel (or nil).
func (i *Identity) IsAnonymous() bool {
	return i == nil || i.ID == ""
}

// Validate validates the identity for persistence. Returns an error
// describing the first validation failure.
func (i *Identity) Validate() error {
	if i.Email == "" {
		return errors.New("email is required")
	}
	if i.DisplayName == AnonymousName {
		return errors.New("display name is reserved")
	}
	if i.CredentialHash == "" && i.FederatedSubject == "" {
		return errors.New("identity must be local, federated, or both")
	}
	return nil
}
