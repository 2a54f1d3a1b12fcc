// Package federation defines the boundary to external identity verification.
// Signature, issuer, expiry, and audience checks happen behind the Verifier
// interface; the rest of the system consumes only verified assertions.
package federation

import (
	"context"
	"errors"
)

// ErrVerification is returned when an external assertion cannot be verified.
// Callers surface it as a generic auth failure.
var ErrVerification = errors.New("federated assertion could not be verified")

// Assertion is an externally verified claim set proving control of an
// external identity.
type Assertion struct {
	// Subject is the issuer-scoped unique identifier (the "sub" claim).
	Subject string
	// Email is the email the provider asserts ownership of.
	Email string
	// DisplayName is the human-readable name from the provider, if any.
	DisplayName string
	// RawClaims is the verified claim set as JSON, kept for audit/debug.
	RawClaims []byte
}

// Verifier verifies a raw identity assertion (e.g. an OIDC ID token) and
// returns the normalized claim set. Implementations return ErrVerification
// (possibly wrapped) for any assertion that fails validation.
type Verifier interface {
	Verify(ctx context.Context, rawAssertion string) (*Assertion, error)
}
