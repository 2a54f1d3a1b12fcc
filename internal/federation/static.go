package federation

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// assertionClaims are the claims a static assertion must carry.
type assertionClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Name  string `json:"name"`
}

// StaticVerifier verifies signed assertions against a single configured
// public key (RS256 or ES256). It serves development and offline setups
// where no OIDC discovery endpoint is reachable; the session-issuance
// contract downstream is identical to the Google path.
type StaticVerifier struct {
	publicKey crypto.PublicKey
	audience  string
}

// NewStaticVerifier returns a verifier for assertions signed by the holder
// of publicKey's private half and addressed to audience.
func NewStaticVerifier(publicKey crypto.PublicKey, audience string) (*StaticVerifier, error) {
	switch publicKey.(type) {
	case *rsa.PublicKey, *ecdsa.PublicKey:
	default:
		return nil, errors.New("federation: public key must be RSA or ECDSA")
	}
	if audience == "" {
		return nil, errors.New("federation: audience must be set")
	}
	return &StaticVerifier{publicKey: publicKey, audience: audience}, nil
}

// Verify parses and validates the assertion: signature, expiry, and
// audience. Returns ErrVerification (wrapped) on any validation failure.
func (v *StaticVerifier) Verify(ctx context.Context, rawAssertion string) (*Assertion, error) {
	var claims assertionClaims
	_, err := jwt.ParseWithClaims(rawAssertion, &claims,
		func(t *jwt.Token) (any, error) { return v.publicKey, nil },
		jwt.WithValidMethods([]string{"RS256", "ES256"}),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrVerification, err)
	}
	if claims.Subject == "" || claims.Email == "" {
		return nil, fmt.Errorf("%w: missing subject or email claim", ErrVerification)
	}

	raw, err := json.Marshal(claims)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrVerification, err)
	}
	return &Assertion{
		Subject:     claims.Subject,
		Email:       claims.Email,
		DisplayName: claims.Name,
		RawClaims:   raw,
	}, nil
}
