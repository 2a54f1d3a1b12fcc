// Package security provides password hashing and PEM key parsing.
package security

import (
	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes and verifies passwords using bcrypt. Callers must not log or
// persist plaintext passwords.
type Hasher struct {
	Cost int
}

// NewHasher returns a Hasher with the given bcrypt cost (4–31). Cost 12 is a
// reasonable default for interactive login.
func NewHasher(cost int) *Hasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Hasher{Cost: cost}
}

// Hash produces a salted bcrypt hash of secret. The salt varies per call, so
// two hashes of the same secret differ but both verify.
func (h *Hasher) Hash(secret string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(secret), h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify reports whether secret matches the stored hash. Comparison cost
// does not depend on where the mismatch occurs. A malformed or empty hash
// verifies as false; Verify never returns an error.
func (h *Hasher) Verify(secret, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

// DummyHash returns a well-formed hash at the configured cost. Callers that
// must not reveal whether a record exists compare against it when there is
// no stored hash, so the comparison takes as long as a real mismatch.
func (h *Hasher) DummyHash() (string, error) {
	return h.Hash("\x00dummy")
}
