package handler

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// mintToken returns a fresh 256-bit opaque session token. A new token is
// minted on every login so a pre-login token value never survives into an
// authenticated session.
func mintToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("mint session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
