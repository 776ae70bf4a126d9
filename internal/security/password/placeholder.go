// Package password holds the credential-hash helpers this service needs.
// Real password hashing and policy live in the gateway; accounts created
// through federated linking only ever receive an unusable placeholder.
package password

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// UnusablePlaceholder returns a bcrypt hash of 32 random bytes. No input
// can ever verify against it, so an OAuth-created account has no working
// password until its owner explicitly sets one.
func UnusablePlaceholder() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("password: random placeholder: %w", err)
	}
	h, err := bcrypt.GenerateFromPassword([]byte(base64.RawStdEncoding.EncodeToString(raw)), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("password: hash placeholder: %w", err)
	}
	// The leading marker lets operators spot placeholder rows; bcrypt
	// verification fails on it regardless.
	return "!oauth!" + string(h), nil
}

// IsPlaceholder reports whether a stored hash is an unusable placeholder.
func IsPlaceholder(hash string) bool {
	return len(hash) > 7 && hash[:7] == "!oauth!"
}
