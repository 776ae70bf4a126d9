// Package tokens generates opaque credentials and the hashes we persist
// in their place. Raw tokens never touch the database.
package tokens

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// GenerateOpaqueToken returns a random base64url token (no padding).
func GenerateOpaqueToken(nBytes int) (string, error) {
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// SHA256Hex returns sha256(input) hex-encoded. Storage format for state,
// exchange-code and refresh-token hashes.
func SHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", sum)
}

// SHA256Base64URL returns sha256(input) base64url-encoded without padding.
// Used for the PKCE S256 code challenge.
func SHA256Base64URL(s string) string {
	sum := sha256.Sum256([]byte(s))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
