// Package secretbox provides reversible AES-256-GCM encryption for
// at-rest secrets: PKCE verifiers, provider client secrets and Apple
// signing keys. Ciphertexts carry a version marker so a key/format
// migration can detect rows that still need re-encryption.
//
// The Box is an explicit collaborator: construct one in main and inject
// it where encryption happens. There is no package-level key.
package secretbox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	// Version prefixes every ciphertext: sb1|base64(nonce)|base64(ct).
	Version = "sb1"

	nonceSizeGCM      = 12
	requiredKeyLength = 32 // AES-256
	sep               = "|"
)

var (
	// ErrKeyLength is returned when the master key does not decode to 32 bytes.
	ErrKeyLength = errors.New("secretbox: master key must be 32 bytes")
	// ErrFormat is returned for ciphertexts that do not match sb1|nonce|ct.
	ErrFormat = errors.New("secretbox: invalid ciphertext format")
	// ErrVersion is returned for ciphertexts carrying an unknown version marker.
	ErrVersion = errors.New("secretbox: unknown ciphertext version")
)

// Box encrypts and decrypts with a fixed AES-256 key.
type Box struct {
	aead cipher.AEAD
}

// New builds a Box from a base64 (std encoding) master key.
func New(masterKeyB64 string) (*Box, error) {
	kb64 := strings.TrimSpace(masterKeyB64)
	if kb64 == "" {
		return nil, fmt.Errorf("secretbox: empty master key; generate one with: openssl rand -base64 32")
	}
	key, err := base64.StdEncoding.DecodeString(kb64)
	if err != nil {
		return nil, fmt.Errorf("secretbox: decode master key: %w", err)
	}
	return NewFromKey(key)
}

// NewFromKey builds a Box from a raw 32-byte key.
func NewFromKey(key []byte) (*Box, error) {
	if len(key) != requiredKeyLength {
		return nil, ErrKeyLength
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("secretbox: aes.NewCipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("secretbox: cipher.NewGCM: %w", err)
	}
	return &Box{aead: aead}, nil
}

// Encrypt returns sb1|base64(nonce)|base64(ciphertext).
func (b *Box) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, nonceSizeGCM)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("secretbox: nonce: %w", err)
	}
	ct := b.aead.Seal(nil, nonce, []byte(plaintext), nil)
	return Version + sep +
		base64.StdEncoding.EncodeToString(nonce) + sep +
		base64.StdEncoding.EncodeToString(ct), nil
}

// Decrypt reverses Encrypt. It fails on tampered ciphertexts, wrong keys,
// malformed input and unknown version markers.
func (b *Box) Decrypt(ciphertext string) (string, error) {
	parts := strings.Split(ciphertext, sep)
	if len(parts) != 3 {
		return "", ErrFormat
	}
	if parts[0] != Version {
		return "", fmt.Errorf("%w: %q", ErrVersion, parts[0])
	}
	nonce, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("secretbox: decode nonce: %w", err)
	}
	if len(nonce) != nonceSizeGCM {
		return "", ErrFormat
	}
	ct, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return "", fmt.Errorf("secretbox: decode ciphertext: %w", err)
	}
	pt, err := b.aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", fmt.Errorf("secretbox: gcm auth/decrypt: %w", err)
	}
	return string(pt), nil
}

// IsEncrypted reports whether the value carries the current version marker.
// Useful to detect plaintext rows during migrations.
func IsEncrypted(value string) bool {
	return strings.HasPrefix(value, Version+sep)
}
