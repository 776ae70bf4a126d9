// Package jwt mints the short-lived access tokens returned by the code
// exchange and refresh endpoints.
package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for tokens that fail verification.
var ErrInvalidToken = errors.New("jwt: invalid token")

// Claims are the access token claims the service issues.
type Claims struct {
	TenantID string `json:"tid"`
	Kind     string `json:"knd"` // "user" | "member"
	AMR      string `json:"amr,omitempty"`
	jwt.RegisteredClaims
}

// Issuer signs access tokens with an Ed25519 key.
type Issuer struct {
	issuer    string
	audience  string
	keyID     string
	accessTTL time.Duration
	priv      ed25519.PrivateKey
	pub       ed25519.PublicKey
	now       func() time.Time
}

// Config for an Issuer.
type Config struct {
	Issuer    string
	Audience  string
	KeyID     string
	AccessTTL time.Duration
}

// New creates an Issuer. A zero AccessTTL defaults to 15 minutes.
func New(cfg Config, priv ed25519.PrivateKey) (*Issuer, error) {
	if cfg.Issuer == "" {
		return nil, errors.New("jwt: issuer required")
	}
	if len(priv) != ed25519.PrivateKeySize {
		return nil, errors.New("jwt: invalid ed25519 private key")
	}
	ttl := cfg.AccessTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Issuer{
		issuer:    cfg.Issuer,
		audience:  cfg.Audience,
		keyID:     cfg.KeyID,
		accessTTL: ttl,
		priv:      priv,
		pub:       priv.Public().(ed25519.PublicKey),
		now:       time.Now,
	}, nil
}

// AccessTTL returns the configured access token lifetime.
func (i *Issuer) AccessTTL() time.Duration { return i.accessTTL }

// Issue mints an access token for an account.
func (i *Issuer) Issue(tenantID, accountID, kind, amr string) (string, error) {
	now := i.now().UTC()
	claims := Claims{
		TenantID: tenantID,
		Kind:     kind,
		AMR:      amr,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   accountID,
			Audience:  jwt.ClaimStrings{i.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.accessTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	if i.keyID != "" {
		token.Header["kid"] = i.keyID
	}
	signed, err := token.SignedString(i.priv)
	if err != nil {
		return "", fmt.Errorf("jwt: sign: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token issued by this Issuer.
func (i *Issuer) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return i.pub, nil
	},
		jwt.WithValidMethods([]string{"EdDSA"}),
		jwt.WithIssuer(i.issuer),
		jwt.WithTimeFunc(func() time.Time { return i.now() }),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}
