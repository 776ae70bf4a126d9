// Package apple implements federated login with Sign in with Apple.
// Apple has no static client secret: each exchange signs a short-lived
// ES256 JWT with the tenant's registered private key. Identity comes
// from the id_token returned by the token endpoint; the code was
// redeemed directly against Apple over TLS, so the claims are read
// without a JWKS round trip.
package apple

import (
	"context"
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dropDatabas3/janus/internal/domain/repository"
	"github.com/dropDatabas3/janus/internal/providers"
	"github.com/dropDatabas3/janus/internal/security/secretbox"
)

const (
	authEndpoint  = "https://appleid.apple.com/auth/authorize"
	tokenEndpoint = "https://appleid.apple.com/auth/token"
	audience      = "https://appleid.apple.com"

	clientSecretTTL = 5 * time.Minute
)

var defaultScopes = []string{"name", "email"}

// ErrLegacyKeyFormat indicates a SEC 1 "EC PRIVATE KEY" block where a
// PKCS#8 key is required. Apple distributes .p8 files; a legacy block
// means the key was converted and needs re-export.
var ErrLegacyKeyFormat = errors.New("apple: legacy EC PRIVATE KEY format, PKCS#8 required")

// Adapter implements providers.Adapter for Apple.
type Adapter struct {
	box  *secretbox.Box
	http *http.Client
	now  func() time.Time
}

// New creates the adapter. A nil client gets a 10 second timeout default.
func New(box *secretbox.Box, client *http.Client) *Adapter {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Adapter{box: box, http: client, now: time.Now}
}

func (a *Adapter) Name() string { return "apple" }

func (a *Adapter) AuthorizeURL(settings repository.ProviderSettings, params providers.AuthorizeParams) (string, error) {
	if settings.ClientID == "" {
		return "", fmt.Errorf("%w: apple: missing client_id", providers.ErrMisconfigured)
	}
	scopes := settings.Scopes
	if len(scopes) == 0 {
		scopes = defaultScopes
	}
	u, _ := url.Parse(authEndpoint)
	q := u.Query()
	q.Set("client_id", settings.ClientID)
	q.Set("redirect_uri", params.RedirectURI)
	q.Set("response_type", "code")
	// form_post is mandatory when requesting name or email scopes.
	q.Set("response_mode", "form_post")
	q.Set("scope", strings.Join(scopes, " "))
	q.Set("state", params.State)
	q.Set("code_challenge", params.CodeChallenge)
	q.Set("code_challenge_method", "S256")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (a *Adapter) Exchange(ctx context.Context, settings repository.ProviderSettings, input providers.ExchangeInput) (*providers.ExternalIdentity, error) {
	clientSecret, err := a.mintClientSecret(settings)
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("client_id", settings.ClientID)
	form.Set("client_secret", clientSecret)
	form.Set("code", input.Code)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", input.RedirectURI)
	form.Set("code_verifier", input.CodeVerifier)

	tr, err := providers.PostTokenForm(ctx, a.http, tokenEndpoint, form)
	if err != nil {
		return nil, err
	}
	if tr.IDToken == "" {
		return nil, fmt.Errorf("%w: apple: no id_token in response", providers.ErrProviderFailure)
	}
	return identityFromIDToken(tr.IDToken)
}

// mintClientSecret signs the per-exchange client secret JWT.
func (a *Adapter) mintClientSecret(settings repository.ProviderSettings) (string, error) {
	if settings.AppleTeamID == "" || settings.AppleServiceID == "" || settings.AppleKeyID == "" || settings.ApplePrivateKeyEnc == "" {
		return "", fmt.Errorf("%w: apple: incomplete signing settings", providers.ErrMisconfigured)
	}
	keyPEM, err := a.box.Decrypt(settings.ApplePrivateKeyEnc)
	if err != nil {
		return "", fmt.Errorf("%w: apple: decrypt private key: %v", providers.ErrMisconfigured, err)
	}
	key, err := parsePrivateKey([]byte(keyPEM))
	if err != nil {
		return "", err
	}

	now := a.now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
		"iss": settings.AppleTeamID,
		"sub": settings.AppleServiceID,
		"aud": audience,
		"iat": now.Unix(),
		"exp": now.Add(clientSecretTTL).Unix(),
	})
	token.Header["kid"] = settings.AppleKeyID

	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("%w: apple: sign client secret: %v", providers.ErrMisconfigured, err)
	}
	return signed, nil
}

// parsePrivateKey decodes the tenant's .p8 key. Only PKCS#8 is accepted.
func parsePrivateKey(pemBytes []byte) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("%w: apple: private key is not PEM", providers.ErrMisconfigured)
	}
	if block.Type == "EC PRIVATE KEY" {
		return nil, fmt.Errorf("%w: %w", providers.ErrMisconfigured, ErrLegacyKeyFormat)
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: apple: parse PKCS#8 key: %v", providers.ErrMisconfigured, err)
	}
	key, ok := parsed.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: apple: key is not an EC key", providers.ErrMisconfigured)
	}
	return key, nil
}

// identityFromIDToken reads the identity claims out of Apple's id_token.
func identityFromIDToken(idToken string) (*providers.ExternalIdentity, error) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(idToken, claims); err != nil {
		return nil, fmt.Errorf("%w: apple: parse id_token: %v", providers.ErrProviderFailure, err)
	}

	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	if sub == "" || email == "" {
		return nil, providers.ErrIdentityIncomplete
	}

	// email_verified arrives as bool or as the string "true".
	verified := false
	switch v := claims["email_verified"].(type) {
	case bool:
		verified = v
	case string:
		verified = v == "true"
	}
	return &providers.ExternalIdentity{
		SubjectID:     sub,
		Email:         email,
		EmailVerified: verified,
	}, nil
}
