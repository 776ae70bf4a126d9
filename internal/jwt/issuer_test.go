package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIssuer(t *testing.T, ttl time.Duration) *Issuer {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	iss, err := New(Config{
		Issuer:    "https://idp.example.com",
		Audience:  "example-app",
		KeyID:     "k1",
		AccessTTL: ttl,
	}, priv)
	require.NoError(t, err)
	return iss
}

func TestIssueAndVerify(t *testing.T) {
	iss := newTestIssuer(t, time.Minute)

	raw, err := iss.Issue("tenant-1", "acct-1", "user", "google")
	require.NoError(t, err)

	claims, err := iss.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", claims.TenantID)
	assert.Equal(t, "acct-1", claims.Subject)
	assert.Equal(t, "user", claims.Kind)
	assert.Equal(t, "google", claims.AMR)
	assert.Equal(t, "https://idp.example.com", claims.Issuer)
}

func TestVerifyExpired(t *testing.T) {
	iss := newTestIssuer(t, time.Minute)
	issued := time.Now()
	iss.now = func() time.Time { return issued }

	raw, err := iss.Issue("tenant-1", "acct-1", "user", "")
	require.NoError(t, err)

	iss.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = iss.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyWrongKey(t *testing.T) {
	a := newTestIssuer(t, time.Minute)
	b := newTestIssuer(t, time.Minute)

	raw, err := a.Issue("tenant-1", "acct-1", "user", "")
	require.NoError(t, err)

	_, err = b.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
