package tokens

import (
	"encoding/base64"
	"testing"
)

func TestGenerateOpaqueToken_LengthAndUniqueness(t *testing.T) {
	t.Parallel()

	a, err := GenerateOpaqueToken(32)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, err := GenerateOpaqueToken(32)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if a == b {
		t.Fatalf("two tokens should not collide")
	}
	raw, err := base64.RawURLEncoding.DecodeString(a)
	if err != nil {
		t.Fatalf("token is not base64url: %v", err)
	}
	if len(raw) != 32 {
		t.Fatalf("decoded length = %d, want 32", len(raw))
	}
}

func TestSHA256Hex_Deterministic(t *testing.T) {
	t.Parallel()

	if SHA256Hex("abc") != SHA256Hex("abc") {
		t.Fatalf("hash must be deterministic")
	}
	if SHA256Hex("abc") == SHA256Hex("abd") {
		t.Fatalf("different inputs must not collide")
	}
	if len(SHA256Hex("abc")) != 64 {
		t.Fatalf("hex sha256 must be 64 chars")
	}
}

func TestSHA256Base64URL_KnownVector(t *testing.T) {
	t.Parallel()

	// RFC 7636 appendix B verifier/challenge pair.
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	want := "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM"
	if got := SHA256Base64URL(verifier); got != want {
		t.Fatalf("challenge = %s, want %s", got, want)
	}
}
