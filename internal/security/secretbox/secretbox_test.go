package secretbox

import (
	"encoding/base64"
	"strings"
	"testing"
)

func testBox(t *testing.T, seed byte) *Box {
	t.Helper()
	raw := make([]byte, 32)
	for i := 0; i < 32; i++ {
		raw[i] = seed + byte(i)
	}
	b, err := NewFromKey(raw)
	if err != nil {
		t.Fatalf("NewFromKey err: %v", err)
	}
	return b
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	t.Parallel()
	b := testBox(t, 1)

	msg := "hola mundo ✓ — secreto"
	ct, err := b.Encrypt(msg)
	if err != nil {
		t.Fatalf("Encrypt err: %v", err)
	}
	if !strings.HasPrefix(ct, "sb1|") {
		t.Fatalf("missing version marker: %q", ct)
	}
	pt, err := b.Decrypt(ct)
	if err != nil {
		t.Fatalf("Decrypt err: %v", err)
	}
	if pt != msg {
		t.Fatalf("plaintext mismatch: got %q want %q", pt, msg)
	}
}

func TestDecrypt_DetectsTamper(t *testing.T) {
	t.Parallel()
	b := testBox(t, 200)

	ct, err := b.Encrypt("top secret")
	if err != nil {
		t.Fatalf("Encrypt err: %v", err)
	}
	parts := strings.Split(ct, "|")
	if len(parts) != 3 {
		t.Fatalf("unexpected ct format")
	}
	bs, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		t.Fatal(err)
	}
	bs[0] ^= 0x01 // flip one bit
	parts[2] = base64.StdEncoding.EncodeToString(bs)

	if _, err := b.Decrypt(strings.Join(parts, "|")); err == nil {
		t.Fatalf("expected auth error, got nil")
	}
}

func TestDecrypt_RejectsUnknownVersion(t *testing.T) {
	t.Parallel()
	b := testBox(t, 7)

	ct, err := b.Encrypt("x")
	if err != nil {
		t.Fatal(err)
	}
	bad := "sb9" + strings.TrimPrefix(ct, "sb1")
	if _, err := b.Decrypt(bad); err == nil {
		t.Fatalf("expected version error")
	}
}

func TestDecrypt_WrongKeyFails(t *testing.T) {
	t.Parallel()
	a := testBox(t, 1)
	other := testBox(t, 99)

	ct, err := a.Encrypt("secret")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := other.Decrypt(ct); err == nil {
		t.Fatalf("expected decrypt failure with wrong key")
	}
}

func TestNew_RejectsBadKeys(t *testing.T) {
	t.Parallel()
	if _, err := New(""); err == nil {
		t.Fatalf("expected error for empty key")
	}
	short := base64.StdEncoding.EncodeToString([]byte("too-short"))
	if _, err := New(short); err == nil {
		t.Fatalf("expected error for short key")
	}
}

func TestIsEncrypted(t *testing.T) {
	t.Parallel()
	b := testBox(t, 42)
	ct, _ := b.Encrypt("v")
	if !IsEncrypted(ct) {
		t.Fatalf("expected marker on ciphertext")
	}
	if IsEncrypted("plaintext-secret") {
		t.Fatalf("plaintext must not look encrypted")
	}
}
