package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"testing"
)

func TestSignAndVerifyRequest(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	body := []byte(`{"text":"hello"}`)
	nonce := NewNonce()
	if len(nonce) != MinNonceLength {
		t.Fatalf("nonce length = %d, want %d", len(nonce), MinNonceLength)
	}

	sig := SignRequest(priv, body, nonce, 1700000000000)
	if err := VerifyRequest(pub, body, nonce, 1700000000000, sig); err != nil {
		t.Fatalf("VerifyRequest: %v", err)
	}

	if err := VerifyRequest(pub, []byte(`{"text":"other"}`), nonce, 1700000000000, sig); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("tampered body: got %v", err)
	}
	if err := VerifyRequest(pub, body, nonce, 1700000000001, sig); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("tampered timestamp: got %v", err)
	}
}

func TestBodyHashEmpty(t *testing.T) {
	const want = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := BodyHash(nil); got != want {
		t.Fatalf("BodyHash(nil) = %s", got)
	}
}

func TestValidatePublicKey(t *testing.T) {
	pub, _, _ := ed25519.GenerateKey(rand.Reader)
	if _, err := ValidatePublicKey(base64.StdEncoding.EncodeToString(pub)); err != nil {
		t.Fatalf("valid key rejected: %v", err)
	}
	if _, err := ValidatePublicKey("not base64!"); !errors.Is(err, ErrInvalidPublicKey) {
		t.Fatalf("bad base64: got %v", err)
	}
	if _, err := ValidatePublicKey(base64.StdEncoding.EncodeToString(pub[:16])); !errors.Is(err, ErrInvalidPublicKey) {
		t.Fatalf("short key: got %v", err)
	}
}

func TestPrivateKeyFromSeed(t *testing.T) {
	_, priv, _ := ed25519.GenerateKey(rand.Reader)
	got, err := PrivateKeyFromSeed(base64.StdEncoding.EncodeToString(priv.Seed()))
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(priv) {
		t.Fatal("seed round trip produced a different key")
	}
	if _, err := PrivateKeyFromSeed(base64.StdEncoding.EncodeToString([]byte("short"))); err == nil {
		t.Fatal("expected error for short seed")
	}
}

func TestNewUUIDv7(t *testing.T) {
	id := NewUUIDv7()
	if !IsUUIDv7(id.String()) {
		t.Fatalf("%s is not a v7 UUID", id)
	}
	if IsUUIDv7("not-a-uuid") {
		t.Fatal("garbage accepted")
	}
}
