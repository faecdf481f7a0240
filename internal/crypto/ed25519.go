// Package crypto holds the request signing scheme shared by the server and clients.
package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
)

// MinNonceLength is the shortest nonce the server accepts.
const MinNonceLength = 24

// Headers carried by every signed request.
const (
	HeaderUser      = "X-Space-User"
	HeaderNonce     = "X-Space-Nonce"
	HeaderTimestamp = "X-Space-Timestamp"
	HeaderSignature = "X-Space-Signature"
)

var (
	ErrInvalidPublicKey = errors.New("invalid Ed25519 public key")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrSignatureExpired = errors.New("signature timestamp expired")
	ErrInvalidNonce     = errors.New("invalid or reused nonce")
)

// ValidatePublicKey checks if a base64-encoded string is a valid Ed25519 public key.
func ValidatePublicKey(pubkeyB64 string) (ed25519.PublicKey, error) {
	decoded, err := base64.StdEncoding.DecodeString(pubkeyB64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64 encoding", ErrInvalidPublicKey)
	}

	if len(decoded) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: must be %d bytes, got %d", ErrInvalidPublicKey, ed25519.PublicKeySize, len(decoded))
	}

	return ed25519.PublicKey(decoded), nil
}

// PrivateKeyFromSeed decodes a base64 32-byte seed.
func PrivateKeyFromSeed(seedB64 string) (ed25519.PrivateKey, error) {
	seed, err := base64.StdEncoding.DecodeString(seedB64)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 seed: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return ed25519.NewKeyFromSeed(seed), nil
}

// BodyHash returns the hex SHA-256 of a request body.
func BodyHash(body []byte) string {
	hash := sha256.Sum256(body)
	return hex.EncodeToString(hash[:])
}

// NewNonce returns a random 24 character hex nonce.
func NewNonce() string {
	b := make([]byte, MinNonceLength/2)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// SignaturePayload creates the canonical data to sign.
// Format: sha256hex(body)|nonce|timestamp
func SignaturePayload(bodyHash, nonce string, timestamp int64) []byte {
	return []byte(fmt.Sprintf("%s|%s|%d", bodyHash, nonce, timestamp))
}

// SignRequest signs a request body and returns the base64 signature.
func SignRequest(priv ed25519.PrivateKey, body []byte, nonce string, timestamp int64) string {
	sig := ed25519.Sign(priv, SignaturePayload(BodyHash(body), nonce, timestamp))
	return base64.StdEncoding.EncodeToString(sig)
}

// VerifySignature verifies a signed message.
func VerifySignature(pubkey ed25519.PublicKey, signedData []byte, signatureB64 string) error {
	signature, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil {
		return fmt.Errorf("%w: invalid base64 encoding", ErrInvalidSignature)
	}

	if !ed25519.Verify(pubkey, signedData, signature) {
		return ErrInvalidSignature
	}

	return nil
}

// VerifyRequest checks a signature produced by SignRequest.
func VerifyRequest(pubkey ed25519.PublicKey, body []byte, nonce string, timestamp int64, signatureB64 string) error {
	return VerifySignature(pubkey, SignaturePayload(BodyHash(body), nonce, timestamp), signatureB64)
}
