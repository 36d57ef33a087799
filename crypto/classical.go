package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
)

// ErrInvalidKeySize is an exported constant or variable used by the token engine.
var ErrInvalidKeySize = errors.New("invalid key size")

// ClassicalSigner signs and verifies messages with an Ed25519 keypair.
// Instances are immutable after construction and safe for concurrent use.
type ClassicalSigner struct {
	private ed25519.PrivateKey
	public  ed25519.PublicKey
}

// NewClassicalSigner generates a fresh Ed25519 keypair.
func NewClassicalSigner() (*ClassicalSigner, error) {
	public, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("ed25519 keygen failed: %w", err)
	}
	return &ClassicalSigner{private: private, public: public}, nil
}

// NewClassicalSignerFromKey wraps an existing Ed25519 private key.
func NewClassicalSignerFromKey(private ed25519.PrivateKey) (*ClassicalSigner, error) {
	if len(private) != ed25519.PrivateKeySize {
		return nil, ErrInvalidKeySize
	}
	public, ok := private.Public().(ed25519.PublicKey)
	if !ok {
		return nil, ErrInvalidKeySize
	}
	return &ClassicalSigner{private: private, public: public}, nil
}

// Sign returns the Ed25519 signature over message.
func (s *ClassicalSigner) Sign(message []byte) []byte {
	return ed25519.Sign(s.private, message)
}

// Verify reports whether signature is valid over message under the signer's
// own public key. Failures report false, never an error.
func (s *ClassicalSigner) Verify(message, signature []byte) bool {
	return VerifyClassical(s.public, message, signature)
}

// PublicKey returns the signer's Ed25519 public key.
func (s *ClassicalSigner) PublicKey() ed25519.PublicKey {
	return s.public
}

// VerifyClassical reports whether signature is valid over message under the
// given public key. Malformed keys or signatures report false.
func VerifyClassical(public ed25519.PublicKey, message, signature []byte) bool {
	if len(public) != ed25519.PublicKeySize || len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(public, message, signature)
}

// Hash returns the hex-encoded SHA-256 digest of message. Identical input
// always yields an identical digest.
func Hash(message []byte) string {
	sum := sha256.Sum256(message)
	return hex.EncodeToString(sum[:])
}

// GenerateID returns 16 random bytes, hex-encoded.
func GenerateID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("id generation failed: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// ConstantTimeEqual compares two equal-length strings in data-independent
// time. A length mismatch returns false immediately; lengths are not secret
// here.
func ConstantTimeEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
