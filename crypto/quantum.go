package crypto

import (
	"fmt"

	"github.com/cloudflare/circl/sign"
	"github.com/cloudflare/circl/sign/mldsa/mldsa44"
)

// QuantumSigner signs and verifies messages with an ML-DSA-44 lattice
// keypair, independent of the classical keypair. Instances are immutable
// after construction and safe for concurrent use.
type QuantumSigner struct {
	scheme  sign.Scheme
	private sign.PrivateKey
	public  sign.PublicKey
}

// NewQuantumSigner generates a fresh ML-DSA-44 keypair.
func NewQuantumSigner() (*QuantumSigner, error) {
	scheme := mldsa44.Scheme()
	public, private, err := scheme.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("ml-dsa keygen failed: %w", err)
	}
	return &QuantumSigner{scheme: scheme, private: private, public: public}, nil
}

// Sign returns the ML-DSA-44 signature over message.
func (s *QuantumSigner) Sign(message []byte) []byte {
	return s.scheme.Sign(s.private, message, nil)
}

// Verify reports whether signature is valid over message under the signer's
// own public key.
func (s *QuantumSigner) Verify(message, signature []byte) bool {
	return s.scheme.Verify(s.public, message, signature, nil)
}

// PublicKey returns the signer's ML-DSA-44 public key.
func (s *QuantumSigner) PublicKey() sign.PublicKey {
	return s.public
}

// PublicKeyBytes returns the marshaled ML-DSA-44 public key.
func (s *QuantumSigner) PublicKeyBytes() ([]byte, error) {
	return s.public.MarshalBinary()
}

// VerifyQuantum reports whether signature is valid over message under the
// given marshaled ML-DSA-44 public key. Malformed keys report false.
func VerifyQuantum(public []byte, message, signature []byte) bool {
	scheme := mldsa44.Scheme()
	pk, err := scheme.UnmarshalBinaryPublicKey(public)
	if err != nil {
		return false
	}
	return scheme.Verify(pk, message, signature, nil)
}
