package crypto

import (
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/cloudflare/circl/kem"
	"github.com/cloudflare/circl/kem/mlkem/mlkem768"
	"golang.org/x/crypto/hkdf"
)

// Encapsulator performs ML-KEM-768 key encapsulation for external
// secure-channel setup. It is independent of the signing path.
type Encapsulator struct {
	scheme kem.Scheme
}

// NewEncapsulator returns an ML-KEM-768 encapsulator.
func NewEncapsulator() *Encapsulator {
	return &Encapsulator{scheme: mlkem768.Scheme()}
}

// GenerateKeyPair returns a marshaled ML-KEM-768 keypair.
func (e *Encapsulator) GenerateKeyPair() (publicKey, privateKey []byte, err error) {
	pk, sk, err := e.scheme.GenerateKeyPair()
	if err != nil {
		return nil, nil, fmt.Errorf("ml-kem keygen failed: %w", err)
	}
	publicKey, err = pk.MarshalBinary()
	if err != nil {
		return nil, nil, fmt.Errorf("ml-kem public key marshal failed: %w", err)
	}
	privateKey, err = sk.MarshalBinary()
	if err != nil {
		return nil, nil, fmt.Errorf("ml-kem private key marshal failed: %w", err)
	}
	return publicKey, privateKey, nil
}

// Encapsulate derives a shared secret for the holder of publicKey and
// returns the ciphertext to transmit alongside it.
func (e *Encapsulator) Encapsulate(publicKey []byte) (ciphertext, sharedSecret []byte, err error) {
	pk, err := e.scheme.UnmarshalBinaryPublicKey(publicKey)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid ml-kem public key: %w", err)
	}
	ciphertext, sharedSecret, err = e.scheme.Encapsulate(pk)
	if err != nil {
		return nil, nil, fmt.Errorf("ml-kem encapsulation failed: %w", err)
	}
	return ciphertext, sharedSecret, nil
}

// Decapsulate recovers the shared secret from a ciphertext using the
// marshaled private key.
func (e *Encapsulator) Decapsulate(privateKey, ciphertext []byte) ([]byte, error) {
	sk, err := e.scheme.UnmarshalBinaryPrivateKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("invalid ml-kem private key: %w", err)
	}
	sharedSecret, err := e.scheme.Decapsulate(sk, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("ml-kem decapsulation failed: %w", err)
	}
	return sharedSecret, nil
}

// DeriveSessionKey expands an encapsulated shared secret into a session key
// of the requested length using HKDF-SHA256.
func DeriveSessionKey(sharedSecret, salt, info []byte, length int) ([]byte, error) {
	r := hkdf.New(sha256.New, sharedSecret, salt, info)
	key := make([]byte, length)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("session key derivation failed: %w", err)
	}
	return key, nil
}
