package crypto

import (
	"crypto/ed25519"
	"testing"
)

func TestClassicalSignVerify(t *testing.T) {
	s, err := NewClassicalSigner()
	if err != nil {
		t.Fatalf("NewClassicalSigner: %v", err)
	}

	msg := []byte("access request 7781")
	sig := s.Sign(msg)

	if !s.Verify(msg, sig) {
		t.Fatal("expected signature to verify")
	}
	if !VerifyClassical(s.PublicKey(), msg, sig) {
		t.Fatal("expected package-level verification to succeed")
	}
}

func TestClassicalVerifyRejectsTamper(t *testing.T) {
	s, err := NewClassicalSigner()
	if err != nil {
		t.Fatalf("NewClassicalSigner: %v", err)
	}

	msg := []byte("payload")
	sig := s.Sign(msg)

	if s.Verify([]byte("payload!"), sig) {
		t.Fatal("expected altered message to fail verification")
	}

	sig[0] ^= 0xff
	if s.Verify(msg, sig) {
		t.Fatal("expected altered signature to fail verification")
	}
}

func TestClassicalSignerFromKeyRejectsBadSize(t *testing.T) {
	if _, err := NewClassicalSignerFromKey(make(ed25519.PrivateKey, 10)); err == nil {
		t.Fatal("expected error for truncated private key")
	}
}

func TestQuantumSignVerify(t *testing.T) {
	s, err := NewQuantumSigner()
	if err != nil {
		t.Fatalf("NewQuantumSigner: %v", err)
	}

	msg := []byte("quantum payload")
	sig := s.Sign(msg)

	if !s.Verify(msg, sig) {
		t.Fatal("expected quantum signature to verify")
	}
	if s.Verify([]byte("other"), sig) {
		t.Fatal("expected wrong message to fail verification")
	}

	pub, err := s.PublicKeyBytes()
	if err != nil {
		t.Fatalf("PublicKeyBytes: %v", err)
	}
	if !VerifyQuantum(pub, msg, sig) {
		t.Fatal("expected verification from marshaled public key to succeed")
	}
}

func TestHashIsStableHex(t *testing.T) {
	a := Hash([]byte("abc"))
	b := Hash([]byte("abc"))
	if a != b {
		t.Fatalf("expected stable hash, got %q and %q", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}
	if a == Hash([]byte("abd")) {
		t.Fatal("expected distinct inputs to hash differently")
	}
}

func TestGenerateIDUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 64; i++ {
		id, err := GenerateID()
		if err != nil {
			t.Fatalf("GenerateID: %v", err)
		}
		if len(id) != 32 {
			t.Fatalf("expected 32 hex chars, got %d", len(id))
		}
		if _, ok := seen[id]; ok {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = struct{}{}
	}
}

func TestConstantTimeEqual(t *testing.T) {
	if !ConstantTimeEqual("abc", "abc") {
		t.Fatal("expected equal strings to match")
	}
	if ConstantTimeEqual("abc", "abd") {
		t.Fatal("expected different strings to mismatch")
	}
	if ConstantTimeEqual("abc", "abcd") {
		t.Fatal("expected different lengths to mismatch")
	}
}
