package crypto

import (
	"encoding/binary"
	"encoding/hex"
	"strings"
	"testing"
	"time"
)

func newTestSigner(t *testing.T, cacheSize int) (*HybridSigner, *KeyRing) {
	t.Helper()
	ring, err := NewKeyRing(5 * time.Minute)
	if err != nil {
		t.Fatalf("NewKeyRing: %v", err)
	}
	s, err := NewHybridSigner(ring, cacheSize)
	if err != nil {
		t.Fatalf("NewHybridSigner: %v", err)
	}
	return s, ring
}

func TestHybridSignVerifyRoundTrip(t *testing.T) {
	s, ring := newTestSigner(t, 0)

	msg := []byte("hybrid message")
	sig, err := s.Sign(msg)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	if sig.KID != ring.Active().KID {
		t.Fatalf("expected kid %q, got %q", ring.Active().KID, sig.KID)
	}
	if !strings.Contains(sig.Hybrid, HybridDelimiter) {
		t.Fatal("expected delimiter in hybrid encoding")
	}
	if !s.Verify(msg, sig.Hybrid, sig.KID) {
		t.Fatal("expected hybrid signature to verify")
	}
}

func TestHybridVerifyRequiresBothComponents(t *testing.T) {
	s, ring := newTestSigner(t, 0)

	msg := []byte("both or nothing")
	sig, err := s.Sign(msg)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	parts := strings.Split(sig.Hybrid, HybridDelimiter)
	other, err := NewClassicalSigner()
	if err != nil {
		t.Fatalf("NewClassicalSigner: %v", err)
	}

	// Valid classical component from the wrong key, valid quantum component.
	wrongClassical := other.Sign(msg)
	forged := hex.EncodeToString(wrongClassical) + HybridDelimiter + parts[1]
	if s.Verify(msg, forged, sig.KID) {
		t.Fatal("expected foreign classical component to fail")
	}

	// Valid classical component, quantum component from a different message.
	otherQuantum := ring.Active().Quantum.Sign([]byte("different"))
	forged = parts[0] + HybridDelimiter + hex.EncodeToString(otherQuantum)
	if s.Verify(msg, forged, sig.KID) {
		t.Fatal("expected mismatched quantum component to fail")
	}
}

func TestHybridVerifyRejectsMalformed(t *testing.T) {
	s, _ := newTestSigner(t, 0)

	msg := []byte("m")
	sig, err := s.Sign(msg)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	for _, bad := range []string{
		"",
		"deadbeef",
		"xx" + HybridDelimiter + "yy",
		sig.Hybrid + HybridDelimiter + "extra",
	} {
		if s.Verify(msg, bad, sig.KID) {
			t.Fatalf("expected malformed encoding %q to fail", bad)
		}
	}

	if s.Verify(msg, sig.Hybrid, "unknown-kid") {
		t.Fatal("expected unknown kid to fail")
	}
}

func TestHybridSignCachesRepeatedMessages(t *testing.T) {
	s, _ := newTestSigner(t, 8)

	msg := []byte("repeated")
	first, err := s.Sign(msg)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	second, err := s.Sign(msg)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	// ML-DSA signatures are randomized; pointer identity proves the cache hit.
	if first != second {
		t.Fatal("expected cached result for repeated message")
	}
	if got := s.cache.len(); got != 1 {
		t.Fatalf("expected 1 cache entry, got %d", got)
	}
}

func TestHybridCacheInvalidatedByRotation(t *testing.T) {
	s, ring := newTestSigner(t, 8)

	msg := []byte("rotate me")
	first, err := s.Sign(msg)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	if _, err := ring.Rotate(); err != nil {
		t.Fatalf("Rotate: %v", err)
	}

	second, err := s.Sign(msg)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if second == first {
		t.Fatal("expected fresh signature after rotation")
	}
	if second.KID == first.KID {
		t.Fatal("expected new kid after rotation")
	}
}

func TestSigCacheFIFOEviction(t *testing.T) {
	c := newSigCache(3)

	key := func(i int) [32]byte {
		var k [32]byte
		binary.BigEndian.PutUint64(k[:], uint64(i))
		return k
	}

	for i := 0; i < 3; i++ {
		c.put(key(i), &HybridSignature{KID: "k"})
	}

	// A hit on the oldest entry must not refresh its position.
	if _, ok := c.get(key(0)); !ok {
		t.Fatal("expected entry 0 present")
	}

	c.put(key(3), &HybridSignature{KID: "k"})

	if _, ok := c.get(key(0)); ok {
		t.Fatal("expected oldest entry evicted despite recent hit")
	}
	for i := 1; i <= 3; i++ {
		if _, ok := c.get(key(i)); !ok {
			t.Fatalf("expected entry %d present", i)
		}
	}
	if got := c.len(); got != 3 {
		t.Fatalf("expected 3 entries, got %d", got)
	}
}

func TestSigCacheQueueCompaction(t *testing.T) {
	c := newSigCache(2)

	key := func(i int) [32]byte {
		var k [32]byte
		binary.BigEndian.PutUint64(k[:], uint64(i))
		return k
	}

	for i := 0; i < 50; i++ {
		c.put(key(i), &HybridSignature{})
	}

	if got := c.len(); got != 2 {
		t.Fatalf("expected 2 entries after churn, got %d", got)
	}
	if _, ok := c.get(key(49)); !ok {
		t.Fatal("expected most recent entry present")
	}
	if _, ok := c.get(key(48)); !ok {
		t.Fatal("expected second most recent entry present")
	}
}
