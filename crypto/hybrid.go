package crypto

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
)

// HybridDelimiter separates the classical and quantum components inside an
// encoded hybrid signature.
const HybridDelimiter = "."

// DefaultSignatureCacheSize is the bounded capacity of the hybrid signature
// result cache.
const DefaultSignatureCacheSize = 1000

// HybridSignature is the result of signing one message with both
// cryptosystems. Hybrid is classicalHex + "." + quantumHex.
type HybridSignature struct {
	KID       string
	Classical []byte
	Quantum   []byte
	Hybrid    string
}

// HybridSigner composes the classical and quantum signers of the active key
// material. The two sub-signatures are computed concurrently and joined
// before encoding. Results are cached by message hash in a bounded table
// with insertion-order eviction.
type HybridSigner struct {
	ring  *KeyRing
	cache *sigCache
}

// NewHybridSigner creates a hybrid signer over the given key ring.
// cacheSize ≤ 0 selects DefaultSignatureCacheSize.
func NewHybridSigner(ring *KeyRing, cacheSize int) (*HybridSigner, error) {
	if ring == nil {
		return nil, ErrKeyRingNotReady
	}
	if cacheSize <= 0 {
		cacheSize = DefaultSignatureCacheSize
	}
	return &HybridSigner{ring: ring, cache: newSigCache(cacheSize)}, nil
}

// Sign produces both sub-signatures for message concurrently and returns
// the joined hybrid encoding. Repeated messages are served from the cache.
func (s *HybridSigner) Sign(message []byte) (*HybridSignature, error) {
	km := s.ring.Active()
	if km == nil {
		return nil, ErrKeyRingNotReady
	}
	return s.SignWith(km, message)
}

// SignWith signs message under the given key material. Callers that put
// the key identifier on the wire before signing use this to keep the two
// consistent across a concurrent rotation.
func (s *HybridSigner) SignWith(km *KeyMaterial, message []byte) (*HybridSignature, error) {
	if km == nil {
		return nil, ErrKeyRingNotReady
	}
	key := sha256.Sum256(message)
	if sig, ok := s.cache.get(key); ok && sig.KID == km.KID {
		return sig, nil
	}

	var classical, quantum []byte
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		classical = km.Classical.Sign(message)
	}()
	go func() {
		defer wg.Done()
		quantum = km.Quantum.Sign(message)
	}()
	wg.Wait()

	sig := &HybridSignature{
		KID:       km.KID,
		Classical: classical,
		Quantum:   quantum,
		Hybrid:    hex.EncodeToString(classical) + HybridDelimiter + hex.EncodeToString(quantum),
	}
	s.cache.put(key, sig)
	return sig, nil
}

// Verify splits the hybrid encoding and requires both sub-verifications to
// succeed. Any malformed component reports false.
func (s *HybridSigner) Verify(message []byte, hybrid string, kid string) bool {
	km, ok := s.ring.VerificationKey(kid)
	if !ok {
		return false
	}
	return VerifyHybrid(message, hybrid, km.Classical.PublicKey(), km)
}

// VerifyHybrid checks a hybrid signature against explicit key material.
// Both the classical and the quantum component must verify.
func VerifyHybrid(message []byte, hybrid string, classicalPub ed25519.PublicKey, km *KeyMaterial) bool {
	parts := strings.Split(hybrid, HybridDelimiter)
	if len(parts) != 2 {
		return false
	}
	classical, err := hex.DecodeString(parts[0])
	if err != nil {
		return false
	}
	quantum, err := hex.DecodeString(parts[1])
	if err != nil {
		return false
	}
	if !VerifyClassical(classicalPub, message, classical) {
		return false
	}
	return km.Quantum.Verify(message, quantum)
}

// sigCache is a bounded table with insertion-order (FIFO) eviction, not
// true LRU: hits do not refresh an entry's position.
type sigCache struct {
	mu    sync.Mutex
	cap   int
	order []([32]byte)
	head  int
	items map[[32]byte]*HybridSignature
}

func newSigCache(capacity int) *sigCache {
	return &sigCache{
		cap:   capacity,
		items: make(map[[32]byte]*HybridSignature, capacity),
	}
}

func (c *sigCache) get(key [32]byte) (*HybridSignature, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sig, ok := c.items[key]
	return sig, ok
}

func (c *sigCache) put(key [32]byte, sig *HybridSignature) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[key]; ok {
		c.items[key] = sig
		return
	}
	if len(c.items) >= c.cap {
		oldest := c.order[c.head]
		delete(c.items, oldest)
		c.head++
		// Compact the queue once the dead prefix dominates.
		if c.head > c.cap {
			c.order = append([]([32]byte)(nil), c.order[c.head:]...)
			c.head = 0
		}
	}
	c.items[key] = sig
	c.order = append(c.order, key)
}

func (c *sigCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
