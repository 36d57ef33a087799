package crypto

import (
	"errors"
	"sync/atomic"
	"time"
)

// ErrKeyRingNotReady is an exported constant or variable used by the token engine.
var ErrKeyRingNotReady = errors.New("key ring not initialized")

// KeyMaterial bundles one classical and one quantum keypair under a single
// key identifier. Rotation creates new KeyMaterial; the previous material
// stays valid for verification until every token signed under it can have
// expired.
type KeyMaterial struct {
	KID       string
	Classical *ClassicalSigner
	Quantum   *QuantumSigner
	CreatedAt time.Time
}

// GenerateKeyMaterial creates a fresh classical+quantum keypair with a
// random key identifier.
func GenerateKeyMaterial() (*KeyMaterial, error) {
	kid, err := GenerateID()
	if err != nil {
		return nil, err
	}
	classical, err := NewClassicalSigner()
	if err != nil {
		return nil, err
	}
	quantum, err := NewQuantumSigner()
	if err != nil {
		return nil, err
	}
	return &KeyMaterial{
		KID:       kid,
		Classical: classical,
		Quantum:   quantum,
		CreatedAt: time.Now(),
	}, nil
}

type keyRingState struct {
	active    *KeyMaterial
	previous  *KeyMaterial
	rotatedAt time.Time
}

// KeyRing holds the active signing key material and, during the rotation
// grace window, the immediately-previous material for verification only.
// The state is replaced via atomic pointer swap so in-flight operations see
// a consistent snapshot.
type KeyRing struct {
	state atomic.Pointer[keyRingState]
	grace time.Duration
	now   func() time.Time
}

// NewKeyRing generates initial key material and returns a ring whose
// previous key stays verifiable for the given grace duration after each
// rotation. The grace duration is bounded below by the maximum token
// validity.
func NewKeyRing(grace time.Duration) (*KeyRing, error) {
	km, err := GenerateKeyMaterial()
	if err != nil {
		return nil, err
	}
	r := &KeyRing{grace: grace, now: time.Now}
	r.state.Store(&keyRingState{active: km})
	return r, nil
}

// Active returns the current signing key material.
func (r *KeyRing) Active() *KeyMaterial {
	return r.state.Load().active
}

// Rotate generates new key material and switches the active signer. The
// displaced material remains acceptable for verification until the grace
// window elapses.
func (r *KeyRing) Rotate() (*KeyMaterial, error) {
	km, err := GenerateKeyMaterial()
	if err != nil {
		return nil, err
	}
	old := r.state.Load()
	r.state.Store(&keyRingState{
		active:    km,
		previous:  old.active,
		rotatedAt: r.now(),
	})
	return km, nil
}

// VerificationKey resolves a key identifier to key material usable for
// verification: the active key always, the previous key only while the
// rotation grace window is open.
func (r *KeyRing) VerificationKey(kid string) (*KeyMaterial, bool) {
	st := r.state.Load()
	if st.active != nil && st.active.KID == kid {
		return st.active, true
	}
	if st.previous != nil && st.previous.KID == kid {
		if r.now().Sub(st.rotatedAt) <= r.grace {
			return st.previous, true
		}
	}
	return nil, false
}
