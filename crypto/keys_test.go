package crypto

import (
	"testing"
	"time"
)

func TestKeyRingActiveAlwaysResolvable(t *testing.T) {
	ring, err := NewKeyRing(time.Minute)
	if err != nil {
		t.Fatalf("NewKeyRing: %v", err)
	}

	active := ring.Active()
	if active == nil || active.KID == "" {
		t.Fatal("expected initialized active key material")
	}

	km, ok := ring.VerificationKey(active.KID)
	if !ok || km.KID != active.KID {
		t.Fatal("expected active kid to resolve")
	}
}

func TestKeyRingRotateKeepsPreviousWithinGrace(t *testing.T) {
	ring, err := NewKeyRing(time.Minute)
	if err != nil {
		t.Fatalf("NewKeyRing: %v", err)
	}
	oldKID := ring.Active().KID

	newKM, err := ring.Rotate()
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if newKM.KID == oldKID {
		t.Fatal("expected rotation to change the kid")
	}
	if ring.Active().KID != newKM.KID {
		t.Fatal("expected new material to be active")
	}

	if _, ok := ring.VerificationKey(oldKID); !ok {
		t.Fatal("expected previous kid to verify inside grace window")
	}
}

func TestKeyRingPreviousExpiresAfterGrace(t *testing.T) {
	ring, err := NewKeyRing(time.Minute)
	if err != nil {
		t.Fatalf("NewKeyRing: %v", err)
	}
	oldKID := ring.Active().KID

	if _, err := ring.Rotate(); err != nil {
		t.Fatalf("Rotate: %v", err)
	}

	ring.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	if _, ok := ring.VerificationKey(oldKID); ok {
		t.Fatal("expected previous kid rejected after grace window")
	}
	if _, ok := ring.VerificationKey(ring.Active().KID); !ok {
		t.Fatal("expected active kid unaffected by grace expiry")
	}
}

func TestKeyRingDoubleRotationDropsOldest(t *testing.T) {
	ring, err := NewKeyRing(time.Hour)
	if err != nil {
		t.Fatalf("NewKeyRing: %v", err)
	}
	first := ring.Active().KID

	if _, err := ring.Rotate(); err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if _, err := ring.Rotate(); err != nil {
		t.Fatalf("Rotate: %v", err)
	}

	if _, ok := ring.VerificationKey(first); ok {
		t.Fatal("expected twice-displaced kid to be gone")
	}
}
