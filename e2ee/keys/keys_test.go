package keys

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"testing"
)

func testOptions() Options {
	return DefaultOptions([]byte{0, 1, 2, 3, 4, 5, 6, 7})
}

func testMaterial() []byte {
	m := make([]byte, 16)
	for i := range m {
		m[i] = byte(i)
	}
	return m
}

func TestSetKeyDerivation(t *testing.T) {
	p := NewProvider(testOptions())
	if err := p.SetKey("alice", 0, testMaterial()); err != nil {
		t.Fatalf("SetKey: %v", err)
	}

	h, ok := p.GetKey("alice")
	if !ok {
		t.Fatalf("GetKey: handler missing")
	}
	ks, err := h.CurrentKeySet(0)
	if err != nil {
		t.Fatalf("CurrentKeySet: %v", err)
	}
	if !bytes.Equal(ks.Material, testMaterial()) {
		t.Fatalf("material mismatch")
	}
	if len(ks.EncryptionKey) != EncryptionKeySize {
		t.Fatalf("encryption key length = %d, want %d", len(ks.EncryptionKey), EncryptionKeySize)
	}
	if ks.Generation != 0 {
		t.Fatalf("generation = %d, want 0", ks.Generation)
	}

	// Re-deriving from the same inputs must be byte-identical.
	p2 := NewProvider(testOptions())
	if err := p2.SetKey("bob", 0, testMaterial()); err != nil {
		t.Fatalf("SetKey: %v", err)
	}
	ks2, err := p2.GetKeySet("bob", 0, 0)
	if err != nil {
		t.Fatalf("GetKeySet: %v", err)
	}
	if !bytes.Equal(ks.EncryptionKey, ks2.EncryptionKey) {
		t.Fatalf("derivation is not deterministic")
	}
}

func TestSetKeyEmptyMaterial(t *testing.T) {
	p := NewProvider(testOptions())
	if err := p.SetKey("alice", 0, nil); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("SetKey(nil) = %v, want ErrInvalidKey", err)
	}
}

func TestRatchetChangesKeys(t *testing.T) {
	p := NewProvider(testOptions())
	if err := p.SetKey("alice", 0, testMaterial()); err != nil {
		t.Fatalf("SetKey: %v", err)
	}
	before, _ := p.GetKeySet("alice", 0, 0)

	newKey, err := p.RatchetKey("alice", 0)
	if err != nil {
		t.Fatalf("RatchetKey: %v", err)
	}
	after, err := p.GetKeySet("alice", 0, 1)
	if err != nil {
		t.Fatalf("GetKeySet gen 1: %v", err)
	}
	if bytes.Equal(after.Material, before.Material) {
		t.Fatalf("ratchet did not change material")
	}
	if bytes.Equal(after.EncryptionKey, before.EncryptionKey) {
		t.Fatalf("ratchet did not change encryption key")
	}
	if !bytes.Equal(newKey, after.EncryptionKey) {
		t.Fatalf("returned key does not match stored key set")
	}
}

func TestRatchetDeterminismAcrossProviders(t *testing.T) {
	p1 := NewProvider(testOptions())
	p2 := NewProvider(testOptions())
	_ = p1.SetKey("alice", 0, testMaterial())
	_ = p2.SetKey("alice", 0, testMaterial())

	for i := 0; i < 5; i++ {
		k1, err := p1.RatchetKey("alice", 0)
		if err != nil {
			t.Fatalf("ratchet p1 step %d: %v", i, err)
		}
		k2, err := p2.RatchetKey("alice", 0)
		if err != nil {
			t.Fatalf("ratchet p2 step %d: %v", i, err)
		}
		if !bytes.Equal(k1, k2) {
			t.Fatalf("providers diverged at generation %d", i+1)
		}
	}
}

func TestKeyRingEviction(t *testing.T) {
	opts := testOptions()
	opts.KeyRingSize = 4
	p := NewProvider(opts)
	_ = p.SetKey("alice", 0, testMaterial())

	for i := 0; i < 6; i++ {
		if _, err := p.RatchetKey("alice", 0); err != nil {
			t.Fatalf("ratchet %d: %v", i, err)
		}
	}

	// Current generation is 6; the ring holds 3..6.
	if _, err := p.GetKeySet("alice", 0, 0); !errors.Is(err, ErrKeyExpired) {
		t.Fatalf("generation 0 should be evicted, got %v", err)
	}
	if _, err := p.GetKeySet("alice", 0, 2); !errors.Is(err, ErrKeyExpired) {
		t.Fatalf("generation 2 should be evicted, got %v", err)
	}
	for gen := uint32(3); gen <= 6; gen++ {
		ks, err := p.GetKeySet("alice", 0, gen)
		if err != nil {
			t.Fatalf("generation %d should be resident: %v", gen, err)
		}
		if ks.Generation != gen {
			t.Fatalf("generation mismatch: got %d want %d", ks.Generation, gen)
		}
	}
	// Never-reached generations are not resident either.
	if _, err := p.GetKeySet("alice", 0, 7); !errors.Is(err, ErrKeyExpired) {
		t.Fatalf("generation 7 should not be resident, got %v", err)
	}
}

func TestSetKeyResetsRing(t *testing.T) {
	p := NewProvider(testOptions())
	_ = p.SetKey("alice", 0, testMaterial())
	_, _ = p.RatchetKey("alice", 0)
	_, _ = p.RatchetKey("alice", 0)

	if err := p.SetKey("alice", 0, testMaterial()); err != nil {
		t.Fatalf("SetKey: %v", err)
	}
	ks, err := p.GetKeySet("alice", 0, 0)
	if err != nil {
		t.Fatalf("generation 0 after reinstall: %v", err)
	}
	if !bytes.Equal(ks.Material, testMaterial()) {
		t.Fatalf("material mismatch after reinstall")
	}
	if _, err := p.GetKeySet("alice", 0, 2); !errors.Is(err, ErrKeyExpired) {
		t.Fatalf("old generations should be gone after reinstall, got %v", err)
	}
}

func TestUnknownLookups(t *testing.T) {
	p := NewProvider(testOptions())
	if _, err := p.RatchetKey("nobody", 0); !errors.Is(err, ErrParticipantNotFound) {
		t.Fatalf("RatchetKey unknown participant = %v", err)
	}
	_ = p.SetKey("alice", 0, testMaterial())
	h, _ := p.GetKey("alice")
	if _, err := h.RatchetKey(3); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("RatchetKey unknown index = %v", err)
	}
	if _, err := h.CurrentKeySet(3); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("CurrentKeySet unknown index = %v", err)
	}
}

func TestSharedKeyMode(t *testing.T) {
	opts := testOptions()
	opts.SharedKey = true
	p := NewProvider(opts)

	if err := p.SetSharedKey(0, testMaterial()); err != nil {
		t.Fatalf("SetSharedKey: %v", err)
	}

	hA, okA := p.GetKey("alice")
	hB, okB := p.GetKey("bob")
	if !okA || !okB {
		t.Fatalf("shared handler missing")
	}
	if hA != hB {
		t.Fatalf("participant ids should alias one shared handler")
	}

	material, err := p.GetSharedKey(0)
	if err != nil {
		t.Fatalf("GetSharedKey: %v", err)
	}
	if !bytes.Equal(material, testMaterial()) {
		t.Fatalf("shared material mismatch")
	}

	if _, err := p.RatchetSharedKey(0); err != nil {
		t.Fatalf("RatchetSharedKey: %v", err)
	}

	plain := NewProvider(testOptions())
	if err := plain.SetSharedKey(0, testMaterial()); !errors.Is(err, ErrNotSharedMode) {
		t.Fatalf("SetSharedKey on per-participant provider = %v", err)
	}
}

func TestFailureTolerance(t *testing.T) {
	opts := testOptions()
	opts.FailureTolerance = 2
	p := NewProvider(opts)
	_ = p.SetKey("alice", 0, testMaterial())
	h, _ := p.GetKey("alice")

	if h.DecryptionFailure(0) {
		t.Fatalf("failure 1 should be within tolerance")
	}
	if h.DecryptionFailure(0) {
		t.Fatalf("failure 2 should be within tolerance")
	}
	if !h.DecryptionFailure(0) {
		t.Fatalf("failure 3 should exceed tolerance")
	}
	if !h.ToleranceExceeded(0) {
		t.Fatalf("tolerance should report exceeded")
	}

	h.DecryptionSuccess(0)
	if h.ToleranceExceeded(0) {
		t.Fatalf("success should reset the failure count")
	}
}

func TestOptionsNormalization(t *testing.T) {
	p := NewProvider(Options{RatchetSalt: []byte("salt")})
	if got := p.Options().KeyRingSize; got != DefaultKeyRingSize {
		t.Fatalf("KeyRingSize = %d, want default %d", got, DefaultKeyRingSize)
	}

	p = NewProvider(Options{RatchetSalt: []byte("salt"), KeyRingSize: 10000, RatchetWindowSize: -3})
	if got := p.Options().KeyRingSize; got != MaxKeyRingSize {
		t.Fatalf("KeyRingSize = %d, want clamp %d", got, MaxKeyRingSize)
	}
	if got := p.Options().RatchetWindowSize; got != 0 {
		t.Fatalf("RatchetWindowSize = %d, want 0", got)
	}
}

func TestConcurrentParticipants(t *testing.T) {
	p := NewProvider(testOptions())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("participant_%d", n)
			if err := p.SetKey(id, 0, testMaterial()); err != nil {
				t.Errorf("SetKey %s: %v", id, err)
				return
			}
			for j := 0; j < 50; j++ {
				if _, err := p.RatchetKey(id, 0); err != nil {
					t.Errorf("RatchetKey %s: %v", id, err)
					return
				}
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 16; i++ {
		id := fmt.Sprintf("participant_%d", i)
		h, ok := p.GetKey(id)
		if !ok {
			t.Fatalf("handler missing for %s", id)
		}
		ks, err := h.CurrentKeySet(0)
		if err != nil {
			t.Fatalf("CurrentKeySet %s: %v", id, err)
		}
		if ks.Generation != 50 {
			t.Fatalf("%s generation = %d, want 50", id, ks.Generation)
		}
	}
}

func BenchmarkRatchetKey(b *testing.B) {
	p := NewProvider(testOptions())
	_ = p.SetKey("alice", 0, testMaterial())
	h, _ := p.GetKey("alice")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := h.RatchetKey(0); err != nil {
			b.Fatalf("RatchetKey: %v", err)
		}
	}
}
