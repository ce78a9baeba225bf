package keys

// KeySet is an immutable snapshot of one generation's secret material and the
// encryption key derived from it. Callers must not modify the byte slices.
type KeySet struct {
	Material      []byte
	EncryptionKey []byte
	Generation    uint32
}

// keyRing holds the most recent generations of a single key slot, ordered by
// generation. Slot assignment is generation mod size, so advancing past a full
// ring overwrites the oldest entry.
type keyRing struct {
	slots   []*KeySet
	current uint32
}

func newKeyRing(size int) *keyRing {
	return &keyRing{slots: make([]*KeySet, size)}
}

// install resets the ring to a fresh generation-0 key set, discarding all
// previous history.
func (r *keyRing) install(ks *KeySet) {
	for i := range r.slots {
		r.slots[i] = nil
	}
	r.slots[int(ks.Generation)%len(r.slots)] = ks
	r.current = ks.Generation
}

// advance inserts the next generation and moves the current pointer to it.
func (r *keyRing) advance(ks *KeySet) {
	r.slots[int(ks.Generation)%len(r.slots)] = ks
	r.current = ks.Generation
}

func (r *keyRing) currentKeySet() *KeySet {
	return r.slots[int(r.current)%len(r.slots)]
}

// at returns the key set for an exact generation, or ErrKeyExpired if the ring
// has evicted it (or never reached it).
func (r *keyRing) at(generation uint32) (*KeySet, error) {
	ks := r.slots[int(generation)%len(r.slots)]
	if ks == nil || ks.Generation != generation {
		return nil, ErrKeyExpired
	}
	return ks, nil
}
