package keys

import (
	"math"
	"sync"
)

// ParticipantKeyHandler owns one participant's key rings, one per key index.
// All methods are safe for concurrent use; handlers of different participants
// never contend with each other.
type ParticipantKeyHandler struct {
	mu       sync.Mutex
	opts     Options
	rings    map[uint8]*keyRing
	failures map[uint8]int
}

func newParticipantKeyHandler(opts Options) *ParticipantKeyHandler {
	return &ParticipantKeyHandler{
		opts:     opts,
		rings:    make(map[uint8]*keyRing),
		failures: make(map[uint8]int),
	}
}

// SetKey installs material as generation 0 for the key index, replacing any
// existing ring for that index. The encryption key is derived eagerly.
func (h *ParticipantKeyHandler) SetKey(keyIndex uint8, material []byte) error {
	if len(material) == 0 {
		return ErrInvalidKey
	}
	encryptionKey, err := deriveEncryptionKey(material, h.opts.RatchetSalt)
	if err != nil {
		return err
	}
	ks := &KeySet{
		Material:      append([]byte(nil), material...),
		EncryptionKey: encryptionKey,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	ring := newKeyRing(h.opts.KeyRingSize)
	ring.install(ks)
	h.rings[keyIndex] = ring
	h.failures[keyIndex] = 0
	return nil
}

// RatchetKey derives the next generation from the current material and makes
// it current, returning the new encryption key. Earlier generations stay
// readable until the ring evicts them.
func (h *ParticipantKeyHandler) RatchetKey(keyIndex uint8) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ring, ok := h.rings[keyIndex]
	if !ok {
		return nil, ErrKeyNotFound
	}
	cur := ring.currentKeySet()
	if cur == nil {
		return nil, ErrKeyNotFound
	}
	if cur.Generation == math.MaxUint32 {
		return nil, ErrRatchetExhausted
	}

	material, err := ratchetMaterial(cur.Material, h.opts.RatchetSalt)
	if err != nil {
		return nil, err
	}
	encryptionKey, err := deriveEncryptionKey(material, h.opts.RatchetSalt)
	if err != nil {
		return nil, err
	}
	ring.advance(&KeySet{
		Material:      material,
		EncryptionKey: encryptionKey,
		Generation:    cur.Generation + 1,
	})
	return encryptionKey, nil
}

// CurrentKeySet returns the current-generation key set for the key index.
func (h *ParticipantKeyHandler) CurrentKeySet(keyIndex uint8) (*KeySet, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ring, ok := h.rings[keyIndex]
	if !ok {
		return nil, ErrKeyNotFound
	}
	ks := ring.currentKeySet()
	if ks == nil {
		return nil, ErrKeyNotFound
	}
	return ks, nil
}

// KeySetAt returns the key set for an exact generation, if the ring still
// holds it.
func (h *ParticipantKeyHandler) KeySetAt(keyIndex uint8, generation uint32) (*KeySet, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ring, ok := h.rings[keyIndex]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return ring.at(generation)
}

// HasKey reports whether a key is installed for the key index.
func (h *ParticipantKeyHandler) HasKey(keyIndex uint8) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.rings[keyIndex]
	return ok
}

// DecryptionFailure records a failed decrypt for the key index and reports
// whether the consecutive-failure tolerance is now exceeded. A negative
// tolerance never trips.
func (h *ParticipantKeyHandler) DecryptionFailure(keyIndex uint8) bool {
	if h.opts.FailureTolerance < 0 {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failures[keyIndex]++
	return h.failures[keyIndex] > h.opts.FailureTolerance
}

// DecryptionSuccess resets the consecutive-failure count for the key index.
func (h *ParticipantKeyHandler) DecryptionSuccess(keyIndex uint8) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failures[keyIndex] = 0
}

// ToleranceExceeded reports whether the key index has failed more consecutive
// decrypts than the tolerance allows.
func (h *ParticipantKeyHandler) ToleranceExceeded(keyIndex uint8) bool {
	if h.opts.FailureTolerance < 0 {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.failures[keyIndex] > h.opts.FailureTolerance
}
