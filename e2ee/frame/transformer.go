package frame

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/confmesh/e2ee/e2ee/aead"
	"github.com/confmesh/e2ee/e2ee/keys"
)

var (
	ErrDecryptionFailed = errors.New("frame: decryption failed")
	ErrTooManyFailures  = errors.New("frame: too many consecutive decryption failures")
	ErrFrameTooShort    = errors.New("frame: frame shorter than unencrypted header")
)

// Transformer encrypts and decrypts one participant's frame stream. Safe for
// concurrent use, though a media pipeline normally drives it from one worker.
type Transformer struct {
	alg           aead.Algorithm
	provider      *keys.Provider
	participantID string

	prefix  [4]byte       // random per transformer, mixed into every nonce
	counter atomic.Uint64 // monotonic per-sender frame counter

	mu            sync.Mutex
	keyIndex      uint8
	headerSize    int
	state         State
	onStateChange func(participantID string, state State)
}

// Option customizes a Transformer at construction.
type Option func(*Transformer)

// WithKeyIndex selects the initial key slot. Defaults to 0.
func WithKeyIndex(keyIndex uint8) Option {
	return func(t *Transformer) { t.keyIndex = keyIndex }
}

// WithUnencryptedHeader leaves the first n bytes of each frame in the clear
// for codec parsing. The header is still authenticated as associated data.
func WithUnencryptedHeader(n int) Option {
	return func(t *Transformer) {
		if n > 0 {
			t.headerSize = n
		}
	}
}

// WithStateChange installs a callback fired whenever the transformer's state
// changes. The callback must not block.
func WithStateChange(fn func(participantID string, state State)) Option {
	return func(t *Transformer) { t.onStateChange = fn }
}

// NewTransformer creates a transformer for one participant's stream.
func NewTransformer(alg aead.Algorithm, provider *keys.Provider, participantID string, opts ...Option) (*Transformer, error) {
	if !alg.Supported() {
		return nil, aead.ErrUnsupportedAlgorithm
	}
	t := &Transformer{
		alg:           alg,
		provider:      provider,
		participantID: participantID,
	}
	for _, opt := range opts {
		opt(t)
	}
	if _, err := io.ReadFull(rand.Reader, t.prefix[:]); err != nil {
		return nil, err
	}
	return t, nil
}

// SetKeyIndex switches the key slot used for subsequent frames.
func (t *Transformer) SetKeyIndex(keyIndex uint8) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.keyIndex = keyIndex
}

// KeyIndex returns the key slot in use.
func (t *Transformer) KeyIndex() uint8 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.keyIndex
}

// State returns the transformer's most recent outcome.
func (t *Transformer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// EncryptFrame seals a frame under the participant's current key, tagging it
// with the key index and generation used so the receiver can select the
// matching key directly.
func (t *Transformer) EncryptFrame(plain []byte) ([]byte, error) {
	t.mu.Lock()
	keyIndex, headerSize := t.keyIndex, t.headerSize
	t.mu.Unlock()

	if len(plain) < headerSize {
		return nil, ErrFrameTooShort
	}
	handler, ok := t.provider.GetKey(t.participantID)
	if !ok {
		t.setState(StateMissingKey)
		return nil, keys.ErrKeyNotFound
	}
	ks, err := handler.CurrentKeySet(keyIndex)
	if err != nil {
		t.setState(StateMissingKey)
		return nil, err
	}
	primitive, err := aead.New(t.alg, ks.EncryptionKey)
	if err != nil {
		t.setState(StateEncryptionFailed)
		return nil, err
	}

	var iv [aead.NonceSize]byte
	copy(iv[:4], t.prefix[:])
	binary.BigEndian.PutUint64(iv[4:], t.counter.Add(1))

	header := plain[:headerSize]
	ciphertext := primitive.Seal(nil, iv[:], plain[headerSize:], header)

	out := make([]byte, 0, len(header)+len(ciphertext)+aead.NonceSize+trailerFixedSize)
	out = append(out, header...)
	out = append(out, ciphertext...)
	out = appendTrailer(out, iv[:], ks.Generation, keyIndex)
	t.setState(StateOK)
	return out, nil
}

// DecryptFrame opens an encrypted frame. The generation named in the trailer
// is tried first; if that key is gone from the ring or fails authentication,
// the bounded forward ratchet search runs from the current generation, as for
// data packets. Consecutive failures count against the provider's
// FailureTolerance; once exceeded, frames for that key slot are rejected until
// a decrypt succeeds or a new key is installed.
func (t *Transformer) DecryptFrame(sealed []byte) ([]byte, error) {
	t.mu.Lock()
	headerSize := t.headerSize
	t.mu.Unlock()

	tr, body, err := splitTrailer(sealed)
	if err != nil {
		return nil, err
	}
	if len(body) < headerSize+aead.TagSize {
		return nil, ErrMalformedFrame
	}
	handler, ok := t.provider.GetKey(t.participantID)
	if !ok {
		t.setState(StateMissingKey)
		return nil, keys.ErrParticipantNotFound
	}
	if handler.ToleranceExceeded(tr.keyIndex) {
		return nil, ErrTooManyFailures
	}

	header := body[:headerSize]
	ciphertext := body[headerSize:]

	// Common path: the trailer names the generation.
	if ks, err := handler.KeySetAt(tr.keyIndex, tr.generation); err == nil {
		if plain, err := t.open(ks.EncryptionKey, tr.iv, ciphertext, header); err == nil {
			handler.DecryptionSuccess(tr.keyIndex)
			t.setState(StateOK)
			return assemble(header, plain), nil
		}
	}

	// Tag miss or evicted generation: bounded forward search.
	ks, err := handler.CurrentKeySet(tr.keyIndex)
	if err != nil {
		t.setState(StateMissingKey)
		return nil, err
	}
	window := t.provider.Options().RatchetWindowSize
	key := ks.EncryptionKey
	ratcheted := false
	for attempt := 0; ; attempt++ {
		if plain, err := t.open(key, tr.iv, ciphertext, header); err == nil {
			handler.DecryptionSuccess(tr.keyIndex)
			if ratcheted {
				t.setState(StateKeyRatcheted)
			} else {
				t.setState(StateOK)
			}
			return assemble(header, plain), nil
		}
		if attempt >= window {
			break
		}
		if key, err = handler.RatchetKey(tr.keyIndex); err != nil {
			break
		}
		ratcheted = true
	}

	exceeded := handler.DecryptionFailure(tr.keyIndex)
	t.setState(StateDecryptionFailed)
	if exceeded {
		return nil, ErrTooManyFailures
	}
	return nil, ErrDecryptionFailed
}

func (t *Transformer) open(key, iv, ciphertext, header []byte) ([]byte, error) {
	primitive, err := aead.New(t.alg, key)
	if err != nil {
		return nil, err
	}
	return primitive.Open(nil, iv, ciphertext, header)
}

func (t *Transformer) setState(s State) {
	t.mu.Lock()
	changed := t.state != s
	t.state = s
	fn := t.onStateChange
	t.mu.Unlock()
	if changed && fn != nil {
		fn(t.participantID, s)
	}
}

func assemble(header, plain []byte) []byte {
	out := make([]byte, 0, len(header)+len(plain))
	out = append(out, header...)
	return append(out, plain...)
}
