package packet

import (
	"encoding/binary"
	"errors"
	"sync/atomic"
	"time"

	"github.com/confmesh/e2ee/e2ee/aead"
	"github.com/confmesh/e2ee/e2ee/keys"
)

var ErrDecryptionFailed = errors.New("packet: decryption failed")

// Cryptor is the packet encryption engine, bound to one key provider and one
// AEAD algorithm. It is stateless apart from its IV counter; it is safe for
// concurrent use, and several cryptors may share one provider.
type Cryptor struct {
	alg      aead.Algorithm
	provider *keys.Provider
	seq      atomic.Uint32
	compress bool
}

// Option customizes a Cryptor at construction.
type Option func(*Cryptor)

// WithCompression enables LZ4 compression of the plaintext before sealing.
// Both ends must agree on it out of band, like the algorithm itself; it is
// never signaled in the packet. Note that it trades the exact
// len(plaintext)+16 output size for smaller payloads.
func WithCompression() Option {
	return func(c *Cryptor) { c.compress = true }
}

// NewCryptor creates a cryptor over the given provider.
func NewCryptor(alg aead.Algorithm, provider *keys.Provider, opts ...Option) (*Cryptor, error) {
	if !alg.Supported() {
		return nil, aead.ErrUnsupportedAlgorithm
	}
	c := &Cryptor{alg: alg, provider: provider}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Encrypt seals plaintext under the participant's current key for the given
// key slot. The output payload is ciphertext followed by the 16-byte tag,
// exactly len(plaintext)+16 bytes (without compression).
func (c *Cryptor) Encrypt(participantID string, keyIndex uint8, plaintext []byte) (*EncryptedPacket, error) {
	handler, ok := c.provider.GetKey(participantID)
	if !ok {
		return nil, keys.ErrKeyNotFound
	}
	ks, err := handler.CurrentKeySet(keyIndex)
	if err != nil {
		return nil, err
	}
	primitive, err := aead.New(c.alg, ks.EncryptionKey)
	if err != nil {
		return nil, err
	}

	payload := plaintext
	if c.compress {
		if payload, err = compress(plaintext); err != nil {
			return nil, err
		}
	}

	iv := c.nextIV()
	return &EncryptedPacket{
		Data:     primitive.Seal(nil, iv[:], payload, nil),
		IV:       iv[:],
		KeyIndex: keyIndex,
	}, nil
}

// Decrypt opens a packet with the participant's current key. A tag failure is
// treated as "sender may be ahead": the participant's key is ratcheted forward
// and retried, up to the provider's RatchetWindowSize. Each step permanently
// advances the stored generation, so packets sealed under generations the
// handler has since passed stop decrypting; ratchets are one-directional.
//
// Worst case a garbage packet costs RatchetWindowSize+1 failed AEAD opens, so
// keep the window small where hostile input is a concern.
func (c *Cryptor) Decrypt(participantID string, pkt *EncryptedPacket) ([]byte, error) {
	if pkt == nil || len(pkt.IV) != aead.NonceSize || len(pkt.Data) < aead.TagSize {
		return nil, ErrMalformedPacket
	}
	handler, ok := c.provider.GetKey(participantID)
	if !ok {
		return nil, keys.ErrParticipantNotFound
	}
	ks, err := handler.CurrentKeySet(pkt.KeyIndex)
	if err != nil {
		return nil, err
	}

	window := c.provider.Options().RatchetWindowSize
	key := ks.EncryptionKey
	for attempt := 0; ; attempt++ {
		payload, openErr := c.open(key, pkt)
		if openErr == nil {
			handler.DecryptionSuccess(pkt.KeyIndex)
			if c.compress {
				return decompress(payload)
			}
			return payload, nil
		}
		if attempt >= window {
			break
		}
		if key, err = handler.RatchetKey(pkt.KeyIndex); err != nil {
			return nil, err
		}
	}
	handler.DecryptionFailure(pkt.KeyIndex)
	return nil, ErrDecryptionFailed
}

func (c *Cryptor) open(key []byte, pkt *EncryptedPacket) ([]byte, error) {
	primitive, err := aead.New(c.alg, key)
	if err != nil {
		return nil, err
	}
	return primitive.Open(nil, pkt.IV, pkt.Data, nil)
}

// nextIV builds a 12-byte IV from the current unix-microsecond time and an
// atomic counter. The counter separates packets sealed within the same
// microsecond; the time component guarantees fresh IVs across restarts of the
// counter.
func (c *Cryptor) nextIV() [aead.NonceSize]byte {
	var iv [aead.NonceSize]byte
	binary.BigEndian.PutUint64(iv[:8], uint64(time.Now().UnixMicro()))
	binary.BigEndian.PutUint32(iv[8:], c.seq.Add(1))
	return iv
}
