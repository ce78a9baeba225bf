package e2ee

import (
	"github.com/confmesh/e2ee/e2ee/aead"
	"github.com/confmesh/e2ee/e2ee/frame"
	"github.com/confmesh/e2ee/e2ee/keys"
	"github.com/confmesh/e2ee/e2ee/packet"
)

// Room is a high-level helper tying one key provider to the cryptors built on
// it. It intentionally stays small so applications keep control of key
// distribution and transports.
type Room struct {
	alg      aead.Algorithm
	provider *keys.Provider
}

// NewRoom creates a room with the given algorithm and key policy.
func NewRoom(alg aead.Algorithm, opts keys.Options) (*Room, error) {
	if !alg.Supported() {
		return nil, aead.ErrUnsupportedAlgorithm
	}
	return &Room{alg: alg, provider: keys.NewProvider(opts)}, nil
}

// Provider exposes the room's key provider for the signaling layer.
func (r *Room) Provider() *keys.Provider { return r.provider }

// SetKey installs a participant's key material at generation 0.
func (r *Room) SetKey(participantID string, keyIndex uint8, material []byte) error {
	return r.provider.SetKey(participantID, keyIndex, material)
}

// PacketCryptor builds a data packet cryptor over the room's provider.
func (r *Room) PacketCryptor(opts ...packet.Option) (*packet.Cryptor, error) {
	return packet.NewCryptor(r.alg, r.provider, opts...)
}

// FrameTransformer builds a frame transformer for one participant's stream.
func (r *Room) FrameTransformer(participantID string, opts ...frame.Option) (*frame.Transformer, error) {
	return frame.NewTransformer(r.alg, r.provider, participantID, opts...)
}
