package packet

import (
	"errors"

	"github.com/confmesh/e2ee/e2ee/aead"
)

var ErrMalformedPacket = errors.New("packet: malformed encrypted packet")

// EncryptedPacket is the self-describing output of Encrypt: the sealed payload
// (ciphertext followed by the 16-byte tag), the 12-byte IV it was sealed
// under, and the key slot it used. The key generation is deliberately absent;
// receivers discover it by trial (see Cryptor.Decrypt).
type EncryptedPacket struct {
	Data     []byte
	IV       []byte
	KeyIndex uint8
}

// Encode serializes the packet for the wire:
//
//	1 byte:   key index
//	12 bytes: iv
//	N bytes:  ciphertext || tag
//
// Lengths are exact, no padding.
func (p *EncryptedPacket) Encode() []byte {
	out := make([]byte, 0, 1+len(p.IV)+len(p.Data))
	out = append(out, p.KeyIndex)
	out = append(out, p.IV...)
	out = append(out, p.Data...)
	return out
}

// DecodePacket parses a wire-encoded packet.
func DecodePacket(b []byte) (*EncryptedPacket, error) {
	if len(b) < 1+aead.NonceSize+aead.TagSize {
		return nil, ErrMalformedPacket
	}
	return &EncryptedPacket{
		KeyIndex: b[0],
		IV:       append([]byte(nil), b[1:1+aead.NonceSize]...),
		Data:     append([]byte(nil), b[1+aead.NonceSize:]...),
	}, nil
}
