package frame

import (
	"encoding/binary"
	"errors"

	"github.com/confmesh/e2ee/e2ee/aead"
)

var ErrMalformedFrame = errors.New("frame: malformed encrypted frame")

// Encrypted frame layout:
//
//	unencrypted header || ciphertext || tag || iv (12) || generation (4, BE) || ivLen (1) || keyIndex (1)
//
// The trailer is parsed back to front, so the iv length byte must sit next to
// the key index byte at the very end.
const trailerFixedSize = 4 + 1 + 1

type trailer struct {
	iv         []byte
	generation uint32
	keyIndex   uint8
}

func appendTrailer(dst []byte, iv []byte, generation uint32, keyIndex uint8) []byte {
	dst = append(dst, iv...)
	dst = binary.BigEndian.AppendUint32(dst, generation)
	dst = append(dst, uint8(len(iv)), keyIndex)
	return dst
}

// splitTrailer separates an encrypted frame into its trailer and the leading
// header||ciphertext body.
func splitTrailer(frame []byte) (trailer, []byte, error) {
	if len(frame) < trailerFixedSize {
		return trailer{}, nil, ErrMalformedFrame
	}
	keyIndex := frame[len(frame)-1]
	ivLen := int(frame[len(frame)-2])
	if ivLen != aead.NonceSize || len(frame) < trailerFixedSize+ivLen {
		return trailer{}, nil, ErrMalformedFrame
	}
	genStart := len(frame) - trailerFixedSize
	ivStart := genStart - ivLen
	return trailer{
		iv:         frame[ivStart:genStart],
		generation: binary.BigEndian.Uint32(frame[genStart : genStart+4]),
		keyIndex:   keyIndex,
	}, frame[:ivStart], nil
}
