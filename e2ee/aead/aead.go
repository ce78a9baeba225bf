// Package aead selects and constructs the AEAD primitive sealing media frames
// and data packets. The algorithm is agreed out of band per session and never
// inferred from packet content.
package aead

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"

	"golang.org/x/crypto/chacha20poly1305"
)

var (
	ErrUnsupportedAlgorithm = errors.New("aead: unsupported algorithm")
	ErrInvalidKeySize       = errors.New("aead: invalid key size")
)

const (
	// NonceSize is the 12-byte IV length shared by both primitives.
	NonceSize = 12
	// TagSize is the authentication tag appended to every ciphertext.
	TagSize = 16
	// KeySize is the encryption key length expected by New.
	KeySize = 32
)

// Algorithm identifies the AEAD primitive protecting a session. The set is
// closed; dispatch happens in New.
type Algorithm uint8

const (
	AESGCM Algorithm = iota
	ChaCha20Poly1305
)

func (a Algorithm) String() string {
	switch a {
	case AESGCM:
		return "AES-GCM"
	case ChaCha20Poly1305:
		return "ChaCha20-Poly1305"
	default:
		return "UNKNOWN"
	}
}

// Supported reports whether New can construct the algorithm.
func (a Algorithm) Supported() bool {
	return a == AESGCM || a == ChaCha20Poly1305
}

// New constructs the AEAD cipher for a 32-byte key.
func New(alg Algorithm, key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeySize
	}
	switch alg {
	case AESGCM:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		return cipher.NewGCM(block)
	case ChaCha20Poly1305:
		return chacha20poly1305.New(key)
	default:
		return nil, ErrUnsupportedAlgorithm
	}
}
