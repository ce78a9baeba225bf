package keys

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
)

// EncryptionKeySize is the length of every derived encryption key
// (AES-256-GCM and ChaCha20-Poly1305 key size).
const EncryptionKeySize = 32

// Distinct info labels keep the two derivations in separate HKDF domains, so
// ratcheted material can never collide with an encryption key.
const (
	infoEncryptionKey = "e2ee-key"
	infoRatchet       = "e2ee-ratchet"
)

// deriveEncryptionKey computes the encryption key for one generation's
// material. Pure function of (material, salt).
func deriveEncryptionKey(material, salt []byte) ([]byte, error) {
	return expand(material, salt, infoEncryptionKey)
}

// ratchetMaterial derives the next generation's material from the current one.
// One-way: the input cannot be recovered from the output.
func ratchetMaterial(material, salt []byte) ([]byte, error) {
	return expand(material, salt, infoRatchet)
}

func expand(secret, salt []byte, info string) ([]byte, error) {
	hk := hkdf.New(sha256.New, secret, salt, []byte(info))
	out := make([]byte, EncryptionKeySize)
	if _, err := io.ReadFull(hk, out); err != nil {
		return nil, err
	}
	return out, nil
}
