// Package frame applies the key-provider-backed AEAD scheme to a continuous
// sequence of media frames.
//
// Unlike discrete packets, frames carry the key generation in their trailer,
// so receivers pick the matching key directly on the common path; the bounded
// ratchet search only runs on a miss. Nonces mix a per-sender frame counter
// rather than wall clock alone, since frame cadence can exceed clock
// resolution. Codec-required header bytes stay unencrypted but are bound to
// the ciphertext as associated data.
package frame
