// Package packet encrypts and decrypts discrete data packets with keys drawn
// from a shared key provider.
//
// A packet names the key slot and IV it was sealed under, but not the key
// generation; the receiver discovers the generation by trial, ratcheting its
// own key forward within a bounded window when the sender has moved ahead.
package packet
