// Package e2ee implements end-to-end encryption for media frames and data
// packets exchanged in multi-party real-time sessions, independent of any
// transport security the session already has. Payloads are sealed with keys a
// forwarding relay never learns, so transport-level access grants no
// plaintext.
//
// The building blocks live in subpackages: key lifecycle and ratcheting
// (keys), AEAD algorithm selection (aead), the discrete packet engine
// (packet), the streaming frame transformer (frame), optional loss protection
// for sealed payloads (fec) and a QUIC datagram adapter (transport/quic).
// Initial key material reaches participants over an out-of-band signaling
// channel that this module does not provide.
package e2ee
