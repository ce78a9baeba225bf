// Package keys manages the key lifecycle for end-to-end encrypted sessions.
//
// Each participant owns independent key slots (key indices); each slot keeps a
// bounded ring of key generations produced by a one-way ratchet. Ratcheting
// derives the next generation from the current material only, so compromise of
// a later key does not reveal earlier ones, and material older than the ring
// size is unrecoverable.
//
// Derivation is deterministic: two providers fed the same initial material and
// salt, ratcheted the same number of times, hold byte-identical keys without
// ever communicating. Receivers rely on this to catch up to a sender that has
// ratcheted ahead.
package keys
