// Package fec adds Reed-Solomon loss protection to encrypted payloads crossing
// lossy transports. Sealing happens before sharding, so the codec only ever
// handles ciphertext. Any combination of up to parityShards lost shards can be
// recovered.
package fec

import (
	"bytes"
	"errors"

	"github.com/klauspost/reedsolomon"
)

var (
	ErrInvalidConfig = errors.New("fec: invalid data/parity configuration")
	ErrTooManyLost   = errors.New("fec: too many shards lost, cannot recover")
)

// Codec shards encrypted payloads and reconstructs them from partial delivery.
type Codec struct {
	enc          reedsolomon.Encoder
	dataShards   int
	parityShards int
}

// NewCodec creates a codec with the given shard counts.
func NewCodec(dataShards, parityShards int) (*Codec, error) {
	if dataShards <= 0 || parityShards <= 0 {
		return nil, ErrInvalidConfig
	}
	enc, err := reedsolomon.New(dataShards, parityShards)
	if err != nil {
		return nil, err
	}
	return &Codec{enc: enc, dataShards: dataShards, parityShards: parityShards}, nil
}

// DataShards returns the number of data shards.
func (c *Codec) DataShards() int { return c.dataShards }

// ParityShards returns the number of parity shards.
func (c *Codec) ParityShards() int { return c.parityShards }

// TotalShards returns data + parity.
func (c *Codec) TotalShards() int { return c.dataShards + c.parityShards }

// Protect splits a sealed payload into data shards and computes parity.
// Returns all TotalShards() shards; the payload is padded as needed, so the
// receiver must know the original length to Recover it.
func (c *Codec) Protect(payload []byte) ([][]byte, error) {
	shards, err := c.enc.Split(payload)
	if err != nil {
		return nil, err
	}
	if err := c.enc.Encode(shards); err != nil {
		return nil, err
	}
	return shards, nil
}

// Recover rebuilds the original payload from a shard set with missing entries
// set to nil. Fails once more than ParityShards() shards are gone.
func (c *Codec) Recover(shards [][]byte, payloadLen int) ([]byte, error) {
	if err := c.enc.Reconstruct(shards); err != nil {
		if errors.Is(err, reedsolomon.ErrTooFewShards) {
			return nil, ErrTooManyLost
		}
		return nil, err
	}
	var buf bytes.Buffer
	if err := c.enc.Join(&buf, shards, payloadLen); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Verify checks parity consistency without reconstructing.
func (c *Codec) Verify(shards [][]byte) (bool, error) {
	return c.enc.Verify(shards)
}
