// Package erasure defines the Reed-Solomon erasure-coding collaborator
// interface the core consumes for L3 parity (spec section 1: "the
// erasure-coding primitives... are external collaborators whose
// interfaces the core consumes"). The core never computes parity itself:
// ckptfile.WriteParity calls Codec.Encode to produce an RSed file's
// parity shard, and the L3 scanner reads ParityShards() to bound the
// tolerable erasures. No code in the engine calls Reconstruct; rebuilding
// a missing primary from surviving shards is left to the caller.
package erasure

import (
	"fmt"

	"github.com/klauspost/reedsolomon"
)

// Codec encodes/decodes opaque byte ranges into data + parity shards.
// Shards must all be the same length; a nil entry in Reconstruct marks a
// missing shard to be rebuilt in place.
type Codec interface {
	// DataShards and ParityShards report the configured split.
	DataShards() int
	ParityShards() int

	// Encode fills the trailing ParityShards() entries of shards (each
	// already sized to the stripe width) from the leading DataShards()
	// entries.
	Encode(shards [][]byte) error

	// Reconstruct rebuilds any nil entries of shards from the surviving
	// ones. Returns an error if too many shards are missing to recover.
	Reconstruct(shards [][]byte) error

	// Verify reports whether the parity shards are consistent with the
	// data shards, without modifying anything.
	Verify(shards [][]byte) (bool, error)
}

type reedSolomonCodec struct {
	enc          reedsolomon.Encoder
	dataShards   int
	parityShards int
}

// NewReedSolomon returns a Codec backed by klauspost/reedsolomon, matching
// the dataShards/parityShards split an L3 group (per-node-group size plus
// its configured fault tolerance) agrees on.
func NewReedSolomon(dataShards, parityShards int) (Codec, error) {
	enc, err := reedsolomon.New(dataShards, parityShards)
	if err != nil {
		return nil, fmt.Errorf("erasure: new reed-solomon codec: %w", err)
	}
	return &reedSolomonCodec{enc: enc, dataShards: dataShards, parityShards: parityShards}, nil
}

func (c *reedSolomonCodec) DataShards() int   { return c.dataShards }
func (c *reedSolomonCodec) ParityShards() int { return c.parityShards }

func (c *reedSolomonCodec) Encode(shards [][]byte) error {
	return c.enc.Encode(shards)
}

func (c *reedSolomonCodec) Reconstruct(shards [][]byte) error {
	return c.enc.Reconstruct(shards)
}

func (c *reedSolomonCodec) Verify(shards [][]byte) (bool, error) {
	return c.enc.Verify(shards)
}
