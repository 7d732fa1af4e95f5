package ckptfile

import (
	"fmt"
	"os"
	"time"

	"multickpt/internal/digest"
	"multickpt/internal/erasure"
)

// WriteParity produces one L3 parity file (spec section 6:
// "Ckpt<ckptID>-RSed<rank>.fti"). dataShards holds the group's primary
// checkpoint bytes, already padded to a common stripe width by the
// caller (real FTI-FF groups shards via a group-wide byte exchange;
// that exchange is the out-of-scope topology/collective layer spec
// section 1 names, so WriteParity only takes the shards once collected
// and turns them into this rank's parity shard via the Codec boundary,
// spec section 1's "external collaborator" for erasure coding).
//
// Unlike a primary/partner-copy file, a parity file carries no block
// graph: it is the raw RS-encoded stripe, with FileMeta placed at the
// end instead of the start (spec section 6).
func WriteParity(path string, codec erasure.Codec, dataShards [][]byte, parityIndex int, now func() time.Time) (FileMeta, error) {
	if parityIndex < 0 || parityIndex >= codec.ParityShards() {
		return FileMeta{}, fmt.Errorf("ckptfile: parity index %d out of range [0,%d)", parityIndex, codec.ParityShards())
	}
	if len(dataShards) != codec.DataShards() {
		return FileMeta{}, fmt.Errorf("ckptfile: got %d data shards, codec wants %d", len(dataShards), codec.DataShards())
	}

	width := 0
	for _, s := range dataShards {
		if len(s) > width {
			width = len(s)
		}
	}

	shards := make([][]byte, codec.DataShards()+codec.ParityShards())
	for i, s := range dataShards {
		if len(s) != width {
			return FileMeta{}, fmt.Errorf("ckptfile: data shard %d has length %d, want %d (caller must pad)", i, len(s), width)
		}
		shards[i] = s
	}
	for i := codec.DataShards(); i < len(shards); i++ {
		shards[i] = make([]byte, width)
	}

	if err := codec.Encode(shards); err != nil {
		return FileMeta{}, fmt.Errorf("ckptfile: encode parity: %w", err)
	}
	parityShard := shards[codec.DataShards()+parityIndex]

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return FileMeta{}, fmt.Errorf("ckptfile: open %s: %w", path, err)
	}
	defer f.Close()

	if err := writeCapped(f, 0, parityShard, nil); err != nil {
		return FileMeta{}, err
	}

	ts := time.Now()
	if now != nil {
		ts = now()
	}
	meta := FileMeta{
		Timestamp: ts.UnixNano(),
		CkptSize:  int64(len(parityShard)),
		Fs:        int64(len(parityShard)),
		PtFs:      NoPartner,
		MaxFs:     NoParity,
		Checksum:  digest.HexString(digest.Sum(parityShard)),
	}

	if _, err := f.WriteAt(Encode(meta), int64(len(parityShard))); err != nil {
		return FileMeta{}, fmt.Errorf("ckptfile: write parity file meta: %w", err)
	}
	if err := f.Close(); err != nil {
		return FileMeta{}, fmt.Errorf("ckptfile: close: %w", err)
	}
	return meta, nil
}
