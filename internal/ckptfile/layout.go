// Package ckptfile implements the per-process checkpoint file format: its
// fixed-size FileMeta header, the in-memory metadata graph of data
// blocks and variable chunks, the writer that produces the file, and the
// reader that recovers it (spec sections 3, 4.2-4.5).
//
// Byte order and field widths are pinned explicitly rather than left to
// host struct layout (spec's design note on native binary layout): every
// on-disk integer is little-endian and fixed-width, encoded with
// encoding/binary so the producer and any consumer agree regardless of
// the Go compiler's in-memory struct packing.
package ckptfile

import "encoding/binary"

// On-disk field widths, fixed regardless of host word size.
const (
	int32Bytes = 4
	int64Bytes = 8
	hashBytes  = 16 // digest.Size, repeated here to keep layout widths self-contained

	// checksumBytes is FileMeta.checksum's fixed width: 32 hex chars + NUL.
	checksumBytes = 33

	// blockPrefixBytes is a DataBlock's on-disk prefix: numvars (int32) +
	// dbsize (int64), spec section 4.3.
	blockPrefixBytes = int32Bytes + int64Bytes

	// VarChunkBytes is one VarChunk record's fixed on-disk width:
	// id, idx, dptr, fptr, chunksize (5 x int64) + hash (16 bytes).
	VarChunkBytes = 5*int64Bytes + hashBytes

	// MetaBytes is FileMeta's fixed on-disk width: checksum, timestamp,
	// ckptSize, fs, ptFs, maxFs (5 x int64) + myHash.
	MetaBytes = checksumBytes + 5*int64Bytes + hashBytes
)

func putInt64(buf []byte, v int64) {
	binary.LittleEndian.PutUint64(buf, uint64(v))
}

func getInt64(buf []byte) int64 {
	return int64(binary.LittleEndian.Uint64(buf))
}

func putInt32(buf []byte, v int32) {
	binary.LittleEndian.PutUint32(buf, uint32(v))
}

func getInt32(buf []byte) int32 {
	return int32(binary.LittleEndian.Uint32(buf))
}

// encodeVarChunk writes c into buf[:VarChunkBytes].
func encodeVarChunk(buf []byte, c VarChunk) {
	putInt64(buf[0:8], int64(c.ID))
	putInt64(buf[8:16], int64(c.Idx))
	putInt64(buf[16:24], c.Dptr)
	putInt64(buf[24:32], c.Fptr)
	putInt64(buf[32:40], c.ChunkSize)
	copy(buf[40:56], c.Hash[:])
}

// decodeVarChunk reads a VarChunk from buf[:VarChunkBytes].
func decodeVarChunk(buf []byte) VarChunk {
	var c VarChunk
	c.ID = int(getInt64(buf[0:8]))
	c.Idx = int(getInt64(buf[8:16]))
	c.Dptr = getInt64(buf[16:24])
	c.Fptr = getInt64(buf[24:32])
	c.ChunkSize = getInt64(buf[32:40])
	copy(c.Hash[:], buf[40:56])
	return c
}
