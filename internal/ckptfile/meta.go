package ckptfile

import (
	"errors"
	"fmt"

	"multickpt/internal/digest"
)

// NoPartner and NoParity are the sentinel -1 values FileMeta.PtFs and
// FileMeta.MaxFs hold when this level doesn't compute them (spec section
// 3: "−1 if not L2" / "−1 if not L3").
const (
	NoPartner = -1
	NoParity  = -1
)

// ErrHeaderCorrupt is returned when a candidate file's myHash does not
// match its recomputed self-hash (spec section 7).
var ErrHeaderCorrupt = errors.New("ckptfile: header self-hash mismatch")

// FileMeta is the fixed-size record written at file offset 0 (or, for an
// L3 parity file, at offset filesize-MetaBytes — spec section 6).
type FileMeta struct {
	Checksum  string // decoded form of the 33-byte ASCII hex checksum
	Timestamp int64  // nanoseconds since epoch
	CkptSize  int64
	Fs        int64
	PtFs      int64
	MaxFs     int64
	MyHash    [hashBytes]byte
}

// selfHashInput serializes the fields myHash covers, in the order spec
// invariant I5 fixes: checksum (33 bytes), timestamp, ckptSize, fs, ptFs,
// maxFs.
func (m FileMeta) selfHashInput() []byte {
	buf := make([]byte, checksumBytes+5*int64Bytes)
	copy(buf[0:checksumBytes], checksumField(m.Checksum))
	putInt64(buf[checksumBytes:checksumBytes+8], m.Timestamp)
	putInt64(buf[checksumBytes+8:checksumBytes+16], m.CkptSize)
	putInt64(buf[checksumBytes+16:checksumBytes+24], m.Fs)
	putInt64(buf[checksumBytes+24:checksumBytes+32], m.PtFs)
	putInt64(buf[checksumBytes+32:checksumBytes+40], m.MaxFs)
	return buf
}

func checksumField(checksum string) [checksumBytes]byte {
	var out [checksumBytes]byte
	copy(out[:], checksum)
	return out
}

// computeMyHash implements invariant I5.
func computeMyHash(m FileMeta) [hashBytes]byte {
	return digest.Sum(m.selfHashInput())
}

// Encode serializes m, including a freshly computed MyHash, into a
// MetaBytes-wide buffer.
func Encode(m FileMeta) []byte {
	m.MyHash = computeMyHash(m)
	buf := make([]byte, MetaBytes)
	copy(buf[0:checksumBytes], checksumField(m.Checksum))
	cursor := checksumBytes
	putInt64(buf[cursor:cursor+8], m.Timestamp)
	cursor += 8
	putInt64(buf[cursor:cursor+8], m.CkptSize)
	cursor += 8
	putInt64(buf[cursor:cursor+8], m.Fs)
	cursor += 8
	putInt64(buf[cursor:cursor+8], m.PtFs)
	cursor += 8
	putInt64(buf[cursor:cursor+8], m.MaxFs)
	cursor += 8
	copy(buf[cursor:cursor+hashBytes], m.MyHash[:])
	return buf
}

// Decode reads a FileMeta from a MetaBytes-wide buffer without validating
// MyHash; call Validate separately (spec section 4.5 step 2 treats header
// validation as already done by the level scanner, but Decode+Validate
// lets a reader re-check on its own when no scanner ran first).
func Decode(buf []byte) (FileMeta, error) {
	if len(buf) < MetaBytes {
		return FileMeta{}, fmt.Errorf("ckptfile: meta buffer too small: %d < %d", len(buf), MetaBytes)
	}
	var m FileMeta
	raw := buf[0:checksumBytes]
	end := 0
	for end < len(raw) && raw[end] != 0 {
		end++
	}
	m.Checksum = string(raw[:end])
	cursor := checksumBytes
	m.Timestamp = getInt64(buf[cursor : cursor+8])
	cursor += 8
	m.CkptSize = getInt64(buf[cursor : cursor+8])
	cursor += 8
	m.Fs = getInt64(buf[cursor : cursor+8])
	cursor += 8
	m.PtFs = getInt64(buf[cursor : cursor+8])
	cursor += 8
	m.MaxFs = getInt64(buf[cursor : cursor+8])
	cursor += 8
	copy(m.MyHash[:], buf[cursor:cursor+hashBytes])
	return m, nil
}

// Validate reports ErrHeaderCorrupt if m.MyHash doesn't match the
// recomputed self-hash (spec invariant I5, property P2).
func Validate(m FileMeta) error {
	if computeMyHash(m) != m.MyHash {
		return ErrHeaderCorrupt
	}
	return nil
}
