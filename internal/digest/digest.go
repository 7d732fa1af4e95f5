// Package digest provides the engine's streaming 128-bit cryptographic
// hasher (spec section 4.1): init/update/finalize over 16 bytes, plus a
// hex-string rendering used for FileMeta.checksum and the level scanners'
// stored/recomputed comparisons.
//
// The digest is blake2b truncated to 128 bits via its native variable
// output size (blake2b.New(16, nil)), which gives the MD5_DIGEST_LENGTH
// the original FTI-FF implementation's checksums use bit-for-bit, without
// reaching for a hash the standard library has deprecated for new use.
package digest

import (
	"encoding/hex"
	"hash"

	"golang.org/x/crypto/blake2b"
)

// Size is the digest width in bytes (spec's "16 bytes").
const Size = 16

// HexSize is the width of the NUL-terminated ASCII hex rendering (spec's
// "32 hex chars + terminator").
const HexSize = 2*Size + 1

// Digest is a streaming 128-bit hasher. The zero value is not usable;
// construct with New.
type Digest struct {
	h hash.Hash
}

// New returns a fresh Digest ready for Update calls.
func New() *Digest {
	h, err := blake2b.New(Size, nil)
	if err != nil {
		// Size is a compile-time constant within blake2b's supported
		// range (1..64); New only fails outside that range.
		panic("digest: " + err.Error())
	}
	return &Digest{h: h}
}

// Update feeds more bytes into the running digest.
func (d *Digest) Update(p []byte) {
	// hash.Hash.Write never returns an error per its documented contract.
	_, _ = d.h.Write(p)
}

// Finalize returns the 16-byte digest of everything fed so far. Finalize
// may be called more than once; it does not reset the running state.
func (d *Digest) Finalize() [Size]byte {
	var out [Size]byte
	copy(out[:], d.h.Sum(nil))
	return out
}

// Sum is a one-shot convenience: init, update(p), finalize.
func Sum(p []byte) [Size]byte {
	d := New()
	d.Update(p)
	return d.Finalize()
}

// Hex renders a 16-byte digest as 32 lowercase hex characters followed by
// a NUL byte, matching FileMeta.checksum's fixed 33-byte ASCII form.
func Hex(sum [Size]byte) [HexSize]byte {
	var out [HexSize]byte
	hex.Encode(out[:2*Size], sum[:])
	out[2*Size] = 0
	return out
}

// HexString renders the digest as a plain Go string (without the
// trailing NUL), for comparisons against a decoded on-disk checksum.
func HexString(sum [Size]byte) string {
	return hex.EncodeToString(sum[:])
}

// ParseHex decodes a NUL-terminated 33-byte ASCII hex checksum (or a bare
// 32-character hex string) back into its 16 digest bytes.
func ParseHex(s [HexSize]byte) ([Size]byte, error) {
	var out [Size]byte
	end := 2 * Size
	b, err := hex.DecodeString(string(s[:end]))
	if err != nil {
		return out, err
	}
	copy(out[:], b)
	return out, nil
}
