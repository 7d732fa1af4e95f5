package ckptfile

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"multickpt/internal/digest"
	"multickpt/internal/erasure"
)

func TestWriteParityProducesValidatableHeader(t *testing.T) {
	codec, err := erasure.NewReedSolomon(3, 2)
	if err != nil {
		t.Fatalf("NewReedSolomon: %v", err)
	}
	shards := [][]byte{
		bytes.Repeat([]byte{1}, 32),
		bytes.Repeat([]byte{2}, 32),
		bytes.Repeat([]byte{3}, 32),
	}

	path := filepath.Join(t.TempDir(), "Ckpt1-RSed0.fti")
	meta, err := WriteParity(path, codec, shards, 0, fixedNow)
	if err != nil {
		t.Fatalf("WriteParity: %v", err)
	}
	if err := Validate(meta); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if meta.Fs != 32 {
		t.Fatalf("Fs = %d, want 32 (the shard width)", meta.Fs)
	}
}

func TestWriteParityRejectsWrongShardCount(t *testing.T) {
	codec, err := erasure.NewReedSolomon(3, 2)
	if err != nil {
		t.Fatalf("NewReedSolomon: %v", err)
	}
	path := filepath.Join(t.TempDir(), "Ckpt1-RSed0.fti")
	_, err = WriteParity(path, codec, [][]byte{{1, 2, 3}}, 0, fixedNow)
	if err == nil {
		t.Fatal("expected error for a shard count mismatch")
	}
}

func TestWriteParityRejectsOutOfRangeIndex(t *testing.T) {
	codec, err := erasure.NewReedSolomon(2, 2)
	if err != nil {
		t.Fatalf("NewReedSolomon: %v", err)
	}
	path := filepath.Join(t.TempDir(), "Ckpt1-RSed0.fti")
	shards := [][]byte{bytes.Repeat([]byte{1}, 8), bytes.Repeat([]byte{2}, 8)}
	if _, err := WriteParity(path, codec, shards, 5, fixedNow); err == nil {
		t.Fatal("expected error for an out-of-range parity index")
	}
}

func TestWriteParityShardReconstructsOriginalData(t *testing.T) {
	codec, err := erasure.NewReedSolomon(2, 1)
	if err != nil {
		t.Fatalf("NewReedSolomon: %v", err)
	}
	d0 := bytes.Repeat([]byte{0xAA}, 16)
	d1 := bytes.Repeat([]byte{0xBB}, 16)

	path := filepath.Join(t.TempDir(), "Ckpt1-RSed0.fti")
	if _, err := WriteParity(path, codec, [][]byte{d0, d1}, 0, fixedNow); err != nil {
		t.Fatalf("WriteParity: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	meta, err := Decode(raw[len(raw)-MetaBytes:])
	if err != nil {
		t.Fatalf("Decode trailing header: %v", err)
	}
	if err := Validate(meta); err != nil {
		t.Fatalf("Validate trailing header: %v", err)
	}
	parityShard := raw[:meta.Fs]
	if digest.HexString(digest.Sum(parityShard)) != meta.Checksum {
		t.Fatal("parity shard checksum does not match trailing header")
	}

	shards := [][]byte{append([]byte(nil), d0...), append([]byte(nil), d1...), append([]byte(nil), parityShard...)}
	shards[0] = nil
	if err := codec.Reconstruct(shards); err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	if !bytes.Equal(shards[0], d0) {
		t.Fatal("reconstructed data shard does not match original")
	}
}
