package ckptfile

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"multickpt/internal/dataset"
	"multickpt/internal/digest"
)

// ErrDataCorrupt is returned by Recover/RecoverVar when a chunk's
// recomputed hash does not match the value stored in its VarChunk
// record (spec section 7, property P3).
var ErrDataCorrupt = errors.New("ckptfile: chunk hash mismatch")

// ErrMetadataMismatch is returned by Recover/RecoverVar when the
// caller's registered variable count or per-variable sizes differ from
// those recorded in the checkpoint's metadata graph (spec section 4.5
// step 1, section 7). No bytes are copied once this is detected.
var ErrMetadataMismatch = errors.New("ckptfile: registered variable count or sizes differ from checkpoint metadata")

// mmapFile is the mmap lifecycle the reader shares with Recover and
// RecoverVar: map once, read through the slice, unmap on every exit
// path including corruption aborts.
type mmapFile struct {
	file *os.File
	data []byte
}

func openMmap(path string) (*mmapFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ckptfile: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("ckptfile: stat %s: %w", path, err)
	}
	if info.Size() == 0 {
		f.Close()
		return nil, fmt.Errorf("ckptfile: %s is empty", path)
	}
	data, err := syscall.Mmap(int(f.Fd()), 0, int(info.Size()), syscall.PROT_READ, syscall.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("ckptfile: mmap %s: %w", path, err)
	}
	return &mmapFile{file: f, data: data}, nil
}

func (m *mmapFile) close() error {
	var err error
	if m.data != nil {
		if unmapErr := syscall.Munmap(m.data); unmapErr != nil {
			err = unmapErr
		}
		m.data = nil
	}
	if m.file != nil {
		if closeErr := m.file.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		m.file = nil
	}
	return err
}

// readGraph rebuilds the metadata graph and FileMeta header from a
// checkpoint file's mapped bytes, validating the header self-hash but
// not yet re-hashing chunk payloads (spec section 4.5 step 1).
func readGraph(data []byte) (FileMeta, *Graph, error) {
	if len(data) < MetaBytes {
		return FileMeta{}, nil, fmt.Errorf("ckptfile: file too small for header: %d bytes", len(data))
	}
	meta, err := Decode(data[0:MetaBytes])
	if err != nil {
		return FileMeta{}, nil, err
	}
	if err := Validate(meta); err != nil {
		return FileMeta{}, nil, err
	}

	graph := &Graph{}
	off := int64(MetaBytes)
	for off < meta.Fs {
		if off+blockPrefixBytes > int64(len(data)) {
			return FileMeta{}, nil, fmt.Errorf("ckptfile: truncated block prefix at offset %d", off)
		}
		numVars := getInt32(data[off : off+4])
		dbSizeField := getInt64(data[off+4 : off+12])

		varsOff := off + blockPrefixBytes
		vars := make([]VarChunk, numVars)
		for i := 0; i < int(numVars); i++ {
			recOff := varsOff + int64(i)*VarChunkBytes
			if recOff+VarChunkBytes > int64(len(data)) {
				return FileMeta{}, nil, fmt.Errorf("ckptfile: truncated var chunk record at offset %d", recOff)
			}
			vars[i] = decodeVarChunk(data[recOff : recOff+VarChunkBytes])
		}

		block := &DataBlock{NumVars: numVars, DBSize: dbSizeField, Vars: vars}
		if want := dbSize(vars); want != dbSizeField {
			return FileMeta{}, nil, fmt.Errorf("ckptfile: block at offset %d: dbsize %d, want %d", off, dbSizeField, want)
		}
		graph.AppendRaw(block)
		off += dbSizeField
	}
	if off != meta.Fs {
		return FileMeta{}, nil, fmt.Errorf("ckptfile: graph walk ended at %d, meta.fs is %d", off, meta.Fs)
	}

	return meta, graph, nil
}

// SizeTable maps a variable ID to its current total size, reconstructed
// by summing every chunk recorded for that ID across the graph (spec
// section 4.5 step 2).
func SizeTable(graph *Graph) map[int]int64 {
	sizes := make(map[int]int64)
	for _, b := range graph.Blocks() {
		for _, c := range b.Vars {
			sizes[c.ID] += c.ChunkSize
		}
	}
	return sizes
}

// checkMetadata rejects a recovery attempt whose caller-registered
// variable count or sizes disagree with what the checkpoint's
// metadata graph actually recorded, before any byte is copied (spec
// section 4.5 step 1, mirroring FTIFF_Recover's nbVar/varSize checks in
// the original source). A nil expected table skips the check, for the
// RecoverTable path that has no a priori registration to compare
// against.
func checkMetadata(expected dataset.Table, sizes map[int]int64) error {
	if expected == nil {
		return nil
	}
	if len(expected) != len(sizes) {
		return fmt.Errorf("%w: registered %d variables, checkpoint has %d", ErrMetadataMismatch, len(expected), len(sizes))
	}
	for _, v := range expected {
		size, ok := sizes[v.ID]
		if !ok {
			return fmt.Errorf("%w: registered variable %d not present in checkpoint", ErrMetadataMismatch, v.ID)
		}
		if size != v.Size {
			return fmt.Errorf("%w: variable %d registered size %d, checkpoint records %d", ErrMetadataMismatch, v.ID, v.Size, size)
		}
	}
	return nil
}

// Recover rebuilds every protected variable's bytes from path into dst
// (keyed by variable ID, pre-sized to SizeTable's totals by the
// caller), verifying each chunk's hash as it is copied (spec section
// 4.5 step 3, property P3). expected carries the caller's registered
// variable table; its count and per-variable sizes are checked against
// the checkpoint's own metadata graph before any byte is copied (spec
// section 4.5 step 1), returning ErrMetadataMismatch on disagreement.
// Pass a nil expected to skip the check, as RecoverTable does when it
// has no a priori registration to compare against. The mapped file is
// always unmapped before Recover returns, including on an abort.
func Recover(path string, expected dataset.Table, dst map[int][]byte) (FileMeta, error) {
	m, err := openMmap(path)
	if err != nil {
		return FileMeta{}, err
	}
	defer m.close()

	meta, graph, err := readGraph(m.data)
	if err != nil {
		return FileMeta{}, err
	}
	if err := checkMetadata(expected, SizeTable(graph)); err != nil {
		return FileMeta{}, err
	}

	for _, b := range graph.Blocks() {
		for _, c := range b.Vars {
			buf, ok := dst[c.ID]
			if !ok {
				return FileMeta{}, fmt.Errorf("ckptfile: no destination buffer for var %d", c.ID)
			}
			if c.Dptr+c.ChunkSize > int64(len(buf)) {
				return FileMeta{}, fmt.Errorf("ckptfile: var %d destination too small: need %d, have %d", c.ID, c.Dptr+c.ChunkSize, len(buf))
			}
			payload := m.data[c.Fptr : c.Fptr+c.ChunkSize]
			if digest.Sum(payload) != c.Hash {
				return FileMeta{}, fmt.Errorf("%w: var %d chunk at fptr %d", ErrDataCorrupt, c.ID, c.Fptr)
			}
			copy(buf[c.Dptr:c.Dptr+c.ChunkSize], payload)
		}
	}

	return meta, nil
}

// RecoverVar restores a single variable's bytes from path into dst,
// skipping every chunk belonging to other variables (spec section 4.5's
// single-variable recovery path used for partial/L2 recovery). expected
// carries the caller's registered size for that one variable; it is
// checked against the checkpoint's recorded size before any byte is
// copied (spec section 4.5 step 1), returning ErrMetadataMismatch on
// disagreement.
func RecoverVar(path string, expected dataset.Var, dst []byte) (FileMeta, error) {
	m, err := openMmap(path)
	if err != nil {
		return FileMeta{}, err
	}
	defer m.close()

	meta, graph, err := readGraph(m.data)
	if err != nil {
		return FileMeta{}, err
	}
	sizes := SizeTable(graph)
	size, ok := sizes[expected.ID]
	if !ok {
		return FileMeta{}, fmt.Errorf("ckptfile: var %d not present in %s", expected.ID, path)
	}
	if size != expected.Size {
		return FileMeta{}, fmt.Errorf("%w: variable %d registered size %d, checkpoint records %d", ErrMetadataMismatch, expected.ID, expected.Size, size)
	}

	for _, b := range graph.Blocks() {
		for _, c := range b.Vars {
			if c.ID != expected.ID {
				continue
			}
			if c.Dptr+c.ChunkSize > int64(len(dst)) {
				return FileMeta{}, fmt.Errorf("ckptfile: var %d destination too small: need %d, have %d", expected.ID, c.Dptr+c.ChunkSize, len(dst))
			}
			payload := m.data[c.Fptr : c.Fptr+c.ChunkSize]
			if digest.Sum(payload) != c.Hash {
				return FileMeta{}, fmt.Errorf("%w: var %d chunk at fptr %d", ErrDataCorrupt, expected.ID, c.Fptr)
			}
			copy(dst[c.Dptr:c.Dptr+c.ChunkSize], payload)
		}
	}

	return meta, nil
}

// Inspect maps path and returns its header and block chain without
// copying any chunk payload into a variable buffer — used by the
// ckptctl inspection tool rather than by the recovery path.
func Inspect(path string) (FileMeta, []*DataBlock, error) {
	m, err := openMmap(path)
	if err != nil {
		return FileMeta{}, nil, err
	}
	defer m.close()

	meta, graph, err := readGraph(m.data)
	if err != nil {
		return FileMeta{}, nil, err
	}
	return meta, graph.Blocks(), nil
}

// Verify re-hashes a primary/partner-copy file's body (FileMeta at
// offset 0, as opposed to a parity file's trailing header, spec section
// 6) and reports whether it still matches the stored checksum, without
// touching any variable buffer — used by the ckptctl inspection tool.
// The level scanners do their own re-hash and do not call Verify.
func Verify(path string) (FileMeta, bool, error) {
	m, err := openMmap(path)
	if err != nil {
		return FileMeta{}, false, err
	}
	defer m.close()

	if len(m.data) < MetaBytes {
		return FileMeta{}, false, fmt.Errorf("ckptfile: file too small for header: %d bytes", len(m.data))
	}
	meta, err := Decode(m.data[0:MetaBytes])
	if err != nil {
		return FileMeta{}, false, err
	}
	if err := Validate(meta); err != nil {
		return meta, false, err
	}
	if meta.Fs < MetaBytes || meta.Fs > int64(len(m.data)) {
		return meta, false, fmt.Errorf("ckptfile: fs %d out of range for file of length %d", meta.Fs, len(m.data))
	}

	sum := digest.Sum(m.data[MetaBytes:meta.Fs])
	return meta, digest.HexString(sum) == meta.Checksum, nil
}

// RecoverTable is a convenience wrapper allocating destination buffers
// from a size table before calling Recover, returning a dataset.Table
// ready for re-registration by the caller. It has no a priori
// registration to compare against, so it passes a nil expected table
// to Recover, skipping the metadata-mismatch check.
func RecoverTable(path string) (FileMeta, dataset.Table, error) {
	m, err := openMmap(path)
	if err != nil {
		return FileMeta{}, nil, err
	}
	meta, graph, err := readGraph(m.data)
	if err != nil {
		m.close()
		return FileMeta{}, nil, err
	}
	sizes := SizeTable(graph)
	dst := make(map[int][]byte, len(sizes))
	order := make([]int, 0, len(sizes))
	for id, size := range sizes {
		dst[id] = make([]byte, size)
		order = append(order, id)
	}
	m.close()

	if _, err := Recover(path, nil, dst); err != nil {
		return FileMeta{}, nil, err
	}

	table := make(dataset.Table, 0, len(order))
	for _, id := range order {
		table = append(table, dataset.Var{ID: id, Size: int64(len(dst[id])), Ptr: dst[id]})
	}
	return meta, table, nil
}
