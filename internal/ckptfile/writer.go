package ckptfile

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/time/rate"

	"multickpt/internal/ckptconfig"
	"multickpt/internal/dataset"
	"multickpt/internal/diffckpt"
	"multickpt/internal/digest"
	"multickpt/internal/topology"
)

// writeBufferCap is the capped write-buffer size spec section 4.3 names:
// no single write call moves more than 16 MiB.
const writeBufferCap = 16 << 20

// IteratorFactory drives the differential-write iterator contract (spec
// section 4.6) for one variable chunk. baseAddr/length are relative to
// the variable's own buffer (baseAddr = chunk.Dptr, length =
// chunk.ChunkSize); the writer adds the variable's Ptr itself.
type IteratorFactory func(id int, baseAddr, length int64) diffckpt.Iterator

// FullWriteIterators is the IteratorFactory for non-differential mode:
// every chunk is written in full (spec section 4.6's default).
func FullWriteIterators(_ int, _, length int64) diffckpt.Iterator {
	return diffckpt.NewFullChunkIterator(length)
}

// Options configures one Write call.
type Options struct {
	// Path is the canonical on-disk file name
	// (Ckpt<id>-Rank<rank>.fti or one of its L2/L3 siblings).
	Path string

	// Differential routes the write through a temp file and renames it
	// over Path on success (spec section 4.3 step 5, section 6).
	Differential bool
	// TmpPath is the staging path used when Differential is set.
	TmpPath string

	Level ckptconfig.Level
	// Group is required for L2 (partner fs exchange) and L3 (max fs
	// reduce); nil is fine for L1/L4.
	Group topology.Group

	Iterators IteratorFactory // nil defaults to FullWriteIterators

	// RateLimiter, if set, throttles bytes written per second — used for
	// the L4 shared-filesystem path to avoid saturating it (spec
	// section 6 lists L4's isInline knob; this is this engine's
	// supplement for the same concern).
	RateLimiter *rate.Limiter

	Now func() time.Time // defaults to time.Now
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o Options) iterators() IteratorFactory {
	if o.Iterators != nil {
		return o.Iterators
	}
	return FullWriteIterators
}

func (o Options) targetPath() string {
	if o.Differential {
		return o.TmpPath
	}
	return o.Path
}

// Write performs one checkpoint: it advances graph via Update, then
// writes the header-less block/chunk payload, and finally fills and
// writes FileMeta at offset 0 (spec section 4.3, 4.4).
func Write(ctx context.Context, graph *Graph, table dataset.Table, opts Options) (FileMeta, error) {
	if err := graph.Update(table); err != nil {
		return FileMeta{}, err
	}

	path := opts.targetPath()
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return FileMeta{}, fmt.Errorf("ckptfile: open %s: %w", path, err)
	}
	defer f.Close()

	whole := digest.New()
	blockOff := int64(MetaBytes)

	for _, block := range graph.Blocks() {
		if err := writeBlockPrefix(f, blockOff, block); err != nil {
			return FileMeta{}, err
		}

		varsOff := blockOff + blockPrefixBytes
		for i := range block.Vars {
			c := &block.Vars[i]
			v := table[c.Idx]

			if err := writeChunk(f, v, c, opts.iterators(), opts.RateLimiter); err != nil {
				return FileMeta{}, err
			}

			rec := make([]byte, VarChunkBytes)
			encodeVarChunk(rec, *c)
			if _, err := f.WriteAt(rec, varsOff+int64(i)*VarChunkBytes); err != nil {
				return FileMeta{}, fmt.Errorf("ckptfile: write var chunk record: %w", err)
			}
		}

		whole.Update(blockPrefixFor(block))
		for _, c := range block.Vars {
			rec := make([]byte, VarChunkBytes)
			encodeVarChunk(rec, c)
			whole.Update(rec)
		}
		for _, c := range block.Vars {
			v := table[c.Idx]
			whole.Update(v.Ptr[c.Dptr : c.Dptr+c.ChunkSize])
		}

		blockOff += block.DBSize
	}

	fs := blockOff

	meta := FileMeta{
		Timestamp: opts.now().UnixNano(),
		CkptSize:  fs,
		Fs:        fs,
		PtFs:      NoPartner,
		MaxFs:     NoParity,
	}

	switch opts.Level {
	case ckptconfig.L2:
		if opts.Group == nil {
			return FileMeta{}, fmt.Errorf("ckptfile: L2 write requires a Group")
		}
		gathered, err := opts.Group.AllGather(ctx, fs)
		if err != nil {
			return FileMeta{}, fmt.Errorf("ckptfile: L2 fs all-gather: %w", err)
		}
		meta.PtFs = gathered[opts.Group.Right()]
	case ckptconfig.L3:
		if opts.Group == nil {
			return FileMeta{}, fmt.Errorf("ckptfile: L3 write requires a Group")
		}
		maxFs, err := opts.Group.AllReduce(ctx, fs, topology.ReduceMax)
		if err != nil {
			return FileMeta{}, fmt.Errorf("ckptfile: L3 fs all-reduce: %w", err)
		}
		meta.MaxFs = maxFs
	}

	meta.Checksum = digest.HexString(whole.Finalize())

	if _, err := f.WriteAt(Encode(meta), 0); err != nil {
		return FileMeta{}, fmt.Errorf("ckptfile: write file meta: %w", err)
	}
	if err := f.Close(); err != nil {
		return FileMeta{}, fmt.Errorf("ckptfile: close: %w", err)
	}

	if opts.Differential {
		if err := os.Rename(opts.TmpPath, opts.Path); err != nil {
			return FileMeta{}, fmt.Errorf("ckptfile: rename %s -> %s: %w", opts.TmpPath, opts.Path, err)
		}
	}

	return meta, nil
}

func blockPrefixFor(b *DataBlock) []byte {
	buf := make([]byte, blockPrefixBytes)
	putInt32(buf[0:4], b.NumVars)
	putInt64(buf[4:12], b.DBSize)
	return buf
}

func writeBlockPrefix(f *os.File, off int64, b *DataBlock) error {
	if _, err := f.WriteAt(blockPrefixFor(b), off); err != nil {
		return fmt.Errorf("ckptfile: write block prefix: %w", err)
	}
	return nil
}

// writeChunk drives the differential-write iterator for one chunk,
// writing only the sub-ranges it reports dirty while still computing a
// hash over the chunk's full logical content (spec section 4.3, 4.6).
func writeChunk(f *os.File, v dataset.Var, c *VarChunk, iterators IteratorFactory, limiter *rate.Limiter) error {
	cd := digest.New()
	it := iterators(c.ID, c.Dptr, c.ChunkSize)
	cursor := int64(0)

	for {
		r, ok := it.Next()
		if !ok {
			break
		}
		if r.Addr < cursor || r.Addr+r.Len > c.ChunkSize {
			return fmt.Errorf("ckptfile: iterator for var %d yielded out-of-range sub-range %+v", c.ID, r)
		}

		if r.Addr > cursor {
			unchanged := v.Ptr[c.Dptr+cursor : c.Dptr+r.Addr]
			cd.Update(unchanged)
		}

		written := v.Ptr[c.Dptr+r.Addr : c.Dptr+r.Addr+r.Len]
		if err := writeCapped(f, c.Fptr+r.Addr, written, limiter); err != nil {
			return err
		}
		cd.Update(written)
		cursor = r.Addr + r.Len
	}

	if cursor < c.ChunkSize {
		trailing := v.Ptr[c.Dptr+cursor : c.Dptr+c.ChunkSize]
		cd.Update(trailing)
	}

	c.Hash = cd.Finalize()
	return nil
}

// writeCapped writes data to f at off in chunks no larger than
// writeBufferCap, optionally throttled by limiter.
func writeCapped(f *os.File, off int64, data []byte, limiter *rate.Limiter) error {
	for len(data) > 0 {
		n := len(data)
		if n > writeBufferCap {
			n = writeBufferCap
		}
		if limiter != nil {
			if err := limiter.WaitN(context.Background(), n); err != nil {
				return fmt.Errorf("ckptfile: rate limit wait: %w", err)
			}
		}
		if _, err := f.WriteAt(data[:n], off); err != nil {
			return fmt.Errorf("ckptfile: write at %d: %w", off, err)
		}
		data = data[n:]
		off += int64(n)
	}
	return nil
}
