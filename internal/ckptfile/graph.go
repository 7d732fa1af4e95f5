package ckptfile

import (
	"errors"

	"multickpt/internal/dataset"
)

// ErrNoProtectedVariables is returned by Graph.Update when the registered
// variable table is empty (spec section 7).
var ErrNoProtectedVariables = errors.New("ckptfile: no protected variables, discarding checkpoint")

// VarChunk describes one sub-range of one variable's bytes, persisted as
// one record in one DataBlock (spec section 3).
type VarChunk struct {
	ID        int
	Idx       int
	Dptr      int64
	Fptr      int64
	ChunkSize int64
	Hash      [hashBytes]byte
}

// DataBlock is one node of the metadata graph: the chunks written
// together at one checkpoint, plus the doubly-linked chain (spec section
// 3, design notes). Next is the owning forward edge; Prev is a
// non-owning back-reference used only for bounded backward walks.
type DataBlock struct {
	NumVars int32
	DBSize  int64
	Vars    []VarChunk

	Next *DataBlock
	Prev *DataBlock
}

// dbSize computes I1's invariant: prefix + per-variable records + chunk
// payload bytes.
func dbSize(vars []VarChunk) int64 {
	total := int64(blockPrefixBytes) + int64(len(vars))*VarChunkBytes
	for _, v := range vars {
		total += v.ChunkSize
	}
	return total
}

// Graph is the in-memory doubly-linked list of data blocks (spec section
// 3). The zero value is an empty graph ready for its first Update.
type Graph struct {
	head, tail *DataBlock
	// lastCount is n as of the previous successful Update call; a
	// variable at position i >= lastCount is "new" on this call (spec
	// section 4.2 step 2).
	lastCount int
}

// Head returns the first block, or nil for an empty graph.
func (g *Graph) Head() *DataBlock { return g.head }

// Blocks returns every block in insertion order.
func (g *Graph) Blocks() []*DataBlock {
	var out []*DataBlock
	for b := g.head; b != nil; b = b.Next {
		out = append(out, b)
	}
	return out
}

// TotalDBSize sums every block's DBSize (spec I3's Σ block.dbsize term).
func (g *Graph) TotalDBSize() int64 {
	var total int64
	for b := g.head; b != nil; b = b.Next {
		total += b.DBSize
	}
	return total
}

// AppendRaw chains a fully-formed block onto the tail without running the
// classification in Update. Used by the reader to reconstruct a graph
// read back from a file, where every block's contents are already fixed.
func (g *Graph) AppendRaw(b *DataBlock) {
	b.Prev = g.tail
	b.Next = nil
	if g.tail != nil {
		g.tail.Next = b
	} else {
		g.head = b
	}
	g.tail = b
}

// Update advances the graph by one checkpoint (spec section 4.2). On the
// first call it builds a single block holding every registered variable.
// On later calls it appends at most one new block holding newly
// registered variables and "growth" chunks for variables whose size
// increased; if nothing is new or grown, no block is appended (P4).
func (g *Graph) Update(table dataset.Table) error {
	n := len(table)
	if n == 0 {
		return ErrNoProtectedVariables
	}

	if g.head == nil {
		vars := make([]VarChunk, n)
		offset := int64(MetaBytes) + blockPrefixBytes + int64(n)*VarChunkBytes
		for i, v := range table {
			vars[i] = VarChunk{ID: v.ID, Idx: i, Dptr: 0, Fptr: offset, ChunkSize: v.Size}
			offset += v.Size
		}
		block := &DataBlock{NumVars: int32(n), Vars: vars}
		block.DBSize = dbSize(vars)
		g.head, g.tail = block, block
		g.lastCount = n
		return nil
	}

	oldSizes := make(map[int]int64, n)
	offset := int64(MetaBytes)
	for b := g.head; b != nil; b = b.Next {
		for _, vc := range b.Vars {
			oldSizes[vc.ID] += vc.ChunkSize
		}
		offset += b.DBSize
	}

	type pending struct {
		idx int
		v   dataset.Var
		old int64
	}
	var changed []pending
	for i, v := range table {
		if i >= g.lastCount {
			changed = append(changed, pending{idx: i, v: v, old: 0})
			continue
		}
		old := oldSizes[v.ID]
		if v.Size > old {
			changed = append(changed, pending{idx: i, v: v, old: old})
		}
	}
	g.lastCount = n

	if len(changed) == 0 {
		return nil
	}

	vars := make([]VarChunk, len(changed))
	payloadBase := offset + blockPrefixBytes + int64(len(changed))*VarChunkBytes
	running := int64(0)
	for i, p := range changed {
		size := p.v.Size - p.old
		vars[i] = VarChunk{ID: p.v.ID, Idx: p.idx, Dptr: p.old, Fptr: payloadBase + running, ChunkSize: size}
		running += size
	}
	block := &DataBlock{NumVars: int32(len(vars)), Vars: vars}
	block.DBSize = dbSize(vars)
	g.AppendRaw(block)
	return nil
}
