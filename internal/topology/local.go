package topology

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// localWorld is the shared barrier/exchange state behind a set of
// LocalGroup handles that simulate a process group within one Go process.
type localWorld struct {
	size int

	mu      sync.Mutex
	cond    *sync.Cond
	gen     int     // barrier generation, bumped each time a round completes
	arrived int     // arrivals in the current round
	slots   []int64 // one value per rank for the in-flight collective
	result  []int64 // copy of slots taken when the last rank of a round arrives
	op      ReduceOp
	isGather bool
}

// LocalGroup is a single rank's handle into a localWorld.
type LocalGroup struct {
	world *localWorld
	rank  int
}

// NewLocalWorld returns size Group handles, one per simulated rank,
// wired to a shared in-process barrier. Ranks are arranged in a ring for
// Left/Right partnering, matching the "left/right partner arithmetic" the
// real topology layer would compute (spec section 1 scopes the actual
// arithmetic out; this is the test/debug stand-in, spec section 6).
func NewLocalWorld(size int) []Group {
	if size <= 0 {
		panic("topology: size must be positive")
	}
	w := &localWorld{size: size, slots: make([]int64, size)}
	w.cond = sync.NewCond(&w.mu)

	groups := make([]Group, size)
	for r := 0; r < size; r++ {
		groups[r] = &LocalGroup{world: w, rank: r}
	}
	return groups
}

func (g *LocalGroup) Rank() int { return g.rank }
func (g *LocalGroup) Size() int { return g.world.size }

func (g *LocalGroup) Left() int {
	return (g.rank - 1 + g.world.size) % g.world.size
}

func (g *LocalGroup) Right() int {
	return (g.rank + 1) % g.world.size
}

// barrier performs one generic round: every rank deposits its value into
// the shared slot array, waits for all ranks to arrive, then reads the
// full (for gather) or reduced (for reduce) result.
func (g *LocalGroup) barrier(value int64, isGather bool, op ReduceOp) ([]int64, error) {
	w := g.world
	w.mu.Lock()
	myGen := w.gen
	w.slots[g.rank] = value
	w.isGather = isGather
	w.op = op
	w.arrived++
	if w.arrived == w.size {
		w.result = make([]int64, w.size)
		copy(w.result, w.slots)
		w.gen++
		w.arrived = 0
		w.cond.Broadcast()
	} else {
		for w.gen == myGen {
			w.cond.Wait()
		}
	}
	out := make([]int64, w.size)
	copy(out, w.result)
	w.mu.Unlock()
	return out, nil
}

func (g *LocalGroup) AllGather(ctx context.Context, value int64) ([]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return g.barrier(value, true, ReduceSum)
}

func (g *LocalGroup) AllReduce(ctx context.Context, value int64, op ReduceOp) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	vals, err := g.barrier(value, false, op)
	if err != nil {
		return 0, err
	}
	acc := vals[0]
	for _, v := range vals[1:] {
		acc = apply(op, acc, v)
	}
	return acc, nil
}

func (g *LocalGroup) TranslateRanks(dst Group, ranks []int) ([]int, error) {
	other, ok := dst.(*LocalGroup)
	if !ok || other.world != g.world {
		return nil, fmt.Errorf("topology: TranslateRanks requires a group sharing the same world")
	}
	// Both groups share one flat rank space in the local simulator, so
	// translation is the identity; a real topology layer maps between a
	// sub-group's numbering and the world communicator's.
	out := make([]int, len(ranks))
	copy(out, ranks)
	return out, nil
}

// RunGroup runs fn once per rank in groups concurrently and waits for all
// of them, returning the first error encountered (if any). This is the
// concurrency primitive the tests use to drive every rank's side of a
// collective at once.
func RunGroup(ctx context.Context, groups []Group, fn func(ctx context.Context, g Group) error) error {
	eg, ctx := errgroup.WithContext(ctx)
	for _, g := range groups {
		g := g
		eg.Go(func() error {
			return fn(ctx, g)
		})
	}
	return eg.Wait()
}
