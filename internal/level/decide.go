package level

import (
	"context"
	"fmt"

	"multickpt/internal/ckptconfig"
	"multickpt/internal/erasure"
	"multickpt/internal/topology"
)

// ringRight and ringLeft compute a rank's neighbors assuming the ring
// topology topology.LocalGroup builds (spec section 6 only exposes
// *this* rank's own Left()/Right(); deciding L2 coverage for every rank
// needs the whole ring's shape, so level assumes the common symmetric
// ring convention rather than threading a full neighbor table through
// the Group interface).
func ringRight(rank, size int) int { return (rank + 1) % size }
func ringLeft(rank, size int) int  { return (rank - 1 + size) % size }

// pickBest validates every candidate of the given kind and target,
// preferring the highest ckptID among the valid ones; if none validate,
// it returns the most recent attempt's error so callers can report a
// specific reason instead of a bare "missing".
func pickBest(candidates []Candidate, kind FileKind, target int) validated {
	var best validated
	haveBest := false
	for _, c := range candidates {
		if c.Kind != kind || c.Target != target {
			continue
		}
		v := validate(c)
		if v.Err == nil && (!haveBest || v.CkptID > best.CkptID) {
			best, haveBest = v, true
			continue
		}
		if !haveBest {
			best = v
		}
	}
	if !haveBest && best.Path == "" {
		best.Err = errMissingFile
	}
	return best
}

// ScanL1 implements spec section 4.7's L1 decision: every rank needs a
// valid primary file in its own LEVEL_DIR.
func ScanL1(ctx context.Context, dir string, group topology.Group, cfg ckptconfig.Config) (Verdict, error) {
	return scanReplicaLevel(ctx, dir, group, cfg, false)
}

// ScanL4 is ScanL1 against the shared global filesystem directory
// (spec section 4.7: same success criterion, different storage tier).
func ScanL4(ctx context.Context, dir string, group topology.Group, cfg ckptconfig.Config) (Verdict, error) {
	return scanReplicaLevel(ctx, dir, group, cfg, false)
}

// ScanL2 implements spec section 4.7's L2 decision: every rank's data
// is covered if its own primary survives, or its right neighbor's
// partner-copy of it survives.
func ScanL2(ctx context.Context, dir string, group topology.Group, cfg ckptconfig.Config) (Verdict, error) {
	return scanReplicaLevel(ctx, dir, group, cfg, true)
}

func scanReplicaLevel(ctx context.Context, dir string, group topology.Group, cfg ckptconfig.Config, withPartner bool) (Verdict, error) {
	rank, size := group.Rank(), group.Size()

	candidates, err := Discover(dir)
	if err != nil {
		return Verdict{}, err
	}

	primary := pickBest(candidates, KindPrimary, rank)

	var copyV validated
	if withPartner {
		copyV = pickBest(candidates, KindPartnerCopy, ringLeft(rank, size))
	}

	primaryCode := int64(classify(primary.Err))
	copyCode := int64(classify(copyV.Err))
	localCkptID := int64(0)
	if primary.Err == nil {
		localCkptID = int64(primary.CkptID)
	} else if withPartner && copyV.Err == nil {
		localCkptID = int64(copyV.CkptID)
	}

	primaryCodes, err := group.AllGather(ctx, primaryCode)
	if err != nil {
		return Verdict{}, fmt.Errorf("level: all-gather primary status: %w", err)
	}
	var copyCodes []int64
	if withPartner {
		copyCodes, err = group.AllGather(ctx, copyCode)
		if err != nil {
			return Verdict{}, fmt.Errorf("level: all-gather partner-copy status: %w", err)
		}
	}
	ckptIDs, err := group.AllGather(ctx, localCkptID)
	if err != nil {
		return Verdict{}, fmt.Errorf("level: all-gather ckptID: %w", err)
	}

	ckptID, ckptErr := decideCkptID(ckptIDs, cfg.LegacyCkptIDMean)

	reasons := make(map[int]error)
	recoverable := true
	for r := 0; r < size; r++ {
		covered := reasonCode(primaryCodes[r]) == reasonOK
		if !covered && withPartner {
			covered = reasonCode(copyCodes[ringRight(r, size)]) == reasonOK
		}
		if !covered {
			recoverable = false
			if err := reasonCode(primaryCodes[r]).err(); err != nil {
				reasons[r] = err
			} else {
				reasons[r] = errMissingFile
			}
		}
	}
	if ckptErr != nil {
		recoverable = false
	}

	return Verdict{CkptID: ckptID, Recoverable: recoverable, Reasons: reasons}, nil
}

// ScanL3 implements spec section 4.7's L3 decision: erasures (ranks
// whose primary is missing/corrupt) must not exceed the codec's parity
// shard count, and enough parity files must have survived to actually
// reconstruct them.
func ScanL3(ctx context.Context, dir string, group topology.Group, codec erasure.Codec, lastKnownMaxFs int64, cfg ckptconfig.Config) (Verdict, error) {
	rank, size := group.Rank(), group.Size()

	candidates, err := Discover(dir)
	if err != nil {
		return Verdict{}, err
	}

	primary := pickBest(candidates, KindPrimary, rank)
	parity := pickBest(candidates, KindParity, rank)

	primaryCode := int64(classify(primary.Err))
	parityCode := int64(classify(parity.Err))
	localCkptID := int64(0)
	if primary.Err == nil {
		localCkptID = int64(primary.CkptID)
	} else if parity.Err == nil {
		localCkptID = int64(parity.CkptID)
	}
	localParityFs := int64(0)
	if parity.Err == nil {
		localParityFs = parity.Meta.Fs
	}

	primaryCodes, err := group.AllGather(ctx, primaryCode)
	if err != nil {
		return Verdict{}, fmt.Errorf("level: all-gather primary status: %w", err)
	}
	parityCodes, err := group.AllGather(ctx, parityCode)
	if err != nil {
		return Verdict{}, fmt.Errorf("level: all-gather parity status: %w", err)
	}
	ckptIDs, err := group.AllGather(ctx, localCkptID)
	if err != nil {
		return Verdict{}, fmt.Errorf("level: all-gather ckptID: %w", err)
	}
	parityFsValues, err := group.AllGather(ctx, localParityFs)
	if err != nil {
		return Verdict{}, fmt.Errorf("level: all-gather parity fs: %w", err)
	}

	ckptID, ckptErr := decideCkptID(ckptIDs, cfg.LegacyCkptIDMean)

	var erasures, survivedParity int
	reasons := make(map[int]error)
	for r := 0; r < size; r++ {
		if reasonCode(primaryCodes[r]) != reasonOK {
			erasures++
			if err := reasonCode(primaryCodes[r]).err(); err != nil {
				reasons[r] = err
			} else {
				reasons[r] = errMissingFile
			}
		}
		if reasonCode(parityCodes[r]) == reasonOK {
			survivedParity++
		}
	}

	recoverable := erasures <= codec.ParityShards() && survivedParity >= erasures && ckptErr == nil

	maxFs := meanPositive(parityFsValues)
	if maxFs == 0 && recoverable {
		sum, err := group.AllReduce(ctx, lastKnownMaxFs, topology.ReduceSum)
		if err == nil {
			maxFs = sum / int64(size)
		}
	}

	return Verdict{CkptID: ckptID, Recoverable: recoverable, Reasons: reasons, MaxFs: maxFs}, nil
}
