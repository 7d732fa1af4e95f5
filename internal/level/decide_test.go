package level

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"multickpt/internal/ckptconfig"
	"multickpt/internal/ckptfile"
	"multickpt/internal/erasure"
	"multickpt/internal/topology"
)

func runScan(t *testing.T, groups []topology.Group, scan func(ctx context.Context, g topology.Group) (Verdict, error)) []Verdict {
	t.Helper()
	verdicts := make([]Verdict, len(groups))
	var mu sync.Mutex
	err := topology.RunGroup(context.Background(), groups, func(ctx context.Context, g topology.Group) error {
		v, err := scan(ctx, g)
		if err != nil {
			return err
		}
		mu.Lock()
		verdicts[g.Rank()] = v
		mu.Unlock()
		return nil
	})
	if err != nil {
		t.Fatalf("RunGroup: %v", err)
	}
	return verdicts
}

func TestScanL1AllRanksHealthy(t *testing.T) {
	dir := t.TempDir()
	for r := 0; r < 3; r++ {
		writePrimary(t, dir, 1, r)
	}
	groups := topology.NewLocalWorld(3)
	verdicts := runScan(t, groups, func(ctx context.Context, g topology.Group) (Verdict, error) {
		return ScanL1(ctx, dir, g, ckptconfig.Config{})
	})
	for r, v := range verdicts {
		if !v.Recoverable {
			t.Fatalf("rank %d: Verdict.Recoverable = false, reasons=%v", r, v.Reasons)
		}
		if v.CkptID != 1 {
			t.Fatalf("rank %d: CkptID = %d, want 1", r, v.CkptID)
		}
	}
}

func TestScanL1MissingRankFailsQuorum(t *testing.T) {
	dir := t.TempDir()
	writePrimary(t, dir, 1, 0)
	writePrimary(t, dir, 1, 2)
	// rank 1's primary is absent.

	groups := topology.NewLocalWorld(3)
	verdicts := runScan(t, groups, func(ctx context.Context, g topology.Group) (Verdict, error) {
		return ScanL1(ctx, dir, g, ckptconfig.Config{})
	})
	for r, v := range verdicts {
		if v.Recoverable {
			t.Fatalf("rank %d: Verdict.Recoverable = true, want false (rank 1 missing)", r)
		}
		if _, ok := v.Reasons[1]; !ok {
			t.Fatalf("rank %d: Reasons missing entry for rank 1: %v", r, v.Reasons)
		}
	}
}

func TestScanL2RecoversViaPartnerCopyWhenPrimaryMissing(t *testing.T) {
	dir := t.TempDir()
	size := 3
	for r := 0; r < size; r++ {
		if r != 1 {
			writePrimary(t, dir, 1, r)
		}
		// Every rank also stores a partner copy of its left neighbor's data.
		left := ringLeft(r, size)
		writePartnerCopy(t, dir, 1, left)
	}

	groups := topology.NewLocalWorld(size)
	verdicts := runScan(t, groups, func(ctx context.Context, g topology.Group) (Verdict, error) {
		return ScanL2(ctx, dir, g, ckptconfig.Config{})
	})
	for r, v := range verdicts {
		if !v.Recoverable {
			t.Fatalf("rank %d: Verdict.Recoverable = false, reasons=%v, want true (rank 1 covered by partner copy)", r, v.Reasons)
		}
	}
}

func TestScanL2FailsWhenBothPrimaryAndPartnerCopyMissing(t *testing.T) {
	dir := t.TempDir()
	size := 3
	writePrimary(t, dir, 1, 0)
	writePrimary(t, dir, 1, 2)
	// No partner copy anywhere covers rank 1's data.

	groups := topology.NewLocalWorld(size)
	verdicts := runScan(t, groups, func(ctx context.Context, g topology.Group) (Verdict, error) {
		return ScanL2(ctx, dir, g, ckptconfig.Config{})
	})
	for r, v := range verdicts {
		if v.Recoverable {
			t.Fatalf("rank %d: Verdict.Recoverable = true, want false", r)
		}
	}
}

func TestScanL3RecoversWithinParityTolerance(t *testing.T) {
	dir := t.TempDir()
	size := 3
	codec, err := erasure.NewReedSolomon(size, 1)
	if err != nil {
		t.Fatalf("NewReedSolomon: %v", err)
	}
	writePrimary(t, dir, 1, 0)
	// rank 1's primary is missing (one erasure, within the single parity shard's tolerance).
	writePrimary(t, dir, 1, 2)
	for r := 0; r < size; r++ {
		writeParity(t, dir, 1, r)
	}

	groups := topology.NewLocalWorld(size)
	verdicts := runScan(t, groups, func(ctx context.Context, g topology.Group) (Verdict, error) {
		return ScanL3(ctx, dir, g, codec, 0, ckptconfig.Config{})
	})
	for r, v := range verdicts {
		if !v.Recoverable {
			t.Fatalf("rank %d: Verdict.Recoverable = false, reasons=%v", r, v.Reasons)
		}
	}
}

func TestScanL3FailsWhenErasuresExceedParityShards(t *testing.T) {
	dir := t.TempDir()
	size := 3
	codec, err := erasure.NewReedSolomon(size, 1)
	if err != nil {
		t.Fatalf("NewReedSolomon: %v", err)
	}
	writePrimary(t, dir, 1, 0)
	// ranks 1 and 2 both missing their primary: 2 erasures > 1 parity shard.
	writeParity(t, dir, 1, 0)

	groups := topology.NewLocalWorld(size)
	verdicts := runScan(t, groups, func(ctx context.Context, g topology.Group) (Verdict, error) {
		return ScanL3(ctx, dir, g, codec, 0, ckptconfig.Config{})
	})
	for r, v := range verdicts {
		if v.Recoverable {
			t.Fatalf("rank %d: Verdict.Recoverable = true, want false", r)
		}
	}
}

func writePartnerCopy(t *testing.T, dir string, ckptID, target int) {
	t.Helper()
	path := filepath.Join(dir, FileName(ckptID, target, KindPartnerCopy))
	copyFile(t, writePrimaryScratch(t, ckptID, target), path)
}

func writeParity(t *testing.T, dir string, ckptID, target int) {
	t.Helper()
	codec, err := erasure.NewReedSolomon(1, 1)
	if err != nil {
		t.Fatalf("NewReedSolomon: %v", err)
	}
	path := filepath.Join(dir, FileName(ckptID, target, KindParity))
	shard := []byte("parity shard payload, any fixed width bytes")
	if _, err := ckptfile.WriteParity(path, codec, [][]byte{shard}, 0, fixedNow); err != nil {
		t.Fatalf("WriteParity: %v", err)
	}
}

// writePrimaryScratch writes a primary file into a scratch directory and
// returns its path, used as a stand-in source for partner-copy/parity
// fixtures that don't need to share byte-for-byte content with a real
// primary, only to validate as their own kind.
func writePrimaryScratch(t *testing.T, ckptID, target int) string {
	t.Helper()
	dir := t.TempDir()
	return writePrimary(t, dir, ckptID, target)
}

func copyFile(t *testing.T, src, dst string) {
	t.Helper()
	data, err := os.ReadFile(src)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}
