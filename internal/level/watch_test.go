package level

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestWatchInvokesOnChangeForMatchingFile(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls int32
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, dir, nil, func() { atomic.AddInt32(&calls, 1) })
	}()

	// Give the watcher a moment to register before the write lands.
	time.Sleep(50 * time.Millisecond)
	path := filepath.Join(dir, "Ckpt1-Rank0.fti")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for atomic.LoadInt32(&calls) == 0 {
		select {
		case <-deadline:
			t.Fatal("onChange was never invoked for a matching file create")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; err != context.Canceled {
		t.Fatalf("Watch returned %v after cancel, want context.Canceled", err)
	}
}

func TestWatchIgnoresNonMatchingFile(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls int32
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, dir, nil, func() { atomic.AddInt32(&calls, 1) })
	}()

	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	time.Sleep(200 * time.Millisecond)

	cancel()
	<-done
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatalf("onChange fired %d times for a non-matching file", calls)
	}
}
