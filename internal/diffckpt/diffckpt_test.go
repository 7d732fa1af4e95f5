package diffckpt

import "testing"

func drain(it Iterator) []Range {
	var out []Range
	for {
		r, ok := it.Next()
		if !ok {
			return out
		}
		out = append(out, r)
	}
}

func TestFullChunkIteratorYieldsWholeRangeOnce(t *testing.T) {
	it := NewFullChunkIterator(4096)
	ranges := drain(it)
	if len(ranges) != 1 {
		t.Fatalf("got %d ranges, want 1", len(ranges))
	}
	if ranges[0] != (Range{Addr: 0, Len: 4096}) {
		t.Fatalf("got %+v, want {0 4096}", ranges[0])
	}
}

func TestFullChunkIteratorEmptyLength(t *testing.T) {
	it := NewFullChunkIterator(0)
	if ranges := drain(it); len(ranges) != 0 {
		t.Fatalf("expected no ranges for zero length, got %+v", ranges)
	}
}

func TestDirtyRangeIteratorReplaysSorted(t *testing.T) {
	it := NewDirtyRangeIterator([]Range{
		{Addr: 100, Len: 10},
		{Addr: 0, Len: 5},
	})
	got := drain(it)
	want := []Range{{Addr: 0, Len: 5}, {Addr: 100, Len: 10}}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestDirtyRangeIteratorMergesOverlaps(t *testing.T) {
	it := NewDirtyRangeIterator([]Range{
		{Addr: 0, Len: 10},
		{Addr: 5, Len: 10},
		{Addr: 20, Len: 5},
		{Addr: 25, Len: 3}, // adjacent to the previous range
	})
	got := drain(it)
	want := []Range{{Addr: 0, Len: 15}, {Addr: 20, Len: 8}}
	if len(got) != len(want) {
		t.Fatalf("got %d ranges %+v, want %d %+v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("range %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestDirtyRangeIteratorEmpty(t *testing.T) {
	it := NewDirtyRangeIterator(nil)
	if ranges := drain(it); len(ranges) != 0 {
		t.Fatalf("expected no ranges, got %+v", ranges)
	}
}
