package trdb

import "testing"

func TestBranchMapLenProperties(t *testing.T) {
	if got := branchMapLen(0); got != 31 {
		t.Fatalf("branchMapLen(0) = %d, want 31", got)
	}
	allowed := map[uint32]bool{1: true, 9: true, 17: true, 25: true, 31: true}
	var last uint32
	for n := uint32(1); n <= 31; n++ {
		got := branchMapLen(n)
		if !allowed[got] {
			t.Fatalf("branchMapLen(%d) = %d, not in {1,9,17,25,31}", n, got)
		}
		if got < last {
			t.Fatalf("branchMapLen(%d) = %d < branchMapLen(%d) = %d, not non-decreasing", n, got, n-1, last)
		}
		last = got
	}
}

func TestBranchMapRecordAndFull(t *testing.T) {
	var bm BranchMap
	for i := 0; i < 30; i++ {
		bm.Record(true)
		if bm.Full {
			t.Fatalf("map reported full after %d entries", i+1)
		}
	}
	bm.Record(false)
	if !bm.Full || bm.Count != 31 {
		t.Fatalf("map should be full at 31 entries, got Full=%v Count=%d", bm.Full, bm.Count)
	}
	if bm.Bits&(1<<30) == 0 {
		t.Fatalf("last (not-taken) branch should have set bit 30")
	}

	bm.Clear()
	if bm.Bits != 0 || bm.Count != 0 || bm.Full {
		t.Fatalf("Clear did not reset state: %+v", bm)
	}
}

func TestBranchMapTakenBitIsInverted(t *testing.T) {
	var bm BranchMap
	bm.Record(true)  // taken -> stored bit 0
	bm.Record(false) // not taken -> stored bit 1
	if bm.Bits != 0x2 {
		t.Fatalf("Bits = %#x, want 0x2 (taken=0, not-taken=1)", bm.Bits)
	}
}
