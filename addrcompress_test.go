package trdb

import "testing"

func TestSignExtendableBitsRange(t *testing.T) {
	xlen := 32
	values := []uint64{0, 1, 0xffffffff, 0x80000000, 0x7fffffff, 0xdeadbeef}
	for _, v := range values {
		k := signExtendableBits(v, xlen)
		if k < 1 || uint64(k) > uint64(xlen) {
			t.Fatalf("signExtendableBits(%#x) = %d, want in [1,%d]", v, k, xlen)
		}
	}
}

func TestSignExtendableBitsAllSameSign(t *testing.T) {
	// x == 0 is fully uniform: one bit ("0") sign-extends back to it.
	if k := signExtendableBits(0, 32); k != 1 {
		t.Fatalf("signExtendableBits(0) = %d, want 1", k)
	}
	// Only the sign bit itself is set: no redundancy below it, the
	// full width must be kept to reproduce the value exactly.
	if k := signExtendableBits(0x80000000, 32); k != 32 {
		t.Fatalf("signExtendableBits(0x80000000) = %d, want 32", k)
	}
	// x == 1 needs its low bit plus an explicit zero sign bit above it.
	if k := signExtendableBits(1, 32); k != 2 {
		t.Fatalf("signExtendableBits(1) = %d, want 2", k)
	}
}

// TestSignExtendableBitsRecovers checks the defining property directly:
// keeping k low bits and sign-extending from bit k-1 must reproduce x.
func TestSignExtendableBitsRecovers(t *testing.T) {
	xlen := 32
	values := []uint64{0, 1, 2, 4, 0xfffffffe, 0x80000000, 0x7fffffff, 0xdeadbeef, 0xaadeadbe}
	for _, x := range values {
		x &= mask64(xlen)
		k := signExtendableBits(x, xlen)
		got := sextBits(x, int(k)) & mask64(xlen)
		if got != x {
			t.Fatalf("signExtendableBits(%#x)=%d does not round-trip: got %#x", x, k, got)
		}
	}
}

func TestQuantizeSextSteps(t *testing.T) {
	steps := map[uint32]bool{1: true, 9: true, 17: true, 25: true, 32: true}
	for k := uint32(1); k <= 32; k++ {
		q := quantizeSext(k, 32)
		if !steps[q] {
			t.Fatalf("quantizeSext(%d) = %d, not a byte-boundary step", k, q)
		}
		if q < k {
			t.Fatalf("quantizeSext(%d) = %d < %d", k, q, k)
		}
	}
}

func TestDiffAddressRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FullAddress = false
	cases := []struct{ iaddr, lastIaddr uint64 }{
		{0x1000, 0x1000},
		{0x2004, 0x1000},
		{0x1000, 0x2004},
		{0xdeadbeef, 0xaadeadbe},
	}
	for _, c := range cases {
		val, kept := diffAddress(c.iaddr, c.lastIaddr, cfg)
		if kept < 1 || kept > uint32(cfg.XLen) {
			t.Fatalf("keptBits = %d out of range for iaddr=%#x lastIaddr=%#x", kept, c.iaddr, c.lastIaddr)
		}
		raw := sextBits(val, int(kept))
		got := (c.lastIaddr - raw) & mask64(cfg.XLen)
		want := c.iaddr & mask64(cfg.XLen)
		if got != want {
			t.Fatalf("diffAddress round trip failed: iaddr=%#x lastIaddr=%#x got=%#x want=%#x", c.iaddr, c.lastIaddr, got, want)
		}
	}
}
