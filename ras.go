package trdb

// RAS is the decompressor's return-address-stack predictor, used in
// implicit-ret mode so the compressor need not emit an address for
// every Ret (spec.md §4.6).
type RAS struct {
	stack []uint64
}

// Push records the address a Call will return to.
func (r *RAS) Push(addr uint64) { r.stack = append(r.stack, addr) }

// Pop returns the most recently pushed address, or ok=false if empty.
func (r *RAS) Pop() (uint64, bool) {
	if len(r.stack) == 0 {
		return 0, false
	}
	n := len(r.stack) - 1
	addr := r.stack[n]
	r.stack = r.stack[:n]
	return addr, true
}

// Depth reports the current stack depth, mostly useful for tests.
func (r *RAS) Depth() int { return len(r.stack) }
