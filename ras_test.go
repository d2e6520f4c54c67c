package trdb

import "testing"

func TestRASPushPop(t *testing.T) {
	var r RAS
	if _, ok := r.Pop(); ok {
		t.Fatalf("Pop on empty stack should report ok=false")
	}
	r.Push(0x1004)
	r.Push(0x2004)
	if r.Depth() != 2 {
		t.Fatalf("Depth = %d, want 2", r.Depth())
	}
	addr, ok := r.Pop()
	if !ok || addr != 0x2004 {
		t.Fatalf("Pop = %#x, %v, want 0x2004, true", addr, ok)
	}
	addr, ok = r.Pop()
	if !ok || addr != 0x1004 {
		t.Fatalf("Pop = %#x, %v, want 0x1004, true", addr, ok)
	}
	if r.Depth() != 0 {
		t.Fatalf("Depth after draining = %d, want 0", r.Depth())
	}
	if _, ok := r.Pop(); ok {
		t.Fatalf("Pop on drained stack should report ok=false")
	}
}
