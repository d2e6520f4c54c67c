package trdb

import (
	"bytes"
	"strings"
	"testing"
)

func TestCSVRoundTrip(t *testing.T) {
	in := []Instruction{
		{Valid: true, Iaddr: 0x1000, Instr: 0x10ef, Compressed: false, Priv: 3, Exception: false, Cause: 0, Tval: 0, Interrupt: false},
		{Valid: true, Iaddr: 0x2000, Instr: 0x9082, Compressed: true, Priv: 3, Exception: true, Cause: 11, Tval: 0x42, Interrupt: true},
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, in); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	got, err := ReadCSV(&buf)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(got) != len(in) {
		t.Fatalf("got %d rows, want %d", len(got), len(in))
	}
	for i := range in {
		g, w := got[i], in[i]
		if g.Valid != w.Valid || g.Iaddr != w.Iaddr || g.Instr != w.Instr ||
			g.Priv != w.Priv || g.Exception != w.Exception || g.Cause != w.Cause ||
			g.Tval != w.Tval || g.Interrupt != w.Interrupt {
			t.Fatalf("row %d mismatch: got %+v want %+v", i, g, w)
		}
	}
}

func TestReadCSVRejectsBadHeader(t *testing.T) {
	r := strings.NewReader("NOT,THE,RIGHT,HEADER\n")
	if _, err := ReadCSV(r); err == nil {
		t.Fatalf("expected error for malformed header")
	}
}

func TestCSVCompressedDerivedFromLowBits(t *testing.T) {
	r := strings.NewReader("VALID,ADDRESS,INSN,PRIVILEGE,EXCEPTION,ECAUSE,TVAL,INTERRUPT\n1,1000,9082,0,0,0,0,0\n")
	got, err := ReadCSV(r)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(got) != 1 || !got[0].Compressed {
		t.Fatalf("expected row to be classified compressed: %+v", got)
	}
}
