package trdb

import (
	"strings"
	"testing"
)

func TestReadStimulusParsesFields(t *testing.T) {
	line := "valid=1 exception=0 interrupt=0 cause=0 tval=0 priv=3 compressed=1 addr=1000 instr=9082\n"
	out, err := ReadStimulus(strings.NewReader(line))
	if err != nil {
		t.Fatalf("ReadStimulus: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("got %d instructions, want 1", len(out))
	}
	in := out[0]
	if !in.Valid || in.Exception || in.Interrupt || in.Cause != 0 || in.Tval != 0 ||
		in.Priv != 3 || !in.Compressed || in.Iaddr != 0x1000 || in.Instr != 0x9082 {
		t.Fatalf("parsed instruction mismatch: %+v", in)
	}
}

func TestReadStimulusSkipsBlankLines(t *testing.T) {
	text := "\nvalid=1 exception=0 interrupt=0 cause=0 tval=0 priv=0 compressed=0 addr=0 instr=13\n\n"
	out, err := ReadStimulus(strings.NewReader(text))
	if err != nil {
		t.Fatalf("ReadStimulus: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("got %d instructions, want 1", len(out))
	}
}

func TestReadStimulusRejectsMissingField(t *testing.T) {
	text := "valid=1 exception=0 interrupt=0 cause=0 tval=0 priv=0 compressed=0 addr=0\n"
	if _, err := ReadStimulus(strings.NewReader(text)); err == nil {
		t.Fatalf("expected error for missing instr field")
	}
}

func TestReadStimulusRejectsMalformedToken(t *testing.T) {
	text := "valid1 exception=0 interrupt=0 cause=0 tval=0 priv=0 compressed=0 addr=0 instr=0\n"
	if _, err := ReadStimulus(strings.NewReader(text)); err == nil {
		t.Fatalf("expected error for malformed token")
	}
}
