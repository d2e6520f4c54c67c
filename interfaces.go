package trdb

import "trdb/internal/isa"

// InstrClass is the control-flow category of a retired instruction.
// It is an alias for internal/isa's enum so that the concrete
// isa.Decoder satisfies Disassembler structurally, with no import
// cycle between the two packages.
type InstrClass = isa.Class

const (
	InstrOther           = isa.Other
	InstrBranchCond      = isa.BranchCond
	InstrUnpredJump      = isa.UnpredJump
	InstrExceptionReturn = isa.ExceptionReturn
	InstrRet             = isa.Ret
	InstrCall            = isa.Call
	InstrCoRet           = isa.CoRet
)

// Disassembler classifies one instruction already read from memory,
// as used by the decompressor's binary walker.
type Disassembler interface {
	Classify(word uint32, compressed bool) InstrClass
	Target(pc uint64, word uint32, compressed bool) (target uint64, known bool)
	InstrLen(first16 uint16) int
}

// SectionLoader maps a virtual address to the raw bytes of the
// section containing it.
type SectionLoader interface {
	LoadSection(vma uint64) (base uint64, data []byte, err error)
}

// Classify, IsUnsupported and Target forward to the built-in isa
// package; the compressor only ever runs against the instruction
// words it is given, never needing a pluggable Disassembler.
func Classify(word uint32, compressed bool) InstrClass { return isa.Classify(word, compressed) }

func IsUnsupported(word uint32, compressed bool) bool { return isa.IsUnsupported(word, compressed) }

func Target(pc uint64, word uint32, compressed bool) (uint64, bool) {
	return isa.Target(pc, word, compressed)
}
