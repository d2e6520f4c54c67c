package isa

// Decoder is the library's built-in Disassembler: a stateless wrapper
// over the package-level Classify/Target/InstrLen functions, so the
// tool runs end-to-end without an external toolchain.
type Decoder struct{}

func (Decoder) Classify(word uint32, compressed bool) Class { return Classify(word, compressed) }

func (Decoder) Target(pc uint64, word uint32, compressed bool) (uint64, bool) {
	return Target(pc, word, compressed)
}

func (Decoder) InstrLen(first16 uint16) int { return InstrLen(first16) }
