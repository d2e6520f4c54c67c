package trdb

// walker fetches instruction words from a SectionLoader, caching the
// most recently loaded section so sequential PC-stepping does not
// re-query the loader every instruction (spec.md §4.7).
type walker struct {
	loader SectionLoader

	base uint64
	data []byte
}

func newWalker(loader SectionLoader) *walker {
	return &walker{loader: loader}
}

func (w *walker) covers(pc uint64) bool {
	return w.data != nil && pc >= w.base && pc < w.base+uint64(len(w.data))
}

func (w *walker) ensure(pc uint64) error {
	if w.covers(pc) {
		return nil
	}
	base, data, err := w.loader.LoadSection(pc)
	if err != nil {
		return newErrorf(BadVma, "no section covers address %#x", pc)
	}
	w.base, w.data = base, data
	return nil
}

// fetch reads the instruction at pc, returning its raw word (zero
// extended for 16-bit compressed forms), its length in bytes (2 or 4),
// and whether it is a compressed (length-2) encoding. 6- and 8-byte
// encodings are reported as Unimplemented errors.
func (w *walker) fetch(pc uint64, dis Disassembler) (word uint32, length int, compressed bool, err error) {
	if err = w.ensure(pc); err != nil {
		return 0, 0, false, err
	}
	off := int(pc - w.base)
	if off+2 > len(w.data) {
		return 0, 0, false, newErrorf(BadVma, "truncated instruction at %#x", pc)
	}
	lo16 := uint16(w.data[off]) | uint16(w.data[off+1])<<8

	length = dis.InstrLen(lo16)
	switch length {
	case 2:
		return uint32(lo16), 2, true, nil
	case 4:
		if off+4 > len(w.data) {
			return 0, 0, false, newErrorf(BadVma, "truncated instruction at %#x", pc)
		}
		word = uint32(w.data[off]) | uint32(w.data[off+1])<<8 |
			uint32(w.data[off+2])<<16 | uint32(w.data[off+3])<<24
		return word, 4, false, nil
	case 0:
		return 0, 0, false, newErrorf(BadInstr, "unsupported instruction encoding at %#x", pc)
	default:
		return 0, 0, false, newErrorf(Unimplemented, "%d-byte instructions at %#x are not supported", length, pc)
	}
}
