package trdb

// branchBits is a packet's branch_map reduced to a bit cursor; a
// Branches field of 0 means "31 entries, full" per branchMapLen.
type branchBits struct {
	bits uint32
	n    int
	pos  int
}

func newBranchBits(p *Packet) *branchBits {
	n := int(p.Branches)
	if p.Branches == 0 {
		n = 31
	}
	return &branchBits{bits: p.BranchMap, n: n}
}

func (bb *branchBits) exhausted() bool { return bb.pos >= bb.n }

// next reports whether the branch at the cursor was taken (bit 0) and
// advances the cursor.
func (bb *branchBits) next() bool {
	taken := (bb.bits>>uint(bb.pos))&1 == 0
	bb.pos++
	return taken
}

// Decompressor replays packets produced by a Compressor back into the
// original retired-instruction sequence, driving a binary walker over
// the program image (spec.md §4.6).
type Decompressor struct {
	cfg Config
	dis Disassembler
	w   *walker
	ras RAS

	pc             uint64
	privilege      uint8
	lastPacketAddr uint64

	// afterException is set once a SYNC/EXCEPTION packet has been
	// processed and cleared by the very next packet, which is
	// special-cased per the PULP vector-table hack.
	afterException bool

	stats *Stats
}

// NewDecompressor returns a decompressor ready to process packets in
// the order the compressor emitted them.
func NewDecompressor(cfg Config, dis Disassembler, loader SectionLoader, stats *Stats) *Decompressor {
	return &Decompressor{cfg: cfg, dis: dis, w: newWalker(loader), stats: stats}
}

// Process consumes one packet and returns the instructions it
// resolves, in program order.
func (d *Decompressor) Process(p *Packet) ([]Instruction, error) {
	if p.MsgType != MsgTrace {
		return nil, nil
	}
	switch p.Format {
	case FormatSync:
		return d.processSync(p)
	case FormatAddrOnly:
		return d.processAddrOnly(p)
	case FormatBranchFull, FormatBranchDiff:
		return d.processBranch(p)
	}
	return nil, newErrorf(BadPacket, "unexpected format %d", p.Format)
}

func (d *Decompressor) processSync(p *Packet) ([]Instruction, error) {
	d.pc = p.Address
	d.privilege = p.Privilege
	d.lastPacketAddr = p.Address
	d.afterException = p.Sub == SyncException && d.cfg.PulpVectorTablePacket

	out, _, err := d.walk(nil, 0, false)
	return out, err
}

func (d *Decompressor) processAddrOnly(p *Packet) ([]Instruction, error) {
	target := d.resolveAddress(p)

	if d.afterException {
		d.afterException = false
		d.pc = target
		d.lastPacketAddr = target
		out, _, err := d.walk(nil, 0, false)
		return out, err
	}

	out, _, err := d.walk(nil, target, true)
	d.lastPacketAddr = target
	return out, err
}

func (d *Decompressor) processBranch(p *Packet) ([]Instruction, error) {
	bb := newBranchBits(p)
	hasTarget := p.HasAddr
	var target uint64
	if hasTarget {
		target = d.resolveAddress(p)
	}

	if d.afterException {
		d.afterException = false
		if !hasTarget {
			return nil, newError(BadPacket, "packet after SYNC/EXCEPTION carries no vector-table address", nil)
		}
		d.pc = target
		d.lastPacketAddr = target
		out, _, err := d.walk(bb, 0, false)
		return out, err
	}

	out, _, err := d.walk(bb, target, hasTarget)
	if hasTarget {
		d.lastPacketAddr = target
	}
	return out, err
}

// resolveAddress turns a packet's wire address field into an absolute
// target, inverting whichever of the two encodings packet.go chose.
func (d *Decompressor) resolveAddress(p *Packet) uint64 {
	full := p.Format == FormatBranchFull || (p.Format == FormatAddrOnly && d.cfg.FullAddress)
	if full {
		return p.Address
	}
	return (d.lastPacketAddr - p.Address) & mask64(d.cfg.XLen)
}

// walk steps the program counter forward, consuming branch_map bits
// from bb (nil if none is loaded) and applying target when an
// unpredictable discontinuity is reached (if hasTarget). It returns
// once the packet's data is exhausted and, when hasTarget, either the
// target was applied or pc has reached it; it also returns early
// (pending=true) if it reaches an instruction it cannot resolve with
// the data on hand — the caller's next Process call supplies the rest.
func (d *Decompressor) walk(bb *branchBits, target uint64, hasTarget bool) (out []Instruction, pending bool, err error) {
	targetApplied := false
	for {
		word, length, compressed, ferr := d.w.fetch(d.pc, d.dis)
		if ferr != nil {
			return out, false, ferr
		}
		class := d.dis.Classify(word, compressed)

		indirectCall := false
		if class == InstrCall {
			if _, ok := d.dis.Target(d.pc, word, compressed); !ok {
				indirectCall = true
			}
		}
		needsBranch := class == InstrBranchCond
		needsTarget := indirectCall || class == InstrUnpredJump || class == InstrExceptionReturn ||
			class == InstrCoRet || (class == InstrRet && !d.cfg.ImplicitRet)

		if needsBranch && (bb == nil || bb.exhausted()) {
			return out, true, nil
		}
		if needsTarget && !hasTarget {
			return out, true, nil
		}

		out = append(out, Instruction{
			Valid: true, Iaddr: d.pc, Instr: uint64(word), Compressed: compressed, Priv: d.privilege,
		})
		if d.stats != nil {
			d.stats.ObserveInstructions(1)
		}

		if class == InstrCall {
			d.ras.Push(d.pc + uint64(length))
		}

		var next uint64
		switch {
		case needsBranch:
			if bb.next() {
				next, _ = d.dis.Target(d.pc, word, compressed)
			} else {
				next = d.pc + uint64(length)
			}
		case class == InstrRet && d.cfg.ImplicitRet:
			addr, ok := d.ras.Pop()
			if !ok {
				return out, false, newError(BadRas, "return with empty return-address stack", nil)
			}
			next = addr
		case needsTarget:
			next = target
			targetApplied = true
		default:
			if tgt, ok := d.dis.Target(d.pc, word, compressed); ok {
				next = tgt
			} else {
				next = d.pc + uint64(length)
			}
		}
		d.pc = next

		mapDone := bb == nil || bb.exhausted()
		if bb != nil && mapDone && !hasTarget {
			return out, false, nil
		}
		if hasTarget && mapDone && (targetApplied || d.pc == target) {
			return out, false, nil
		}
	}
}
