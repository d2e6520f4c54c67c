package trdb

// cstate is one derived, classified retirement snapshot in the
// compressor's three-deep pipeline (spec.md §4.5).
type cstate struct {
	valid           bool
	qualified       bool
	iaddr           uint64
	instrLen        uint64
	class           InstrClass
	unsupported     bool
	unpredDisc      bool
	privilege       uint8
	privilegeChange bool
	exception       bool
	cause           uint32
	interrupt       bool
	tval            uint64
	halt            bool

	// contextChange is never set by derive: nothing in Instruction
	// models a context switch, so this mirrors the original's own
	// dead context_change field (trace_debugger.c) rather than a gap
	// introduced here. Kept so the emit-decision table's final row
	// stays representable.
	contextChange bool
}

// Compressor drives the emit-decision FSM one retired instruction at
// a time. It is not safe for concurrent use; a Context owns exactly
// one.
type Compressor struct {
	cfg Config

	lastc, thisc, nextc cstate
	branchMap           BranchMap

	resyncCnt  uint64
	resyncPend bool

	privilege uint8
	firstCycle bool

	pendingVectorSync bool
	lastIaddr         uint64

	stats *Stats
}

// NewCompressor returns a compressor ready for the first Step call.
// The default reset privilege is 7, matching the original
// implementation's trdb_reset_compression (spec.md §3.1).
func NewCompressor(cfg Config, stats *Stats) *Compressor {
	return &Compressor{
		cfg:        cfg,
		privilege:  7,
		firstCycle: true,
		stats:      stats,
	}
}

func (c *Compressor) derive(in Instruction) cstate {
	var s cstate
	s.valid = in.Valid
	if !s.valid {
		return s
	}
	s.iaddr = in.Iaddr
	s.instrLen = in.Len()
	s.qualified = true
	s.unsupported = IsUnsupported(uint32(in.Instr), in.Compressed)
	s.class = Classify(uint32(in.Instr), in.Compressed)
	if c.cfg.ImplicitRet && s.class == InstrRet {
		s.class = InstrOther
	}
	s.privilege = in.Priv
	// Step has already shifted the previous retirement into thisc;
	// compare against it, or against the last committed privilege when
	// there is no qualified previous retirement.
	prev := c.privilege
	if c.thisc.qualified {
		prev = c.thisc.privilege
	}
	s.privilegeChange = in.Priv != prev
	s.exception = in.Exception
	s.cause = in.Cause
	s.interrupt = in.Interrupt
	s.tval = in.Tval

	if s.class != InstrOther && s.class != InstrBranchCond {
		_, known := Target(s.iaddr, uint32(in.Instr), in.Compressed)
		s.unpredDisc = !known
	}
	return s
}

// Step processes one retired instruction and returns the packet it
// caused to be emitted, if any.
func (c *Compressor) Step(in Instruction) (*Packet, error) {
	c.lastc = c.thisc
	c.thisc = c.nextc
	c.nextc = c.derive(in)

	if !c.thisc.qualified || !in.Valid {
		return nil, nil
	}
	if c.thisc.unsupported {
		return nil, newErrorf(BadInstr, "unsupported instruction at %#x", c.thisc.iaddr)
	}

	c.resyncCnt++
	if c.resyncCnt >= c.cfg.ResyncMax {
		c.resyncPend = true
		c.resyncCnt = 0
	}

	thisTaken := false
	if c.thisc.class == InstrBranchCond {
		thisTaken = c.thisc.iaddr+c.thisc.instrLen != c.nextc.iaddr
		c.branchMap.Record(thisTaken)
	}

	pendingVectorSync := c.pendingVectorSync
	c.pendingVectorSync = false

	firstCycle := c.firstCycle
	c.firstCycle = false

	var pkt *Packet
	var err error
	switch {
	case c.lastc.exception:
		pkt = c.emitSyncException(thisTaken)
		c.pendingVectorSync = true
	case pendingVectorSync && c.cfg.PulpVectorTablePacket:
		pkt = c.emitSyncStart(thisTaken)
	case firstCycle || c.thisc.privilegeChange || (c.resyncPend && c.branchMap.Count == 0):
		pkt = c.emitSyncStart(thisTaken)
		c.resyncPend = false
	case c.lastc.unpredDisc:
		pkt = c.emitBranchFlush(c.thisc.iaddr)
	case c.resyncPend && c.branchMap.Count > 0:
		pkt = c.emitBranchFlush(c.thisc.iaddr)
		c.resyncPend = false
	case c.nextc.halt || c.nextc.exception || c.nextc.privilegeChange || !c.nextc.qualified:
		pkt = c.emitBranchFlush(c.thisc.iaddr)
	case c.branchMap.Full:
		pkt = c.emitFullMapNoAddr()
	case c.thisc.contextChange:
		err = newError(Unimplemented, "SF_CONTEXT packets are not supported", nil)
	default:
		pkt = nil
	}

	c.privilege = c.thisc.privilege
	if pkt != nil {
		c.branchMap.Clear()
		if c.stats != nil {
			c.stats.RecordPacket(pkt, c.cfg)
		}
	}
	return pkt, err
}

// Finish drains the pipeline at end-of-stream, flushing a final
// packet for the last retired instruction if one is owed.
func (c *Compressor) Finish() (*Packet, error) {
	pkt, err := c.Step(Instruction{Valid: true, Iaddr: c.thisc.iaddr, Compressed: true})
	if pkt != nil || err != nil {
		return pkt, err
	}
	// drain the halt marker itself
	haltIn := Instruction{Valid: true, Iaddr: c.nextc.iaddr}
	c.nextc.halt = true
	return c.Step(haltIn)
}

func (c *Compressor) emitSyncException(thisTaken bool) *Packet {
	p := &Packet{
		MsgType:   MsgTrace,
		Format:    FormatSync,
		Sub:       SyncException,
		Privilege: c.thisc.privilege,
		Branch:    c.thisc.class == InstrBranchCond && !thisTaken,
		Address:   c.thisc.iaddr,
		HasAddr:   true,
		AddrBits:  uint32(c.cfg.XLen),
		Ecause:    c.lastc.cause,
		Interrupt: c.lastc.interrupt,
		Tval:      c.lastc.tval,
	}
	c.lastIaddr = c.thisc.iaddr
	return p
}

func (c *Compressor) emitSyncStart(thisTaken bool) *Packet {
	p := &Packet{
		MsgType:   MsgTrace,
		Format:    FormatSync,
		Sub:       SyncStart,
		Privilege: c.thisc.privilege,
		Branch:    c.thisc.class == InstrBranchCond && !thisTaken,
		Address:   c.thisc.iaddr,
		HasAddr:   true,
		AddrBits:  uint32(c.cfg.XLen),
	}
	c.lastIaddr = c.thisc.iaddr
	return p
}

func (c *Compressor) emitBranchFlush(target uint64) *Packet {
	p := &Packet{MsgType: MsgTrace}
	if c.branchMap.Count == 0 {
		p.Format = FormatAddrOnly
	} else {
		// Count is always 1..31 here; branches==0 is reserved for the
		// addressless full-map sentinel emitFullMapNoAddr produces, so
		// a flush that carries an address must never collide with it
		// even when the map happens to be full.
		p.Branches = c.branchMap.Count
		p.BranchMap = c.branchMap.Bits
		if c.cfg.FullAddress {
			p.Format = FormatBranchFull
		} else {
			p.Format = FormatBranchDiff
		}
	}

	p.HasAddr = true
	if c.cfg.FullAddress {
		p.Address = target
		p.AddrBits = uint32(c.cfg.XLen)
	} else {
		val, kept := diffAddress(target, c.lastIaddr, c.cfg)
		p.Address = val
		p.AddrBits = kept
	}
	c.lastIaddr = target
	return p
}

func (c *Compressor) emitFullMapNoAddr() *Packet {
	p := &Packet{
		MsgType:   MsgTrace,
		Format:    FormatBranchFull,
		Branches:  0,
		BranchMap: c.branchMap.Bits,
		HasAddr:   false,
	}
	return p
}
