package trdb

// Instruction is one retired-instruction record as produced by a trace
// source (or parsed from CSV/stimulus text) and consumed by the
// compressor, one at a time.
type Instruction struct {
	Valid       bool
	Iaddr       uint64
	Instr       uint64
	Compressed  bool
	Priv        uint8 // 3 bits
	Exception   bool
	Interrupt   bool
	Cause       uint32
	Tval        uint64
}

// Len returns the byte length this retirement advances the PC by.
func (in *Instruction) Len() uint64 {
	if in.Compressed {
		return 2
	}
	return 4
}

// MsgType is the outer packet tag (spec.md §3).
type MsgType int

const (
	MsgTrace MsgType = iota
	MsgSoftware
	MsgTimer
)

// Format is the TRACE sub-tag.
type Format int

const (
	FormatBranchFull Format = iota
	FormatBranchDiff
	FormatAddrOnly
	FormatSync
)

// SyncSubformat is the SYNC tertiary tag.
type SyncSubformat int

const (
	SyncStart SyncSubformat = iota
	SyncException
	SyncContext
)

// Packet is a tagged union over MsgType (and, for MsgTrace, Format and
// SyncSubformat). Only the fields meaningful to the active variant are
// populated; the rest are zero.
type Packet struct {
	MsgType MsgType
	Format  Format
	Sub     SyncSubformat

	Branches  uint32 // 5-bit count; 0 means "31, full map, no address"
	BranchMap uint32 // up to 31 bits, bit i=1 means branch i was NOT taken
	Address   uint64 // absolute iaddr or last_iaddr-iaddr, sign-extend-truncatable
	HasAddr   bool   // whether Address is present on the wire for this packet
	AddrBits  uint32 // wire width of Address: XLen if full, else the kept sign-extendable bits

	Privilege uint8
	Branch    bool // SYNC: whether thisc was itself a not-taken branch
	Ecause    uint32
	Interrupt bool
	Tval      uint64

	Userdata uint64 // SOFTWARE
	Time     uint64 // TIMER

	Length uint32 // payload bit length slot; neither the encoder nor the decoder fills it in, so it stays zero
}
