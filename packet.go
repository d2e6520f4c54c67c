package trdb

// Wire field widths, named after the constants in spec.md §6. PULP
// framing reserves 4 bits for the packet's byte length, 2 for the
// outer message type, and (trace packets only) 2 for the format tag.
const (
	pulpPktLen = 4
	msgTypeLen = 2
	formatLen  = 2
	branchLen  = 5
	privLen    = 3
)

func mask64(width int) uint64 {
	if width <= 0 {
		return 0
	}
	if width >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(width)) - 1
}

// fillToByteBoundary extends a minimum kept-bit count so that
// basePos+result lands on a byte boundary, capped at xlen. Padding
// the elastic field out to the boundary (instead of zero-padding
// after it) means the decoder can recover the exact kept width from
// the header's byte count alone, with no approximation.
func fillToByteBoundary(basePos, minKept, xlen int) int {
	total := basePos + minKept
	if rem := total % 8; rem != 0 {
		minKept += 8 - rem
	}
	if minKept > xlen {
		minKept = xlen
	}
	return minKept
}

// writeHeader validates the total encoded length and stamps the
// header nibble (byte length minus one) at bit 0, independent of any
// stream-level alignment the caller may apply afterwards.
func writeHeader(b *bitbuf, totalBits int) (int, error) {
	byteLen := (totalBits + 7) / 8
	if byteLen < 1 {
		byteLen = 1
	}
	if byteLen > 16 {
		return 0, newErrorf(BadPacket, "encoded packet spans %d bytes, max is 16", byteLen)
	}
	b.putBitsAt(0, uint64(byteLen-1), pulpPktLen)
	return byteLen, nil
}

func finalize(b *bitbuf, totalBits int) ([]byte, error) {
	byteLen, err := writeHeader(b, totalBits)
	if err != nil {
		return nil, err
	}
	b.ensure(byteLen * 8)
	out := make([]byte, byteLen)
	copy(out, b.bytes())
	return out, nil
}

// shiftMerge embeds a packet's freshly header-stamped bit vector into
// a stream at bit offset align (0-7), OR-ing in the carry left over
// from the previous packet's trailing partial byte. It returns the
// bytes that are now complete and safe to flush, plus the new
// trailing carry and its width, mirroring trdb_write_packets.
func shiftMerge(b *bitbuf, totalBits, align int, carry byte) (flush []byte, newCarry byte, newAlign int) {
	var out bitbuf
	out.ensure(totalBits + align)
	for i := 0; i < totalBits; i++ {
		out.putBitsAt(align+i, getBits(b.bytes(), i, 1), 1)
	}
	out.putBitsAt(0, uint64(carry), align)

	total := totalBits + align
	good := total / 8
	rest := total % 8
	return append([]byte(nil), out.bytes()[:good]...), byte(getBits(out.bytes(), good*8, rest)), rest
}

// encodePacketBits packs p's fields (header included) into a bit
// vector without rounding it to a byte boundary, so EncodePacket can
// byte-align it directly and EncodePackets can instead carry-chain it
// onto the previous packet's trailing bits.
func encodePacketBits(p *Packet, cfg Config) (*bitbuf, int, error) {
	switch p.MsgType {
	case MsgTrace:
		switch p.Format {
		case FormatBranchFull, FormatBranchDiff:
			return encodeBranchBits(p, cfg)
		case FormatAddrOnly:
			return encodeAddrOnlyBits(p, cfg)
		case FormatSync:
			return encodeSyncBits(p, cfg)
		}
		return nil, 0, newErrorf(BadPacket, "unknown format %d", p.Format)
	case MsgSoftware:
		return encodeSoftwareBits(p, cfg)
	case MsgTimer:
		return encodeTimerBits(p, cfg)
	}
	return nil, 0, newErrorf(BadPacket, "unknown message type %d", p.MsgType)
}

// EncodePacket serializes p into its PULP wire form. The header byte's
// low nibble always carries the total encoded length in bytes minus
// one, bits 4-5 the message type, and (for MsgTrace) bits 6-7 the
// format tag.
func EncodePacket(p *Packet, cfg Config) ([]byte, error) {
	b, bits, err := encodePacketBits(p, cfg)
	if err != nil {
		return nil, err
	}
	return finalize(b, bits)
}

func encodeBranchBits(p *Packet, cfg Config) (*bitbuf, int, error) {
	if p.Format == FormatBranchDiff && cfg.FullAddress {
		return nil, 0, newError(BadConfig, "F_BRANCH_DIFF packet encountered but full_address set", nil)
	}
	if p.HasAddr && p.Branches == 0 {
		return nil, 0, newError(BadPacket, "branch packet has an address but branches=0, which collides with the full-map-no-address sentinel", nil)
	}
	var b bitbuf
	offset := pulpPktLen
	b.putBitsAt(offset, uint64(p.MsgType), msgTypeLen)
	offset += msgTypeLen
	b.putBitsAt(offset, uint64(p.Format), formatLen)
	offset += formatLen
	b.putBitsAt(offset, uint64(p.Branches), branchLen)
	offset += branchLen

	blen := int(branchMapLen(p.Branches))
	b.putBitsAt(offset, uint64(p.BranchMap)&mask64(blen), blen)
	offset += blen

	if p.HasAddr {
		kept := blen // placeholder, overwritten below
		if cfg.FullAddress {
			kept = cfg.XLen
		} else {
			kept = fillToByteBoundary(offset, int(p.AddrBits), cfg.XLen)
		}
		b.putBitsAt(offset, p.Address&mask64(kept), kept)
		offset += kept
	} else if cfg.CompressFullBranchMap {
		basePos := offset - blen
		minKept := int(signExtendableBits(uint64(p.BranchMap), blen))
		kept := fillToByteBoundary(basePos, minKept, blen)
		offset = basePos + kept
	}
	return &b, offset, nil
}

func encodeAddrOnlyBits(p *Packet, cfg Config) (*bitbuf, int, error) {
	var b bitbuf
	offset := pulpPktLen
	b.putBitsAt(offset, uint64(p.MsgType), msgTypeLen)
	offset += msgTypeLen
	b.putBitsAt(offset, uint64(p.Format), formatLen)
	offset += formatLen

	kept := cfg.XLen
	if !cfg.FullAddress {
		kept = fillToByteBoundary(offset, int(p.AddrBits), cfg.XLen)
	}
	b.putBitsAt(offset, p.Address&mask64(kept), kept)
	offset += kept
	return &b, offset, nil
}

func encodeSyncBits(p *Packet, cfg Config) (*bitbuf, int, error) {
	var b bitbuf
	offset := pulpPktLen
	b.putBitsAt(offset, uint64(p.MsgType), msgTypeLen)
	offset += msgTypeLen
	b.putBitsAt(offset, uint64(p.Format), formatLen)
	offset += formatLen
	b.putBitsAt(offset, uint64(p.Sub), formatLen)
	offset += formatLen
	b.putBitsAt(offset, uint64(p.Privilege), privLen)
	offset += privLen

	if p.Sub == SyncContext {
		return nil, 0, newError(Unimplemented, "SF_CONTEXT packets are not supported", nil)
	}

	var branch uint64
	if p.Branch {
		branch = 1
	}
	b.putBitsAt(offset, branch, 1)
	offset++
	b.putBitsAt(offset, p.Address&mask64(cfg.XLen), cfg.XLen)
	offset += cfg.XLen

	if p.Sub == SyncStart {
		return &b, offset, nil
	}

	b.putBitsAt(offset, uint64(p.Ecause)&mask64(cfg.CauseLen), cfg.CauseLen)
	offset += cfg.CauseLen
	var interrupt uint64
	if p.Interrupt {
		interrupt = 1
	}
	b.putBitsAt(offset, interrupt, 1)
	offset++
	b.putBitsAt(offset, p.Tval&mask64(cfg.XLen), cfg.XLen)
	offset += cfg.XLen
	return &b, offset, nil
}

func encodeSoftwareBits(p *Packet, cfg Config) (*bitbuf, int, error) {
	var b bitbuf
	offset := pulpPktLen
	b.putBitsAt(offset, uint64(p.MsgType), msgTypeLen)
	offset += msgTypeLen
	b.putBitsAt(offset, p.Userdata&mask64(cfg.XLen), cfg.XLen)
	offset += cfg.XLen
	return &b, offset, nil
}

func encodeTimerBits(p *Packet, cfg Config) (*bitbuf, int, error) {
	var b bitbuf
	offset := pulpPktLen
	b.putBitsAt(offset, uint64(p.MsgType), msgTypeLen)
	offset += msgTypeLen
	b.putBitsAt(offset, p.Time&mask64(cfg.TimeLen), cfg.TimeLen)
	offset += cfg.TimeLen
	return &b, offset, nil
}

// DecodePacket parses one packet from the front of data and reports
// how many bytes it consumed.
func DecodePacket(data []byte, cfg Config) (*Packet, int, error) {
	p, bits, err := decodePacketAt(data, 0, cfg)
	if err != nil {
		return nil, 0, err
	}
	return p, (bits + 7) / 8, nil
}

// decodePacketAt parses one packet starting at bit offset base within
// data (base need not be byte-aligned, so a carry-chained stream can
// be walked with a bit cursor) and reports how many bits it consumed,
// which is always a multiple of 8 since the header encodes a byte
// count.
func decodePacketAt(data []byte, base int, cfg Config) (*Packet, int, error) {
	if base/8 >= len(data) {
		return nil, 0, newError(BadPacket, "empty packet buffer", nil)
	}
	byteLen := int(getBits(data, base, pulpPktLen)) + 1
	bits := byteLen * 8
	if (base+bits+7)/8 > len(data) {
		return nil, 0, newErrorf(BadPacket, "truncated packet: need %d bytes, have %d", (base+bits+7)/8, len(data))
	}
	totalBits := base + bits
	p := &Packet{}

	offset := base + pulpPktLen
	p.MsgType = MsgType(getBits(data, offset, msgTypeLen))
	offset += msgTypeLen

	switch p.MsgType {
	case MsgTrace:
		p.Format = Format(getBits(data, offset, formatLen))
		offset += formatLen
		switch p.Format {
		case FormatBranchFull, FormatBranchDiff:
			pkt, err := decodeBranchPacket(p, data, offset, totalBits, cfg)
			return pkt, bits, err
		case FormatAddrOnly:
			pkt, err := decodeAddrOnlyPacket(p, data, offset, totalBits, cfg)
			return pkt, bits, err
		case FormatSync:
			pkt, err := decodeSyncPacket(p, data, offset, cfg)
			return pkt, bits, err
		}
		return nil, 0, newErrorf(BadPacket, "unknown format %d", p.Format)
	case MsgSoftware:
		p.Userdata = getBits(data, offset, cfg.XLen)
		return p, bits, nil
	case MsgTimer:
		p.Time = getBits(data, offset, cfg.TimeLen)
		return p, bits, nil
	}
	return nil, 0, newErrorf(BadPacket, "unknown message type %d", p.MsgType)
}

func decodeBranchPacket(p *Packet, data []byte, offset, totalBits int, cfg Config) (*Packet, error) {
	p.Branches = uint32(getBits(data, offset, branchLen))
	offset += branchLen
	blen := int(branchMapLen(p.Branches))
	basePos := offset

	// branches==0 is the only wire-level signal for "full map, no
	// address" (spec.md §4.3); branchMapLen already treats it as a
	// full 31-entry map either way, so this is purely presence-of-
	// address, matching HasAddr on the encode side.
	if p.Branches > 0 {
		p.BranchMap = uint32(getBits(data, offset, blen))
		offset += blen
		kept := totalBits - offset
		if kept > cfg.XLen {
			kept = cfg.XLen
		}
		raw := getBits(data, offset, kept)
		p.HasAddr = true
		p.AddrBits = uint32(kept)
		if cfg.FullAddress {
			p.Address = raw
		} else {
			p.Address = sextBits(raw, kept)
		}
		return p, nil
	}

	kept := totalBits - basePos
	if kept > blen {
		kept = blen
	}
	raw := getBits(data, offset, kept)
	if cfg.CompressFullBranchMap && kept < blen {
		p.BranchMap = uint32(sextBits(raw, kept) & mask64(blen))
	} else {
		p.BranchMap = uint32(raw)
	}
	return p, nil
}

func decodeAddrOnlyPacket(p *Packet, data []byte, offset, totalBits int, cfg Config) (*Packet, error) {
	kept := totalBits - offset
	if kept > cfg.XLen {
		kept = cfg.XLen
	}
	raw := getBits(data, offset, kept)
	p.HasAddr = true
	p.AddrBits = uint32(kept)
	if cfg.FullAddress {
		p.Address = raw
	} else {
		p.Address = sextBits(raw, kept)
	}
	return p, nil
}

func decodeSyncPacket(p *Packet, data []byte, offset int, cfg Config) (*Packet, error) {
	p.Sub = SyncSubformat(getBits(data, offset, formatLen))
	offset += formatLen
	p.Privilege = uint8(getBits(data, offset, privLen))
	offset += privLen

	if p.Sub == SyncContext {
		return nil, newError(Unimplemented, "SF_CONTEXT packets are not supported", nil)
	}

	p.Branch = getBits(data, offset, 1) == 1
	offset++
	p.Address = getBits(data, offset, cfg.XLen)
	p.HasAddr = true
	p.AddrBits = uint32(cfg.XLen)
	offset += cfg.XLen

	if p.Sub == SyncStart {
		return p, nil
	}

	p.Ecause = uint32(getBits(data, offset, cfg.CauseLen))
	offset += cfg.CauseLen
	p.Interrupt = getBits(data, offset, 1) == 1
	offset++
	p.Tval = getBits(data, offset, cfg.XLen)
	return p, nil
}
