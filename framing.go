package trdb

// EncodePackets serializes a sequence of packets into one contiguous
// PULP bit stream: each packet's bits begin immediately after the
// previous packet's last bit (spec.md §4.4/§6), stitched together with
// a running 0-7 bit carry the way trdb_write_packets chains
// trdb_pulp_serialize_packet calls. The result is the minimal
// ceil(total_bits/8) bytes; only the final byte may carry padding.
func EncodePackets(packets []*Packet, cfg Config) ([]byte, error) {
	var out []byte
	var carry byte
	align := 0
	for i, p := range packets {
		b, bits, err := encodePacketBits(p, cfg)
		if err != nil {
			return nil, newErrorf(BadPacket, "packet %d: %v", i, err)
		}
		if _, err := writeHeader(b, bits); err != nil {
			return nil, newErrorf(BadPacket, "packet %d: %v", i, err)
		}
		flush, newCarry, newAlign := shiftMerge(b, bits, align, carry)
		out = append(out, flush...)
		carry, align = newCarry, newAlign
	}
	if align > 0 {
		out = append(out, carry)
	}
	return out, nil
}

// DecodePackets parses exactly count packets from a bit-chained stream
// produced by EncodePackets. Unlike a byte-aligned format, a carry-
// chained stream's trailing bits cannot be told apart from a packet
// header by inspection alone, so the caller must supply how many
// packets it wrote (WritePacketFile/ReadPacketFile carry this count in
// the file framing).
func DecodePackets(data []byte, count int, cfg Config) ([]*Packet, error) {
	packets := make([]*Packet, 0, count)
	// A header rounds its packet up to whole bytes, so the last packet
	// of a chained stream may claim up to one byte past the end.
	padded := append(append([]byte(nil), data...), 0)
	bitPos := 0
	for i := 0; i < count; i++ {
		p, _, err := decodePacketAt(padded, bitPos, cfg)
		if err != nil {
			return packets, newErrorf(BadPacket, "packet %d: %v", i, err)
		}
		// The next packet starts right after this one's exact bit
		// length, which follows from its decoded fields.
		_, bits, err := encodePacketBits(p, cfg)
		if err != nil {
			return packets, newErrorf(BadPacket, "packet %d: %v", i, err)
		}
		if bitPos+bits > len(data)*8 {
			return packets, newErrorf(BadPacket, "packet %d: truncated stream", i)
		}
		packets = append(packets, p)
		bitPos += bits
	}
	return packets, nil
}
