package trdb

import (
	"encoding/binary"
	"io"
)

// WritePacketFile serializes packets as a bit-chained PULP stream
// (EncodePackets) to w, prefixed with a little-endian uint32 packet
// count. The wire packets themselves carry no end-of-stream marker —
// their bits run together with no byte padding between them — so the
// count is how ReadPacketFile knows where the carry chain ends instead
// of misreading trailing pad bits as one more packet.
func WritePacketFile(w io.Writer, packets []*Packet, cfg Config) error {
	data, err := EncodePackets(packets, cfg)
	if err != nil {
		return err
	}
	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], uint32(len(packets)))
	if _, err := w.Write(hdr[:]); err != nil {
		return newError(FileWrite, "writing packet count", err)
	}
	if _, err := w.Write(data); err != nil {
		return newError(FileWrite, "writing packet stream", err)
	}
	return nil
}

// ReadPacketFile parses a stream written by WritePacketFile in full
// from r.
func ReadPacketFile(r io.Reader, cfg Config) ([]*Packet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, newError(FileRead, "reading packet stream", err)
	}
	if len(data) < 4 {
		return nil, newError(BadPacket, "packet file missing count header", nil)
	}
	count := binary.LittleEndian.Uint32(data[:4])
	return DecodePackets(data[4:], int(count), cfg)
}
