package trdb

import "testing"

func TestEncodeDecodePacketsRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	packets := []*Packet{
		{MsgType: MsgTrace, Format: FormatSync, Sub: SyncStart, Privilege: 3, Address: 0x1000},
		{MsgType: MsgTrace, Format: FormatBranchFull, Branches: 2, BranchMap: 0x1, HasAddr: true, Address: 0x2000, AddrBits: uint32(cfg.XLen)},
		{MsgType: MsgTrace, Format: FormatBranchFull, Branches: 0, BranchMap: 0x2a},
		{MsgType: MsgSoftware, Userdata: 7},
		{MsgType: MsgTimer, Time: 99},
	}

	buf, err := EncodePackets(packets, cfg)
	if err != nil {
		t.Fatalf("EncodePackets: %v", err)
	}

	wantBits := 0
	for _, p := range packets {
		_, bits, err := encodePacketBits(p, cfg)
		if err != nil {
			t.Fatalf("encodePacketBits: %v", err)
		}
		wantBits += bits
	}
	wantLen := (wantBits + 7) / 8
	if len(buf) != wantLen {
		t.Fatalf("EncodePackets length = %d, want %d (ceil(%d bits/8))", len(buf), wantLen, wantBits)
	}

	got, err := DecodePackets(buf, len(packets), cfg)
	if err != nil {
		t.Fatalf("DecodePackets: %v", err)
	}
	if len(got) != len(packets) {
		t.Fatalf("DecodePackets returned %d packets, want %d", len(got), len(packets))
	}
	for i, p := range got {
		if p.MsgType != packets[i].MsgType || p.Format != packets[i].Format {
			t.Fatalf("packet %d: MsgType/Format mismatch: got %+v want %+v", i, p, packets[i])
		}
	}
}

// TestEncodePacketsCarryChains proves the stream is genuinely bit
// packed and not independently byte-padded per packet: three packets
// whose own bit length isn't a byte multiple must encode shorter
// combined than the sum of their individually byte-aligned forms.
func TestEncodePacketsCarryChains(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TimeLen = 7 // pulpPktLen+msgTypeLen+7 = 13 bits, not a byte multiple

	packets := []*Packet{
		{MsgType: MsgTimer, Time: 1},
		{MsgType: MsgTimer, Time: 2},
		{MsgType: MsgTimer, Time: 3},
	}

	independentLen := 0
	for _, p := range packets {
		enc, err := EncodePacket(p, cfg)
		if err != nil {
			t.Fatalf("EncodePacket: %v", err)
		}
		independentLen += len(enc)
	}

	buf, err := EncodePackets(packets, cfg)
	if err != nil {
		t.Fatalf("EncodePackets: %v", err)
	}
	if len(buf) >= independentLen {
		t.Fatalf("EncodePackets length = %d, want < %d (independently byte-aligned sum) to prove carry-chaining", len(buf), independentLen)
	}

	got, err := DecodePackets(buf, len(packets), cfg)
	if err != nil {
		t.Fatalf("DecodePackets: %v", err)
	}
	for i, p := range got {
		if p.MsgType != MsgTimer || p.Time != packets[i].Time {
			t.Fatalf("packet %d round-trip mismatch: got %+v, want Time=%d", i, p, packets[i].Time)
		}
	}
}

func TestDecodePacketsEmpty(t *testing.T) {
	got, err := DecodePackets(nil, 0, DefaultConfig())
	if err != nil || len(got) != 0 {
		t.Fatalf("DecodePackets(nil, 0) = %v, %v, want empty, nil", got, err)
	}
}
