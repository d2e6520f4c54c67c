package trdb

// Stats accumulates the counters the original trdb_stats struct
// tracks, extended per spec.md §4.8/§3.1: per-format packet counts,
// payload and PULP-framed bit totals, a bits-per-instruction ratio,
// and a sign-extension-width histogram.
type Stats struct {
	Packets     uint64
	Sync        uint64
	BranchFull  uint64
	BranchDiff  uint64
	AddrOnly    uint64
	Software    uint64
	Timer       uint64

	PayloadBits uint64
	PulpBits    uint64

	BitsPerInstrNum uint64
	BitsPerInstrDen uint64

	// SextHist[k] counts packets whose address was kept to k+1 bits
	// (a 64-bin histogram regardless of XLen, per spec.md §9).
	SextHist [64]uint64
}

// RecordPacket folds one emitted or decoded packet into the running
// counters; exported so external tools (e.g. the stats CLI command)
// can recompute statistics from a packet file alone.
func (s *Stats) RecordPacket(p *Packet, cfg Config) {
	s.Packets++
	switch p.MsgType {
	case MsgSoftware:
		s.Software++
	case MsgTimer:
		s.Timer++
	case MsgTrace:
		switch p.Format {
		case FormatSync:
			s.Sync++
		case FormatBranchFull:
			s.BranchFull++
		case FormatBranchDiff:
			s.BranchDiff++
		case FormatAddrOnly:
			s.AddrOnly++
		}
	}

	enc, err := EncodePacket(p, cfg)
	if err == nil {
		bits := uint64(len(enc)) * 8
		s.PulpBits += bits
		s.PayloadBits += bits - pulpPktLen
	}

	if p.HasAddr && p.AddrBits > 0 && p.AddrBits <= 64 {
		s.SextHist[p.AddrBits-1]++
	}
}

// ObserveInstructions folds n retired instructions into the
// bits-per-instruction ratio's denominator; the numerator grows
// implicitly via RecordPacket's PulpBits.
func (s *Stats) ObserveInstructions(n uint64) {
	s.BitsPerInstrDen += n
	s.BitsPerInstrNum = s.PulpBits
}

// BitsPerInstruction returns the running compression ratio, or 0 if
// no instructions have been observed yet.
func (s *Stats) BitsPerInstruction() float64 {
	if s.BitsPerInstrDen == 0 {
		return 0
	}
	return float64(s.BitsPerInstrNum) / float64(s.BitsPerInstrDen)
}
