package trdb

import "math"

// Config is the struct of flags every Context owns; there is no
// runtime-mutable global state (spec.md §9).
type Config struct {
	// XLen is the native register width in bits, 32 or 64.
	XLen int

	// FullAddress: emit absolute addresses always.
	FullAddress bool
	// UsePulpSext: quantize sign-extension savings to byte boundaries.
	UsePulpSext bool
	// ImplicitRet: let the decoder's RAS predict ret targets instead of
	// the compressor emitting an address for every return.
	ImplicitRet bool
	// PulpVectorTablePacket: emit the synthetic post-exception START
	// packet that records the runtime-variable vector-table target.
	PulpVectorTablePacket bool
	// CompressFullBranchMap: strip redundant high bits of the 31-bit
	// map when no address follows it.
	CompressFullBranchMap bool
	// ResyncMax bounds the number of instructions between forced
	// resynchronization packets.
	ResyncMax uint64

	CauseLen  int
	TimeLen   int
}

// DefaultConfig returns the configuration defaults listed in spec.md §6.
func DefaultConfig() Config {
	return Config{
		XLen:                  32,
		FullAddress:           true,
		UsePulpSext:           false,
		ImplicitRet:           false,
		PulpVectorTablePacket: true,
		CompressFullBranchMap: false,
		ResyncMax:             math.MaxUint64,
		CauseLen:              5,
		TimeLen:               64,
	}
}

// Validate rejects an XLen other than 32 or 64. Mode/packet
// combinations that cannot co-exist are rejected by the packet encoder.
func (c Config) Validate() error {
	if c.XLen != 32 && c.XLen != 64 {
		return newErrorf(Invalid, "xlen must be 32 or 64, got %d", c.XLen)
	}
	return nil
}
