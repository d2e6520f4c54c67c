package trdb

// Context is the single library handle a caller owns: configuration,
// compressor/decompressor state, statistics, and a logger, with no
// package-level mutable state (spec.md §5.1, §9).
type Context struct {
	Config       Config
	Compressor   *Compressor
	Decompressor *Decompressor
	Stats        *Stats
	Logger       *Logger
}

// NewContext builds a Context with fresh compressor/decompressor state
// over loader/dis, validating cfg first.
func NewContext(cfg Config, dis Disassembler, loader SectionLoader, logger *Logger) (*Context, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	stats := &Stats{}
	return &Context{
		Config:       cfg,
		Compressor:   NewCompressor(cfg, stats),
		Decompressor: NewDecompressor(cfg, dis, loader, stats),
		Stats:        stats,
		Logger:       logger,
	}, nil
}

// NewContextFromEnv is NewContext with the logger level taken from
// TRDB_LOG, matching the original's environment-driven log_priority.
func NewContextFromEnv(cfg Config, dis Disassembler, loader SectionLoader) (*Context, error) {
	return NewContext(cfg, dis, loader, NewLoggerFromEnv())
}

// Compress feeds one retired instruction to the compressor, logging
// any emitted packet at debug level.
func (ctx *Context) Compress(in Instruction) (*Packet, error) {
	pkt, err := ctx.Compressor.Step(in)
	if err != nil {
		ctx.Logger.Errorf("compress: %v", err)
		return nil, err
	}
	if pkt != nil {
		ctx.Logger.Debugf("emitted packet type=%d format=%d", pkt.MsgType, pkt.Format)
	}
	return pkt, nil
}

// Decompress feeds one packet to the decompressor.
func (ctx *Context) Decompress(p *Packet) ([]Instruction, error) {
	out, err := ctx.Decompressor.Process(p)
	if err != nil {
		ctx.Logger.Errorf("decompress: %v", err)
	}
	return out, err
}
