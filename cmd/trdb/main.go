package main

import (
	"fmt"
	"os"
	"strconv"

	"trdb"
	"trdb/internal/binutil"
	"trdb/internal/isa"

	cli "github.com/urfave/cli/v2"
)

func configFromContext(c *cli.Context) trdb.Config {
	cfg := trdb.DefaultConfig()
	if c.IsSet("xlen") {
		cfg.XLen = c.Int("xlen")
	}
	if c.IsSet("pulp-sext") {
		cfg.UsePulpSext = c.Bool("pulp-sext")
	}
	if c.IsSet("implicit-ret") {
		cfg.ImplicitRet = c.Bool("implicit-ret")
	}
	if c.Bool("no-vector-table-packet") {
		cfg.PulpVectorTablePacket = false
	}
	if c.IsSet("compress-full-map") {
		cfg.CompressFullBranchMap = c.Bool("compress-full-map")
	}
	if c.IsSet("resync-max") {
		cfg.ResyncMax = uint64(c.Int64("resync-max"))
	}
	return cfg
}

func compressCmd(c *cli.Context) error {
	csvPath := c.String("csv")
	outPath := c.String("out")
	if csvPath == "" || outPath == "" {
		return cli.Exit("--csv and --out are required", 1)
	}

	f, err := os.Open(csvPath)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer f.Close()

	instrs, err := trdb.ReadCSV(f)
	if err != nil {
		return cli.Exit(err, 1)
	}

	cfg := configFromContext(c)
	stats := &trdb.Stats{}
	comp := trdb.NewCompressor(cfg, stats)

	var packets []*trdb.Packet
	for _, in := range instrs {
		pkt, err := comp.Step(in)
		if err != nil {
			return cli.Exit(err, 1)
		}
		if pkt != nil {
			packets = append(packets, pkt)
		}
	}
	if pkt, err := comp.Finish(); err != nil {
		return cli.Exit(err, 1)
	} else if pkt != nil {
		packets = append(packets, pkt)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer out.Close()

	if err := trdb.WritePacketFile(out, packets, cfg); err != nil {
		return cli.Exit(err, 1)
	}

	fmt.Printf("wrote %d packets (%d instructions)\n", len(packets), len(instrs))
	return nil
}

func decompressCmd(c *cli.Context) error {
	packetsPath := c.String("packets")
	binPath := c.String("bin")
	outPath := c.String("out")
	if packetsPath == "" || binPath == "" || outPath == "" {
		return cli.Exit("--packets, --bin and --out are required", 1)
	}

	var base uint64
	if s := c.String("base"); s != "" {
		v, err := strconv.ParseUint(s, 0, 64)
		if err != nil {
			return cli.Exit(fmt.Sprintf("invalid --base %q", s), 1)
		}
		base = v
	}

	image, err := os.ReadFile(binPath)
	if err != nil {
		return cli.Exit(err, 1)
	}
	pf, err := os.Open(packetsPath)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer pf.Close()

	cfg := configFromContext(c)
	packets, err := trdb.ReadPacketFile(pf, cfg)
	if err != nil {
		return cli.Exit(err, 1)
	}

	loader := binutil.NewFlatLoader(base, image)
	decomp := trdb.NewDecompressor(cfg, isa.Decoder{}, loader, &trdb.Stats{})

	var instrs []trdb.Instruction
	for i, p := range packets {
		out, err := decomp.Process(p)
		if err != nil {
			return cli.Exit(fmt.Sprintf("packet %d: %v", i, err), 1)
		}
		instrs = append(instrs, out...)
	}

	of, err := os.Create(outPath)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer of.Close()

	if err := trdb.WriteCSV(of, instrs); err != nil {
		return cli.Exit(err, 1)
	}

	fmt.Printf("reconstructed %d instructions from %d packets\n", len(instrs), len(packets))
	return nil
}

func statsCmd(c *cli.Context) error {
	packetsPath := c.String("packets")
	if packetsPath == "" {
		return cli.Exit("--packets is required", 1)
	}

	pf, err := os.Open(packetsPath)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer pf.Close()

	cfg := configFromContext(c)
	packets, err := trdb.ReadPacketFile(pf, cfg)
	if err != nil {
		return cli.Exit(err, 1)
	}

	stats := &trdb.Stats{}
	for _, p := range packets {
		stats.RecordPacket(p, cfg)
	}

	fmt.Printf("packets       %d\n", stats.Packets)
	fmt.Printf("  sync        %d\n", stats.Sync)
	fmt.Printf("  branch_full %d\n", stats.BranchFull)
	fmt.Printf("  branch_diff %d\n", stats.BranchDiff)
	fmt.Printf("  addr_only   %d\n", stats.AddrOnly)
	fmt.Printf("  software    %d\n", stats.Software)
	fmt.Printf("  timer       %d\n", stats.Timer)
	fmt.Printf("payload bits  %d\n", stats.PayloadBits)
	fmt.Printf("pulp bits     %d\n", stats.PulpBits)
	for i, n := range stats.SextHist {
		if n > 0 {
			fmt.Printf("  sext[%2d]    %d\n", i+1, n)
		}
	}
	return nil
}

func stimulus2csvCmd(c *cli.Context) error {
	args := c.Args()
	if args.Len() < 1 {
		return cli.Exit("stimulus file argument required", 1)
	}

	f, err := os.Open(args.First())
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer f.Close()

	instrs, err := trdb.ReadStimulus(f)
	if err != nil {
		return cli.Exit(err, 1)
	}

	w := os.Stdout
	if outPath := c.String("out"); outPath != "" {
		of, err := os.Create(outPath)
		if err != nil {
			return cli.Exit(err, 1)
		}
		defer of.Close()
		return trdb.WriteCSV(of, instrs)
	}
	return trdb.WriteCSV(w, instrs)
}

func main() {
	app := cli.NewApp()
	app.Name = "trdb"
	app.Usage = "RISC-V branch-trace compressor/decompressor"
	app.Action = func(c *cli.Context) error {
		cli.ShowAppHelp(c)
		return nil
	}
	app.Flags = []cli.Flag{
		&cli.IntFlag{Name: "xlen", Value: 32, Usage: "register width in bits, 32 or 64"},
		&cli.BoolFlag{Name: "pulp-sext", Usage: "quantize sign-extension savings to byte boundaries"},
		&cli.BoolFlag{Name: "implicit-ret", Usage: "predict return targets from the RAS instead of encoding them"},
		&cli.BoolFlag{Name: "no-vector-table-packet", Usage: "disable the synthetic post-exception START packet"},
		&cli.BoolFlag{Name: "compress-full-map", Usage: "strip redundant high bits of a full branch map with no address"},
		&cli.Int64Flag{Name: "resync-max", Usage: "instructions between forced resynchronization packets"},
	}
	app.Commands = []*cli.Command{
		{
			Name:  "compress",
			Usage: "compress a CSV instruction stream into a PULP packet file",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "csv", Usage: "input instruction stream"},
				&cli.StringFlag{Name: "out", Usage: "output packet file"},
			},
			Action: compressCmd,
		},
		{
			Name:  "decompress",
			Usage: "decompress a PULP packet file against a binary image into a CSV instruction stream",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "packets", Usage: "input packet file"},
				&cli.StringFlag{Name: "bin", Usage: "flat binary image"},
				&cli.StringFlag{Name: "base", Usage: "load address of the image, e.g. 0x80000000"},
				&cli.StringFlag{Name: "out", Usage: "output CSV file"},
			},
			Action: decompressCmd,
		},
		{
			Name:  "stats",
			Usage: "print packet/bit statistics for a packet file",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "packets", Usage: "input packet file"},
			},
			Action: statsCmd,
		},
		{
			Name:      "stimulus2csv",
			Usage:     "convert the line-oriented stimulus format to CSV",
			ArgsUsage: "stimulus.txt",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "out", Usage: "output CSV file (default stdout)"},
			},
			Action: stimulus2csvCmd,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
