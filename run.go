package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"oamdma/emu"
	"oamdma/hw"
)

// runMain performs a single transfer and prints a summary.
func runMain(args Run) {
	cfg := loadConfig(args.ConfigPath)
	if args.Format != "" {
		cfg.Trace.Format = args.Format
	}

	e, err := emu.Launch(cfg)
	checkf(err, "failed to start emulator")

	if args.Trace != nil {
		e.TraceTo(args.Trace)
	}
	if args.Record != "" {
		rec, err := emu.NewRecorder(args.Record, fmt.Sprintf("page %02X", uint8(args.Page)))
		checkf(err, "failed to open recorder")
		e.RecordTo(rec)
		defer fmt.Fprintf(os.Stderr, "cycles recorded in %s, session %s\n", args.Record, rec.Session())
	}

	if args.Restore != "" {
		checkf(e.RestoreState(args.Restore), "failed to restore state")
	}

	page := uint8(args.Page)
	if args.Load != "" {
		data, err := os.ReadFile(args.Load)
		checkf(err, "failed to read %s", args.Load)
		addr := uint16(page) << 8
		if args.LoadAddr.set {
			addr = args.LoadAddr.addr
		}
		checkf(e.LoadMemory(addr, data), "failed to load %s", args.Load)
	}

	ctx := context.Background()
	if args.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, args.Timeout)
		defer cancel()
	}

	res, err := e.Transfer(ctx, page)
	checkf(e.Close(), "failed to close outputs")
	checkf(err, "transfer of page %02X failed", page)
	if args.SaveState != "" {
		checkf(e.SaveState(args.SaveState), "failed to save state")
	}

	printResults(os.Stdout, res)
	if args.DumpOAM {
		dumpOAM(os.Stdout, res.OAM[:])
	}
}

// sweepMain transfers every page in the requested range.
func sweepMain(args Sweep) {
	cfg := loadConfig(args.ConfigPath)
	if args.Jobs != 0 {
		cfg.Sim.Workers = args.Jobs
	}
	if args.To < args.From {
		fatalf("invalid page range %02X-%02X", args.From, args.To)
	}

	var pages []uint8
	for p := int(args.From); p <= int(args.To); p++ {
		pages = append(pages, uint8(p))
	}

	results, err := emu.Sweep(context.Background(), cfg, pages)
	checkf(err, "sweep failed")
	printResults(os.Stdout, results...)
}

func printResults(w io.Writer, results ...hw.TransferResult) {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "page\tstart\tactive\tstalls\tcooldown\treads\twrites\t")
	for _, r := range results {
		fmt.Fprintf(tw, "%02X\t%d\t%d\t%d\t%d\t%d\t%d\t\n",
			r.Page, r.Start, r.ActiveCycles, r.StallCycles, r.CooldownCycles, r.Reads, r.Writes)
	}
	tw.Flush()
}

func printSessions(w io.Writer, infos []emu.SessionInfo) {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "session\tlabel\tcycles\tcreated")
	for _, s := range infos {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", s.ID, s.Label, s.Cycles, s.Created.Format(time.DateTime))
	}
	tw.Flush()
}

func dumpOAM(w io.Writer, oam []uint8) {
	for i := 0; i < len(oam); i += 16 {
		fmt.Fprintf(w, "%02X: % X\n", i, oam[i:i+16])
	}
}
