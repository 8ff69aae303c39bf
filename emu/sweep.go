package emu

import (
	"bytes"
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"oamdma/emu/log"
	"oamdma/hw"
	"oamdma/hw/hwdefs"
	"oamdma/hw/hwio"
)

// PagePattern returns the bytes a sweep stores in page before transferring
// it. Each page gets distinct contents so that a transfer reading the wrong
// page is detected.
func PagePattern(page uint8) []byte {
	buf := make([]byte, hwdefs.OAMSize)
	for i := range buf {
		buf[i] = (uint8(i)*7 + page) ^ 0x5A
	}
	return buf
}

// sweepable reports whether page is backed by memory the sweep can fill.
// Pages covering I/O ports or unmapped addresses are skipped.
func sweepable(s *hw.System, page uint8) bool {
	base := uint16(page) << 8
	if base >= 0x2000 && base < 0x6000 {
		return false
	}
	return s.Bus.Mapped(base)
}

// checkReads verifies that the DMA read every address of page, and nothing
// else.
func checkReads(touched *hwio.AddrSet, page uint8) error {
	n := 0
	for addr := range touched.All() {
		if hwio.Hi8(addr) != page {
			return fmt.Errorf("page %02X: DMA read $%04X", page, addr)
		}
		n++
	}
	if n != hwdefs.OAMSize {
		return fmt.Errorf("page %02X: DMA read %d addresses, want %d", page, n, hwdefs.OAMSize)
	}
	return nil
}

// Sweep transfers every page in pages, each on a separate system configured
// with cfg, running up to cfg.Sim.Workers systems concurrently. Results are
// returned in the order of pages. Pages that don't hold memory are skipped.
//
// The first failing transfer cancels the others.
func Sweep(ctx context.Context, cfg Config, pages []uint8) ([]hw.TransferResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	workers := cfg.Sim.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]hw.TransferResult, len(pages))
	skipped := make([]bool, len(pages))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, page := range pages {
		g.Go(func() error {
			s := hw.NewSystem()
			cfg.Apply(s)
			if !sweepable(s, page) {
				skipped[i] = true
				return nil
			}

			want := PagePattern(page)
			if err := loadMemory(s, uint16(page)<<8, want); err != nil {
				return err
			}
			res, err := s.RunTransfer(ctx, page, cfg.Sim.MaxCycles)
			if err != nil {
				return err
			}
			if !bytes.Equal(res.OAM[:], want) {
				return fmt.Errorf("page %02X: OAM doesn't match page contents", page)
			}
			if err := checkReads(&s.Stats.Touched, page); err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []hw.TransferResult
	for i, res := range results {
		if !skipped[i] {
			out = append(out, res)
		}
	}
	log.ModEmu.InfoZ("Sweep done").
		Int("pages", len(out)).
		Int("skipped", len(pages)-len(out)).
		Int("workers", workers).
		End()
	return out, nil
}
