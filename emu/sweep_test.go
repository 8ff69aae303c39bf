package emu

import (
	"context"
	"errors"
	"testing"

	"oamdma/hw"
	"oamdma/hw/hwio"
)

func allPages() []uint8 {
	pages := make([]uint8, 0x100)
	for i := range pages {
		pages[i] = uint8(i)
	}
	return pages
}

func TestSweep(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sim.Workers = 4
	cfg.Memory.Regions = []RegionConfig{{Start: 0x8000, End: 0xFFFF, WaitStates: 2}}

	results, err := Sweep(context.Background(), cfg, allPages())
	if err != nil {
		t.Fatal(err)
	}

	// $2000-$5FFF is skipped.
	if len(results) != 0x100-0x40 {
		t.Fatalf("got %d results, want %d", len(results), 0x100-0x40)
	}
	for _, res := range results {
		stalls := int64(0)
		if res.Page >= 0x80 {
			stalls = 2 * 256
		}
		if res.StallCycles != stalls || res.ActiveCycles != 768+stalls {
			t.Errorf("page %02X: active = %d, stalls = %d", res.Page, res.ActiveCycles, res.StallCycles)
		}
	}
	for i := 1; i < len(results); i++ {
		if results[i].Page <= results[i-1].Page {
			t.Fatalf("results out of order: %02X after %02X", results[i].Page, results[i-1].Page)
		}
	}
}

func TestSweepError(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sim.MaxCycles = 1000
	cfg.Memory.Regions = []RegionConfig{{Start: 0x0700, End: 0x07FF, WaitStates: 100}}

	_, err := Sweep(context.Background(), cfg, []uint8{0x00, 0x07, 0x10})
	if !errors.Is(err, hw.ErrTransferTimeout) {
		t.Fatalf("err = %v, want ErrTransferTimeout", err)
	}
}

func TestSweepInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sim.Workers = -1
	if _, err := Sweep(context.Background(), cfg, []uint8{0}); err == nil {
		t.Fatal("Sweep should fail with an invalid configuration")
	}
}

func TestCheckReads(t *testing.T) {
	var set hwio.AddrSet
	for i := range 0x100 {
		set.Add(0x0300 + uint16(i))
	}
	if err := checkReads(&set, 0x03); err != nil {
		t.Errorf("full page: %v", err)
	}
	if err := checkReads(&set, 0x04); err == nil {
		t.Errorf("reads of page 03 accepted for page 04")
	}

	set.Add(0x0400)
	if err := checkReads(&set, 0x03); err == nil {
		t.Errorf("read outside the page accepted")
	}

	var partial hwio.AddrSet
	partial.Add(0x0300)
	if err := checkReads(&partial, 0x03); err == nil {
		t.Errorf("partial page accepted")
	}
}
