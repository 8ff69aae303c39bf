package hw

import (
	"fmt"

	"oamdma/emu/log"
	"oamdma/hw/hwio"
)

// WaitRegion overrides the number of wait states for the inclusive address
// range [Start, End].
type WaitRegion struct {
	Start, End uint16
	WaitStates int
}

func (r WaitRegion) contains(addr uint16) bool {
	return addr >= r.Start && addr <= r.End
}

// MemCtl is the memory controller serving DMA requests. A read request is
// latched on the cycle Req is asserted; the data and the ready signal become
// visible to the requester once the wait states for that address have
// elapsed, at the earliest on the following cycle. Writes complete
// immediately.
type MemCtl struct {
	Bus *hwio.Table

	WaitStates int          // default wait states
	Regions    []WaitRegion // first match wins

	pending bool
	addr    uint16
	wait    int

	// Registered outputs, sampled by the DMA on the next cycle.
	Ready bool
	RData uint8
}

// Validate checks the wait states configuration.
func (mc *MemCtl) Validate() error {
	if mc.WaitStates < 0 {
		return fmt.Errorf("negative wait states: %d", mc.WaitStates)
	}
	for i, r := range mc.Regions {
		if r.End < r.Start {
			return fmt.Errorf("wait region %d: end %04X before start %04X", i, r.End, r.Start)
		}
		if r.WaitStates < 0 {
			return fmt.Errorf("wait region %d: negative wait states: %d", i, r.WaitStates)
		}
	}
	return nil
}

func (mc *MemCtl) waitStates(addr uint16) int {
	for _, r := range mc.Regions {
		if r.contains(addr) {
			return r.WaitStates
		}
	}
	return mc.WaitStates
}

// Cycle processes the DMA outputs driven during the current cycle and
// updates the registered outputs.
func (mc *MemCtl) Cycle(out DMAOutputs) {
	mc.Ready = false

	if out.Active && !out.RnW {
		mc.Bus.Write8(out.Addr, out.Data)
	}

	if out.Req {
		if mc.pending {
			log.ModMem.WarnZ("read request while another is pending").
				Hex16("pending", mc.addr).
				Hex16("addr", out.Addr).
				End()
		}
		mc.pending = true
		mc.addr = out.Addr
		mc.wait = mc.waitStates(out.Addr)
	}

	if !mc.pending {
		return
	}
	if mc.wait > 0 {
		mc.wait--
		return
	}
	mc.RData = mc.Bus.Read8(mc.addr, false)
	mc.Ready = true
	mc.pending = false
}

// Pending reports whether a read request is outstanding.
func (mc *MemCtl) Pending() bool {
	return mc.pending
}

func (mc *MemCtl) reset() {
	mc.pending = false
	mc.addr = 0
	mc.wait = 0
	mc.Ready = false
	mc.RData = 0
}
