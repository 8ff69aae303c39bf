package hw

import (
	"oamdma/emu/log"
	"oamdma/hw/hwdefs"
	"oamdma/hw/hwio"
)

//go:generate go tool stringer -type=DMAState -trimprefix=DMA

// DMAState is the phase of the OAM DMA sequencer.
type DMAState uint8

const (
	DMAReady    DMAState = iota // waiting for a write to OAMDMA
	DMAActive                   // transfer in progress, CPU halted
	DMACooldown                 // transfer done, waiting for the CPU to take the bus back
)

// Sub-steps of a byte copy.
const (
	phaseRead    = 0 // drive source address, request memory
	phaseCapture = 1 // hold address, latch data until memory is ready
	phaseWrite   = 2 // write latched byte to OAMDATA
)

// DMAInputs are the signals sampled by the sequencer at each cycle.
type DMAInputs struct {
	Addr     uint16 // address on the bus
	WData    uint8  // data written on the bus, if any
	RData    uint8  // data returned by the memory controller
	RnW      bool   // read cycle (true) or write cycle (false)
	MemReady bool   // memory controller has completed the pending read
	Reset    bool
}

// DMAOutputs are the signals driven by the sequencer during a cycle. Apart
// from Active, they are meaningful only while the sequencer is bus master.
type DMAOutputs struct {
	Active bool // the sequencer owns the bus, the CPU must be held
	Addr   uint16
	Data   uint8
	RnW    bool
	Req    bool // memory read request
}

// idleOutputs is what the sequencer drives when it's not bus master.
var idleOutputs = DMAOutputs{RnW: true}

// DMA is the OAM DMA sequencer. It snoops the bus for a write to OAMDMA, then
// copies the 256 bytes of the written page to OAMDATA, one byte every 3 cycles
// at best. Reading a byte takes as long as the memory controller needs.
//
// DMA is a plain value: Next computes the following state without modifying
// the receiver, Step commits it. The zero value is the reset state.
type DMA struct {
	State DMAState
	Src   uint16 // source address; high byte is the page
	Phase uint8
	Data  uint8 // byte read from Src, written during phaseWrite
}

// Outputs returns the signals driven during the current cycle. They only
// depend on the current registers.
func (dma DMA) Outputs() DMAOutputs {
	if dma.State != DMAActive {
		return idleOutputs
	}

	out := DMAOutputs{Active: true, RnW: true}
	switch dma.Phase {
	case phaseRead:
		out.Addr = dma.Src
		out.Req = true
	case phaseCapture:
		out.Addr = dma.Src
	case phaseWrite:
		out.Addr = hwdefs.OAMDATA
		out.Data = dma.Data
		out.RnW = false
	}
	return out
}

// Next returns the state of the sequencer after the current cycle, given the
// inputs sampled during that cycle, along with the outputs driven during it.
func (dma DMA) Next(in DMAInputs) (DMA, DMAOutputs) {
	out := dma.Outputs()
	if in.Reset {
		return DMA{}, out
	}

	next := dma
	switch dma.State {
	case DMAReady:
		if !in.RnW && in.Addr == hwdefs.OAMDMA {
			next = DMA{
				State: DMAActive,
				Src:   hwio.Make16(in.WData, 0x00),
				Phase: phaseRead,
			}
		}

	case DMAActive:
		switch dma.Phase {
		case phaseRead:
			next.Phase = phaseCapture
		case phaseCapture:
			// Data is sampled every cycle, it's only valid once memory is ready.
			next.Data = in.RData
			if in.MemReady {
				next.Phase = phaseWrite
			}
		case phaseWrite:
			if hwio.Lo8(dma.Src) == 0xFF {
				next.State = DMACooldown
				next.Phase = phaseRead
			} else {
				next.Src++
				next.Phase = phaseRead
			}
		}

	case DMACooldown:
		// The CPU reading the bus means it's running again.
		if in.RnW {
			next.State = DMAReady
		}
	}

	return next, out
}

// Step advances the sequencer by one cycle and returns the outputs it drove
// during that cycle.
func (dma *DMA) Step(in DMAInputs) DMAOutputs {
	next, out := dma.Next(in)
	if next.State != dma.State {
		dma.logTransition(next, in)
	}
	*dma = next
	return out
}

// Reset forces the sequencer into the ready state, aborting any transfer.
func (dma *DMA) Reset() {
	*dma = DMA{}
}

// Active reports whether the sequencer is bus master.
func (dma DMA) Active() bool {
	return dma.State == DMAActive
}

// Page returns the page being transferred (or last transferred).
func (dma DMA) Page() uint8 {
	return hwio.Hi8(dma.Src)
}

func (dma *DMA) logTransition(next DMA, in DMAInputs) {
	switch {
	case in.Reset:
		log.ModDMA.DebugZ("reset").
			Stringer("from", dma.State).
			Hex16("src", dma.Src).
			End()
	case next.State == DMAActive:
		log.ModDMA.DebugZ("start OAM DMA transfer").
			Hex8("page", next.Page()).
			End()
	case next.State == DMACooldown:
		log.ModDMA.DebugZ("OAM DMA transfer done").
			Hex8("page", dma.Page()).
			End()
	case next.State == DMAReady:
		log.ModDMA.DebugZ("bus released").End()
	}
}
