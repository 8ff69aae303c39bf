package hw

import (
	"context"
	"errors"
	"fmt"

	"oamdma/emu/log"
	"oamdma/hw/hwdefs"
	"oamdma/hw/hwio"
)

var (
	// ErrTransferTimeout is returned when a transfer doesn't complete within
	// the cycle budget, which only happens if memory never becomes ready.
	ErrTransferTimeout = errors.New("OAM DMA transfer timed out")

	// ErrCooldownTimeout is returned when the bus isn't released within the
	// cycle budget after a transfer.
	ErrCooldownTimeout = errors.New("OAM DMA cooldown timed out")
)

// System wires the DMA sequencer to the CPU bus. It arbitrates the bus
// between the processor and the DMA: while the DMA is active it's the only bus
// master and the processor is halted.
//
// Memory map:
//
//	$0000-$1FFF  RAM (2KB, mirrored)
//	$2000-$3FFF  PPU ports (OAMADDR, OAMDATA), mirrored every 8 bytes
//	$4014        OAMDMA
//	$6000-$7FFF  WRAM
//	$8000-$FFFF  ROM
type System struct {
	Bus *hwio.Table

	RAM    hwio.Mem  `hwio:"offset=0x0000,size=0x800,vsize=0x2000"`
	OAMDMA hwio.Reg8 `hwio:"offset=0x4014,writeonly"`
	WRAM   hwio.Mem  `hwio:"offset=0x6000,size=0x2000"`
	ROM    hwio.Mem  `hwio:"offset=0x8000,size=0x8000,readonly"`

	OAM    OAM
	DMA    DMA
	MemCtl MemCtl
	CPU    Processor

	Cycles int64
	Stats  Stats

	tracers  []CycleTracer
	traceErr error
	reset    bool
	openbus  uint8
}

// Stats are counters accumulated since power up.
type Stats struct {
	Transfers   int
	DMACycles   int64 // cycles with the DMA as bus master
	StallCycles int64 // cycles spent waiting for memory
	Reads       int64 // DMA read requests
	Writes      int64 // DMA writes to OAMDATA
	Touched     hwio.AddrSet
}

// NewSystem creates a system at power-up state.
func NewSystem() *System {
	s := &System{Bus: hwio.NewTable("cpu")}
	hwio.MustInitRegs(s)
	hwio.MustInitRegs(&s.OAM)

	s.Bus.MapBank(0x0000, s, 0)
	for off := uint16(0x2000); off < 0x4000; off += 8 {
		s.Bus.MapBank(off, &s.OAM, 0)
	}
	// Unmapped addresses read back the last value seen on the data bus.
	openbus := func(uint16) uint8 { return s.openbus }
	s.Bus.Unmapped = &hwio.Device{
		Name:   "openbus",
		Size:   hwio.NumAddrs,
		ReadCb: openbus,
		PeekCb: openbus,
	}

	s.MemCtl.Bus = s.Bus
	s.CPU.IdleAddr = 0x8000
	return s
}

// AddTracer adds a tracer receiving every cycle. Tracing stops at the first
// tracer error, which is then reported by Tick.
func (s *System) AddTracer(t CycleTracer) {
	s.tracers = append(s.tracers, t)
}

// AddLogContext adds the current cycle to log entries.
func (s *System) AddLogContext(z *log.EntryZ) {
	z.Int64("cycle", s.Cycles)
}

// AssertReset asserts the reset line during the next cycle.
func (s *System) AssertReset() {
	s.reset = true
}

// Reset resets the DMA sequencer and the memory controller, aborting any
// transfer in progress. A hard reset also clears memories and the processor
// script.
func (s *System) Reset(soft bool) {
	log.ModEmu.InfoZ("reset").Bool("soft", soft).End()
	if soft == hwdefs.HardReset {
		s.CPU.reset()
	}
	s.AssertReset()
	s.Tick()

	// The reset cycle still drives the outputs registered before it, which
	// may include a write to OAMDATA.
	if soft == hwdefs.HardReset {
		clear(s.RAM.Data)
		clear(s.WRAM.Data)
		s.OAM.reset()
		s.Stats = Stats{}
		s.openbus = 0
	}
}

// Tick emulates one cycle.
func (s *System) Tick() error {
	out := s.DMA.Outputs()

	// Memory controller outputs registered during the previous cycle.
	ready, rdata := s.MemCtl.Ready, s.MemCtl.RData

	var (
		bc     BusCycle
		master BusMaster
	)
	if out.Active {
		master = MasterDMA
		bc = BusCycle{Addr: out.Addr, Data: out.Data, RnW: out.RnW}
		s.CPU.Halt()
		s.MemCtl.Cycle(out)
		s.accountDMA(out, ready)
	} else {
		master = MasterCPU
		bc = s.CPU.Peek()
		if bc.RnW {
			bc.Data = s.Bus.Read8(bc.Addr, false)
		} else {
			s.Bus.Write8(bc.Addr, bc.Data)
		}
		s.CPU.Commit(bc)
		s.MemCtl.Cycle(out)
	}
	log.ModBus.DebugZ("bus cycle").
		Stringer("master", master).
		Hex16("addr", bc.Addr).
		Hex8("data", bc.Data).
		Bool("rnw", bc.RnW).
		End()

	if ready && out.Active {
		s.openbus = rdata
	} else if master == MasterCPU || !bc.RnW {
		s.openbus = bc.Data
	}

	in := DMAInputs{
		Addr:     bc.Addr,
		WData:    bc.Data,
		RData:    rdata,
		RnW:      bc.RnW,
		MemReady: ready,
		Reset:    s.reset,
	}

	if len(s.tracers) != 0 && s.traceErr == nil {
		cs := CycleState{
			Cycle:  s.Cycles,
			Master: master,
			State:  s.DMA.State,
			Phase:  s.DMA.Phase,
			Bus:    bc,
			Req:    out.Req,
			Ready:  ready,
			RData:  rdata,
			Reset:  s.reset,
		}
		for _, t := range s.tracers {
			if err := t.TraceCycle(cs); err != nil {
				s.traceErr = fmt.Errorf("cycle %d: trace: %w", s.Cycles, err)
				break
			}
		}
	}

	prev := s.DMA.State
	s.DMA.Step(in)
	if s.reset {
		s.MemCtl.reset()
		s.reset = false
	}
	if prev == DMAReady && s.DMA.State == DMAActive {
		s.Stats.Transfers++
	}

	s.Cycles++
	return s.traceErr
}

func (s *System) accountDMA(out DMAOutputs, ready bool) {
	s.Stats.DMACycles++
	switch {
	case out.Req:
		s.Stats.Reads++
		s.Stats.Touched.Add(out.Addr)
	case !out.RnW:
		s.Stats.Writes++
	case s.DMA.Phase == phaseCapture && !ready:
		s.Stats.StallCycles++
	}
}

// TransferResult describes a single OAM DMA transfer.
type TransferResult struct {
	Page           uint8
	Start          int64 // cycle at which OAMDMA was written
	ActiveCycles   int64 // cycles during which the CPU was halted
	CooldownCycles int64
	StallCycles    int64
	Reads, Writes  int64
	OAM            [hwdefs.OAMSize]uint8
}

// RunTransfer makes the processor write page to OAMDMA, then runs the system
// until the DMA has completed and released the bus. maxCycles bounds the
// number of cycles spent after the trigger (0 means no limit, in which case
// only ctx can stop a transfer that never ends).
//
// The OAM address is reset to 0 beforehand so that the OAM ends up holding
// an exact copy of the page. Operations already loaded in the processor
// script run once the processor resumes.
func (s *System) RunTransfer(ctx context.Context, page uint8, maxCycles int64) (TransferResult, error) {
	res := TransferResult{Page: page}
	if s.DMA.State != DMAReady {
		return res, fmt.Errorf("cannot start transfer: DMA is %s", s.DMA.State)
	}

	prologue := []BusOp{
		Write(hwdefs.OAMADDR, 0x00),
		Write(hwdefs.OAMDMA, page),
	}
	s.CPU.Prepend(prologue...)
	for range prologue {
		if err := s.Tick(); err != nil {
			return res, err
		}
	}
	if !s.DMA.Active() {
		return res, fmt.Errorf("DMA not started after write to OAMDMA (state: %s)", s.DMA.State)
	}

	res.Start = s.Cycles - 1
	before := s.Stats

	for n := int64(0); s.DMA.State != DMAReady; n++ {
		if n%256 == 0 {
			if err := ctx.Err(); err != nil {
				return res, err
			}
		}
		if maxCycles > 0 && n >= maxCycles {
			if s.DMA.Active() {
				return res, fmt.Errorf("page %02X: %w after %d cycles", page, ErrTransferTimeout, n)
			}
			return res, fmt.Errorf("page %02X: %w after %d cycles", page, ErrCooldownTimeout, n)
		}

		switch s.DMA.State {
		case DMAActive:
			res.ActiveCycles++
		case DMACooldown:
			res.CooldownCycles++
		}
		if err := s.Tick(); err != nil {
			return res, err
		}
	}

	res.StallCycles = s.Stats.StallCycles - before.StallCycles
	res.Reads = s.Stats.Reads - before.Reads
	res.Writes = s.Stats.Writes - before.Writes
	res.OAM = s.OAM.Mem

	log.ModEmu.InfoZ("transfer complete").
		Hex8("page", page).
		Int64("active", res.ActiveCycles).
		Int64("stalls", res.StallCycles).
		End()
	return res, nil
}
