package emu

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"oamdma/emu/log"
	"oamdma/hw"
	"oamdma/hw/hwdefs"
	"oamdma/hw/snapshot"
)

// Emulator owns a configured system and the outputs attached to it.
type Emulator struct {
	Sys *hw.System
	cfg Config

	closers   []io.Closer
	rmLogCtx  func()
	transfers []hw.TransferResult
}

// Launch powers up a system configured with cfg. Log entries emitted while
// the emulator is alive carry the current cycle.
func Launch(cfg Config) (*Emulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	sys := hw.NewSystem()
	cfg.Apply(sys)
	sys.Reset(hwdefs.HardReset)

	e := &Emulator{
		Sys:      sys,
		cfg:      cfg,
		rmLogCtx: log.AddContext(sys),
	}
	log.ModEmu.InfoZ("Emulator launched").
		Int("wait_states", cfg.Memory.WaitStates).
		Int("regions", len(cfg.Memory.Regions)).
		End()
	return e, nil
}

// TraceTo writes a cycle trace to w, in the configured format. w is closed
// with the emulator if it's an io.Closer.
func (e *Emulator) TraceTo(w io.Writer) {
	switch e.cfg.Trace.Format {
	case TraceJSON:
		e.Sys.AddTracer(&hw.JSONTracer{W: w})
	default:
		e.Sys.AddTracer(&hw.TextTracer{W: w})
	}
	if c, ok := w.(io.Closer); ok {
		e.closers = append(e.closers, c)
	}
}

// RecordTo records every cycle into rec, which is closed with the emulator.
func (e *Emulator) RecordTo(rec *Recorder) {
	e.Sys.AddTracer(rec)
	e.closers = append(e.closers, rec)
}

// LoadMemory copies data into the address space, starting at addr. ROM is
// written directly, other areas go through the bus.
func (e *Emulator) LoadMemory(addr uint16, data []byte) error {
	return loadMemory(e.Sys, addr, data)
}

func loadMemory(s *hw.System, addr uint16, data []byte) error {
	if int(addr)+len(data) > 0x10000 {
		return fmt.Errorf("%d bytes at $%04X overflow the address space", len(data), addr)
	}
	for i, b := range data {
		a := addr + uint16(i)
		if a >= 0x8000 {
			s.ROM.Data[int(a)&(len(s.ROM.Data)-1)] = b
			continue
		}
		s.Bus.Write8(a, b)
	}
	return nil
}

// Transfer copies page to the OAM and waits for the bus to be released.
func (e *Emulator) Transfer(ctx context.Context, page uint8) (hw.TransferResult, error) {
	res, err := e.Sys.RunTransfer(ctx, page, e.cfg.Sim.MaxCycles)
	if err != nil {
		log.ModEmu.ErrorZ("Transfer failed").
			Hex8("page", page).
			Error("err", err).
			End()
		return res, err
	}
	e.transfers = append(e.transfers, res)
	return res, nil
}

// SaveState writes a JSON snapshot of the system to path.
func (e *Emulator) SaveState(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := e.Sys.SaveState().Save(f); err != nil {
		f.Close()
		return fmt.Errorf("save state: %w", err)
	}
	return f.Close()
}

// RestoreState loads a snapshot written by SaveState.
func (e *Emulator) RestoreState(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var state snapshot.System
	if err := state.Load(f); err != nil {
		return fmt.Errorf("restore state from %s: %w", path, err)
	}
	if err := e.Sys.LoadState(&state); err != nil {
		return fmt.Errorf("restore state from %s: %w", path, err)
	}
	log.ModEmu.InfoZ("State restored").
		String("path", path).
		Int64("cycle", state.Cycles).
		End()
	return nil
}

// Transfers returns the results of the successful transfers so far.
func (e *Emulator) Transfers() []hw.TransferResult {
	return e.transfers
}

// Close flushes and closes the trace outputs.
func (e *Emulator) Close() error {
	e.rmLogCtx()

	var errs []error
	for _, c := range e.closers {
		errs = append(errs, c.Close())
	}
	e.closers = nil
	return errors.Join(errs...)
}
