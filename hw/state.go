package hw

import (
	"fmt"

	"oamdma/hw/hwdefs"
	"oamdma/hw/snapshot"
)

// SaveState returns a snapshot of the system. The processor script is not
// part of the snapshot.
func (s *System) SaveState() *snapshot.System {
	return &snapshot.System{
		Version: snapshot.Version,
		Cycles:  s.Cycles,
		OpenBus: s.openbus,
		DMA: snapshot.DMA{
			State: uint8(s.DMA.State),
			Src:   s.DMA.Src,
			Phase: s.DMA.Phase,
			Data:  s.DMA.Data,
		},
		MemCtl: snapshot.MemCtl{
			Pending: s.MemCtl.pending,
			Addr:    s.MemCtl.addr,
			Wait:    s.MemCtl.wait,
			Ready:   s.MemCtl.Ready,
			RData:   s.MemCtl.RData,
		},
		OAM: snapshot.OAM{
			Mem:  append([]uint8(nil), s.OAM.Mem[:]...),
			Addr: s.OAM.OAMADDR.Value,
		},
		RAM:  append([]uint8(nil), s.RAM.Data...),
		WRAM: append([]uint8(nil), s.WRAM.Data...),
	}
}

// LoadState restores a snapshot taken with SaveState.
func (s *System) LoadState(state *snapshot.System) error {
	switch {
	case state.Version != snapshot.Version:
		return fmt.Errorf("unsupported snapshot version %d", state.Version)
	case state.DMA.State > uint8(DMACooldown):
		return fmt.Errorf("invalid DMA state %d", state.DMA.State)
	case state.DMA.Phase > phaseWrite:
		return fmt.Errorf("invalid DMA phase %d", state.DMA.Phase)
	case len(state.OAM.Mem) != hwdefs.OAMSize:
		return fmt.Errorf("invalid OAM size %d", len(state.OAM.Mem))
	case len(state.RAM) != len(s.RAM.Data):
		return fmt.Errorf("invalid RAM size %d", len(state.RAM))
	case len(state.WRAM) != len(s.WRAM.Data):
		return fmt.Errorf("invalid WRAM size %d", len(state.WRAM))
	}

	s.Cycles = state.Cycles
	s.openbus = state.OpenBus
	s.DMA = DMA{
		State: DMAState(state.DMA.State),
		Src:   state.DMA.Src,
		Phase: state.DMA.Phase,
		Data:  state.DMA.Data,
	}
	s.MemCtl.pending = state.MemCtl.Pending
	s.MemCtl.addr = state.MemCtl.Addr
	s.MemCtl.wait = state.MemCtl.Wait
	s.MemCtl.Ready = state.MemCtl.Ready
	s.MemCtl.RData = state.MemCtl.RData
	copy(s.OAM.Mem[:], state.OAM.Mem)
	s.OAM.OAMADDR.Value = state.OAM.Addr
	copy(s.RAM.Data, state.RAM)
	copy(s.WRAM.Data, state.WRAM)
	return nil
}
