package hw

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"oamdma/hw/hwdefs"
	"oamdma/hw/snapshot"
)

func TestSaveLoadMidTransfer(t *testing.T) {
	for _, at := range []int{5, 6, 7, 400, 769} {
		s := NewSystem()
		s.MemCtl.WaitStates = 2
		want := fillPage(s, 0x04)

		s.CPU.Load(
			Write(hwdefs.OAMADDR, 0x00),
			Write(hwdefs.OAMDMA, 0x04),
		)
		for range at {
			s.Tick()
		}

		var buf bytes.Buffer
		if err := s.SaveState().Save(&buf); err != nil {
			t.Fatal(err)
		}

		var state snapshot.System
		if err := state.Load(&buf); err != nil {
			t.Fatal(err)
		}
		s2 := NewSystem()
		s2.MemCtl.WaitStates = 2
		if err := s2.LoadState(&state); err != nil {
			t.Fatal(err)
		}
		if s2.DMA != s.DMA || s2.Cycles != s.Cycles {
			t.Fatalf("at %d: restored DMA %+v@%d, want %+v@%d", at, s2.DMA, s2.Cycles, s.DMA, s.Cycles)
		}

		for _, sys := range []*System{s, s2} {
			for sys.DMA.State != DMAReady {
				sys.Tick()
			}
		}
		if s2.Cycles != s.Cycles {
			t.Errorf("at %d: restored system completed at cycle %d, want %d", at, s2.Cycles, s.Cycles)
		}
		if diff := cmp.Diff(want, s2.OAM.Mem[:]); diff != "" {
			t.Errorf("at %d: OAM mismatch (-want +got):\n%s", at, diff)
		}
	}
}

func TestLoadStateInvalid(t *testing.T) {
	s := NewSystem()
	valid := s.SaveState()

	tests := []struct {
		name   string
		modify func(st *snapshot.System)
	}{
		{"version", func(st *snapshot.System) { st.Version = 99 }},
		{"state", func(st *snapshot.System) { st.DMA.State = 3 }},
		{"phase", func(st *snapshot.System) { st.DMA.Phase = 3 }},
		{"oam", func(st *snapshot.System) { st.OAM.Mem = st.OAM.Mem[:10] }},
		{"ram", func(st *snapshot.System) { st.RAM = nil }},
		{"wram", func(st *snapshot.System) { st.WRAM = make([]uint8, 1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := *valid
			tt.modify(&st)
			if err := NewSystem().LoadState(&st); err == nil {
				t.Errorf("LoadState should fail")
			}
		})
	}
}

func TestSnapshotDecodeErrors(t *testing.T) {
	tests := []struct {
		name, json, err string
	}{
		{"version", `{"version":2}`, "unsupported version"},
		{"range", `{"version":1,"dma":{"src":65536}}`, "out of range"},
		{"phase", `{"version":1,"dma":{"phase":-1}}`, "out of range"},
		{"syntax", `{"version":1,`, "snapshot"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var st snapshot.System
			err := st.Load(strings.NewReader(tt.json))
			if err == nil || !strings.Contains(err.Error(), tt.err) {
				t.Errorf("Load() = %v, want error containing %q", err, tt.err)
			}
		})
	}
}

func TestSnapshotUnknownFields(t *testing.T) {
	var st snapshot.System
	err := st.Load(strings.NewReader(`{"version":1,"cycles":42,"extra":{"a":[1,2]},"dma":{"state":1,"src":768,"foo":true}}`))
	if err != nil {
		t.Fatal(err)
	}
	want := snapshot.System{Version: 1, Cycles: 42, DMA: snapshot.DMA{State: 1, Src: 0x300}}
	if diff := cmp.Diff(want, st); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
}
