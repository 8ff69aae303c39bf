package emu

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"oamdma/hw"
)

func TestRecorder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec.db")

	var want []hw.CycleState
	for i := range 10 {
		want = append(want, hw.CycleState{
			Cycle:  int64(i),
			Master: hw.BusMaster(i % 2),
			State:  hw.DMAState(i % 3),
			Phase:  uint8(i % 3),
			Bus:    hw.BusCycle{Addr: 0x0200 + uint16(i), Data: uint8(i * 3), RnW: i%3 != 2},
			Req:    i%3 == 0,
			Ready:  i%3 == 1,
			RData:  uint8(0xF0 + i),
			Reset:  i == 9,
		})
	}

	rec, err := NewRecorder(path, "first")
	if err != nil {
		t.Fatal(err)
	}
	rec.batchSize = 3 // force several transactions
	for _, cs := range want {
		if err := rec.TraceCycle(cs); err != nil {
			t.Fatal(err)
		}
	}

	// 9 cycles flushed by now, the last one is still buffered.
	got, err := rec.ReadSession(rec.Session())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 9 {
		t.Errorf("got %d cycles before Close, want 9", len(got))
	}

	first := rec.Session()
	if err := rec.Close(); err != nil {
		t.Fatal(err)
	}

	got, err = ReadSession(path, first)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("cycles mismatch (-want +got):\n%s", diff)
	}

	// A second session in the same database.
	rec2, err := NewRecorder(path, "second")
	if err != nil {
		t.Fatal(err)
	}
	if rec2.Session() == first {
		t.Fatalf("sessions share the same id")
	}
	if err := rec2.TraceCycle(want[0]); err != nil {
		t.Fatal(err)
	}
	if err := rec2.Close(); err != nil {
		t.Fatal(err)
	}

	infos, err := Sessions(path)
	if err != nil {
		t.Fatal(err)
	}
	wantInfos := []SessionInfo{
		{ID: first, Label: "first", Cycles: 10},
		{ID: rec2.Session(), Label: "second", Cycles: 1},
	}
	if diff := cmp.Diff(wantInfos, infos, cmpopts.IgnoreFields(SessionInfo{}, "Created")); diff != "" {
		t.Errorf("sessions mismatch (-want +got):\n%s", diff)
	}
	got, err = ReadSession(path, rec2.Session())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("second session has %d cycles, want 1", len(got))
	}
}
