package hw

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/go-faster/jx"
	"github.com/google/go-cmp/cmp"
)

var traceCycles = []CycleState{
	{Cycle: 1, Master: MasterCPU, State: DMAReady, Bus: BusCycle{Addr: 0x4014, Data: 0x02}},
	{Cycle: 2, Master: MasterDMA, State: DMAActive, Phase: 0, Bus: BusCycle{Addr: 0x0200, RnW: true}, Req: true},
	{Cycle: 3, Master: MasterDMA, State: DMAActive, Phase: 1, Bus: BusCycle{Addr: 0x0200, RnW: true}, Ready: true, RData: 0x5A},
	{Cycle: 4, Master: MasterDMA, State: DMAActive, Phase: 2, Bus: BusCycle{Addr: 0x2004, Data: 0x5A}},
	{Cycle: 12345678, Master: MasterCPU, State: DMACooldown, Bus: BusCycle{Addr: 0x8000, Data: 0xEA, RnW: true}, Reset: true},
}

func TestTextTracer(t *testing.T) {
	want := []string{
		`       1 CPU Ready    - 4014 W 02 --- ---`,
		`       2 DMA Active   0 0200 R 00 REQ ---`,
		`       3 DMA Active   1 0200 R 00 --- RDY:5A`,
		`       4 DMA Active   2 2004 W 5A --- ---`,
		`12345678 CPU Cooldown - 8000 R EA --- --- RST`,
	}

	var buf bytes.Buffer
	tr := TextTracer{W: &buf}
	for _, cs := range traceCycles {
		if err := tr.TraceCycle(cs); err != nil {
			t.Fatal(err)
		}
	}

	got := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("trace mismatch (-want +got):\n%s", diff)
	}
}

func TestJSONTracer(t *testing.T) {
	var buf bytes.Buffer
	tr := JSONTracer{W: &buf}
	for _, cs := range traceCycles {
		if err := tr.TraceCycle(cs); err != nil {
			t.Fatal(err)
		}
	}

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != len(traceCycles) {
		t.Fatalf("got %d lines, want %d", len(lines), len(traceCycles))
	}

	want := `{"cycle":3,"master":"DMA","state":"Active","phase":1,"addr":512,"data":0,"rnw":true,"req":false,"ready":true,"rdata":90}`
	if lines[2] != want {
		t.Errorf("line 2:\ngot:  %s\nwant: %s", lines[2], want)
	}

	for i, line := range lines {
		var cycle int64
		var reset bool
		err := jx.DecodeStr(line).Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "cycle":
				cycle, err = d.Int64()
			case "reset":
				reset, err = d.Bool()
			default:
				err = d.Skip()
			}
			return err
		})
		if err != nil {
			t.Fatalf("line %d: %v", i, err)
		}
		if cycle != traceCycles[i].Cycle || reset != traceCycles[i].Reset {
			t.Errorf("line %d: cycle=%d reset=%v, want %d %v", i, cycle, reset, traceCycles[i].Cycle, traceCycles[i].Reset)
		}
	}
}

type failWriter struct{ n int }

func (w *failWriter) Write(p []byte) (int, error) {
	if w.n == 0 {
		return 0, errors.New("disk full")
	}
	w.n--
	return len(p), nil
}

func TestTracerError(t *testing.T) {
	s := NewSystem()
	s.AddTracer(&TextTracer{W: &failWriter{n: 10}})

	_, err := s.RunTransfer(context.Background(), 0x02, 0)
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("err = %v, want trace error", err)
	}
	if s.Cycles != 11 {
		t.Errorf("stopped at cycle %d, want 11", s.Cycles)
	}
}

func TestTraceTransfer(t *testing.T) {
	s := NewSystem()
	var buf bytes.Buffer
	s.AddTracer(&TextTracer{W: &buf})

	res, err := s.RunTransfer(context.Background(), 0x02, 0)
	if err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	// 2 processor writes, the transfer, and the releasing read.
	if want := 2 + int(res.ActiveCycles) + 1; len(lines) != want {
		t.Fatalf("got %d trace lines, want %d", len(lines), want)
	}
	if !strings.HasPrefix(lines[1], "       1 CPU Ready    - 4014 W 02") {
		t.Errorf("trigger line = %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "       2 DMA Active   0 0200 R") {
		t.Errorf("first DMA line = %q", lines[2])
	}
	if !strings.HasPrefix(lines[len(lines)-1], "     770 CPU Cooldown - 8000 R") {
		t.Errorf("last line = %q", lines[len(lines)-1])
	}
}
