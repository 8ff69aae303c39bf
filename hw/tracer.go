package hw

import (
	"io"
	"strconv"

	"github.com/go-faster/jx"
)

// BusMaster identifies the device driving the bus during a cycle.
type BusMaster uint8

const (
	MasterCPU BusMaster = iota
	MasterDMA
)

func (m BusMaster) String() string {
	if m == MasterDMA {
		return "DMA"
	}
	return "CPU"
}

// CycleState is the state of the bus and of the DMA sequencer during a
// cycle, as seen by tracers.
type CycleState struct {
	Cycle  int64
	Master BusMaster
	State  DMAState // sequencer state during the cycle
	Phase  uint8
	Bus    BusCycle
	Req    bool
	Ready  bool  // memory controller ready, as sampled by the DMA
	RData  uint8 // data returned by the memory controller
	Reset  bool
}

// A CycleTracer receives the state of each emulated cycle.
type CycleTracer interface {
	TraceCycle(cs CycleState) error
}

func hexEncode(dst []byte, v byte) {
	const hextable = "0123456789ABCDEF"
	dst[0] = hextable[v>>4]
	dst[1] = hextable[v&0x0f]
}

// TextTracer writes one fixed-width line per cycle:
//
//	      13 DMA Active   0 0200 R 00 REQ ---
//	      14 DMA Active   1 0200 R 00 --- RDY:5A
type TextTracer struct {
	W   io.Writer
	buf []byte
}

func (t *TextTracer) TraceCycle(cs CycleState) error {
	const cycleWidth = 8
	buf := t.buf[:0]

	cyc := strconv.AppendInt(nil, cs.Cycle, 10)
	for i := len(cyc); i < cycleWidth; i++ {
		buf = append(buf, ' ')
	}
	buf = append(buf, cyc...)
	buf = append(buf, ' ')
	buf = append(buf, cs.Master.String()...)
	buf = append(buf, ' ')

	state := cs.State.String()
	buf = append(buf, state...)
	for i := len(state); i < len("Cooldown"); i++ {
		buf = append(buf, ' ')
	}
	buf = append(buf, ' ')

	if cs.State == DMAActive {
		buf = append(buf, '0'+cs.Phase)
	} else {
		buf = append(buf, '-')
	}
	buf = append(buf, ' ')

	var hex [4]byte
	hexEncode(hex[0:], byte(cs.Bus.Addr>>8))
	hexEncode(hex[2:], byte(cs.Bus.Addr))
	buf = append(buf, hex[:4]...)
	buf = append(buf, ' ')
	if cs.Bus.RnW {
		buf = append(buf, 'R')
	} else {
		buf = append(buf, 'W')
	}
	buf = append(buf, ' ')
	hexEncode(hex[0:], cs.Bus.Data)
	buf = append(buf, hex[:2]...)

	if cs.Req {
		buf = append(buf, " REQ"...)
	} else {
		buf = append(buf, " ---"...)
	}
	if cs.Ready {
		hexEncode(hex[0:], cs.RData)
		buf = append(buf, " RDY:"...)
		buf = append(buf, hex[:2]...)
	} else {
		buf = append(buf, " ---"...)
	}
	if cs.Reset {
		buf = append(buf, " RST"...)
	}
	buf = append(buf, '\n')

	t.buf = buf
	_, err := t.W.Write(buf)
	return err
}

// JSONTracer writes one JSON object per cycle.
type JSONTracer struct {
	W io.Writer
	e jx.Encoder
}

func (t *JSONTracer) TraceCycle(cs CycleState) error {
	e := &t.e
	e.Reset()
	e.ObjStart()
	e.FieldStart("cycle")
	e.Int64(cs.Cycle)
	e.FieldStart("master")
	e.Str(cs.Master.String())
	e.FieldStart("state")
	e.Str(cs.State.String())
	e.FieldStart("phase")
	e.Int(int(cs.Phase))
	e.FieldStart("addr")
	e.Int(int(cs.Bus.Addr))
	e.FieldStart("data")
	e.Int(int(cs.Bus.Data))
	e.FieldStart("rnw")
	e.Bool(cs.Bus.RnW)
	e.FieldStart("req")
	e.Bool(cs.Req)
	e.FieldStart("ready")
	e.Bool(cs.Ready)
	e.FieldStart("rdata")
	e.Int(int(cs.RData))
	if cs.Reset {
		e.FieldStart("reset")
		e.Bool(true)
	}
	e.ObjEnd()

	buf := append(e.Bytes(), '\n')
	_, err := t.W.Write(buf)
	return err
}
