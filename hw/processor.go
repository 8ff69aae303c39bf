package hw

import (
	"fmt"
	"slices"
)

// BusCycle is a single access performed on the bus by the current bus master.
type BusCycle struct {
	Addr uint16
	Data uint8
	RnW  bool
}

func (bc BusCycle) String() string {
	if bc.RnW {
		return fmt.Sprintf("R $%04X -> $%02X", bc.Addr, bc.Data)
	}
	return fmt.Sprintf("W $%04X <- $%02X", bc.Addr, bc.Data)
}

type busOpKind uint8

const (
	opRead busOpKind = iota
	opWrite
	opWait
)

// BusOp is an operation in a processor script.
type BusOp struct {
	kind  busOpKind
	addr  uint16
	data  uint8
	count int
}

// Read reads addr.
func Read(addr uint16) BusOp { return BusOp{kind: opRead, addr: addr, count: 1} }

// Write writes val at addr.
func Write(addr uint16, val uint8) BusOp {
	return BusOp{kind: opWrite, addr: addr, data: val, count: 1}
}

// Wait performs n idle reads.
func Wait(n int) BusOp { return BusOp{kind: opWait, count: n} }

// Processor stands in for the CPU: it runs a script of bus operations, one
// per cycle, and performs idle reads when the script is exhausted. It doesn't
// advance while halted.
type Processor struct {
	IdleAddr uint16

	script []BusOp
	done   int // ops completed in current script op
	Halted int64
	Last   uint8 // last value read
}

// Load replaces the current script.
func (p *Processor) Load(ops ...BusOp) {
	p.script = append(p.script[:0], ops...)
	p.done = 0
	p.skipEmpty()
}

// Prepend inserts ops before the remaining operations of the script. An
// operation already in progress is restarted from the beginning.
func (p *Processor) Prepend(ops ...BusOp) {
	p.script = append(slices.Clone(ops), p.script...)
	p.done = 0
	p.skipEmpty()
}

func (p *Processor) skipEmpty() {
	for len(p.script) > 0 && p.script[0].count <= 0 {
		p.script = p.script[1:]
	}
}

// Idle reports whether the script is exhausted.
func (p *Processor) Idle() bool {
	return len(p.script) == 0
}

// Peek returns the access the processor wants to perform this cycle.
func (p *Processor) Peek() BusCycle {
	if len(p.script) == 0 {
		return BusCycle{Addr: p.IdleAddr, RnW: true}
	}
	op := p.script[0]
	switch op.kind {
	case opWrite:
		return BusCycle{Addr: op.addr, Data: op.data}
	case opRead:
		return BusCycle{Addr: op.addr, RnW: true}
	}
	return BusCycle{Addr: p.IdleAddr, RnW: true}
}

// Commit completes the access returned by Peek. data is the value read, if
// the access was a read.
func (p *Processor) Commit(bc BusCycle) {
	if bc.RnW {
		p.Last = bc.Data
	}
	if len(p.script) == 0 {
		return
	}
	p.done++
	if p.done >= p.script[0].count {
		p.script = p.script[1:]
		p.done = 0
		p.skipEmpty()
	}
}

// Halt holds the processor for one cycle.
func (p *Processor) Halt() {
	p.Halted++
}

func (p *Processor) reset() {
	p.script = p.script[:0]
	p.done = 0
	p.Halted = 0
	p.Last = 0
}
