package hwio

import (
	"fmt"

	"oamdma/emu/log"
)

// BankIO8 is implemented by anything that can be mapped into a Table.
type BankIO8 interface {
	// Read8 returns the byte at addr. A peek must not have side effects.
	Read8(addr uint16, peek bool) uint8
	Write8(addr uint16, val uint8)
}

// Table decodes the 16-bit address space, routing each access to the
// BankIO8 mapped at its address.
type Table struct {
	Name string

	// Unmapped serves addresses with nothing mapped. If nil, reads return 0
	// and writes are dropped.
	Unmapped BankIO8

	slots [NumAddrs]BankIO8
}

func NewTable(name string) *Table {
	return &Table{Name: name}
}

// MapBank maps the fields of bank tagged with bank=bankNum (0 when absent),
// each at addr plus its tagged offset. Fields without an offset are not part
// of any bank. Overlapping an existing mapping panics.
func (t *Table) MapBank(addr uint16, bank any, bankNum int) {
	regs, err := bankGetRegs(bank, bankNum)
	if err != nil {
		panic(err)
	}
	for _, reg := range regs {
		at := addr + reg.offset
		switch r := reg.regPtr.(type) {
		case *Reg8:
			t.mapRange(at, 1, r)
		case *Device:
			t.mapRange(at, r.Size, r)
		case *Mem:
			log.ModHwIo.DebugZ("map mem").
				String("bus", t.Name).
				String("mem", r.Name).
				Hex16("addr", at).
				Int("vsize", r.VSize).
				End()
			t.mapRange(at, r.VSize, r.BankIO8())
		default:
			panic(fmt.Errorf("hwio: cannot map %T", r))
		}
	}
}

func (t *Table) mapRange(addr uint16, size int, io BankIO8) {
	end := int(addr) + size
	if size <= 0 || end > NumAddrs {
		panic(fmt.Errorf("%s: invalid mapping at %04X (size %d)", t.Name, addr, size))
	}
	for a := int(addr); a < end; a++ {
		if t.slots[a] != nil {
			panic(fmt.Errorf("%s: address %04X is already mapped", t.Name, a))
		}
	}
	for a := int(addr); a < end; a++ {
		t.slots[a] = io
	}
}

// Mapped reports whether something is mapped at addr.
func (t *Table) Mapped(addr uint16) bool {
	return t.slots[addr] != nil
}

func (t *Table) lookup(addr uint16) BankIO8 {
	if io := t.slots[addr]; io != nil {
		return io
	}
	return t.Unmapped
}

func (t *Table) Read8(addr uint16, peek bool) uint8 {
	if io := t.lookup(addr); io != nil {
		return io.Read8(addr, peek)
	}
	return 0
}

func (t *Table) Peek8(addr uint16) uint8 {
	return t.Read8(addr, true)
}

func (t *Table) Write8(addr uint16, val uint8) {
	if io := t.lookup(addr); io != nil {
		io.Write8(addr, val)
	}
}
