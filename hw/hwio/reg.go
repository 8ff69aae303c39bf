package hwio

import "strings"

type RWFlags uint8

const (
	ReadWriteFlag RWFlags = 0
	ReadOnlyFlag  RWFlags = 1 << iota
	WriteOnlyFlag
)

// Reg8 is an 8-bit memory-mapped register. Callbacks are optional: without
// them the register behaves as a plain latch.
type Reg8 struct {
	Name   string
	Value  uint8
	RoMask uint8 // bits preserved by writes

	Flags   RWFlags
	ReadCb  func(val uint8) uint8
	PeekCb  func(val uint8) uint8
	WriteCb func(old uint8, val uint8)
}

func (reg Reg8) String() string {
	var sb strings.Builder
	sb.WriteString(reg.Name)
	sb.WriteByte('{')
	sb.WriteByte(hexdigits[reg.Value>>4])
	sb.WriteByte(hexdigits[reg.Value&0xF])
	for _, cb := range []struct {
		set bool
		tag string
	}{
		{reg.ReadCb != nil, ",r!"},
		{reg.PeekCb != nil, ",p!"},
		{reg.WriteCb != nil, ",w!"},
	} {
		if cb.set {
			sb.WriteString(cb.tag)
		}
	}
	sb.WriteByte('}')
	return sb.String()
}

const hexdigits = "0123456789abcdef"

// Write8 stores val, keeping the bits in RoMask, then calls WriteCb with the
// previous and new values.
func (reg *Reg8) Write8(addr uint16, val uint8) {
	if reg.Flags&ReadOnlyFlag != 0 {
		logAccessError("Write8 to readonly reg", reg.Name, addr)
		return
	}
	old := reg.Value
	reg.Value = old&reg.RoMask | val&^reg.RoMask
	if reg.WriteCb != nil {
		reg.WriteCb(old, reg.Value)
	}
}

// Read8 returns the register value, as transformed by ReadCb (or PeekCb when
// peeking). Peeking a writeonly register returns the last written value.
func (reg *Reg8) Read8(addr uint16, peek bool) uint8 {
	cb := reg.ReadCb
	switch {
	case peek:
		cb = reg.PeekCb
	case reg.Flags&WriteOnlyFlag != 0:
		logAccessError("Read8 from writeonly reg", reg.Name, addr)
		return 0
	}
	if cb == nil {
		return reg.Value
	}
	return cb(reg.Value)
}
